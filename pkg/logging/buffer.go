package logging

import (
	"strings"
	"sync"
)

const defaultCaptureLines = 200

// LogCaptureWriter is a thread-safe writer that keeps the most recent lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	max   int
}

// NewCaptureWriter keeps at most max lines.
func NewCaptureWriter(max int) *LogCaptureWriter {
	if max <= 0 {
		max = defaultCaptureLines
	}
	return &LogCaptureWriter{max: max}
}

// GlobalLogCapture captures the server log for the log endpoint.
var GlobalLogCapture = NewCaptureWriter(defaultCaptureLines)

// GlobalEventCapture captures the events log (user-facing notices).
var GlobalEventCapture = NewCaptureWriter(defaultCaptureLines)

// Write implements io.Writer. Each non-empty line of p is kept.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		w.lines = append(w.lines, line)
	}
	if over := len(w.lines) - w.max; over > 0 {
		w.lines = append([]string(nil), w.lines[over:]...)
	}
	return len(p), nil
}

// GetLastLine returns the most recent line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Tail returns up to n most recent lines, oldest first.
func (w *LogCaptureWriter) Tail(n int) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if n <= 0 || n > len(w.lines) {
		n = len(w.lines)
	}
	return append([]string(nil), w.lines[len(w.lines)-n:]...)
}
