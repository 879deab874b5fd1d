package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"iotinerary/pkg/model"
)

// EventLog appends user-facing notices to a file and keeps a tail in memory.
type EventLog struct {
	mu   sync.Mutex
	path string
	tail *LogCaptureWriter
}

// Events is the process-wide notice log. It only writes to disk once a path
// is set.
var Events = &EventLog{tail: GlobalEventCapture}

// SetPath sets the file notices are appended to. Empty disables the file.
func (e *EventLog) SetPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.path = path
}

// Append records n as one line: [2006-01-02 15:04:05] [level] message (id)
func (e *EventLog) Append(n *model.Notice) {
	ts := n.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] [%s] %s", ts.Format(time.DateTime), n.Level, n.Message)
	if n.ID != "" {
		line += " (" + n.ID + ")"
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.path == "" {
		return
	}
	_, _ = e.tail.Write([]byte(line))

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		slog.Error("failed to create event log directory", "error", err)
		return
	}
	f, err := os.OpenFile(e.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Error("failed to open event log", "error", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		slog.Error("failed to write event log", "error", err)
	}
}

// Tail returns the last n notice lines, oldest first.
func (e *EventLog) Tail(n int) []string {
	return e.tail.Tail(n)
}

// LogEvent appends n to the process-wide event log.
func LogEvent(n *model.Notice) {
	Events.Append(n)
}
