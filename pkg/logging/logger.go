package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"iotinerary/pkg/config"
)

// RequestLogger is the logger instance for HTTP requests.
var RequestLogger *slog.Logger

// Init opens the server, request and event logs and installs the server
// logger as the slog default. The returned func closes the files.
func Init(cfg *config.LogConfig) (func(), error) {
	// Previous run's logs are kept as .old
	rotatePaths(cfg.Server.Path, cfg.Requests.Path, cfg.Events.Path)
	Events.SetPath(cfg.Events.Path)

	var files []io.Closer
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	serverFile, err := openLog(cfg.Server.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	files = append(files, serverFile)
	serverLevel := parseLevel(cfg.Server.Level)
	slog.SetDefault(slog.New(fanout{
		slog.NewTextHandler(serverFile, &slog.HandlerOptions{Level: serverLevel, AddSource: serverLevel == slog.LevelDebug}),
		// console and capture never go below INFO
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: max(serverLevel, slog.LevelInfo)}),
		slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}))

	requestFile, err := openLog(cfg.Requests.Path)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}
	files = append(files, requestFile)
	RequestLogger = slog.New(slog.NewTextHandler(requestFile, &slog.HandlerOptions{Level: parseLevel(cfg.Requests.Level)}))

	return closeAll, nil
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// parseLevel accepts DEBUG, INFO, WARN, ERROR (any case, with optional +/- offset)
// and falls back to INFO.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// nolint:gocritic // r must be passed by value to implement slog.Handler
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// rotatePaths renames existing logs to .old so each run starts fresh.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = os.Remove(p + ".old")
		_ = os.Rename(p, p+".old")
	}
}
