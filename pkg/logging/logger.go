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
	"sync"
	"time"

	"cabinmix/pkg/config"
)

// RequestLogger is the logger instance for HTTP requests. Nil until Init.
var RequestLogger *slog.Logger

var events = &eventLog{}

// Init installs the server logger as the slog default, builds RequestLogger
// and points the zone event log at its file. Previous log files are kept as
// <name>.old. The returned func closes the opened files.
func Init(cfg *config.LogConfig) (func(), error) {
	rotatePaths(cfg.Server.Path, cfg.Requests.Path, cfg.Events.Path)
	SetEventLogPath(cfg.Events.Path)

	serverHandler, serverFile, err := setupHandler(cfg.Server.Path, cfg.Server.Level, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}

	requestHandler, requestFile, err := setupHandler(cfg.Requests.Path, cfg.Requests.Level, false)
	if err != nil {
		serverFile.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	slog.SetDefault(slog.New(serverHandler))
	RequestLogger = slog.New(requestHandler)

	files := []io.Closer{serverFile, requestFile}
	return func() {
		for _, f := range files {
			_ = f.Close()
		}
	}, nil
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to a slog level.
// Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupHandler opens path for appending and returns a text handler on it.
// With stdout set, the handler also fans out to the console and to
// GlobalLogCapture, both at INFO or above.
func setupHandler(path, levelStr string, stdout bool) (slog.Handler, *os.File, error) {
	level := ParseLevel(levelStr)

	file, err := openAppend(path)
	if err != nil {
		return nil, nil, err
	}
	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	if !stdout {
		return fileHandler, file, nil
	}

	consoleLevel := max(level, slog.LevelInfo)
	return fanout{
		fileHandler,
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: consoleLevel}),
		slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}, file, nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// fanout sends each record to every member that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// nolint:gocritic // slog.Handler takes the record by value
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

// rotatePaths moves each existing file to <path>.old, replacing an older one.
func rotatePaths(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		old := p + ".old"
		_ = os.Remove(old)
		_ = os.Rename(p, old)
	}
}

// Event is a line in the zone event log.
type Event struct {
	Timestamp time.Time
	Type      string // "zone", "effect", "vehicle"
	Title     string
	Summary   string
}

// String formats the event as "[2006-01-02 15:04:05] [type] Title - Summary".
// A zero timestamp is taken as now.
func (e *Event) String() string {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", ts.Format(time.DateTime), e.Type, e.Title)
	if e.Summary != "" {
		b.WriteString(" - ")
		b.WriteString(e.Summary)
	}
	return b.String()
}

type eventLog struct {
	mu   sync.Mutex
	path string
}

// SetEventLogPath points the event log at path. An empty path disables it.
func SetEventLogPath(path string) {
	events.mu.Lock()
	events.path = path
	events.mu.Unlock()
}

// LogEvent appends an event line to the event log and records it in
// GlobalEventCapture. It is a no-op while no path is set.
func LogEvent(event *Event) {
	events.mu.Lock()
	defer events.mu.Unlock()
	if events.path == "" {
		return
	}

	f, err := openAppend(events.path)
	if err != nil {
		slog.Error("failed to open event log", "path", events.path, "error", err)
		return
	}
	defer f.Close()

	line := event.String()
	if _, err := f.WriteString(line + "\n"); err != nil {
		slog.Error("failed to write event log", "error", err)
	}
	_, _ = GlobalEventCapture.Write([]byte(line))
}
