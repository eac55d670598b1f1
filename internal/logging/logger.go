// Package logging fans mol's log events to a styled console sink and an optional
// logfmt file under the changeset directory.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// AppName prefixes every log line.
const AppName = "mol"

// Logger is the logging surface components depend on. *charmLog.Logger and
// *Runtime both satisfy it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

// Nop returns a logger that drops everything.
func Nop() Logger {
	return charmLog.New(io.Discard)
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// Options configures New.
type Options struct {
	Level string
	// File enables the logfmt sink when non-empty.
	File string
	// RunID tags every line; a fresh UUID is used when empty.
	RunID string
}

// Runtime fans log events to every configured sink.
type Runtime struct {
	sinks     []*charmLog.Logger
	closeFile func() error
	runID     string
	filePath  string
}

// New configures the console sink on stderr and the optional file sink.
func New(stderr io.Writer, opts Options) (*Runtime, error) {
	level, err := charmLog.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: parse level %q: %w", opts.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	console := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:     level,
		Prefix:    AppName,
		Formatter: charmLog.TextFormatter,
	})
	runtime := &Runtime{
		sinks: []*charmLog.Logger{console},
		runID: runID,
	}
	if opts.File == "" {
		return runtime, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	// File output stays parseable and carries the run id on every line.
	file := charmLog.NewWithOptions(f, charmLog.Options{
		Level:           level,
		Prefix:          AppName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	}).With("run", runID)
	runtime.sinks = append(runtime.sinks, file)
	runtime.closeFile = f.Close
	runtime.filePath = opts.File
	return runtime, nil
}

// RunID identifies this invocation in the log file.
func (r *Runtime) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// FilePath returns the active log file, or "".
func (r *Runtime) FilePath() string {
	if r == nil {
		return ""
	}
	return r.filePath
}

// Close closes the file sink.
func (r *Runtime) Close() error {
	if r == nil || r.closeFile == nil {
		return nil
	}
	return r.closeFile()
}

// Debug logs a debug event to all sinks.
func (r *Runtime) Debug(msg any, keyvals ...any) {
	r.each(func(sink *charmLog.Logger) { sink.Debug(msg, keyvals...) })
}

// Info logs an informational event to all sinks.
func (r *Runtime) Info(msg any, keyvals ...any) {
	r.each(func(sink *charmLog.Logger) { sink.Info(msg, keyvals...) })
}

// Warn logs a warning to all sinks.
func (r *Runtime) Warn(msg any, keyvals ...any) {
	r.each(func(sink *charmLog.Logger) { sink.Warn(msg, keyvals...) })
}

// Error logs an error to all sinks.
func (r *Runtime) Error(msg any, keyvals ...any) {
	r.each(func(sink *charmLog.Logger) { sink.Error(msg, keyvals...) })
}

func (r *Runtime) each(fn func(*charmLog.Logger)) {
	if r == nil {
		return
	}
	for _, sink := range r.sinks {
		fn(sink)
	}
}
