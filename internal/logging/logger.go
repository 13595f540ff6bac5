// Package logging provides the structured logger used across the
// execution core, plus per-execution log capture for embedding a
// script or campaign run's own log output into its result.
//
// Systems built around a single-process interpreter often capture this
// by mutating process-wide stdout/stderr and consulting a thread-local
// buffer from inside the tee. Go has no implicit thread-local
// equivalent — goroutines don't carry one — so instead of
// monkey-patching os.Stdout/os.Stderr this package threads a Scope
// explicitly through context.Context and requires executors to log via
// logging.FromContext(ctx), not raw fmt.Print. Everything the core
// itself writes goes through this path, so two concurrent executions
// never interleave captured output, and terminal output is never
// suppressed.
package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Entry is one structured log line, generalized to the four execution
// kinds this core dispatches (navigation, actions, verifications,
// blocks).
type Entry struct {
	Timestamp       time.Time `json:"timestamp"`
	ExecutionKind   string    `json:"execution_kind"`
	TeamID          string    `json:"team_id,omitempty"`
	TreeID          string    `json:"tree_id,omitempty"`
	Host            string    `json:"host,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	Success         bool      `json:"success"`
	Error           string    `json:"error,omitempty"`
}

// Logger handles structured event logging for the execution core.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	file    *os.File
	console bool
	out     io.Writer // defaults to os.Stdout; overridable for tests
}

var defaultLogger = &Logger{enabled: true, console: true, out: os.Stdout}

// Default returns the process-wide default logger.
func Default() *Logger { return defaultLogger }

// SetOutput redirects file-based JSON logging to path.
func (l *Logger) SetOutput(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	l.file = f
	return nil
}

// SetConsole toggles human-readable console output.
func (l *Logger) SetConsole(enabled bool) {
	l.mu.Lock()
	l.console = enabled
	l.mu.Unlock()
}

// Close closes the underlying log file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// Log writes a structured entry to the console and/or file sink.
func (l *Logger) Log(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	e.Timestamp = time.Now()

	if l.console {
		status := "ok"
		if !e.Success {
			status = "fail"
		}
		fmt.Fprintf(l.out, "[%s] %s %dms %s\n", e.ExecutionKind, status, e.DurationMS, e.Host)
		if e.Error != "" {
			fmt.Fprintf(l.out, "[%s]   error: %s\n", e.ExecutionKind, e.Error)
		}
	}
	if l.file != nil {
		data, _ := json.Marshal(e)
		l.file.Write(append(data, '\n'))
	}
}

// scopeKey is the context key under which a *Scope is bound.
type scopeKey struct{}

// Scope is a per-execution log buffer. Two concurrent executions bind
// two distinct Scopes, so their captured output never interleaves.
type Scope struct {
	mu  sync.Mutex
	buf bytes.Buffer
	// also tees to the real stdout so terminal output is never suppressed.
	tee io.Writer
}

// NewScope binds a fresh Scope to ctx and returns the derived context
// plus the Scope, so the caller can retrieve its contents after fn
// returns.
func NewScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{tee: os.Stdout}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// FromContext returns the Scope bound to ctx, or nil if none is bound.
// Code with no bound scope (tests, standalone tooling) should fall back
// to writing straight to stdout.
func FromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Write implements io.Writer: appends to the scope's buffer and tees to
// the original stream.
func (s *Scope) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.buf.Write(p)
	s.mu.Unlock()
	if s.tee != nil {
		return s.tee.Write(p)
	}
	return len(p), nil
}

// String returns the captured contents so far.
func (s *Scope) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// Printf writes a formatted line through the scope bound to ctx, or
// straight to stdout if none is bound.
func Printf(ctx context.Context, format string, args ...any) {
	var w io.Writer = os.Stdout
	if s := FromContext(ctx); s != nil {
		w = s
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// ExecuteWithLogging runs fn with a fresh Scope bound to its context and
// returns fn's result alongside the captured log text, implementing the
// execute_with_logging contract of.
func ExecuteWithLogging[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, string, error) {
	scoped, scope := NewScope(ctx)
	result, err := fn(scoped)
	return result, scope.String(), err
}
