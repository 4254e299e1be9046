// Package log provides the structured logging used by exhbma estimators.
//
// The package exposes a minimal slog-style Logger interface backed by
// zerolog, so model code logs through an implementation-agnostic surface
// while applications keep full control over the zerolog configuration
// (level, writer, console formatting).
package log

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger is a structured logging interface with key-value fields.
// Fields are passed as alternating keys and values, as in log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error it is attached as the "error" field.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger
}

var (
	mu      sync.RWMutex
	rootLog = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
)

// SetLogger replaces the package-level zerolog logger. Applications call
// this once at startup to route estimator logs into their own sink.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	rootLog = l
}

// GetLogger returns the package-level logger.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zerologLogger{log: rootLog}
}

// GetLoggerWithName returns a logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return &zerologLogger{log: rootLog.With().Str("component", name).Logger()}
}

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	log zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, fields ...any) {
	applyFields(z.log.Debug(), fields).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...any) {
	applyFields(z.log.Info(), fields).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...any) {
	applyFields(z.log.Warn(), fields).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...any) {
	ev := z.log.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			fields = fields[1:]
		}
	}
	applyFields(ev, fields).Msg(msg)
}

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.log.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{log: ctx.Logger()}
}

func applyFields(ev *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case error:
			ev = ev.AnErr(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	return ev
}
