// Package zlog adapts zerolog to the invite.Logger interface.
package zlog

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	invite "github.com/goliatone/go-auth-invite"
)

// Logger implements invite.Logger on top of a zerolog.Logger
type Logger struct {
	zl zerolog.Logger
}

var _ invite.Logger = (*Logger)(nil)

// New wraps an existing zerolog logger
func New(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// NewFromLevel builds a logger writing to w. pretty switches to the
// console writer.
func NewFromLevel(w io.Writer, level string, pretty bool) *Logger {
	if w == nil {
		w = os.Stdout
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return New(zl)
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(args ...any) *Logger {
	ctx := l.zl.With()
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 < len(args) {
			ctx = ctx.Interface(key, args[i+1])
		} else {
			ctx = ctx.Interface(key, nil)
		}
	}
	return &Logger{zl: ctx.Logger()}
}

// Zerolog exposes the underlying logger
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

func (l *Logger) Debug(msg string, args ...any) {
	fields(l.zl.Debug(), args).Msg(msg)
}

func (l *Logger) Info(msg string, args ...any) {
	fields(l.zl.Info(), args).Msg(msg)
}

func (l *Logger) Warn(msg string, args ...any) {
	fields(l.zl.Warn(), args).Msg(msg)
}

func (l *Logger) Error(msg string, args ...any) {
	fields(l.zl.Error(), args).Msg(msg)
}

// Fatal logs at fatal level. The process is left running, the caller
// decides whether to exit.
func (l *Logger) Fatal(msg string, args ...any) {
	fields(l.zl.WithLevel(zerolog.FatalLevel), args).Msg(msg)
}

func fields(e *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			e = e.Interface(key, nil)
			break
		}
		switch v := args[i+1].(type) {
		case error:
			e = e.AnErr(key, v)
		case string:
			e = e.Str(key, v)
		case fmt.Stringer:
			e = e.Stringer(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	return e
}

// FormatLogger logs printf style messages, for libraries that format
// their own log lines.
type FormatLogger struct {
	zl zerolog.Logger
}

// Formatted returns a printf style view of l
func (l *Logger) Formatted() *FormatLogger {
	return &FormatLogger{zl: l.zl}
}

func (f *FormatLogger) Debug(format string, args ...any) { f.zl.Debug().Msgf(format, args...) }
func (f *FormatLogger) Info(format string, args ...any)  { f.zl.Info().Msgf(format, args...) }
func (f *FormatLogger) Warn(format string, args ...any)  { f.zl.Warn().Msgf(format, args...) }
func (f *FormatLogger) Error(format string, args ...any) { f.zl.Error().Msgf(format, args...) }

// Fatal logs at fatal level without exiting
func (f *FormatLogger) Fatal(format string, args ...any) {
	f.zl.WithLevel(zerolog.FatalLevel).Msgf(format, args...)
}
