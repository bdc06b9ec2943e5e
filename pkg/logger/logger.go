// Package logger wraps zerolog with context-carried fields so request, user
// and order identifiers follow a call chain without being passed explicitly.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	// Level is a zerolog level name; blank means info.
	Level string
	// WarnStack attaches a stack trace to warnings as well as errors.
	WarnStack bool
	// Console switches to zerolog's human readable writer.
	Console bool
	Output  io.Writer
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	level := ParseLevel(opts.Level)

	zerolog.TimeFieldFormat = time.RFC3339Nano

	return &Logger{
		base:      zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName).Logger(),
		warnStack: opts.WarnStack,
	}
}

// Nop discards everything.
func Nop() *Logger {
	return New(Options{ServiceName: "nop", Output: io.Discard, Level: zerolog.Disabled.String()})
}

// ParseLevel maps a config string onto a zerolog level. Blank or unknown values mean info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// from returns the field-enriched logger stored on ctx, or the base logger.
func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if zl := zerolog.Ctx(ctx); zl.GetLevel() != zerolog.Disabled {
			return zl
		}
	}
	return &l.base
}

func (l *Logger) extend(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	child := build(l.from(ctx).With()).Logger()
	return child.WithContext(ctx)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.withString(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.withString(ctx, "user_id", userID)
}

func (l *Logger) WithRole(ctx context.Context, role string) context.Context {
	return l.withString(ctx, "role", role)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.withString(ctx, "order_id", orderID)
}

func (l *Logger) withString(ctx context.Context, key, value string) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Str(key, value)
	})
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.from(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always carries a stack trace; err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.from(ctx).Error().Str("stack", stack())
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
