// Package logging provides the structured logger used throughout
// impressionism. The interface shape follows the teacher's hand-rolled
// Logger (level methods plus With for structured fields); the concrete
// implementation is backed by zerolog rather than a hand-rolled writer,
// since the retrieval pack's repos consistently reach for zerolog for
// this concern.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Level mirrors the four severities the host API's log(level, message)
// call accepts.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a host API level string to Level, defaulting to Info
// for anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger is the structured logging interface passed down through every
// component's constructor, the same way the teacher threads its Logger
// through Config.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	Log(level Level, msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type zlogger struct {
	z zerolog.Logger
}

// New builds a Logger writing structured JSON lines to w. The CLI wires
// this to stderr so stdout stays reserved for the hook response payload.
func New(w io.Writer, min Level) Logger {
	level := zerolog.InfoLevel
	switch min {
	case LevelDebug:
		level = zerolog.DebugLevel
	case LevelWarn:
		level = zerolog.WarnLevel
	case LevelError:
		level = zerolog.ErrorLevel
	}
	z := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return &zlogger{z: z}
}

// NewStderr is the default constructor used by the CLI entrypoint.
func NewStderr(min Level) Logger {
	return New(os.Stderr, min)
}

func (l *zlogger) event(level Level) *zerolog.Event {
	switch level {
	case LevelDebug:
		return l.z.Debug()
	case LevelWarn:
		return l.z.Warn()
	case LevelError:
		return l.z.Error()
	default:
		return l.z.Info()
	}
}

func withKeyvals(e *zerolog.Event, keyvals ...any) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, keyvals[i+1])
	}
	return e
}

func (l *zlogger) Debug(msg string, keyvals ...any) { withKeyvals(l.event(LevelDebug), keyvals...).Msg(msg) }
func (l *zlogger) Info(msg string, keyvals ...any)  { withKeyvals(l.event(LevelInfo), keyvals...).Msg(msg) }
func (l *zlogger) Warn(msg string, keyvals ...any)  { withKeyvals(l.event(LevelWarn), keyvals...).Msg(msg) }
func (l *zlogger) Error(msg string, keyvals ...any) { withKeyvals(l.event(LevelError), keyvals...).Msg(msg) }

func (l *zlogger) Log(level Level, msg string, keyvals ...any) {
	withKeyvals(l.event(level), keyvals...).Msg(msg)
}

func (l *zlogger) With(keyvals ...any) Logger {
	ctx := l.z.With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, keyvals[i+1])
	}
	return &zlogger{z: ctx.Logger()}
}

// Nop returns a logger that discards everything, used by tests.
func Nop() Logger { return &zlogger{z: zerolog.Nop()} }
