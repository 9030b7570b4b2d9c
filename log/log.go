// Package log provides the structured logger used across the coordinator.
package log

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface every coordinator package depends on. It is
// always constructed and passed in explicitly; nothing in this package keeps
// a package-level singleton beyond the lazily built default used by callers
// that have not wired their own.
type Logger interface {
	Info(keyvals ...interface{})
	Debug(keyvals ...interface{})
	Warn(keyvals ...interface{})
	Error(keyvals ...interface{})
	Fatal(keyvals ...interface{})
	Infow(msg string, keyvals ...interface{})
	Debugw(msg string, keyvals ...interface{})
	Warnw(msg string, keyvals ...interface{})
	Errorw(msg string, keyvals ...interface{})
	With(args ...interface{}) Logger
	Named(s string) Logger
}

type log struct {
	*zap.SugaredLogger
}

const (
	InfoLevel  = int(zapcore.InfoLevel)
	DebugLevel = int(zapcore.DebugLevel)
	ErrorLevel = int(zapcore.ErrorLevel)
	FatalLevel = int(zapcore.FatalLevel)
	WarnLevel  = int(zapcore.WarnLevel)
)

// DefaultLevel is used by DefaultLogger the first time it is called.
var DefaultLevel = InfoLevel

func init() {
	if v, ok := os.LookupEnv("COORDINATOR_LOG_LEVEL"); ok && v == "DEBUG" {
		DefaultLevel = DebugLevel
	}
}

var defaultOnce sync.Once
var defaultLogger Logger

// DefaultLogger returns a process-wide fallback logger for code paths that
// run before a configured Logger is available (e.g. flag parsing).
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(nil, DefaultLevel, true)
	})
	return defaultLogger
}

// New builds a Logger writing to output (stdout when nil) at the given level.
func New(output zapcore.WriteSyncer, level int, isJSON bool) Logger {
	encoder := consoleEncoder()
	if isJSON {
		encoder = jsonEncoder()
	}
	if output == nil {
		output = os.Stdout
	}
	core := zapcore.NewCore(encoder, output, zapcore.Level(level))
	return &log{zap.New(core, zap.WithCaller(true), zap.AddCallerSkip(1)).Sugar()}
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func (l *log) With(args ...interface{}) Logger  { return &log{l.SugaredLogger.With(args...)} }
func (l *log) Named(s string) Logger            { return &log{l.SugaredLogger.Named(s)} }
func (l *log) Fatal(kv ...interface{})          { l.SugaredLogger.Fatal(kv...) }
func (l *log) Infow(m string, kv ...interface{})  { l.SugaredLogger.Infow(m, kv...) }
func (l *log) Debugw(m string, kv ...interface{}) { l.SugaredLogger.Debugw(m, kv...) }
func (l *log) Warnw(m string, kv ...interface{})  { l.SugaredLogger.Warnw(m, kv...) }
func (l *log) Errorw(m string, kv ...interface{}) { l.SugaredLogger.Errorw(m, kv...) }

type ctxKey string

const loggerCtxKey ctxKey = "coordinatorLogger"

// ToContext attaches l to ctx.
func ToContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, l)
}

// FromContextOrDefault recovers the Logger attached by ToContext, or the
// default logger if none was attached.
func FromContextOrDefault(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerCtxKey).(Logger); ok {
		return l
	}
	return DefaultLogger()
}
