package logging

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Error(msg string, kv ...any)
	Fatal(msg string, kv ...any)
}

type zapLogger struct {
	s *zap.SugaredLogger
}

var (
	levelMu  sync.RWMutex
	logLevel = "info"
	atomic   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// New creates a logger. Output is JSON outside of dev, console in dev.
// The level comes from LOG_LEVEL via config (debug|info|error|fatal).
func New(env, level string) Logger {
	SetLevel(level)

	var cfg zap.Config
	if strings.EqualFold(env, "dev") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = atomic
	cfg.DisableStacktrace = true
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		z = zap.NewNop()
	}
	return &zapLogger{s: z.Sugar()}
}

// Level control
func SetLevel(lvl string) {
	levelMu.Lock()
	defer levelMu.Unlock()
	switch lvl {
	case "debug", "info", "error", "fatal":
		logLevel = lvl
	default:
		logLevel = "info"
	}
	atomic.SetLevel(zapLevel(logLevel))
}

func GetLevel() string {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return logLevel
}

func zapLevel(lvl string) zapcore.Level {
	switch lvl {
	case "debug":
		return zapcore.DebugLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *zapLogger) Fatal(msg string, kv ...any) { l.s.Fatalw(msg, kv...) }

// Nop returns a logger that discards everything; used by tests.
func Nop() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }
