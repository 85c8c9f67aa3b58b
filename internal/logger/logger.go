package logger

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

// ParseLevel maps a config level name to a zap level. Unknown names map to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a console logger writing to w (stderr when w is nil).
func New(level string, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(zapcore.Lock(zapcore.AddSync(w))),
		ParseLevel(level),
	)
	return zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel+1))
}

// Init installs the process logger and returns it.
func Init(level string) *zap.Logger {
	l := New(level, nil)
	global.Store(l)
	return l
}

// L returns the process logger, or a no-op logger before Init.
func L() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// Sync flushes the process logger.
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
