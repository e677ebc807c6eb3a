package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names used for child loggers.
const (
	ComponentGateway    = "gateway"
	ComponentController = "controller"
	ComponentHTTP       = "http"
	ComponentForms      = "forms"
	ComponentConfig     = "config"
)

// LogFormat selects the zap encoder.
type LogFormat string

const (
	FormatConsole LogFormat = "CONSOLE"
	FormatJSON    LogFormat = "JSON"
)

var initOnce sync.Once

func levelFromString(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format(time.RFC3339))
}

// New builds a logger writing to stdout with the given level and format.
// Unknown formats fall back to JSON.
func New(level string, format LogFormat) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch LogFormat(strings.ToUpper(string(format))) {
	case FormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = timeEncoder
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(levelFromString(level)))
	return zap.New(core, zap.AddCaller())
}

// Initialize installs a configured logger as the zap global. Only the first
// call has any effect.
func Initialize(level string, format LogFormat) {
	initOnce.Do(func() {
		l := New(level, format)
		zap.ReplaceGlobals(l)
		l.Info("Logger initialized", zap.String("level", level), zap.String("format", string(format)))
	})
}

// For returns a sugared child of the global logger named after component.
func For(component string) *zap.SugaredLogger {
	return zap.L().Named(component).Sugar()
}
