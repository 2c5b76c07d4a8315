package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the service logger. Development gets a console encoder at
// debug level; everything else gets JSON at info level.
func New(environment string) *zap.Logger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	out := zapcore.AddSync(os.Stdout)
	var core zapcore.Core
	if environment == "development" {
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, zap.DebugLevel)
	} else {
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), out, zap.InfoLevel)
	}

	return zap.New(core, zap.AddCaller())
}
