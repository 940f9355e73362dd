package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log discards everything until Init is called so library code can log
// unconditionally
var Log = zap.NewNop()

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}

	return zapcore.InfoLevel
}

// Init replaces Log. mode "production" logs json, anything else logs colored
// console output.
func Init(level string, mode string) error {
	var config zap.Config

	if mode == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = true
	}

	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := config.Build()

	if err != nil {
		return err
	}

	Log = logger
	return nil
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
