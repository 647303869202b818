package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a LOG_LEVEL string to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// New builds a logger writing to stdout. Format "json" uses the production
// encoder; anything else ("console", "text") uses the development encoder.
func New(level, format string) (*zap.Logger, error) {
	var config zap.Config
	if strings.ToLower(format) == "json" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.LevelKey = "log_level"
		config.EncoderConfig.MessageKey = "message"
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("unable to build logger: %w", err)
	}

	return log, nil
}
