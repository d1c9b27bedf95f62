package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"numium/config"
)

// NewLogger builds the process logger. LOG_FORMAT=console selects a human-readable encoder;
// anything else logs JSON.
func NewLogger(config *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(config.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", config.Log.Level, err)
	}

	zc := zap.NewProductionConfig()
	if config.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("numium"), nil
}
