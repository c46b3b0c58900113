package utils

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func SetupLogger() *zap.SugaredLogger {
	logger := zap.Must(zap.NewDevelopment())
	sugar := logger.Sugar()

	return sugar
}

// SetupLoggerWithLevel builds the server logger once settings are known.
// Unknown levels fall back to INFO.
func SetupLoggerWithLevel(level string) *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	parsed, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(parsed)
	return zap.Must(config.Build()).Sugar()
}
