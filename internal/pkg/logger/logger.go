package logger

import (
	"log"

	"go.uber.org/zap"
)

var global *zap.Logger

// Init configures the global logger. Production mode emits JSON, anything
// else uses the development console encoder.
func Init(env string) {
	var (
		l   *zap.Logger
		err error
	)

	if env == "production" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	global = l
}

// Sync flushes any buffered log entries.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

func logger() *zap.Logger {
	if global == nil {
		// Tests and tools that never call Init still get a usable logger.
		global = zap.NewNop()
	}
	return global
}

func Debug(msg string, fields ...zap.Field) {
	logger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	logger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	logger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	logger().Error(msg, fields...)
}
