// Package logging wraps zap for the rest of the module, following the
// same global-logger-plus-component-child-logger convention as the wider
// corpus: one process-wide *zap.Logger, initialized once at startup, and
// per-component children carved off it for structured, filterable output.
package logging

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quanta/internal/config"
)

var logger *zap.Logger

// Init builds the process-wide logger from cfg. Development mode uses a
// color console encoder; production mode uses JSON; output to cfg.File is
// always JSON. When cfg.Level is empty, QUANTA_LOG_LEVEL is consulted
// before falling back to the preset's default level (debug in development
// mode, info in production mode).
func Init(cfg config.LoggingConfig) error {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	levelText := cfg.Level
	if levelText == "" {
		levelText = os.Getenv("QUANTA_LOG_LEVEL")
	}
	if levelText != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(levelText)); err == nil {
			zapCfg.Level = zap.NewAtomicLevelAt(level)
		}
	}

	var core zapcore.Core
	if cfg.File != "" {
		encoder := zapcore.NewJSONEncoder(zapCfg.EncoderConfig)
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
		core = zapcore.NewCore(encoder, writer, zapCfg.Level)
	} else {
		built, err := zapCfg.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		if err != nil {
			return err
		}
		logger = built
		return nil
	}

	logger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// L returns the process-wide logger, defaulting to a development logger
// if Init was never called (handy for tests).
func L() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// Component returns a child logger tagged with component=name.
func Component(name string) *zap.Logger {
	return L().With(zap.String("component", name))
}

// Sync flushes the logger's buffer; call it via defer right after Init.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
