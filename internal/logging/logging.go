// Package logging builds the zap logger shared by every component and the
// adapters that route third-party library logs through it.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/lingua/internal/config"
)

// New creates a logger from configuration. Format "json" uses the production
// encoder, anything else the human-readable console encoder.
func New(cfg config.Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = level > zapcore.DebugLevel

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// GormLevel maps a textual level to gorm's logger levels. Unknown values
// fall back to Warn.
func GormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// TaskLogger implements backlite.Logger on top of zap.
type TaskLogger struct {
	log *zap.SugaredLogger
}

func NewTaskLogger(logger *zap.Logger) *TaskLogger {
	return &TaskLogger{log: logger.Named("tasks").Sugar()}
}

func (l *TaskLogger) Info(message string, params ...any) {
	l.log.Infow(message, params...)
}

func (l *TaskLogger) Error(message string, params ...any) {
	l.log.Errorw(message, params...)
}
