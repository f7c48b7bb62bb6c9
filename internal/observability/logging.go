package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/campus-console/internal/config"
)

// NewLogger builds the console logger. Development mode writes colored
// console lines with stack traces on warnings; otherwise entries are JSON,
// and repeated messages are sampled so a burst of push events cannot flood
// the output.
func NewLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	zapCfg, levelErr := loggerConfig(cfg)
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if levelErr != nil {
		logger.Warn("falling back to info level", zap.String("log_level", cfg.Level), zap.Error(levelErr))
	}
	return logger, nil
}

func loggerConfig(cfg config.LoggerConfig) (zap.Config, error) {
	level, levelErr := zapcore.ParseLevel(cfg.Level)
	if levelErr != nil {
		level = zapcore.InfoLevel
	}

	enc := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "ts",
		NameKey:        "component",
		CallerKey:      "caller",
		StacktraceKey:  "stack",
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    enc,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Sampling:         &zap.SamplingConfig{Initial: 100, Thereafter: 100},
	}
	if cfg.Development {
		zapCfg.Development = true
		zapCfg.Encoding = "console"
		zapCfg.Sampling = nil
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapCfg, levelErr
}

// WithService tags every entry with the console build and environment.
func WithService(logger *zap.Logger, app config.AppConfig) *zap.Logger {
	return logger.With(
		zap.String("service", app.Name),
		zap.String("version", app.Version),
		zap.String("env", app.Env),
	)
}
