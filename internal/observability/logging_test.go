package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/campus-console/internal/config"
)

func TestLoggerConfigProductionIsSampledJSON(t *testing.T) {
	cfg, err := loggerConfig(config.LoggerConfig{Level: "WARN"})
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.WarnLevel, cfg.Level.Level())
	require.NotNil(t, cfg.Sampling)
	assert.False(t, cfg.Development)
	assert.Equal(t, "component", cfg.EncoderConfig.NameKey)
}

func TestLoggerConfigDevelopment(t *testing.T) {
	cfg, err := loggerConfig(config.LoggerConfig{Level: "debug", Development: true})
	require.NoError(t, err)

	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.Nil(t, cfg.Sampling)
	assert.True(t, cfg.Development)
}

func TestLoggerConfigUnknownLevelFallsBackToInfo(t *testing.T) {
	cfg, err := loggerConfig(config.LoggerConfig{Level: "chatty"})
	assert.Error(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
}

func TestNewLoggerBuilds(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "chatty"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
