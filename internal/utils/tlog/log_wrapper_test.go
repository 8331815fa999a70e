package tlog_test

import (
	"testing"

	"github.com/steveiliop56/tinyoauth/internal/config"
	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
)

func TestNewLogger(t *testing.T) {
	cfg := config.LogConfig{
		Level: "debug",
		Json:  true,
		Streams: config.LogStreams{
			HTTP:  config.LogStreamConfig{Enabled: true, Level: "info"},
			App:   config.LogStreamConfig{Enabled: true, Level: ""},
			Audit: config.LogStreamConfig{Enabled: false, Level: ""},
		},
	}

	logger := tlog.NewLogger(cfg)

	assert.Assert(t, logger != nil)
	assert.Equal(t, zerolog.InfoLevel, logger.HTTP.GetLevel())
	assert.Equal(t, zerolog.DebugLevel, logger.App.GetLevel())
	assert.Equal(t, zerolog.Disabled, logger.Audit.GetLevel())
}

func TestNewSimpleLogger(t *testing.T) {
	logger := tlog.NewSimpleLogger()

	assert.Assert(t, logger != nil)
	assert.Equal(t, zerolog.InfoLevel, logger.HTTP.GetLevel())
	assert.Equal(t, zerolog.InfoLevel, logger.App.GetLevel())
	assert.Equal(t, zerolog.Disabled, logger.Audit.GetLevel())
}

func TestLoggerInit(t *testing.T) {
	tlog.NewSimpleLogger().Init()

	assert.Assert(t, tlog.App.GetLevel() != zerolog.Disabled)
	assert.Equal(t, zerolog.Disabled, tlog.Audit.GetLevel())
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	logger := tlog.NewLogger(config.LogConfig{
		Level: "verbose",
		Streams: config.LogStreams{
			App: config.LogStreamConfig{Enabled: true},
		},
	})

	assert.Equal(t, zerolog.InfoLevel, logger.App.GetLevel())
}
