package ecs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plus3/strata/ecs"
)

func TestDefaultConfig(t *testing.T) {
	cfg := ecs.DefaultConfig()

	assert.Equal(t, 0, cfg.TargetFPS)
	assert.Equal(t, 60, cfg.FixedUpdateHz)
	assert.Equal(t, 30, cfg.NetworkUpdateHz)
	assert.Equal(t, 1000, cfg.InputPollHz)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STRATA_TARGET_FPS", "144")
	t.Setenv("STRATA_FIXED_UPDATE_HZ", "120")
	t.Setenv("STRATA_LOG_LEVEL", "debug")

	cfg, err := ecs.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 144, cfg.TargetFPS)
	assert.Equal(t, 120, cfg.FixedUpdateHz)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 30, cfg.NetworkUpdateHz, "unset values keep their defaults")
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ecs.Config)
	}{
		{"zero fixed rate", func(c *ecs.Config) { c.FixedUpdateHz = 0 }},
		{"negative fixed rate", func(c *ecs.Config) { c.FixedUpdateHz = -1 }},
		{"zero network rate", func(c *ecs.Config) { c.NetworkUpdateHz = 0 }},
		{"zero input rate", func(c *ecs.Config) { c.InputPollHz = 0 }},
		{"negative fps", func(c *ecs.Config) { c.TargetFPS = -30 }},
		{"bad log level", func(c *ecs.Config) { c.LogLevel = "shouting" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ecs.DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigFixedStep(t *testing.T) {
	cfg := ecs.DefaultConfig()
	assert.Equal(t, time.Second/60, cfg.FixedStep())

	cfg.FixedUpdateHz = 120
	assert.Equal(t, time.Second/120, cfg.FixedStep())
}
