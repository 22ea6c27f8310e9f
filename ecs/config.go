package ecs

import (
	"os"
	"time"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Config holds the engine's tick-rate and logging settings. Values come from
// the environment on top of the defaults.
type Config struct {
	// TargetFPS caps the frame loop. 0 means uncapped.
	TargetFPS int `config:"STRATA_TARGET_FPS"`
	// FixedUpdateHz is the fixed-step rate for the physics phases.
	FixedUpdateHz int `config:"STRATA_FIXED_UPDATE_HZ"`
	// NetworkUpdateHz is the snapshot capture rate.
	NetworkUpdateHz int `config:"STRATA_NETWORK_UPDATE_HZ"`
	// InputPollHz is the input polling rate.
	InputPollHz int `config:"STRATA_INPUT_POLL_HZ"`

	LogLevel  string `config:"STRATA_LOG_LEVEL"`
	LogPretty bool   `config:"STRATA_LOG_PRETTY"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		TargetFPS:       0,
		FixedUpdateHz:   60,
		NetworkUpdateHz: 30,
		InputPollHz:     1000,
		LogLevel:        "info",
	}
}

// LoadConfig reads settings from the environment over the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to load config from environment")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the driver cannot run with.
func (c Config) Validate() error {
	if c.FixedUpdateHz <= 0 {
		return eris.Errorf("fixed update rate must be positive, got %d", c.FixedUpdateHz)
	}
	if c.NetworkUpdateHz <= 0 {
		return eris.Errorf("network update rate must be positive, got %d", c.NetworkUpdateHz)
	}
	if c.InputPollHz <= 0 {
		return eris.Errorf("input poll rate must be positive, got %d", c.InputPollHz)
	}
	if c.TargetFPS < 0 {
		return eris.Errorf("target fps must not be negative, got %d", c.TargetFPS)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(err, "bad log level %q", c.LogLevel)
	}
	return nil
}

// FixedStep returns the fixed-step duration derived from FixedUpdateHz.
func (c Config) FixedStep() time.Duration {
	return time.Second / time.Duration(c.FixedUpdateHz)
}

// Logger builds a zerolog logger honoring the config's level and format.
func (c Config) Logger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if c.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}
