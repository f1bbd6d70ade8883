// Package config loads runtime settings from config.yaml and TASKBOT_*
// environment variables. Configuration is read once at startup and immutable
// afterwards.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken string `mapstructure:"telegram_token" validate:"required"`
	DatabasePath  string `mapstructure:"database_path"  validate:"required"`

	// Timezone drives both scheduling loops and the active-hours gate.
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`

	// Bootstrap authority, by numeric ID or by handle. Kept as strings so a
	// bad entry degrades to a warning instead of failing startup.
	BootstrapAdminIDs     []string `mapstructure:"bootstrap_admin_ids"`
	BootstrapAdminHandles []string `mapstructure:"bootstrap_admin_handles"`

	RolloverTime      string `mapstructure:"rollover_time"       validate:"required"`
	ReminderStepHours int    `mapstructure:"reminder_step_hours" validate:"gte=1,lte=12"`
	ReminderSampleCap int    `mapstructure:"reminder_sample_cap" validate:"gte=1,lte=20"`
	MaxHandlers       int64  `mapstructure:"max_handlers"        validate:"gte=1,lte=64"`

	LogLevel  string `mapstructure:"log_level"  validate:"oneof=trace debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=console json"`
}

// Load reads defaults, then config.yaml (optional), then environment
// variables, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TASKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default registered, otherwise AutomaticEnv cannot
	// bind it. Required fields default to empty and fail validation instead.
	v.SetDefault("telegram_token", "")
	v.SetDefault("bootstrap_admin_ids", []string{})
	v.SetDefault("bootstrap_admin_handles", []string{})
	v.SetDefault("database_path", "taskbot.db")
	v.SetDefault("timezone", "Local")
	v.SetDefault("rollover_time", "23:30")
	v.SetDefault("reminder_step_hours", 2)
	v.SetDefault("reminder_sample_cap", 5)
	v.SetDefault("max_handlers", 8)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; env vars and defaults cover everything.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Location resolves the configured timezone name.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
