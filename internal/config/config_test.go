package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TASKBOT_TELEGRAM_TOKEN", "123:abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.TelegramToken != "123:abc" {
		t.Errorf("token not read from environment: %q", cfg.TelegramToken)
	}
	if cfg.RolloverTime != "23:30" {
		t.Errorf("rollover default: %q", cfg.RolloverTime)
	}
	if cfg.ReminderStepHours != 2 {
		t.Errorf("reminder step default: %d", cfg.ReminderStepHours)
	}
	if cfg.ReminderSampleCap != 5 {
		t.Errorf("sample cap default: %d", cfg.ReminderSampleCap)
	}
	if cfg.MaxHandlers != 8 {
		t.Errorf("max handlers default: %d", cfg.MaxHandlers)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("logging defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}

	if _, err := cfg.Location(); err != nil {
		t.Errorf("default timezone does not resolve: %v", err)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TASKBOT_TELEGRAM_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error without a token")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timezone", "TASKBOT_TIMEZONE", "Mars/Olympus"},
		{"step too large", "TASKBOT_REMINDER_STEP_HOURS", "13"},
		{"step zero", "TASKBOT_REMINDER_STEP_HOURS", "0"},
		{"unknown log level", "TASKBOT_LOG_LEVEL", "loud"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TASKBOT_TELEGRAM_TOKEN", "123:abc")
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), "validate config") {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}
