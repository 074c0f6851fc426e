package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.AbsenceWarnLimit != 3 {
		t.Errorf("AbsenceWarnLimit = %d, want 3", cfg.AbsenceWarnLimit)
	}
	if cfg.DefaultMonthlyFee.Cents != 20000 {
		t.Errorf("DefaultMonthlyFee = %d cents, want 20000", cfg.DefaultMonthlyFee.Cents)
	}
	if len(cfg.DefaultSessionDays) != 2 ||
		cfg.DefaultSessionDays[0] != time.Tuesday ||
		cfg.DefaultSessionDays[1] != time.Friday {
		t.Errorf("DefaultSessionDays = %v, want [Tuesday Friday]", cfg.DefaultSessionDays)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_MONTHLY_FEE", "150,50")
	t.Setenv("DEFAULT_SESSION_DAYS", "1,3,5")
	t.Setenv("ABSENCE_WARN_LIMIT", "5")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DefaultMonthlyFee.Cents != 15050 {
		t.Errorf("DefaultMonthlyFee = %d cents, want 15050", cfg.DefaultMonthlyFee.Cents)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(cfg.DefaultSessionDays) != len(want) {
		t.Fatalf("DefaultSessionDays = %v, want %v", cfg.DefaultSessionDays, want)
	}
	for i := range want {
		if cfg.DefaultSessionDays[i] != want[i] {
			t.Errorf("day[%d] = %v, want %v", i, cfg.DefaultSessionDays[i], want[i])
		}
	}
	if cfg.AbsenceWarnLimit != 5 {
		t.Errorf("AbsenceWarnLimit = %d, want 5", cfg.AbsenceWarnLimit)
	}
}

func TestMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("DEFAULT_MONTHLY_FEE", "abc")
	t.Setenv("DEFAULT_SESSION_DAYS", "1,9")

	cfg := Load()
	if cfg.DefaultMonthlyFee.Cents != 20000 {
		t.Errorf("DefaultMonthlyFee = %d cents, want fallback 20000", cfg.DefaultMonthlyFee.Cents)
	}
	if len(cfg.DefaultSessionDays) != 2 || cfg.DefaultSessionDays[0] != time.Tuesday {
		t.Errorf("DefaultSessionDays = %v, want fallback [Tuesday Friday]", cfg.DefaultSessionDays)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "between 1 and 65535"},
		{"empty db path", func(c *Config) { c.SQLiteDBPath = "" }, "database path"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://localhost" }, "AMQP URL scheme"},
		{"empty exchange", func(c *Config) { c.AMQPExchange = "" }, "exchange name"},
		{"negative warn limit", func(c *Config) { c.AbsenceWarnLimit = -1 }, "absence warn limit"},
		{"no session days", func(c *Config) { c.DefaultSessionDays = nil }, "session days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}
