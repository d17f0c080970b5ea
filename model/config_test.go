package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigReadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	c := DefaultConfig()
	if err := c.Read(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected defaults to be written: %v", err)
	}

	again := DefaultConfig()
	again.Alerts.CPUPercent = 1
	if err := again.Read(path); err != nil {
		t.Fatalf("unexpected error on re-read: %v", err)
	}
	if again.Alerts.CPUPercent != 90 {
		t.Errorf("expected cpu threshold 90 from file, got %v", again.Alerts.CPUPercent)
	}
}

func TestConfigFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
listen_port: 9000
alerts:
  cpu_percent: 75
notifications:
  weekly_packages_day: friday
database:
  retention_days: 7
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SYSMON_ALERTS__RAM_PERCENT", "66.5")
	t.Setenv("SYSMON_NTFY__ENABLED", "false")
	t.Setenv("SYSMON_LISTEN_PORT", "9100")

	c := DefaultConfig()
	if err := c.Read(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ListenPort != 9100 {
		t.Errorf("expected env to override file port, got %d", c.ListenPort)
	}
	if c.Alerts.CPUPercent != 75 {
		t.Errorf("expected cpu 75 from file, got %v", c.Alerts.CPUPercent)
	}
	if c.Alerts.RAMPercent != 66.5 {
		t.Errorf("expected ram 66.5 from env, got %v", c.Alerts.RAMPercent)
	}
	if c.Alerts.DiskPercent != 85 {
		t.Errorf("expected default disk threshold to survive, got %v", c.Alerts.DiskPercent)
	}
	if c.Ntfy.Enabled {
		t.Error("expected ntfy disabled from env")
	}
	if c.Notifications.WeeklyWeekday() != time.Friday {
		t.Errorf("expected friday, got %v", c.Notifications.WeeklyWeekday())
	}
	if c.Database.RetentionDays != 7 {
		t.Errorf("expected retention 7, got %d", c.Database.RetentionDays)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"daily hour", func(c *Config) { c.Notifications.DailyReportHourUTC = 24 }},
		{"daily minute", func(c *Config) { c.Notifications.DailyReportMinuteUTC = -1 }},
		{"weekday", func(c *Config) { c.Notifications.WeeklyPackagesDay = "someday" }},
		{"retention", func(c *Config) { c.Database.RetentionDays = 0 }},
		{"timeout", func(c *Config) { c.Ntfy.TimeoutSeconds = 0 }},
		{"topic", func(c *Config) { c.Ntfy.Topic = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}
