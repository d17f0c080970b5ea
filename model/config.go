package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix marks configuration variables. A double underscore separates
// nested keys: SYSMON_ALERTS__CPU_PERCENT sets alerts.cpu_percent.
const EnvPrefix = "SYSMON_"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

type LogConfig struct {
	Level string `koanf:"level" yaml:"level" json:"level"`
	JSON  bool   `koanf:"json" yaml:"json" json:"json"`
}

type DatabaseConfig struct {
	Path          string `koanf:"path" yaml:"path" json:"path"`
	RetentionDays int    `koanf:"retention_days" yaml:"retention_days" json:"retention_days"`
}

type NtfyConfig struct {
	Enabled        bool   `koanf:"enabled" yaml:"enabled" json:"enabled"`
	ServerURL      string `koanf:"server_url" yaml:"server_url" json:"server_url"`
	Topic          string `koanf:"topic" yaml:"topic" json:"topic"`
	Priority       string `koanf:"priority" yaml:"priority" json:"priority"`
	TimeoutSeconds int    `koanf:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
}

func (c NtfyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type NotificationConfig struct {
	DailyReportHourUTC         int    `koanf:"daily_report_hour_utc" yaml:"daily_report_hour_utc" json:"daily_report_hour_utc"`
	DailyReportMinuteUTC       int    `koanf:"daily_report_minute_utc" yaml:"daily_report_minute_utc" json:"daily_report_minute_utc"`
	SendImmediateAlerts        bool   `koanf:"send_immediate_alerts" yaml:"send_immediate_alerts" json:"send_immediate_alerts"`
	WeeklyPackagesEnabled      bool   `koanf:"weekly_packages_enabled" yaml:"weekly_packages_enabled" json:"weekly_packages_enabled"`
	WeeklyPackagesDay          string `koanf:"weekly_packages_day" yaml:"weekly_packages_day" json:"weekly_packages_day"`
	WeeklyPackagesHourUTC      int    `koanf:"weekly_packages_hour_utc" yaml:"weekly_packages_hour_utc" json:"weekly_packages_hour_utc"`
	WeeklyPackagesMinuteUTC    int    `koanf:"weekly_packages_minute_utc" yaml:"weekly_packages_minute_utc" json:"weekly_packages_minute_utc"`
	AlertDigestIntervalMinutes int    `koanf:"alert_digest_interval_minutes" yaml:"alert_digest_interval_minutes" json:"alert_digest_interval_minutes"`
}

// WeeklyWeekday resolves WeeklyPackagesDay; Validate guarantees it is known.
func (c NotificationConfig) WeeklyWeekday() time.Weekday {
	if d, ok := weekdays[strings.ToLower(strings.TrimSpace(c.WeeklyPackagesDay))]; ok {
		return d
	}
	return time.Monday
}

type Config struct {
	Debug          bool   `koanf:"debug" yaml:"debug" json:"debug,omitempty"`
	Language       string `koanf:"language" yaml:"language" json:"language"`
	ListenHost     string `koanf:"listen_host" yaml:"listen_host" json:"listen_host,omitempty"`
	ListenPort     uint16 `koanf:"listen_port" yaml:"listen_port" json:"listen_port,omitempty"`
	MaxConnections int    `koanf:"max_connections" yaml:"max_connections" json:"max_connections"`

	Log                    LogConfig          `koanf:"log" yaml:"log" json:"log"`
	Database               DatabaseConfig     `koanf:"database" yaml:"database" json:"database"`
	Ntfy                   NtfyConfig         `koanf:"ntfy" yaml:"ntfy" json:"ntfy"`
	Alerts                 Thresholds         `koanf:"alerts" yaml:"alerts" json:"alerts"`
	Notifications          NotificationConfig `koanf:"notifications" yaml:"notifications" json:"notifications"`
	SummaryCacheTTLSeconds int                `koanf:"summary_cache_ttl_seconds" yaml:"summary_cache_ttl_seconds" json:"summary_cache_ttl_seconds"`

	k        *koanf.Koanf
	filePath string
}

func DefaultConfig() *Config {
	return &Config{
		Language:       "en_US",
		ListenHost:     "0.0.0.0",
		ListenPort:     8080,
		MaxConnections: 1024,
		Log:            LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Path:          "data/sysmon.db",
			RetentionDays: 30,
		},
		Ntfy: NtfyConfig{
			Enabled:        true,
			ServerURL:      "https://ntfy.sh",
			Topic:          "system-monitor",
			Priority:       "default",
			TimeoutSeconds: 10,
		},
		Alerts: Thresholds{
			CPUPercent:         90,
			RAMPercent:         90,
			DiskPercent:        85,
			TemperatureCelsius: 80,
			LoadAvgMultiplier:  2,
		},
		Notifications: NotificationConfig{
			DailyReportHourUTC:         7,
			SendImmediateAlerts:        true,
			WeeklyPackagesEnabled:      true,
			WeeklyPackagesDay:          "monday",
			WeeklyPackagesHourUTC:      8,
			AlertDigestIntervalMinutes: 30,
		},
		SummaryCacheTTLSeconds: 60,
	}
}

// Read loads path over the defaults, then SYSMON_ environment variables over
// both. A missing file is created with the resulting values.
func (c *Config) Read(path string) error {
	c.k = koanf.New(".")
	c.filePath = path

	_, statErr := os.Stat(path)
	if statErr == nil {
		if err := c.k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}

	if err := c.k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if err := c.k.Unmarshal("", c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}

	if statErr != nil {
		return c.Save()
	}
	return nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o750); err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0o600)
}

func (c *Config) Validate() error {
	n := c.Notifications
	switch {
	case n.DailyReportHourUTC < 0 || n.DailyReportHourUTC > 23:
		return errors.New("notifications.daily_report_hour_utc must be within 0-23")
	case n.DailyReportMinuteUTC < 0 || n.DailyReportMinuteUTC > 59:
		return errors.New("notifications.daily_report_minute_utc must be within 0-59")
	case n.WeeklyPackagesHourUTC < 0 || n.WeeklyPackagesHourUTC > 23:
		return errors.New("notifications.weekly_packages_hour_utc must be within 0-23")
	case n.WeeklyPackagesMinuteUTC < 0 || n.WeeklyPackagesMinuteUTC > 59:
		return errors.New("notifications.weekly_packages_minute_utc must be within 0-59")
	case n.AlertDigestIntervalMinutes < 0:
		return errors.New("notifications.alert_digest_interval_minutes must not be negative")
	}
	if _, ok := weekdays[strings.ToLower(strings.TrimSpace(n.WeeklyPackagesDay))]; !ok {
		return fmt.Errorf("notifications.weekly_packages_day: unknown weekday %q", n.WeeklyPackagesDay)
	}
	if c.Database.RetentionDays <= 0 {
		return errors.New("database.retention_days must be positive")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database.path is required")
	}
	if c.Ntfy.Enabled && (c.Ntfy.ServerURL == "" || c.Ntfy.Topic == "") {
		return errors.New("ntfy.server_url and ntfy.topic are required when ntfy is enabled")
	}
	if c.Ntfy.TimeoutSeconds <= 0 {
		return errors.New("ntfy.timeout_seconds must be positive")
	}
	if c.MaxConnections < 0 || c.SummaryCacheTTLSeconds < 0 {
		return errors.New("max_connections and summary_cache_ttl_seconds must not be negative")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ListenHost, c.ListenPort)
}
