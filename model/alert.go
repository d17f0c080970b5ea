package model

import "time"

const (
	MetricCPUPercent     = "cpu_percent"
	MetricRAMPercent     = "ram_percent"
	MetricCPUTemperature = "cpu_temperature"
	MetricLoadAvg        = "load_avg"
	metricDiskPrefix     = "disk_"
)

func DiskMetricName(mountpoint string) string {
	return metricDiskPrefix + mountpoint
}

// Alert is a single threshold breach. Notified flips once, after delivery.
type Alert struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	ClientID       string    `gorm:"size:128;not null;index:idx_alerts_client_time,priority:1" json:"client_id"`
	Hostname       string    `gorm:"size:255;not null" json:"hostname"`
	MetricName     string    `gorm:"size:255;not null" json:"metric_name"`
	CurrentValue   float64   `json:"current_value"`
	ThresholdValue float64   `json:"threshold_value"`
	RecordedAt     time.Time `gorm:"not null;index:idx_alerts_client_time,priority:2;index" json:"recorded_at"`
	Message        string    `gorm:"type:text" json:"message"`
	Notified       bool      `gorm:"not null;index" json:"notified"`
}

func (Alert) TableName() string { return "alerts" }
