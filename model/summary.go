package model

import "time"

// DailySummary is derived on demand from one client's snapshots of a UTC day.
type DailySummary struct {
	ClientID string `json:"client_id"`
	Hostname string `json:"hostname"`
	Date     string `json:"date"`

	CPUAvg     float64    `json:"cpu_avg"`
	CPUMax     float64    `json:"cpu_max"`
	CPUMaxTime *time.Time `json:"cpu_max_time"`

	RAMAvgPercent float64    `json:"ram_avg_percent"`
	RAMMaxPercent float64    `json:"ram_max_percent"`
	RAMMaxTime    *time.Time `json:"ram_max_time"`

	TempAvg     *float64   `json:"temp_avg"`
	TempMax     *float64   `json:"temp_max"`
	TempMaxTime *time.Time `json:"temp_max_time"`

	DiskMaxPercent   float64 `json:"disk_max_percent"`
	DiskMaxPartition string  `json:"disk_max_partition"`

	NetworkSentGB float64 `json:"network_sent_gb"`
	NetworkRecvGB float64 `json:"network_recv_gb"`

	LoadAvgMax  float64 `json:"load_avg_max"`
	UptimeHours float64 `json:"uptime_hours"`
	AlertsCount int64   `json:"alerts_count"`
}
