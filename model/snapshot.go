package model

import (
	"math"
	"strings"
	"time"
)

const maxIDLength = 128

type CPUTemperature struct {
	MaxCelsius *float64  `json:"max_temp_celsius"`
	RecordedAt time.Time `json:"recorded_at"`
	Available  bool      `json:"available"`
}

type NetworkIO struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// Snapshot is one timestamped sample of every metric of a client.
type Snapshot struct {
	ID             uint64         `json:"id,omitempty"`
	ClientID       string         `json:"client_id"`
	Hostname       string         `json:"hostname"`
	CollectedAt    time.Time      `json:"collected_at"`
	CPUPercent     float64        `json:"cpu_percent"`
	CPUCount       uint32         `json:"cpu_count"`
	CPUFreqMHz     *float64       `json:"cpu_freq_mhz"`
	Temperature    CPUTemperature `json:"cpu_temperature"`
	RAMTotalGB     float64        `json:"ram_total_gb"`
	RAMUsedGB      float64        `json:"ram_used_gb"`
	RAMAvailableGB float64        `json:"ram_available_gb"`
	RAMPercent     float64        `json:"ram_percent"`
	SwapTotalGB    float64        `json:"swap_total_gb"`
	SwapUsedGB     float64        `json:"swap_used_gb"`
	SwapPercent    float64        `json:"swap_percent"`
	DiskPartitions DiskPartitions `json:"disk_partitions"`
	Network        NetworkIO      `json:"network_io"`
	UptimeSeconds  uint64         `json:"uptime_seconds"`
	ProcessCount   uint64         `json:"process_count"`
	LoadAvg1       float64        `json:"load_avg_1"`
	LoadAvg5       float64        `json:"load_avg_5"`
	LoadAvg15      float64        `json:"load_avg_15"`
}

// TemperatureCelsius reports the max CPU temperature when the sensor is
// available and produced a value.
func (s *Snapshot) TemperatureCelsius() (float64, bool) {
	if !s.Temperature.Available || s.Temperature.MaxCelsius == nil {
		return 0, false
	}
	return *s.Temperature.MaxCelsius, true
}

type TemperatureForm struct {
	MaxCelsius *float64 `json:"max_temp_celsius"`
	RecordedAt *UTCTime `json:"recorded_at"`
	Available  *bool    `json:"available"`
}

type DiskPartitionForm struct {
	Device      string   `json:"device"`
	Mountpoint  string   `json:"mountpoint" binding:"required"`
	Filesystem  string   `json:"filesystem"`
	TotalGB     float64  `json:"total_gb"`
	UsedGB      float64  `json:"used_gb"`
	FreeGB      float64  `json:"free_gb"`
	PercentUsed *float64 `json:"percent_used" binding:"required"`
}

type NetworkForm struct {
	BytesSent   *uint64 `json:"bytes_sent" binding:"required"`
	BytesRecv   *uint64 `json:"bytes_recv" binding:"required"`
	PacketsSent *uint64 `json:"packets_sent" binding:"required"`
	PacketsRecv *uint64 `json:"packets_recv" binding:"required"`
}

// SnapshotForm is the POST /metrics body. Pointer fields distinguish a
// missing value from a legitimate zero.
type SnapshotForm struct {
	ClientID       string              `json:"client_id" binding:"required"`
	Hostname       string              `json:"hostname" binding:"required"`
	CollectedAt    *UTCTime            `json:"collected_at"`
	CPUPercent     *float64            `json:"cpu_percent" binding:"required"`
	CPUCount       *uint32             `json:"cpu_count" binding:"required"`
	CPUFreqMHz     *float64            `json:"cpu_freq_mhz"`
	Temperature    *TemperatureForm    `json:"cpu_temperature" binding:"required"`
	RAMTotalGB     *float64            `json:"ram_total_gb" binding:"required"`
	RAMUsedGB      *float64            `json:"ram_used_gb" binding:"required"`
	RAMAvailableGB *float64            `json:"ram_available_gb" binding:"required"`
	RAMPercent     *float64            `json:"ram_percent" binding:"required"`
	SwapTotalGB    *float64            `json:"swap_total_gb" binding:"required"`
	SwapUsedGB     *float64            `json:"swap_used_gb" binding:"required"`
	SwapPercent    *float64            `json:"swap_percent" binding:"required"`
	DiskPartitions []DiskPartitionForm `json:"disk_partitions" binding:"required,dive"`
	Network        *NetworkForm        `json:"network_io" binding:"required"`
	UptimeSeconds  *uint64             `json:"uptime_seconds" binding:"required"`
	ProcessCount   *uint64             `json:"process_count" binding:"required"`
	LoadAvg1       *float64            `json:"load_avg_1" binding:"required"`
	LoadAvg5       *float64            `json:"load_avg_5" binding:"required"`
	LoadAvg15      *float64            `json:"load_avg_15" binding:"required"`
}

// Validate checks presence and ranges. It is the acceptance contract of
// POST /metrics and runs even when the binding layer already did.
func (f *SnapshotForm) Validate() error {
	if err := validateID("client_id", f.ClientID); err != nil {
		return err
	}
	if err := validateID("hostname", f.Hostname); err != nil {
		return err
	}

	required := []struct {
		name string
		v    *float64
	}{
		{"cpu_percent", f.CPUPercent},
		{"ram_total_gb", f.RAMTotalGB},
		{"ram_used_gb", f.RAMUsedGB},
		{"ram_available_gb", f.RAMAvailableGB},
		{"ram_percent", f.RAMPercent},
		{"swap_total_gb", f.SwapTotalGB},
		{"swap_used_gb", f.SwapUsedGB},
		{"swap_percent", f.SwapPercent},
		{"load_avg_1", f.LoadAvg1},
		{"load_avg_5", f.LoadAvg5},
		{"load_avg_15", f.LoadAvg15},
	}
	for _, r := range required {
		if r.v == nil {
			return NewValidationError(r.name, "field required")
		}
		if err := validateNonNegative(r.name, *r.v); err != nil {
			return err
		}
	}
	if err := validatePercent("cpu_percent", *f.CPUPercent); err != nil {
		return err
	}
	if err := validatePercent("ram_percent", *f.RAMPercent); err != nil {
		return err
	}
	if err := validatePercent("swap_percent", *f.SwapPercent); err != nil {
		return err
	}

	if f.CPUCount == nil {
		return NewValidationError("cpu_count", "field required")
	}
	if *f.CPUCount < 1 {
		return NewValidationError("cpu_count", "must be at least 1")
	}
	if f.CPUFreqMHz != nil {
		if err := validateNonNegative("cpu_freq_mhz", *f.CPUFreqMHz); err != nil {
			return err
		}
	}
	if f.Temperature == nil {
		return NewValidationError("cpu_temperature", "field required")
	}
	if f.Temperature.MaxCelsius != nil && !isFinite(*f.Temperature.MaxCelsius) {
		return NewValidationError("cpu_temperature.max_temp_celsius", "must be a finite number")
	}
	if f.DiskPartitions == nil {
		return NewValidationError("disk_partitions", "field required")
	}
	for _, p := range f.DiskPartitions {
		if strings.TrimSpace(p.Mountpoint) == "" {
			return NewValidationError("disk_partitions.mountpoint", "field required")
		}
		if p.PercentUsed == nil {
			return NewValidationError("disk_partitions.percent_used", "field required")
		}
		if err := validatePercent("disk_partitions.percent_used", *p.PercentUsed); err != nil {
			return err
		}
	}
	if f.Network == nil || f.Network.BytesSent == nil || f.Network.BytesRecv == nil ||
		f.Network.PacketsSent == nil || f.Network.PacketsRecv == nil {
		return NewValidationError("network_io", "all counters are required")
	}
	if f.UptimeSeconds == nil {
		return NewValidationError("uptime_seconds", "field required")
	}
	if f.ProcessCount == nil {
		return NewValidationError("process_count", "field required")
	}
	return nil
}

// Snapshot converts a validated form. receivedAt fills collected_at when the
// agent omitted it.
func (f *SnapshotForm) Snapshot(receivedAt time.Time) *Snapshot {
	s := &Snapshot{
		ClientID:       strings.TrimSpace(f.ClientID),
		Hostname:       strings.TrimSpace(f.Hostname),
		CollectedAt:    receivedAt.UTC(),
		CPUPercent:     *f.CPUPercent,
		CPUCount:       *f.CPUCount,
		CPUFreqMHz:     f.CPUFreqMHz,
		RAMTotalGB:     *f.RAMTotalGB,
		RAMUsedGB:      *f.RAMUsedGB,
		RAMAvailableGB: *f.RAMAvailableGB,
		RAMPercent:     *f.RAMPercent,
		SwapTotalGB:    *f.SwapTotalGB,
		SwapUsedGB:     *f.SwapUsedGB,
		SwapPercent:    *f.SwapPercent,
		Network: NetworkIO{
			BytesSent:   *f.Network.BytesSent,
			BytesRecv:   *f.Network.BytesRecv,
			PacketsSent: *f.Network.PacketsSent,
			PacketsRecv: *f.Network.PacketsRecv,
		},
		UptimeSeconds: *f.UptimeSeconds,
		ProcessCount:  *f.ProcessCount,
		LoadAvg1:      *f.LoadAvg1,
		LoadAvg5:      *f.LoadAvg5,
		LoadAvg15:     *f.LoadAvg15,
	}
	if f.CollectedAt != nil && !f.CollectedAt.IsZero() {
		s.CollectedAt = f.CollectedAt.UTC()
	}

	s.Temperature = CPUTemperature{
		MaxCelsius: f.Temperature.MaxCelsius,
		RecordedAt: s.CollectedAt,
		Available:  true,
	}
	if f.Temperature.Available != nil {
		s.Temperature.Available = *f.Temperature.Available
	}
	if f.Temperature.RecordedAt != nil && !f.Temperature.RecordedAt.IsZero() {
		s.Temperature.RecordedAt = f.Temperature.RecordedAt.UTC()
	}

	s.DiskPartitions = make(DiskPartitions, 0, len(f.DiskPartitions))
	for _, p := range f.DiskPartitions {
		s.DiskPartitions = append(s.DiskPartitions, DiskPartition{
			Device:      p.Device,
			Mountpoint:  p.Mountpoint,
			Filesystem:  p.Filesystem,
			TotalGB:     p.TotalGB,
			UsedGB:      p.UsedGB,
			FreeGB:      p.FreeGB,
			PercentUsed: *p.PercentUsed,
		})
	}
	return s
}

func validateID(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return NewValidationError(field, "field required")
	}
	if len(v) > maxIDLength {
		return NewValidationError(field, "too long")
	}
	return nil
}

func validateNonNegative(field string, v float64) error {
	if !isFinite(v) {
		return NewValidationError(field, "must be a finite number")
	}
	if v < 0 {
		return NewValidationError(field, "must not be negative")
	}
	return nil
}

func validatePercent(field string, v float64) error {
	if err := validateNonNegative(field, v); err != nil {
		return err
	}
	if v > 100 {
		return NewValidationError(field, "must be between 0 and 100")
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
