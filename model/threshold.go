package model

import "fmt"

// Localizer translates a message id. A nil Localizer leaves ids untouched.
type Localizer interface {
	T(msgid string) string
}

func Tr(l Localizer, msgid string, args ...any) string {
	format := msgid
	if l != nil {
		format = l.T(msgid)
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

type Thresholds struct {
	CPUPercent         float64 `koanf:"cpu_percent" yaml:"cpu_percent" json:"cpu_percent"`
	RAMPercent         float64 `koanf:"ram_percent" yaml:"ram_percent" json:"ram_percent"`
	DiskPercent        float64 `koanf:"disk_percent" yaml:"disk_percent" json:"disk_percent"`
	TemperatureCelsius float64 `koanf:"temperature_celsius" yaml:"temperature_celsius" json:"temperature_celsius"`
	LoadAvgMultiplier  float64 `koanf:"load_avg_multiplier" yaml:"load_avg_multiplier" json:"load_avg_multiplier"`
}

// Evaluate returns the alerts s raises, in the order cpu, ram, each disk
// partition, temperature, load. It has no side effects; recorded_at is the
// snapshot's own timestamp so the result depends on its inputs only.
func (t Thresholds) Evaluate(s *Snapshot, l Localizer) []Alert {
	var alerts []Alert
	add := func(metric string, current, threshold float64, message string) {
		alerts = append(alerts, Alert{
			ClientID:       s.ClientID,
			Hostname:       s.Hostname,
			MetricName:     metric,
			CurrentValue:   current,
			ThresholdValue: threshold,
			RecordedAt:     s.CollectedAt,
			Message:        message,
		})
	}

	if s.CPUPercent > t.CPUPercent {
		add(MetricCPUPercent, s.CPUPercent, t.CPUPercent,
			"🔥 "+Tr(l, "High CPU usage: %.1f%% (threshold: %.1f%%)", s.CPUPercent, t.CPUPercent))
	}
	if s.RAMPercent > t.RAMPercent {
		add(MetricRAMPercent, s.RAMPercent, t.RAMPercent,
			"💾 "+Tr(l, "High RAM usage: %.1f%% (threshold: %.1f%%)", s.RAMPercent, t.RAMPercent))
	}
	for _, p := range s.DiskPartitions {
		if p.PercentUsed > t.DiskPercent {
			add(DiskMetricName(p.Mountpoint), p.PercentUsed, t.DiskPercent,
				"💿 "+Tr(l, "Disk %s almost full: %.1f%% (threshold: %.1f%%)", p.Mountpoint, p.PercentUsed, t.DiskPercent))
		}
	}
	if temp, ok := s.TemperatureCelsius(); ok && temp > t.TemperatureCelsius {
		add(MetricCPUTemperature, temp, t.TemperatureCelsius,
			"🌡️ "+Tr(l, "High CPU temperature: %.1f°C (threshold: %.1f°C)", temp, t.TemperatureCelsius))
	}
	loadThreshold := t.LoadAvgMultiplier * float64(s.CPUCount)
	if s.LoadAvg1 > loadThreshold {
		add(MetricLoadAvg, s.LoadAvg1, loadThreshold,
			"⚡ "+Tr(l, "High load average: %.2f (threshold: %.2f)", s.LoadAvg1, loadThreshold))
	}
	return alerts
}
