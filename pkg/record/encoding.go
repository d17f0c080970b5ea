package record

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/lunixbochs/struc"

	"github.com/nezhahq/sysmon/model"
)

const metricVersion uint8 = 1

const (
	flagCPUFreq uint8 = 1 << iota
	flagTempValue
	flagTempAvailable
)

// snapshotMetric is the packed layout of the scalar part of a snapshot.
// Optional values are zero on the wire and flagged in Flags.
type snapshotMetric struct {
	Version uint8
	Flags   uint8

	CPUPercent     float64
	CPUCount       uint32
	CPUFreqMHz     float64
	TempCelsius    float64
	TempRecordedAt int64

	RAMTotalGB     float64
	RAMUsedGB      float64
	RAMAvailableGB float64
	RAMPercent     float64
	SwapTotalGB    float64
	SwapUsedGB     float64
	SwapPercent    float64

	BytesSent   uint64
	BytesRecv   uint64
	PacketsSent uint64
	PacketsRecv uint64

	UptimeSeconds uint64
	ProcessCount  uint64
	LoadAvg1      float64
	LoadAvg5      float64
	LoadAvg15     float64
}

func fromSnapshot(s *model.Snapshot) *snapshotMetric {
	m := &snapshotMetric{
		Version:        metricVersion,
		CPUPercent:     s.CPUPercent,
		CPUCount:       s.CPUCount,
		RAMTotalGB:     s.RAMTotalGB,
		RAMUsedGB:      s.RAMUsedGB,
		RAMAvailableGB: s.RAMAvailableGB,
		RAMPercent:     s.RAMPercent,
		SwapTotalGB:    s.SwapTotalGB,
		SwapUsedGB:     s.SwapUsedGB,
		SwapPercent:    s.SwapPercent,
		BytesSent:      s.Network.BytesSent,
		BytesRecv:      s.Network.BytesRecv,
		PacketsSent:    s.Network.PacketsSent,
		PacketsRecv:    s.Network.PacketsRecv,
		UptimeSeconds:  s.UptimeSeconds,
		ProcessCount:   s.ProcessCount,
		LoadAvg1:       s.LoadAvg1,
		LoadAvg5:       s.LoadAvg5,
		LoadAvg15:      s.LoadAvg15,
	}
	if !s.Temperature.RecordedAt.IsZero() {
		m.TempRecordedAt = s.Temperature.RecordedAt.UnixNano()
	}
	if s.CPUFreqMHz != nil {
		m.Flags |= flagCPUFreq
		m.CPUFreqMHz = *s.CPUFreqMHz
	}
	if s.Temperature.MaxCelsius != nil {
		m.Flags |= flagTempValue
		m.TempCelsius = *s.Temperature.MaxCelsius
	}
	if s.Temperature.Available {
		m.Flags |= flagTempAvailable
	}
	return m
}

func fromBytes(b []byte) (*snapshotMetric, error) {
	m := &snapshotMetric{}
	if err := struc.Unpack(bytes.NewReader(b), m); err != nil {
		return nil, err
	}
	if m.Version != metricVersion {
		return nil, fmt.Errorf("unknown metric version %d", m.Version)
	}
	return m, nil
}

func (m *snapshotMetric) Pack(w io.Writer) error {
	return struc.Pack(w, m)
}

// apply fills the scalar fields of s from the packed record.
func (m *snapshotMetric) apply(s *model.Snapshot) {
	s.CPUPercent = m.CPUPercent
	s.CPUCount = m.CPUCount
	if m.Flags&flagCPUFreq != 0 {
		freq := m.CPUFreqMHz
		s.CPUFreqMHz = &freq
	}
	s.Temperature = model.CPUTemperature{
		Available: m.Flags&flagTempAvailable != 0,
	}
	if m.TempRecordedAt != 0 {
		s.Temperature.RecordedAt = time.Unix(0, m.TempRecordedAt).UTC()
	}
	if m.Flags&flagTempValue != 0 {
		temp := m.TempCelsius
		s.Temperature.MaxCelsius = &temp
	}
	s.RAMTotalGB = m.RAMTotalGB
	s.RAMUsedGB = m.RAMUsedGB
	s.RAMAvailableGB = m.RAMAvailableGB
	s.RAMPercent = m.RAMPercent
	s.SwapTotalGB = m.SwapTotalGB
	s.SwapUsedGB = m.SwapUsedGB
	s.SwapPercent = m.SwapPercent
	s.Network = model.NetworkIO{
		BytesSent:   m.BytesSent,
		BytesRecv:   m.BytesRecv,
		PacketsSent: m.PacketsSent,
		PacketsRecv: m.PacketsRecv,
	}
	s.UptimeSeconds = m.UptimeSeconds
	s.ProcessCount = m.ProcessCount
	s.LoadAvg1 = m.LoadAvg1
	s.LoadAvg5 = m.LoadAvg5
	s.LoadAvg15 = m.LoadAvg15
}
