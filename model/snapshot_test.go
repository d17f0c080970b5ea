package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const validSnapshotJSON = `{
	"client_id": "host-a",
	"hostname": "host-a.lan",
	"collected_at": "2024-05-06T12:00:00",
	"cpu_percent": 12.5,
	"cpu_count": 4,
	"cpu_temperature": {"max_temp_celsius": 55.0, "available": true},
	"ram_total_gb": 16, "ram_used_gb": 4, "ram_available_gb": 12, "ram_percent": 25,
	"swap_total_gb": 2, "swap_used_gb": 0, "swap_percent": 0,
	"disk_partitions": [
		{"device": "/dev/sda1", "mountpoint": "/", "filesystem": "ext4",
		 "total_gb": 100, "used_gb": 40, "free_gb": 60, "percent_used": 40}
	],
	"network_io": {"bytes_sent": 1000, "bytes_recv": 2000, "packets_sent": 10, "packets_recv": 20},
	"uptime_seconds": 3600,
	"process_count": 120,
	"load_avg_1": 0.5, "load_avg_5": 0.4, "load_avg_15": 0.3
}`

func decodeForm(t *testing.T, raw string) *SnapshotForm {
	t.Helper()
	var f SnapshotForm
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &f
}

func TestSnapshotFormValid(t *testing.T) {
	f := decodeForm(t, validSnapshotJSON)
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	received := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := f.Snapshot(received)
	if !s.CollectedAt.Equal(time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("expected collected_at from payload, got %v", s.CollectedAt)
	}
	if temp, ok := s.TemperatureCelsius(); !ok || temp != 55 {
		t.Errorf("expected temperature 55, got %v %v", temp, ok)
	}
	if len(s.DiskPartitions) != 1 || s.DiskPartitions[0].Mountpoint != "/" {
		t.Errorf("unexpected partitions %+v", s.DiskPartitions)
	}
	if s.Network.BytesRecv != 2000 || s.CPUCount != 4 {
		t.Errorf("unexpected snapshot %+v", s)
	}
}

func TestSnapshotFormDefaults(t *testing.T) {
	f := decodeForm(t, validSnapshotJSON)
	f.CollectedAt = nil
	f.Temperature = &TemperatureForm{}

	received := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := f.Snapshot(received)
	if !s.CollectedAt.Equal(received) {
		t.Errorf("expected collected_at to default to receive time, got %v", s.CollectedAt)
	}
	if !s.Temperature.Available {
		t.Error("expected temperature available to default to true")
	}
	if _, ok := s.TemperatureCelsius(); ok {
		t.Error("expected no temperature value")
	}
}

func TestSnapshotFormInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SnapshotForm)
		field  string
	}{
		{"blank client", func(f *SnapshotForm) { f.ClientID = "  " }, "client_id"},
		{"missing hostname", func(f *SnapshotForm) { f.Hostname = "" }, "hostname"},
		{"missing cpu", func(f *SnapshotForm) { f.CPUPercent = nil }, "cpu_percent"},
		{"cpu above 100", func(f *SnapshotForm) { f.CPUPercent = ptr(101.0) }, "cpu_percent"},
		{"negative ram", func(f *SnapshotForm) { f.RAMUsedGB = ptr(-1.0) }, "ram_used_gb"},
		{"zero cpus", func(f *SnapshotForm) { f.CPUCount = ptr(uint32(0)) }, "cpu_count"},
		{"missing temperature", func(f *SnapshotForm) { f.Temperature = nil }, "cpu_temperature"},
		{"missing partitions", func(f *SnapshotForm) { f.DiskPartitions = nil }, "disk_partitions"},
		{"partition without percent", func(f *SnapshotForm) { f.DiskPartitions[0].PercentUsed = nil }, "disk_partitions.percent_used"},
		{"missing network", func(f *SnapshotForm) { f.Network = nil }, "network_io"},
		{"missing counter", func(f *SnapshotForm) { f.Network.PacketsRecv = nil }, "network_io"},
		{"missing uptime", func(f *SnapshotForm) { f.UptimeSeconds = nil }, "uptime_seconds"},
		{"missing load", func(f *SnapshotForm) { f.LoadAvg15 = nil }, "load_avg_15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := decodeForm(t, validSnapshotJSON)
			tt.mutate(f)
			err := f.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

func TestPackageUpdateFormValidate(t *testing.T) {
	f := PackageUpdateForm{
		ClientID:       "host-a",
		Hostname:       "host-a.lan",
		PackageManager: "apt",
		Packages:       []Package{{Name: "curl", CurrentVersion: "1", NewVersion: "2"}},
	}
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Packages = nil
	if err := f.Validate(); err == nil {
		t.Error("expected error for missing packages")
	}
	f.Packages = []Package{}
	f.PackageManager = " "
	if err := f.Validate(); err == nil {
		t.Error("expected error for blank package manager")
	}
}
