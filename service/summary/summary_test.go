package summary

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nezhahq/sysmon/model"
)

var (
	testDay    = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	testClient = &model.Client{ClientID: "c1", Hostname: "c1.lan"}
)

func ptr[T any](v T) *T { return &v }

func snapAt(hour int, cpu float64) *model.Snapshot {
	return &model.Snapshot{
		ClientID:    "c1",
		Hostname:    "c1.lan",
		CollectedAt: testDay.Add(time.Duration(hour) * time.Hour),
		CPUPercent:  cpu,
		CPUCount:    4,
		RAMPercent:  50,
		Temperature: model.CPUTemperature{Available: true},
	}
}

func TestDayWindow(t *testing.T) {
	from, to := DayWindow(time.Date(2024, 5, 6, 23, 59, 59, 0, time.FixedZone("X", -3*3600)))
	if !from.Equal(time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected window [%v, %v)", from, to)
	}
	if _, err := ParseDay("2024-13-01"); err == nil {
		t.Error("expected invalid date to fail")
	}
}

func TestISOWeekKey(t *testing.T) {
	tests := map[time.Time]string{
		time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC):  "2024-W19",
		time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC):  "2020-W53",
		time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC): "2025-W01",
	}
	for in, want := range tests {
		if got := ISOWeekKey(in); got != want {
			t.Errorf("ISOWeekKey(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestDailyCPU(t *testing.T) {
	snaps := []*model.Snapshot{snapAt(16, 30), snapAt(0, 10), snapAt(8, 50)}
	s, err := Daily(testClient, snaps, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.CPUAvg != 30.0 || s.CPUMax != 50.0 {
		t.Errorf("expected avg 30 max 50, got %v %v", s.CPUAvg, s.CPUMax)
	}
	if !s.CPUMaxTime.Equal(testDay.Add(8 * time.Hour)) {
		t.Errorf("expected max at 08:00, got %v", s.CPUMaxTime)
	}
	if s.Date != "2024-05-06" || s.Hostname != "c1.lan" {
		t.Errorf("unexpected identity %+v", s)
	}
}

func TestDailyFirstMaxWins(t *testing.T) {
	snaps := []*model.Snapshot{snapAt(1, 70), snapAt(2, 70), snapAt(3, 20)}
	s, err := Daily(testClient, snaps, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if !s.CPUMaxTime.Equal(testDay.Add(time.Hour)) || !s.RAMMaxTime.Equal(testDay.Add(time.Hour)) {
		t.Errorf("expected first tied snapshot, got cpu %v ram %v", s.CPUMaxTime, s.RAMMaxTime)
	}
}

func TestDailyNetworkDeltaClamped(t *testing.T) {
	a, b := snapAt(0, 1), snapAt(12, 1)
	a.Network = model.NetworkIO{BytesSent: 1000, BytesRecv: 0}
	b.Network = model.NetworkIO{BytesSent: 500, BytesRecv: 3 << 30}
	s, err := Daily(testClient, []*model.Snapshot{a, b}, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.NetworkSentGB != 0 {
		t.Errorf("expected reset counter to clamp to 0, got %v", s.NetworkSentGB)
	}
	if s.NetworkRecvGB != 3 {
		t.Errorf("expected 3 GB received, got %v", s.NetworkRecvGB)
	}
}

func TestDailyTemperature(t *testing.T) {
	snaps := []*model.Snapshot{snapAt(0, 1), snapAt(1, 1), snapAt(2, 1), snapAt(3, 1)}
	snaps[1].Temperature.MaxCelsius = ptr(60.0)
	snaps[2].Temperature = model.CPUTemperature{MaxCelsius: ptr(99.0), Available: false}
	snaps[3].Temperature.MaxCelsius = ptr(70.0)

	s, err := Daily(testClient, snaps, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.TempAvg == nil || *s.TempAvg != 65 || *s.TempMax != 70 {
		t.Fatalf("expected avg 65 max 70, got %v %v", s.TempAvg, s.TempMax)
	}
	if !s.TempMaxTime.Equal(testDay.Add(3 * time.Hour)) {
		t.Errorf("unexpected temp max time %v", s.TempMaxTime)
	}

	s, err = Daily(testClient, []*model.Snapshot{snapAt(0, 1)}, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.TempAvg != nil || s.TempMax != nil || s.TempMaxTime != nil {
		t.Errorf("expected absent temperature, got %+v", s)
	}
}

func TestDailyDiskGlobalMax(t *testing.T) {
	a, b := snapAt(0, 1), snapAt(1, 1)
	a.DiskPartitions = model.DiskPartitions{{Mountpoint: "/", PercentUsed: 60}, {Mountpoint: "/data", PercentUsed: 81.26}}
	b.DiskPartitions = model.DiskPartitions{{Mountpoint: "/", PercentUsed: 70}, {Mountpoint: "/data", PercentUsed: 20}}
	s, err := Daily(testClient, []*model.Snapshot{a, b}, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.DiskMaxPercent != 81.3 || s.DiskMaxPartition != "/data" {
		t.Errorf("expected /data at 81.3, got %s at %v", s.DiskMaxPartition, s.DiskMaxPercent)
	}

	s, err = Daily(testClient, []*model.Snapshot{snapAt(0, 1)}, 0, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.DiskMaxPercent != 0 || s.DiskMaxPartition != "N/A" {
		t.Errorf("expected no partition, got %s at %v", s.DiskMaxPartition, s.DiskMaxPercent)
	}
}

func TestDailyLoadUptimeAlerts(t *testing.T) {
	a, b := snapAt(0, 1), snapAt(6, 1)
	a.LoadAvg1, b.LoadAvg1 = 3.456, 1.2
	a.UptimeSeconds, b.UptimeSeconds = 3600, 9000
	s, err := Daily(testClient, []*model.Snapshot{b, a}, 4, testDay)
	if err != nil {
		t.Fatal(err)
	}
	if s.LoadAvgMax != 3.46 {
		t.Errorf("expected load max 3.46, got %v", s.LoadAvgMax)
	}
	if s.UptimeHours != 2.5 {
		t.Errorf("expected uptime of the last snapshot, got %v", s.UptimeHours)
	}
	if s.AlertsCount != 4 {
		t.Errorf("expected 4 alerts, got %d", s.AlertsCount)
	}
}

func TestDailyEmpty(t *testing.T) {
	if _, err := Daily(testClient, nil, 0, testDay); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		total int
		want  model.Severity
	}{
		{0, model.SeverityLow},
		{10, model.SeverityLow},
		{11, model.SeverityMedium},
		{50, model.SeverityMedium},
		{51, model.SeverityHigh},
	}
	for _, tt := range tests {
		if got := Severity(tt.total); got != tt.want {
			t.Errorf("Severity(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func packageSet(id string, total int, security uint64) *model.PackageUpdateSet {
	pkgs := make(model.PackageList, 0, total)
	for i := range total {
		pkgs = append(pkgs, model.Package{Name: fmt.Sprintf("pkg%d", i), CurrentVersion: "1.0", NewVersion: "1.1"})
	}
	return &model.PackageUpdateSet{
		ClientID:        id,
		Hostname:        id + ".lan",
		PackageManager:  "apt",
		Packages:        pkgs,
		SecurityUpdates: security,
		TotalCount:      total,
	}
}

func TestWeeklyPackages(t *testing.T) {
	r := WeeklyPackages("2024-W19", []*model.PackageUpdateSet{
		packageSet("a", 3, 0),
		packageSet("b", 60, 2),
		packageSet("c", 12, 1),
		packageSet("d", 3, 0),
	})
	order := []string{"b", "c", "a", "d"}
	for i, id := range order {
		if r.Clients[i].ClientID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, r.Clients[i].ClientID)
		}
	}
	if r.TotalPackages != 78 || r.TotalSecurity != 3 || r.Priority != "default" {
		t.Errorf("unexpected totals %+v", r)
	}
	if r.Clients[0].Severity != model.SeverityHigh || r.Clients[1].Severity != model.SeverityMedium {
		t.Errorf("unexpected severities %s %s", r.Clients[0].Severity, r.Clients[1].Severity)
	}

	if p := WeeklyPackages("w", []*model.PackageUpdateSet{packageSet("a", 1, 11)}).Priority; p != "high" {
		t.Errorf("expected high priority for many security updates, got %s", p)
	}
	if p := WeeklyPackages("w", []*model.PackageUpdateSet{packageSet("a", 101, 0)}).Priority; p != "high" {
		t.Errorf("expected high priority for many packages, got %s", p)
	}
}
