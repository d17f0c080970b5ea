package summary

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/pkg/utils"
)

const (
	DayLayout = "2006-01-02"

	noPartition = "N/A"
	topPackages = 5
)

// DayWindow returns the UTC calendar day containing t as [from, to).
func DayWindow(t time.Time) (from, to time.Time) {
	t = t.UTC()
	from = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD date as a UTC midnight.
func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, model.NewValidationError("date", "expected YYYY-MM-DD")
	}
	return day, nil
}

// ISOWeekKey formats the ISO 8601 week of t, e.g. 2024-W19.
func ISOWeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// Daily aggregates the snapshots of one client over day. It returns
// model.ErrNotFound when there are none.
func Daily(client *model.Client, snapshots []*model.Snapshot, alertsCount int64, day time.Time) (*model.DailySummary, error) {
	if len(snapshots) == 0 {
		return nil, model.ErrNotFound
	}
	snapshots = slices.Clone(snapshots)
	slices.SortStableFunc(snapshots, func(a, b *model.Snapshot) int {
		return a.CollectedAt.Compare(b.CollectedAt)
	})

	first, last := snapshots[0], snapshots[len(snapshots)-1]
	s := &model.DailySummary{
		ClientID:         client.ClientID,
		Hostname:         client.Hostname,
		Date:             DayKey(day),
		DiskMaxPartition: noPartition,
		AlertsCount:      alertsCount,
	}

	var cpuSum, ramSum, tempSum float64
	var tempCount int
	var tempMax float64
	cpuMax := first
	ramMax := first
	loadMax := first.LoadAvg1
	for _, snap := range snapshots {
		cpuSum += snap.CPUPercent
		ramSum += snap.RAMPercent
		if snap.CPUPercent > cpuMax.CPUPercent {
			cpuMax = snap
		}
		if snap.RAMPercent > ramMax.RAMPercent {
			ramMax = snap
		}
		if temp, ok := snap.TemperatureCelsius(); ok {
			if tempCount == 0 || temp > tempMax {
				tempMax = temp
				s.TempMaxTime = timePtr(snap.CollectedAt)
			}
			tempSum += temp
			tempCount++
		}
		for _, p := range snap.DiskPartitions {
			if p.PercentUsed > s.DiskMaxPercent {
				s.DiskMaxPercent = p.PercentUsed
				s.DiskMaxPartition = p.Mountpoint
			}
		}
		loadMax = max(loadMax, snap.LoadAvg1)
	}

	n := float64(len(snapshots))
	s.CPUAvg = utils.Round(cpuSum/n, 1)
	s.CPUMax = utils.Round(cpuMax.CPUPercent, 1)
	s.CPUMaxTime = timePtr(cpuMax.CollectedAt)
	s.RAMAvgPercent = utils.Round(ramSum/n, 1)
	s.RAMMaxPercent = utils.Round(ramMax.RAMPercent, 1)
	s.RAMMaxTime = timePtr(ramMax.CollectedAt)
	if tempCount > 0 {
		avg := utils.Round(tempSum/float64(tempCount), 1)
		peak := utils.Round(tempMax, 1)
		s.TempAvg, s.TempMax = &avg, &peak
	}
	s.DiskMaxPercent = utils.Round(s.DiskMaxPercent, 1)
	s.NetworkSentGB = utils.Round(utils.BytesToGB(utils.CounterDelta(first.Network.BytesSent, last.Network.BytesSent)), 2)
	s.NetworkRecvGB = utils.Round(utils.BytesToGB(utils.CounterDelta(first.Network.BytesRecv, last.Network.BytesRecv)), 2)
	s.LoadAvgMax = utils.Round(loadMax, 2)
	s.UptimeHours = utils.Round(float64(last.UptimeSeconds)/3600, 1)
	return s, nil
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}

func Severity(totalPackages int) model.Severity {
	switch {
	case totalPackages > 50:
		return model.SeverityHigh
	case totalPackages > 10:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// WeeklyPackages rolls up the latest package set of every client, largest
// backlog first.
func WeeklyPackages(weekID string, sets []*model.PackageUpdateSet) *model.WeeklyPackageReport {
	r := &model.WeeklyPackageReport{
		WeekID:   weekID,
		Clients:  make([]model.ClientPackageSummary, 0, len(sets)),
		Priority: "default",
	}
	for _, set := range sets {
		r.TotalPackages += set.TotalCount
		r.TotalSecurity += set.SecurityUpdates
		r.Clients = append(r.Clients, model.ClientPackageSummary{
			ClientID:        set.ClientID,
			Hostname:        set.Hostname,
			PackageManager:  set.PackageManager,
			TotalCount:      set.TotalCount,
			SecurityUpdates: set.SecurityUpdates,
			Severity:        Severity(set.TotalCount),
			Packages:        set.Packages,
		})
	}
	slices.SortStableFunc(r.Clients, func(a, b model.ClientPackageSummary) int {
		return cmp.Compare(b.TotalCount, a.TotalCount)
	})
	if r.TotalSecurity > 10 || r.TotalPackages > 100 {
		r.Priority = "high"
	}
	return r
}
