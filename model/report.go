package model

import "time"

type ReportKind string

const (
	ReportDaily       ReportKind = "daily"
	ReportWeekly      ReportKind = "weekly"
	ReportAlertDigest ReportKind = "alert_digest"
)

// ReportMarker records a sent scheduled report. Its existence is what keeps a
// period from being reported twice.
type ReportMarker struct {
	ID             uint64     `gorm:"primaryKey" json:"id"`
	Kind           ReportKind `gorm:"size:16;not null;index" json:"kind"`
	PeriodKey      string     `gorm:"size:32;not null;uniqueIndex" json:"period_key"`
	SentAt         time.Time  `gorm:"not null" json:"sent_at"`
	RecipientCount int        `json:"recipient_count"`
	Content        string     `gorm:"type:text" json:"content"`
}

func (ReportMarker) TableName() string { return "report_markers" }

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type ClientPackageSummary struct {
	ClientID        string    `json:"client_id"`
	Hostname        string    `json:"hostname"`
	PackageManager  string    `json:"package_manager"`
	TotalCount      int       `json:"total_count"`
	SecurityUpdates uint64    `json:"security_updates"`
	Severity        Severity  `json:"severity"`
	Packages        []Package `json:"packages"`
}

type WeeklyPackageReport struct {
	WeekID        string                 `json:"week_id"`
	Clients       []ClientPackageSummary `json:"clients"`
	TotalPackages int                    `json:"total_packages"`
	TotalSecurity uint64                 `json:"total_security"`
	Priority      string                 `json:"priority"`
}

type PruneResult struct {
	Snapshots   int64 `json:"snapshots"`
	Alerts      int64 `json:"alerts"`
	PackageSets int64 `json:"package_sets"`
}
