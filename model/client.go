package model

import "time"

// Client is a monitored host. Rows are upserted on ingest and never deleted.
type Client struct {
	ClientID     string    `gorm:"primaryKey;size:128" json:"client_id"`
	Hostname     string    `gorm:"size:255;not null" json:"hostname"`
	FirstSeen    time.Time `gorm:"not null" json:"first_seen"`
	LastSeen     time.Time `gorm:"not null;index" json:"last_seen"`
	MetricsCount uint64    `gorm:"not null;default:0" json:"metrics_count"`
}

func (Client) TableName() string { return "clients" }
