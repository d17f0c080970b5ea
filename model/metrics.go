package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/nezhahq/sysmon/pkg/utils"
)

// Metrics is the stored form of a Snapshot. Scalar metrics live in Data as a
// packed record (see pkg/record); partitions keep their JSON shape.
type Metrics struct {
	ID          uint64         `gorm:"primaryKey"`
	ClientID    string         `gorm:"size:128;not null;uniqueIndex:idx_metrics_client_time,priority:1"`
	Hostname    string         `gorm:"size:255;not null"`
	CollectedAt time.Time      `gorm:"not null;uniqueIndex:idx_metrics_client_time,priority:2;index"`
	Data        []byte         `gorm:"type:blob"`
	Partitions  DiskPartitions `gorm:"type:text"`
	CreatedAt   time.Time
}

func (Metrics) TableName() string { return "metrics" }

type DiskPartition struct {
	Device      string  `json:"device"`
	Mountpoint  string  `json:"mountpoint"`
	Filesystem  string  `json:"filesystem"`
	TotalGB     float64 `json:"total_gb"`
	UsedGB      float64 `json:"used_gb"`
	FreeGB      float64 `json:"free_gb"`
	PercentUsed float64 `json:"percent_used"`
}

type DiskPartitions []DiskPartition

func (p *DiskPartitions) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for disk partitions", value)
	}
	return utils.Json.Unmarshal(b, p)
}

func (p DiskPartitions) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := utils.Json.Marshal([]DiskPartition(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
