package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/nezhahq/sysmon/pkg/utils"
)

type Package struct {
	Name           string  `json:"name" binding:"required"`
	CurrentVersion string  `json:"current_version" binding:"required"`
	NewVersion     string  `json:"new_version" binding:"required"`
	Repository     *string `json:"repository,omitempty"`
}

type PackageList []Package

func (l *PackageList) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for package list", value)
	}
	return utils.Json.Unmarshal(b, l)
}

func (l PackageList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := utils.Json.Marshal([]Package(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// PackageUpdateSet is one package-manager check of a client. Only the most
// recent set per client is meaningful; older ones are superseded.
type PackageUpdateSet struct {
	ID              uint64      `gorm:"primaryKey" json:"-"`
	ClientID        string      `gorm:"size:128;not null;index:idx_packages_client_time,priority:1" json:"client_id"`
	Hostname        string      `gorm:"size:255;not null" json:"hostname"`
	CollectedAt     time.Time   `gorm:"not null;index:idx_packages_client_time,priority:2" json:"collected_at"`
	PackageManager  string      `gorm:"size:32;not null" json:"package_manager"`
	Packages        PackageList `gorm:"type:text" json:"packages"`
	SecurityUpdates uint64      `gorm:"not null" json:"security_updates"`
	TotalCount      int         `gorm:"not null" json:"total_count"`
}

func (PackageUpdateSet) TableName() string { return "package_update_sets" }

// PackageUpdateForm is the POST /packages body.
type PackageUpdateForm struct {
	ClientID        string    `json:"client_id" binding:"required"`
	Hostname        string    `json:"hostname" binding:"required"`
	Collected       *UTCTime  `json:"collected_at"`
	PackageManager  string    `json:"package_manager" binding:"required"`
	Packages        []Package `json:"packages" binding:"required,dive"`
	SecurityUpdates uint64    `json:"security_updates"`
}

func (f *PackageUpdateForm) Validate() error {
	if err := validateID("client_id", f.ClientID); err != nil {
		return err
	}
	if err := validateID("hostname", f.Hostname); err != nil {
		return err
	}
	if strings.TrimSpace(f.PackageManager) == "" {
		return NewValidationError("package_manager", "field required")
	}
	if f.Packages == nil {
		return NewValidationError("packages", "field required")
	}
	for _, p := range f.Packages {
		if strings.TrimSpace(p.Name) == "" {
			return NewValidationError("packages.name", "field required")
		}
	}
	return nil
}
