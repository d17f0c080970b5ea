package record

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nezhahq/sysmon/model"
)

// Recorder persists snapshots as model.Metrics rows.
type Recorder struct {
	db *gorm.DB
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db}
}

// WithTx returns a Recorder bound to an open transaction.
func (r *Recorder) WithTx(tx *gorm.DB) *Recorder {
	return &Recorder{tx}
}

// Insert stores s. A row with the same (client_id, collected_at) is left
// untouched and reported with inserted == false.
func (r *Recorder) Insert(ctx context.Context, s *model.Snapshot) (id uint64, inserted bool, err error) {
	var b bytes.Buffer
	if err := fromSnapshot(s).Pack(&b); err != nil {
		return 0, false, fmt.Errorf("pack snapshot: %w", err)
	}

	metric := model.Metrics{
		ClientID:    s.ClientID,
		Hostname:    s.Hostname,
		CollectedAt: s.CollectedAt.UTC(),
		Data:        b.Bytes(),
		Partitions:  s.DiskPartitions,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&metric)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}
	return metric.ID, true, nil
}

// Find returns the snapshots of clientID with collected_at in [from, to),
// oldest first.
func (r *Recorder) Find(ctx context.Context, clientID string, from, to time.Time) ([]*model.Snapshot, error) {
	var rows []model.Metrics
	if err := r.db.WithContext(ctx).
		Where("client_id = ? AND collected_at >= ? AND collected_at < ?", clientID, from.UTC(), to.UTC()).
		Order("collected_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]*model.Snapshot, 0, len(rows))
	for _, row := range rows {
		m, err := fromBytes(row.Data)
		if err != nil {
			return nil, fmt.Errorf("decode metrics %d: %w", row.ID, err)
		}
		s := &model.Snapshot{
			ID:             row.ID,
			ClientID:       row.ClientID,
			Hostname:       row.Hostname,
			CollectedAt:    row.CollectedAt.UTC(),
			DiskPartitions: row.Partitions,
		}
		m.apply(s)
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}

// DeleteOldRecords removes every snapshot collected before cutoff.
func (r *Recorder) DeleteOldRecords(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("collected_at < ?", cutoff.UTC()).
		Delete(&model.Metrics{})
	return result.RowsAffected, result.Error
}
