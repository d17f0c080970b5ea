package store

import (
	"context"
	"time"

	"github.com/nezhahq/sysmon/model"
)

func (s *Store) PutAlert(ctx context.Context, a *model.Alert) (uint64, error) {
	a.ID = 0
	a.Notified = false
	a.RecordedAt = a.RecordedAt.UTC()
	if err := s.ctx(ctx).Create(a).Error; err != nil {
		return 0, wrap("put alert", err)
	}
	return a.ID, nil
}

// ListUnnotifiedAlerts returns pending alerts oldest first. An empty clientID
// matches every client; limit <= 0 means no limit.
func (s *Store) ListUnnotifiedAlerts(ctx context.Context, clientID string, limit int) ([]model.Alert, error) {
	q := s.ctx(ctx).Where("notified = ?", false)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var alerts []model.Alert
	err := q.Order("recorded_at ASC, id ASC").Find(&alerts).Error
	return alerts, wrap("list unnotified alerts", err)
}

// ListAlerts returns alerts regardless of state, newest first.
func (s *Store) ListAlerts(ctx context.Context, clientID string, limit int) ([]model.Alert, error) {
	q := s.ctx(ctx)
	if clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var alerts []model.Alert
	err := q.Order("recorded_at DESC, id DESC").Find(&alerts).Error
	return alerts, wrap("list alerts", err)
}

// MarkNotified flags every pending alert recorded at or before cutoff.
func (s *Store) MarkNotified(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.ctx(ctx).Model(&model.Alert{}).
		Where("notified = ? AND recorded_at <= ?", false, cutoff.UTC()).
		Update("notified", true)
	return res.RowsAffected, wrap("mark notified", res.Error)
}

func (s *Store) MarkAlertsNotified(ctx context.Context, ids ...uint64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.ctx(ctx).Model(&model.Alert{}).
		Where("id IN ?", ids).
		Update("notified", true).Error
	return wrap("mark alerts notified", err)
}

// CountAlerts counts alerts of clientID recorded in [from, to), notified or not.
func (s *Store) CountAlerts(ctx context.Context, clientID string, from, to time.Time) (int64, error) {
	var n int64
	err := s.ctx(ctx).Model(&model.Alert{}).
		Where("client_id = ? AND recorded_at >= ? AND recorded_at < ?", clientID, from.UTC(), to.UTC()).
		Count(&n).Error
	return n, wrap("count alerts", err)
}
