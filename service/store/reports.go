package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/nezhahq/sysmon/model"
)

func (s *Store) ReportSent(ctx context.Context, periodKey string) (bool, error) {
	var n int64
	err := s.ctx(ctx).Model(&model.ReportMarker{}).Where("period_key = ?", periodKey).Count(&n).Error
	return n > 0, wrap("report sent", err)
}

// RecordReport writes the marker of a sent report. A marker for the same
// period already present yields model.ErrDuplicate.
func (s *Store) RecordReport(ctx context.Context, m *model.ReportMarker) error {
	m.ID = 0
	m.SentAt = m.SentAt.UTC()
	res := s.ctx(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return wrap("record report", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrDuplicate
	}
	return nil
}

// ListReports returns sent report markers, newest first. An empty kind
// matches all kinds.
func (s *Store) ListReports(ctx context.Context, kind model.ReportKind, limit int) ([]model.ReportMarker, error) {
	q := s.ctx(ctx)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var markers []model.ReportMarker
	err := q.Order("sent_at DESC, id DESC").Find(&markers).Error
	return markers, wrap("list reports", err)
}
