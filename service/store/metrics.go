package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nezhahq/sysmon/model"
	"github.com/nezhahq/sysmon/service/summary"
)

// PutSnapshot stores snap and upserts its client in one transaction. A
// snapshot already stored for the same client and timestamp yields
// model.ErrDuplicate and leaves the client untouched.
func (s *Store) PutSnapshot(ctx context.Context, snap *model.Snapshot) (uint64, *model.Client, error) {
	var (
		id     uint64
		client model.Client
	)
	err := s.ctx(ctx).Transaction(func(tx *gorm.DB) error {
		var inserted bool
		var err error
		id, inserted, err = s.recorder.WithTx(tx).Insert(ctx, snap)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrDuplicate
		}

		at := snap.CollectedAt.UTC()
		row := model.Client{
			ClientID:     snap.ClientID,
			Hostname:     snap.Hostname,
			FirstSeen:    at,
			LastSeen:     at,
			MetricsCount: 1,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "client_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"metrics_count": gorm.Expr("clients.metrics_count + 1"),
				"first_seen":    gorm.Expr("CASE WHEN excluded.first_seen < clients.first_seen THEN excluded.first_seen ELSE clients.first_seen END"),
				"last_seen":     gorm.Expr("CASE WHEN excluded.last_seen > clients.last_seen THEN excluded.last_seen ELSE clients.last_seen END"),
				"hostname":      gorm.Expr("CASE WHEN excluded.last_seen >= clients.last_seen THEN excluded.hostname ELSE clients.hostname END"),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("client_id = ?", snap.ClientID).Take(&client).Error
	})
	if err != nil {
		return 0, nil, wrap("put snapshot", err)
	}
	return id, &client, nil
}

func (s *Store) FindSnapshots(ctx context.Context, clientID string, from, to time.Time) ([]*model.Snapshot, error) {
	snaps, err := s.recorder.Find(ctx, clientID, from, to)
	return snaps, wrap("find snapshots", err)
}

func (s *Store) ListClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	err := s.ctx(ctx).Order("last_seen DESC, client_id ASC").Find(&clients).Error
	return clients, wrap("list clients", err)
}

func (s *Store) GetClient(ctx context.Context, clientID string) (*model.Client, error) {
	var c model.Client
	if err := s.ctx(ctx).Where("client_id = ?", clientID).Take(&c).Error; err != nil {
		return nil, wrap("get client", err)
	}
	return &c, nil
}

// Summarize aggregates the UTC day containing day for clientID. It returns
// model.ErrNotFound for an unknown client or a day without snapshots.
func (s *Store) Summarize(ctx context.Context, clientID string, day time.Time) (*model.DailySummary, error) {
	client, err := s.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	from, to := summary.DayWindow(day)
	snaps, err := s.FindSnapshots(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, model.ErrNotFound
	}
	alerts, err := s.CountAlerts(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}
	return summary.Daily(client, snaps, alerts, from)
}

// Prune deletes snapshots and alerts older than retentionDays, and package
// sets older than that which are no longer their client's latest. Clients
// and report markers are kept.
func (s *Store) Prune(ctx context.Context, retentionDays int) (model.PruneResult, error) {
	var result model.PruneResult
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)

	err := s.ctx(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if result.Snapshots, err = s.recorder.WithTx(tx).DeleteOldRecords(ctx, cutoff); err != nil {
			return err
		}

		res := tx.Where("recorded_at < ?", cutoff).Delete(&model.Alert{})
		if res.Error != nil {
			return res.Error
		}
		result.Alerts = res.RowsAffected

		res = tx.Where("collected_at < ? AND id NOT IN (SELECT p.id FROM package_update_sets AS p WHERE "+latestPackageSet+")", cutoff).
			Delete(&model.PackageUpdateSet{})
		if res.Error != nil {
			return res.Error
		}
		result.PackageSets = res.RowsAffected
		return nil
	})
	return result, wrap("prune", err)
}
