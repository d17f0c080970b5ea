package store

import (
	"context"

	"github.com/nezhahq/sysmon/model"
)

// latestPackageSet holds for the row aliased p when no newer set of the same
// client exists. Ties on collected_at go to the higher id.
const latestPackageSet = `NOT EXISTS (SELECT 1 FROM package_update_sets AS q
	WHERE q.client_id = p.client_id
	AND (q.collected_at > p.collected_at OR (q.collected_at = p.collected_at AND q.id > p.id)))`

func (s *Store) PutPackageUpdates(ctx context.Context, set *model.PackageUpdateSet) (uint64, error) {
	set.ID = 0
	set.CollectedAt = set.CollectedAt.UTC()
	set.TotalCount = len(set.Packages)
	if set.Packages == nil {
		set.Packages = model.PackageList{}
	}
	if err := s.ctx(ctx).Create(set).Error; err != nil {
		return 0, wrap("put package updates", err)
	}
	return set.ID, nil
}

func (s *Store) GetLatestPackageUpdates(ctx context.Context, clientID string) (*model.PackageUpdateSet, error) {
	var set model.PackageUpdateSet
	err := s.ctx(ctx).Where("client_id = ?", clientID).
		Order("collected_at DESC, id DESC").
		Take(&set).Error
	if err != nil {
		return nil, wrap("get package updates", err)
	}
	return &set, nil
}

// ListLatestPackageUpdates returns the newest set of every client that ever
// reported one, ordered by client id.
func (s *Store) ListLatestPackageUpdates(ctx context.Context) ([]*model.PackageUpdateSet, error) {
	var sets []*model.PackageUpdateSet
	err := s.ctx(ctx).Table("package_update_sets AS p").
		Where(latestPackageSet).
		Order("p.client_id ASC").
		Find(&sets).Error
	return sets, wrap("list package updates", err)
}
