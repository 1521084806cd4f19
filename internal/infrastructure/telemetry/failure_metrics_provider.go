package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormFailureCountProvider implements FailureCountProvider using GORM.
// It aggregates the compensation_failures table directly.
type GormFailureCountProvider struct {
	db *gorm.DB
}

// NewGormFailureCountProvider creates a new GormFailureCountProvider.
func NewGormFailureCountProvider(db *gorm.DB) *GormFailureCountProvider {
	return &GormFailureCountProvider{db: db}
}

// CountUnresolvedByStore returns the open failure count of every store
// that has at least one.
func (p *GormFailureCountProvider) CountUnresolvedByStore(ctx context.Context) (map[string]int64, error) {
	type result struct {
		StoreID string `gorm:"column:store_id"`
		Open    int64  `gorm:"column:open"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("compensation_failures").
		Select("store_id, COUNT(*) as open").
		Where("resolved_at IS NULL").
		Group("store_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	m := make(map[string]int64, len(results))
	for _, r := range results {
		m[r.StoreID] = r.Open
	}
	return m, nil
}
