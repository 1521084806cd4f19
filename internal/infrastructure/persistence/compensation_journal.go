package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/application/saga"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompensationJournal implements saga.Journal using GORM
type GormCompensationJournal struct {
	db *gorm.DB
}

// NewGormCompensationJournal creates a new GormCompensationJournal
func NewGormCompensationJournal(db *gorm.DB) *GormCompensationJournal {
	return &GormCompensationJournal{db: db}
}

// Record inserts a failed inverse
func (j *GormCompensationJournal) Record(ctx context.Context, f saga.Failure) error {
	model := models.CompensationFailureModelFromFailure(f)
	if err := j.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record compensation failure: %w", err)
	}
	return nil
}

// ListUnresolved returns open entries of storeID, oldest first
func (j *GormCompensationJournal) ListUnresolved(ctx context.Context, storeID string) ([]saga.JournalEntry, error) {
	var rows []models.CompensationFailureModel
	err := j.db.WithContext(ctx).
		Where("store_id = ? AND resolved_at IS NULL", storeID).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list compensation failures: %w", err)
	}

	entries := make([]saga.JournalEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToEntry()
	}
	return entries, nil
}

// Resolve marks an open entry of storeID as repaired
func (j *GormCompensationJournal) Resolve(ctx context.Context, storeID, id, resolvedBy string) error {
	entryID, err := uuid.Parse(id)
	if err != nil {
		return shared.NewValidationError(shared.ErrInvalidInput.Code, "id", "Invalid entry id")
	}

	result := j.db.WithContext(ctx).
		Model(&models.CompensationFailureModel{}).
		Where("id = ? AND store_id = ? AND resolved_at IS NULL", entryID, storeID).
		Updates(map[string]any{
			"resolved_at": time.Now().UTC(),
			"resolved_by": resolvedBy,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve compensation failure: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("Compensation failure not found")
	}
	return nil
}

var _ saga.Journal = (*GormCompensationJournal)(nil)
