package models

import (
	"time"

	"github.com/erp/backoffice/internal/application/saga"
	"github.com/google/uuid"
)

// CompensationFailureModel is a rollback step that could not be applied
type CompensationFailureModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	Saga          string     `gorm:"type:varchar(100);not null;index"`
	Step          string     `gorm:"type:varchar(100);not null"`
	StoreID       string     `gorm:"type:varchar(64);not null;index"`
	OriginalError string     `gorm:"type:text"`
	Error         string     `gorm:"type:text;not null"`
	OccurredAt    time.Time  `gorm:"not null"`
	ResolvedAt    *time.Time `gorm:"index"`
	ResolvedBy    string     `gorm:"type:varchar(100)"`
	CreatedAt     time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CompensationFailureModel) TableName() string {
	return "compensation_failures"
}

// CompensationFailureModelFromFailure builds a row from a saga failure
func CompensationFailureModelFromFailure(f saga.Failure) *CompensationFailureModel {
	m := &CompensationFailureModel{
		ID:         uuid.New(),
		Saga:       f.Saga,
		Step:       f.Step,
		StoreID:    f.StoreID,
		OccurredAt: f.OccurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	if f.Original != nil {
		m.OriginalError = f.Original.Error()
	}
	if f.Err != nil {
		m.Error = f.Err.Error()
	}
	return m
}

// ToEntry converts the row to a journal entry
func (m *CompensationFailureModel) ToEntry() saga.JournalEntry {
	return saga.JournalEntry{
		ID:            m.ID.String(),
		Saga:          m.Saga,
		Step:          m.Step,
		StoreID:       m.StoreID,
		OriginalError: m.OriginalError,
		Error:         m.Error,
		OccurredAt:    m.OccurredAt,
		ResolvedAt:    m.ResolvedAt,
		ResolvedBy:    m.ResolvedBy,
	}
}
