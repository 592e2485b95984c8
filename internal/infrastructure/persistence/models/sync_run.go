package models

import (
	"time"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SyncRunModel is the stored summary of one reconciliation run
type SyncRunModel struct {
	RunID      uuid.UUID              `gorm:"type:uuid;primary_key"`
	Success    bool                   `gorm:"not null"`
	Status     integration.SyncStatus `gorm:"type:varchar(20);not null"`
	Fetched    int                    `gorm:"not null"`
	Created    int                    `gorm:"not null"`
	Updated    int                    `gorm:"not null"`
	Archived   int                    `gorm:"not null"`
	Errors     datatypes.JSONSlice[string]
	SyncedAt   time.Time `gorm:"not null;index:idx_inventory_sync_runs_synced_at,sort:desc"`
	DurationMs int64     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "inventory_sync_runs"
}

// SyncRunModelFromDomain creates a persistence model from a run result
func SyncRunModelFromDomain(r *integration.SyncResult) *SyncRunModel {
	errs := make(datatypes.JSONSlice[string], len(r.Errors))
	copy(errs, r.Errors)
	return &SyncRunModel{
		RunID:      r.RunID,
		Success:    r.Success,
		Status:     r.Status,
		Fetched:    r.Fetched,
		Created:    r.Created,
		Updated:    r.Updated,
		Archived:   r.Archived,
		Errors:     errs,
		SyncedAt:   r.SyncedAt,
		DurationMs: r.DurationMs,
	}
}

// ToDomain converts the persistence model back to a run result
func (m *SyncRunModel) ToDomain() *integration.SyncResult {
	errs := make([]string, len(m.Errors))
	copy(errs, m.Errors)
	return &integration.SyncResult{
		RunID:      m.RunID,
		Success:    m.Success,
		Status:     m.Status,
		Fetched:    m.Fetched,
		Created:    m.Created,
		Updated:    m.Updated,
		Archived:   m.Archived,
		Errors:     errs,
		SyncedAt:   m.SyncedAt,
		DurationMs: m.DurationMs,
	}
}
