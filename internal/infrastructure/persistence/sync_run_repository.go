package persistence

import (
	"context"
	"errors"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormSyncRunRepository stores run summaries
type GormSyncRunRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ integration.SyncHistory = (*GormSyncRunRepository)(nil)

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB, logger *zap.Logger) *GormSyncRunRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormSyncRunRepository{db: db, logger: logger.Named("sync_run_repository")}
}

// Save stores one run summary
func (r *GormSyncRunRepository) Save(ctx context.Context, result *integration.SyncResult) error {
	return r.db.WithContext(ctx).Create(models.SyncRunModelFromDomain(result)).Error
}

// RecordRun stores the summary and logs a failed write; a run is never failed by its own bookkeeping
func (r *GormSyncRunRepository) RecordRun(ctx context.Context, result *integration.SyncResult) {
	// the run context may already be cancelled; the summary is still worth keeping
	if err := r.Save(context.WithoutCancel(ctx), result); err != nil {
		r.logger.Warn("Failed to store sync run summary",
			zap.String("run_id", result.RunID.String()),
			zap.Error(err),
		)
	}
}

// Latest returns the most recent run summary
func (r *GormSyncRunRepository) Latest(ctx context.Context) (*integration.SyncResult, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).Order("synced_at DESC").First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrNoSyncRuns
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns up to limit run summaries, newest first
func (r *GormSyncRunRepository) List(ctx context.Context, limit int) ([]*integration.SyncResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []models.SyncRunModel
	if err := r.db.WithContext(ctx).Order("synced_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*integration.SyncResult, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}
