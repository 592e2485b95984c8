package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupSyncRunTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := setupEquipmentTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SyncRunModel{}))
	return db
}

func finishedRun(start time.Time, created int, errs ...string) *integration.SyncResult {
	r := integration.NewSyncResult(uuid.New())
	r.Fetched = created
	r.Created = created
	for _, e := range errs {
		r.AddError(errors.New(e))
	}
	r.Finish(start, start.Add(1500*time.Millisecond))
	return r
}

func TestGormSyncRunRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("latest on empty table", func(t *testing.T) {
		repo := NewGormSyncRunRepository(setupSyncRunTestDB(t), zaptest.NewLogger(t))
		_, err := repo.Latest(ctx)
		assert.ErrorIs(t, err, integration.ErrNoSyncRuns)
	})

	t.Run("records runs and returns newest first", func(t *testing.T) {
		repo := NewGormSyncRunRepository(setupSyncRunTestDB(t), zaptest.NewLogger(t))
		base := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

		first := finishedRun(base, 3)
		second := finishedRun(base.Add(time.Hour), 1, "item 9: bad quantity")
		repo.RecordRun(ctx, first)
		repo.RecordRun(ctx, second)

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.RunID, latest.RunID)
		assert.Equal(t, integration.SyncStatusPartial, latest.Status)
		assert.True(t, latest.Success)
		assert.Equal(t, []string{"item 9: bad quantity"}, latest.Errors)
		assert.Equal(t, int64(1500), latest.DurationMs)

		runs, err := repo.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, second.RunID, runs[0].RunID)
		assert.Equal(t, first.RunID, runs[1].RunID)
		assert.Empty(t, runs[1].Errors)
	})

	t.Run("records even when the run context is cancelled", func(t *testing.T) {
		repo := NewGormSyncRunRepository(setupSyncRunTestDB(t), zaptest.NewLogger(t))
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		run := finishedRun(time.Now(), 0)
		repo.RecordRun(cancelled, run)

		latest, err := repo.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, run.RunID, latest.RunID)
	})

	t.Run("duplicate run id is only logged", func(t *testing.T) {
		repo := NewGormSyncRunRepository(setupSyncRunTestDB(t), zaptest.NewLogger(t))
		run := finishedRun(time.Now(), 2)
		repo.RecordRun(ctx, run)
		assert.NotPanics(t, func() { repo.RecordRun(ctx, run) })
		assert.Error(t, repo.Save(ctx, run))
	})
}
