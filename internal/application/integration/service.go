package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/equipsync/internal/domain/equipment"
	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RunRecorder receives the summary of every finished run
type RunRecorder interface {
	RecordRun(ctx context.Context, result *integration.SyncResult)
}

// InventorySyncService runs one full reconciliation of the external
// inventory feed into the local equipment store.
//
// Stages run strictly in sequence: fetch, snapshot, reconcile, apply.
// Only a configuration error, a failed fetch or an unreadable snapshot
// abort the run; every other failure lands in SyncResult.Errors.
type InventorySyncService struct {
	feed       integration.InventoryFeed
	repo       equipment.Repository
	reconciler *Reconciler
	executor   *BatchExecutor
	query      integration.FeedQuery
	recorders  []RunRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// ServiceOption configures an InventorySyncService
type ServiceOption func(*InventorySyncService)

// WithFeedQuery narrows every run to the given feed query
func WithFeedQuery(query integration.FeedQuery) ServiceOption {
	return func(s *InventorySyncService) {
		s.query = query
	}
}

// WithRunRecorder reports each finished run to the recorder.
// Recorders are called in the order they were added.
func WithRunRecorder(recorder RunRecorder) ServiceOption {
	return func(s *InventorySyncService) {
		if recorder != nil {
			s.recorders = append(s.recorders, recorder)
		}
	}
}

// WithExecutorConfig overrides chunk size and worker count
func WithExecutorConfig(config ExecutorConfig) ServiceOption {
	return func(s *InventorySyncService) {
		s.executor = NewBatchExecutor(s.repo, config, s.logger)
	}
}

// NewInventorySyncService creates a new InventorySyncService
func NewInventorySyncService(
	feed integration.InventoryFeed,
	repo equipment.Repository,
	logger *zap.Logger,
	opts ...ServiceOption,
) *InventorySyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InventorySyncService{
		feed:       feed,
		repo:       repo,
		reconciler: NewReconciler(),
		logger:     logger.Named("inventory_sync"),
		now:        time.Now,
	}
	s.executor = NewBatchExecutor(repo, ExecutorConfig{}, s.logger)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSync performs one run. The returned result is never nil; err is
// non-nil only when the run could not execute, in which case
// result.Success is false.
func (s *InventorySyncService) RunSync(ctx context.Context) (*integration.SyncResult, error) {
	startedAt := s.now()
	result := integration.NewSyncResult(uuid.New())
	log := s.logger.With(zap.String("run_id", result.RunID.String()))

	ctx, span := telemetry.StartServiceSpan(ctx, "inventory_sync", "run",
		telemetry.WithAttribute(telemetry.SpanAttrRunID, result.RunID.String()),
	)
	defer span.End()

	log.Info("Inventory sync started")

	items, err := s.feed.FetchAll(ctx, s.query)
	if err != nil {
		return s.abort(ctx, span, log, result, startedAt, fmt.Errorf("fetch feed: %w", err))
	}
	result.Fetched = len(items)
	telemetry.AddEvent(span, "feed_fetched", "items", len(items))

	snapshot, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return s.abort(ctx, span, log, result, startedAt, fmt.Errorf("load snapshot: %w", err))
	}

	plan := s.reconciler.Reconcile(items, snapshot)
	result.AddErrors(plan.ItemErrors)
	telemetry.AddEvent(span, "reconciled",
		"to_create", len(plan.ToCreate),
		"to_update", len(plan.ToUpdate),
		"to_archive", len(plan.ToArchive),
		"item_errors", len(plan.ItemErrors),
	)

	if plan.HasWrites() {
		applied := s.executor.Apply(ctx, plan)
		result.Created = applied.Created
		result.Updated = applied.Updated
		result.Archived = applied.Archived
		result.AddErrors(applied.Errors)
	} else {
		log.Debug("Nothing to write")
	}

	result.Finish(startedAt, s.now())
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSyncStatus, result.Status.String(),
		"created", result.Created,
		"updated", result.Updated,
		"archived", result.Archived,
		"errors", len(result.Errors),
	)
	s.record(ctx, result)

	log.Info("Inventory sync finished",
		zap.String("status", result.Status.String()),
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("archived", result.Archived),
		zap.Int("errors", len(result.Errors)),
		zap.Int64("duration_ms", result.DurationMs),
	)
	for _, msg := range result.Errors {
		log.Debug("Inventory sync error", zap.String("error", msg))
	}

	return result, nil
}

func (s *InventorySyncService) abort(
	ctx context.Context,
	span trace.Span,
	log *zap.Logger,
	result *integration.SyncResult,
	startedAt time.Time,
	err error,
) (*integration.SyncResult, error) {
	telemetry.RecordError(span, err)
	result.Fail(err)
	result.Finish(startedAt, s.now())
	s.record(ctx, result)
	// feed failures are upstream conditions the next tick may clear
	if integration.IsFatalFeedError(err) {
		log.Warn("Inventory sync aborted by feed", zap.Error(err))
	} else {
		log.Error("Inventory sync aborted", zap.Error(err))
	}
	return result, err
}

func (s *InventorySyncService) record(ctx context.Context, result *integration.SyncResult) {
	for _, r := range s.recorders {
		r.RecordRun(ctx, result)
	}
}
