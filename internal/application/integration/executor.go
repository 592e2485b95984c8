package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/equipsync/internal/domain/equipment"
	"github.com/erp/equipsync/internal/domain/integration"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the number of writes applied before the next chunk starts
	DefaultChunkSize = 100
	// DefaultWorkers is the parallelism inside one chunk
	DefaultWorkers = 8
)

// ExecutorConfig bounds the load a run puts on the local store
type ExecutorConfig struct {
	ChunkSize int
	Workers   int
}

func (c ExecutorConfig) withDefaults() ExecutorConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// ApplyResult holds confirmed write counts and the failures of one apply
type ApplyResult struct {
	Created  int
	Updated  int
	Archived int
	Errors   []error
}

// BatchExecutor applies a Plan in sequential chunks with bounded parallelism
// inside each chunk. There is no transaction spanning the run; a failed
// write is recorded and the rest of its chunk continues.
type BatchExecutor struct {
	writer equipment.EquipmentWriter
	config ExecutorConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewBatchExecutor creates a new BatchExecutor
func NewBatchExecutor(writer equipment.EquipmentWriter, config ExecutorConfig, logger *zap.Logger) *BatchExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchExecutor{
		writer: writer,
		config: config.withDefaults(),
		logger: logger.Named("batch_executor"),
		now:    time.Now,
	}
}

type opKind int

const (
	opCreate opKind = iota
	opUpdate
)

type pendingWrite struct {
	kind opKind
	op   WriteOp
}

// Apply runs every create and update, then the bulk archive.
// Only writes the store confirmed are counted.
func (e *BatchExecutor) Apply(ctx context.Context, plan *Plan) *ApplyResult {
	result := &ApplyResult{Errors: make([]error, 0)}

	writes := make([]pendingWrite, 0, len(plan.ToCreate)+len(plan.ToUpdate))
	for _, op := range plan.ToCreate {
		writes = append(writes, pendingWrite{kind: opCreate, op: op})
	}
	for _, op := range plan.ToUpdate {
		writes = append(writes, pendingWrite{kind: opUpdate, op: op})
	}

	for start, chunk := 0, 0; start < len(writes); start, chunk = start+e.config.ChunkSize, chunk+1 {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("apply interrupted before chunk %d: %w", chunk, err))
			return result
		}
		end := min(start+e.config.ChunkSize, len(writes))
		e.applyChunk(ctx, chunk, writes[start:end], result)
	}

	e.archive(ctx, plan, result)
	return result
}

func (e *BatchExecutor) applyChunk(ctx context.Context, chunk int, writes []pendingWrite, result *ApplyResult) {
	errs := make([]error, len(writes))
	var (
		mu      sync.Mutex
		created int
		updated int
	)

	var g errgroup.Group
	g.SetLimit(e.config.Workers)
	for i := range writes {
		w := writes[i]
		g.Go(func() error {
			if err := e.write(ctx, w); err != nil {
				errs[i] = err
				return nil
			}
			mu.Lock()
			if w.kind == opCreate {
				created++
			} else {
				updated++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			result.Errors = append(result.Errors, err)
		}
	}
	result.Created += created
	result.Updated += updated

	e.logger.Debug("Chunk applied",
		zap.Int("chunk", chunk),
		zap.Int("size", len(writes)),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("failed", failed),
	)
}

func (e *BatchExecutor) write(ctx context.Context, w pendingWrite) error {
	eq := w.op.Equipment
	switch w.kind {
	case opCreate:
		if err := e.writer.CreateWithInventory(ctx, eq, w.op.Quantity); err != nil {
			return &integration.PersistenceError{
				Op: integration.PersistenceOpCreate, ExternalID: eq.ExternalIDValue(), SKU: eq.SKU, Err: err,
			}
		}
	default:
		if err := e.writer.UpsertFromFeed(ctx, eq, w.op.Quantity); err != nil {
			return &integration.PersistenceError{
				Op: integration.PersistenceOpUpdate, ExternalID: eq.ExternalIDValue(), SKU: eq.SKU, Err: err,
			}
		}
	}
	return nil
}

// archive issues one bulk update. A failure here leaves the create and
// update counts intact.
func (e *BatchExecutor) archive(ctx context.Context, plan *Plan, result *ApplyResult) {
	if len(plan.ToArchive) == 0 {
		return
	}
	affected, err := e.writer.ArchiveByIDs(ctx, plan.ToArchive, e.now())
	if err != nil {
		e.logger.Warn("Bulk archive failed",
			zap.Int("ids", len(plan.ToArchive)),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, &integration.PersistenceError{
			Op:  integration.PersistenceOpArchive,
			Err: err,
		})
		return
	}
	result.Archived = int(affected)
}
