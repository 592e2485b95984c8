package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/equipsync/internal/domain/integration"
)

// Runner is what the trigger invokes on every tick
type Runner interface {
	Run(ctx context.Context) (*integration.SyncResult, error)
}

// SyncTriggerConfig holds configuration for the periodic sync trigger
type SyncTriggerConfig struct {
	// Interval between run attempts
	Interval time.Duration
	// RunOnStart fires one run immediately instead of waiting a full interval
	RunOnStart bool
}

// Validate validates the configuration
func (c SyncTriggerConfig) Validate() error {
	if c.Interval <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncTrigger invokes the inventory sync on a fixed interval.
// Runs never overlap: a tick that arrives during a run is dropped.
type SyncTrigger struct {
	config SyncTriggerConfig
	runner Runner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastMu     sync.RWMutex
	lastResult *integration.SyncResult
	lastErr    error
}

// NewSyncTrigger creates a new sync trigger
func NewSyncTrigger(config SyncTriggerConfig, runner Runner, logger *zap.Logger) (*SyncTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, ErrNoRunner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncTrigger{
		config: config,
		runner: runner,
		logger: logger.Named("sync_trigger"),
	}, nil
}

// Start starts the trigger loop
func (t *SyncTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("run_on_start", t.config.RunOnStart),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight run to return
func (t *SyncTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Sync trigger stopped")
		return nil
	case <-ctx.Done():
		t.logger.Warn("Sync trigger stop timed out")
		return ctx.Err()
	}
}

// LastRun returns the outcome of the most recent triggered run
func (t *SyncTrigger) LastRun() (*integration.SyncResult, error) {
	t.lastMu.RLock()
	defer t.lastMu.RUnlock()
	return t.lastResult, t.lastErr
}

func (t *SyncTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	if t.config.RunOnStart {
		t.trigger(ctx)
	}

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.trigger(ctx)
		}
	}
}

func (t *SyncTrigger) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := t.runner.Run(ctx)

	switch {
	case IsLeaseHeld(err):
		t.logger.Info("Skipping scheduled sync, another run holds the lease")
		return
	case err != nil:
		t.logger.Error("Scheduled sync failed", zap.Error(err))
	case result != nil:
		t.logger.Info("Scheduled sync finished",
			zap.String("run_id", result.RunID.String()),
			zap.String("status", result.Status.String()),
		)
	}

	t.lastMu.Lock()
	t.lastResult, t.lastErr = result, err
	t.lastMu.Unlock()
}
