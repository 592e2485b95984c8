package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/lease"
)

// SyncRunner executes one inventory sync run
type SyncRunner interface {
	RunSync(ctx context.Context) (*integration.SyncResult, error)
}

// GuardedRunner runs a sync under the cross-process lease. Both the
// periodic trigger and the manual HTTP trigger go through it, so two runs
// never overlap.
type GuardedRunner struct {
	runner SyncRunner
	lease  lease.Lease
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuardedRunner wraps runner. A nil lease disables the guard; the run
// is still bounded by ttl.
func NewGuardedRunner(runner SyncRunner, l lease.Lease, ttl time.Duration, logger *zap.Logger) (*GuardedRunner, error) {
	if runner == nil {
		return nil, ErrNoRunner
	}
	if ttl <= 0 {
		return nil, ErrInvalidConfig
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardedRunner{
		runner: runner,
		lease:  l,
		ttl:    ttl,
		logger: logger.Named("guarded_runner"),
	}, nil
}

// Run acquires the lease and performs one sync. It returns
// lease.ErrLeaseHeld with a nil result when another run holds the lease.
//
// The run context expires with the lease so a stuck run cannot outlive it.
func (g *GuardedRunner) Run(ctx context.Context) (*integration.SyncResult, error) {
	if g.lease != nil {
		release, err := g.lease.Acquire(ctx, g.ttl)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("Failed to release sync lease", zap.Error(err))
			}
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, g.ttl)
	defer cancel()
	return g.runner.RunSync(runCtx)
}

// IsLeaseHeld reports whether err means another run is in progress
func IsLeaseHeld(err error) bool {
	return errors.Is(err, lease.ErrLeaseHeld)
}
