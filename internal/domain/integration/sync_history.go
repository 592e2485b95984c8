package integration

import (
	"context"
	"errors"
)

// ErrNoSyncRuns is returned when no run has been recorded yet
var ErrNoSyncRuns = errors.New("integration: no sync runs recorded")

// SyncHistory reads back the summaries of past runs, newest first
type SyncHistory interface {
	Latest(ctx context.Context) (*SyncResult, error)
	List(ctx context.Context, limit int) ([]*SyncResult, error)
}
