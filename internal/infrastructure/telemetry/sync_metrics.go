package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/erp/equipsync/internal/domain/integration"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope for sync metrics
const MeterName = "equipsync/inventory_sync"

// SyncMetrics records the outcome of every reconciliation run and of every
// request made to the upstream feed.
type SyncMetrics struct {
	runs         *Counter
	items        *Counter
	errors       *Counter
	duration     *DurationHistogram
	feedRequests *Counter
}

// NewSyncMetrics creates the sync instruments on the given meter
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	runs, err := NewCounter(meter, "inventory_sync_runs_total", "Inventory sync runs by outcome", "{run}")
	if err != nil {
		return nil, err
	}
	items, err := NewCounter(meter, "inventory_sync_items_total", "Equipment records written by operation", "{record}")
	if err != nil {
		return nil, err
	}
	errs, err := NewCounter(meter, "inventory_sync_errors_total", "Item and persistence errors recorded by runs", "{error}")
	if err != nil {
		return nil, err
	}
	duration, err := NewDurationHistogram(meter, "inventory_sync_duration_seconds",
		"Wall time of an inventory sync run", SyncDurationBuckets)
	if err != nil {
		return nil, err
	}
	feedRequests, err := NewCounter(meter, "inventory_feed_requests_total", "Upstream feed requests by status code", "{request}")
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runs:         runs,
		items:        items,
		errors:       errs,
		duration:     duration,
		feedRequests: feedRequests,
	}, nil
}

// RecordRun records counts and duration of a finished run
func (m *SyncMetrics) RecordRun(ctx context.Context, result *integration.SyncResult) {
	m.runs.Inc(ctx, AttrSyncOutcome.String(outcomeLabel(result.Status)))
	m.duration.Observe(ctx, time.Duration(result.DurationMs)*time.Millisecond,
		AttrSyncOutcome.String(outcomeLabel(result.Status)))

	if result.Created > 0 {
		m.items.Add(ctx, int64(result.Created), AttrSyncOp.String("created"))
	}
	if result.Updated > 0 {
		m.items.Add(ctx, int64(result.Updated), AttrSyncOp.String("updated"))
	}
	if result.Archived > 0 {
		m.items.Add(ctx, int64(result.Archived), AttrSyncOp.String("archived"))
	}
	if n := len(result.Errors); n > 0 {
		m.errors.Add(ctx, int64(n))
	}
}

// ObserveFeedRequest counts one upstream response by status code.
// A zero status means the request failed at the transport level.
func (m *SyncMetrics) ObserveFeedRequest(ctx context.Context, statusCode int) {
	status := "transport_error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.feedRequests.Inc(ctx, AttrHTTPStatus.String(status))
}

func outcomeLabel(status integration.SyncStatus) string {
	switch status {
	case integration.SyncStatusFailed:
		return "failed"
	case integration.SyncStatusPartial:
		return "partial"
	default:
		return "success"
	}
}
