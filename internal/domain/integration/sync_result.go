package integration

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus summarizes how a run ended
type SyncStatus string

const (
	// SyncStatusSuccess indicates the run finished with no recorded errors
	SyncStatusSuccess SyncStatus = "SUCCESS"
	// SyncStatusPartial indicates the run finished but some items or writes failed
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates the run aborted before producing counts
	SyncStatusFailed SyncStatus = "FAILED"
)

// String returns the string representation of SyncStatus
func (s SyncStatus) String() string {
	return string(s)
}

// SyncResult is the single summary produced by every run.
// Success is false only when the run could not execute at all; item and
// write failures accumulate in Errors while Success stays true.
type SyncResult struct {
	RunID    uuid.UUID  `json:"run_id"`
	Success  bool       `json:"success"`
	Status   SyncStatus `json:"status"`
	Fetched  int        `json:"fetched"`
	Created  int        `json:"created"`
	Updated  int        `json:"updated"`
	Archived int        `json:"archived"`
	Errors   []string   `json:"errors"`
	SyncedAt time.Time  `json:"synced_at"`
	// DurationMs is the wall time of the run in milliseconds
	DurationMs int64 `json:"duration_ms"`
}

// NewSyncResult starts a result for a run that has not failed yet
func NewSyncResult(runID uuid.UUID) *SyncResult {
	return &SyncResult{
		RunID:   runID,
		Success: true,
		Status:  SyncStatusSuccess,
		Errors:  make([]string, 0),
	}
}

// AddError records a non-fatal failure
func (r *SyncResult) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err.Error())
}

// AddErrors records several non-fatal failures
func (r *SyncResult) AddErrors(errs []error) {
	for _, err := range errs {
		r.AddError(err)
	}
}

// Fail marks the run as not executed. Counts are reset because no partial
// result is reported for a run that did not get past its fatal stage.
func (r *SyncResult) Fail(err error) {
	r.Success = false
	r.Status = SyncStatusFailed
	r.Fetched = 0
	r.Created = 0
	r.Updated = 0
	r.Archived = 0
	r.AddError(err)
}

// HasErrors returns true if any failure was recorded
func (r *SyncResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Finish stamps the completion time and derives the final status
func (r *SyncResult) Finish(startedAt, finishedAt time.Time) {
	r.SyncedAt = finishedAt
	r.DurationMs = finishedAt.Sub(startedAt).Milliseconds()
	switch {
	case !r.Success:
		r.Status = SyncStatusFailed
	case r.HasErrors():
		r.Status = SyncStatusPartial
	default:
		r.Status = SyncStatusSuccess
	}
}
