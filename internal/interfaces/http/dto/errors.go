package dto

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/erp/equipsync/internal/infrastructure/lease"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal = "ERR_INTERNAL"
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeTimeout  = "ERR_TIMEOUT"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Sync error codes
const (
	// ErrCodeSyncInProgress is used when another run holds the sync lease
	ErrCodeSyncInProgress = "ERR_SYNC_IN_PROGRESS"
	// ErrCodeSyncConfiguration is used when the feed is not configured
	ErrCodeSyncConfiguration = "ERR_SYNC_CONFIGURATION"
	// ErrCodeUpstreamUnavailable is used when the feed could not be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamRateLimited is used when the feed kept answering 429
	ErrCodeUpstreamRateLimited = "ERR_UPSTREAM_RATE_LIMITED"
	// ErrCodeUpstreamInvalid is used when the feed answered with an unusable body
	ErrCodeUpstreamInvalid = "ERR_UPSTREAM_INVALID_RESPONSE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeTimeout:  http.StatusGatewayTimeout,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeSyncInProgress:      http.StatusConflict,
	ErrCodeSyncConfiguration:   http.StatusServiceUnavailable,
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamRateLimited: http.StatusBadGateway,
	ErrCodeUpstreamInvalid:     http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// SyncErrorCode classifies an error returned by a sync run
func SyncErrorCode(err error) string {
	switch {
	case errors.Is(err, lease.ErrLeaseHeld):
		return ErrCodeSyncInProgress
	case errors.Is(err, integration.ErrConfiguration):
		return ErrCodeSyncConfiguration
	case errors.Is(err, integration.ErrRateLimitExceeded):
		return ErrCodeUpstreamRateLimited
	case errors.Is(err, integration.ErrInvalidFeedResponse):
		return ErrCodeUpstreamInvalid
	case errors.Is(err, integration.ErrFeedUnavailable):
		return ErrCodeUpstreamUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeInternal
	}
}
