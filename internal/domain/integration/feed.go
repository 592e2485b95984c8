package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Feed Errors
// ---------------------------------------------------------------------------

var (
	// ErrConfiguration indicates a missing credential or invalid feed setup.
	// It is raised before any network call.
	ErrConfiguration = errors.New("integration: feed not configured")
	// ErrFeedUnavailable indicates the feed kept failing after all retries
	ErrFeedUnavailable = errors.New("integration: inventory feed unavailable")
	// ErrRateLimitExceeded indicates the feed kept answering 429 after all retries
	ErrRateLimitExceeded = errors.New("integration: inventory feed rate limit exceeded")
	// ErrInvalidFeedResponse indicates a response body that matches no known envelope shape
	ErrInvalidFeedResponse = errors.New("integration: invalid inventory feed response")
)

// IsFatalFeedError reports whether err aborts a run before any result is produced
func IsFatalFeedError(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrFeedUnavailable) ||
		errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrInvalidFeedResponse)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// LocationQuantity is the stock reported for one location
type LocationQuantity struct {
	LocationID string
	Quantity   decimal.Decimal
}

// ExternalItem is one item of the external feed, normalized from whatever
// shape the upstream returned
type ExternalItem struct {
	// ExternalID is the upstream identifier
	ExternalID string
	Name       string
	// Barcode is the preferred SKU source
	Barcode string
	// Memo becomes the local description
	Memo     string
	PhotoURL string
	// UnitOfMeasure is the raw upstream unit string
	UnitOfMeasure string
	// Attributes holds free-form string/number attributes
	Attributes map[string]any
	// Quantities is the per-location stock list; nil means none reported
	Quantities []LocationQuantity
	// DecodeErr is set when the upstream element could not be decoded;
	// the reconciler records it as an item error and skips the item.
	DecodeErr error
}

// TotalQuantity sums every per-location quantity. An absent list yields zero.
func (i *ExternalItem) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, q := range i.Quantities {
		total = total.Add(q.Quantity)
	}
	return total
}

// FeedQuery narrows a feed listing
type FeedQuery struct {
	// LocationIDs restricts the listing to these locations; empty means all
	LocationIDs []string
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// InventoryFeed is the port for the authoritative external inventory listing.
// FetchAll returns the complete listing or fails the whole call; it never
// returns a partial listing.
type InventoryFeed interface {
	FetchAll(ctx context.Context, query FeedQuery) ([]ExternalItem, error)
}

// ---------------------------------------------------------------------------
// Item-level errors
// ---------------------------------------------------------------------------

// ItemError is an ItemProcessingError: one feed item could not be reconciled
type ItemError struct {
	ExternalID string
	Err        error
}

// NewItemError creates an item processing error
func NewItemError(externalID string, err error) *ItemError {
	return &ItemError{ExternalID: externalID, Err: err}
}

// Error implements the error interface
func (e *ItemError) Error() string {
	id := e.ExternalID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("item %s: %v", id, e.Err)
}

// Unwrap returns the underlying cause
func (e *ItemError) Unwrap() error {
	return e.Err
}

// PersistenceOp names the write that failed
type PersistenceOp string

const (
	PersistenceOpCreate  PersistenceOp = "create"
	PersistenceOpUpdate  PersistenceOp = "update"
	PersistenceOpArchive PersistenceOp = "archive"
)

// PersistenceError is a failed write against the local store
type PersistenceError struct {
	Op         PersistenceOp
	ExternalID string
	SKU        string
	Err        error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	switch {
	case e.ExternalID != "" && e.SKU != "":
		return fmt.Sprintf("%s item %s (sku %s): %v", e.Op, e.ExternalID, e.SKU, e.Err)
	case e.ExternalID != "":
		return fmt.Sprintf("%s item %s: %v", e.Op, e.ExternalID, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying cause
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
