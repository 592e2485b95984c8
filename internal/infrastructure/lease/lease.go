// Package lease provides the cross-process run lease that keeps two
// inventory syncs from overlapping.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLeaseHeld is returned when another holder owns the lease
var ErrLeaseHeld = errors.New("lease: already held")

// Lease is a named, expiring, single-holder lock
type Lease interface {
	// Acquire takes the lease for ttl. It returns ErrLeaseHeld when another
	// holder has it. The returned release func is safe to call more than once
	// and never releases a lease that has since been taken by someone else.
	Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, err error)
}

func newToken() string {
	return uuid.NewString()
}
