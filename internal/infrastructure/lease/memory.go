package lease

import (
	"context"
	"sync"
	"time"
)

// InMemoryLease implements Lease within a single process.
// Suitable for single-instance deployments and tests.
type InMemoryLease struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

var _ Lease = (*InMemoryLease)(nil)

// NewInMemoryLease creates an unheld in-memory lease
func NewInMemoryLease() *InMemoryLease {
	return &InMemoryLease{now: time.Now}
}

// Acquire implements Lease
func (l *InMemoryLease) Acquire(_ context.Context, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.token != "" && now.Before(l.expiresAt) {
		return nil, ErrLeaseHeld
	}
	token := newToken()
	l.token = token
	l.expiresAt = now.Add(ttl)

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.token == token {
			l.token = ""
		}
		return nil
	}, nil
}
