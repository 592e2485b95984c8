package integration

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ExternalItem Tests
// ---------------------------------------------------------------------------

func TestExternalItem_TotalQuantity(t *testing.T) {
	t.Run("sums all locations", func(t *testing.T) {
		item := ExternalItem{Quantities: []LocationQuantity{
			{LocationID: "A", Quantity: decimal.NewFromInt(3)},
			{LocationID: "B", Quantity: decimal.RequireFromString("2.5")},
			{LocationID: "C", Quantity: decimal.Zero},
		}}
		assert.True(t, item.TotalQuantity().Equal(decimal.RequireFromString("5.5")))
	})

	t.Run("nil list is zero", func(t *testing.T) {
		item := ExternalItem{}
		assert.True(t, item.TotalQuantity().IsZero())
	})

	t.Run("empty list is zero", func(t *testing.T) {
		item := ExternalItem{Quantities: []LocationQuantity{}}
		assert.True(t, item.TotalQuantity().IsZero())
	})
}

func TestIsFatalFeedError(t *testing.T) {
	assert.True(t, IsFatalFeedError(fmt.Errorf("wrap: %w", ErrConfiguration)))
	assert.True(t, IsFatalFeedError(ErrFeedUnavailable))
	assert.True(t, IsFatalFeedError(ErrRateLimitExceeded))
	assert.True(t, IsFatalFeedError(ErrInvalidFeedResponse))
	assert.False(t, IsFatalFeedError(errors.New("boom")))
	assert.False(t, IsFatalFeedError(nil))
}

func TestItemError(t *testing.T) {
	cause := errors.New("bad quantity")
	err := NewItemError("17", cause)

	assert.Equal(t, "item 17: bad quantity", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "item <unknown>: bad quantity", NewItemError("", cause).Error())
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("unique violation")

	tests := []struct {
		name string
		err  *PersistenceError
		want string
	}{
		{
			name: "with external id and sku",
			err:  &PersistenceError{Op: PersistenceOpCreate, ExternalID: "5", SKU: "ABC", Err: cause},
			want: "create item 5 (sku ABC): unique violation",
		},
		{
			name: "with external id only",
			err:  &PersistenceError{Op: PersistenceOpUpdate, ExternalID: "5", Err: cause},
			want: "update item 5: unique violation",
		},
		{
			name: "bulk operation",
			err:  &PersistenceError{Op: PersistenceOpArchive, Err: cause},
			want: "archive: unique violation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}

// ---------------------------------------------------------------------------
// SyncResult Tests
// ---------------------------------------------------------------------------

func TestSyncResult_Lifecycle(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)

	t.Run("clean run ends in SUCCESS", func(t *testing.T) {
		r := NewSyncResult(uuid.New())
		r.Created = 2
		r.Finish(start, end)

		assert.True(t, r.Success)
		assert.Equal(t, SyncStatusSuccess, r.Status)
		assert.Equal(t, end, r.SyncedAt)
		assert.Equal(t, int64(1500), r.DurationMs)
		assert.NotNil(t, r.Errors)
	})

	t.Run("errors keep success but end in PARTIAL", func(t *testing.T) {
		r := NewSyncResult(uuid.New())
		r.AddErrors([]error{errors.New("a"), nil, errors.New("b")})
		r.Finish(start, end)

		assert.True(t, r.Success)
		assert.Equal(t, SyncStatusPartial, r.Status)
		assert.Equal(t, []string{"a", "b"}, r.Errors)
	})

	t.Run("Fail clears counts and ends in FAILED", func(t *testing.T) {
		r := NewSyncResult(uuid.New())
		r.Created, r.Updated, r.Archived, r.Fetched = 1, 2, 3, 4
		r.Fail(ErrFeedUnavailable)
		r.Finish(start, end)

		assert.False(t, r.Success)
		assert.Equal(t, SyncStatusFailed, r.Status)
		assert.Zero(t, r.Created+r.Updated+r.Archived+r.Fetched)
		require.Len(t, r.Errors, 1)
		assert.Contains(t, r.Errors[0], "unavailable")
	})
}
