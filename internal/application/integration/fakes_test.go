package integration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/equipsync/internal/domain/equipment"
	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockInventoryFeed is a mock implementation of InventoryFeed
type MockInventoryFeed struct {
	mock.Mock
}

func (m *MockInventoryFeed) FetchAll(ctx context.Context, query integration.FeedQuery) ([]integration.ExternalItem, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ExternalItem), args.Error(1)
}

// memRepository is an in-memory equipment store enforcing the same
// uniqueness rules as the relational schema
type memRepository struct {
	mu        sync.Mutex
	records   map[uuid.UUID]equipment.Equipment
	inventory map[uuid.UUID]decimal.Decimal

	failOn       map[string]error
	archiveErr   error
	snapshotErr  error
	createCalls  int
	upsertCalls  int
	archiveCalls int
}

func newMemRepository(seed ...equipment.Equipment) *memRepository {
	r := &memRepository{
		records:   make(map[uuid.UUID]equipment.Equipment),
		inventory: make(map[uuid.UUID]decimal.Decimal),
		failOn:    make(map[string]error),
	}
	for _, e := range seed {
		r.records[e.ID] = e
	}
	return r
}

var _ equipment.Repository = (*memRepository)(nil)

func (r *memRepository) LoadSnapshot(_ context.Context) (*equipment.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapshotErr != nil {
		return nil, r.snapshotErr
	}
	records := make([]equipment.Equipment, 0, len(r.records))
	for _, e := range r.records {
		records = append(records, e)
	}
	return equipment.NewSnapshot(records), nil
}

func (r *memRepository) CreateWithInventory(_ context.Context, e *equipment.Equipment, qty decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if err := r.failOn[e.ExternalIDValue()]; err != nil {
		return err
	}
	for _, existing := range r.records {
		if existing.SKU == e.SKU {
			return equipment.ErrEquipmentConflict
		}
		if !existing.IsLegacy() && existing.ExternalIDValue() == e.ExternalIDValue() {
			return errors.New("duplicate external id")
		}
	}
	r.records[e.ID] = *e
	r.inventory[e.ID] = qty
	return nil
}

func (r *memRepository) UpsertFromFeed(_ context.Context, e *equipment.Equipment, qty decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if err := r.failOn[e.ExternalIDValue()]; err != nil {
		return err
	}
	for id, existing := range r.records {
		if existing.ExternalIDValue() != e.ExternalIDValue() {
			continue
		}
		updated := *e
		updated.ID = existing.ID
		updated.SKU = existing.SKU
		updated.CreatedAt = existing.CreatedAt
		updated.IsArchived = false
		r.records[id] = updated
		r.inventory[id] = qty
		return nil
	}
	return equipment.ErrEquipmentNotFound
}

func (r *memRepository) ArchiveByIDs(_ context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archiveCalls++
	if r.archiveErr != nil {
		return 0, r.archiveErr
	}
	var n int64
	for _, id := range ids {
		rec, ok := r.records[id]
		if !ok {
			continue
		}
		rec.IsArchived = true
		rec.LastSyncedAt = &at
		r.records[id] = rec
		n++
	}
	return n, nil
}

func (r *memRepository) get(id uuid.UUID) equipment.Equipment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

func (r *memRepository) byExternalID(externalID string) (equipment.Equipment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.records {
		if e.ExternalIDValue() == externalID {
			return e, true
		}
	}
	return equipment.Equipment{}, false
}

func (r *memRepository) skus() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.records))
	for _, e := range r.records {
		out = append(out, e.SKU)
	}
	return out
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

func strPtr(s string) *string { return &s }

func sourcedRecord(externalID, sku string) equipment.Equipment {
	return equipment.Equipment{
		ID:           uuid.New(),
		ExternalID:   strPtr(externalID),
		SKU:          sku,
		Name:         "Record " + externalID,
		PricePerUnit: decimal.Zero,
		UnitType:     equipment.UnitTypeUnit,
	}
}

func legacyRecord(sku string) equipment.Equipment {
	return equipment.Equipment{
		ID:           uuid.New(),
		SKU:          sku,
		Name:         "Legacy " + sku,
		PricePerUnit: decimal.Zero,
		UnitType:     equipment.UnitTypeUnit,
	}
}

func feedItem(externalID, name, barcode string, quantities ...int64) integration.ExternalItem {
	item := integration.ExternalItem{
		ExternalID: externalID,
		Name:       name,
		Barcode:    barcode,
		Attributes: map[string]any{},
	}
	for i, q := range quantities {
		item.Quantities = append(item.Quantities, integration.LocationQuantity{
			LocationID: string(rune('A' + i)),
			Quantity:   decimal.NewFromInt(q),
		})
	}
	return item
}
