package integration

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/erp/equipsync/internal/domain/equipment"
	"github.com/erp/equipsync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item-level reconciliation errors
var (
	ErrMissingExternalID   = errors.New("integration: item has no external id")
	ErrDuplicateExternalID = errors.New("integration: external id repeated in feed")
)

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// WriteOp is one create or update against the local store
type WriteOp struct {
	Equipment *equipment.Equipment
	// Quantity is the aggregate stock written to the paired inventory row
	Quantity decimal.Decimal
}

// Plan is the outcome of diffing one feed pass against a snapshot
type Plan struct {
	ToCreate []WriteOp
	ToUpdate []WriteOp
	// ToArchive holds vanished sourced records and unarchived legacy records
	ToArchive  []uuid.UUID
	ItemErrors []error
}

// HasWrites returns true if applying the plan touches the store
func (p *Plan) HasWrites() bool {
	return len(p.ToCreate) > 0 || len(p.ToUpdate) > 0 || len(p.ToArchive) > 0
}

// ---------------------------------------------------------------------------
// Reconciler
// ---------------------------------------------------------------------------

// Reconciler classifies feed items into create/update/archive operations.
// It is pure: it performs no I/O and never mutates the snapshot.
type Reconciler struct {
	now func() time.Time
}

// NewReconciler creates a reconciler stamping records with the wall clock
func NewReconciler() *Reconciler {
	return &Reconciler{now: time.Now}
}

// Reconcile diffs items against the snapshot
func (r *Reconciler) Reconcile(items []integration.ExternalItem, snapshot *equipment.Snapshot) *Plan {
	plan := &Plan{
		ToCreate:   make([]WriteOp, 0),
		ToUpdate:   make([]WriteOp, 0),
		ToArchive:  make([]uuid.UUID, 0),
		ItemErrors: make([]error, 0),
	}
	syncedAt := r.now()
	knownSKUs := snapshot.CloneSKUs()
	seen := make(map[string]struct{}, len(items))

	for i := range items {
		item := &items[i]
		externalID := strings.TrimSpace(item.ExternalID)

		if item.DecodeErr != nil {
			plan.ItemErrors = append(plan.ItemErrors, integration.NewItemError(externalID, item.DecodeErr))
			if externalID != "" {
				seen[externalID] = struct{}{}
			}
			continue
		}
		if externalID == "" {
			plan.ItemErrors = append(plan.ItemErrors, integration.NewItemError("", ErrMissingExternalID))
			continue
		}
		if _, dup := seen[externalID]; dup {
			plan.ItemErrors = append(plan.ItemErrors, integration.NewItemError(externalID, ErrDuplicateExternalID))
			continue
		}
		seen[externalID] = struct{}{}

		quantity := item.TotalQuantity()
		if quantity.IsNegative() {
			plan.ItemErrors = append(plan.ItemErrors, integration.NewItemError(externalID, equipment.ErrEquipmentNegativeQty))
			continue
		}

		if existing, ok := snapshot.Lookup(externalID); ok {
			updated, err := r.buildUpdate(existing, item, syncedAt)
			if err != nil {
				plan.ItemErrors = append(plan.ItemErrors, integration.NewItemError(externalID, err))
				continue
			}
			plan.ToUpdate = append(plan.ToUpdate, WriteOp{Equipment: updated, Quantity: quantity})
			continue
		}

		created, err := r.buildCreate(externalID, item, knownSKUs, syncedAt)
		if err != nil {
			plan.ItemErrors = append(plan.ItemErrors, integration.NewItemError(externalID, err))
			continue
		}
		plan.ToCreate = append(plan.ToCreate, WriteOp{Equipment: created, Quantity: quantity})
	}

	plan.ToArchive = archiveSet(snapshot, seen)
	return plan
}

// buildUpdate copies the existing record and overwrites every feed-owned
// field. The SKU is carried over untouched.
func (r *Reconciler) buildUpdate(existing *equipment.Equipment, item *integration.ExternalItem, at time.Time) (*equipment.Equipment, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return nil, equipment.ErrEquipmentEmptyName
	}

	updated := *existing
	updated.Name = name
	applyFeedFields(&updated, item)
	updated.IsArchived = false
	updated.MarkSynced(at)
	return &updated, nil
}

func (r *Reconciler) buildCreate(externalID string, item *integration.ExternalItem, knownSKUs map[string]struct{}, at time.Time) (*equipment.Equipment, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return nil, equipment.ErrEquipmentEmptyName
	}

	sku := DisambiguateSKU(DeriveSKU(item), externalID, knownSKUs)
	created, err := equipment.NewEquipment(externalID, sku, name)
	if err != nil {
		return nil, err
	}
	applyFeedFields(created, item)
	created.CreatedAt = at
	created.MarkSynced(at)
	return created, nil
}

func applyFeedFields(e *equipment.Equipment, item *integration.ExternalItem) {
	e.Description = strings.TrimSpace(item.Memo)
	e.PricePerUnit = ExtractPrice(item.Attributes)
	e.UnitType = NormalizeUnit(item.UnitOfMeasure)
	e.PhotoURL = strings.TrimSpace(item.PhotoURL)
	e.Attributes = copyAttributes(item.Attributes)
}

func copyAttributes(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// archiveSet collects sourced records absent from this pass that are still
// active, plus every active legacy record. Ids are sorted for stable output.
func archiveSet(snapshot *equipment.Snapshot, seen map[string]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0)
	for externalID, rec := range snapshot.ByExternalID {
		if _, ok := seen[externalID]; ok || rec.IsArchived {
			continue
		}
		ids = append(ids, rec.ID)
	}
	for _, rec := range snapshot.Legacy {
		ids = append(ids, rec.ID)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
