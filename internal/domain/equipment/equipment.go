package equipment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Equipment Errors
// ---------------------------------------------------------------------------

var (
	ErrEquipmentNotFound    = errors.New("equipment: record not found")
	ErrEquipmentInvalidID   = errors.New("equipment: invalid equipment ID")
	ErrEquipmentEmptySKU    = errors.New("equipment: SKU is required")
	ErrEquipmentEmptyName   = errors.New("equipment: name is required")
	ErrEquipmentConflict    = errors.New("equipment: SKU or external ID already in use")
	ErrEquipmentInvalidUnit = errors.New("equipment: invalid unit type")
	ErrEquipmentNegativeQty = errors.New("equipment: quantity cannot be negative")
)

// ---------------------------------------------------------------------------
// UnitType
// ---------------------------------------------------------------------------

// UnitType is the canonical unit of measure for an equipment record
type UnitType string

const (
	UnitTypeUnit     UnitType = "UNIT"
	UnitTypePair     UnitType = "PAIR"
	UnitTypeSet      UnitType = "SET"
	UnitTypeBox      UnitType = "BOX"
	UnitTypeCase     UnitType = "CASE"
	UnitTypePack     UnitType = "PACK"
	UnitTypeRoll     UnitType = "ROLL"
	UnitTypeKilogram UnitType = "KILOGRAM"
	UnitTypeGram     UnitType = "GRAM"
	UnitTypePound    UnitType = "POUND"
	UnitTypeLiter    UnitType = "LITER"
	UnitTypeMeter    UnitType = "METER"
	UnitTypeFoot     UnitType = "FOOT"
	UnitTypeHour     UnitType = "HOUR"
	UnitTypeDay      UnitType = "DAY"
	UnitTypeOther    UnitType = "OTHER"
)

// AllUnitTypes returns every canonical unit type
func AllUnitTypes() []UnitType {
	return []UnitType{
		UnitTypeUnit, UnitTypePair, UnitTypeSet, UnitTypeBox, UnitTypeCase,
		UnitTypePack, UnitTypeRoll, UnitTypeKilogram, UnitTypeGram, UnitTypePound,
		UnitTypeLiter, UnitTypeMeter, UnitTypeFoot, UnitTypeHour, UnitTypeDay,
		UnitTypeOther,
	}
}

// IsValid returns true if the unit type is one of the canonical values
func (u UnitType) IsValid() bool {
	for _, known := range AllUnitTypes() {
		if u == known {
			return true
		}
	}
	return false
}

// String returns the string representation of UnitType
func (u UnitType) String() string {
	return string(u)
}

// ---------------------------------------------------------------------------
// Equipment Entity
// ---------------------------------------------------------------------------

// Equipment is a local equipment record.
// SKU is unique across active and archived rows and never changes after creation.
type Equipment struct {
	// ID is the local identifier
	ID uuid.UUID
	// ExternalID links the record to an item in the external feed (nil for legacy records)
	ExternalID *string
	// SKU is the stock-keeping identifier referenced by other subsystems
	SKU string
	Name        string
	Description string
	// PricePerUnit is the rental/list price for one unit
	PricePerUnit decimal.Decimal
	UnitType     UnitType
	PhotoURL     string
	// Attributes is the raw attribute map last reported by the feed
	Attributes map[string]any
	// LastSyncedAt is when the feed last touched this record
	LastSyncedAt *time.Time
	IsArchived   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewEquipment creates a feed-sourced equipment record
func NewEquipment(externalID, sku, name string) (*Equipment, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, ErrEquipmentEmptySKU
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEquipmentEmptyName
	}

	now := time.Now()
	e := &Equipment{
		ID:           uuid.New(),
		SKU:          sku,
		Name:         name,
		PricePerUnit: decimal.Zero,
		UnitType:     UnitTypeUnit,
		Attributes:   make(map[string]any),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if externalID != "" {
		e.ExternalID = &externalID
	}
	return e, nil
}

// IsLegacy returns true if the record was never sourced from the external feed
func (e *Equipment) IsLegacy() bool {
	return e.ExternalID == nil || *e.ExternalID == ""
}

// ExternalIDValue returns the external ID or an empty string for legacy records
func (e *Equipment) ExternalIDValue() string {
	if e.ExternalID == nil {
		return ""
	}
	return *e.ExternalID
}

// Validate checks the invariants that every persisted record must hold
func (e *Equipment) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEquipmentInvalidID
	}
	if strings.TrimSpace(e.SKU) == "" {
		return ErrEquipmentEmptySKU
	}
	if strings.TrimSpace(e.Name) == "" {
		return ErrEquipmentEmptyName
	}
	if !e.UnitType.IsValid() {
		return ErrEquipmentInvalidUnit
	}
	return nil
}

// MarkSynced stamps the record as touched by the feed at the given time
func (e *Equipment) MarkSynced(at time.Time) {
	e.LastSyncedAt = &at
	e.UpdatedAt = at
}

// ---------------------------------------------------------------------------
// InventoryLevel
// ---------------------------------------------------------------------------

// InventoryLevel is the paired stock row for an equipment record
type InventoryLevel struct {
	EquipmentID uuid.UUID
	// Quantity is the sum of all per-location quantities reported by the feed
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// NewInventoryLevel creates an inventory row for the given equipment
func NewInventoryLevel(equipmentID uuid.UUID, quantity decimal.Decimal) (*InventoryLevel, error) {
	if equipmentID == uuid.Nil {
		return nil, ErrEquipmentInvalidID
	}
	if quantity.IsNegative() {
		return nil, ErrEquipmentNegativeQty
	}
	return &InventoryLevel{
		EquipmentID: equipmentID,
		Quantity:    quantity,
		UpdatedAt:   time.Now(),
	}, nil
}

// ---------------------------------------------------------------------------
// Store Ports
// ---------------------------------------------------------------------------

// SnapshotLoader reads the current local state in one consistent pass
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (*Snapshot, error)
}

// EquipmentWriter applies reconciliation writes to the local store.
// Every method is an idempotent replace by identity.
type EquipmentWriter interface {
	// CreateWithInventory inserts the equipment row and then its paired inventory row
	CreateWithInventory(ctx context.Context, e *Equipment, quantity decimal.Decimal) error
	// UpsertFromFeed overwrites the feed-owned fields of an existing record keyed by external ID
	// and clears its archived flag. The SKU column is never written.
	UpsertFromFeed(ctx context.Context, e *Equipment, quantity decimal.Decimal) error
	// ArchiveByIDs archives every record in ids in one bulk update and returns rows affected
	ArchiveByIDs(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
}

// Repository combines the read and write ports used by a sync run
type Repository interface {
	SnapshotLoader
	EquipmentWriter
}
