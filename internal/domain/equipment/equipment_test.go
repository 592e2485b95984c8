package equipment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewEquipment(t *testing.T) {
	t.Run("creates feed-sourced record with defaults", func(t *testing.T) {
		e, err := NewEquipment("42", "  CAM-01 ", "Camera")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, e.ID)
		assert.Equal(t, "CAM-01", e.SKU)
		assert.Equal(t, "42", e.ExternalIDValue())
		assert.Equal(t, UnitTypeUnit, e.UnitType)
		assert.True(t, e.PricePerUnit.IsZero())
		assert.False(t, e.IsLegacy())
		assert.False(t, e.IsArchived)
	})

	t.Run("empty external ID yields a legacy record", func(t *testing.T) {
		e, err := NewEquipment("", "SKU", "Tripod")
		require.NoError(t, err)
		assert.True(t, e.IsLegacy())
		assert.Nil(t, e.ExternalID)
	})

	t.Run("rejects empty SKU", func(t *testing.T) {
		_, err := NewEquipment("1", " ", "Camera")
		assert.ErrorIs(t, err, ErrEquipmentEmptySKU)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewEquipment("1", "SKU", "")
		assert.ErrorIs(t, err, ErrEquipmentEmptyName)
	})
}

func TestEquipment_Validate(t *testing.T) {
	valid := func() *Equipment {
		e, _ := NewEquipment("1", "SKU-1", "Light")
		return e
	}

	tests := []struct {
		name    string
		mutate  func(e *Equipment)
		wantErr error
	}{
		{name: "valid", mutate: func(e *Equipment) {}},
		{name: "nil id", mutate: func(e *Equipment) { e.ID = uuid.Nil }, wantErr: ErrEquipmentInvalidID},
		{name: "blank sku", mutate: func(e *Equipment) { e.SKU = "" }, wantErr: ErrEquipmentEmptySKU},
		{name: "blank name", mutate: func(e *Equipment) { e.Name = " " }, wantErr: ErrEquipmentEmptyName},
		{name: "unknown unit", mutate: func(e *Equipment) { e.UnitType = "BARREL" }, wantErr: ErrEquipmentInvalidUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEquipment_MarkSynced(t *testing.T) {
	e, _ := NewEquipment("1", "SKU", "Name")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	e.MarkSynced(at)

	require.NotNil(t, e.LastSyncedAt)
	assert.Equal(t, at, *e.LastSyncedAt)
	assert.Equal(t, at, e.UpdatedAt)
}

func TestUnitType_IsValid(t *testing.T) {
	for _, u := range AllUnitTypes() {
		assert.True(t, u.IsValid(), u.String())
	}
	assert.False(t, UnitType("").IsValid())
	assert.False(t, UnitType("unit").IsValid())
}

func TestNewInventoryLevel(t *testing.T) {
	id := uuid.New()

	lvl, err := NewInventoryLevel(id, decimal.NewFromInt(7))
	require.NoError(t, err)
	assert.Equal(t, id, lvl.EquipmentID)
	assert.True(t, lvl.Quantity.Equal(decimal.NewFromInt(7)))

	_, err = NewInventoryLevel(uuid.Nil, decimal.Zero)
	assert.ErrorIs(t, err, ErrEquipmentInvalidID)

	_, err = NewInventoryLevel(id, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrEquipmentNegativeQty)
}

func TestNewSnapshot(t *testing.T) {
	active := Equipment{ID: uuid.New(), ExternalID: strPtr("10"), SKU: "A"}
	archived := Equipment{ID: uuid.New(), ExternalID: strPtr("11"), SKU: "B", IsArchived: true}
	legacy := Equipment{ID: uuid.New(), SKU: "C"}
	legacyArchived := Equipment{ID: uuid.New(), SKU: "D", IsArchived: true}
	emptyExternal := Equipment{ID: uuid.New(), ExternalID: strPtr(""), SKU: "E"}

	s := NewSnapshot([]Equipment{active, archived, legacy, legacyArchived, emptyExternal})

	t.Run("indexes sourced records by external id including archived", func(t *testing.T) {
		assert.Len(t, s.ByExternalID, 2)
		rec, ok := s.Lookup("11")
		require.True(t, ok)
		assert.True(t, rec.IsArchived)
	})

	t.Run("collects every SKU", func(t *testing.T) {
		for _, sku := range []string{"A", "B", "C", "D", "E"} {
			assert.Contains(t, s.SKUs, sku)
		}
		assert.NotContains(t, s.SKUs, "Z")
	})

	t.Run("legacy list only holds non-archived rows without external id", func(t *testing.T) {
		require.Len(t, s.Legacy, 2)
		ids := []uuid.UUID{s.Legacy[0].ID, s.Legacy[1].ID}
		assert.Contains(t, ids, legacy.ID)
		assert.Contains(t, ids, emptyExternal.ID)
	})

	t.Run("CloneSKUs is independent of the snapshot", func(t *testing.T) {
		clone := s.CloneSKUs()
		clone["NEW"] = struct{}{}
		assert.NotContains(t, s.SKUs, "NEW")
	})
}
