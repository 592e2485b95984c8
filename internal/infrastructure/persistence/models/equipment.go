package models

import (
	"time"

	"github.com/erp/equipsync/internal/domain/equipment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// EquipmentModel is the persistence model for the Equipment entity.
// sku is unique across active and archived rows; external_id is unique where set.
type EquipmentModel struct {
	BaseModel
	ExternalID   *string            `gorm:"type:varchar(100);uniqueIndex:idx_equipment_external_id"`
	SKU          string             `gorm:"column:sku;type:varchar(150);not null;uniqueIndex:idx_equipment_sku"`
	Name         string             `gorm:"type:varchar(255);not null"`
	Description  string             `gorm:"type:text"`
	PricePerUnit decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	UnitType     equipment.UnitType `gorm:"type:varchar(20);not null;default:'UNIT'"`
	PhotoURL     string             `gorm:"type:varchar(1024)"`
	Attributes   datatypes.JSONMap
	LastSyncedAt *time.Time
	IsArchived   bool `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (EquipmentModel) TableName() string {
	return "equipment"
}

// ToDomain converts the persistence model to a domain Equipment
func (m *EquipmentModel) ToDomain() equipment.Equipment {
	attrs := make(map[string]any, len(m.Attributes))
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	return equipment.Equipment{
		ID:           m.ID,
		ExternalID:   m.ExternalID,
		SKU:          m.SKU,
		Name:         m.Name,
		Description:  m.Description,
		PricePerUnit: m.PricePerUnit,
		UnitType:     m.UnitType,
		PhotoURL:     m.PhotoURL,
		Attributes:   attrs,
		LastSyncedAt: m.LastSyncedAt,
		IsArchived:   m.IsArchived,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// EquipmentModelFromDomain creates a persistence model from a domain Equipment
func EquipmentModelFromDomain(e *equipment.Equipment) *EquipmentModel {
	attrs := datatypes.JSONMap{}
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	var externalID *string
	if !e.IsLegacy() {
		id := e.ExternalIDValue()
		externalID = &id
	}
	return &EquipmentModel{
		BaseModel: BaseModel{
			ID:        e.ID,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		},
		ExternalID:   externalID,
		SKU:          e.SKU,
		Name:         e.Name,
		Description:  e.Description,
		PricePerUnit: e.PricePerUnit,
		UnitType:     e.UnitType,
		PhotoURL:     e.PhotoURL,
		Attributes:   attrs,
		LastSyncedAt: e.LastSyncedAt,
		IsArchived:   e.IsArchived,
	}
}

// InventoryModel is the paired stock row of an equipment record
type InventoryModel struct {
	EquipmentID uuid.UUID       `gorm:"type:uuid;primary_key"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InventoryModel) TableName() string {
	return "equipment_inventory"
}

// ToDomain converts the persistence model to a domain InventoryLevel
func (m *InventoryModel) ToDomain() equipment.InventoryLevel {
	return equipment.InventoryLevel{
		EquipmentID: m.EquipmentID,
		Quantity:    m.Quantity,
		UpdatedAt:   m.UpdatedAt,
	}
}
