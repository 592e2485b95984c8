package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/equipsync/internal/domain/equipment"
	"github.com/erp/equipsync/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// feedOwnedColumns are overwritten when a known item is seen again. sku is never among them.
var feedOwnedColumns = []string{
	"external_id",
	"name",
	"description",
	"price_per_unit",
	"unit_type",
	"photo_url",
	"attributes",
	"last_synced_at",
	"is_archived",
	"updated_at",
}

// GormEquipmentRepository implements equipment.Repository using GORM
type GormEquipmentRepository struct {
	db *gorm.DB
}

var _ equipment.Repository = (*GormEquipmentRepository)(nil)

// NewGormEquipmentRepository creates a new GormEquipmentRepository
func NewGormEquipmentRepository(db *gorm.DB) *GormEquipmentRepository {
	return &GormEquipmentRepository{db: db}
}

// ---------------------------------------------------------------------------
// SnapshotLoader implementation
// ---------------------------------------------------------------------------

// LoadSnapshot reads every equipment row, archived ones included, in one query
func (r *GormEquipmentRepository) LoadSnapshot(ctx context.Context) (*equipment.Snapshot, error) {
	var rows []models.EquipmentModel
	if err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load equipment snapshot: %w", err)
	}

	records := make([]equipment.Equipment, len(rows))
	for i := range rows {
		records[i] = rows[i].ToDomain()
	}
	return equipment.NewSnapshot(records), nil
}

// ---------------------------------------------------------------------------
// EquipmentWriter implementation
// ---------------------------------------------------------------------------

// CreateWithInventory inserts the equipment row and then its inventory row in one transaction
func (r *GormEquipmentRepository) CreateWithInventory(ctx context.Context, e *equipment.Equipment, quantity decimal.Decimal) error {
	if err := e.Validate(); err != nil {
		return err
	}
	inv, err := equipment.NewInventoryLevel(e.ID, quantity)
	if err != nil {
		return err
	}

	model := models.EquipmentModelFromDomain(e)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return translateWriteError(err)
		}
		return tx.Create(&models.InventoryModel{
			EquipmentID: inv.EquipmentID,
			Quantity:    inv.Quantity,
			UpdatedAt:   e.UpdatedAt,
		}).Error
	})
}

// UpsertFromFeed overwrites the feed-owned columns of the row keyed by external_id
// and replaces its inventory quantity
func (r *GormEquipmentRepository) UpsertFromFeed(ctx context.Context, e *equipment.Equipment, quantity decimal.Decimal) error {
	if e.IsLegacy() {
		return fmt.Errorf("upsert %s: %w", e.SKU, equipment.ErrEquipmentInvalidID)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if quantity.IsNegative() {
		return equipment.ErrEquipmentNegativeQty
	}

	model := models.EquipmentModelFromDomain(e)
	model.IsArchived = false

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(feedOwnedColumns),
		}).Create(model).Error
		if err != nil {
			return translateWriteError(err)
		}

		// the row may predate this call under another id; key the stock row by the stored one
		var stored models.EquipmentModel
		if err := tx.Select("id").Where("external_id = ?", e.ExternalIDValue()).Take(&stored).Error; err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "equipment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).Create(&models.InventoryModel{
			EquipmentID: stored.ID,
			Quantity:    quantity,
			UpdatedAt:   e.UpdatedAt,
		}).Error
	})
}

// inListBatch bounds IN lists on dialects without array parameters
const inListBatch = 1000

// ArchiveByIDs archives every listed record and returns rows affected.
// On postgres the ids travel as one uuid[] parameter so a single UPDATE
// covers any number of records.
func (r *GormEquipmentRepository) ArchiveByIDs(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	updates := map[string]any{
		"is_archived":    true,
		"last_synced_at": at,
		"updated_at":     at,
	}

	if r.db.Dialector.Name() == "postgres" {
		result := r.db.WithContext(ctx).
			Model(&models.EquipmentModel{}).
			Where("id = ANY(?::uuid[])", uuidArray(ids)).
			Updates(updates)
		if result.Error != nil {
			return 0, result.Error
		}
		return result.RowsAffected, nil
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(ids); start += inListBatch {
			end := min(start+inListBatch, len(ids))
			result := tx.Model(&models.EquipmentModel{}).
				Where("id IN ?", ids[start:end]).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			affected += result.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func uuidArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// ---------------------------------------------------------------------------
// Read helpers
// ---------------------------------------------------------------------------

// FindByExternalID returns the record linked to a feed item
func (r *GormEquipmentRepository) FindByExternalID(ctx context.Context, externalID string) (*equipment.Equipment, error) {
	var model models.EquipmentModel
	if err := r.db.WithContext(ctx).First(&model, "external_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, equipment.ErrEquipmentNotFound
		}
		return nil, err
	}
	e := model.ToDomain()
	return &e, nil
}

// InventoryOf returns the stock row of an equipment record
func (r *GormEquipmentRepository) InventoryOf(ctx context.Context, equipmentID uuid.UUID) (*equipment.InventoryLevel, error) {
	var model models.InventoryModel
	if err := r.db.WithContext(ctx).First(&model, "equipment_id = ?", equipmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, equipment.ErrEquipmentNotFound
		}
		return nil, err
	}
	level := model.ToDomain()
	return &level, nil
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", equipment.ErrEquipmentConflict, err)
	}
	return err
}
