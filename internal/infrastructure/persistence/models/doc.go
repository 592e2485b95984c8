// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities carry no GORM tags
// 2. Persistence models contain all GORM annotations and table mappings
// 3. ToDomain/FromDomain mappers convert between the two
//
// Structure:
// - base.go: BaseModel (id + timestamps)
// - equipment.go: EquipmentModel and its paired InventoryModel
// - sync_run.go: SyncRunModel, the stored summary of each run
package models
