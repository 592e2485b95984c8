// Package equipment contains the Equipment bounded context.
// It owns the local system-of-record for rentable equipment and its stock level.
//
// Key concepts:
//   - Equipment: Entity keyed by ID, optionally linked to an external feed item by ExternalID
//   - InventoryLevel: Paired child row holding the aggregate quantity of an equipment record
//   - Snapshot: Consistent read of local state used by the inventory reconciliation run
//   - UnitType: Closed set of canonical units of measure
//
// Design Pattern: Ports & Adapters
//   - Store ports (SnapshotLoader, EquipmentWriter) are defined here
//   - Adapters (GORM repositories) live in the infrastructure layer
package equipment
