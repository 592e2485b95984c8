// Package integration contains the Integration bounded context.
// This context manages the authoritative third-party inventory feed and the
// outcome of reconciling it into the local equipment store.
//
// Key concepts:
//   - InventoryFeed: Port interface for fetching the full external listing
//   - ExternalItem: Value object holding one normalized feed item
//   - SyncResult: Summary of one reconciliation run (counts + errors)
//   - ItemError / PersistenceError: Per-item failures that never abort a run
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
