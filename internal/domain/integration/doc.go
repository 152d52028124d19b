// Package integration contains the Integration bounded context.
// This context keeps local catalog stock consistent with the external inventory platform.
//
// Key concepts:
//   - InventoryPlatform: Port interface for the warehouse/inventory platform (Ginee)
//   - StockSnapshot: Value object describing remote stock for one SKU, tagged with the strategy that produced it
//   - LookupOutcome: Result of one stock lookup strategy (found, not found, inconclusive)
//   - SyncLedgerEntry: Append-only audit record of every reconciliation attempt
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
