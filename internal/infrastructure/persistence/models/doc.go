// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: Base persistence model shared by mutable rows
// - catalog.go: Product stock columns read and written by reconciliation
// - integration.go: Append-only sync ledger
package models
