// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel and the JSONMap column type
// - catalog.go: products, variants, inventories, media and taxonomy
// - supplier.go: provider accounts, supplier product links and sync logs
// - import_log.go: manual bulk import audit records
//
// Partial unique indexes (one main image per gallery) live in the SQL
// migrations; the tags here only carry what AutoMigrate can express.
package models
