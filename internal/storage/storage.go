// Package storage provides the local SQLite store: settings that override
// upstream base URLs and the audit trail of operator mutations.
package storage

import (
	"context"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	Settings() SettingsRepository
	Audit() AuditRepository
}

// SettingsRepository defines operations on the key-value settings table.
type SettingsRepository interface {
	// Get returns the setting stored under key, or nil when absent.
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*models.Setting, error)
	// BaseURLs returns the default base URL ("" when unset) and the
	// per-dashboard overrides.
	BaseURLs(ctx context.Context) (string, map[string]string, error)
}

// AuditRepository defines operations on the mutation audit trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	// List returns the newest entries first. limit <= 0 means 100.
	List(ctx context.Context, dashboard string, limit int) ([]*models.AuditEntry, error)
}
