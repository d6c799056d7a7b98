package health

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// LoadStatus reports the outcome of a dashboard's last load.
type LoadStatus interface {
	LastError() error
}

// DashboardChecker fails while a dashboard's last load failed.
type DashboardChecker struct {
	name string
	page LoadStatus
}

// NewDashboardChecker creates a checker for the named dashboard.
func NewDashboardChecker(name string, page LoadStatus) *DashboardChecker {
	return &DashboardChecker{name: name, page: page}
}

// Name returns the checker name.
func (c *DashboardChecker) Name() string {
	return "dashboard:" + c.name
}

// Check returns the last load error, if any.
func (c *DashboardChecker) Check(ctx context.Context) error {
	return c.page.LastError()
}
