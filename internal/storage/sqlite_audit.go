package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

const defaultAuditLimit = 100

type sqliteAuditRepo struct {
	db *sql.DB
}

func (r *sqliteAuditRepo) Create(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, user_id, user_email, dashboard, action, record_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.UserEmail, e.Dashboard, e.Action, e.RecordID, e.Detail, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *sqliteAuditRepo) List(ctx context.Context, dashboard string, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	query := `
		SELECT id, user_id, user_email, dashboard, action, record_id, COALESCE(detail, ''), created_at
		FROM audit_log
	`
	args := []any{}
	if dashboard != "" {
		query += " WHERE dashboard = ?"
		args = append(args, dashboard)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserEmail, &e.Dashboard, &e.Action, &e.RecordID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
