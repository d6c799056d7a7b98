package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Setting keys. Per-dashboard base URLs use BaseURLKeyPrefix + dashboard name.
const (
	SettingBaseURL   = "api.base_url"
	BaseURLKeyPrefix = "api.base_url."
)

// Setting is one locally persisted key-value pair.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BaseURLKey returns the setting key holding the base URL override of
// dashboard.
func BaseURLKey(dashboard string) string {
	return BaseURLKeyPrefix + dashboard
}

// DashboardFromKey returns the dashboard a base URL override key belongs to.
func DashboardFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, BaseURLKeyPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(key, BaseURLKeyPrefix)
	return name, name != ""
}

// AuditEntry records one mutation an operator sent upstream.
type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserEmail string    `json:"user_email"`
	Dashboard string    `json:"dashboard"`
	Action    string    `json:"action"`
	RecordID  string    `json:"record_id"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewAuditEntry creates an audit entry with a fresh id.
func NewAuditEntry(user *User, dashboard, action, recordID, detail string) *AuditEntry {
	e := &AuditEntry{
		ID:        uuid.New().String(),
		Dashboard: dashboard,
		Action:    action,
		RecordID:  recordID,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}
	if user != nil {
		e.UserID = user.ID
		e.UserEmail = user.Email
	}
	return e
}
