package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(filepath.Join(t.TempDir(), "pricedesk.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}
	return store
}

func TestSQLiteStorage_OpenClose(t *testing.T) {
	store := setupTestDB(t)
	if store.DB() == nil {
		t.Fatal("database should be open")
	}
	if err := store.DB().Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteStorage_MigrateIdempotent(t *testing.T) {
	store := setupTestDB(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var version int
	if err := store.DB().QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestSQLiteStorage_OpenRequiresPath(t *testing.T) {
	if err := NewSQLiteStorage("").Open(); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSettings_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t).Settings()

	got, err := repo.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("Get(missing) = %v, %v", got, err)
	}

	if err := repo.Set(ctx, models.SettingBaseURL, "https://api.example.com"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, models.SettingBaseURL, "https://api2.example.com"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	got, err = repo.Get(ctx, models.SettingBaseURL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Value != "https://api2.example.com" {
		t.Fatalf("Get = %+v", got)
	}
	if time.Since(got.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt not set: %v", got.UpdatedAt)
	}

	if err := repo.Delete(ctx, models.SettingBaseURL); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.Get(ctx, models.SettingBaseURL); got != nil {
		t.Errorf("setting still present after Delete: %+v", got)
	}
}

func TestSettings_BaseURLs(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t).Settings()

	for k, v := range map[string]string{
		models.SettingBaseURL:              "https://api.example.com",
		models.BaseURLKey("logins"):        "https://auth.example.com",
		models.BaseURLKey("notifications"): "",
		"ui.theme":                         "dark",
	} {
		if err := repo.Set(ctx, k, v); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	base, overrides, err := repo.BaseURLs(ctx)
	if err != nil {
		t.Fatalf("BaseURLs: %v", err)
	}
	if base != "https://api.example.com" {
		t.Errorf("base = %q", base)
	}
	if len(overrides) != 1 || overrides["logins"] != "https://auth.example.com" {
		t.Errorf("overrides = %v", overrides)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 || all[0].Key != models.SettingBaseURL {
		t.Errorf("List = %d entries, first %q", len(all), all[0].Key)
	}
}

func TestAudit_CreateList(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t).Audit()
	user := &models.User{ID: "u1", Email: "mod@example.com", Role: models.RoleModerator}

	first := models.NewAuditEntry(user, "business-posts", "status", "p1", "approved")
	first.CreatedAt = time.Now().Add(-time.Minute).UTC()
	second := models.NewAuditEntry(user, "notifications", "delete", "n9", "")

	for _, e := range []*models.AuditEntry{first, second} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	all, err := repo.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("List order wrong: %+v", all)
	}
	if all[1].Detail != "approved" || all[1].UserEmail != "mod@example.com" {
		t.Errorf("entry fields lost: %+v", all[1])
	}

	posts, err := repo.List(ctx, "business-posts", 10)
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(posts) != 1 || posts[0].RecordID != "p1" {
		t.Errorf("filtered List = %+v", posts)
	}
}
