package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string { return c.name }
func (c stubChecker) Check(ctx context.Context) error { return c.err }

type stubPage struct{ err error }

func (p stubPage) LastError() error { return p.err }

func TestReady(t *testing.T) {
	down := errors.New("down")
	tests := []struct {
		name       string
		critical   error
		dashboard  error
		wantCode   int
		wantStatus string
	}{
		{"all healthy", nil, nil, http.StatusOK, "ready"},
		{"dashboard failing", nil, down, http.StatusOK, "degraded"},
		{"store failing", down, nil, http.StatusServiceUnavailable, "not_ready"},
		{"both failing", down, down, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler()
			h.RegisterChecker(stubChecker{name: "sqlite", err: tc.critical}, true)
			h.RegisterChecker(NewDashboardChecker("logins", stubPage{err: tc.dashboard}), false)

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tc.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tc.wantCode)
			}
			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tc.wantStatus)
			}
			if _, ok := resp.Checks["dashboard:logins"]; !ok {
				t.Errorf("checks = %v, missing dashboard:logins", resp.Checks)
			}
		})
	}
}

func TestSQLiteCheckerNilDB(t *testing.T) {
	if err := NewSQLiteChecker(nil).Check(context.Background()); err == nil {
		t.Error("Check() with nil db succeeded")
	}
}
