// Package health provides health check endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/good-yellow-bee/pricedesk/pkg/config"
)

const checkTimeout = 5 * time.Second

// Checker defines the interface for health checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type registered struct {
	Checker
	critical bool
}

// Handler manages health check endpoints.
//
// Critical checkers (the settings store) decide readiness. Non-critical ones
// (dashboard loads) only mark the service degraded.
type Handler struct {
	mu       sync.RWMutex
	checkers []registered
	started  time.Time
}

// NewHandler creates a new health handler.
func NewHandler() *Handler {
	return &Handler{started: time.Now()}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, registered{Checker: c, critical: critical})
}

// Response is the body of every health endpoint.
type Response struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health reports that the process is up, with its version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Status:  "ok",
		Version: config.Version,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Live is the liveness probe.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "live"})
}

// Ready is the readiness probe: 503 when a critical check fails, 200 with
// status "degraded" when only non-critical checks fail.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status, checks := h.run(ctx)
	code := http.StatusOK
	if status == "not_ready" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, Response{Status: status, Checks: checks})
}

func (h *Handler) run(ctx context.Context) (string, map[string]string) {
	h.mu.RLock()
	checkers := make([]registered, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	errs := make([]error, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = c.Check(ctx)
		}()
	}
	wg.Wait()

	status := "ready"
	checks := make(map[string]string, len(checkers))
	for i, c := range checkers {
		if errs[i] == nil {
			checks[c.Name()] = "ok"
			continue
		}
		checks[c.Name()] = errs[i].Error()
		switch {
		case c.critical:
			status = "not_ready"
		case status == "ready":
			status = "degraded"
		}
	}
	return status, checks
}

func writeJSON(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
