package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
	"github.com/good-yellow-bee/pricedesk/internal/api/middleware"
	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/filter"
	"github.com/good-yellow-bee/pricedesk/internal/models"
	"github.com/good-yellow-bee/pricedesk/internal/upstream"
)

type ctxKey string

const pageKey ctxKey = "page"

// overviewConcurrency bounds concurrent upstream loads of the overview.
const overviewConcurrency = 4

// MeResponse describes the authenticated caller.
type MeResponse struct {
	*models.User
	Capabilities []models.Capability `json:"capabilities"`
}

// DashboardSummary lists one dashboard the caller may view.
type DashboardSummary struct {
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Charts    []string  `json:"charts"`
	ReadOnly  bool      `json:"read_only"`
	CanManage bool      `json:"can_manage"`
	Statuses  []string  `json:"statuses,omitempty"`
	Loading   bool      `json:"loading"`
	LoadedAt  time.Time `json:"loaded_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DashboardResponse is a dashboard view with its rows paginated.
type DashboardResponse struct {
	*dashboard.View
	Pagination Pagination `json:"pagination"`
}

// OverviewEntry is the KPI summary of one dashboard.
type OverviewEntry struct {
	Name     string       `json:"name"`
	Title    string       `json:"title"`
	Total    int          `json:"total"`
	Stats    []models.KPI `json:"stats"`
	LoadedAt time.Time    `json:"loaded_at,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// StatusRequest is the body of a status update.
type StatusRequest struct {
	Status string `json:"status"`
}

func viewCapability(def *dashboard.Definition) models.Capability {
	if def.View != "" {
		return def.View
	}
	return models.CapViewDashboards
}

func canManage(ctx context.Context, def *dashboard.Definition) bool {
	return !def.ReadOnly() && auth.HasPermission(ctx, def.Manage)
}

// withPage resolves {name} to a page the caller may view.
func (s *Server) withPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := s.pages[chi.URLParam(r, "name")]
		if !ok {
			JSONError(w, ErrDashboardNotFound)
			return
		}
		if !auth.HasPermission(r.Context(), viewCapability(page.Definition())) {
			JSONError(w, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), pageKey, page)))
	})
}

func pageFrom(ctx context.Context) *dashboard.Page {
	p, _ := ctx.Value(pageKey).(*dashboard.Page)
	return p
}

// ensureLoaded loads a page that has never been loaded. A failed load is
// kept on the page and reported by its view.
func (s *Server) ensureLoaded(ctx context.Context, page *dashboard.Page) {
	loadedAt, lastErr := page.Status()
	if !loadedAt.IsZero() || lastErr != nil {
		return
	}
	err := page.Load(ctx)
	if err != nil && !errors.Is(err, dashboard.ErrLoadInProgress) && !errors.Is(err, dashboard.ErrStaleLoad) {
		s.log.WithError(err).WithField("dashboard", page.Definition().Name).Debug("initial load failed")
	}
}

// authFailure writes AUTH_REQUIRED when the page's last load was rejected
// by the upstream auth service.
func (s *Server) authFailure(w http.ResponseWriter, page *dashboard.Page) bool {
	if upstream.IsAuth(page.LastError()) {
		JSONError(w, NewAuthRequired(s.config.LoginURL))
		return true
	}
	return false
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserInfo(r.Context())
	if !ok {
		JSONError(w, NewAuthRequired(s.config.LoginURL))
		return
	}
	OK(w, MeResponse{User: user, Capabilities: user.Capabilities()})
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out := make([]DashboardSummary, 0, len(s.pages))
	for _, def := range s.registry.All() {
		page, ok := s.pages[def.Name]
		if !ok || !auth.HasPermission(ctx, viewCapability(def)) {
			continue
		}
		sum := DashboardSummary{
			Name:      def.Name,
			Title:     def.Title,
			Charts:    make([]string, 0, len(def.Charts)),
			ReadOnly:  def.ReadOnly(),
			CanManage: canManage(ctx, def),
			Loading:   page.Loading(),
		}
		for _, c := range def.Charts {
			sum.Charts = append(sum.Charts, c.Name)
		}
		if def.UpdateStatus != nil {
			sum.Statuses = def.UpdateStatus.Allowed
		}
		loadedAt, lastErr := page.Status()
		sum.LoadedAt = loadedAt
		if lastErr != nil {
			sum.Error = upstream.UserMessage(lastErr, def.What)
		}
		out = append(out, sum)
	}
	OK(w, out)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r.Context())

	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		JSONError(w, NewBadRequest(err.Error()))
		return
	}

	s.ensureLoaded(r.Context(), page)
	if s.authFailure(w, page) {
		return
	}

	view, err := page.View(criteria)
	if err != nil {
		JSONError(w, NewBadRequest(err.Error()))
		return
	}

	pageNum, perPage := parsePagination(r)
	start, end, p := paginate(len(view.Rows), pageNum, perPage)
	view.Rows = view.Rows[start:end]
	OK(w, DashboardResponse{View: view, Pagination: p})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r.Context())

	s.ensureLoaded(r.Context(), page)
	if s.authFailure(w, page) {
		return
	}

	view, err := page.View(models.AllCriteria())
	if err != nil {
		JSONError(w, FromError(err, page.Definition().What, s.config.LoginURL))
		return
	}
	OK(w, OverviewEntry{
		Name:     view.Dashboard,
		Title:    view.Title,
		Total:    view.Total,
		Stats:    view.Stats,
		LoadedAt: view.LoadedAt,
		Error:    view.Error,
	})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r.Context())

	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		JSONError(w, NewBadRequest(err.Error()))
		return
	}

	name := chi.URLParam(r, "chart")
	chart, ok := page.Definition().Chart(name)
	if !ok {
		JSONError(w, NewNotFound("Chart not found"))
		return
	}

	s.ensureLoaded(r.Context(), page)
	if s.authFailure(w, page) {
		return
	}

	result, err := page.Chart(name, criteria)
	if err != nil {
		JSONError(w, FromError(err, page.Definition().What, s.config.LoginURL))
		return
	}
	OK(w, dashboard.ChartResult{Name: chart.Name, Title: chart.Title, Scope: chart.Scope, Result: result})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	page := pageFrom(r.Context())
	def := page.Definition()

	if err := page.Load(r.Context()); err != nil {
		JSONError(w, FromError(err, def.What, s.config.LoginURL))
		return
	}

	loadedAt, _ := page.Status()
	OK(w, map[string]any{
		"dashboard": def.Name,
		"loaded_at": loadedAt,
	})
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pageFrom(ctx)
	def := page.Definition()

	if def.ReadOnly() {
		JSONError(w, FromError(dashboard.ErrReadOnly, def.What, s.config.LoginURL))
		return
	}
	if !auth.HasPermission(ctx, def.Manage) {
		JSONError(w, ErrForbidden)
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		JSONError(w, NewBadRequest("invalid request body"))
		return
	}
	if req.Status == "" {
		JSONError(w, NewValidationError("status is required"))
		return
	}

	id := chi.URLParam(r, "id")
	msg, err := page.SetStatus(ctx, id, req.Status)
	if err != nil {
		JSONError(w, FromError(err, def.What, s.config.LoginURL))
		return
	}

	s.audit(r, def.Name, "status", id, req.Status)
	OK(w, MutationResponse{Message: msg, RecordID: id})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := pageFrom(ctx)
	def := page.Definition()

	if def.ReadOnly() {
		JSONError(w, FromError(dashboard.ErrReadOnly, def.What, s.config.LoginURL))
		return
	}
	if !auth.HasPermission(ctx, def.Manage) {
		JSONError(w, ErrForbidden)
		return
	}

	id := chi.URLParam(r, "id")
	msg, err := page.Delete(ctx, id)
	if err != nil {
		JSONError(w, FromError(err, def.What, s.config.LoginURL))
		return
	}

	s.audit(r, def.Name, "delete", id, "")
	OK(w, MutationResponse{Message: msg, RecordID: id})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var visible []*dashboard.Page
	for _, def := range s.registry.All() {
		if page, ok := s.pages[def.Name]; ok && auth.HasPermission(ctx, viewCapability(def)) {
			visible = append(visible, page)
		}
	}

	// Pages are independent; a failed load is reported in its entry.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(overviewConcurrency)
	for _, page := range visible {
		g.Go(func() error {
			s.ensureLoaded(gctx, page)
			return nil
		})
	}
	g.Wait()

	out := make([]OverviewEntry, 0, len(visible))
	for _, page := range visible {
		if s.authFailure(w, page) {
			return
		}
		view, err := page.View(models.AllCriteria())
		if err != nil {
			JSONError(w, ErrInternalServer)
			return
		}
		out = append(out, OverviewEntry{
			Name:     view.Dashboard,
			Title:    view.Title,
			Total:    view.Total,
			Stats:    view.Stats,
			LoadedAt: view.LoadedAt,
			Error:    view.Error,
		})
	}
	OK(w, out)
}

// audit records a mutation. Failures are logged, the mutation already
// happened upstream.
func (s *Server) audit(r *http.Request, dashboardName, action, recordID, detail string) {
	user, _ := auth.UserInfo(r.Context())
	entry := models.NewAuditEntry(user, dashboardName, action, recordID, detail)
	if err := s.storage.Audit().Create(r.Context(), entry); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"dashboard":  dashboardName,
			"action":     action,
			"record_id":  recordID,
			"request_id": middleware.GetRequestID(r.Context()),
		}).Error("write audit entry")
	}
}
