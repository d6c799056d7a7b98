package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/pricedesk/internal/api/auth"
	"github.com/good-yellow-bee/pricedesk/internal/dashboard"
	"github.com/good-yellow-bee/pricedesk/internal/importer"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

const maxImportSize = 5 << 20

// ImportResponse reports a validated, and possibly submitted, import.
type ImportResponse struct {
	*importer.Report
	Valid     int    `json:"valid"`
	Submitted bool   `json:"submitted"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 1000 {
		limit = 1000
	}

	entries, err := s.storage.Audit().List(r.Context(), r.URL.Query().Get("dashboard"), limit)
	if err != nil {
		s.log.WithError(err).Error("list audit entries")
		JSONError(w, ErrInternalServer)
		return
	}
	if entries == nil {
		entries = []*models.AuditEntry{}
	}
	OK(w, entries)
}

// handleImport validates an import file. Valid items are submitted only
// with ?confirm=true; otherwise the validation report is returned.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	kind, ok := importer.LookupKind(chi.URLParam(r, "kind"))
	if !ok {
		JSONError(w, NewNotFound("Unknown import kind"))
		return
	}
	def, ok := s.registry.Lookup(kind.Dashboard)
	if !ok || def.ReadOnly() {
		JSONError(w, NewNotFound("Unknown import kind"))
		return
	}
	if !auth.HasPermission(ctx, def.Manage) {
		JSONError(w, ErrForbidden)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		JSONError(w, NewBadRequest("import body too large or unreadable"))
		return
	}

	rep, err := importer.Parse(kind.Name, data)
	if err != nil {
		JSONError(w, NewBadRequest(err.Error()))
		return
	}
	resp := ImportResponse{Report: rep, Valid: len(rep.Valid)}

	if r.URL.Query().Get("confirm") != "true" {
		OK(w, resp)
		return
	}
	if s.importer == nil {
		JSONError(w, &Error{Code: ErrCodeBadRequest, Message: "Import is not configured", Status: http.StatusNotImplemented})
		return
	}

	res, err := importer.Submit(ctx, s.importer, rep)
	if err != nil {
		if errors.Is(err, importer.ErrNothingToImport) {
			JSONError(w, NewValidationError("No valid items to import"))
			return
		}
		JSONError(w, FromError(err, def.What, s.config.LoginURL))
		return
	}

	s.audit(r, def.Name, "import", "", strconv.Itoa(len(rep.Valid))+" items")
	if page, ok := s.pages[def.Name]; ok {
		s.reload(r, page)
	}

	resp.Submitted = true
	resp.Message = res.Message
	OK(w, resp)
}

// reload discards a page's collection and loads it again.
func (s *Server) reload(r *http.Request, page *dashboard.Page) {
	page.Invalidate()
	if err := page.Load(r.Context()); err != nil {
		s.log.WithError(err).WithField("dashboard", page.Definition().Name).Warn("reload failed")
	}
}
