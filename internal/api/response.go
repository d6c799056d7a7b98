package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Response is a standard API response wrapper.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := Response{Data: data}
	json.NewEncoder(w).Encode(resp)
}

// JSONError writes a JSON error response.
func JSONError(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)

	resp := Response{Error: err}
	json.NewEncoder(w).Encode(resp)
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// MutationResponse is returned by record mutations.
type MutationResponse struct {
	Message  string `json:"message,omitempty"`
	RecordID string `json:"record_id"`
}

// Pagination is the page window of a row listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// parsePagination reads page and per_page. Invalid values fall back to the
// defaults.
func parsePagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// paginate returns the [start, end) window of total items. Pages past the
// last one yield an empty window.
func paginate(total, page, perPage int) (start, end int, p Pagination) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	p = Pagination{Page: page, PerPage: perPage, Total: total}
	p.TotalPages = total / perPage
	if total%perPage != 0 {
		p.TotalPages++
	}
	if page > p.TotalPages {
		return total, total, p
	}
	start = (page - 1) * perPage
	end = min(start+perPage, total)
	return start, end, p
}
