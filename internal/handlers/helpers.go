package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// RequireMethod writes a 405 and returns false unless r uses method
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// WriteJSON writes data as the JSON response body
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes {"status":"success","message":...}
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes {"status":"error","error":...} with statusCode
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteDownload serves data as an attachment named filename.
// Range and HEAD requests are handled by http.ServeContent.
func WriteDownload(w http.ResponseWriter, r *http.Request, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeContent(w, r, filename, time.Time{}, bytes.NewReader(data))
}

// PaginationResponse is the page metadata returned with listings
type PaginationResponse struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// GetPaginationParams reads the 0-indexed page and the page size
// (pageSize or page_size, default 50, at most 500). Invalid values fall back
// to the defaults.
func GetPaginationParams(r *http.Request) (page, pageSize int) {
	q := r.URL.Query()

	page = 0
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p >= 0 {
		page = p
	}

	raw := q.Get("pageSize")
	if raw == "" {
		raw = q.Get("page_size")
	}
	pageSize = defaultPageSize
	if ps, err := strconv.Atoi(raw); err == nil && ps > 0 {
		pageSize = min(ps, maxPageSize)
	}
	return page, pageSize
}

// Paginate returns the requested page of data and its metadata
func Paginate[T any](data []T, page, pageSize int) ([]T, PaginationResponse) {
	total := len(data)
	meta := PaginationResponse{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := page * pageSize
	if start >= total {
		return []T{}, meta
	}
	return data[start:min(start+pageSize, total)], meta
}

// PathParam splits the path after prefix into its first segment and the rest,
// e.g. ("3", "preview") for "/api/items/3/preview" and prefix "/api/items/".
func PathParam(path, prefix string) (param, rest string) {
	param, rest, _ = strings.Cut(strings.TrimPrefix(path, prefix), "/")
	return param, rest
}
