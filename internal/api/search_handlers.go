package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/machinesoul11/yg-backend-sub016/internal/auth"
	"github.com/machinesoul11/yg-backend-sub016/internal/middleware"
	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// maxRequestBodyBytes caps the POST /api/search body size.
const maxRequestBodyBytes = 64 * 1024

// SearchHandlers holds dependencies for search HTTP handlers.
type SearchHandlers struct {
	service *search.Service
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(service *search.Service) *SearchHandlers {
	return &SearchHandlers{service: service}
}

// Search handles both GET and POST /api/search. GET carries the request
// in query parameters, POST in a JSON body; both feed the same search
// pipeline.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	var ok bool

	switch r.Method {
	case http.MethodGet:
		req, ok = parseSearchParams(w, r)
	case http.MethodPost:
		req, ok = parseSearchBody(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}
	if !ok {
		return
	}

	perm := auth.Permission(r.Context())

	resp, err := h.service.Search(r.Context(), req, perm)
	if err != nil {
		var vErr *search.ValidationError
		switch {
		case errors.As(err, &vErr):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, vErr.Error())
		case errors.Is(err, search.ErrAllAdaptersFailed):
			slog.ErrorContext(r.Context(), "all search backends unavailable", "query", req.Query)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeSearchUnavailable)
			WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeSearchUnavailable, "Search is temporarily unavailable")
		default:
			slog.ErrorContext(r.Context(), "search failed", "error", err, "query", req.Query)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to execute search")
		}
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, resp)
}

// parseSearchBody decodes a POST JSON body into a search request.
// Writes an error response and returns ok=false on failure.
func parseSearchBody(w http.ResponseWriter, r *http.Request) (search.Request, bool) {
	var req search.Request

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body: "+err.Error())
		return search.Request{}, false
	}
	return req, true
}

// parseSearchParams builds a search request from GET query parameters.
// Writes an error response and returns ok=false on failure.
//
// Parameters: q, entities (comma-separated), page, pageSize, sortBy,
// sortOrder, and filter.<key>=<value> pairs.
func parseSearchParams(w http.ResponseWriter, r *http.Request) (search.Request, bool) {
	params := r.URL.Query()

	req := search.Request{
		Query:     params.Get("q"),
		SortBy:    params.Get("sortBy"),
		SortOrder: params.Get("sortOrder"),
	}

	if entities := params.Get("entities"); entities != "" {
		for _, e := range strings.Split(entities, ",") {
			if e = strings.TrimSpace(e); e != "" {
				req.Entities = append(req.Entities, e)
			}
		}
	}

	if pageStr := params.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "page must be a positive integer")
			return search.Request{}, false
		}
		req.Page = page
	}

	if sizeStr := params.Get("pageSize"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "pageSize must be a positive integer")
			return search.Request{}, false
		}
		req.PageSize = size
	}

	for key, values := range params {
		if !strings.HasPrefix(key, "filter.") || len(values) == 0 {
			continue
		}
		name := strings.TrimPrefix(key, "filter.")
		if name == "" {
			continue
		}
		if req.Filters == nil {
			req.Filters = make(map[string]string)
		}
		req.Filters[name] = values[0]
	}

	return req, true
}
