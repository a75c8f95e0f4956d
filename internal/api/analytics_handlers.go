package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/machinesoul11/yg-backend-sub016/internal/analytics"
	"github.com/machinesoul11/yg-backend-sub016/internal/auth"
	"github.com/machinesoul11/yg-backend-sub016/internal/middleware"
)

// defaultAnalyticsWindow is the lookback for the summary when no
// "hours" parameter is given.
const defaultAnalyticsWindow = 24 * time.Hour

// maxAnalyticsWindowHours bounds the lookback to keep report queries cheap.
const maxAnalyticsWindowHours = 24 * 30

// AnalyticsHandlers holds dependencies for the admin analytics endpoints.
type AnalyticsHandlers struct {
	sink analytics.Sink
}

// NewAnalyticsHandlers creates a new AnalyticsHandlers instance.
func NewAnalyticsHandlers(sink analytics.Sink) *AnalyticsHandlers {
	return &AnalyticsHandlers{sink: sink}
}

// Summary handles GET /api/admin/search/analytics. Admin role required.
// The optional "hours" parameter sets the lookback window.
func (h *AnalyticsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	perm := auth.Permission(r.Context())
	if !perm.Admin() {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Admin role required")
		return
	}

	window := defaultAnalyticsWindow
	if hoursStr := r.URL.Query().Get("hours"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours < 1 || hours > maxAnalyticsWindowHours {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
				"hours must be an integer between 1 and "+strconv.Itoa(maxAnalyticsWindowHours))
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	since := time.Now().UTC().Add(-window)
	summary, err := analytics.Report(r.Context(), h.sink, since)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build analytics summary", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to build analytics summary")
		return
	}

	writeJSON(w, r.Context(), http.StatusOK, summary)
}
