package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/machinesoul11/yg-backend-sub016/internal/analytics"
	"github.com/machinesoul11/yg-backend-sub016/internal/middleware"
	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// ClickHandlers holds dependencies for click feedback handlers.
type ClickHandlers struct {
	recorder *analytics.Recorder
}

// NewClickHandlers creates a new ClickHandlers instance.
func NewClickHandlers(recorder *analytics.Recorder) *ClickHandlers {
	return &ClickHandlers{recorder: recorder}
}

// clickRequest is the body for POST /api/search/click.
type clickRequest struct {
	EventID  string `json:"eventId"`
	ResultID string `json:"resultId"`
	Position int    `json:"position"`
	Entity   string `json:"entity"`
}

// Click handles POST /api/search/click, attaching click feedback to a
// previously recorded search event. Responds 202 on success.
//
// Events are persisted asynchronously after the search response, so a
// click sent immediately for a fresh eventId can race the write and see
// 404; clients should treat that 404 as retryable.
func (h *ClickHandlers) Click(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req clickRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	if req.EventID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "eventId is required")
		return
	}
	if req.ResultID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "resultId is required")
		return
	}
	if req.Position < 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "position must be >= 0")
		return
	}

	var kind search.EntityKind
	if req.Entity != "" {
		parsed, err := search.ParseKind(req.Entity)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		kind = parsed
	}

	if err := h.recorder.AttachClick(r.Context(), req.EventID, req.ResultID, req.Position, kind); err != nil {
		if errors.Is(err, analytics.ErrEventNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeEventNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeEventNotFound, "Search event not found; it may not be persisted yet, retry shortly")
			return
		}
		slog.ErrorContext(r.Context(), "failed to attach click", "error", err, "event_id", req.EventID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record click")
		return
	}

	writeJSON(w, r.Context(), http.StatusAccepted, map[string]string{"status": "accepted"})
}
