package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/machinesoul11/yg-backend-sub016/internal/analytics"
	"github.com/machinesoul11/yg-backend-sub016/internal/auth"
	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

func adminRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(auth.WithPermission(req.Context(), search.PermissionContext{
		CallerID: "admin-1",
		Role:     "admin",
	}))
}

func TestAnalyticsHandler_RequiresAdmin(t *testing.T) {
	h := NewAnalyticsHandlers(analytics.NewInMemorySink())

	tests := []struct {
		name string
		perm search.PermissionContext
	}{
		{name: "anonymous"},
		{name: "regular user", perm: search.PermissionContext{CallerID: "alice", Role: "user"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/search/analytics", nil)
			req = req.WithContext(auth.WithPermission(req.Context(), tt.perm))
			rec := httptest.NewRecorder()
			h.Summary(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d, want 403", rec.Code)
			}
			if got := decodeError(t, rec.Body.String()).Error.Code; got != ErrCodeForbidden {
				t.Errorf("error code = %q, want %q", got, ErrCodeForbidden)
			}
		})
	}
}

func TestAnalyticsHandler_Summary(t *testing.T) {
	sink := analytics.NewInMemorySink()
	now := time.Now().UTC()
	for i, q := range []string{"dragon", "dragon", "castle"} {
		err := sink.Insert(context.Background(), &analytics.Event{
			ID:          "e" + string(rune('1'+i)),
			Query:       q,
			ResultCount: i,
			DurationMs:  int64(10 * (i + 1)),
			CreatedAt:   now,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	h := NewAnalyticsHandlers(sink)
	rec := httptest.NewRecorder()
	h.Summary(rec, adminRequest("/api/admin/search/analytics"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var summary analytics.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d, want 3", summary.TotalSearches)
	}
	if len(summary.TopQueries) == 0 || summary.TopQueries[0].Query != "dragon" {
		t.Errorf("TopQueries = %+v, want dragon first", summary.TopQueries)
	}
}

func TestAnalyticsHandler_WindowParam(t *testing.T) {
	h := NewAnalyticsHandlers(analytics.NewInMemorySink())

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{name: "valid hours", target: "/api/admin/search/analytics?hours=48", wantStatus: http.StatusOK},
		{name: "zero hours rejected", target: "/api/admin/search/analytics?hours=0", wantStatus: http.StatusBadRequest},
		{name: "non-numeric rejected", target: "/api/admin/search/analytics?hours=day", wantStatus: http.StatusBadRequest},
		{name: "over the cap rejected", target: "/api/admin/search/analytics?hours=100000", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Summary(rec, adminRequest(tt.target))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
