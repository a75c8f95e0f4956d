package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubChecker struct {
	err error
}

func (c *stubChecker) HealthCheck(ctx context.Context) error {
	return c.err
}

func TestHealthHandler_Health(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		db         HealthChecker
		redis      HealthChecker
		wantStatus int
		wantState  string
	}{
		{
			name:       "no checkers configured",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "healthy backends",
			db:         &stubChecker{},
			redis:      &stubChecker{},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "database down",
			db:         &stubChecker{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
		{
			name:       "cache down is degraded but ready",
			db:         &stubChecker{},
			redis:      &stubChecker{err: errors.New("connection refused")},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandlers(HealthHandlersConfig{DBChecker: tt.db, RedisChecker: tt.redis})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()
			h.Ready(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantState {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantState)
			}
			if tt.redis != nil {
				want := "ok"
				if sc, ok := tt.redis.(*stubChecker); ok && sc.err != nil {
					want = "error"
				}
				if resp.Checks["cache"] != want {
					t.Errorf("Checks[cache] = %q, want %q", resp.Checks["cache"], want)
				}
			}
		})
	}
}

func TestHealthHandler_MethodNotAllowed(t *testing.T) {
	h := NewHealthHandlers(HealthHandlersConfig{})

	for _, fn := range []func(http.ResponseWriter, *http.Request){h.Health, h.Ready} {
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		rec := httptest.NewRecorder()
		fn(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	}
}
