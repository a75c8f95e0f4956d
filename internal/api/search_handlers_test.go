package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/machinesoul11/yg-backend-sub016/internal/adapter"
	"github.com/machinesoul11/yg-backend-sub016/internal/auth"
	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

func newTestService(t *testing.T) *search.Service {
	t.Helper()

	assets := adapter.NewInMemoryAdapter(search.KindAsset)
	assets.Add(
		adapter.MemoryRecord{
			Candidate: search.Candidate{
				Kind: search.KindAsset, ID: "a1", Title: "Dragon Sprite",
				Quality: search.Quality{Approved: true, Active: true},
			},
			Attributes: map[string]string{"type": "sprite"},
		},
		adapter.MemoryRecord{
			Candidate: search.Candidate{
				Kind: search.KindAsset, ID: "a2", Title: "Castle Tileset",
				Quality: search.Quality{Approved: true, Active: true},
			},
			Attributes: map[string]string{"type": "tileset"},
		},
	)
	creators := adapter.NewInMemoryAdapter(search.KindCreator)
	creators.Add(adapter.MemoryRecord{
		Candidate: search.Candidate{
			Kind: search.KindCreator, ID: "c1", Title: "Dragon Studio",
			Quality: search.Quality{Approved: true, Active: true, Verified: true},
		},
	})

	svc, err := search.NewService(
		[]search.Adapter{assets, creators},
		search.NewProvider(nil),
		nil, nil, nil, nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func decodeError(t *testing.T, body string) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", body, err)
	}
	return resp
}

func TestSearchHandler_GET(t *testing.T) {
	h := NewSearchHandlers(newTestService(t))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=dragon", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Pagination.Total != 3 {
		t.Errorf("Total = %d, want all 3 visible candidates", resp.Pagination.Total)
	}
	if len(resp.Results) == 0 || resp.Results[0].ID == "a2" {
		t.Errorf("text-relevant results should rank above the non-matching tileset: %+v", resp.Results)
	}
	if resp.Query != "dragon" {
		t.Errorf("Query = %q, want dragon", resp.Query)
	}
}

func TestSearchHandler_GETParams(t *testing.T) {
	h := NewSearchHandlers(newTestService(t))

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "entities filter",
			url:        "/api/search?q=dragon&entities=creator",
			wantStatus: http.StatusOK,
		},
		{
			name:       "structured filter",
			url:        "/api/search?q=dragon&entities=asset&filter.type=sprite",
			wantStatus: http.StatusOK,
		},
		{
			name:       "pagination params",
			url:        "/api/search?q=dragon&page=1&pageSize=5",
			wantStatus: http.StatusOK,
		},
		{
			name:       "explicit zero page rejected",
			url:        "/api/search?q=dragon&page=0",
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "non-numeric page rejected",
			url:        "/api/search?q=dragon&page=two",
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "zero page size rejected",
			url:        "/api/search?q=dragon&pageSize=0",
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "unknown entity rejected",
			url:        "/api/search?q=dragon&entities=widget",
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "short query rejected",
			url:        "/api/search?q=x",
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
		{
			name:       "bad sort field rejected",
			url:        "/api/search?q=dragon&sortBy=price",
			wantStatus: http.StatusBadRequest,
			wantCode:   ErrCodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			h.Search(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec.Body.String()).Error.Code; got != tt.wantCode {
					t.Errorf("error code = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestSearchHandler_POST(t *testing.T) {
	h := NewSearchHandlers(newTestService(t))

	body := `{
		"query": "dragon",
		"entities": ["asset"],
		"filters": {"type": "sprite"},
		"page": 1,
		"pageSize": 10
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Pagination.Total != 1 {
		t.Errorf("Total = %d, want 1 sprite", resp.Pagination.Total)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a1" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSearchHandler_POSTInvalidBody(t *testing.T) {
	h := NewSearchHandlers(newTestService(t))

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"query": `},
		{name: "unknown field", body: `{"query": "dragon", "limit": 5}`},
		{name: "wrong type", body: `{"query": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Search(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decodeError(t, rec.Body.String()).Error.Code; got != ErrCodeBadRequest {
				t.Errorf("error code = %q, want %q", got, ErrCodeBadRequest)
			}
		})
	}
}

func TestSearchHandler_MethodNotAllowed(t *testing.T) {
	h := NewSearchHandlers(newTestService(t))

	req := httptest.NewRequest(http.MethodDelete, "/api/search", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestSearchHandler_AllBackendsUnavailable(t *testing.T) {
	// A service with no registered adapters: every requested kind is
	// unavailable, so the search cannot produce anything.
	svc, err := search.NewService(nil, search.NewProvider(nil), nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := NewSearchHandlers(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=dragon", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503; body: %s", rec.Code, rec.Body.String())
	}
	if got := decodeError(t, rec.Body.String()).Error.Code; got != ErrCodeSearchUnavailable {
		t.Errorf("error code = %q, want %q", got, ErrCodeSearchUnavailable)
	}
}

func TestSearchHandler_PermissionFromContext(t *testing.T) {
	assets := adapter.NewInMemoryAdapter(search.KindAsset)
	assets.Add(adapter.MemoryRecord{
		Candidate: search.Candidate{Kind: search.KindAsset, ID: "draft-1", Title: "Dragon Draft"},
		OwnerID:   "alice",
	})
	svc, err := search.NewService([]search.Adapter{assets}, search.NewProvider(nil), nil, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := NewSearchHandlers(svc)

	// Anonymous caller sees nothing.
	req := httptest.NewRequest(http.MethodGet, "/api/search?q=dragon&entities=asset", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)
	var anon search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &anon); err != nil {
		t.Fatal(err)
	}
	if anon.Pagination.Total != 0 {
		t.Errorf("anonymous Total = %d, want 0", anon.Pagination.Total)
	}

	// The owner sees their draft.
	req = httptest.NewRequest(http.MethodGet, "/api/search?q=dragon&entities=asset", nil)
	req = req.WithContext(auth.WithPermission(req.Context(), search.PermissionContext{CallerID: "alice"}))
	rec = httptest.NewRecorder()
	h.Search(rec, req)
	var owned search.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &owned); err != nil {
		t.Fatal(err)
	}
	if owned.Pagination.Total != 1 {
		t.Errorf("owner Total = %d, want 1", owned.Pagination.Total)
	}
}
