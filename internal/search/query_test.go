package search

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestNormalize_Text(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		query    string
		wantText string
		wantErr  bool
	}{
		{
			name:     "plain query",
			query:    "dragon sprite",
			wantText: "dragon sprite",
		},
		{
			name:     "surrounding whitespace trimmed",
			query:    "   dragon sprite   ",
			wantText: "dragon sprite",
		},
		{
			name:     "interior whitespace collapsed",
			query:    "dragon \t  sprite",
			wantText: "dragon sprite",
		},
		{
			name:     "disallowed characters stripped",
			query:    "dragon<script>; DROP TABLE",
			wantText: "dragonscript DROP TABLE",
		},
		{
			name:     "allowed punctuation kept",
			query:    "sci-fi & fantasy (vol. 2)",
			wantText: "sci-fi & fantasy (vol. 2)",
		},
		{
			name:    "empty query rejected",
			query:   "",
			wantErr: true,
		},
		{
			name:    "single character rejected",
			query:   "a",
			wantErr: true,
		},
		{
			name:    "whitespace only rejected",
			query:   "    ",
			wantErr: true,
		},
		{
			name:    "over max length rejected",
			query:   strings.Repeat("x", 201),
			wantErr: true,
		},
		{
			name:     "exactly max length accepted",
			query:    strings.Repeat("x", 200),
			wantText: strings.Repeat("x", 200),
		},
		{
			name:    "single multibyte character rejected",
			query:   "龍",
			wantErr: true,
		},
		{
			name:     "long multibyte query within char bounds accepted",
			query:    strings.Repeat("龍", 150),
			wantText: strings.Repeat("龍", 150),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize(Request{Query: tt.query}, cfg)
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", q.Text, tt.wantText)
			}
		})
	}
}

func TestNormalize_Tokens(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "lowercased and split",
			query: "Dragon Sprite",
			want:  []string{"dragon", "sprite"},
		},
		{
			name:  "stop words removed",
			query: "the dragon of the north",
			want:  []string{"dragon", "north"},
		},
		{
			name:  "all stop words yields no tokens",
			query: "the and of",
			want:  []string{},
		},
		{
			name:  "punctuation splits tokens",
			query: "sci-fi, fantasy",
			want:  []string{"sci", "fi", "fantasy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize(Request{Query: tt.query}, cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(q.Tokens, tt.want) {
				t.Errorf("Tokens = %v, want %v", q.Tokens, tt.want)
			}
		})
	}
}

func TestNormalize_Kinds(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		entities []string
		want     []EntityKind
		wantErr  bool
	}{
		{
			name:     "empty defaults to all kinds",
			entities: nil,
			want:     AllKinds(),
		},
		{
			name:     "single kind",
			entities: []string{"asset"},
			want:     []EntityKind{KindAsset},
		},
		{
			name:     "duplicates collapsed",
			entities: []string{"asset", "asset", "creator"},
			want:     []EntityKind{KindAsset, KindCreator},
		},
		{
			name:     "case and whitespace normalized",
			entities: []string{" Asset ", "CREATOR"},
			want:     []EntityKind{KindAsset, KindCreator},
		},
		{
			name:     "unknown kind rejected",
			entities: []string{"asset", "widget"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize(Request{Query: "dragon", Entities: tt.entities}, cfg)
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(q.Kinds, tt.want) {
				t.Errorf("Kinds = %v, want %v", q.Kinds, tt.want)
			}
		})
	}
}

func TestNormalize_Pagination(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
		wantErr      bool
	}{
		{
			name:         "zero page defaults to 1",
			page:         0,
			pageSize:     0,
			wantPage:     1,
			wantPageSize: cfg.DefaultPageSize,
		},
		{
			name:         "explicit page kept",
			page:         3,
			pageSize:     10,
			wantPage:     3,
			wantPageSize: 10,
		},
		{
			name:    "negative page rejected",
			page:    -1,
			wantErr: true,
		},
		{
			name:     "negative page size rejected",
			pageSize: -5,
			wantErr:  true,
		},
		{
			name:         "oversized page size clamped",
			pageSize:     500,
			wantPage:     1,
			wantPageSize: cfg.MaxPageSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize(Request{Query: "dragon", Page: tt.page, PageSize: tt.pageSize}, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", q.Page, tt.wantPage)
			}
			if q.PageSize != tt.wantPageSize {
				t.Errorf("PageSize = %d, want %d", q.PageSize, tt.wantPageSize)
			}
		})
	}
}

func TestNormalize_Sort(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		wantBy    string
		wantOrder string
		wantErr   bool
	}{
		{
			name:      "defaults to relevance descending",
			wantBy:    SortRelevance,
			wantOrder: OrderDesc,
		},
		{
			name:      "created_at ascending",
			sortBy:    SortCreatedAt,
			sortOrder: OrderAsc,
			wantBy:    SortCreatedAt,
			wantOrder: OrderAsc,
		},
		{
			name:    "unknown sort field rejected",
			sortBy:  "price",
			wantErr: true,
		},
		{
			name:      "unknown sort order rejected",
			sortBy:    SortTitle,
			sortOrder: "sideways",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Normalize(Request{Query: "dragon", SortBy: tt.sortBy, SortOrder: tt.sortOrder}, cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.SortBy != tt.wantBy || q.SortOrder != tt.wantOrder {
				t.Errorf("sort = (%q, %q), want (%q, %q)", q.SortBy, q.SortOrder, tt.wantBy, tt.wantOrder)
			}
		})
	}
}

func TestNormalize_Filters(t *testing.T) {
	cfg := DefaultConfig()

	q, err := Normalize(Request{
		Query: "dragon",
		Filters: map[string]string{
			"type":    " model ",
			"empty":   "   ",
			"":        "ignored",
			"license": "cc-by<script>",
		},
	}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"type":    "model",
		"license": "cc-byscript",
	}
	if !reflect.DeepEqual(q.Filters, want) {
		t.Errorf("Filters = %v, want %v", q.Filters, want)
	}
}
