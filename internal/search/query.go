package search

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sort directives. SortRelevance is the default; any other recognized
// field name orders by that field while scores are still computed and
// returned for transparency.
const (
	SortRelevance = "relevance"
	SortCreatedAt = "created_at"
	SortTitle     = "title"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Request is the raw inbound search operation, before validation.
type Request struct {
	Query     string            `json:"query"`
	Entities  []string          `json:"entities,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	Page      int               `json:"page,omitempty"`
	PageSize  int               `json:"pageSize,omitempty"`
	SortBy    string            `json:"sortBy,omitempty"`
	SortOrder string            `json:"sortOrder,omitempty"`
}

// Query is the normalized, immutable form of a search request. Given a
// fixed candidate universe and config, a Query fully determines scoring
// and ordering.
type Query struct {
	// Text is the sanitized, trimmed query text, retained in full for
	// exact and substring comparisons.
	Text string

	// Tokens are the lowercase word tokens of Text with stop words
	// removed. Used only for the partial-token scoring path.
	Tokens []string

	Kinds   []EntityKind
	Filters map[string]string

	Page     int
	PageSize int

	SortBy    string
	SortOrder string
}

// allowedPunctuation is the set of non-alphanumeric characters permitted
// in query text. Everything else is stripped before the text reaches the
// adapters, so raw input can never leak into their queries.
const allowedPunctuation = " -_.,'&()+#/:"

// Normalize validates and sanitizes a raw request into a Query.
// Returns a *ValidationError for malformed input.
func Normalize(req Request, cfg *Config) (Query, error) {
	text := sanitizeText(req.Query)

	// Length bounds count characters, not bytes, so multibyte text is
	// measured the same as ASCII.
	textLen := utf8.RuneCountInString(text)
	if textLen < cfg.MinQueryLength {
		return Query{}, &ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("query must be at least %d characters", cfg.MinQueryLength),
		}
	}
	if textLen > cfg.MaxQueryLength {
		return Query{}, &ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("query must be at most %d characters", cfg.MaxQueryLength),
		}
	}

	kinds, err := normalizeKinds(req.Entities)
	if err != nil {
		return Query{}, err
	}

	if req.Page < 0 {
		return Query{}, &ValidationError{Field: "page", Message: "page must be >= 1"}
	}
	page := req.Page
	if page == 0 {
		page = 1
	}

	pageSize := req.PageSize
	switch {
	case pageSize < 0:
		return Query{}, &ValidationError{Field: "pageSize", Message: "pageSize must be >= 1"}
	case pageSize == 0:
		pageSize = cfg.DefaultPageSize
	case pageSize > cfg.MaxPageSize:
		pageSize = cfg.MaxPageSize
	}

	sortBy, sortOrder, err := normalizeSort(req.SortBy, req.SortOrder)
	if err != nil {
		return Query{}, err
	}

	filters := make(map[string]string, len(req.Filters))
	for k, v := range req.Filters {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		filters[key] = sanitizeText(val)
	}

	return Query{
		Text:      text,
		Tokens:    tokenize(text, cfg),
		Kinds:     kinds,
		Filters:   filters,
		Page:      page,
		PageSize:  pageSize,
		SortBy:    sortBy,
		SortOrder: sortOrder,
	}, nil
}

// sanitizeText trims surrounding whitespace and strips characters
// outside the printable allow-list (letters, digits, and a small
// punctuation set). Runs of interior whitespace collapse to one space.
func sanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case strings.ContainsRune(allowedPunctuation, r):
			b.WriteRune(r)
			lastSpace = false
		}
		// Everything else is dropped.
	}
	return strings.TrimSpace(b.String())
}

// tokenize splits text on non-alphanumeric boundaries into lowercase
// tokens and removes stop words.
func tokenize(text string, cfg *Config) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if cfg.IsStopWord(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// normalizeKinds validates the requested entity kinds, defaulting to all
// known kinds when none are given. Duplicates are collapsed.
func normalizeKinds(entities []string) ([]EntityKind, error) {
	if len(entities) == 0 {
		return AllKinds(), nil
	}
	seen := make(map[EntityKind]struct{}, len(entities))
	kinds := make([]EntityKind, 0, len(entities))
	for _, e := range entities {
		kind, err := ParseKind(strings.ToLower(strings.TrimSpace(e)))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// normalizeSort validates the sort directive. Empty sortBy means
// relevance; empty sortOrder defaults to descending.
func normalizeSort(sortBy, sortOrder string) (string, string, error) {
	switch sortBy {
	case "", SortRelevance:
		sortBy = SortRelevance
	case SortCreatedAt, SortTitle:
	default:
		return "", "", &ValidationError{
			Field:   "sortBy",
			Message: fmt.Sprintf("unsupported sort field %q", sortBy),
		}
	}

	switch sortOrder {
	case "":
		sortOrder = OrderDesc
	case OrderAsc, OrderDesc:
	default:
		return "", "", &ValidationError{
			Field:   "sortOrder",
			Message: `sortOrder must be "asc" or "desc"`,
		}
	}

	return sortBy, sortOrder, nil
}
