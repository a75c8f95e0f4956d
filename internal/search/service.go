package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Recorder receives query metadata after a search completes. Recording
// must never block or fail the search response; implementations are
// expected to buffer and persist asynchronously.
type Recorder interface {
	// Record returns the analytics event id for later click attachment.
	Record(q Query, resultCount int, duration time.Duration, perm PermissionContext) string
}

// ResultCache is an optional short-TTL cache of full responses. Both
// operations are fail-open: a miss or backend error just means the
// search runs normally.
type ResultCache interface {
	Get(ctx context.Context, q Query, perm PermissionContext) (*Response, bool)
	Set(ctx context.Context, q Query, perm PermissionContext, resp *Response)
}

// Response is the unified search result envelope.
type Response struct {
	Results         []ScoredResult `json:"results"`
	Pagination      Pagination     `json:"pagination"`
	Facets          Facets         `json:"facets"`
	Query           string         `json:"query"`
	ExecutionTimeMs int64          `json:"executionTimeMs"`

	// Partial is true when at least one requested adapter failed and its
	// kinds are listed in Unavailable.
	Partial     bool         `json:"partial,omitempty"`
	Unavailable []EntityKind `json:"unavailable,omitempty"`

	// EventID identifies the analytics event for click feedback.
	EventID string `json:"eventId,omitempty"`
}

// Service wires the normalizer, adapters, scorer, and aggregator into
// the single inbound search operation.
type Service struct {
	adapters map[EntityKind]Adapter
	provider *Provider
	recorder Recorder
	cache    ResultCache
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service over the given adapters. The recorder,
// cache, and metrics may be nil; the logger falls back to slog.Default.
func NewService(adapters []Adapter, provider *Provider, recorder Recorder, cache ResultCache, metrics *Metrics, logger *slog.Logger) (*Service, error) {
	if provider == nil {
		provider = NewProvider(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	byKind := make(map[EntityKind]Adapter, len(adapters))
	for _, a := range adapters {
		if !a.Kind().Valid() {
			return nil, fmt.Errorf("adapter registered for unknown kind %q", a.Kind())
		}
		if _, dup := byKind[a.Kind()]; dup {
			return nil, fmt.Errorf("duplicate adapter for kind %q", a.Kind())
		}
		byKind[a.Kind()] = a
	}
	return &Service{
		adapters: byKind,
		provider: provider,
		recorder: recorder,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// adapterResult is the outcome of one adapter call. Each fan-out
// goroutine writes only its own slot, so no lock is needed.
type adapterResult struct {
	kind    EntityKind
	scored  []ScoredResult
	total   int
	err     error
	elapsed time.Duration
}

// Search executes the full pipeline: normalize, fan out to one adapter
// per requested kind, score candidates as they return, merge, paginate,
// and dispatch analytics. An isolated adapter failure degrades the
// response to partial; only when every requested adapter fails does the
// call return an error.
func (s *Service) Search(ctx context.Context, req Request, perm PermissionContext) (*Response, error) {
	start := s.now()
	cfg := s.provider.Current()

	q, err := Normalize(req, cfg)
	if err != nil {
		s.metrics.observeSearch("validation_error", 0)
		return nil, err
	}

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, q, perm); ok {
			s.metrics.cacheHit()
			if s.recorder != nil {
				cached.EventID = s.recorder.Record(q, cached.Pagination.Total, s.now().Sub(start), perm)
			}
			return cached, nil
		}
		s.metrics.cacheMiss()
	}

	referenceTime := s.now()
	results := make([]adapterResult, len(q.Kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range q.Kinds {
		i, kind := i, kind
		adapter, ok := s.adapters[kind]
		if !ok {
			// A requested kind with no registered adapter counts as an
			// adapter failure, not a validation error: the kind exists,
			// the backend for it is unavailable.
			results[i] = adapterResult{kind: kind, err: &AdapterError{Kind: kind, Err: errors.New("no adapter registered")}}
			continue
		}
		g.Go(func() error {
			callStart := s.now()
			callCtx, cancel := context.WithTimeout(gctx, cfg.AdapterTimeout())
			defer cancel()

			candidates, total, err := adapter.Search(callCtx, q.Filters, perm, cfg.PerEntityCap)
			elapsed := s.now().Sub(callStart)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = ErrAdapterTimeout
				}
				results[i] = adapterResult{kind: kind, err: &AdapterError{Kind: kind, Err: err}, elapsed: elapsed}
				return nil // isolated failure, do not cancel siblings
			}

			scored := make([]ScoredResult, 0, len(candidates))
			for _, c := range candidates {
				scored = append(scored, Score(q, c, cfg, referenceTime))
			}
			results[i] = adapterResult{kind: kind, scored: scored, total: total, elapsed: elapsed}
			return nil
		})
	}
	// Adapter errors are captured per slot, so Wait never returns one.
	_ = g.Wait()

	// A canceled caller makes every in-flight adapter fail with the
	// context error; report that as cancellation, not backend failure.
	if err := ctx.Err(); err != nil {
		elapsed := s.now().Sub(start)
		if s.recorder != nil {
			s.recorder.Record(q, 0, elapsed, perm)
		}
		s.metrics.observeSearch("canceled", elapsed)
		return nil, err
	}

	var merged []ScoredResult
	totals := make(map[EntityKind]int, len(q.Kinds))
	var unavailable []EntityKind
	for _, r := range results {
		if r.err != nil {
			s.logger.WarnContext(ctx, "entity adapter failed",
				"kind", string(r.kind),
				"error", r.err,
				"elapsed_ms", r.elapsed.Milliseconds())
			s.metrics.adapterFailure(r.kind, r.err)
			unavailable = append(unavailable, r.kind)
			continue
		}
		merged = append(merged, r.scored...)
		totals[r.kind] = r.total
	}

	if len(unavailable) == len(q.Kinds) {
		s.metrics.observeSearch("failure", s.now().Sub(start))
		return nil, ErrAllAdaptersFailed
	}

	pageResults, pagination, facets := Aggregate(merged, q, totals)

	elapsed := s.now().Sub(start)
	resp := &Response{
		Results:         pageResults,
		Pagination:      pagination,
		Facets:          facets,
		Query:           q.Text,
		ExecutionTimeMs: elapsed.Milliseconds(),
		Partial:         len(unavailable) > 0,
		Unavailable:     unavailable,
	}

	if s.cache != nil && !resp.Partial {
		s.cache.Set(ctx, q, perm, resp)
	}

	if s.recorder != nil {
		resp.EventID = s.recorder.Record(q, pagination.Total, elapsed, perm)
	}

	if resp.Partial {
		s.metrics.observeSearch("partial", elapsed)
	} else {
		s.metrics.observeSearch("success", elapsed)
	}
	return resp, nil
}
