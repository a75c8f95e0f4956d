package analytics

import (
	"context"
	"sort"
	"time"
)

// Summary is the aggregate view served to admins: query volume,
// zero-result rate, the most frequent queries, and duration percentiles.
// All values are derived from the Sink; nothing here feeds back into
// scoring.
type Summary struct {
	Since          time.Time    `json:"since"`
	TotalSearches  int          `json:"total_searches"`
	ZeroResultRate float64      `json:"zero_result_rate"`
	TopQueries     []QueryCount `json:"top_queries"`
	ZeroQueries    []QueryCount `json:"zero_result_queries"`
	ClickThroughs  int          `json:"click_throughs"`

	P50Ms int64 `json:"p50_ms"`
	P95Ms int64 `json:"p95_ms"`
	P99Ms int64 `json:"p99_ms"`
}

// topQueryLimit caps the number of queries reported per list.
const topQueryLimit = 10

// Report computes the Summary over events recorded since the cutoff.
func Report(ctx context.Context, sink Sink, since time.Time) (*Summary, error) {
	events, err := sink.EventsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Since: since}
	summary.TotalSearches = len(events)

	queryCounts := make(map[string]int)
	zeroCounts := make(map[string]int)
	durations := make([]int64, 0, len(events))
	zeroResults := 0
	for _, e := range events {
		queryCounts[e.Query]++
		durations = append(durations, e.DurationMs)
		if e.ResultCount == 0 {
			zeroResults++
			zeroCounts[e.Query]++
		}
		if e.Click != nil {
			summary.ClickThroughs++
		}
	}

	if len(events) > 0 {
		summary.ZeroResultRate = float64(zeroResults) / float64(len(events))
	}
	summary.TopQueries = rankQueries(queryCounts, topQueryLimit)
	summary.ZeroQueries = rankQueries(zeroCounts, topQueryLimit)

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	summary.P50Ms = percentile(durations, 0.50)
	summary.P95Ms = percentile(durations, 0.95)
	summary.P99Ms = percentile(durations, 0.99)

	return summary, nil
}

// rankQueries turns a frequency map into a sorted, truncated list.
// Ties are broken alphabetically for deterministic output.
func rankQueries(counts map[string]int, limit int) []QueryCount {
	ranked := make([]QueryCount, 0, len(counts))
	for q, n := range counts {
		ranked = append(ranked, QueryCount{Query: q, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Query < ranked[j].Query
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// percentile returns the value at rank p from an ascending-sorted
// slice using the nearest-rank method. Empty input yields 0.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
