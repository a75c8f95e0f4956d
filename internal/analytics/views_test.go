package analytics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"
)

func insertEvent(t *testing.T, sink Sink, id, query string, resultCount int, durationMs int64, createdAt time.Time) {
	t.Helper()
	err := sink.Insert(context.Background(), &Event{
		ID:          id,
		Query:       query,
		ResultCount: resultCount,
		DurationMs:  durationMs,
		CreatedAt:   createdAt,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestReport_Empty(t *testing.T) {
	sink := NewInMemorySink()
	since := time.Now().Add(-time.Hour)

	summary, err := Report(context.Background(), sink, since)
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalSearches != 0 {
		t.Errorf("TotalSearches = %d, want 0", summary.TotalSearches)
	}
	if summary.ZeroResultRate != 0 {
		t.Errorf("ZeroResultRate = %v, want 0", summary.ZeroResultRate)
	}
	if summary.P50Ms != 0 || summary.P95Ms != 0 || summary.P99Ms != 0 {
		t.Errorf("percentiles should be 0 with no events: %+v", summary)
	}
}

func TestReport_Counts(t *testing.T) {
	sink := NewInMemorySink()
	now := time.Now().UTC()
	since := now.Add(-time.Hour)

	insertEvent(t, sink, "e1", "dragon", 10, 20, now)
	insertEvent(t, sink, "e2", "dragon", 0, 30, now)
	insertEvent(t, sink, "e3", "castle", 5, 40, now)
	insertEvent(t, sink, "e4", "ghost", 0, 50, now)

	// Outside the window, must be excluded.
	insertEvent(t, sink, "old", "dragon", 1, 10, now.Add(-2*time.Hour))

	// One click-through.
	if err := sink.AttachClick(context.Background(), "e1", Click{ResultID: "a1"}); err != nil {
		t.Fatal(err)
	}

	summary, err := Report(context.Background(), sink, since)
	if err != nil {
		t.Fatal(err)
	}

	if summary.TotalSearches != 4 {
		t.Errorf("TotalSearches = %d, want 4", summary.TotalSearches)
	}
	if math.Abs(summary.ZeroResultRate-0.5) > 1e-9 {
		t.Errorf("ZeroResultRate = %v, want 0.5", summary.ZeroResultRate)
	}
	if summary.ClickThroughs != 1 {
		t.Errorf("ClickThroughs = %d, want 1", summary.ClickThroughs)
	}

	if len(summary.TopQueries) == 0 || summary.TopQueries[0].Query != "dragon" || summary.TopQueries[0].Count != 2 {
		t.Errorf("TopQueries = %+v, want dragon first with count 2", summary.TopQueries)
	}

	zero := map[string]int{}
	for _, qc := range summary.ZeroQueries {
		zero[qc.Query] = qc.Count
	}
	if zero["dragon"] != 1 || zero["ghost"] != 1 {
		t.Errorf("ZeroQueries = %+v", summary.ZeroQueries)
	}
}

func TestReport_TopQueriesOrdering(t *testing.T) {
	sink := NewInMemorySink()
	now := time.Now().UTC()

	// banana x3, apple x3, cherry x1: ties break alphabetically.
	queries := []string{"banana", "banana", "banana", "apple", "apple", "apple", "cherry"}
	for i, q := range queries {
		insertEvent(t, sink, fmt.Sprintf("e%d", i), q, 1, 10, now)
	}

	summary, err := Report(context.Background(), sink, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	want := []QueryCount{
		{Query: "apple", Count: 3},
		{Query: "banana", Count: 3},
		{Query: "cherry", Count: 1},
	}
	if len(summary.TopQueries) != len(want) {
		t.Fatalf("TopQueries = %+v, want %d entries", summary.TopQueries, len(want))
	}
	for i, w := range want {
		if summary.TopQueries[i] != w {
			t.Errorf("TopQueries[%d] = %+v, want %+v", i, summary.TopQueries[i], w)
		}
	}
}

func TestReport_TopQueriesTruncated(t *testing.T) {
	sink := NewInMemorySink()
	now := time.Now().UTC()

	for i := 0; i < 25; i++ {
		insertEvent(t, sink, fmt.Sprintf("e%d", i), fmt.Sprintf("query-%02d", i), 1, 10, now)
	}

	summary, err := Report(context.Background(), sink, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.TopQueries) != topQueryLimit {
		t.Errorf("TopQueries has %d entries, want %d", len(summary.TopQueries), topQueryLimit)
	}
}

func TestReport_Percentiles(t *testing.T) {
	sink := NewInMemorySink()
	now := time.Now().UTC()

	// Durations 1..100 ms.
	for i := 1; i <= 100; i++ {
		insertEvent(t, sink, fmt.Sprintf("e%d", i), "q", 1, int64(i), now)
	}

	summary, err := Report(context.Background(), sink, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}

	if summary.P50Ms != 50 {
		t.Errorf("P50Ms = %d, want 50", summary.P50Ms)
	}
	if summary.P95Ms != 95 {
		t.Errorf("P95Ms = %d, want 95", summary.P95Ms)
	}
	if summary.P99Ms != 99 {
		t.Errorf("P99Ms = %d, want 99", summary.P99Ms)
	}
}

func TestPercentile_SingleValue(t *testing.T) {
	for _, p := range []float64{0.5, 0.95, 0.99} {
		if got := percentile([]int64{42}, p); got != 42 {
			t.Errorf("percentile(p=%v) = %d, want 42", p, got)
		}
	}
}
