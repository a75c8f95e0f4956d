package search

import (
	"math"
	"strings"
	"time"
)

// Textual scoring tiers. The ladder is a deliberate tie-break order:
// exact match beats a full-substring match, which beats partial token
// coverage. A secondary-field match adds a fixed bonus on top.
const (
	textExactScore     = 1.0
	textContainsScore  = 0.7
	textSecondaryBonus = 0.3
)

// Quality flag contributions. Any monotonic bounded combination works;
// verified carries the most signal, then active, then approved.
const (
	qualityVerified = 0.5
	qualityActive   = 0.3
	qualityApproved = 0.2
)

// Score computes the four sub-scores and the weighted composite for one
// candidate. It is a pure function of (query, candidate, config, now):
// deterministic, side-effect free, and safe to call concurrently.
func Score(q Query, c Candidate, cfg *Config, now time.Time) ScoredResult {
	r := ScoredResult{Candidate: c}
	r.TextScore = textScore(q, c)
	r.RecencyScore = recencyScore(c.CreatedAt, cfg, now)
	r.PopularityScore = popularityScore(c.Popularity, cfg)
	r.QualityScore = qualityScore(c.Quality)

	w := cfg.Weights.normalized()
	r.Score = clamp01(w.Textual*r.TextScore +
		w.Recency*r.RecencyScore +
		w.Popularity*r.PopularityScore +
		w.Quality*r.QualityScore)
	return r
}

// textScore compares the query against the candidate's primary field,
// then applies the secondary-field bonus.
//
// Exact case-insensitive equality scores 1.0; the primary field
// containing the whole query scores 0.7; otherwise the fraction of
// query tokens found as substrings in the primary field. A secondary
// field containing the whole query adds 0.3, capped at 1.0.
func textScore(q Query, c Candidate) float64 {
	query := strings.ToLower(q.Text)
	primary := strings.ToLower(c.Title)
	secondary := strings.ToLower(c.Description)

	var score float64
	switch {
	case query == primary:
		score = textExactScore
	case strings.Contains(primary, query):
		score = textContainsScore
	default:
		score = tokenCoverage(q.Tokens, primary)
	}

	if secondary != "" && strings.Contains(secondary, query) {
		score += textSecondaryBonus
	}
	return clamp01(score)
}

// tokenCoverage returns the fraction of tokens found as substrings in
// the field. Zero tokens (e.g. an all-stop-word query) scores 0.
func tokenCoverage(tokens []string, field string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(field, tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// recencyScore applies exponential half-life decay to the candidate's
// age: 0.5^(ageDays/halfLife). Candidates at or beyond the max-age
// cutoff score 0, as do candidates with no timestamp. Future timestamps
// are treated as age 0.
func recencyScore(createdAt time.Time, cfg *Config, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	if cfg.RecencyMaxAgeDays > 0 && ageDays >= cfg.RecencyMaxAgeDays {
		return 0
	}
	if cfg.RecencyHalfLifeDays <= 0 {
		return 1
	}
	return clamp01(math.Pow(0.5, ageDays/cfg.RecencyHalfLifeDays))
}

// popularityScore combines the engagement counters under the configured
// sub-weights. Each counter goes through a log transform that saturates
// at PopularitySaturation, keeping the component monotonic
// non-decreasing and bounded in [0, 1].
func popularityScore(p Popularity, cfg *Config) float64 {
	w := cfg.Popularity.normalized()
	score := w.Views*logSaturate(p.Views, cfg.PopularitySaturation) +
		w.Uses*logSaturate(p.Uses, cfg.PopularitySaturation) +
		w.Favorites*logSaturate(p.Favorites, cfg.PopularitySaturation)
	return clamp01(score)
}

// logSaturate maps a non-negative count into [0, 1] using
// log1p(n)/log1p(saturation), capped at 1.
func logSaturate(n, saturation int64) float64 {
	if n <= 0 {
		return 0
	}
	if saturation <= 0 {
		return 1
	}
	v := math.Log1p(float64(n)) / math.Log1p(float64(saturation))
	return clamp01(v)
}

// qualityScore sums fixed contributions for each set flag, capped at 1.
func qualityScore(q Quality) float64 {
	var score float64
	if q.Verified {
		score += qualityVerified
	}
	if q.Active {
		score += qualityActive
	}
	if q.Approved {
		score += qualityApproved
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
