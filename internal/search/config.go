package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Weights defines how much each sub-score contributes to the composite.
// Weights must be non-negative; they are normalized to sum to 1.0 before
// use so a miscalibrated file cannot push the composite outside [0, 1].
type Weights struct {
	Textual    float64 `json:"textual"`    // Weight for text relevance (default: 0.4)
	Recency    float64 `json:"recency"`    // Weight for creation recency (default: 0.2)
	Popularity float64 `json:"popularity"` // Weight for engagement counts (default: 0.25)
	Quality    float64 `json:"quality"`    // Weight for moderation flags (default: 0.15)
}

// PopularityWeights splits the popularity sub-score across the three
// engagement counters. Normalized to sum to 1.0 before use.
type PopularityWeights struct {
	Views     float64 `json:"views"`     // Weight for view count (default: 0.3)
	Uses      float64 `json:"uses"`      // Weight for usage/download count (default: 0.45)
	Favorites float64 `json:"favorites"` // Weight for favorite count (default: 0.25)
}

// Config holds every tunable of the search core. A Config is immutable
// once published through a Provider; reloads swap in a fresh value so a
// single snapshot serves the whole lifetime of one query evaluation.
type Config struct {
	Weights    Weights           `json:"weights"`
	Popularity PopularityWeights `json:"popularity_weights"`

	// PopularitySaturation is the raw count at which a single popularity
	// component reaches its maximum under the log transform.
	PopularitySaturation int64 `json:"popularity_saturation"`

	// RecencyHalfLifeDays is the age at which the recency sub-score
	// halves. RecencyMaxAgeDays is a hard cutoff: older candidates score
	// 0 regardless of the decay curve.
	RecencyHalfLifeDays float64 `json:"recency_half_life_days"`
	RecencyMaxAgeDays   float64 `json:"recency_max_age_days"`

	MinQueryLength int `json:"min_query_length"`
	MaxQueryLength int `json:"max_query_length"`

	StopWords []string `json:"stop_words"`

	PerEntityCap    int `json:"per_entity_cap"`
	DefaultPageSize int `json:"default_page_size"`
	MaxPageSize     int `json:"max_page_size"`

	// AdapterTimeoutMS bounds each adapter call independently.
	AdapterTimeoutMS int `json:"adapter_timeout_ms"`

	// stopSet is the compiled stop-word lookup, built by finalize.
	stopSet map[string]struct{}
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string `json:"version"` // Config version for future compatibility
	Search  Config `json:"search"`  // Search tuning overrides
}

// defaultStopWords are common English words excluded from per-token
// matching. The full query text is still used for exact and substring
// comparisons.
var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"in", "is", "it", "of", "on", "or", "the", "to", "with",
}

// DefaultConfig returns the default search tuning.
//
// Composite formula: score = (text * 0.4) + (recency * 0.2) +
// (popularity * 0.25) + (quality * 0.15)
//   - Text match dominates for targeted search
//   - Recency keeps fresh uploads discoverable
//   - Popularity rewards proven engagement
//   - Quality adds a moderation signal without dominating results
func DefaultConfig() *Config {
	cfg := &Config{
		Weights: Weights{
			Textual:    0.4,
			Recency:    0.2,
			Popularity: 0.25,
			Quality:    0.15,
		},
		Popularity: PopularityWeights{
			Views:     0.3,
			Uses:      0.45,
			Favorites: 0.25,
		},
		PopularitySaturation: 10000,
		RecencyHalfLifeDays:  30,
		RecencyMaxAgeDays:    365,
		MinQueryLength:       2,
		MaxQueryLength:       200,
		StopWords:            append([]string(nil), defaultStopWords...),
		PerEntityCap:         100,
		DefaultPageSize:      20,
		MaxPageSize:          100,
		AdapterTimeoutMS:     2000,
	}
	cfg.finalize()
	return cfg
}

// AdapterTimeout returns the per-adapter timeout as a duration.
func (c *Config) AdapterTimeout() time.Duration {
	return time.Duration(c.AdapterTimeoutMS) * time.Millisecond
}

// IsStopWord reports whether the lowercase token is in the stop-word set.
func (c *Config) IsStopWord(token string) bool {
	_, ok := c.stopSet[token]
	return ok
}

// finalize compiles derived state: the stop-word lookup and normalized
// weights. Must be called before a Config is published.
func (c *Config) finalize() {
	c.stopSet = make(map[string]struct{}, len(c.StopWords))
	for _, w := range c.StopWords {
		c.stopSet[strings.ToLower(w)] = struct{}{}
	}
	c.Weights = c.Weights.normalized()
	c.Popularity = c.Popularity.normalized()
}

// normalized returns a copy of the weights scaled to sum to 1.0.
// Negative components are clamped to 0 first. If every component is 0,
// the defaults are returned instead.
func (w Weights) normalized() Weights {
	n := Weights{
		Textual:    max(w.Textual, 0),
		Recency:    max(w.Recency, 0),
		Popularity: max(w.Popularity, 0),
		Quality:    max(w.Quality, 0),
	}
	sum := n.Textual + n.Recency + n.Popularity + n.Quality
	if sum == 0 {
		return DefaultConfig().Weights
	}
	n.Textual /= sum
	n.Recency /= sum
	n.Popularity /= sum
	n.Quality /= sum
	return n
}

// normalized returns a copy of the popularity sub-weights scaled to sum
// to 1.0, falling back to defaults when every component is 0.
func (p PopularityWeights) normalized() PopularityWeights {
	n := PopularityWeights{
		Views:     max(p.Views, 0),
		Uses:      max(p.Uses, 0),
		Favorites: max(p.Favorites, 0),
	}
	sum := n.Views + n.Uses + n.Favorites
	if sum == 0 {
		return DefaultConfig().Popularity
	}
	n.Views /= sum
	n.Uses /= sum
	n.Favorites /= sum
	return n
}

// LoadCalibration loads search tuning from a JSON calibration file.
// Partial configurations are merged with defaults for graceful
// degradation; on any error the defaults are returned alongside the
// error so the caller can keep serving.
func LoadCalibration(filePath string) (*Config, error) {
	if filePath == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read search calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var calibration CalibrationConfig
	if err := json.Unmarshal(data, &calibration); err != nil {
		slog.Warn("failed to parse search calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultConfig(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultConfig(), &calibration.Search)
	logCalibrationOverrides(DefaultConfig(), merged)
	return merged, nil
}

// MergeCalibration merges override values into base. Only non-zero
// values from the override are applied, allowing partial calibration
// files. Returns a finalized copy; neither argument is mutated.
func MergeCalibration(base *Config, override *Config) *Config {
	if base == nil {
		base = DefaultConfig()
	}
	result := *base
	if override == nil {
		result.finalize()
		return &result
	}

	if override.Weights != (Weights{}) {
		result.Weights = override.Weights
	}
	if override.Popularity != (PopularityWeights{}) {
		result.Popularity = override.Popularity
	}
	if override.PopularitySaturation != 0 {
		result.PopularitySaturation = override.PopularitySaturation
	}
	if override.RecencyHalfLifeDays != 0 {
		result.RecencyHalfLifeDays = override.RecencyHalfLifeDays
	}
	if override.RecencyMaxAgeDays != 0 {
		result.RecencyMaxAgeDays = override.RecencyMaxAgeDays
	}
	if override.MinQueryLength != 0 {
		result.MinQueryLength = override.MinQueryLength
	}
	if override.MaxQueryLength != 0 {
		result.MaxQueryLength = override.MaxQueryLength
	}
	if len(override.StopWords) > 0 {
		result.StopWords = append([]string(nil), override.StopWords...)
	}
	if override.PerEntityCap != 0 {
		result.PerEntityCap = override.PerEntityCap
	}
	if override.DefaultPageSize != 0 {
		result.DefaultPageSize = override.DefaultPageSize
	}
	if override.MaxPageSize != 0 {
		result.MaxPageSize = override.MaxPageSize
	}
	if override.AdapterTimeoutMS != 0 {
		result.AdapterTimeoutMS = override.AdapterTimeoutMS
	}

	result.finalize()
	return &result
}

// logCalibrationOverrides logs which tunables differ from the defaults.
func logCalibrationOverrides(defaults *Config, loaded *Config) {
	var overrides []string

	if loaded.Weights != defaults.Weights {
		overrides = append(overrides, fmt.Sprintf("weights: %+v -> %+v",
			defaults.Weights, loaded.Weights))
	}
	if loaded.Popularity != defaults.Popularity {
		overrides = append(overrides, fmt.Sprintf("popularity_weights: %+v -> %+v",
			defaults.Popularity, loaded.Popularity))
	}
	if loaded.RecencyHalfLifeDays != defaults.RecencyHalfLifeDays {
		overrides = append(overrides, fmt.Sprintf("recency_half_life_days: %.1f -> %.1f",
			defaults.RecencyHalfLifeDays, loaded.RecencyHalfLifeDays))
	}
	if loaded.RecencyMaxAgeDays != defaults.RecencyMaxAgeDays {
		overrides = append(overrides, fmt.Sprintf("recency_max_age_days: %.1f -> %.1f",
			defaults.RecencyMaxAgeDays, loaded.RecencyMaxAgeDays))
	}
	if loaded.PerEntityCap != defaults.PerEntityCap {
		overrides = append(overrides, fmt.Sprintf("per_entity_cap: %d -> %d",
			defaults.PerEntityCap, loaded.PerEntityCap))
	}
	if loaded.AdapterTimeoutMS != defaults.AdapterTimeoutMS {
		overrides = append(overrides, fmt.Sprintf("adapter_timeout_ms: %d -> %d",
			defaults.AdapterTimeoutMS, loaded.AdapterTimeoutMS))
	}

	if len(overrides) > 0 {
		slog.Info("loaded search calibration with overrides", "overrides", overrides)
	} else {
		slog.Info("loaded search calibration (using all defaults)")
	}
}

// Provider publishes the active Config and supports atomic hot reload.
// Readers take one snapshot per request; Swap replaces the pointer so
// concurrent evaluations never observe a half-updated config.
type Provider struct {
	current atomic.Pointer[Config]
}

// NewProvider creates a Provider seeded with cfg, or the defaults when
// cfg is nil.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Provider{}
	p.current.Store(cfg)
	return p
}

// Current returns the active config snapshot.
func (p *Provider) Current() *Config {
	return p.current.Load()
}

// Swap atomically replaces the active config. In-flight requests keep
// the snapshot they started with. A nil cfg is ignored.
func (p *Provider) Swap(cfg *Config) {
	if cfg == nil {
		return
	}
	p.current.Store(cfg)
}
