// Package cache provides a short-TTL Redis cache of full search
// responses. Entries are CBOR-encoded and keyed by a digest of the
// normalized query, filters, page window, sort, and caller scope, so
// two callers with different visibility never share an entry.
//
// Every operation is fail-open: a Redis error is logged and treated as
// a miss, never surfaced to the search path.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// DefaultTTL is the default lifetime of a cached response. Search
// results go stale quickly; the cache only absorbs bursts of identical
// queries.
const DefaultTTL = 30 * time.Second

// keyPrefix namespaces search cache entries in Redis.
const keyPrefix = "search:resp:"

// ResultCache implements search.ResultCache over Redis.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a ResultCache. ttl <= 0 selects DefaultTTL.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached response for the query, or false on miss or
// backend error.
func (c *ResultCache) Get(ctx context.Context, q search.Query, perm search.PermissionContext) (*search.Response, bool) {
	data, err := c.client.Get(ctx, Key(q, perm)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.DebugContext(ctx, "search cache read failed", "error", err)
		}
		return nil, false
	}
	var resp search.Response
	if err := cbor.Unmarshal(data, &resp); err != nil {
		c.logger.WarnContext(ctx, "failed to decode cached search response", "error", err)
		return nil, false
	}
	return &resp, true
}

// Set stores the response under the query's key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, q search.Query, perm search.PermissionContext, resp *search.Response) {
	data, err := cbor.Marshal(resp)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to encode search response for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, Key(q, perm), data, c.ttl).Err(); err != nil {
		c.logger.DebugContext(ctx, "search cache write failed", "error", err)
	}
}

// Key derives the cache key for a normalized query and caller scope.
// The digest input is canonical: filters are serialized in sorted key
// order so equivalent maps produce the same key.
func Key(q search.Query, perm search.PermissionContext) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(q.Text))
	b.WriteByte('\n')
	for _, k := range q.Kinds {
		b.WriteString(string(k))
		b.WriteByte(',')
	}
	b.WriteByte('\n')
	filterKeys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		filterKeys = append(filterKeys, k)
	}
	sort.Strings(filterKeys)
	for _, k := range filterKeys {
		fmt.Fprintf(&b, "%s=%s;", k, q.Filters[k])
	}
	fmt.Fprintf(&b, "\n%d|%d|%s|%s\n", q.Page, q.PageSize, q.SortBy, q.SortOrder)
	// Scope by caller identity and role, not session: visibility depends
	// on who is asking, not which tab they ask from.
	fmt.Fprintf(&b, "%s|%s", perm.CallerID, perm.Role)

	sum := sha256.Sum256([]byte(b.String()))
	return keyPrefix + hex.EncodeToString(sum[:])
}
