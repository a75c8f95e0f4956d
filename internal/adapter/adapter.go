// Package adapter provides the per-kind entity adapters that feed the
// search core. Each adapter fetches a permission-filtered, structurally
// filtered candidate set from Postgres and projects it into the uniform
// scoring-input shape, along with the total matching count for facets.
//
// Filter maps are shared across every requested kind, so adapters
// silently ignore filter keys they do not recognize; recognized keys
// are mapped to columns through a whitelist, never interpolated.
package adapter

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// appendFilters extends a WHERE clause with the recognized filters.
// allowed maps filter keys to column names; values are always bound as
// placeholders.
func appendFilters(where []string, args []any, filters map[string]string, allowed map[string]string) ([]string, []any) {
	// Iterate the whitelist rather than the filter map for stable
	// placeholder ordering.
	for _, key := range sortedKeys(allowed) {
		val, ok := filters[key]
		if !ok || val == "" {
			continue
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", allowed[key], len(args)))
	}
	return where, args
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Insertion sort; the whitelists hold a handful of keys.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

// closeRows closes a result set, logging rather than masking the error.
func closeRows(rows *sql.Rows, logger *slog.Logger) {
	if err := rows.Close(); err != nil {
		logger.Warn("failed to close rows", slog.String("error", err.Error()))
	}
}

// whereSQL joins clause fragments into a WHERE expression.
func whereSQL(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(where, " AND ")
}
