package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// assetFilterColumns whitelists the structured filters the asset
// adapter recognizes.
var assetFilterColumns = map[string]string{
	"type":     "type",
	"category": "category",
	"owner_id": "owner_id",
	"license":  "license_code",
}

// PostgresAssetAdapter searches the assets table.
type PostgresAssetAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresAssetAdapter creates a new PostgresAssetAdapter.
func NewPostgresAssetAdapter(db *sql.DB, logger *slog.Logger) *PostgresAssetAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAssetAdapter{db: db, logger: logger}
}

// Kind implements search.Adapter.
func (a *PostgresAssetAdapter) Kind() search.EntityKind {
	return search.KindAsset
}

// Search returns up to cap asset candidates plus the total matching
// count. Visibility: non-deleted approved assets for everyone; owners
// and admins additionally see their own or all unapproved assets.
func (a *PostgresAssetAdapter) Search(ctx context.Context, filters map[string]string, perm search.PermissionContext, cap int) ([]search.Candidate, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	switch {
	case perm.Admin():
		// Admins see every non-deleted asset.
	case perm.CallerID != "":
		args = append(args, perm.CallerID)
		where = append(where, fmt.Sprintf("(status = 'approved' OR owner_id = $%d)", len(args)))
	default:
		where = append(where, "status = 'approved'")
	}

	where, args = appendFilters(where, args, filters, assetFilterColumns)

	var total int
	countQuery := "SELECT COUNT(*) FROM assets " + whereSQL(where)
	if err := a.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	args = append(args, cap)
	query := fmt.Sprintf(`
		SELECT id, title, COALESCE(description, ''), created_at,
		       view_count, download_count, favorite_count,
		       verified, status
		FROM assets
		%s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d
	`, whereSQL(where), len(args))

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query assets: %w", err)
	}
	defer closeRows(rows, a.logger)

	var candidates []search.Candidate
	for rows.Next() {
		var (
			c      search.Candidate
			status string
		)
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.CreatedAt,
			&c.Popularity.Views, &c.Popularity.Uses, &c.Popularity.Favorites,
			&c.Quality.Verified, &status,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan asset: %w", err)
		}
		c.Kind = search.KindAsset
		c.Quality.Approved = status == "approved"
		c.Quality.Active = true // deleted rows are filtered out above
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return candidates, total, nil
}
