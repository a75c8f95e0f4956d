package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// creatorFilterColumns whitelists the structured filters the creator
// adapter recognizes.
var creatorFilterColumns = map[string]string{
	"specialty": "specialty",
	"country":   "country",
}

// PostgresCreatorAdapter searches the creators table.
type PostgresCreatorAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCreatorAdapter creates a new PostgresCreatorAdapter.
func NewPostgresCreatorAdapter(db *sql.DB, logger *slog.Logger) *PostgresCreatorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCreatorAdapter{db: db, logger: logger}
}

// Kind implements search.Adapter.
func (a *PostgresCreatorAdapter) Kind() search.EntityKind {
	return search.KindCreator
}

// Search returns up to cap creator candidates plus the total matching
// count. Only active, non-deleted profiles are visible to non-admins.
func (a *PostgresCreatorAdapter) Search(ctx context.Context, filters map[string]string, perm search.PermissionContext, cap int) ([]search.Candidate, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if !perm.Admin() {
		where = append(where, "active = TRUE")
	}
	where, args = appendFilters(where, args, filters, creatorFilterColumns)

	var total int
	countQuery := "SELECT COUNT(*) FROM creators " + whereSQL(where)
	if err := a.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count creators: %w", err)
	}

	args = append(args, cap)
	query := fmt.Sprintf(`
		SELECT id, display_name, COALESCE(bio, ''), created_at,
		       profile_views, sales_count, follower_count,
		       verified, active
		FROM creators
		%s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d
	`, whereSQL(where), len(args))

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query creators: %w", err)
	}
	defer closeRows(rows, a.logger)

	var candidates []search.Candidate
	for rows.Next() {
		var c search.Candidate
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.CreatedAt,
			&c.Popularity.Views, &c.Popularity.Uses, &c.Popularity.Favorites,
			&c.Quality.Verified, &c.Quality.Active,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan creator: %w", err)
		}
		c.Kind = search.KindCreator
		// Creator profiles have no separate approval step; an active
		// profile is an approved one.
		c.Quality.Approved = c.Quality.Active
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate creators: %w", err)
	}
	return candidates, total, nil
}
