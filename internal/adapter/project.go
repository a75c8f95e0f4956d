package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// projectFilterColumns whitelists the structured filters the project
// adapter recognizes.
var projectFilterColumns = map[string]string{
	"status":   "status",
	"owner_id": "owner_id",
	"category": "category",
}

// PostgresProjectAdapter searches the projects table.
type PostgresProjectAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProjectAdapter creates a new PostgresProjectAdapter.
func NewPostgresProjectAdapter(db *sql.DB, logger *slog.Logger) *PostgresProjectAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectAdapter{db: db, logger: logger}
}

// Kind implements search.Adapter.
func (a *PostgresProjectAdapter) Kind() search.EntityKind {
	return search.KindProject
}

// Search returns up to cap project candidates plus the total matching
// count. Non-admin callers see published projects and their own drafts.
func (a *PostgresProjectAdapter) Search(ctx context.Context, filters map[string]string, perm search.PermissionContext, cap int) ([]search.Candidate, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any

	switch {
	case perm.Admin():
	case perm.CallerID != "":
		args = append(args, perm.CallerID)
		where = append(where, fmt.Sprintf("(status = 'published' OR owner_id = $%d)", len(args)))
	default:
		where = append(where, "status = 'published'")
	}

	where, args = appendFilters(where, args, filters, projectFilterColumns)

	var total int
	countQuery := "SELECT COUNT(*) FROM projects " + whereSQL(where)
	if err := a.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	args = append(args, cap)
	query := fmt.Sprintf(`
		SELECT id, title, COALESCE(description, ''), created_at,
		       view_count, asset_count, favorite_count, status
		FROM projects
		%s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d
	`, whereSQL(where), len(args))

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query projects: %w", err)
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
			&status,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		c.Kind = search.KindProject
		c.Quality.Approved = status == "published"
		c.Quality.Active = status != "archived"
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return candidates, total, nil
}
