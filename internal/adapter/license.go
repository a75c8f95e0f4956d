package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// licenseFilterColumns whitelists the structured filters the license
// adapter recognizes.
var licenseFilterColumns = map[string]string{
	"license_type": "license_type",
}

// PostgresLicenseAdapter searches the licenses table.
type PostgresLicenseAdapter struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresLicenseAdapter creates a new PostgresLicenseAdapter.
func NewPostgresLicenseAdapter(db *sql.DB, logger *slog.Logger) *PostgresLicenseAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresLicenseAdapter{db: db, logger: logger}
}

// Kind implements search.Adapter.
func (a *PostgresLicenseAdapter) Kind() search.EntityKind {
	return search.KindLicense
}

// Search returns up to cap license candidates plus the total matching
// count. Only active license offerings are visible to non-admins.
func (a *PostgresLicenseAdapter) Search(ctx context.Context, filters map[string]string, perm search.PermissionContext, cap int) ([]search.Candidate, int, error) {
	where := []string{"deleted_at IS NULL"}
	var args []any
	if !perm.Admin() {
		where = append(where, "active = TRUE")
	}
	where, args = appendFilters(where, args, filters, licenseFilterColumns)

	var total int
	countQuery := "SELECT COUNT(*) FROM licenses " + whereSQL(where)
	if err := a.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	args = append(args, cap)
	query := fmt.Sprintf(`
		SELECT id, name, COALESCE(terms_summary, ''), created_at,
		       view_count, purchase_count, active
		FROM licenses
		%s
		ORDER BY created_at DESC, id ASC
		LIMIT $%d
	`, whereSQL(where), len(args))

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query licenses: %w", err)
	}
	defer closeRows(rows, a.logger)

	var candidates []search.Candidate
	for rows.Next() {
		var c search.Candidate
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.CreatedAt,
			&c.Popularity.Views, &c.Popularity.Uses,
			&c.Quality.Active,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan license: %w", err)
		}
		c.Kind = search.KindLicense
		c.Quality.Approved = c.Quality.Active
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate licenses: %w", err)
	}
	return candidates, total, nil
}
