package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// PostgresSink implements Sink backed by the search_events table.
type PostgresSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSink creates a new PostgresSink.
func NewPostgresSink(db *sql.DB, logger *slog.Logger) *PostgresSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSink{db: db, logger: logger}
}

// Insert appends a new event.
func (s *PostgresSink) Insert(ctx context.Context, event *Event) error {
	filters, err := json.Marshal(event.Filters)
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}
	kinds := make([]string, len(event.Kinds))
	for i, k := range event.Kinds {
		kinds[i] = string(k)
	}

	query := `
		INSERT INTO search_events (id, query, kinds, filters, result_count, duration_ms, caller_id, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		event.ID,
		event.Query,
		pq.Array(kinds),
		filters,
		event.ResultCount,
		event.DurationMs,
		nullable(event.CallerID),
		nullable(event.SessionID),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search event: %w", err)
	}
	return nil
}

// AttachClick sets the click columns on an existing event. Last write
// wins; unknown ids return ErrEventNotFound with no side effects.
func (s *PostgresSink) AttachClick(ctx context.Context, eventID string, click Click) error {
	query := `
		UPDATE search_events
		SET click_result_id = $2, click_position = $3, click_kind = $4, clicked_at = $5
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		eventID,
		click.ResultID,
		click.Position,
		string(click.Kind),
		click.ClickedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to attach click: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrEventNotFound
	}
	return nil
}

// EventsSince returns events created at or after the cutoff, newest first.
func (s *PostgresSink) EventsSince(ctx context.Context, since time.Time) ([]*Event, error) {
	query := `
		SELECT id, query, kinds, filters, result_count, duration_ms,
		       COALESCE(caller_id, ''), COALESCE(session_id, ''), created_at,
		       click_result_id, click_position, click_kind, clicked_at
		FROM search_events
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query search events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var events []*Event
	for rows.Next() {
		var (
			event         Event
			kinds         pq.StringArray
			filters       []byte
			clickResultID sql.NullString
			clickPosition sql.NullInt64
			clickKind     sql.NullString
			clickedAt     sql.NullTime
		)
		if err := rows.Scan(
			&event.ID, &event.Query, &kinds, &filters,
			&event.ResultCount, &event.DurationMs,
			&event.CallerID, &event.SessionID, &event.CreatedAt,
			&clickResultID, &clickPosition, &clickKind, &clickedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search event: %w", err)
		}
		event.Kinds = make([]search.EntityKind, len(kinds))
		for i, k := range kinds {
			event.Kinds[i] = search.EntityKind(k)
		}
		if len(filters) > 0 {
			if err := json.Unmarshal(filters, &event.Filters); err != nil {
				return nil, fmt.Errorf("failed to decode filters: %w", err)
			}
		}
		if clickResultID.Valid {
			event.Click = &Click{
				ResultID:  clickResultID.String,
				Position:  int(clickPosition.Int64),
				Kind:      search.EntityKind(clickKind.String),
				ClickedAt: clickedAt.Time,
			}
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search events: %w", err)
	}
	return events, nil
}

// nullable maps an empty string to NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
