package entry

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/birthday-stream/internal/model"
	"github.com/aliskhannn/birthday-stream/internal/repository"
)

// Repository reads and writes approved birthdays in the approved_kids table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateEntry inserts an approved entry and returns its ID. Schema drift
// surfaces as repository.ErrMissingColumn.
func (r *Repository) CreateEntry(ctx context.Context, e model.ApprovedEntry) (uuid.UUID, error) {
	query := `
		INSERT INTO approved_kids (kid_name, date_of_birth, photo_path, cartoon_id, generated_video_url, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var videoURL sql.NullString
	if e.GeneratedVideoURL != nil {
		videoURL = sql.NullString{String: *e.GeneratedVideoURL, Valid: true}
	}

	var id uuid.UUID
	err := r.db.QueryRowContext(
		ctx, query, e.ChildName, e.BirthDate, e.PhotoPath, e.CartoonCharacterID, videoURL, e.ApprovedAt,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, repository.MapError("create: failed to save approved entry", err)
	}

	return id, nil
}

// ListByDay returns entries with a video whose birthday falls on month/day,
// newest first.
func (r *Repository) ListByDay(ctx context.Context, month, day int) ([]model.ApprovedEntry, error) {
	query := `
		SELECT id, kid_name, date_of_birth, photo_path, cartoon_id, generated_video_url, approved_at
		FROM approved_kids
		WHERE EXTRACT(MONTH FROM date_of_birth) = $1
		  AND EXTRACT(DAY FROM date_of_birth) = $2
		  AND generated_video_url IS NOT NULL
		  AND generated_video_url <> ''
		ORDER BY approved_at DESC
	`

	rows, err := r.db.Master.QueryContext(ctx, query, month, day)
	if err != nil {
		return nil, repository.MapError("list: failed to query approved entries", err)
	}
	defer rows.Close()

	var entries []model.ApprovedEntry
	for rows.Next() {
		var (
			e        model.ApprovedEntry
			videoURL sql.NullString
		)

		if err := rows.Scan(&e.ID, &e.ChildName, &e.BirthDate, &e.PhotoPath, &e.CartoonCharacterID, &videoURL, &e.ApprovedAt); err != nil {
			return nil, fmt.Errorf("list: failed to scan approved entry: %w", err)
		}

		if videoURL.Valid {
			url := videoURL.String
			e.GeneratedVideoURL = &url
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: failed to iterate approved entries: %w", err)
	}

	return entries, nil
}

// CountsByDay returns the number of playable entries per "MM-DD".
func (r *Repository) CountsByDay(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT to_char(date_of_birth, 'MM-DD') AS day, COUNT(*)
		FROM approved_kids
		WHERE generated_video_url IS NOT NULL
		  AND generated_video_url <> ''
		GROUP BY day
	`

	rows, err := r.db.Master.QueryContext(ctx, query)
	if err != nil {
		return nil, repository.MapError("counts: failed to query approved entries", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("counts: failed to scan row: %w", err)
		}
		counts[day] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counts: failed to iterate rows: %w", err)
	}

	return counts, nil
}
