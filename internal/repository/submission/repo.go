package submission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/birthday-stream/internal/model"
	"github.com/aliskhannn/birthday-stream/internal/repository"
)

var ErrSubmissionNotFound = errors.New("submission not found")

// Repository stores submissions in the submissions table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreateSubmission inserts a new submission row.
func (r *Repository) CreateSubmission(ctx context.Context, s model.Submission) error {
	query := `
		INSERT INTO submissions (id, kid_name, date_of_birth, photo_path, cartoon_path, cartoon_id, date_caption, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		s.ID, s.ChildName, s.BirthDate, s.PhotoPath, nullString(s.CartoonPath),
		s.CartoonCharacterID, nullString(s.DateCaption), s.Status, s.CreatedAt,
	)
	if err != nil {
		return repository.MapError("create: failed to save submission", err)
	}

	return nil
}

// GetSubmission retrieves a submission by ID.
func (r *Repository) GetSubmission(ctx context.Context, id uuid.UUID) (model.Submission, error) {
	query := `
		SELECT kid_name, date_of_birth, photo_path, cartoon_path, cartoon_id, date_caption, status, created_at
		FROM submissions
		WHERE id = $1
	`

	var (
		s                    model.Submission
		cartoonPath, caption sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ChildName, &s.BirthDate, &s.PhotoPath, &cartoonPath,
		&s.CartoonCharacterID, &caption, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Submission{}, ErrSubmissionNotFound
		}

		return model.Submission{}, repository.MapError("get: failed to get submission", err)
	}

	s.ID = id
	s.CartoonPath = cartoonPath.String
	s.DateCaption = caption.String

	return s, nil
}

// UpdateStatus sets the status of a submission.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE submissions
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return repository.MapError("update: failed to update submission", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrSubmissionNotFound
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
