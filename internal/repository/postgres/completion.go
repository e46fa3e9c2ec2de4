package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.CompletionStore = (*CompletionRepository)(nil)

type CompletionRepository struct {
	db *Connection
}

func NewCompletionRepository(db *Connection) *CompletionRepository {
	return &CompletionRepository{db: db}
}

const completionColumns = `user_id, course_id, completed_at, certificate_id, certificate_issued_at`

func scanCompletion(row pgx.Row) (model.Completion, error) {
	var c model.Completion
	err := row.Scan(&c.UserID, &c.CourseID, &c.CompletedAt, &c.CertificateID, &c.CertificateIssuedAt)
	return c, err
}

// Upsert reports created=false when the record already existed.
func (r *CompletionRepository) Upsert(ctx context.Context, userID, courseID string) (model.Completion, bool, error) {
	insert := `INSERT INTO course_completions (user_id, course_id)
			   VALUES ($1, $2)
			   ON CONFLICT (user_id, course_id) DO NOTHING
			   RETURNING ` + completionColumns

	completion, err := scanCompletion(r.db.QueryRow(ctx, insert, userID, courseID))
	if err == nil {
		return completion, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Completion{}, false, fmt.Errorf("failed to insert completion: %w", classify(err))
	}

	existing := `SELECT ` + completionColumns + ` FROM course_completions WHERE user_id = $1 AND course_id = $2`
	completion, err = scanCompletion(r.db.QueryRow(ctx, existing, userID, courseID))
	if err != nil {
		return model.Completion{}, false, fmt.Errorf("failed to get completion: %w", classify(err))
	}
	return completion, false, nil
}

func (r *CompletionRepository) MarkCertificateIssued(ctx context.Context, userID, courseID, certificateID string) error {
	query := `UPDATE course_completions
			  SET certificate_id = $3, certificate_issued_at = COALESCE(certificate_issued_at, NOW())
			  WHERE user_id = $1 AND course_id = $2`

	tag, err := r.db.Exec(ctx, query, userID, courseID, certificateID)
	if err != nil {
		return fmt.Errorf("failed to mark certificate issued: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListPendingCertificates returns the oldest completions still waiting for a certificate.
func (r *CompletionRepository) ListPendingCertificates(ctx context.Context, limit int) ([]model.Completion, error) {
	query := `SELECT ` + completionColumns + ` FROM course_completions
			  WHERE certificate_issued_at IS NULL
			  ORDER BY completed_at
			  LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending completions: %w", classify(err))
	}
	defer rows.Close()

	var completions []model.Completion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", classify(err))
		}
		completions = append(completions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completions: %w", classify(err))
	}
	return completions, nil
}
