package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.EnrollmentStore = (*EnrollmentRepository)(nil)

type EnrollmentRepository struct {
	db *Connection
}

func NewEnrollmentRepository(db *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `user_id, course_id, status, progress, enrolled_at, completed_at`

const listEnrollmentsQuery = `SELECT ` + enrollmentColumns + `
			  FROM course_enrollments WHERE user_id = $1
			  ORDER BY enrolled_at, course_id`

func scanEnrollments(rows pgx.Rows) ([]model.Enrollment, error) {
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		var status string
		if err := rows.Scan(&e.UserID, &e.CourseID, &status, &e.Progress, &e.EnrolledAt, &e.CompletedAt); err != nil {
			return nil, err
		}
		e.Status = model.EnrollmentStatus(status)
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	rows, err := r.db.Query(ctx, listEnrollmentsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", classify(err))
	}

	enrollments, err := scanEnrollments(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan enrollments: %w", classify(err))
	}
	return enrollments, nil
}

// Enroll inserts one enrolled row per course id. Rows that already exist,
// including completed ones, are left as they are.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID string, courseIDs []string) error {
	if len(courseIDs) == 0 {
		return nil
	}

	query := `INSERT INTO course_enrollments (user_id, course_id, status)
			  SELECT $1, course_id, 'enrolled' FROM unnest($2::text[]) AS course_id
			  ON CONFLICT (user_id, course_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, userID, courseIDs); err != nil {
		return fmt.Errorf("failed to insert enrollments: %w", classify(err))
	}
	return nil
}

// MarkCompleted flips the row to completed, creating it if the user was never enrolled.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, userID, courseID string) error {
	query := `INSERT INTO course_enrollments (user_id, course_id, status, progress, completed_at)
			  VALUES ($1, $2, 'completed', 100, NOW())
			  ON CONFLICT (user_id, course_id) DO UPDATE SET
				status = 'completed',
				progress = 100,
				completed_at = COALESCE(course_enrollments.completed_at, EXCLUDED.completed_at)`

	if _, err := r.db.Exec(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("failed to mark enrollment completed: %w", classify(err))
	}
	return nil
}
