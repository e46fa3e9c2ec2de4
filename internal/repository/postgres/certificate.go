package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.CertificateStore = (*CertificateRepository)(nil)

type CertificateRepository struct {
	db *Connection
}

func NewCertificateRepository(db *Connection) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, user_id, course_id, code, object_key, issued_at`

func scanCertificate(row pgx.Row) (model.Certificate, error) {
	var c model.Certificate
	err := row.Scan(&c.ID, &c.UserID, &c.CourseID, &c.Code, &c.ObjectKey, &c.IssuedAt)
	return c, err
}

// Upsert keeps the first certificate issued for (user, course).
func (r *CertificateRepository) Upsert(ctx context.Context, cert model.Certificate) (model.Certificate, error) {
	insert := `INSERT INTO certificates (id, user_id, course_id, code, object_key, issued_at)
			   VALUES ($1, $2, $3, $4, $5, $6)
			   ON CONFLICT (user_id, course_id) DO NOTHING
			   RETURNING ` + certificateColumns

	saved, err := scanCertificate(r.db.QueryRow(ctx, insert,
		cert.ID, cert.UserID, cert.CourseID, cert.Code, cert.ObjectKey, cert.IssuedAt,
	))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Certificate{}, fmt.Errorf("failed to insert certificate: %w", classify(err))
	}

	return r.GetByUserAndCourse(ctx, cert.UserID, cert.CourseID)
}

func (r *CertificateRepository) GetByUserAndCourse(ctx context.Context, userID, courseID string) (model.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 AND course_id = $2`

	cert, err := scanCertificate(r.db.QueryRow(ctx, query, userID, courseID))
	if err != nil {
		return model.Certificate{}, fmt.Errorf("failed to get certificate: %w", classify(err))
	}
	return cert, nil
}
