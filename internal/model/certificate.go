package model

import (
	"context"
	"time"
)

// CertificateIssuer issues a certificate for a completed course.
// Implementations must be idempotent on (userID, courseID).
type CertificateIssuer interface {
	Issue(ctx context.Context, userID, courseID string) (Certificate, error)
}

// CertificateStore persists certificates.
type CertificateStore interface {
	// Upsert inserts cert unless a certificate for (user, course) exists, and returns the stored row.
	Upsert(ctx context.Context, cert Certificate) (Certificate, error)
	GetByUserAndCourse(ctx context.Context, userID, courseID string) (Certificate, error)
}

// Certificate is an issued course certificate.
type Certificate struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Code      string    `json:"code"`
	ObjectKey string    `json:"object_key"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Storage archives certificate documents keyed by Certificate.ObjectKey.
type Storage interface {
	Store(ctx context.Context, cert Certificate) error
	Has(ctx context.Context, key string) (bool, error)
}
