package model

import (
	"context"
	"time"
)

// EnrollmentStatus is the status column of the enrollment join table.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// EnrollmentStore persists enrollment join rows in the remote store.
type EnrollmentStore interface {
	ListByUser(ctx context.Context, userID string) ([]Enrollment, error)
	// Enroll inserts enrolled rows for courseIDs. Existing rows are left untouched.
	Enroll(ctx context.Context, userID string, courseIDs []string) error
	// MarkCompleted sets the (user, course) row to completed, creating it if absent.
	MarkCompleted(ctx context.Context, userID, courseID string) error
}

// AccountLoader reads a profile row together with its enrollment rows as one composite read.
type AccountLoader interface {
	LoadAccount(ctx context.Context, userID string) (ProfileRow, []Enrollment, error)
}

// Enrollment is a row of the enrollment join table.
type Enrollment struct {
	UserID      string
	CourseID    string
	Status      EnrollmentStatus
	Progress    int
	EnrolledAt  time.Time
	CompletedAt *time.Time
}

// CompletionStore persists completion records, the durable fact that a user finished a course.
type CompletionStore interface {
	// Upsert creates the (user, course) completion record or returns the existing one.
	Upsert(ctx context.Context, userID, courseID string) (Completion, bool, error)
	MarkCertificateIssued(ctx context.Context, userID, courseID, certificateID string) error
	ListPendingCertificates(ctx context.Context, limit int) ([]Completion, error)
}

// Completion is a completion record.
type Completion struct {
	UserID              string
	CourseID            string
	CompletedAt         time.Time
	CertificateID       *string
	CertificateIssuedAt *time.Time
}

// CertificateIssued reports whether the certificate collaborator already handled this record.
func (c Completion) CertificateIssued() bool {
	return c.CertificateIssuedAt != nil
}
