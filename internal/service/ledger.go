package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

const reconcileBatchSize = 100

// Ledger owns the enrolled and completed course sets of a user.
// Mutations are applied to the user first and rolled back if the write fails.
// Every mutation ends by checking that the two sets are disjoint.
type Ledger struct {
	enrollments model.EnrollmentStore
	completions model.CompletionStore
	issuer      model.CertificateIssuer
	snapshot    model.Snapshot
	events      model.EventPublisher
	logger      *logger.Logger
}

func NewLedger(
	enrollments model.EnrollmentStore,
	completions model.CompletionStore,
	issuer model.CertificateIssuer,
	snapshot model.Snapshot,
	events model.EventPublisher,
	logger *logger.Logger,
) *Ledger {
	return &Ledger{
		enrollments: enrollments,
		completions: completions,
		issuer:      issuer,
		snapshot:    snapshot,
		events:      events,
		logger:      logger,
	}
}

// SetEnrollment enrolls u in the requested courses it is neither enrolled in
// nor has completed. Repeating a call writes nothing.
func (l *Ledger) SetEnrollment(ctx context.Context, mode model.BackendMode, u *model.User, courseIDs []string) error {
	u.Normalize()

	var delta []string
	for _, id := range model.NewCourseSet(courseIDs...).Slice() {
		if !u.EnrolledCourses.Has(id) && !u.CompletedCourses.Has(id) {
			delta = append(delta, id)
		}
	}
	if len(delta) == 0 {
		return model.CheckDisjoint(*u)
	}

	before := u.Clone()
	for _, id := range delta {
		u.EnrolledCourses.Add(id)
	}

	var err error
	if mode == model.BackendRemote {
		err = l.enrollments.Enroll(ctx, u.ID, delta)
	} else {
		err = l.snapshot.SyncUser(ctx, *u)
	}
	if err != nil {
		*u = before
		l.logger.Error("Ledger: enrollment write failed",
			"user_id", u.ID,
			"courses", delta,
			"error", err.Error())
		return fmt.Errorf("failed to enroll: %w", err)
	}

	if mode == model.BackendRemote {
		l.mirror(ctx, *u)
	}
	l.publish(ctx, model.Event{Type: model.EventCourseEnrolled, UserID: u.ID, CourseIDs: delta})

	l.logger.Info("Ledger: enrolled", "user_id", u.ID, "courses", delta)
	return model.CheckDisjoint(*u)
}

// CompleteCourse moves courseID into the completed set. Completing a course
// that was never enrolled is allowed, and completing twice is a no-op for the sets.
//
// In remote mode the completion record is written first, the certificate is
// issued if the record has none, and the enrollment row is flipped last. A retry
// after a partial failure finds the record and does not issue again.
func (l *Ledger) CompleteCourse(ctx context.Context, mode model.BackendMode, u *model.User, courseID string) error {
	if courseID == "" {
		return fmt.Errorf("course id is empty")
	}
	u.Normalize()

	before := u.Clone()
	newlyCompleted := !u.CompletedCourses.Has(courseID)
	u.EnrolledCourses.Remove(courseID)
	u.CompletedCourses.Add(courseID)

	var err error
	if mode == model.BackendRemote {
		err = l.completeRemote(ctx, u.ID, courseID)
	} else {
		err = l.snapshot.SyncUser(ctx, *u)
	}
	if err != nil {
		*u = before
		l.logger.Error("Ledger: completion write failed",
			"user_id", u.ID,
			"course_id", courseID,
			"error", err.Error())
		return fmt.Errorf("failed to complete course: %w", err)
	}

	if mode == model.BackendRemote {
		l.mirror(ctx, *u)
	}
	if newlyCompleted {
		l.publish(ctx, model.Event{Type: model.EventCourseCompleted, UserID: u.ID, CourseIDs: []string{courseID}})
	}

	l.logger.Info("Ledger: course completed", "user_id", u.ID, "course_id", courseID)
	return model.CheckDisjoint(*u)
}

func (l *Ledger) completeRemote(ctx context.Context, userID, courseID string) error {
	completion, _, err := l.completions.Upsert(ctx, userID, courseID)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}

	if !completion.CertificateIssued() {
		l.issueCertificate(ctx, userID, courseID)
	}

	if err := l.enrollments.MarkCompleted(ctx, userID, courseID); err != nil {
		return fmt.Errorf("failed to mark enrollment completed: %w", err)
	}
	return nil
}

// issueCertificate leaves the completion pending on failure.
func (l *Ledger) issueCertificate(ctx context.Context, userID, courseID string) bool {
	if l.issuer == nil {
		return false
	}
	cert, err := l.issuer.Issue(ctx, userID, courseID)
	if err != nil {
		l.logger.Warn("Ledger: certificate issuance failed, completion left pending",
			"user_id", userID,
			"course_id", courseID,
			"error", err.Error())
		return false
	}
	if err := l.completions.MarkCertificateIssued(ctx, userID, courseID, cert.ID); err != nil {
		l.logger.Warn("Ledger: failed to mark certificate issued",
			"user_id", userID,
			"course_id", courseID,
			"error", err.Error())
		return false
	}
	return true
}

// ReconcileCertificates retries issuance for completions that are still
// waiting for a certificate and returns how many were issued.
func (l *Ledger) ReconcileCertificates(ctx context.Context, mode model.BackendMode) (int, error) {
	if mode != model.BackendRemote {
		return 0, ErrRemoteRequired
	}

	pending, err := l.completions.ListPendingCertificates(ctx, reconcileBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending completions: %w", err)
	}

	issued := 0
	for _, c := range pending {
		if err := ctx.Err(); err != nil {
			return issued, err
		}
		if l.issueCertificate(ctx, c.UserID, c.CourseID) {
			issued++
		}
	}

	l.logger.Info("Ledger: reconciled certificates", "pending", len(pending), "issued", issued)
	return issued, nil
}

func (l *Ledger) mirror(ctx context.Context, u model.User) {
	if err := l.snapshot.SyncUser(ctx, u); err != nil {
		l.logger.Warn("Ledger: failed to mirror user", "user_id", u.ID, "error", err.Error())
	}
}

func (l *Ledger) publish(ctx context.Context, event model.Event) {
	if l.events == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	if err := l.events.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		l.logger.Warn("Ledger: failed to publish event", "type", string(event.Type), "error", err.Error())
	}
}
