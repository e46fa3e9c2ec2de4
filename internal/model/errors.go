package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("already exists")
	ErrUnreachable = errors.New("remote store unreachable")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfirmed       = errors.New("identity not confirmed")

	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenMismatch = errors.New("refresh token mismatch")

	ErrInvariantViolation = errors.New("enrollment invariant violated")
)

// AuthReason discriminates AuthError.
type AuthReason string

const (
	ReasonInvalidCredentials AuthReason = "invalid_credentials"
	ReasonNotConfirmed       AuthReason = "not_confirmed"
	ReasonUnreachable        AuthReason = "unreachable"
	ReasonDuplicateUser      AuthReason = "duplicate_user"
	ReasonProfileMissing     AuthReason = "profile_missing"
	ReasonInconsistent       AuthReason = "inconsistent"
	ReasonInvalidInput       AuthReason = "invalid_input"
	ReasonUnknown            AuthReason = "unknown"
)

var reasonMessages = map[AuthReason]string{
	ReasonInvalidCredentials: "invalid email or password",
	ReasonNotConfirmed:       "email address is not confirmed",
	ReasonUnreachable:        "service is unreachable, try again later",
	ReasonDuplicateUser:      "an account with this email already exists",
	ReasonProfileMissing:     "account profile is missing",
	ReasonInconsistent:       "account data is inconsistent",
	ReasonInvalidInput:       "invalid registration data",
	ReasonUnknown:            "unexpected error",
}

// AuthError is the backend-agnostic failure of a credential operation.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func NewAuthError(reason AuthReason, err error) *AuthError {
	return &AuthError{Reason: reason, Err: err}
}

// Message returns the short user-facing text for the reason.
func (e *AuthError) Message() string {
	if msg, ok := reasonMessages[e.Reason]; ok {
		return msg
	}
	return reasonMessages[ReasonUnknown]
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message() + ": " + e.Err.Error()
	}
	return e.Message()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches another AuthError with the same reason and no wrapped error.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Err == nil && t.Reason == e.Reason
}

// AuthReasonOf returns the reason of an AuthError in err's chain, or ReasonUnknown.
func AuthReasonOf(err error) AuthReason {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Reason
	}
	return ReasonUnknown
}

// InvariantError reports courses found in both the enrolled and the completed set.
type InvariantError struct {
	UserID  string
	Overlap []string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: user %s has courses both enrolled and completed: %s",
		ErrInvariantViolation, e.UserID, strings.Join(e.Overlap, ", "))
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// CheckDisjoint returns an InvariantError when u's course sets overlap.
func CheckDisjoint(u User) error {
	if overlap := u.EnrolledCourses.Intersection(u.CompletedCourses); len(overlap) > 0 {
		return &InvariantError{UserID: u.ID, Overlap: overlap}
	}
	return nil
}

// IsConsistencyFailure reports whether err signals corrupted or half-written
// account state, as opposed to a credential or connectivity failure.
func IsConsistencyFailure(err error) bool {
	if errors.Is(err, ErrInvariantViolation) {
		return true
	}
	switch AuthReasonOf(err) {
	case ReasonProfileMissing, ReasonInconsistent:
		return true
	}
	return false
}
