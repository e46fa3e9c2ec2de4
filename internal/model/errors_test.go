package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthError(t *testing.T) {
	err := NewAuthError(ReasonInvalidCredentials, ErrInvalidCredentials)
	wrapped := fmt.Errorf("login: %w", err)

	assert.Equal(t, ReasonInvalidCredentials, AuthReasonOf(wrapped))
	assert.True(t, errors.Is(wrapped, &AuthError{Reason: ReasonInvalidCredentials}))
	assert.False(t, errors.Is(wrapped, &AuthError{Reason: ReasonDuplicateUser}))
	assert.True(t, errors.Is(wrapped, ErrInvalidCredentials))
	assert.Equal(t, "invalid email or password", err.Message())
	assert.Equal(t, ReasonUnknown, AuthReasonOf(errors.New("boom")))
}

func TestCheckDisjoint(t *testing.T) {
	u := User{ID: "u1", EnrolledCourses: NewCourseSet("a", "b"), CompletedCourses: NewCourseSet("c")}
	assert.NoError(t, CheckDisjoint(u))

	u.CompletedCourses.Add("b")
	err := CheckDisjoint(u)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	var invErr *InvariantError
	assert.True(t, errors.As(err, &invErr))
	assert.Equal(t, []string{"b"}, invErr.Overlap)
}

func TestIsConsistencyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "profile missing", err: NewAuthError(ReasonProfileMissing, nil), want: true},
		{name: "inconsistent", err: NewAuthError(ReasonInconsistent, errors.New("insert failed")), want: true},
		{name: "invariant", err: &InvariantError{UserID: "u", Overlap: []string{"c"}}, want: true},
		{name: "credentials", err: NewAuthError(ReasonInvalidCredentials, nil), want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConsistencyFailure(tt.err))
		})
	}
}
