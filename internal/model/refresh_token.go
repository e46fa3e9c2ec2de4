package model

import (
	"context"
	"crypto/subtle"
	"time"
)

// RefreshTokenStore persists hashed refresh tokens. Raw tokens are never stored.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (RefreshToken, error)
	// Rotate revokes oldJTI and stores next atomically. It fails with
	// ErrTokenRevoked when oldJTI was revoked concurrently.
	Rotate(ctx context.Context, oldJTI string, next RefreshToken) error
	RevokeByJTI(ctx context.Context, jti string) error
	RevokeAllByUser(ctx context.Context, userID string) error
}

// RefreshToken is the stored half of a session's refresh token.
type RefreshToken struct {
	JTI            string
	UserID         string
	TokenHash      []byte
	IssuedAt       time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	RotatedFromJTI *string
}

// Validate reports whether the token may be exchanged at now for a bearer whose token hashes to presented.
func (t RefreshToken) Validate(presented []byte, now time.Time) error {
	if t.RevokedAt != nil {
		return ErrTokenRevoked
	}
	if !now.Before(t.ExpiresAt) {
		return ErrTokenExpired
	}
	if subtle.ConstantTimeCompare(t.TokenHash, presented) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
