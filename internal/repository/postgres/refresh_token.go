package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

// RefreshTokenRepository stores refresh token digests.
type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

const insertRefreshTokenQuery = `
	INSERT INTO refresh_tokens (jti, user_id, token_hash, issued_at, expires_at, rotated_from_jti)
	VALUES ($1, $2, $3, $4, $5, $6)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertRefreshToken(ctx context.Context, q execer, t model.RefreshToken) error {
	_, err := q.Exec(ctx, insertRefreshTokenQuery,
		t.JTI, t.UserID, t.TokenHash, t.IssuedAt, t.ExpiresAt, t.RotatedFromJTI)
	return err
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	if err := insertRefreshToken(ctx, r.db, token); err != nil {
		return fmt.Errorf("failed to create refresh token: %w", classify(err))
	}
	return nil
}

func (r *RefreshTokenRepository) GetByJTI(ctx context.Context, jti string) (model.RefreshToken, error) {
	const query = `
		SELECT jti, user_id, token_hash, issued_at, expires_at, revoked_at, rotated_from_jti
		FROM refresh_tokens WHERE jti = $1`

	var t model.RefreshToken
	err := r.db.QueryRow(ctx, query, jti).Scan(
		&t.JTI, &t.UserID, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt, &t.RevokedAt, &t.RotatedFromJTI,
	)
	if err != nil {
		return model.RefreshToken{}, fmt.Errorf("failed to get refresh token: %w", classify(err))
	}
	return t, nil
}

// Rotate revokes oldJTI and inserts next in one transaction. Only the caller
// that wins the conditional update gets to insert a successor.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldJTI string, next model.RefreshToken) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked_at = NOW() WHERE jti = $1 AND revoked_at IS NULL`, oldJTI)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrTokenRevoked
		}
		return insertRefreshToken(ctx, tx, next)
	})
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", classify(err))
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeByJTI(ctx context.Context, jti string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE jti = $1 AND revoked_at IS NULL`, jti)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", classify(err))
	}
	return nil
}

func (r *RefreshTokenRepository) RevokeAllByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens of user: %w", classify(err))
	}
	return nil
}
