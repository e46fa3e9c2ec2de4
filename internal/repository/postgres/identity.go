package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.IdentityStore = (*IdentityRepository)(nil)

type IdentityRepository struct {
	db *Connection
}

func NewIdentityRepository(db *Connection) *IdentityRepository {
	return &IdentityRepository{
		db: db,
	}
}

const identityColumns = `id, email, password_hash, confirmed_at, created_at, updated_at`

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (model.Identity, error) {
	var identity model.Identity
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`

	err := r.db.QueryRow(ctx, query, email).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.ConfirmedAt,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to get identity by email: %w", classify(err))
	}

	return identity, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (model.Identity, error) {
	var identity model.Identity
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.ConfirmedAt,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to get identity by id: %w", classify(err))
	}

	return identity, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	query := `INSERT INTO identities (id, email, password_hash, confirmed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING ` + identityColumns

	var saved model.Identity
	err := r.db.QueryRow(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash, identity.ConfirmedAt,
		identity.CreatedAt, identity.UpdatedAt,
	).Scan(
		&saved.ID, &saved.Email, &saved.PasswordHash, &saved.ConfirmedAt,
		&saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("failed to create identity: %w", classify(err))
	}

	return saved, nil
}

func (r *IdentityRepository) Confirm(ctx context.Context, email string, at time.Time) error {
	query := `UPDATE identities SET confirmed_at = COALESCE(confirmed_at, $2), updated_at = NOW()
			  WHERE email = $1`

	tag, err := r.db.Exec(ctx, query, email, at)
	if err != nil {
		return fmt.Errorf("failed to confirm identity: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *IdentityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete identity: %w", classify(err))
	}
	return nil
}
