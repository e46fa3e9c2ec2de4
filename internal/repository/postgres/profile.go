package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.ProfileStore = (*ProfileRepository)(nil)

type ProfileRepository struct {
	db *Connection
}

func NewProfileRepository(db *Connection) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, role, name, email, phone, bio, location, occupation, education, avatar_ref, created_at, updated_at`

func scanProfile(row pgx.Row) (model.ProfileRow, error) {
	var p model.ProfileRow
	var role string
	err := row.Scan(
		&p.ID, &role, &p.Profile.Name, &p.Profile.Email, &p.Profile.Phone, &p.Profile.Bio,
		&p.Profile.Location, &p.Profile.Occupation, &p.Profile.Education, &p.Profile.AvatarRef,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.Role = model.Role(role)
	return p, err
}

func (r *ProfileRepository) Create(ctx context.Context, row model.ProfileRow) (model.ProfileRow, error) {
	query := `INSERT INTO profiles (id, role, name, email, phone, bio, location, occupation, education, avatar_ref)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + profileColumns

	p := row.Profile
	saved, err := scanProfile(r.db.QueryRow(ctx, query,
		row.ID, string(row.Role), p.Name, p.Email, p.Phone, p.Bio, p.Location, p.Occupation, p.Education, p.AvatarRef,
	))
	if err != nil {
		return model.ProfileRow{}, fmt.Errorf("failed to create profile: %w", classify(err))
	}
	return saved, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (model.ProfileRow, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	row, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return model.ProfileRow{}, fmt.Errorf("failed to get profile: %w", classify(err))
	}
	return row, nil
}

// Update overwrites only the columns whose patch field is set. The email column
// follows the identity and is never patched.
func (r *ProfileRepository) Update(ctx context.Context, id string, patch model.ProfilePatch) (model.ProfileRow, error) {
	query := `UPDATE profiles SET
				name       = COALESCE($2, name),
				phone      = COALESCE($3, phone),
				bio        = COALESCE($4, bio),
				location   = COALESCE($5, location),
				occupation = COALESCE($6, occupation),
				education  = COALESCE($7, education),
				avatar_ref = COALESCE($8, avatar_ref),
				updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + profileColumns

	row, err := scanProfile(r.db.QueryRow(ctx, query,
		id, patch.Name, patch.Phone, patch.Bio, patch.Location, patch.Occupation, patch.Education, patch.AvatarRef,
	))
	if err != nil {
		return model.ProfileRow{}, fmt.Errorf("failed to update profile: %w", classify(err))
	}
	return row, nil
}
