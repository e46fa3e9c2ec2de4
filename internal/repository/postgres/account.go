package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/learnsync/internal/model"
)

var _ model.AccountLoader = (*AccountRepository)(nil)

// AccountRepository reads a profile and its enrollments inside one read-only
// transaction so both come from the same snapshot.
type AccountRepository struct {
	db *Connection
}

func NewAccountRepository(db *Connection) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) LoadAccount(ctx context.Context, userID string) (model.ProfileRow, []model.Enrollment, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return model.ProfileRow{}, nil, fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	profile, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID))
	if err != nil {
		return model.ProfileRow{}, nil, fmt.Errorf("failed to get profile: %w", classify(err))
	}

	rows, err := tx.Query(ctx, listEnrollmentsQuery, userID)
	if err != nil {
		return model.ProfileRow{}, nil, fmt.Errorf("failed to list enrollments: %w", classify(err))
	}
	enrollments, err := scanEnrollments(rows)
	if err != nil {
		return model.ProfileRow{}, nil, fmt.Errorf("failed to scan enrollments: %w", classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return model.ProfileRow{}, nil, fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return profile, enrollments, nil
}
