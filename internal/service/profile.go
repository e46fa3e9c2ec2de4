package service

import (
	"context"
	"fmt"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

// Profile updates the scalar profile fields of a user.
type Profile struct {
	profiles model.ProfileStore
	snapshot model.Snapshot
	logger   *logger.Logger
}

func NewProfile(profiles model.ProfileStore, snapshot model.Snapshot, logger *logger.Logger) *Profile {
	return &Profile{profiles: profiles, snapshot: snapshot, logger: logger}
}

// Update merges patch into u's profile. Unset patch fields keep their value.
func (p *Profile) Update(ctx context.Context, mode model.BackendMode, u *model.User, patch model.ProfilePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	before := u.Clone()
	u.Profile = patch.Apply(u.Profile)

	if mode == model.BackendRemote {
		row, err := p.profiles.Update(ctx, u.ID, patch)
		if err != nil {
			*u = before
			return fmt.Errorf("failed to update profile: %w", err)
		}
		u.Profile = row.Profile
		if err := p.snapshot.SyncUser(ctx, *u); err != nil {
			p.logger.Warn("Profile service: failed to mirror user", "user_id", u.ID, "error", err.Error())
		}
	} else if err := p.snapshot.SyncUser(ctx, *u); err != nil {
		*u = before
		return fmt.Errorf("failed to update profile: %w", err)
	}

	p.logger.Info("Profile service: profile updated", "user_id", u.ID)
	return nil
}
