package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

// Identity is the identity provider backed by the remote identities table.
type Identity struct {
	identities          model.IdentityStore
	tokens              *TokenService
	requireConfirmation bool
	bcryptCost          int
	logger              *logger.Logger
}

func NewIdentity(
	identities model.IdentityStore,
	refreshTokens model.RefreshTokenStore,
	tokenManager model.TokenManager,
	requireConfirmation bool,
	bcryptCost int,
	logger *logger.Logger,
) *Identity {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Identity{
		identities:          identities,
		tokens:              NewTokenService(tokenManager, refreshTokens, logger),
		requireConfirmation: requireConfirmation,
		bcryptCost:          bcryptCost,
		logger:              logger,
	}
}

var _ model.IdentityProvider = (*Identity)(nil)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (i *Identity) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := i.identities.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get identity by email: %w", err)
	}
	return true, nil
}

func (i *Identity) SignUp(ctx context.Context, email, password string) (model.Identity, model.Session, error) {
	email = normalizeEmail(email)
	i.logger.Debug("Identity service: signing up", "email", email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), i.bcryptCost)
	if err != nil {
		return model.Identity{}, model.Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	identity := model.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !i.requireConfirmation {
		identity.ConfirmedAt = &now
	}

	created, err := i.identities.Create(ctx, identity)
	if err != nil {
		i.logger.Error("Identity service: failed to create identity",
			"email", email,
			"error", err.Error())
		return model.Identity{}, model.Session{}, fmt.Errorf("failed to create identity: %w", err)
	}

	if i.requireConfirmation {
		i.logger.Info("Identity service: identity awaits confirmation", "email", email)
		return created, model.Session{}, nil
	}

	session, err := i.tokens.Issue(ctx, created.ID)
	if err != nil {
		return created, model.Session{}, fmt.Errorf("failed to issue session: %w", err)
	}

	i.logger.Info("Identity service: identity created", "email", email, "id", created.ID)
	return created, session, nil
}

func (i *Identity) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	email = normalizeEmail(email)

	identity, err := i.identities.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return model.Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get identity by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(identity.PasswordHash, []byte(password)); err != nil {
		i.logger.Info("Identity service: password mismatch", "email", email)
		return model.Session{}, model.ErrInvalidCredentials
	}

	if identity.ConfirmedAt == nil {
		return model.Session{}, model.ErrNotConfirmed
	}

	session, err := i.tokens.Issue(ctx, identity.ID)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue session: %w", err)
	}
	return session, nil
}

// Resume returns session unchanged while its access token is valid and
// rotates it when the access token has expired.
func (i *Identity) Resume(ctx context.Context, session model.Session) (model.Session, error) {
	userID, err := i.tokens.GetUserID(ctx, session.AccessToken)
	switch {
	case errors.Is(err, model.ErrTokenExpired):
		i.logger.Debug("Identity service: access token expired, refreshing")
		session, err = i.tokens.Refresh(ctx, session.RefreshToken)
		if err != nil {
			return model.Session{}, fmt.Errorf("failed to refresh session: %w", err)
		}
		userID = session.UserID
	case err != nil:
		return model.Session{}, fmt.Errorf("failed to validate session: %w", err)
	}

	if _, err := i.identities.GetByID(ctx, userID); err != nil {
		return model.Session{}, fmt.Errorf("failed to get identity: %w", err)
	}

	session.UserID = userID
	return session, nil
}

func (i *Identity) SignOut(ctx context.Context, session model.Session) error {
	if session.RefreshToken == "" {
		return nil
	}
	if err := i.tokens.RevokeByToken(ctx, session.RefreshToken); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (i *Identity) DeleteIdentity(ctx context.Context, id string) error {
	if err := i.tokens.RevokeAllForUser(ctx, id); err != nil {
		i.logger.Warn("Identity service: failed to revoke tokens of deleted identity",
			"id", id,
			"error", err.Error())
	}
	if err := i.identities.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

// Confirm marks the identity registered under email as confirmed.
func (i *Identity) Confirm(ctx context.Context, email string) error {
	if err := i.identities.Confirm(ctx, normalizeEmail(email), time.Now()); err != nil {
		return fmt.Errorf("failed to confirm identity: %w", err)
	}
	return nil
}
