package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
	"github.com/dtroode/learnsync/internal/token"
)

// TokenService turns a user id into a session and keeps the refresh token
// chain behind it. Refresh tokens are single use: presenting one that was
// already rotated revokes every session of its user.
type TokenService struct {
	manager model.TokenManager
	store   model.RefreshTokenStore
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, store: store, logger: logger}
}

// Issue starts a new refresh token chain for userID.
func (s *TokenService) Issue(ctx context.Context, userID string) (model.Session, error) {
	record, session, err := s.mint(userID, nil)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.store.Create(ctx, record); err != nil {
		return model.Session{}, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return session, nil
}

// Refresh exchanges a refresh token for a new session.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	_, jti, err := s.manager.ParseRefreshToken(refreshToken)
	if err != nil {
		return model.Session{}, err
	}

	current, err := s.store.GetByJTI(ctx, jti)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to get refresh token: %w", err)
	}

	err = current.Validate(digest(refreshToken), time.Now())
	if errors.Is(err, model.ErrTokenRevoked) {
		s.revokeChain(ctx, current.UserID)
		return model.Session{}, err
	}
	if err != nil {
		return model.Session{}, err
	}

	next, session, err := s.mint(current.UserID, &current.JTI)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.store.Rotate(ctx, current.JTI, next); err != nil {
		if errors.Is(err, model.ErrTokenRevoked) {
			s.revokeChain(ctx, current.UserID)
		}
		return model.Session{}, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	s.logger.Debug("Token service: session refreshed", "user_id", current.UserID)
	return session, nil
}

func (s *TokenService) revokeChain(ctx context.Context, userID string) {
	s.logger.Warn("Token service: revoked refresh token presented, revoking all sessions", "user_id", userID)
	if err := s.store.RevokeAllByUser(ctx, userID); err != nil {
		s.logger.Error("Token service: failed to revoke sessions", "user_id", userID, "error", err.Error())
	}
}

func (s *TokenService) mint(userID string, rotatedFrom *string) (model.RefreshToken, model.Session, error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return model.RefreshToken{}, model.Session{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, jti, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return model.RefreshToken{}, model.Session{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := time.Now()
	record := model.RefreshToken{
		JTI:            jti,
		UserID:         userID,
		TokenHash:      digest(refresh),
		IssuedAt:       now,
		ExpiresAt:      now.Add(token.RefreshTTL),
		RotatedFromJTI: rotatedFrom,
	}
	session := model.Session{
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(token.AccessTTL),
	}
	return record, session, nil
}

// RevokeByToken ends the session holding refreshToken.
func (s *TokenService) RevokeByToken(ctx context.Context, refreshToken string) error {
	_, jti, err := s.manager.ParseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	return s.store.RevokeByJTI(ctx, jti)
}

func (s *TokenService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.store.RevokeAllByUser(ctx, userID)
}

// GetUserID returns the subject of a valid access token.
func (s *TokenService) GetUserID(_ context.Context, accessToken string) (string, error) {
	return s.manager.ParseAccessToken(accessToken)
}

func digest(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}
