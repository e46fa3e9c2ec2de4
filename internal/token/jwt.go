package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/learnsync/internal/model"
)

const (
	AccessTTL  = 15 * time.Minute
	RefreshTTL = 30 * 24 * time.Hour

	issuer = "learnsync"
)

type kind string

const (
	kindAccess  kind = "access"
	kindRefresh kind = "refresh"
)

// Claims carries the user id in the standard subject claim.
type Claims struct {
	jwt.RegisteredClaims
	Kind kind `json:"typ"`
}

// JWT signs and verifies HS256 session tokens.
type JWT struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	parser     *jwt.Parser
}

func NewJWT(secretKey string) *JWT {
	return &JWT{
		secretKey:  []byte(secretKey),
		accessTTL:  AccessTTL,
		refreshTTL: RefreshTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
	}
}

var _ model.TokenManager = (*JWT)(nil)

func (j *JWT) GenerateAccessToken(userID string) (string, error) {
	signed, _, err := j.issue(userID, kindAccess, j.accessTTL)
	return signed, err
}

// GenerateRefreshToken also returns the token's JTI, the key of its stored record.
func (j *JWT) GenerateRefreshToken(userID string) (string, string, error) {
	return j.issue(userID, kindRefresh, j.refreshTTL)
}

func (j *JWT) ParseAccessToken(tokenString string) (string, error) {
	claims, err := j.verify(tokenString, kindAccess)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (j *JWT) ParseRefreshToken(tokenString string) (string, string, error) {
	claims, err := j.verify(tokenString, kindRefresh)
	if err != nil {
		return "", "", err
	}
	if claims.ID == "" {
		return "", "", errors.New("failed to parse refresh token: missing jti")
	}
	return claims.Subject, claims.ID, nil
}

func (j *JWT) issue(userID string, k kind, ttl time.Duration) (string, string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: k,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign %s token: %w", k, err)
	}
	return signed, claims.ID, nil
}

func (j *JWT) verify(tokenString string, want kind) (*Claims, error) {
	claims := &Claims{}
	_, err := j.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return j.secretKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, model.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("failed to parse %s token: %w", want, err)
	case claims.Kind != want:
		return nil, fmt.Errorf("failed to parse %s token: got %s token", want, claims.Kind)
	case claims.Subject == "":
		return nil, fmt.Errorf("failed to parse %s token: missing subject", want)
	}
	return claims, nil
}
