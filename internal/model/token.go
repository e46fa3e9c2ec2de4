package model

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(userID string) (string, error)
	GenerateRefreshToken(userID string) (token string, jti string, err error)
	ParseAccessToken(token string) (string, error)
	ParseRefreshToken(token string) (userID string, jti string, err error)
}
