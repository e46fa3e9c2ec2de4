package model

import "time"

// Session is an identity provider session.
type Session struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IsZero reports whether no session was issued.
func (s Session) IsZero() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// SessionStatus is the discriminant of SessionState.
type SessionStatus int

const (
	SessionLoading SessionStatus = iota
	SessionAuthenticated
	SessionUnauthenticated
)

func (s SessionStatus) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionAuthenticated:
		return "authenticated"
	case SessionUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// SessionSource tells which backend an authenticated user was loaded from.
type SessionSource string

const (
	SourceRemote SessionSource = "remote"
	SourceLocal  SessionSource = "local"
)

// SessionState is the state exposed by the session manager.
// User is set only when Status is SessionAuthenticated.
type SessionState struct {
	Status SessionStatus
	User   *User
	Source SessionSource
}

func Loading() SessionState {
	return SessionState{Status: SessionLoading}
}

func Unauthenticated() SessionState {
	return SessionState{Status: SessionUnauthenticated}
}

func Authenticated(u User, source SessionSource) SessionState {
	return SessionState{Status: SessionAuthenticated, User: &u, Source: source}
}
