package model

import (
	"context"
	"time"
)

// IdentityStore persists identities of the remote identity provider.
type IdentityStore interface {
	GetByEmail(ctx context.Context, email string) (Identity, error)
	GetByID(ctx context.Context, id string) (Identity, error)
	Create(ctx context.Context, identity Identity) (Identity, error)
	Confirm(ctx context.Context, email string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// Identity is an account of the identity provider keyed by email and password.
type Identity struct {
	ID           string
	Email        string
	PasswordHash []byte
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IdentityProvider authenticates principals and issues sessions.
type IdentityProvider interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// SignUp creates an identity. The returned session is empty when the
	// identity has to be confirmed before it may sign in.
	SignUp(ctx context.Context, email, password string) (Identity, Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	// Resume validates a stored session, refreshing it when the access token expired.
	Resume(ctx context.Context, session Session) (Session, error)
	SignOut(ctx context.Context, session Session) error
	DeleteIdentity(ctx context.Context, id string) error
}
