package model

import "context"

// KeyValueStore is a whole-document key-value persistence layer.
// Get returns ErrNotFound for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Snapshot is the local fallback snapshot: a user table with credentials,
// the credential-stripped current user and the identity provider session.
type Snapshot interface {
	Users(ctx context.Context) ([]LocalUser, error)
	FindByEmail(ctx context.Context, email string) (LocalUser, error)
	// PutUser inserts or replaces a user record. An empty credential keeps the stored one.
	PutUser(ctx context.Context, user LocalUser) error
	// SyncUser writes u into the user table and makes it the current user.
	SyncUser(ctx context.Context, u User) error

	CurrentUser(ctx context.Context) (User, error)
	SetCurrentUser(ctx context.Context, u User) error
	ClearCurrentUser(ctx context.Context) error

	Session(ctx context.Context) (Session, error)
	SetSession(ctx context.Context, s Session) error
	ClearSession(ctx context.Context) error
}
