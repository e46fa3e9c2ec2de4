// Package snapshot implements the local fallback snapshot on top of a
// whole-document key-value store.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dtroode/learnsync/internal/model"
)

const (
	KeyUsers       = "learnsync:users"
	KeyCurrentUser = "learnsync:current_user"
	KeySession     = "learnsync:session"
)

// Snapshot stores the local user table, the current user and the session.
// Every read and write moves a whole document and holds mu for its duration.
type Snapshot struct {
	kv model.KeyValueStore
	mu sync.Mutex
}

func New(kv model.KeyValueStore) *Snapshot {
	return &Snapshot{kv: kv}
}

var _ model.Snapshot = (*Snapshot)(nil)

func (s *Snapshot) Users(ctx context.Context) ([]model.LocalUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users(ctx)
}

func (s *Snapshot) users(ctx context.Context) ([]model.LocalUser, error) {
	var users []model.LocalUser
	err := s.get(ctx, KeyUsers, &users)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Normalize()
	}
	return users, nil
}

func (s *Snapshot) FindByEmail(ctx context.Context, email string) (model.LocalUser, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return model.LocalUser{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Profile.Email, strings.TrimSpace(email)) {
			return u, nil
		}
	}
	return model.LocalUser{}, model.ErrNotFound
}

func (s *Snapshot) PutUser(ctx context.Context, user model.LocalUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putUser(ctx, user)
}

// putUser replaces the record with the same id. A record with the same email
// but another id is dropped so lookups by email stay unambiguous.
func (s *Snapshot) putUser(ctx context.Context, user model.LocalUser) error {
	if user.ID == "" {
		return fmt.Errorf("user has empty id")
	}
	users, err := s.users(ctx)
	if err != nil {
		return err
	}

	out := make([]model.LocalUser, 0, len(users)+1)
	replaced := false
	for _, u := range users {
		switch {
		case u.ID == user.ID:
			if user.Credential == "" {
				user.Credential = u.Credential
			}
			out = append(out, user)
			replaced = true
		case user.Profile.Email != "" && strings.EqualFold(u.Profile.Email, user.Profile.Email):
		default:
			out = append(out, u)
		}
	}
	if !replaced {
		out = append(out, user)
	}

	return s.set(ctx, KeyUsers, out)
}

func (s *Snapshot) SyncUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.putUser(ctx, model.LocalUser{User: u}); err != nil {
		return fmt.Errorf("failed to write user table: %w", err)
	}
	if err := s.set(ctx, KeyCurrentUser, u); err != nil {
		return fmt.Errorf("failed to write current user: %w", err)
	}
	return nil
}

func (s *Snapshot) CurrentUser(ctx context.Context) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u model.User
	if err := s.get(ctx, KeyCurrentUser, &u); err != nil {
		return model.User{}, err
	}
	if u.ID == "" {
		return model.User{}, model.ErrNotFound
	}
	u.Normalize()
	return u, nil
}

func (s *Snapshot) SetCurrentUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, KeyCurrentUser, u)
}

func (s *Snapshot) ClearCurrentUser(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, KeyCurrentUser)
}

func (s *Snapshot) Session(ctx context.Context) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session model.Session
	if err := s.get(ctx, KeySession, &session); err != nil {
		return model.Session{}, err
	}
	if session.IsZero() {
		return model.Session{}, model.ErrNotFound
	}
	return session, nil
}

func (s *Snapshot) SetSession(ctx context.Context, session model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, KeySession, session)
}

func (s *Snapshot) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, KeySession)
}

func (s *Snapshot) get(ctx context.Context, key string, dest any) error {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (s *Snapshot) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.kv.Set(ctx, key, data)
}
