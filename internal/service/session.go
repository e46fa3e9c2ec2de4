package service

import (
	"context"
	"errors"
	"sync"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

// SessionManager owns the signed-in user for the lifetime of the process.
// Restore must run once before any other operation. Operations are not
// reentrant: a call made while another one is running fails with ErrBusy.
type SessionManager struct {
	mode     model.BackendMode
	gateway  *Gateway
	ledger   *Ledger
	profile  *Profile
	snapshot model.Snapshot
	logger   *logger.Logger

	op sync.Mutex

	mu       sync.RWMutex
	restored bool
	state    model.SessionState
	session  model.Session
}

func NewSessionManager(
	mode model.BackendMode,
	gateway *Gateway,
	ledger *Ledger,
	profile *Profile,
	snapshot model.Snapshot,
	logger *logger.Logger,
) *SessionManager {
	return &SessionManager{
		mode:     mode,
		gateway:  gateway,
		ledger:   ledger,
		profile:  profile,
		snapshot: snapshot,
		logger:   logger,
		state:    model.Loading(),
	}
}

func (m *SessionManager) Mode() model.BackendMode {
	return m.mode
}

// State returns a copy of the current state.
func (m *SessionManager) State() model.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := m.state
	if state.User != nil {
		u := state.User.Clone()
		state.User = &u
	}
	return state
}

// User returns a copy of the signed-in user.
func (m *SessionManager) User() (model.User, bool) {
	state := m.State()
	if state.Status != model.SessionAuthenticated {
		return model.User{}, false
	}
	return *state.User, true
}

func (m *SessionManager) source() model.SessionSource {
	if m.mode == model.BackendRemote {
		return model.SourceRemote
	}
	return model.SourceLocal
}

func (m *SessionManager) setState(state model.SessionState, session model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.session = session
}

func (m *SessionManager) begin() error {
	if !m.op.TryLock() {
		return ErrBusy
	}
	m.mu.RLock()
	restored := m.restored
	m.mu.RUnlock()
	if !restored {
		m.op.Unlock()
		return ErrNotRestored
	}
	return nil
}

// Restore establishes the session at startup. Remote failures fall back to
// the snapshot's current user; only if that is missing too is the state
// Unauthenticated. Restore never reports a backend failure as an error.
func (m *SessionManager) Restore(ctx context.Context) (model.SessionState, error) {
	if !m.op.TryLock() {
		return m.State(), ErrBusy
	}
	defer m.op.Unlock()

	m.mu.Lock()
	if m.restored {
		m.mu.Unlock()
		return m.State(), ErrAlreadyRestored
	}
	m.restored = true
	m.mu.Unlock()

	if m.mode == model.BackendRemote {
		if user, session, ok := m.restoreRemote(ctx); ok {
			m.setState(model.Authenticated(user, model.SourceRemote), session)
			return m.State(), nil
		}
	}

	user, err := m.snapshot.CurrentUser(ctx)
	if err == nil {
		if err := model.CheckDisjoint(user); err == nil {
			m.logger.Info("Session manager: restored from local snapshot", "user_id", user.ID)
			m.setState(model.Authenticated(user, model.SourceLocal), model.Session{})
			return m.State(), nil
		}
		m.logger.Error("Session manager: local snapshot user is inconsistent", "user_id", user.ID)
	} else if !errors.Is(err, model.ErrNotFound) {
		m.logger.Warn("Session manager: failed to read local snapshot", "error", err.Error())
	}

	m.setState(model.Unauthenticated(), model.Session{})
	return m.State(), nil
}

func (m *SessionManager) restoreRemote(ctx context.Context) (model.User, model.Session, bool) {
	stored, err := m.snapshot.Session(ctx)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			m.logger.Warn("Session manager: failed to read stored session", "error", err.Error())
		}
		return model.User{}, model.Session{}, false
	}

	user, session, err := m.gateway.Resume(ctx, stored)
	if err != nil {
		m.logger.Warn("Session manager: remote restore failed, trying local snapshot", "error", err.Error())
		return model.User{}, model.Session{}, false
	}

	if err := m.snapshot.SetSession(ctx, session); err != nil {
		m.logger.Warn("Session manager: failed to store refreshed session", "error", err.Error())
	}
	if err := m.snapshot.SyncUser(ctx, user); err != nil {
		m.logger.Warn("Session manager: failed to mirror user", "user_id", user.ID, "error", err.Error())
	}

	m.logger.Info("Session manager: restored remote session", "user_id", user.ID)
	return user, session, true
}

func (m *SessionManager) Login(ctx context.Context, email, password string) (model.SessionState, error) {
	if err := m.begin(); err != nil {
		return m.State(), err
	}
	defer m.op.Unlock()

	user, session, err := m.gateway.Login(ctx, m.mode, email, password)
	if err != nil {
		return m.State(), err
	}

	m.setState(model.Authenticated(user, m.source()), session)
	return m.State(), nil
}

// Register creates an account and signs it in. When the account must be
// confirmed first, the returned state is left as it was and the user is
// returned for display only.
func (m *SessionManager) Register(ctx context.Context, data model.RegisterData) (model.User, model.SessionState, error) {
	if err := m.begin(); err != nil {
		return model.User{}, m.State(), err
	}
	defer m.op.Unlock()

	user, session, err := m.gateway.Register(ctx, m.mode, data)
	if err != nil {
		return model.User{}, m.State(), err
	}
	if session.IsZero() {
		return user, m.State(), nil
	}

	m.setState(model.Authenticated(user, m.source()), session)
	return user, m.State(), nil
}

// Logout always ends the in-memory session, even when clearing the snapshot fails.
func (m *SessionManager) Logout(ctx context.Context) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.op.Unlock()

	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()

	err := m.gateway.Logout(ctx, m.mode, session)
	m.setState(model.Unauthenticated(), model.Session{})
	return err
}

// mutate runs fn against a copy of the signed-in user and publishes the copy
// when fn succeeds or fails with an invariant violation.
func (m *SessionManager) mutate(fn func(u *model.User) error) error {
	if err := m.begin(); err != nil {
		return err
	}
	defer m.op.Unlock()

	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()
	if state.Status != model.SessionAuthenticated || state.User == nil {
		return ErrNotAuthenticated
	}

	work := state.User.Clone()
	err := fn(&work)
	if err != nil && !errors.Is(err, model.ErrInvariantViolation) {
		return err
	}

	m.mu.Lock()
	m.state = model.Authenticated(work, state.Source)
	m.mu.Unlock()
	return err
}

func (m *SessionManager) SetEnrollment(ctx context.Context, courseIDs []string) error {
	return m.mutate(func(u *model.User) error {
		return m.ledger.SetEnrollment(ctx, m.mode, u, courseIDs)
	})
}

func (m *SessionManager) CompleteCourse(ctx context.Context, courseID string) error {
	return m.mutate(func(u *model.User) error {
		return m.ledger.CompleteCourse(ctx, m.mode, u, courseID)
	})
}

func (m *SessionManager) UpdateProfile(ctx context.Context, patch model.ProfilePatch) error {
	return m.mutate(func(u *model.User) error {
		return m.profile.Update(ctx, m.mode, u, patch)
	})
}

func (m *SessionManager) ReconcileCertificates(ctx context.Context) (int, error) {
	if err := m.begin(); err != nil {
		return 0, err
	}
	defer m.op.Unlock()

	return m.ledger.ReconcileCertificates(ctx, m.mode)
}
