package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/learnsync/internal/model"
)

// IdentityStore is a mock of model.IdentityStore.
type IdentityStore struct {
	mock.Mock
}

func (m *IdentityStore) GetByEmail(ctx context.Context, email string) (model.Identity, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) GetByID(ctx context.Context, id string) (model.Identity, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) Create(ctx context.Context, identity model.Identity) (model.Identity, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(model.Identity), args.Error(1)
}

func (m *IdentityStore) Confirm(ctx context.Context, email string, at time.Time) error {
	return m.Called(ctx, email, at).Error(0)
}

func (m *IdentityStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// IdentityProvider is a mock of model.IdentityProvider.
type IdentityProvider struct {
	mock.Mock
}

func (m *IdentityProvider) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *IdentityProvider) SignUp(ctx context.Context, email, password string) (model.Identity, model.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.Identity), args.Get(1).(model.Session), args.Error(2)
}

func (m *IdentityProvider) SignIn(ctx context.Context, email, password string) (model.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *IdentityProvider) Resume(ctx context.Context, session model.Session) (model.Session, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *IdentityProvider) SignOut(ctx context.Context, session model.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *IdentityProvider) DeleteIdentity(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var (
	_ model.IdentityStore    = (*IdentityStore)(nil)
	_ model.IdentityProvider = (*IdentityProvider)(nil)
)
