package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/learnsync/internal/model"
)

// ProfileStore is a mock of model.ProfileStore.
type ProfileStore struct {
	mock.Mock
}

func (m *ProfileStore) Create(ctx context.Context, row model.ProfileRow) (model.ProfileRow, error) {
	args := m.Called(ctx, row)
	return args.Get(0).(model.ProfileRow), args.Error(1)
}

func (m *ProfileStore) GetByID(ctx context.Context, id string) (model.ProfileRow, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.ProfileRow), args.Error(1)
}

func (m *ProfileStore) Update(ctx context.Context, id string, patch model.ProfilePatch) (model.ProfileRow, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(model.ProfileRow), args.Error(1)
}

// EnrollmentStore is a mock of model.EnrollmentStore.
type EnrollmentStore struct {
	mock.Mock
}

func (m *EnrollmentStore) ListByUser(ctx context.Context, userID string) ([]model.Enrollment, error) {
	args := m.Called(ctx, userID)
	rows, _ := args.Get(0).([]model.Enrollment)
	return rows, args.Error(1)
}

func (m *EnrollmentStore) Enroll(ctx context.Context, userID string, courseIDs []string) error {
	return m.Called(ctx, userID, courseIDs).Error(0)
}

func (m *EnrollmentStore) MarkCompleted(ctx context.Context, userID, courseID string) error {
	return m.Called(ctx, userID, courseID).Error(0)
}

// AccountLoader is a mock of model.AccountLoader.
type AccountLoader struct {
	mock.Mock
}

func (m *AccountLoader) LoadAccount(ctx context.Context, userID string) (model.ProfileRow, []model.Enrollment, error) {
	args := m.Called(ctx, userID)
	rows, _ := args.Get(1).([]model.Enrollment)
	return args.Get(0).(model.ProfileRow), rows, args.Error(2)
}

// CompletionStore is a mock of model.CompletionStore.
type CompletionStore struct {
	mock.Mock
}

func (m *CompletionStore) Upsert(ctx context.Context, userID, courseID string) (model.Completion, bool, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Get(0).(model.Completion), args.Bool(1), args.Error(2)
}

func (m *CompletionStore) MarkCertificateIssued(ctx context.Context, userID, courseID, certificateID string) error {
	return m.Called(ctx, userID, courseID, certificateID).Error(0)
}

func (m *CompletionStore) ListPendingCertificates(ctx context.Context, limit int) ([]model.Completion, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]model.Completion)
	return rows, args.Error(1)
}

var (
	_ model.ProfileStore    = (*ProfileStore)(nil)
	_ model.EnrollmentStore = (*EnrollmentStore)(nil)
	_ model.AccountLoader   = (*AccountLoader)(nil)
	_ model.CompletionStore = (*CompletionStore)(nil)
)
