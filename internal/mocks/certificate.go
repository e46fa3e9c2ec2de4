package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/learnsync/internal/model"
)

// CertificateIssuer is a mock of model.CertificateIssuer.
type CertificateIssuer struct {
	mock.Mock
}

func (m *CertificateIssuer) Issue(ctx context.Context, userID, courseID string) (model.Certificate, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Get(0).(model.Certificate), args.Error(1)
}

// CertificateStore is a mock of model.CertificateStore.
type CertificateStore struct {
	mock.Mock
}

func (m *CertificateStore) Upsert(ctx context.Context, cert model.Certificate) (model.Certificate, error) {
	args := m.Called(ctx, cert)
	return args.Get(0).(model.Certificate), args.Error(1)
}

func (m *CertificateStore) GetByUserAndCourse(ctx context.Context, userID, courseID string) (model.Certificate, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Get(0).(model.Certificate), args.Error(1)
}

// Storage is a mock of model.Storage.
type Storage struct {
	mock.Mock
}

func (m *Storage) Store(ctx context.Context, cert model.Certificate) error {
	return m.Called(ctx, cert).Error(0)
}

func (m *Storage) Has(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// EventPublisher is a mock of model.EventPublisher.
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, event model.Event) error {
	return m.Called(ctx, event).Error(0)
}

var (
	_ model.CertificateIssuer = (*CertificateIssuer)(nil)
	_ model.CertificateStore  = (*CertificateStore)(nil)
	_ model.Storage           = (*Storage)(nil)
	_ model.EventPublisher    = (*EventPublisher)(nil)
)
