package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/learnsync/internal/logger"
	"github.com/dtroode/learnsync/internal/model"
)

var errStorageUnavailable = errors.New("certificate storage unavailable")

// Certificates issues course certificates. Issue is idempotent on (user, course):
// the stored row and the uploaded document are reused when present.
type Certificates struct {
	store   model.CertificateStore
	storage model.Storage
	logger  *logger.Logger
}

// NewCertificates accepts a nil storage; issuance then fails and completions stay pending.
func NewCertificates(store model.CertificateStore, storage model.Storage, logger *logger.Logger) *Certificates {
	return &Certificates{store: store, storage: storage, logger: logger}
}

var _ model.CertificateIssuer = (*Certificates)(nil)

func certificateKey(userID, courseID string) string {
	return fmt.Sprintf("certificates/%s/%s.json", userID, courseID)
}

func certificateCode(id string) string {
	return "LS-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:12])
}

func (c *Certificates) Issue(ctx context.Context, userID, courseID string) (model.Certificate, error) {
	if c.storage == nil {
		return model.Certificate{}, errStorageUnavailable
	}

	id := uuid.NewString()
	cert, err := c.store.Upsert(ctx, model.Certificate{
		ID:        id,
		UserID:    userID,
		CourseID:  courseID,
		Code:      certificateCode(id),
		ObjectKey: certificateKey(userID, courseID),
		IssuedAt:  time.Now().UTC(),
	})
	if err != nil {
		return model.Certificate{}, fmt.Errorf("failed to store certificate: %w", err)
	}

	exists, err := c.storage.Has(ctx, cert.ObjectKey)
	if err != nil {
		return model.Certificate{}, fmt.Errorf("failed to check certificate document: %w", err)
	}
	if exists {
		c.logger.Debug("Certificate service: document already uploaded",
			"user_id", userID,
			"course_id", courseID)
		return cert, nil
	}

	if err := c.storage.Store(ctx, cert); err != nil {
		return model.Certificate{}, fmt.Errorf("failed to upload certificate: %w", err)
	}

	c.logger.Info("Certificate service: certificate issued",
		"user_id", userID,
		"course_id", courseID,
		"code", cert.Code)

	return cert, nil
}
