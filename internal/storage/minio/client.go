package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dtroode/learnsync/internal/model"
)

const documentContentType = "application/json"

// ObjectAPI is the subset of *minio.Client used by Client.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

var (
	_ ObjectAPI     = (*minio.Client)(nil)
	_ model.Storage = (*Client)(nil)
)

// Client archives certificate documents in a single bucket, one JSON object per certificate.
type Client struct {
	api    ObjectAPI
	bucket string
}

// Dial creates a *minio.Client. It does not contact the server.
func Dial(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// NewClient checks that bucket exists, creating it when missing.
func NewClient(ctx context.Context, api ObjectAPI, bucket string) (*Client, error) {
	exists, err := api.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
	}

	return &Client{api: api, bucket: bucket}, nil
}

// Store uploads the certificate document under cert.ObjectKey.
func (c *Client) Store(ctx context.Context, cert model.Certificate) error {
	if cert.ObjectKey == "" {
		return fmt.Errorf("certificate %s has no object key", cert.ID)
	}

	doc, err := json.Marshal(cert)
	if err != nil {
		return fmt.Errorf("failed to encode certificate: %w", err)
	}

	_, err = c.api.PutObject(ctx, c.bucket, cert.ObjectKey, bytes.NewReader(doc), int64(len(doc)), minio.PutObjectOptions{
		ContentType: documentContentType,
		UserMetadata: map[string]string{
			"user-id":   cert.UserID,
			"course-id": cert.CourseID,
			"code":      cert.Code,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload certificate %s: %w", cert.ObjectKey, err)
	}
	return nil
}

// Has reports whether a document is stored under key.
func (c *Client) Has(ctx context.Context, key string) (bool, error) {
	_, err := c.api.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat certificate %s: %w", key, err)
}
