// Package storage provides a small interface over S3-compatible object storage.
package storage

import (
	"context"
)

// Object is a stored blob with its user metadata.
type Object struct {
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// ObjectStore defines the object storage operations used by the application.
type ObjectStore interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// PutObject stores data under key, replacing any existing object.
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte, metadata map[string]string) error

	// GetObject reads an object. Missing objects return an apperr NotFound error.
	GetObject(ctx context.Context, bucket, key string) (*Object, error)

	// DeleteObject removes an object. Removing a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	IsMinIOEnabled() bool
}
