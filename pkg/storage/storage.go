// Package storage provides object storage abstraction with local and S3 implementations.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when an object does not exist.
	ErrNotFound = errors.New("storage: object not found")

	// ErrNoMatch is returned when no object matches a location pattern.
	ErrNoMatch = errors.New("storage: no object matches pattern")
)

// ObjectInfo contains metadata about a stored object
type ObjectInfo struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Storage defines the interface for object storage operations
type Storage interface {
	// List returns every object in bucket whose key starts with prefix
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)

	// Get opens an object for reading
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, *ObjectInfo, error)

	// Put stores an object, replacing any existing object with the same key
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) error

	// Delete removes an object; deleting a missing object is not an error
	Delete(ctx context.Context, bucket, key string) error

	// Move copies an object to dstKey in the same bucket, then deletes the source
	Move(ctx context.Context, bucket, srcKey, dstKey string) error
}

// StorageType identifies the storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// Config holds storage configuration
type Config struct {
	Type StorageType

	// Local storage config
	LocalPath string

	// S3 storage config (AWS S3 or any S3-compatible service such as MinIO)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3UseSSL          bool
}

// New creates a new Storage implementation based on configuration
func New(cfg *Config) (Storage, error) {
	switch cfg.Type {
	case StorageTypeS3:
		return NewS3Storage(cfg)
	case StorageTypeLocal:
		fallthrough
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ReadAll downloads a whole object into memory.
func ReadAll(ctx context.Context, s Storage, bucket, key string) ([]byte, *ObjectInfo, error) {
	rc, info, err := s.Get(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}
