package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrNotFound is returned when no file exists at a key
	ErrNotFound = errors.New("storage: file not found")
	// ErrTooLarge is returned when a stream exceeds the size limit given to PutStream
	ErrTooLarge = errors.New("storage: file exceeds size limit")
)

// Metadata contains file metadata for storage
type Metadata struct {
	ContentType  string            `json:"contentType,omitempty"`
	OriginalName string            `json:"originalName,omitempty"`
	SessionID    string            `json:"sessionId,omitempty"`
	UploadedAt   time.Time         `json:"uploadedAt,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// FileInfo contains information about a stored file
type FileInfo struct {
	Key         string    `json:"key"`
	Size        int64     `json:"size"`
	Checksum    string    `json:"checksum"`
	ContentType string    `json:"contentType,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Metadata    *Metadata `json:"metadata,omitempty"`
}

// Storage holds uploaded source files until their import session releases them
type Storage interface {
	// PutStream copies r to key, refusing more than maxBytes when maxBytes > 0.
	// The returned info carries the size and SHA-256 of what was written.
	PutStream(ctx context.Context, key string, r io.Reader, maxBytes int64, metadata *Metadata) (*FileInfo, error)

	// Path returns a local filesystem path readers can open for key
	Path(key string) string

	// GetInfo retrieves file information without content
	GetInfo(ctx context.Context, key string) (*FileInfo, error)

	// Exists checks if a file exists at the given key
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes a file at the given key; deleting a missing file is not an error
	Delete(ctx context.Context, key string) error
}

// StorageType represents the type of storage backend
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)
