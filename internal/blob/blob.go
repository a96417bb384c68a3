// Package blob provides create-only object storage for chat attachments.
package blob

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// ObjectStorage writes immutable binary objects and resolves public URLs
// for them. Puts never overwrite an existing key.
type ObjectStorage interface {
	Put(ctx context.Context, key, name, contentType string, r io.Reader) (ObjectInfo, error)
	// Open returns the object metadata and a reader over its bytes.
	Open(key string) (ObjectInfo, io.ReadCloser, error)
	// PublicURL returns the stable fetchable URL for a stored key.
	PublicURL(key string) string
	Close() error
}
