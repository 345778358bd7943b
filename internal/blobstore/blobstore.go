// Package blobstore abstracts binary storage for reference images and app
// update packages. The production deployment mounts a shared volume; the
// Store interface keeps services testable with an in-memory fake.
package blobstore

import "context"

// Store is the blob storage contract. Put returns the publicly resolvable
// URL recorded on the owning record.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	// SignedURL builds a time-limited download URL for key without touching
	// the blob itself.
	SignedURL(key string, expiresIn int64) (string, error)
}
