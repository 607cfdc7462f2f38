// Package cache provides the small key/value store nodestore uses to remember
// work between runs.
//
// The installer's only persistent memory is the set of archives whose
// integrity has already been verified: hashing a large tarball on every run
// is wasted effort when neither its size, mtime, nor expected digest changed.
// Keys are derived with [ArchiveKey]; values are opaque bytes.
//
// Two implementations are provided:
//
//   - [FileCache]: JSON entry files under a directory (default $XDG_CACHE_HOME/nodestore)
//   - [NullCache]: never stores anything, used with --no-cache and in tests
package cache

import (
	"context"
	"time"
)

// Cache is a key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}
