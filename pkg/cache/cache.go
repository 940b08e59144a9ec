// Package cache stores computed enrichment results between runs.
//
// A [Cache] is a plain byte store with per-entry TTLs. Backends:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for several API instances
//   - [MongoCache]: durable cache with server-side expiry
//   - [NullCache]: disables caching
//
// [Open] selects a backend from a URL. Keys are produced by a [Keyer] from
// everything that influences a result, so a key never maps to two different
// outcomes.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface shared by all backends.
type Cache interface {
	// Get returns the stored value and true, or false on a miss. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry kind.
const (
	TTLEnrichment = 7 * 24 * time.Hour
	TTLIterative  = 7 * 24 * time.Hour
	TTLLibrary    = 24 * time.Hour
)
