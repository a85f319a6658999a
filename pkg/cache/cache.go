// Package cache stores expensive intermediate results of the mosaic pipeline.
//
// Measuring a font's glyphs and clustering an image's colours both take far
// longer than filling a grid, and both depend only on a few inputs. The
// pipeline stores their results under keys built by a [Keyer] and reuses
// them across runs.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the HTTP server
//   - [NullCache]: stores nothing, for --no-cache
package cache

import (
	"context"
	"time"
)

// Default lifetimes of cached entries.
const (
	// TTLGrayscale covers measured grayscale maps. Font data is hashed into
	// the key, so entries only go stale when measurement code changes.
	TTLGrayscale = 30 * 24 * time.Hour

	// TTLPalette covers colour clustering results.
	TTLPalette = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiration.
type Cache interface {
	// Get returns the data stored under key and whether it was found.
	// Expired entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}
