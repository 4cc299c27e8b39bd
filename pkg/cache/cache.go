// Package cache stores composed layouts and rendered artifacts.
//
// riskviz output is a pure function of (case, attributions, options): the
// per-case random source is seeded from the run seed and the case ID. That
// makes layouts and artifacts safe to cache under a key derived from their
// inputs.
//
// # Backends
//
//   - [FileCache]: sharded JSON files on disk, used by the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: caching disabled
//
// # Keys
//
// A [Keyer] derives keys. [DefaultKeyer] hashes the inputs with SHA-256;
// [ScopedKeyer] adds a prefix so several datasets can share one backend.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values.
const (
	// TTLLayout is how long a composed case layout stays cached.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact is how long a rendered artifact stays cached.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with expiration.
type Cache interface {
	// Get returns the value for key. A missing or expired key is a miss
	// (found == false) and not an error.
	Get(ctx context.Context, key string) (data []byte, found bool, err error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer generates cache keys.
type Keyer interface {
	// LayoutKey keys a composed case layout by the hash of its inputs.
	LayoutKey(caseHash string, opts LayoutKeyOpts) string

	// ArtifactKey keys a rendered artifact by the hash of its layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds the composition options that change a layout.
type LayoutKeyOpts struct {
	Samples     int     `json:"samples"`
	Bins        int     `json:"bins"`
	Margin      float64 `json:"margin"`
	MaxFeatures int     `json:"max_features"`
	Seed        uint64  `json:"seed"`
}

// ArtifactKeyOpts holds the rendering options that change an artifact.
type ArtifactKeyOpts struct {
	View    string `json:"view"`
	Format  string `json:"format"`
	Width   int    `json:"width,omitempty"`
	Dataset string `json:"dataset,omitempty"`

	Labels map[string]string `json:"labels,omitempty"` // semantic labels drawn by the comparison view
}

// DefaultKeyer builds keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey implements Keyer.
func (DefaultKeyer) LayoutKey(caseHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", caseHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", layoutHash, opts)
}
