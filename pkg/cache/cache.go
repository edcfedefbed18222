// Package cache stores rooting results and rendered artifacts between runs.
//
// Entries are opaque byte slices addressed by string keys. Keys are built by a
// [Keyer] from a content hash of the input tree plus every option that can
// change the result, so a cached entry is only reused when rooting the same
// tree the same way would produce the same bytes.
//
// Three backends are provided:
//   - [FileCache] for the command line, one JSON file per entry
//   - [RedisCache] for sharing results between machines
//   - [NullCache] when caching is disabled
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Default lifetimes for cached entries.
const (
	TTLRoot     = 30 * 24 * time.Hour
	TTLArtifact = 30 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// A zero ttl stores the entry without expiry.
type Cache interface {
	// Get returns the entry for key. A miss is reported as ok == false with a
	// nil error.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (removed int, err error)
}

// RootKeyOpts holds the options that change a rooting result.
// Covariates and Outgroups are content hashes of the respective inputs.
type RootKeyOpts struct {
	Method        string
	Solver        string
	Epsilon       float64
	MaxIterations int
	Alternatives  int
	Covariates    string
	Outgroups     string
}

// ArtifactKeyOpts holds the options that change a rendered tree.
type ArtifactKeyOpts struct {
	Format string
	Layout string
}

// Keyer builds cache keys.
type Keyer interface {
	// RootKey addresses the rooting result for the tree with content hash treeHash.
	RootKey(treeHash string, opts RootKeyOpts) string
	// ArtifactKey addresses a rendering of the tree with content hash treeHash.
	ArtifactKey(treeHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// RootKey implements [Keyer].
func (DefaultKeyer) RootKey(treeHash string, opts RootKeyOpts) string {
	return hashKey("root", treeHash, opts.Method, opts.Solver,
		strconv.FormatFloat(opts.Epsilon, 'g', -1, 64),
		opts.MaxIterations, opts.Alternatives, opts.Covariates, opts.Outgroups)
}

// ArtifactKey implements [Keyer].
func (DefaultKeyer) ArtifactKey(treeHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", treeHash, opts.Format, opts.Layout)
}

// Open selects a backend from a URL-like location: "" or "none" disables
// caching, "redis://..." and "rediss://..." connect to Redis, and anything
// else is taken as a directory for a [FileCache].
func Open(location string) (Cache, error) {
	switch {
	case location == "" || location == "none":
		return NewNullCache(), nil
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		c, err := NewRedisCache(location)
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		return c, nil
	default:
		c, err := NewFileCache(location)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
