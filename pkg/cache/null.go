package cache

import (
	"context"
	"time"
)

// NullCache stores nothing: every tree is rooted afresh and every drawing
// rendered again. It backs --no-cache and a disabled [cache] section.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// NewNullCache returns a cache that always misses.
func NewNullCache() *NullCache { return &NullCache{} }

// String names the backend in `fastroot cache info`.
func (*NullCache) String() string { return "none" }

func (*NullCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (*NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (*NullCache) Delete(context.Context, string) error { return nil }

func (*NullCache) Close() error { return nil }
