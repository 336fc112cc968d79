package cachecore

import (
	"context"
	"time"
)

// Location pairs a logical cache location with the filesystem path a resolver
// assigned to it.
type Location struct {
	Name string
	Path string
}

// Resolved reports whether a resolver populated the path.
func (l Location) Resolved() bool { return l.Path != "" }

// Resolver maps a logical location onto a concrete, writable directory.
type Resolver interface {
	Resolve(ctx context.Context, loc *Location) error
	Close() error
}

// Backend persists opaque records for a single resolved location.
// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
type Backend interface {
	Driver() Driver
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Close() error
}

// Loader instantiates modules by logical name. A Loader is owned by exactly one
// plugin handle and closed together with it.
type Loader interface {
	LoadResolver(ctx context.Context, name string) (Resolver, error)
	LoadBackend(ctx context.Context, name string, loc Location) (Backend, error)
	Close() error
}

// ResolverFactory builds a resolver module.
type ResolverFactory func(ctx context.Context) (Resolver, error)

// BackendFactory opens a backend module scoped to loc.
type BackendFactory func(ctx context.Context, loc Location) (Backend, error)
