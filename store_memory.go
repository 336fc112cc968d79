package cacheplugin

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/goforj/cacheplugin/cachecore"
)

// memoryBackend is process-local; keys are namespaced by the resolved path so
// two locations sharing one process never collide.
type memoryBackend struct {
	cache      *gocache.Cache
	defaultTTL time.Duration
	scope      string
}

func newMemoryBackend(scope string, defaultTTL, cleanupInterval time.Duration) cachecore.Backend {
	if defaultTTL <= 0 {
		defaultTTL = defaultCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultMemoryCleanupInterval
	}
	return &memoryBackend{
		cache:      gocache.New(defaultTTL, cleanupInterval),
		defaultTTL: defaultTTL,
		scope:      scope,
	}
}

func (s *memoryBackend) Driver() cachecore.Driver { return DriverMemory }

func (s *memoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, ok := s.cache.Get(s.cacheKey(key))
	if !ok {
		return nil, false, nil
	}
	body, ok := item.([]byte)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(body), true, nil
}

func (s *memoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.cache.Set(s.cacheKey(key), cloneBytes(value), ttl)
	return nil
}

func (s *memoryBackend) Delete(_ context.Context, key string) error {
	s.cache.Delete(s.cacheKey(key))
	return nil
}

func (s *memoryBackend) Flush(_ context.Context) error {
	s.cache.Flush()
	return nil
}

func (s *memoryBackend) Close() error {
	s.cache.Flush()
	return nil
}

func (s *memoryBackend) cacheKey(key string) string {
	if s.scope == "" {
		return key
	}
	return s.scope + ":" + key
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
