package cacheplugin

import (
	"context"
	"sync"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

type memoEntry struct {
	body []byte
	ok   bool
}

// memoBackend remembers backend reads for the lifetime of a handle. Writes,
// deletes and flushes through the same handle invalidate what they touch;
// writes by other processes are not seen until the handle is reopened.
type memoBackend struct {
	inner cachecore.Backend
	mu    sync.RWMutex
	items map[string]memoEntry
}

func newMemoBackend(inner cachecore.Backend) cachecore.Backend {
	return &memoBackend{
		inner: inner,
		items: make(map[string]memoEntry),
	}
}

func (s *memoBackend) Driver() cachecore.Driver { return s.inner.Driver() }

func (s *memoBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		return cloneBytes(entry.body), entry.ok, nil
	}

	body, exists, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	s.items[key] = memoEntry{body: cloneBytes(body), ok: exists}
	s.mu.Unlock()
	return body, exists, nil
}

func (s *memoBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.inner.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	s.forget(key)
	return nil
}

func (s *memoBackend) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}
	s.forget(key)
	return nil
}

func (s *memoBackend) Flush(ctx context.Context) error {
	if err := s.inner.Flush(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = make(map[string]memoEntry)
	s.mu.Unlock()
	return nil
}

func (s *memoBackend) Close() error {
	s.mu.Lock()
	s.items = make(map[string]memoEntry)
	s.mu.Unlock()
	return s.inner.Close()
}

func (s *memoBackend) forget(key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}
