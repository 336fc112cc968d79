package cacheplugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goforj/cacheplugin/cachecore"
)

type stubRedisClient struct {
	store  map[string]string
	ttl    map[string]time.Time
	getErr error
	setErr error
	delErr error

	scanErr      error
	scanPatterns []string
}

var _ RedisClient = (*stubRedisClient)(nil)

func newStubRedisClient() *stubRedisClient {
	return &stubRedisClient{store: map[string]string{}, ttl: map[string]time.Time{}}
}

func (c *stubRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	v, ok := c.store[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (c *stubRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if c.setErr != nil {
		return redis.NewStatusResult("", c.setErr)
	}
	switch v := value.(type) {
	case []byte:
		c.store[key] = string(v)
	case string:
		c.store[key] = v
	}
	if expiration > 0 {
		c.ttl[key] = time.Now().Add(expiration)
	}
	return redis.NewStatusResult("OK", nil)
}

func (c *stubRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if c.delErr != nil {
		return redis.NewIntResult(0, c.delErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := c.store[k]; ok {
			n++
		}
		delete(c.store, k)
		delete(c.ttl, k)
	}
	return redis.NewIntResult(n, nil)
}

// Scan returns every match in a single page.
func (c *stubRedisClient) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	c.scanPatterns = append(c.scanPatterns, match)
	if c.scanErr != nil {
		return redis.NewScanCmdResult(nil, 0, c.scanErr)
	}
	var keys []string
	for k := range c.store {
		if redisGlobMatch(match, k) {
			keys = append(keys, k)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

// redisGlobMatch follows redis MATCH rules for *, ? and backslash escapes.
// Unlike path.Match, * also spans slashes.
func redisGlobMatch(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for i := len(s); i >= 0; i-- {
				if redisGlobMatch(pattern[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
		case '\\':
			if len(pattern) > 1 {
				pattern = pattern[1:]
			}
			fallthrough
		default:
			if len(s) == 0 || s[0] != pattern[0] {
				return false
			}
		}
		pattern = pattern[1:]
		s = s[1:]
	}
	return len(s) == 0
}

func newStubRedisBackend(t *testing.T, client *stubRedisClient, prefix string) cachecore.Backend {
	t.Helper()
	backend, err := newRedisBackend(context.Background(), cachecore.Location{Path: prefix}, Config{RedisClient: client})
	if err != nil {
		t.Fatalf("redis backend: %v", err)
	}
	return backend
}

func TestRedisBackendNilClientErrors(t *testing.T) {
	backend := &redisBackend{}
	ctx := context.Background()
	if _, _, err := backend.Get(ctx, "k"); err == nil {
		t.Fatalf("expected get error when redis client is nil")
	}
	if err := backend.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Fatalf("expected set error when redis client is nil")
	}
	if err := backend.Delete(ctx, "k"); err == nil {
		t.Fatalf("expected delete error when redis client is nil")
	}
	if err := backend.Flush(ctx); err == nil {
		t.Fatalf("expected flush error when redis client is nil")
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close without owned client: %v", err)
	}
}

func TestRedisBackendOperationsWithStubClient(t *testing.T) {
	ctx := context.Background()
	client := newStubRedisClient()
	backend := newStubRedisBackend(t, client, "/home/a/.cache")

	if err := backend.Set(ctx, "user/sw", []byte("one"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok := client.store["/home/a/.cache:user/sw"]; !ok {
		t.Fatalf("expected location-prefixed key, got %v", client.store)
	}
	if ttl := client.ttl["/home/a/.cache:user/sw"]; ttl.Before(time.Now().Add(defaultCacheTTL - time.Minute)) {
		t.Fatalf("expected default ttl applied, got %v", ttl)
	}
	body, ok, err := backend.Get(ctx, "user/sw")
	if err != nil || !ok || string(body) != "one" {
		t.Fatalf("unexpected get result: ok=%v err=%v body=%s", ok, err, string(body))
	}
	if _, ok, err := backend.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss: ok=%v err=%v", ok, err)
	}

	if err := backend.Delete(ctx, "user/sw"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	client.store["/home/b/.cache:user/sw"] = "other location"
	if err := backend.Set(ctx, "flushme", []byte("x"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := backend.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if _, ok, err := backend.Get(ctx, "flushme"); err != nil || ok {
		t.Fatalf("expected flushed key to be gone")
	}
	if _, ok := client.store["/home/b/.cache:user/sw"]; !ok {
		t.Fatalf("expected other location untouched")
	}
	if err := backend.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRedisBackendFlushEscapesPattern(t *testing.T) {
	ctx := context.Background()
	client := newStubRedisClient()
	backend := newStubRedisBackend(t, client, "/tmp/[a]*")
	client.store["/tmp/ab:k"] = "not ours"
	if err := backend.Set(ctx, "k", []byte("ours"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := backend.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if got := client.scanPatterns[0]; got != `/tmp/\[a\]\*:*` {
		t.Fatalf("unexpected scan pattern %q", got)
	}
	if _, ok := client.store["/tmp/ab:k"]; !ok {
		t.Fatalf("expected glob-looking neighbour untouched")
	}
	if _, ok := client.store["/tmp/[a]*:k"]; ok {
		t.Fatalf("expected own key flushed")
	}
}

func TestRedisBackendErrorPropagation(t *testing.T) {
	ctx := context.Background()
	client := newStubRedisClient()
	client.getErr = errors.New("get")
	backend := newStubRedisBackend(t, client, "pfx")
	if _, _, err := backend.Get(ctx, "k"); err == nil {
		t.Fatalf("expected get error")
	}

	client = newStubRedisClient()
	client.setErr = errors.New("set")
	backend = newStubRedisBackend(t, client, "pfx")
	if err := backend.Set(ctx, "k", []byte("v"), time.Second); err == nil {
		t.Fatalf("expected set error")
	}

	client = newStubRedisClient()
	client.scanErr = errors.New("scan")
	backend = newStubRedisBackend(t, client, "pfx")
	if err := backend.Flush(ctx); err == nil {
		t.Fatalf("expected flush scan error")
	}

	client = newStubRedisClient()
	client.delErr = errors.New("del")
	client.store["pfx:a"] = "1"
	backend = newStubRedisBackend(t, client, "pfx")
	if err := backend.Flush(ctx); err == nil {
		t.Fatalf("expected flush delete error")
	}
}
