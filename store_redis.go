package cacheplugin

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goforj/cacheplugin/cachecore"
)

// RedisClient captures the subset of redis.Client used by the backend.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

var errRedisUnavailable = errors.New("redis cache client unavailable")

type redisBackend struct {
	client     RedisClient
	owned      *redis.Client
	defaultTTL time.Duration
	prefix     string
}

func newRedisBackend(ctx context.Context, loc cachecore.Location, cfg Config) (cachecore.Backend, error) {
	s := &redisBackend{
		client:     cfg.RedisClient,
		defaultTTL: cfg.TTL,
		prefix:     loc.Path,
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = defaultCacheTTL
	}
	if s.client == nil {
		s.owned = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := s.owned.Ping(ctx).Err(); err != nil {
			_ = s.owned.Close()
			return nil, err
		}
		s.client = s.owned
	}
	return s, nil
}

func (s *redisBackend) Driver() cachecore.Driver { return DriverRedis }

func (s *redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return nil, false, errRedisUnavailable
	}
	value, err := s.client.Get(ctx, s.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

func (s *redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	return s.client.Set(ctx, s.cacheKey(key), value, ttl).Err()
}

func (s *redisBackend) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	return s.client.Del(ctx, s.cacheKey(key)).Err()
}

func (s *redisBackend) Flush(ctx context.Context) error {
	if s.client == nil {
		return errRedisUnavailable
	}
	pattern := escapeRedisGlob(s.prefix) + ":*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the client only when the backend dialed it itself.
func (s *redisBackend) Close() error {
	if s.owned == nil {
		return nil
	}
	err := s.owned.Close()
	s.owned = nil
	s.client = nil
	return err
}

func (s *redisBackend) cacheKey(key string) string {
	return s.prefix + ":" + key
}

// escapeRedisGlob quotes SCAN MATCH metacharacters that may appear in paths.
func escapeRedisGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
