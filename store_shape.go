package cacheplugin

import (
	"context"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

// shapingBackend applies compression and size limits on top of any backend.
type shapingBackend struct {
	inner cachecore.Backend
	codec CompressionCodec
	max   int
}

func newShapingBackend(inner cachecore.Backend, codec CompressionCodec, max int) cachecore.Backend {
	if (codec == "" || codec == CompressionNone) && max <= 0 {
		return inner
	}
	if codec == "" {
		codec = CompressionNone
	}
	return &shapingBackend{inner: inner, codec: codec, max: max}
}

func (s *shapingBackend) Driver() cachecore.Driver { return s.inner.Driver() }

func (s *shapingBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	decoded, err := decodeValue(body)
	if err != nil {
		return nil, false, err
	}
	return decoded, true, nil
}

func (s *shapingBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeValue(s.codec, s.max, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, encoded, ttl)
}

func (s *shapingBackend) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *shapingBackend) Flush(ctx context.Context) error { return s.inner.Flush(ctx) }

func (s *shapingBackend) Close() error { return s.inner.Close() }
