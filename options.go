package cacheplugin

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option mutates handle settings before open.
type Option func(*settings)

type settings struct {
	cfg      Config
	logger   logrus.FieldLogger
	observer Observer
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithStorage selects the backend module loaded at open.
func WithStorage(name string) Option {
	return func(s *settings) { s.cfg.StorageName = name }
}

// WithResolver selects the resolver module loaded at open.
func WithResolver(name string) Option {
	return func(s *settings) { s.cfg.ResolverName = name }
}

// WithLocation overrides the logical cache location.
func WithLocation(name string) Option {
	return func(s *settings) { s.cfg.LocationName = name }
}

// WithTTL sets how long cached key sets stay valid.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) { s.cfg.TTL = ttl }
}

// WithCompression enables value compression with an optional size cap.
func WithCompression(codec CompressionCodec, maxValueBytes int) Option {
	return func(s *settings) {
		s.cfg.Compression = codec
		s.cfg.MaxValueBytes = maxValueBytes
	}
}

// WithEncryptionKey enables AES-GCM encryption of cached payloads.
func WithEncryptionKey(key []byte) Option {
	return func(s *settings) { s.cfg.EncryptionKey = key }
}

// WithReadMemo memoizes backend reads until the handle is closed.
func WithReadMemo() Option {
	return func(s *settings) { s.cfg.ReadMemo = true }
}

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithObserver attaches an observer to receive handler events.
func WithObserver(o Observer) Option {
	return func(s *settings) { s.observer = o }
}
