package cacheplugin

import (
	"context"

	"github.com/goforj/cacheplugin/cachecore"
)

// NewDefaultModules returns a registry holding the directory resolver and every
// built-in backend, each bound to cfg.
// @group Constructors
//
// Example: open a sqlite-backed handle
//
//	ctx := context.Background()
//	cfg := cacheplugin.Config{StorageName: "sqlite"}
//	h, err := cacheplugin.Open(ctx, cacheplugin.NewDefaultModules(cfg), cacheplugin.WithConfig(cfg))
//	if err != nil {
//		return err
//	}
//	defer h.Close(ctx)
func NewDefaultModules(cfg Config) *Modules {
	cfg = cfg.withDefaults()
	m := NewModules()

	m.mustRegisterResolver(defaultResolverName, func(context.Context) (cachecore.Resolver, error) {
		return newDirResolver(cfg.HomeDir, cfg.SystemDir, cfg.ResolverPath), nil
	})

	m.mustRegisterBackend(string(DriverFile), func(_ context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newFileBackend(loc.Path, cfg.TTL)
	})
	m.mustRegisterBackend(string(DriverMemory), func(_ context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newMemoryBackend(loc.Path, cfg.TTL, cfg.MemoryCleanupInterval), nil
	})
	m.mustRegisterBackend(string(DriverNull), func(context.Context, cachecore.Location) (cachecore.Backend, error) {
		return newNullBackend(), nil
	})
	m.mustRegisterBackend(string(DriverSQLite), func(ctx context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newSQLiteBackend(ctx, loc.Path, cfg)
	})
	m.mustRegisterBackend(string(DriverSQL), func(ctx context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newServerSQLBackend(ctx, loc, cfg)
	})
	m.mustRegisterBackend(string(DriverRedis), func(ctx context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newRedisBackend(ctx, loc, cfg)
	})
	m.mustRegisterBackend(string(DriverNATS), func(_ context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newNATSBackend(loc, cfg)
	})
	m.mustRegisterBackend(string(DriverDynamo), func(ctx context.Context, loc cachecore.Location) (cachecore.Backend, error) {
		return newDynamoBackend(ctx, loc, cfg)
	})
	return m
}

// wrapBackend layers encryption, compression and the optional read memo over a
// freshly opened backend. Compression wraps encryption so it sees plaintext.
func wrapBackend(inner cachecore.Backend, cfg Config) (cachecore.Backend, error) {
	encrypted, err := newEncryptingBackend(inner, cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	shaped := newShapingBackend(encrypted, cfg.Compression, cfg.MaxValueBytes)
	if cfg.ReadMemo {
		return newMemoBackend(shaped), nil
	}
	return shaped, nil
}
