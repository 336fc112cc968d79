package cacheplugin

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

const (
	defaultLocationName          = "user/elektracache"
	defaultResolverName          = "resolver"
	defaultStorageName           = string(cachecore.DriverFile)
	defaultResolverPath          = "/.cache/elektra"
	defaultCacheTTL              = 24 * time.Hour
	defaultMemoryCleanupInterval = 10 * time.Minute
	defaultSQLTable              = "cache_entries"
	defaultNATSBucket            = "cache"
	defaultNATSURL               = "nats://127.0.0.1:4222"
	defaultRedisAddr             = "127.0.0.1:6379"
	defaultDynamoTable           = "cache_entries"
	defaultDynamoRegion          = "us-east-1"
)

func defaultHomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return filepath.Join(os.TempDir(), "cacheplugin-home")
}

// Config controls how a Handle resolves its location and which backend it opens.
type Config struct {
	cachecore.BaseConfig

	// LocationName is the logical cache location handed to the resolver.
	LocationName string
	// ResolverName and StorageName are the module names loaded during open.
	ResolverName string
	StorageName  string

	// ResolverPath is appended to the namespace root by the directory resolver.
	ResolverPath string
	// HomeDir roots "user" locations; SystemDir roots every other namespace.
	HomeDir   string
	SystemDir string

	// MemoryCleanupInterval controls in-process eviction for the memory driver.
	MemoryCleanupInterval time.Duration

	// ReadMemo remembers backend reads for the lifetime of the handle.
	ReadMemo bool

	// RedisClient takes precedence over RedisAddr; a client built from RedisAddr
	// is owned and closed by the backend.
	RedisClient RedisClient
	RedisAddr   string

	NATSKeyValue NATSKeyValue
	NATSURL      string
	NATSBucket   string

	SQLDriverName string
	SQLDSN        string
	SQLTable      string

	DynamoClient   DynamoAPI
	DynamoEndpoint string
	DynamoRegion   string
	DynamoTable    string
}

func (c Config) withDefaults() Config {
	if c.LocationName == "" {
		c.LocationName = defaultLocationName
	}
	if c.ResolverName == "" {
		c.ResolverName = defaultResolverName
	}
	if c.StorageName == "" {
		c.StorageName = defaultStorageName
	}
	if c.ResolverPath == "" {
		c.ResolverPath = defaultResolverPath
	}
	if c.HomeDir == "" {
		c.HomeDir = defaultHomeDir()
	}
	if c.SystemDir == "" {
		c.SystemDir = os.TempDir()
	}
	if c.TTL <= 0 {
		c.TTL = defaultCacheTTL
	}
	if c.Compression == "" {
		c.Compression = CompressionNone
	}
	if c.MemoryCleanupInterval <= 0 {
		c.MemoryCleanupInterval = defaultMemoryCleanupInterval
	}
	if c.RedisAddr == "" {
		c.RedisAddr = defaultRedisAddr
	}
	if c.NATSURL == "" {
		c.NATSURL = defaultNATSURL
	}
	if c.NATSBucket == "" {
		c.NATSBucket = defaultNATSBucket
	}
	if c.SQLTable == "" {
		c.SQLTable = defaultSQLTable
	}
	if c.DynamoTable == "" {
		c.DynamoTable = defaultDynamoTable
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = defaultDynamoRegion
	}
	return c
}
