package cachecore

import "time"

// BaseConfig contains shared, backend-agnostic shaping configuration.
type BaseConfig struct {
	// TTL bounds how long a cached key set stays valid. Zero means the driver default.
	TTL           time.Duration
	Compression   CompressionCodec
	MaxValueBytes int
	EncryptionKey []byte
}
