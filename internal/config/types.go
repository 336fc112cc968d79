package config

import "time"

// Config is the cachectl configuration file.
type Config struct {
	Log    LogConfig    `mapstructure:"log"`
	Plugin PluginConfig `mapstructure:"plugin"`
}

// LogConfig controls the CLI logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// PluginConfig mirrors the plugin configuration keys. Empty fields fall back to
// the plugin defaults.
type PluginConfig struct {
	Storage       string        `mapstructure:"storage"`
	Resolver      string        `mapstructure:"resolver"`
	Location      string        `mapstructure:"location"`
	Path          string        `mapstructure:"path"`
	HomeDir       string        `mapstructure:"home_dir"`
	TTL           time.Duration `mapstructure:"ttl"`
	Compression   string        `mapstructure:"compression"`
	MaxValueBytes int           `mapstructure:"max_value_bytes"`
	EncryptionKey string        `mapstructure:"encryption_key"`
	ReadMemo      bool          `mapstructure:"read_memo"`

	Redis  RedisConfig  `mapstructure:"redis"`
	NATS   NATSConfig   `mapstructure:"nats"`
	SQL    SQLConfig    `mapstructure:"sql"`
	Dynamo DynamoConfig `mapstructure:"dynamodb"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type NATSConfig struct {
	URL    string `mapstructure:"url"`
	Bucket string `mapstructure:"bucket"`
}

type SQLConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Table  string `mapstructure:"table"`
}

type DynamoConfig struct {
	Table    string `mapstructure:"table"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}
