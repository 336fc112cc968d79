package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/goforj/cacheplugin"
)

// ErrNoConfigFile is returned by Load when path is empty.
var ErrNoConfigFile = errors.New("config: no config file given")

// Load reads a YAML, TOML or JSON file (by extension), applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation.
func Read(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoConfigFile
	}
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
	v.SetDefault("plugin.storage", "file")
	v.SetDefault("plugin.compression", "none")
}

// durationDecodeHook accepts Go duration strings and plain seconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	target := reflect.TypeOf(time.Duration(0))
	return func(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			v = strings.TrimSpace(v)
			if v == "" {
				return time.Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return parsed, nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return time.Duration(seconds * float64(time.Second)), nil
			}
			return nil, fmt.Errorf("invalid duration %q", v)
		case int:
			return time.Duration(v) * time.Second, nil
		case int64:
			return time.Duration(v) * time.Second, nil
		case float64:
			return time.Duration(v * float64(time.Second)), nil
		case time.Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("unsupported duration type %T", data)
		}
	}
}

// Validate checks the log level and runs the plugin section through the
// plugin's own configuration check.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 {
		return errors.New("log.max_size and log.max_backups must not be negative")
	}
	if _, err := c.Plugin.ToPluginConfig(); err != nil {
		return err
	}
	return nil
}

// KeySet renders the non-empty plugin settings as configuration keys below
// the user namespace.
func (p PluginConfig) KeySet() *cacheplugin.KeySet {
	ks := cacheplugin.NewKeySet()
	add := func(name, value string) {
		if value != "" {
			ks.Append(cacheplugin.NewKey("user/"+name, value))
		}
	}
	add(cacheplugin.ConfStorage, p.Storage)
	add(cacheplugin.ConfResolver, p.Resolver)
	add(cacheplugin.ConfLocation, p.Location)
	add(cacheplugin.ConfPath, p.Path)
	if p.TTL != 0 {
		add(cacheplugin.ConfTTL, p.TTL.String())
	}
	add(cacheplugin.ConfCompression, p.Compression)
	if p.MaxValueBytes != 0 {
		add(cacheplugin.ConfMaxValueBytes, strconv.Itoa(p.MaxValueBytes))
	}
	add(cacheplugin.ConfEncryptionKey, p.EncryptionKey)
	if p.ReadMemo {
		add(cacheplugin.ConfReadMemo, "true")
	}
	add(cacheplugin.ConfRedisAddr, p.Redis.Addr)
	add(cacheplugin.ConfNATSURL, p.NATS.URL)
	add(cacheplugin.ConfNATSBucket, p.NATS.Bucket)
	add(cacheplugin.ConfSQLDriver, p.SQL.Driver)
	add(cacheplugin.ConfSQLDSN, p.SQL.DSN)
	add(cacheplugin.ConfSQLTable, p.SQL.Table)
	add(cacheplugin.ConfDynamoTable, p.Dynamo.Table)
	add(cacheplugin.ConfDynamoRegion, p.Dynamo.Region)
	add(cacheplugin.ConfDynamoEndpoint, p.Dynamo.Endpoint)
	return ks
}

// ToPluginConfig parses the plugin section into a handle configuration.
func (p PluginConfig) ToPluginConfig() (cacheplugin.Config, error) {
	cfg, err := cacheplugin.ConfigFromKeySet(p.KeySet())
	if err != nil {
		return cacheplugin.Config{}, fmt.Errorf("plugin: %w", err)
	}
	cfg.HomeDir = strings.TrimSpace(p.HomeDir)
	return cfg, nil
}
