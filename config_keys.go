package cacheplugin

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goforj/cacheplugin/cachecore"
)

// Plugin configuration key names, relative to the configuration root.
const (
	ConfStorage        = "storage"
	ConfResolver       = "resolver"
	ConfLocation       = "location"
	ConfPath           = "path"
	ConfTTL            = "ttl"
	ConfCompression    = "compression"
	ConfMaxValueBytes  = "maxvaluebytes"
	ConfEncryptionKey  = "encryptionkey"
	ConfReadMemo       = "readmemo"
	ConfRedisAddr      = "redis/addr"
	ConfNATSURL        = "nats/url"
	ConfNATSBucket     = "nats/bucket"
	ConfSQLDriver      = "sql/driver"
	ConfSQLDSN         = "sql/dsn"
	ConfSQLTable       = "sql/table"
	ConfDynamoTable    = "dynamodb/table"
	ConfDynamoRegion   = "dynamodb/region"
	ConfDynamoEndpoint = "dynamodb/endpoint"
)

type confField struct {
	normalize func(string) (string, error)
	apply     func(*Config, string)
}

var confFields = map[string]confField{
	ConfStorage:  {normalizeStorage, func(c *Config, v string) { c.StorageName = v }},
	ConfResolver: {normalizeModule("resolver"), func(c *Config, v string) { c.ResolverName = v }},
	ConfLocation: {normalizeLocation, func(c *Config, v string) { c.LocationName = v }},
	ConfPath:     {normalizeNonEmpty("path"), func(c *Config, v string) { c.ResolverPath = v }},
	ConfTTL: {normalizeTTL, func(c *Config, v string) {
		c.TTL, _ = time.ParseDuration(v)
	}},
	ConfCompression: {normalizeCompression, func(c *Config, v string) { c.Compression = CompressionCodec(v) }},
	ConfMaxValueBytes: {normalizeMaxValueBytes, func(c *Config, v string) {
		c.MaxValueBytes, _ = strconv.Atoi(v)
	}},
	ConfEncryptionKey:  {normalizeEncryptionKey, func(c *Config, v string) { c.EncryptionKey = []byte(v) }},
	ConfReadMemo:       {normalizeBool, func(c *Config, v string) { c.ReadMemo = v == "true" }},
	ConfRedisAddr:      {normalizeNonEmpty("redis address"), func(c *Config, v string) { c.RedisAddr = v }},
	ConfNATSURL:        {normalizeNonEmpty("nats url"), func(c *Config, v string) { c.NATSURL = v }},
	ConfNATSBucket:     {normalizeNonEmpty("nats bucket"), func(c *Config, v string) { c.NATSBucket = v }},
	ConfSQLDriver:      {normalizeSQLDriver, func(c *Config, v string) { c.SQLDriverName = v }},
	ConfSQLDSN:         {normalizeNonEmpty("sql dsn"), func(c *Config, v string) { c.SQLDSN = v }},
	ConfSQLTable:       {normalizeSQLTable, func(c *Config, v string) { c.SQLTable = v }},
	ConfDynamoTable:    {normalizeNonEmpty("dynamodb table"), func(c *Config, v string) { c.DynamoTable = v }},
	ConfDynamoRegion:   {normalizeNonEmpty("dynamodb region"), func(c *Config, v string) { c.DynamoRegion = v }},
	ConfDynamoEndpoint: {normalizeNonEmpty("dynamodb endpoint"), func(c *Config, v string) { c.DynamoEndpoint = v }},
}

// ConfigFromKeySet parses plugin configuration. Key names may carry a leading
// "user" or "system" namespace; unknown keys are rejected.
func ConfigFromKeySet(conf *KeySet) (Config, error) {
	cfg, _, err := parseConfig(conf)
	return cfg, err
}

// CheckConfig validates conf and rewrites values into canonical form. It
// reports StatusNoUpdate when nothing changed, StatusSuccess after rewriting
// and StatusError for invalid configuration, which is also written onto
// errorKey.
// @group Handlers
func CheckConfig(errorKey *Key, conf *KeySet) (Status, error) {
	if conf == nil {
		return StatusNoUpdate, nil
	}
	_, rewrites, err := parseConfig(conf)
	if err != nil {
		SetError(errorKey, err)
		return StatusError, err
	}
	if len(rewrites) == 0 {
		return StatusNoUpdate, nil
	}
	for key, value := range rewrites {
		key.SetString(value)
	}
	return StatusSuccess, nil
}

func parseConfig(conf *KeySet) (Config, map[*Key]string, error) {
	var cfg Config
	rewrites := make(map[*Key]string)
	if conf == nil {
		return cfg, rewrites, nil
	}
	var errs []error
	for _, key := range conf.Keys() {
		name := relativeConfName(key.Name())
		if name == "" {
			continue
		}
		field, ok := confFields[name]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown key %q", name))
			continue
		}
		value, err := field.normalize(key.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if value != key.String() {
			rewrites[key] = value
		}
		field.apply(&cfg, value)
	}
	if cfg.StorageName == string(DriverSQL) && (cfg.SQLDriverName == "" || cfg.SQLDSN == "") {
		errs = append(errs, errors.New("storage sql requires sql/driver and sql/dsn"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, rewrites, nil
}

// relativeConfName strips a leading namespace. A bare namespace key is the
// configuration root itself.
func relativeConfName(name string) string {
	ns, rest, found := strings.Cut(name, "/")
	switch ns {
	case "user", "system":
		if !found {
			return ""
		}
		return rest
	}
	return name
}

func normalizeStorage(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !slices.Contains(cachecore.Drivers(), cachecore.Driver(v)) {
		return "", fmt.Errorf("unknown storage %q", v)
	}
	return v, nil
}

func normalizeModule(what string) func(string) (string, error) {
	return func(v string) (string, error) {
		v = normalizeModuleName(v)
		if v == "" {
			return "", fmt.Errorf("%s name is empty", what)
		}
		return v, nil
	}
}

func normalizeNonEmpty(what string) func(string) (string, error) {
	return func(v string) (string, error) {
		v = strings.TrimSpace(v)
		if v == "" {
			return "", fmt.Errorf("%s is empty", what)
		}
		return v, nil
	}
}

func normalizeLocation(v string) (string, error) {
	v = cleanName(v)
	switch NewKey(v, "").Namespace() {
	case "user", "system":
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedNamespace, v)
}

func normalizeTTL(v string) (string, error) {
	v = strings.TrimSpace(v)
	d, err := time.ParseDuration(v)
	if err != nil {
		return "", err
	}
	if d <= 0 {
		return "", fmt.Errorf("ttl must be positive, got %s", v)
	}
	return v, nil
}

func normalizeBool(v string) (string, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return "", err
	}
	return strconv.FormatBool(b), nil
}

func normalizeCompression(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if !validCodec(CompressionCodec(v)) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCodec, v)
	}
	return v, nil
}

func normalizeMaxValueBytes(v string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("maxvaluebytes must not be negative, got %d", n)
	}
	return strconv.Itoa(n), nil
}

func normalizeEncryptionKey(v string) (string, error) {
	if !validEncryptionKey([]byte(v)) {
		return "", ErrEncryptionKey
	}
	return v, nil
}

func normalizeSQLDriver(v string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "mysql", "pgx":
		return v, nil
	case "postgres", "postgresql":
		return "pgx", nil
	}
	return "", fmt.Errorf("unsupported sql driver %q", v)
}

func normalizeSQLTable(v string) (string, error) {
	v = strings.TrimSpace(v)
	if err := validateSQLTableName(v); err != nil {
		return "", err
	}
	return v, nil
}
