package cacheplugin

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/goforj/cacheplugin/cachecore"
)

const (
	sqliteFileName = "cache.db"
	// maxSQLKeyPart bounds each part of a stored key so prefix, separator and
	// key fit the 767 byte mysql key column.
	maxSQLKeyPart = 255
)

type sqlBackend struct {
	db         *sql.DB
	driver     cachecore.Driver
	driverName string
	table      string
	prefix     string
	defaultTTL time.Duration
	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	deleteStmt *sql.Stmt
	flushStmt  *sql.Stmt
}

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// newSQLiteBackend keeps the database file inside the resolved directory, so
// the location itself scopes the data and no key prefix is needed.
func newSQLiteBackend(ctx context.Context, dir string, cfg Config) (cachecore.Backend, error) {
	if dir == "" {
		return nil, errors.New("sqlite backend requires a resolved directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dsn := filepath.Join(dir, sqliteFileName)
	return openSQLBackend(ctx, DriverSQLite, "sqlite", dsn, cfg.SQLTable, "", cfg.TTL)
}

// newServerSQLBackend talks to a shared mysql or postgres server; rows are
// prefixed by the resolved path.
func newServerSQLBackend(ctx context.Context, loc cachecore.Location, cfg Config) (cachecore.Backend, error) {
	if cfg.SQLDriverName == "" || cfg.SQLDSN == "" {
		return nil, errors.New("sql backend requires driver name and dsn")
	}
	switch cfg.SQLDriverName {
	case "mysql", "pgx", "postgres":
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.SQLDriverName)
	}
	return openSQLBackend(ctx, DriverSQL, cfg.SQLDriverName, cfg.SQLDSN, cfg.SQLTable, loc.Path, cfg.TTL)
}

func openSQLBackend(ctx context.Context, driver cachecore.Driver, driverName, dsn, table, prefix string, ttl time.Duration) (cachecore.Backend, error) {
	if table == "" {
		table = defaultSQLTable
	}
	if err := validateSQLTableName(table); err != nil {
		return nil, err
	}
	if driverName == "postgres" {
		driverName = "pgx"
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	s := &sqlBackend{
		db:         db,
		driver:     driver,
		driverName: driverName,
		table:      table,
		prefix:     sqlKeyPart(prefix),
		defaultTTL: ttl,
	}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.prepareStatements(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlBackend) Driver() cachecore.Driver { return s.driver }

func (s *sqlBackend) ensureSchema(ctx context.Context) error {
	var stmt string
	switch s.driverName {
	case "pgx":
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT COLLATE "C" PRIMARY KEY,
			v BYTEA NOT NULL,
			ea BIGINT NOT NULL
		);`, s.table)
	case "mysql":
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k VARBINARY(767) PRIMARY KEY,
			v LONGBLOB NOT NULL,
			ea BIGINT NOT NULL
		) ENGINE=InnoDB;`, s.table)
	default: // sqlite
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL,
			ea INTEGER NOT NULL
		);`, s.table)
	}
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *sqlBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	var exp int64
	err := s.getStmt.QueryRowContext(ctx, s.cacheKey(key)).Scan(&v, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if time.Now().UnixMilli() > exp {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (s *sqlBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	exp := time.Now().Add(ttl).UnixMilli()
	_, err := s.upsertStmt.ExecContext(ctx, s.cacheKey(key), value, exp, value, exp)
	return err
}

func (s *sqlBackend) Delete(ctx context.Context, key string) error {
	_, err := s.deleteStmt.ExecContext(ctx, s.cacheKey(key))
	return err
}

// Flush only removes rows owned by this location. Prefixed keys all sort in
// [prefix+":", prefix+";").
func (s *sqlBackend) Flush(ctx context.Context) error {
	if s.prefix == "" {
		_, err := s.flushStmt.ExecContext(ctx)
		return err
	}
	_, err := s.flushStmt.ExecContext(ctx, s.prefix+":", s.prefix+";")
	return err
}

func (s *sqlBackend) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.upsertStmt, s.deleteStmt, s.flushStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	return s.db.Close()
}

func (s *sqlBackend) cacheKey(key string) string {
	key = sqlKeyPart(key)
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// sqlKeyPart replaces parts longer than maxSQLKeyPart with their sha256.
func sqlKeyPart(part string) string {
	if len(part) <= maxSQLKeyPart {
		return part
	}
	sum := sha256.Sum256([]byte(part))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (s *sqlBackend) upsertSQL() string {
	p1, p2, p3, p4, p5 := s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5)
	switch s.driverName {
	case "pgx":
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT (k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	case "mysql":
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON DUPLICATE KEY UPDATE v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	default: // sqlite
		return fmt.Sprintf("INSERT INTO %s (k, v, ea) VALUES (%s, %s, %s) ON CONFLICT(k) DO UPDATE SET v = %s, ea = %s", s.table, p1, p2, p3, p4, p5)
	}
}

func (s *sqlBackend) flushSQL() string {
	if s.prefix == "" {
		return fmt.Sprintf("DELETE FROM %s", s.table)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE k >= %s AND k < %s", s.table, s.ph(1), s.ph(2))
}

func (s *sqlBackend) prepareStatements(ctx context.Context) error {
	var err error
	if s.getStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("SELECT v, ea FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.upsertStmt, err = s.db.PrepareContext(ctx, s.upsertSQL()); err != nil {
		return err
	}
	if s.deleteStmt, err = s.db.PrepareContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k = %s", s.table, s.ph(1))); err != nil {
		return err
	}
	if s.flushStmt, err = s.db.PrepareContext(ctx, s.flushSQL()); err != nil {
		return err
	}
	return nil
}

func (s *sqlBackend) ph(i int) string {
	if s.driverName == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}
