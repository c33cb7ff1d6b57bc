package gormstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	dialectPostgres   = "postgres"
	dialectSQLite     = "sqlite"
	memoryPath        = ":memory:"
	defaultSQLiteFile = "frontdesk.db"
)

// Open connects to dsn (postgres://, sqlite://, or a bare SQLite path),
// migrates the schema, and returns the database with its close function.
func Open(ctx context.Context, dsn string) (*gorm.DB, func() error, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, err
	}

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	var db *gorm.DB
	switch driver {
	case dialectPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case dialectSQLite:
		db, err = gorm.Open(sqlite.Open(sqlitePath), cfg)
	default:
		return nil, nil, fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	if sqlitePath == memoryPath {
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	if err := db.WithContext(ctx).AutoMigrate(&BookRecord{}); err != nil {
		_ = cleanup()
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, cleanup, nil
}

// resolveDriver maps dsn to a dialect and, for SQLite, the database path.
func resolveDriver(dsn string) (string, string, error) {
	scheme, rest, hasScheme := strings.Cut(dsn, "://")
	switch {
	case hasScheme && (scheme == "postgres" || scheme == "postgresql"):
		return dialectPostgres, "", nil
	case hasScheme && scheme == dialectSQLite:
		location, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		rest = strings.TrimPrefix(location.Host+location.Path, "/")
		if location.Host == "" && location.Path != "" {
			rest = location.Path
		}
	case hasScheme:
		return scheme, "", nil
	default:
		rest = dsn
	}
	sqlitePath, err := prepareSQLitePath(rest)
	return dialectSQLite, sqlitePath, err
}

// prepareSQLitePath ensures the parent directory of a file database exists.
func prepareSQLitePath(path string) (string, error) {
	switch path {
	case memoryPath:
		return path, nil
	case "", "/":
		path = defaultSQLiteFile
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create sqlite directory: %w", err)
	}
	return path, nil
}
