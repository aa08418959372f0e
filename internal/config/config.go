// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver identifies the backend holding the book snapshot.
type StorageDriver string

const (
	StorageFile     StorageDriver = "file"     // JSON file on local disk (default)
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageS3       StorageDriver = "s3"       // object in an S3 / MinIO bucket
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

const (
	DefaultAddr            = ":3000"
	DefaultDataDir         = "./data"
	DefaultDataFile        = "books.json"
	DefaultSQLitePath      = "./data/bookshelf.db"
	DefaultPostgresDSN     = "postgres://localhost/bookshelf?sslmode=disable"
	DefaultS3Region        = "us-east-1"
	DefaultShutdownTimeout = 5 * time.Second
)

// S3 holds bucket settings for the s3 driver.
type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Config is the full set of process settings.
type Config struct {
	Addr            string
	StorageDriver   StorageDriver
	DataDir         string
	DataFile        string
	SQLitePath      string
	PostgresDSN     string
	S3              S3
	StrictStorage   bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Default returns the zero-configuration settings.
func Default() Config {
	return Config{
		Addr:            DefaultAddr,
		StorageDriver:   StorageFile,
		DataDir:         DefaultDataDir,
		DataFile:        DefaultDataFile,
		SQLitePath:      DefaultSQLitePath,
		PostgresDSN:     DefaultPostgresDSN,
		S3:              S3{Region: DefaultS3Region},
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// FromEnv overlays environment variables on Default.
//
//	BOOKSHELF_ADDR: listen address (default :3000)
//	BOOKSHELF_STORAGE_DRIVER: file|memory|s3|sqlite|postgres (default file)
//	BOOKSHELF_DATA_DIR: directory for the file driver (default ./data)
//	BOOKSHELF_DATA_FILE: snapshot file / object key (default books.json)
//	BOOKSHELF_SQLITE_PATH: sqlite database path (default ./data/bookshelf.db)
//	BOOKSHELF_POSTGRES_DSN: postgres DSN when driver=postgres
//	BOOKSHELF_S3_BUCKET, BOOKSHELF_S3_REGION, BOOKSHELF_S3_ENDPOINT, BOOKSHELF_S3_PATH_STYLE
//	BOOKSHELF_STRICT_STORAGE: surface storage failures as 500 (default false)
//	BOOKSHELF_LOG_LEVEL: debug|info|warn|error (default info)
//	BOOKSHELF_LOG_FORMAT: json|console (default json)
//	BOOKSHELF_SHUTDOWN_TIMEOUT: graceful shutdown budget (default 5s)
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("BOOKSHELF_ADDR", &cfg.Addr)
	str("BOOKSHELF_DATA_DIR", &cfg.DataDir)
	str("BOOKSHELF_DATA_FILE", &cfg.DataFile)
	str("BOOKSHELF_SQLITE_PATH", &cfg.SQLitePath)
	str("BOOKSHELF_POSTGRES_DSN", &cfg.PostgresDSN)
	str("BOOKSHELF_S3_BUCKET", &cfg.S3.Bucket)
	str("BOOKSHELF_S3_REGION", &cfg.S3.Region)
	str("BOOKSHELF_S3_ENDPOINT", &cfg.S3.Endpoint)
	str("BOOKSHELF_LOG_LEVEL", &cfg.LogLevel)
	str("BOOKSHELF_LOG_FORMAT", &cfg.LogFormat)

	var driver string
	str("BOOKSHELF_STORAGE_DRIVER", &driver)
	if driver != "" {
		cfg.StorageDriver = StorageDriver(strings.ToLower(driver))
	}

	var err error
	if cfg.S3.PathStyle, err = boolVar(lookup, "BOOKSHELF_S3_PATH_STYLE", false); err != nil {
		return Config{}, err
	}
	if cfg.StrictStorage, err = boolVar(lookup, "BOOKSHELF_STRICT_STORAGE", false); err != nil {
		return Config{}, err
	}
	if v, ok := lookup("BOOKSHELF_SHUTDOWN_TIMEOUT"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("parse BOOKSHELF_SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func boolVar(lookup func(string) (string, bool), key string, def bool) (bool, error) {
	v, ok := lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

// Validate reports settings that cannot produce a working process.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageFile, StorageMemory, StorageSQLite, StoragePostgres:
	case StorageS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("BOOKSHELF_S3_BUCKET required for s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %s", c.StorageDriver)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %s", c.LogFormat)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
