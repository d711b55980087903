package store

import (
	"fmt"
	"time"

	"github.com/lawnchairsociety/citygen/internal/config"
)

// Config holds database connection configuration.
type Config struct {
	// Driver specifies which database to use: "sqlite" or "postgres"
	Driver string

	// SQLite configuration
	SQLitePath string

	// PostgreSQL configuration
	Postgres PostgresConfig
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults for SQLite.
func DefaultConfig(sqlitePath string) Config {
	return Config{
		Driver:     "sqlite",
		SQLitePath: sqlitePath,
	}
}

// DefaultPostgresConfig returns PostgresConfig with recommended pool settings.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// ConfigFrom converts the storage section of a run configuration. Unset
// pool settings fall back to DefaultPostgresConfig.
func ConfigFrom(sc config.StorageConfig) Config {
	cfg := DefaultConfig(sc.SQLitePath)
	if sc.Driver != "" {
		cfg.Driver = sc.Driver
	}

	pg := DefaultPostgresConfig()
	src := sc.Postgres
	if src.Host != "" {
		pg.Host = src.Host
	}
	if src.Port != 0 {
		pg.Port = src.Port
	}
	if src.SSLMode != "" {
		pg.SSLMode = src.SSLMode
	}
	if src.MaxOpenConns > 0 {
		pg.MaxOpenConns = src.MaxOpenConns
	}
	if src.MaxIdleConns > 0 {
		pg.MaxIdleConns = src.MaxIdleConns
	}
	if src.ConnMaxLifetime > 0 {
		pg.ConnMaxLifetime = time.Duration(src.ConnMaxLifetime) * time.Second
	}
	pg.User = src.User
	pg.Password = src.Password
	pg.Database = src.Database
	cfg.Postgres = pg
	return cfg
}

// DSN returns the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}
