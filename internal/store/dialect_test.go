package store

import (
	"errors"
	"testing"
	"time"

	"github.com/lawnchairsociety/citygen/internal/config"
)

func TestNewDialect(t *testing.T) {
	if _, ok := NewDialect(DialectSQLite).(*SQLiteDialect); !ok {
		t.Error("NewDialect(sqlite) is not *SQLiteDialect")
	}
	if _, ok := NewDialect(DialectPostgres).(*PostgresDialect); !ok {
		t.Error("NewDialect(postgres) is not *PostgresDialect")
	}
	// Unknown dialect should default to SQLite
	if _, ok := NewDialect("unknown").(*SQLiteDialect); !ok {
		t.Error("NewDialect(unknown) is not *SQLiteDialect")
	}
}

func TestSQLiteDialect(t *testing.T) {
	d := &SQLiteDialect{}
	if got := d.DriverName(); got != "sqlite" {
		t.Errorf("DriverName() = %q, want %q", got, "sqlite")
	}
	for _, pos := range []int{1, 2, 10} {
		if got := d.Placeholder(pos); got != "?" {
			t.Errorf("Placeholder(%d) = %q, want ?", pos, got)
		}
	}
	if !d.SupportsLastInsertID() {
		t.Error("SupportsLastInsertID() = false, want true")
	}
	if got := d.ReturningClause("id"); got != "" {
		t.Errorf("ReturningClause() = %q, want empty string", got)
	}
	if got := len(d.InitStatements()); got != 3 {
		t.Errorf("InitStatements() returned %d statements, want 3", got)
	}
	if got := d.SerialPrimaryKey(); got != "INTEGER PRIMARY KEY AUTOINCREMENT" {
		t.Errorf("SerialPrimaryKey() = %q", got)
	}
}

func TestPostgresDialect(t *testing.T) {
	d := &PostgresDialect{}
	if got := d.DriverName(); got != "postgres" {
		t.Errorf("DriverName() = %q, want %q", got, "postgres")
	}
	tests := []struct {
		position int
		want     string
	}{
		{1, "$1"},
		{2, "$2"},
		{10, "$10"},
		{100, "$100"},
	}
	for _, tt := range tests {
		if got := d.Placeholder(tt.position); got != tt.want {
			t.Errorf("Placeholder(%d) = %q, want %q", tt.position, got, tt.want)
		}
	}
	if d.SupportsLastInsertID() {
		t.Error("SupportsLastInsertID() = true, want false")
	}
	if got := d.ReturningClause("id"); got != " RETURNING id" {
		t.Errorf("ReturningClause(id) = %q", got)
	}
	if got := d.SerialPrimaryKey(); got != "BIGSERIAL PRIMARY KEY" {
		t.Errorf("SerialPrimaryKey() = %q", got)
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		dialect Dialect
		err     error
		want    bool
	}{
		{&SQLiteDialect{}, nil, false},
		{&SQLiteDialect{}, errors.New("some random error"), false},
		{&SQLiteDialect{}, errors.New("UNIQUE constraint failed: runs.uuid"), true},
		{&SQLiteDialect{}, errors.New("foreign key constraint failed"), false},
		{&PostgresDialect{}, nil, false},
		{&PostgresDialect{}, errors.New("duplicate key value violates unique constraint"), true},
		{&PostgresDialect{}, errors.New("ERROR: duplicate key value (SQLSTATE 23505)"), true},
		{&PostgresDialect{}, errors.New("foreign key constraint"), false},
	}
	for _, tt := range tests {
		if got := tt.dialect.IsDuplicateKeyError(tt.err); got != tt.want {
			t.Errorf("%T.IsDuplicateKeyError(%v) = %v, want %v", tt.dialect, tt.err, got, tt.want)
		}
	}
}

func TestQueryBuilder_Build(t *testing.T) {
	tests := []struct {
		dialect Dialect
		input   string
		want    string
	}{
		{&SQLiteDialect{}, "SELECT id FROM runs WHERE uuid = ?", "SELECT id FROM runs WHERE uuid = ?"},
		{&PostgresDialect{}, "SELECT id FROM runs", "SELECT id FROM runs"},
		{&PostgresDialect{}, "SELECT id FROM runs WHERE uuid = ?", "SELECT id FROM runs WHERE uuid = $1"},
		{&PostgresDialect{}, "INSERT INTO parcels (run_id, block) VALUES (?, ?)", "INSERT INTO parcels (run_id, block) VALUES ($1, $2)"},
		{&PostgresDialect{}, "", ""},
		{
			&PostgresDialect{},
			"INSERT INTO t VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			"INSERT INTO t VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		},
	}
	for _, tt := range tests {
		if got := NewQueryBuilder(tt.dialect).Build(tt.input); got != tt.want {
			t.Errorf("%T Build(%q) = %q, want %q", tt.dialect, tt.input, got, tt.want)
		}
	}
}

func TestQueryBuilder_BuildWithReturning(t *testing.T) {
	query := "INSERT INTO runs (uuid) VALUES (?)"

	if got := NewQueryBuilder(&SQLiteDialect{}).BuildWithReturning(query, "id"); got != query {
		t.Errorf("SQLite BuildWithReturning = %q, want %q", got, query)
	}
	want := "INSERT INTO runs (uuid) VALUES ($1) RETURNING id"
	if got := NewQueryBuilder(&PostgresDialect{}).BuildWithReturning(query, "id"); got != want {
		t.Errorf("Postgres BuildWithReturning = %q, want %q", got, want)
	}
}

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()

	if cfg.Host != "localhost" || cfg.Port != 5432 || cfg.SSLMode != "disable" {
		t.Errorf("connection defaults = %+v", cfg)
	}
	if cfg.MaxOpenConns != 25 || cfg.MaxIdleConns != 5 {
		t.Errorf("pool defaults = %d/%d, want 25/5", cfg.MaxOpenConns, cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("ConnMaxLifetime = %v, want %v", cfg.ConnMaxLifetime, 5*time.Minute)
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.StorageConfig{
		Driver: "postgres",
		Postgres: config.PostgresConfig{
			Host:            "db.example.com",
			User:            "city",
			Password:        "secret",
			Database:        "cities",
			ConnMaxLifetime: 30,
		},
	})

	if cfg.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Driver)
	}
	pg := cfg.Postgres
	if pg.Host != "db.example.com" || pg.Port != 5432 || pg.MaxOpenConns != 25 {
		t.Errorf("Postgres = %+v, want host override with default port and pool", pg)
	}
	if pg.ConnMaxLifetime != 30*time.Second {
		t.Errorf("ConnMaxLifetime = %v, want 30s", pg.ConnMaxLifetime)
	}

	want := "host=db.example.com port=5432 user=city password=secret dbname=cities sslmode=disable"
	if got := pg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}

	if got := ConfigFrom(config.StorageConfig{SQLitePath: "x.db"}); got.Driver != "sqlite" || got.SQLitePath != "x.db" {
		t.Errorf("empty driver = %+v, want sqlite at x.db", got)
	}
}

// Verify that both dialects implement the Dialect interface
func TestDialect_InterfaceCompliance(t *testing.T) {
	var _ Dialect = (*SQLiteDialect)(nil)
	var _ Dialect = (*PostgresDialect)(nil)
}
