// Package config loads the settings of a generation run from YAML.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/parcel"
	"github.com/lawnchairsociety/citygen/internal/tensor"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Field types accepted in FieldConfig.Type.
const (
	FieldLinear   = "linear"
	FieldRadial   = "radial"
	FieldPolyline = "polyline"
)

// Config holds the settings of one generation run.
type Config struct {
	Domain DomainConfig `yaml:"domain"`

	// GridCells is the number of spatial index buckets per axis.
	GridCells int `yaml:"grid_cells"`

	// Seed drives every random choice of the run.
	Seed int64 `yaml:"seed"`

	// Major and Minor configure the two tracing passes.
	Major PassConfig `yaml:"major"`
	Minor PassConfig `yaml:"minor"`

	// Fields are summed into the tensor field that streets follow.
	Fields []FieldConfig `yaml:"fields"`

	Parcels ParcelConfig `yaml:"parcels"`

	// Workers bounds how many blocks are divided into lots at once.
	Workers int `yaml:"workers"`

	Storage StorageConfig `yaml:"storage"`
	Preview PreviewConfig `yaml:"preview"`
}

// DomainConfig is the rectangle streets are traced in.
type DomainConfig struct {
	Width float64 `yaml:"width"`
	Depth float64 `yaml:"depth"`

	// Center anchors the first seed of the major pass.
	Center [2]float64 `yaml:"center"`
}

// PassConfig holds the settings of one tracing pass.
type PassConfig struct {
	// Spacing is the distance kept between parallel streets.
	Spacing float64 `yaml:"spacing"`

	// MaxTraces is the number of queued seeds the pass may take.
	MaxTraces int `yaml:"max_traces"`
}

// FieldConfig describes one basis field.
type FieldConfig struct {
	Type string `yaml:"type"`

	// R is the magnitude of a linear field.
	R float64 `yaml:"r"`

	// Theta is the direction of a linear field in degrees.
	Theta float64 `yaml:"theta"`

	// Gamma is the decay of the field's influence with distance from its
	// center. Zero means no decay.
	Gamma float64 `yaml:"gamma"`

	Center [2]float64 `yaml:"center"`

	// Points is the guide line of a polyline field.
	Points [][2]float64 `yaml:"points"`
}

// ParcelConfig controls lot generation. Distances are in scaled units.
type ParcelConfig struct {
	Scale         float64 `yaml:"scale"`
	RoadInset     float64 `yaml:"road_inset"`
	LotInset      float64 `yaml:"lot_inset"`
	MaxLotSize    float64 `yaml:"max_lot_size"`
	MinEdgeLength float64 `yaml:"min_edge_length"`
	MinHeight     float64 `yaml:"min_height"`
	MaxHeight     float64 `yaml:"max_height"`
}

// StorageConfig selects where generated cities are saved.
type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// PreviewConfig holds the settings of the WebSocket preview server.
type PreviewConfig struct {
	Address string `yaml:"address"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxConnections limits concurrent viewers. Zero means unlimited.
	MaxConnections int `yaml:"max_connections"`
	MaxPerIP       int `yaml:"max_per_ip"`
}

// DefaultConfig returns a small city on a 20x20 domain: a grid bent around a
// radial center.
func DefaultConfig() *Config {
	p := parcel.DefaultOptions()
	return &Config{
		Domain:    DomainConfig{Width: 20, Depth: 20, Center: [2]float64{10, 10}},
		GridCells: 100,
		Seed:      1,
		Major:     PassConfig{Spacing: 2, MaxTraces: 200},
		Minor:     PassConfig{Spacing: 1, MaxTraces: 200},
		Fields: []FieldConfig{
			{Type: FieldLinear, R: 1, Theta: 0, Gamma: 0},
			{Type: FieldRadial, Gamma: 0.05, Center: [2]float64{10, 10}},
		},
		Parcels: ParcelConfig{
			Scale:         p.Scale,
			RoadInset:     p.RoadInset,
			LotInset:      p.LotInset,
			MaxLotSize:    p.MaxLotSize,
			MinEdgeLength: p.MinEdgeLength,
			MinHeight:     p.MinHeight,
			MaxHeight:     p.MaxHeight,
		},
		Workers: 4,
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "data/citygen.db",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				User:            "citygen",
				Database:        "citygen",
				SSLMode:         "disable",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 300,
			},
		},
		Preview: PreviewConfig{
			Address:        "localhost:4100",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxConnections: 64,
			MaxPerIP:       8,
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return config, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return config, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	if seed := os.Getenv("CITYGEN_SEED"); seed != "" {
		v, err := strconv.ParseInt(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: CITYGEN_SEED %q is not an integer", ErrInvalidConfig, seed)
		}
		c.Seed = v
	}
	if driver := os.Getenv("CITYGEN_DB_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	return nil
}

// Validate reports the first setting that cannot produce a city.
func (c *Config) Validate() error {
	switch {
	case !(c.Domain.Width > 0) || !(c.Domain.Depth > 0):
		return fmt.Errorf("%w: domain must have positive width and depth", ErrInvalidConfig)
	case c.GridCells < 1:
		return fmt.Errorf("%w: grid_cells must be at least 1", ErrInvalidConfig)
	case !(c.Major.Spacing > 0) || !(c.Minor.Spacing > 0):
		return fmt.Errorf("%w: pass spacing must be positive", ErrInvalidConfig)
	case c.Major.MaxTraces < 0 || c.Minor.MaxTraces < 0:
		return fmt.Errorf("%w: max_traces must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.Preview.MaxConnections < 0 || c.Preview.MaxPerIP < 0:
		return fmt.Errorf("%w: preview connection limits must not be negative", ErrInvalidConfig)
	}

	p := c.Parcels
	switch {
	case !(p.Scale > 0):
		return fmt.Errorf("%w: parcels.scale must be positive", ErrInvalidConfig)
	case p.RoadInset < 0 || p.LotInset < 0 || p.MinEdgeLength < 0:
		return fmt.Errorf("%w: parcel insets must not be negative", ErrInvalidConfig)
	case !(p.MaxLotSize > 0):
		return fmt.Errorf("%w: parcels.max_lot_size must be positive", ErrInvalidConfig)
	case p.MinHeight < 0 || p.MaxHeight < p.MinHeight:
		return fmt.Errorf("%w: parcel heights must satisfy 0 <= min_height <= max_height", ErrInvalidConfig)
	}

	for i, f := range c.Fields {
		if err := f.validate(); err != nil {
			return fmt.Errorf("%w: fields[%d]: %v", ErrInvalidConfig, i, err)
		}
	}

	switch c.Storage.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	return nil
}

func (f FieldConfig) validate() error {
	if f.Gamma < 0 {
		return errors.New("gamma must not be negative")
	}
	switch strings.ToLower(f.Type) {
	case FieldLinear, FieldRadial:
	case FieldPolyline:
		if len(f.Points) < 2 {
			return errors.New("polyline needs at least two points")
		}
	default:
		return fmt.Errorf("unknown field type %q", f.Type)
	}
	return nil
}

// Basis converts the descriptor into a tensor basis field.
func (f FieldConfig) Basis() tensor.Basis {
	center := geom.Pt(f.Center[0], f.Center[1])
	switch strings.ToLower(f.Type) {
	case FieldRadial:
		return tensor.Radial{Gamma: f.Gamma, Center: center}
	case FieldPolyline:
		pts := make([]geom.Point, len(f.Points))
		for i, p := range f.Points {
			pts[i] = geom.Pt(p[0], p[1])
		}
		return tensor.Polyline{Gamma: f.Gamma, Points: pts}
	default:
		return tensor.Linear{R: f.R, Theta: f.Theta * math.Pi / 180, Gamma: f.Gamma, Center: center}
	}
}

// Field builds the combined tensor field.
func (c *Config) Field() *tensor.Field {
	field := tensor.NewField()
	for _, f := range c.Fields {
		field.Add(f.Basis())
	}
	return field
}

// ParcelOptions converts the parcel section into lot generation options.
func (c *Config) ParcelOptions() parcel.Options {
	p := c.Parcels
	return parcel.Options{
		Scale:         p.Scale,
		RoadInset:     p.RoadInset,
		LotInset:      p.LotInset,
		MaxLotSize:    p.MaxLotSize,
		MinEdgeLength: p.MinEdgeLength,
		MinHeight:     p.MinHeight,
		MaxHeight:     p.MaxHeight,
	}
}

// Center returns the domain center as a point.
func (c *Config) Center() geom.Point {
	return geom.Pt(c.Domain.Center[0], c.Domain.Center[1])
}

// generation is the part of the configuration that determines the city.
type generation struct {
	Domain    DomainConfig  `yaml:"domain"`
	GridCells int           `yaml:"grid_cells"`
	Seed      int64         `yaml:"seed"`
	Major     PassConfig    `yaml:"major"`
	Minor     PassConfig    `yaml:"minor"`
	Fields    []FieldConfig `yaml:"fields"`
	Parcels   ParcelConfig  `yaml:"parcels"`
}

// Digest returns a hex BLAKE2b-256 fingerprint of the settings that
// determine the generated city. Storage, preview and worker settings do not
// contribute, so equal digests mean equal cities.
func (c *Config) Digest() (string, error) {
	data, err := yaml.Marshal(generation{
		Domain:    c.Domain,
		GridCells: c.GridCells,
		Seed:      c.Seed,
		Major:     c.Major,
		Minor:     c.Minor,
		Fields:    c.Fields,
		Parcels:   c.Parcels,
	})
	if err != nil {
		return "", fmt.Errorf("encode config digest: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *PreviewConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
