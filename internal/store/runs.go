package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/lawnchairsociety/citygen/internal/citygen"
	"github.com/lawnchairsociety/citygen/internal/geom"
)

// ErrRunNotFound is returned when a run lookup fails.
var ErrRunNotFound = errors.New("run not found")

// ErrRunExists is returned when a run UUID is already taken.
var ErrRunExists = errors.New("run already exists")

// Run is the stored summary of one generated city.
type Run struct {
	ID        int64
	UUID      string
	Digest    string
	Seed      int64
	Width     float64
	Depth     float64
	Streets   int
	Blocks    int
	Parcels   int
	Dropped   int
	CreatedAt time.Time
}

// Street is a stored street polyline.
type Street struct {
	Major  bool
	Closed bool
	Line   orb.LineString
}

// Parcel is a stored lot footprint with its building height.
type Parcel struct {
	Block   int
	Height  float64
	Polygon orb.Polygon
}

const runColumns = "id, uuid, digest, seed, width, depth, streets, blocks, parcels, dropped, created_at"

// SaveCity stores city with its streets and parcels in one transaction.
func (s *Store) SaveCity(ctx context.Context, city *citygen.City) (*Run, error) {
	run := &Run{
		UUID:      uuid.NewString(),
		Digest:    city.Digest,
		Seed:      city.Seed,
		Width:     city.Width,
		Depth:     city.Depth,
		Streets:   len(city.Streets),
		Blocks:    len(city.Blocks),
		Parcels:   city.Stats.Parcels,
		Dropped:   city.Stats.Dropped,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if run.ID, err = s.insertRun(ctx, tx, run); err != nil {
		return nil, err
	}

	streetStmt, err := tx.PrepareContext(ctx, s.qb.Build(
		"INSERT INTO streets (run_id, major, closed, geometry) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare street insert: %w", err)
	}
	defer streetStmt.Close()

	for _, st := range city.Streets {
		data, err := encodeGeometry(geom.LineString(st.Points))
		if err != nil {
			return nil, err
		}
		if _, err := streetStmt.ExecContext(ctx, run.ID, boolToInt(st.Major), boolToInt(st.Closed), data); err != nil {
			return nil, fmt.Errorf("failed to save street: %w", err)
		}
	}

	parcelStmt, err := tx.PrepareContext(ctx, s.qb.Build(
		"INSERT INTO parcels (run_id, block, height, geometry) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare parcel insert: %w", err)
	}
	defer parcelStmt.Close()

	for i, b := range city.Blocks {
		for _, p := range b.Parcels {
			data, err := encodeGeometry(orb.Polygon{geom.Ring(p.Points).Orb()})
			if err != nil {
				return nil, err
			}
			if _, err := parcelStmt.ExecContext(ctx, run.ID, i, p.Height, data); err != nil {
				return nil, fmt.Errorf("failed to save parcel: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

func (s *Store) insertRun(ctx context.Context, tx *sql.Tx, run *Run) (int64, error) {
	query := s.qb.BuildWithReturning(
		`INSERT INTO runs (uuid, digest, seed, width, depth, streets, blocks, parcels, dropped, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, "id")
	args := []any{run.UUID, run.Digest, run.Seed, run.Width, run.Depth,
		run.Streets, run.Blocks, run.Parcels, run.Dropped, run.CreatedAt}

	var id int64
	var err error
	if s.dialect.SupportsLastInsertID() {
		var result sql.Result
		result, err = tx.ExecContext(ctx, query, args...)
		if err == nil {
			id, err = result.LastInsertId()
		}
	} else {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return 0, ErrRunExists
		}
		return 0, fmt.Errorf("failed to save run: %w", err)
	}
	return id, nil
}

// GetRun retrieves a run by UUID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.qb.Build("SELECT "+runColumns+" FROM runs WHERE uuid = ?"), id)
	return scanRun(row)
}

// LatestByDigest returns the most recent run generated from settings with
// the given digest.
func (s *Store) LatestByDigest(ctx context.Context, digest string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, s.qb.Build(
		"SELECT "+runColumns+" FROM runs WHERE digest = ? ORDER BY id DESC LIMIT 1"), digest)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, s.qb.Build(
		"SELECT "+runColumns+" FROM runs ORDER BY id DESC LIMIT ?"), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run with its streets and parcels.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.qb.Build("DELETE FROM runs WHERE uuid = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Streets returns the streets of a run in insertion order.
func (s *Store) Streets(ctx context.Context, runID int64) ([]Street, error) {
	rows, err := s.db.QueryContext(ctx, s.qb.Build(
		"SELECT major, closed, geometry FROM streets WHERE run_id = ? ORDER BY id"), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streets: %w", err)
	}
	defer rows.Close()

	var streets []Street
	for rows.Next() {
		var major, closed int
		var data string
		if err := rows.Scan(&major, &closed, &data); err != nil {
			return nil, fmt.Errorf("failed to scan street: %w", err)
		}
		g, err := decodeGeometry(data)
		if err != nil {
			return nil, err
		}
		line, ok := g.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("street geometry is %s, want LineString", g.GeoJSONType())
		}
		streets = append(streets, Street{Major: major != 0, Closed: closed != 0, Line: line})
	}
	return streets, rows.Err()
}

// Parcels returns the parcels of a run in insertion order.
func (s *Store) Parcels(ctx context.Context, runID int64) ([]Parcel, error) {
	rows, err := s.db.QueryContext(ctx, s.qb.Build(
		"SELECT block, height, geometry FROM parcels WHERE run_id = ? ORDER BY id"), runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parcels: %w", err)
	}
	defer rows.Close()

	var parcels []Parcel
	for rows.Next() {
		var p Parcel
		var data string
		if err := rows.Scan(&p.Block, &p.Height, &data); err != nil {
			return nil, fmt.Errorf("failed to scan parcel: %w", err)
		}
		g, err := decodeGeometry(data)
		if err != nil {
			return nil, err
		}
		poly, ok := g.(orb.Polygon)
		if !ok {
			return nil, fmt.Errorf("parcel geometry is %s, want Polygon", g.GeoJSONType())
		}
		p.Polygon = poly
		parcels = append(parcels, p)
	}
	return parcels, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.UUID, &r.Digest, &r.Seed, &r.Width, &r.Depth,
		&r.Streets, &r.Blocks, &r.Parcels, &r.Dropped, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &r, nil
}

func encodeGeometry(g orb.Geometry) (string, error) {
	data, err := json.Marshal(geojson.NewGeometry(g))
	if err != nil {
		return "", fmt.Errorf("failed to encode geometry: %w", err)
	}
	return string(data), nil
}

func decodeGeometry(data string) (orb.Geometry, error) {
	var g geojson.Geometry
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}
	if g.Geometry() == nil {
		return nil, errors.New("empty geometry")
	}
	return g.Geometry(), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
