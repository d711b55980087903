// Package citygen runs the whole pipeline: it traces streets through the
// configured tensor field, extracts the blocks they enclose and divides the
// blocks into building lots.
package citygen

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lawnchairsociety/citygen/internal/config"
	"github.com/lawnchairsociety/citygen/internal/faces"
	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/logger"
	"github.com/lawnchairsociety/citygen/internal/parcel"
	"github.com/lawnchairsociety/citygen/internal/streamline"
)

// City is the result of one generation run.
type City struct {
	// Digest fingerprints the settings the city was generated from.
	Digest string  `yaml:"digest"`
	Seed   int64   `yaml:"seed"`
	Width  float64 `yaml:"width"`
	Depth  float64 `yaml:"depth"`
	// Scale converts block coordinates into parcel coordinates.
	Scale float64 `yaml:"scale"`

	Streets []Street `yaml:"streets"`
	Blocks  []Block  `yaml:"blocks"`
	Stats   Stats    `yaml:"stats"`
}

// Street is the polyline of one traced streamline, in domain coordinates.
type Street struct {
	Major  bool         `yaml:"major"`
	Closed bool         `yaml:"closed"`
	Points []geom.Point `yaml:"points,flow"`
}

// Block is one face of the street network with what was built on it.
type Block struct {
	// Ring is the face boundary in domain coordinates.
	Ring []geom.Point `yaml:"ring,flow"`
	// Insets are the buildable areas left after the road inset, scaled.
	Insets  [][]geom.Point  `yaml:"insets,flow"`
	Parcels []parcel.Parcel `yaml:"parcels"`
}

// Stats summarises a run.
type Stats struct {
	Major    streamline.PassStats `yaml:"major"`
	Minor    streamline.PassStats `yaml:"minor"`
	Vertices int                  `yaml:"vertices"`
	Edges    int                  `yaml:"edges"`
	Blocks   int                  `yaml:"blocks"`
	Parcels  int                  `yaml:"parcels"`
	// Dropped counts rings discarded for non-finite coordinates.
	Dropped int `yaml:"dropped"`
}

// Generate builds a city from cfg. Lots are derived for several blocks at
// once, each with its own random source seeded from the run seed and the
// block index, so the result does not depend on scheduling.
func Generate(ctx context.Context, cfg *config.Config) (*City, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	digest, err := cfg.Digest()
	if err != nil {
		return nil, err
	}

	city := &City{
		Digest: digest,
		Seed:   cfg.Seed,
		Width:  cfg.Domain.Width,
		Depth:  cfg.Domain.Depth,
		Scale:  cfg.Parcels.Scale,
	}

	start := time.Now()
	net := streamline.NewNetwork(cfg.Field(), cfg.Domain.Width, cfg.Domain.Depth, cfg.GridCells)

	first := cfg.Center().Add(geom.Pt(cfg.Major.Spacing, cfg.Major.Spacing))
	city.Stats.Major = net.Run(streamline.Pass{
		Major:     true,
		Spacing:   cfg.Major.Spacing,
		MaxTraces: cfg.Major.MaxTraces,
		Seeds:     []geom.Point{first},
	})
	logger.Timed("traced major pass", start, "streamlines", city.Stats.Major.Streamlines)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	city.Stats.Minor = net.Run(streamline.Pass{
		Major:     false,
		Spacing:   cfg.Minor.Spacing,
		MaxTraces: cfg.Minor.MaxTraces,
		Seeds:     net.Lattice(1),
	})
	logger.Timed("traced minor pass", start, "streamlines", city.Stats.Minor.Streamlines)

	g := net.Graph
	city.Stats.Vertices = g.Len()
	city.Stats.Edges = g.EdgeCount()

	for _, s := range g.Streamlines() {
		pts := g.Path(s)
		if len(pts) < 2 {
			continue
		}
		if !geom.Ring(pts).IsFinite() {
			city.Stats.Dropped++
			continue
		}
		city.Streets = append(city.Streets, Street{Major: s.Major, Closed: s.Closed, Points: pts})
	}

	start = time.Now()
	found := faces.Extract(g)
	logger.Timed("extracted blocks", start, "blocks", len(found))

	start = time.Now()
	blocks, dropped, err := buildBlocks(ctx, found, cfg)
	if err != nil {
		return nil, err
	}
	logger.Timed("divided blocks into lots", start)

	city.Blocks = blocks
	city.Stats.Dropped += dropped
	city.Stats.Blocks = len(blocks)
	for _, b := range blocks {
		city.Stats.Parcels += len(b.Parcels)
	}

	logger.Info("generated city",
		"digest", digest[:12],
		"streets", len(city.Streets),
		"blocks", city.Stats.Blocks,
		"parcels", city.Stats.Parcels,
		"dropped", city.Stats.Dropped)
	return city, nil
}

// buildBlocks insets every face and divides it into lots using up to
// cfg.Workers goroutines. Faces with non-finite coordinates are skipped.
func buildBlocks(ctx context.Context, found []faces.Face, cfg *config.Config) ([]Block, int, error) {
	opts := cfg.ParcelOptions()
	results := make([]*Block, len(found))
	dropped := make([]int, len(found))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)
	for i, f := range found {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !f.Ring.IsFinite() {
				logger.Warning("dropping block with non-finite coordinates", "block", i)
				dropped[i]++
				return nil
			}

			layout := parcel.Build(f.Ring, opts, rand.New(rand.NewSource(cfg.Seed+int64(i))))
			dropped[i] += layout.Dropped
			results[i] = &Block{Ring: f.Ring, Insets: layout.Insets, Parcels: layout.Parcels}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, fmt.Errorf("divide blocks: %w", err)
	}

	var blocks []Block
	var n int
	for i, b := range results {
		n += dropped[i]
		if b != nil {
			blocks = append(blocks, *b)
		}
	}
	return blocks, n, nil
}
