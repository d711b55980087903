package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/lawnchairsociety/citygen/internal/citygen"
	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/parcel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testCity() *citygen.City {
	square := func(x, z, size float64) []geom.Point {
		return []geom.Point{geom.Pt(x, z), geom.Pt(x+size, z), geom.Pt(x+size, z+size), geom.Pt(x, z+size)}
	}
	return &citygen.City{
		Digest: "abc123",
		Seed:   7,
		Width:  20,
		Depth:  20,
		Streets: []citygen.Street{
			{Major: true, Points: []geom.Point{geom.Pt(0, 5), geom.Pt(20, 5)}},
			{Points: []geom.Point{geom.Pt(5, 0), geom.Pt(5, 20)}},
		},
		Blocks: []citygen.Block{
			{Ring: square(0, 0, 5), Parcels: []parcel.Parcel{
				{Points: square(14, 14, 10), Height: 12.5},
				{Points: square(30, 14, 10), Height: 40},
			}},
			{Ring: square(5, 5, 5), Parcels: []parcel.Parcel{
				{Points: square(514, 514, 20), Height: 69},
			}},
		},
		Stats: citygen.Stats{Parcels: 3, Dropped: 1},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open store with nested path: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
	for _, table := range []string{"runs", "streets", "parcels"} {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Errorf("Failed to query %s table: %v", table, err)
		}
	}
}

func TestOpenTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestSaveCity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.SaveCity(ctx, testCity())
	if err != nil {
		t.Fatalf("SaveCity: %v", err)
	}
	if run.ID == 0 || run.UUID == "" {
		t.Errorf("run = %+v, want an id and a uuid", run)
	}

	got, err := s.GetRun(ctx, run.UUID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID || got.Digest != "abc123" || got.Seed != 7 {
		t.Errorf("GetRun = %+v", got)
	}
	if got.Streets != 2 || got.Blocks != 2 || got.Parcels != 3 || got.Dropped != 1 {
		t.Errorf("counts = %d/%d/%d/%d, want 2/2/3/1", got.Streets, got.Blocks, got.Parcels, got.Dropped)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}

	streets, err := s.Streets(ctx, run.ID)
	if err != nil {
		t.Fatalf("Streets: %v", err)
	}
	if len(streets) != 2 || !streets[0].Major || streets[1].Major {
		t.Fatalf("Streets = %+v", streets)
	}
	if want := (orb.LineString{{0, 5}, {20, 5}}); !streets[0].Line.Equal(want) {
		t.Errorf("street line = %v, want %v", streets[0].Line, want)
	}

	parcels, err := s.Parcels(ctx, run.ID)
	if err != nil {
		t.Fatalf("Parcels: %v", err)
	}
	if len(parcels) != 3 {
		t.Fatalf("got %d parcels, want 3", len(parcels))
	}
	if parcels[0].Block != 0 || parcels[2].Block != 1 {
		t.Errorf("blocks = %d, %d, want 0, 1", parcels[0].Block, parcels[2].Block)
	}
	if parcels[0].Height != 12.5 {
		t.Errorf("Height = %v, want 12.5", parcels[0].Height)
	}
	if area := planar.Area(parcels[2].Polygon); area != 400 && area != -400 {
		t.Errorf("parcel area = %v, want 400", area)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
	if _, err := s.LatestByDigest(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("err = %v, want ErrRunNotFound", err)
	}
}

func TestLatestByDigestAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveCity(ctx, testCity())
	if err != nil {
		t.Fatalf("SaveCity: %v", err)
	}
	second, err := s.SaveCity(ctx, testCity())
	if err != nil {
		t.Fatalf("SaveCity: %v", err)
	}
	other := testCity()
	other.Digest = "def456"
	if _, err := s.SaveCity(ctx, other); err != nil {
		t.Fatalf("SaveCity: %v", err)
	}

	latest, err := s.LatestByDigest(ctx, "abc123")
	if err != nil {
		t.Fatalf("LatestByDigest: %v", err)
	}
	if latest.UUID != second.UUID {
		t.Errorf("LatestByDigest = %s, want %s", latest.UUID, second.UUID)
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns returned %d runs, want 2", len(runs))
	}
	if runs[0].Digest != "def456" || runs[1].UUID != second.UUID {
		t.Errorf("ListRuns order = %s, %s", runs[0].Digest, runs[1].UUID)
	}
	if first.UUID == second.UUID {
		t.Error("two runs share a uuid")
	}
}

func TestDeleteRunCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run, err := s.SaveCity(ctx, testCity())
	if err != nil {
		t.Fatalf("SaveCity: %v", err)
	}
	if err := s.DeleteRun(ctx, run.UUID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}

	parcels, err := s.Parcels(ctx, run.ID)
	if err != nil {
		t.Fatalf("Parcels: %v", err)
	}
	if len(parcels) != 0 {
		t.Errorf("%d parcels survived their run", len(parcels))
	}
	if err := s.DeleteRun(ctx, run.UUID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second DeleteRun = %v, want ErrRunNotFound", err)
	}
}

func TestSaveCityCanceled(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SaveCity(ctx, testCity()); err == nil {
		t.Error("SaveCity succeeded with a canceled context")
	}
}
