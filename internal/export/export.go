// Package export writes generated cities as GeoJSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/citygen/internal/citygen"
	"github.com/lawnchairsociety/citygen/internal/geom"
)

// Feature kinds, stored in the "kind" property.
const (
	KindStreet = "street"
	KindBlock  = "block"
	KindParcel = "parcel"
)

// FeatureCollection converts city into GeoJSON features. Parcels are
// mapped back into domain coordinates so every layer lines up.
func FeatureCollection(city *citygen.City) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for i, s := range city.Streets {
		f := geojson.NewFeature(geom.LineString(s.Points))
		f.Properties = geojson.Properties{
			"kind":   KindStreet,
			"index":  i,
			"major":  s.Major,
			"closed": s.Closed,
		}
		fc.Append(f)
	}

	unscale := 1.0
	if city.Scale > 0 {
		unscale = 1 / city.Scale
	}

	for i, b := range city.Blocks {
		ring := geom.Ring(b.Ring)
		f := geojson.NewFeature(orb.Polygon{ring.Orb()})
		f.Properties = geojson.Properties{
			"kind":    KindBlock,
			"index":   i,
			"area":    ring.Area(),
			"parcels": len(b.Parcels),
		}
		fc.Append(f)

		for _, p := range b.Parcels {
			pf := geojson.NewFeature(orb.Polygon{geom.Ring(p.Points).Scale(unscale).Orb()})
			pf.Properties = geojson.Properties{
				"kind":   KindParcel,
				"block":  i,
				"height": p.Height,
			}
			fc.Append(pf)
		}
	}
	return fc
}

// WriteGeoJSON writes the city as a GeoJSON FeatureCollection.
func WriteGeoJSON(w io.Writer, city *citygen.City) error {
	data, err := json.Marshal(FeatureCollection(city))
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	return nil
}

// Document is the YAML form of a saved city.
type Document struct {
	SavedAt time.Time     `yaml:"saved_at"`
	City    *citygen.City `yaml:"city"`
}

// WriteYAML writes the city with a save timestamp.
func WriteYAML(w io.Writer, city *citygen.City) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Document{SavedAt: time.Now().UTC(), City: city}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ReadYAML reads a city written by WriteYAML.
func ReadYAML(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.City == nil {
		return nil, fmt.Errorf("decode yaml: no city in document")
	}
	return &doc, nil
}

// SaveFile writes the city to path, choosing the format from the
// extension: .geojson and .json write GeoJSON, anything else YAML.
func SaveFile(path string, city *citygen.City) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	switch filepath.Ext(path) {
	case ".geojson", ".json":
		err = WriteGeoJSON(f, city)
	default:
		err = WriteYAML(f, city)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// LoadFile reads a YAML city from path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadYAML(f)
}
