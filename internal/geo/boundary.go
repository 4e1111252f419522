package geo

import (
	"encoding/json"
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Boundary is one named region with its polygon geometry. MultiPolygon
// boundaries keep one polygon per part; containment checks all of them.
type Boundary struct {
	ID       int64
	Name     string
	polygons []*geom.Polygon
}

// ParseBoundary decodes a GeoJSON Polygon or MultiPolygon into a Boundary.
// Only exterior rings are kept; the source boundaries have no holes.
func ParseBoundary(id int64, name, geojson string) (*Boundary, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(geojson), &probe); err != nil {
		return nil, fmt.Errorf("geo: boundary %q: parse geojson: %w", name, err)
	}

	b := &Boundary{ID: id, Name: name}

	switch probe.Type {
	case "Polygon":
		var g struct {
			Coordinates [][][]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal([]byte(geojson), &g); err != nil {
			return nil, fmt.Errorf("geo: boundary %q: parse polygon: %w", name, err)
		}
		p, err := ringPolygon(g.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("geo: boundary %q: %w", name, err)
		}
		b.polygons = append(b.polygons, p)

	case "MultiPolygon":
		var g struct {
			Coordinates [][][][]float64 `json:"coordinates"`
		}
		if err := json.Unmarshal([]byte(geojson), &g); err != nil {
			return nil, fmt.Errorf("geo: boundary %q: parse multipolygon: %w", name, err)
		}
		if len(g.Coordinates) == 0 {
			return nil, fmt.Errorf("geo: boundary %q: empty multipolygon", name)
		}
		for _, rings := range g.Coordinates {
			p, err := ringPolygon(rings)
			if err != nil {
				return nil, fmt.Errorf("geo: boundary %q: %w", name, err)
			}
			b.polygons = append(b.polygons, p)
		}

	default:
		return nil, fmt.Errorf("geo: boundary %q: unsupported geojson type %q", name, probe.Type)
	}

	return b, nil
}

// ringPolygon builds a go-geom polygon from the exterior ring of a GeoJSON
// ring list.
func ringPolygon(rings [][][]float64) (*geom.Polygon, error) {
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, fmt.Errorf("empty polygon coordinates")
	}
	ext := rings[0]
	coords := make([]geom.Coord, len(ext))
	for i, c := range ext {
		if len(c) < 2 {
			return nil, fmt.Errorf("ring position %d has %d ordinates", i, len(c))
		}
		coords[i] = geom.Coord{c[0], c[1]}
	}
	p := geom.NewPolygon(geom.XY)
	if _, err := p.SetCoords([][]geom.Coord{coords}); err != nil {
		return nil, err
	}
	return p, nil
}

// Contains reports whether pt falls inside any part of the boundary.
func (b *Boundary) Contains(pt Point) bool {
	coord := geom.Coord{pt.Lon, pt.Lat}
	for _, p := range b.polygons {
		ring := p.LinearRing(0)
		if xy.IsPointInRing(geom.XY, coord, ring.FlatCoords()) {
			return true
		}
	}
	return false
}

// Index resolves points to boundaries. Boundaries are assumed disjoint, so
// the first containing boundary wins.
type Index struct {
	boundaries []*Boundary
}

// NewIndex builds an index over the given boundaries.
func NewIndex(bs []*Boundary) *Index {
	return &Index{boundaries: bs}
}

// Len returns the number of indexed boundaries.
func (ix *Index) Len() int { return len(ix.boundaries) }

// Locate returns the boundary containing pt, or nil when no boundary does.
func (ix *Index) Locate(pt Point) *Boundary {
	for _, b := range ix.boundaries {
		if b.Contains(pt) {
			return b
		}
	}
	return nil
}
