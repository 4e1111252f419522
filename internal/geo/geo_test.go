package geo

import "testing"

func TestPointWKT(t *testing.T) {
	cases := []struct {
		pt   Point
		want string
	}{
		{Point{Lon: -122.6, Lat: 45.5}, "POINT(-122.6 45.5)"},
		{Point{Lon: 0, Lat: 0}, "POINT(0 0)"},
		{Point{Lon: -122.65432109, Lat: 45.51234567}, "POINT(-122.65432109 45.51234567)"},
	}
	for _, c := range cases {
		if got := c.pt.WKT(); got != c.want {
			t.Errorf("WKT(%v) = %q, want %q", c.pt, got, c.want)
		}
	}
}

const unitSquare = `{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}`

const twoSquares = `{"type":"MultiPolygon","coordinates":[
  [[[0,0],[10,0],[10,10],[0,10],[0,0]]],
  [[[20,20],[30,20],[30,30],[20,30],[20,20]]]
]}`

func TestParseBoundaryPolygon(t *testing.T) {
	b, err := ParseBoundary(1, "downtown", unitSquare)
	if err != nil {
		t.Fatalf("ParseBoundary: %v", err)
	}
	if !b.Contains(Point{Lon: 5, Lat: 5}) {
		t.Errorf("expected (5,5) inside boundary")
	}
	if b.Contains(Point{Lon: 15, Lat: 5}) {
		t.Errorf("expected (15,5) outside boundary")
	}
}

func TestParseBoundaryMultiPolygon(t *testing.T) {
	b, err := ParseBoundary(2, "split", twoSquares)
	if err != nil {
		t.Fatalf("ParseBoundary: %v", err)
	}
	for _, pt := range []Point{{Lon: 5, Lat: 5}, {Lon: 25, Lat: 25}} {
		if !b.Contains(pt) {
			t.Errorf("expected %v inside multipolygon boundary", pt)
		}
	}
	if b.Contains(Point{Lon: 15, Lat: 15}) {
		t.Errorf("expected (15,15) between the parts to be outside")
	}
}

func TestParseBoundaryErrors(t *testing.T) {
	cases := []struct {
		name    string
		geojson string
	}{
		{"not json", "{"},
		{"wrong type", `{"type":"Point","coordinates":[0,0]}`},
		{"empty polygon", `{"type":"Polygon","coordinates":[]}`},
		{"empty multipolygon", `{"type":"MultiPolygon","coordinates":[]}`},
	}
	for _, c := range cases {
		if _, err := ParseBoundary(1, c.name, c.geojson); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestIndexLocate(t *testing.T) {
	a, err := ParseBoundary(1, "a", unitSquare)
	if err != nil {
		t.Fatalf("ParseBoundary: %v", err)
	}
	b, err := ParseBoundary(2, "b", `{"type":"Polygon","coordinates":[[[20,20],[30,20],[30,30],[20,30],[20,20]]]}`)
	if err != nil {
		t.Fatalf("ParseBoundary: %v", err)
	}

	ix := NewIndex([]*Boundary{a, b})
	if ix.Len() != 2 {
		t.Fatalf("Len = %d, want 2", ix.Len())
	}

	if got := ix.Locate(Point{Lon: 25, Lat: 25}); got == nil || got.ID != 2 {
		t.Errorf("Locate inside b = %v, want boundary 2", got)
	}
	if got := ix.Locate(Point{Lon: 5, Lat: 5}); got == nil || got.ID != 1 {
		t.Errorf("Locate inside a = %v, want boundary 1", got)
	}
	if got := ix.Locate(Point{Lon: 100, Lat: 100}); got != nil {
		t.Errorf("Locate outside all = %v, want nil", got)
	}
}
