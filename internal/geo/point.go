// Package geo holds the small amount of geospatial logic the importer needs:
// WKT point rendering and point-in-polygon neighborhood resolution against
// boundaries stored as GeoJSON text.
package geo

import "strconv"

// Point is a WGS84 coordinate pair, longitude first.
type Point struct {
	Lon float64
	Lat float64
}

// WKT renders the point as well-known text, e.g. "POINT(-122.6 45.5)".
// Coordinates use the shortest representation that round-trips.
func (p Point) WKT() string {
	return "POINT(" +
		strconv.FormatFloat(p.Lon, 'f', -1, 64) + " " +
		strconv.FormatFloat(p.Lat, 'f', -1, 64) + ")"
}
