package importer

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"ecoroofs/internal/geo"
	"ecoroofs/internal/metrics"
	"ecoroofs/internal/parser/csv"
	"ecoroofs/internal/storage"
)

// locationColumns is the insert column order for the locations table.
var locationColumns = []string{
	"name",
	"point",
	"building_use_id",
	"watershed_id",
	"neighborhood_id",
	"project",
	"solar_over_ecoroof",
	"type",
	"year_built",
	"square_footage",
	"confidence",
}

// loadLocations builds location records from rows and bulk-inserts them at
// the end. The categorical lookup maps and the neighborhood index are passed
// in pre-fetched; this function never reads store state itself.
//
// Per-row behavior:
//   - no name and no project: warn and skip
//   - names are deduplicated within the run with -1, -2, ... suffixes; a
//     name is claimed even when the row is later skipped for coordinates
//   - building_use is required; missing or unknown values abort the run
//   - watershed is optional; unknown values still abort
//   - either coordinate missing: warn and skip; present but unparseable is
//     an abort, not a skip
func (imp *Importer) loadLocations(
	ctx context.Context,
	rows []*csv.Row,
	buildingUses map[string]int64,
	watersheds map[string]int64,
	hoods *geo.Index,
) error {
	var inserts [][]any
	names := make(map[string]struct{})

	for _, row := range rows {
		name := row.Get("name")
		if name == nil {
			name = row.Get("project")
		}
		if name == nil {
			imp.printf("Name (and project) not set for location: %s; skipping", row.Describe("building_use", "watershed"))
			metrics.RecordRow(imp.job(), "skipped_no_name", 1)
			continue
		}

		unique := *name
		for i := 1; ; i++ {
			if _, taken := names[unique]; !taken {
				break
			}
			unique = fmt.Sprintf("%s-%d", *name, i)
		}
		names[unique] = struct{}{}

		buildingUse, err := choice(row, "building_use", buildingUses, false)
		if err != nil {
			return err
		}
		watershed, err := choice(row, "watershed", watersheds, true)
		if err != nil {
			return err
		}

		lon := row.Get("longitude")
		lat := row.Get("latitude")
		if lon == nil || lat == nil {
			imp.printf("Coordinates not set for location %q: %s; skipping", unique, row.Describe("longitude", "latitude"))
			metrics.RecordRow(imp.job(), "skipped_no_coordinates", 1)
			continue
		}
		pt, err := parsePoint(*lon, *lat, unique)
		if err != nil {
			return err
		}

		var neighborhoodID *int64
		if b := hoods.Locate(pt); b != nil {
			id := b.ID
			neighborhoodID = &id
		}

		inserts = append(inserts, []any{
			unique,
			pt.WKT(),
			*buildingUse,
			anyOrNil(watershed),
			anyOrNil(neighborhoodID),
			anyOrNilStr(row.Get("project")),
			anyOrNilStr(row.Get("solar_over_ecoroof")),
			anyOrNilStr(row.Get("type")),
			anyOrNilStr(row.Get("year_built")),
			anyOrNilStr(row.Get("square_footage")),
			anyOrNilStr(row.Get("confidence")),
		})
	}

	imp.printf("Creating %d locations...", len(inserts))
	if !imp.DryRun {
		if _, err := imp.Repo.BulkInsert(ctx, storage.TableLocations, locationColumns, inserts); err != nil {
			return fmt.Errorf("insert locations: %w", err)
		}
	}
	metrics.RecordRow(imp.job(), "locations_inserted", int64(len(inserts)))

	return nil
}

// choice resolves a categorical field against a pre-fetched name -> id map.
// A nil value is fatal unless nullOK; an unknown value is always fatal and
// the error lists the available choices for operator correction.
func choice(row *csv.Row, field string, choices map[string]int64, nullOK bool) (*int64, error) {
	v := row.Get(field)
	if v == nil {
		if nullOK {
			return nil, nil
		}
		return nil, fmt.Errorf("expected a value for %s in row: %s", field, row.Describe("name", "project"))
	}

	n := NormalizeName(*v)
	id, ok := choices[n]
	if !ok {
		avail := make([]string, 0, len(choices))
		for k := range choices {
			avail = append(avail, k)
		}
		sort.Strings(avail)
		return nil, fmt.Errorf("%q is not one of the available choices for %s; available choices: %v", n, field, avail)
	}
	return &id, nil
}

// parsePoint converts coordinate strings to a point. Malformed values abort
// the run; they indicate a corrupt source file, not a sparse one.
func parsePoint(lon, lat, name string) (geo.Point, error) {
	x, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("location %q: bad longitude %q: %w", name, lon, err)
	}
	y, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("location %q: bad latitude %q: %w", name, lat, err)
	}
	return geo.Point{Lon: x, Lat: y}, nil
}

func anyOrNil(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func anyOrNilStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
