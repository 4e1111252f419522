// Package importer drives the survey import: read the CSV, intern the
// categorical columns, then bulk-load locations with their derived
// neighborhood associations.
package importer

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"ecoroofs/internal/geo"
	"ecoroofs/internal/metrics"
	"ecoroofs/internal/parser/csv"
	"ecoroofs/internal/storage"
)

// Importer holds one run's configuration. A zero Confirm field means the
// append-without-overwrite gate sleeps 5 seconds; tests inject a no-op.
type Importer struct {
	FileName  string
	Overwrite bool
	DryRun    bool
	Quiet     bool

	// Job tags metrics; defaults to "import".
	Job string

	Repo storage.Repository

	// Confirm gates the append-without-overwrite path.
	Confirm func()

	// Out receives progress lines; defaults to os.Stdout.
	Out io.Writer
}

func (imp *Importer) job() string {
	if imp.Job != "" {
		return imp.Job
	}
	return "import"
}

func (imp *Importer) out() io.Writer {
	if imp.Out != nil {
		return imp.Out
	}
	return os.Stdout
}

// printf writes one progress line. Quiet suppresses it entirely; dry-run
// prefixes it so operators can tell replayed output from a real load.
func (imp *Importer) printf(format string, args ...any) {
	if imp.Quiet {
		return
	}
	if imp.DryRun {
		format = "[DRY RUN] " + format
	}
	fmt.Fprintf(imp.out(), format+"\n", args...)
}

func (imp *Importer) confirm() {
	if imp.Confirm != nil {
		imp.Confirm()
		return
	}
	time.Sleep(5 * time.Second)
}

// Run executes the import: prereq checks, overwrite or append gate, read,
// intern, load. Any returned error means the run stopped partway; the store
// is not rolled back.
func (imp *Importer) Run(ctx context.Context) error {
	hoodCount, err := imp.Repo.Count(ctx, storage.TableNeighborhoods)
	if err != nil {
		return fmt.Errorf("count neighborhoods: %w", err)
	}
	if hoodCount == 0 {
		log.Printf("stage=prereqs warning=%q", "neighborhoods have not been imported; locations will lack neighborhood associations")
	}

	if imp.Overwrite {
		if err := imp.doOverwrite(ctx); err != nil {
			return err
		}
	} else {
		locCount, err := imp.Repo.Count(ctx, storage.TableLocations)
		if err != nil {
			return fmt.Errorf("count locations: %w", err)
		}
		if locCount > 0 {
			log.Printf("stage=prereqs warning=%q", "importing locations without removing existing records")
			log.Printf("stage=prereqs warning=%q", "this will likely FAIL due to duplicate key violations")
			imp.confirm()
		}
	}

	start := time.Now()
	rows, err := imp.readData(ctx)
	metrics.RecordStep(imp.job(), "read", err, time.Since(start))
	if err != nil {
		return err
	}
	metrics.RecordRow(imp.job(), "read", int64(len(rows)))

	start = time.Now()
	buValues, err := imp.internColumn(ctx, rows, "building_use", storage.TableBuildingUses)
	metrics.RecordStep(imp.job(), "intern_building_use", err, time.Since(start))
	if err != nil {
		return err
	}

	start = time.Now()
	wsValues, err := imp.internColumn(ctx, rows, "watershed", storage.TableWatersheds)
	metrics.RecordStep(imp.job(), "intern_watershed", err, time.Since(start))
	if err != nil {
		return err
	}

	start = time.Now()
	err = imp.runLoad(ctx, rows, buValues, wsValues)
	metrics.RecordStep(imp.job(), "load_locations", err, time.Since(start))
	return err
}

// doOverwrite clears locations and watersheds. Building uses are left in
// place; see the repository notes before changing that.
func (imp *Importer) doOverwrite(ctx context.Context) error {
	imp.printf("Removing existing locations...")
	if !imp.DryRun {
		if err := imp.Repo.DeleteAll(ctx, storage.TableLocations); err != nil {
			return fmt.Errorf("delete locations: %w", err)
		}
	}
	imp.printf("Removing existing watersheds...")
	if !imp.DryRun {
		if err := imp.Repo.DeleteAll(ctx, storage.TableWatersheds); err != nil {
			return fmt.Errorf("delete watersheds: %w", err)
		}
	}
	return nil
}

func (imp *Importer) readData(ctx context.Context) ([]*csv.Row, error) {
	f, err := os.Open(imp.FileName)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", imp.FileName, err)
	}
	// ReadAll closes f.
	rows, err := csv.ReadAll(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", imp.FileName, err)
	}
	return rows, nil
}

// runLoad pre-fetches the lookup maps and the neighborhood index, then hands
// them to loadLocations. In dry-run mode the interned values never reached
// the store, so they are merged into the fetched maps to keep categorical
// resolution (and its counts) identical to a real run.
func (imp *Importer) runLoad(ctx context.Context, rows []*csv.Row, buValues, wsValues []string) error {
	buildingUses, err := imp.Repo.SelectNameID(ctx, storage.TableBuildingUses)
	if err != nil {
		return fmt.Errorf("load building_uses lookup: %w", err)
	}
	watersheds, err := imp.Repo.SelectNameID(ctx, storage.TableWatersheds)
	if err != nil {
		return fmt.Errorf("load watersheds lookup: %w", err)
	}

	if imp.DryRun {
		buildingUses = withDryRunValues(buildingUses, buValues)
		watersheds = withDryRunValues(watersheds, wsValues)
	}

	hoods, err := imp.neighborhoodIndex(ctx)
	if err != nil {
		return err
	}

	return imp.loadLocations(ctx, rows, buildingUses, watersheds, hoods)
}

// withDryRunValues adds unpersisted values to a lookup map with placeholder
// ids. A dry run never writes the ids anywhere.
func withDryRunValues(m map[string]int64, values []string) map[string]int64 {
	if m == nil {
		m = make(map[string]int64, len(values))
	}
	for _, v := range values {
		if _, ok := m[v]; !ok {
			m[v] = 0
		}
	}
	return m
}

func (imp *Importer) neighborhoodIndex(ctx context.Context) (*geo.Index, error) {
	ns, err := imp.Repo.SelectNeighborhoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("load neighborhoods: %w", err)
	}
	boundaries := make([]*geo.Boundary, 0, len(ns))
	for _, n := range ns {
		b, err := geo.ParseBoundary(n.ID, n.Name, n.Boundary)
		if err != nil {
			return nil, fmt.Errorf("neighborhood %q: %w", n.Name, err)
		}
		boundaries = append(boundaries, b)
	}
	return geo.NewIndex(boundaries), nil
}
