package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"ecoroofs/internal/importer"
	"ecoroofs/internal/metrics"
	"ecoroofs/internal/metrics/datadog"
	"ecoroofs/internal/storage"

	// register all backends with the storage factory.
	_ "ecoroofs/internal/storage/all"
)

// main is the entry point for the import binary. It wires the configured
// storage backend, optionally initializes a metrics backend, and executes
// the run.
func main() {
	var (
		file              string
		storageKind       string
		dsn               string
		overwrite         bool
		dryRun            bool
		quiet             bool
		metricsBackendFlg string
	)

	flag.StringVar(&file, "file", "", "survey CSV path (required)")
	flag.StringVar(&storageKind, "storage", "postgres", "storage backend (postgres, sqlite, mssql)")
	flag.StringVar(&dsn, "dsn", "$DATABASE_URL", "store DSN; environment variables are expanded")
	flag.BoolVar(&overwrite, "overwrite", false, "delete existing locations and watersheds first")
	flag.BoolVar(&dryRun, "dry-run", false, "compute and report everything, write nothing")
	flag.BoolVar(&quiet, "quiet", false, "suppress progress output")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if file == "" {
		log.Fatalf("missing required -file")
	}

	// Decide metrics backend: flag → env → default.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName:    "ecoroofs_import",
			Tags:       extraTags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v tags=%v", backendName, extraTags)
			metrics.SetBackend(b)

			// Close() stops the periodic flush loop and performs a final
			// Flush(); the clean shutdown path for the Datadog backend.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	repo, err := storage.New(ctx, storage.Config{
		Kind: storageKind,
		DSN:  os.ExpandEnv(dsn),
	})
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("storage: %v", err)
	}

	if *verbose {
		log.Printf("import: file=%s storage=%s overwrite=%v dry_run=%v", file, storageKind, overwrite, dryRun)
	}

	imp := &importer.Importer{
		FileName:  file,
		Overwrite: overwrite,
		DryRun:    dryRun,
		Quiet:     quiet,
		Job:       "ecoroofs_import",
		Repo:      repo,
	}
	if err := imp.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}
