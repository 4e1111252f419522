// Package storage defines the backend-agnostic store surface the importer
// writes through, plus the factory registry backends register with.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Table names the importer reads and writes.
const (
	TableBuildingUses  = "building_uses"
	TableWatersheds    = "watersheds"
	TableNeighborhoods = "neighborhoods"
	TableLocations     = "locations"
)

// Config is the minimal configuration needed to create a repository.
//
// Kind must match a registered backend kind ("postgres", "sqlite", "mssql").
// DSN is passed through to the backend factory; validation is
// backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Neighborhood is one row of the neighborhoods table. Boundary is the
// polygon geometry as GeoJSON text.
type Neighborhood struct {
	ID       int64
	Name     string
	Boundary string
}

// Repository is the store surface of the import pipeline. Each backend
// implements these semantics in its own dialect.
//
// BulkInsert deliberately has no conflict handling: a uniqueness violation
// from re-importing into a populated table must surface as an error, not be
// silently absorbed.
type Repository interface {
	// Close releases backend resources. Call once at process shutdown.
	Close()

	// EnsureSchema creates the import tables if they do not exist.
	// Idempotent; safe to run on every invocation.
	EnsureSchema(ctx context.Context) error

	// Count returns the number of rows in table.
	Count(ctx context.Context, table string) (int64, error)

	// DeleteAll removes every row from table.
	DeleteAll(ctx context.Context, table string) error

	// BulkInsert inserts rows into table as multi-row INSERTs, chunked below
	// the backend's parameter limits. Returns the number of rows inserted.
	BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// SelectNameID returns a name -> id map for a lookup table.
	SelectNameID(ctx context.Context, table string) (map[string]int64, error)

	// SelectNeighborhoods returns all neighborhoods with their boundaries.
	SelectNeighborhoods(ctx context.Context) ([]Neighborhood, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend factory under a kind. Called from init() in
// backend packages.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. Failing fast avoids ambiguous backend
//     selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
