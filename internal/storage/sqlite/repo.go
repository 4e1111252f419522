// Package sqlite implements storage.Repository on database/sql with the
// modernc.org/sqlite driver. Used for local runs and CI, where a Postgres
// instance is not worth the setup.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"ecoroofs/internal/storage"
)

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens (or creates) the SQLite database at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	// Foreign keys are off by default in SQLite.
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS building_uses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS watersheds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS neighborhoods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		boundary TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		point TEXT NOT NULL,
		building_use_id INTEGER NOT NULL REFERENCES building_uses (id),
		watershed_id INTEGER REFERENCES watersheds (id),
		neighborhood_id INTEGER REFERENCES neighborhoods (id),
		project TEXT,
		solar_over_ecoroof TEXT,
		type TEXT,
		year_built TEXT,
		square_footage TEXT,
		confidence TEXT
	);`,
}

// EnsureSchema creates the import tables if they do not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, q := range schemaSQL {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("sqlite: ensure schema: %w", err)
		}
	}
	return nil
}

// Count returns the row count of table.
func (r *Repo) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, sqlIdent(table))
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll removes every row from table.
func (r *Repo) DeleteAll(ctx context.Context, table string) error {
	q := fmt.Sprintf(`DELETE FROM %s`, sqlIdent(table))
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("sqlite: delete all %s: %w", table, err)
	}
	return nil
}

// SQLite's default parameter limit is 999; stay well under it.
const insertChunkParams = 900

// BulkInsert inserts rows as chunked multi-row INSERTs. No OR IGNORE:
// constraint violations must surface.
func (r *Repo) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: bulk insert %s: no columns", table)
	}

	chunk := insertChunkParams / len(columns)
	if chunk < 1 {
		chunk = 1
	}

	var total int64
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		q, args := buildInsertSQL(table, columns, rows[start:end])
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("sqlite: bulk insert %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("sqlite: bulk insert %s: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// buildInsertSQL constructs a single INSERT with ? placeholders. Pure, for
// unit testing without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args
}

// SelectNameID returns a name -> id map for a lookup table.
func (r *Repo) SelectNameID(ctx context.Context, table string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT name, id FROM %s`, sqlIdent(table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select name/id %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name any
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("sqlite: scan name/id %s: %w", table, err)
		}
		out[storage.NormalizeKey(name)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows %s: %w", table, err)
	}
	return out, nil
}

// SelectNeighborhoods returns all neighborhoods with their GeoJSON
// boundaries.
func (r *Repo) SelectNeighborhoods(ctx context.Context) ([]storage.Neighborhood, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, boundary FROM neighborhoods`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: select neighborhoods: %w", err)
	}
	defer rows.Close()

	var out []storage.Neighborhood
	for rows.Next() {
		var n storage.Neighborhood
		if err := rows.Scan(&n.ID, &n.Name, &n.Boundary); err != nil {
			return nil, fmt.Errorf("sqlite: scan neighborhood: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: neighborhood rows: %w", err)
	}
	return out, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
