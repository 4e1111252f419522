// Package postgres implements storage.Repository on top of pgx.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"ecoroofs/internal/storage"
)

// Repo implements storage.Repository for Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New creates a Postgres-backed Repo.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// schemaSQL is the import schema in Postgres dialect. Statements are ordered
// so foreign key targets exist before the tables that reference them.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS building_uses (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS watersheds (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	);`,
	`CREATE TABLE IF NOT EXISTS neighborhoods (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		boundary TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS locations (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		point TEXT NOT NULL,
		building_use_id BIGINT NOT NULL REFERENCES building_uses (id),
		watershed_id BIGINT REFERENCES watersheds (id),
		neighborhood_id BIGINT REFERENCES neighborhoods (id),
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
		if _, err := r.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// Count returns the row count of table.
func (r *Repo) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgIdent(table))
	if err := r.pool.QueryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll removes every row from table.
func (r *Repo) DeleteAll(ctx context.Context, table string) error {
	q := fmt.Sprintf(`DELETE FROM %s`, pgIdent(table))
	if _, err := r.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("postgres: delete all %s: %w", table, err)
	}
	return nil
}

// insertChunkRows keeps each INSERT well below Postgres's parameter limit.
const insertChunkRows = 2000

// BulkInsert inserts rows as chunked multi-row INSERTs. There is no conflict
// clause: constraint violations must surface.
func (r *Repo) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("postgres: bulk insert %s: no columns", table)
	}

	chunk := insertChunkRows / len(columns)
	if chunk < 1 {
		chunk = 1
	}

	var total int64
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		sql, args := buildInsertSQL(table, columns, rows[start:end])
		cmd, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, fmt.Errorf("postgres: bulk insert %s: %w", table, err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// buildInsertSQL constructs a single INSERT statement and its args.
//
// It is pure and deterministic so placeholder numbering can be unit tested
// without a database. Every row must have len(columns) values.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("$%d", p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args
}

// SelectNameID returns a name -> id map for a lookup table. Map keys are
// normalized with storage.NormalizeKey so text scan representations do not
// matter to callers.
func (r *Repo) SelectNameID(ctx context.Context, table string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT name, id FROM %s`, pgIdent(table))
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres: select name/id %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name any
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("postgres: scan name/id %s: %w", table, err)
		}
		out[storage.NormalizeKey(name)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows %s: %w", table, err)
	}
	return out, nil
}

// SelectNeighborhoods returns all neighborhoods with their GeoJSON
// boundaries.
func (r *Repo) SelectNeighborhoods(ctx context.Context) ([]storage.Neighborhood, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, boundary FROM neighborhoods`)
	if err != nil {
		return nil, fmt.Errorf("postgres: select neighborhoods: %w", err)
	}
	defer rows.Close()

	var out []storage.Neighborhood
	for rows.Next() {
		var n storage.Neighborhood
		if err := rows.Scan(&n.ID, &n.Name, &n.Boundary); err != nil {
			return nil, fmt.Errorf("postgres: scan neighborhood: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: neighborhood rows: %w", err)
	}
	return out, nil
}

func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }
