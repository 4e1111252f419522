// Package mssql implements storage.Repository for Microsoft SQL Server via
// database/sql and the "sqlserver" driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"ecoroofs/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New constructs a Repo using the "sqlserver" driver and validates
// connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// SQL Server has no CREATE TABLE IF NOT EXISTS; guard with OBJECT_ID.
var schemaSQL = []string{
	`IF OBJECT_ID('building_uses', 'U') IS NULL
	CREATE TABLE building_uses (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL UNIQUE
	);`,
	`IF OBJECT_ID('watersheds', 'U') IS NULL
	CREATE TABLE watersheds (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL UNIQUE
	);`,
	`IF OBJECT_ID('neighborhoods', 'U') IS NULL
	CREATE TABLE neighborhoods (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL UNIQUE,
		boundary NVARCHAR(MAX) NOT NULL
	);`,
	`IF OBJECT_ID('locations', 'U') IS NULL
	CREATE TABLE locations (
		id BIGINT IDENTITY(1,1) PRIMARY KEY,
		name NVARCHAR(255) NOT NULL UNIQUE,
		point NVARCHAR(255) NOT NULL,
		building_use_id BIGINT NOT NULL REFERENCES building_uses (id),
		watershed_id BIGINT REFERENCES watersheds (id),
		neighborhood_id BIGINT REFERENCES neighborhoods (id),
		project NVARCHAR(255),
		solar_over_ecoroof NVARCHAR(255),
		type NVARCHAR(255),
		year_built NVARCHAR(255),
		square_footage NVARCHAR(255),
		confidence NVARCHAR(255)
	);`,
}

// EnsureSchema creates the import tables if they do not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, q := range schemaSQL {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql: ensure schema: %w", err)
		}
	}
	return nil
}

// Count returns the row count of table.
func (r *Repo) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, msIdent(table))
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("mssql: count %s: %w", table, err)
	}
	return n, nil
}

// DeleteAll removes every row from table.
func (r *Repo) DeleteAll(ctx context.Context, table string) error {
	q := fmt.Sprintf(`DELETE FROM %s`, msIdent(table))
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("mssql: delete all %s: %w", table, err)
	}
	return nil
}

// SQL Server caps a statement at 2100 parameters; stay well under it.
const insertChunkParams = 2000

// BulkInsert inserts rows as chunked multi-row INSERTs. No MERGE or
// IF NOT EXISTS guards: constraint violations must surface.
func (r *Repo) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("mssql: bulk insert %s: no columns", table)
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
			return total, fmt.Errorf("mssql: bulk insert %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("mssql: bulk insert %s: rows affected: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// buildInsertSQL constructs a single INSERT with @pN placeholders and
// positional sql.Named args. Pure, for unit testing without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(msIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(msIdent(c))
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
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, sql.Named(fmt.Sprintf("p%d", p), row[j]))
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(";")
	return b.String(), args
}

// SelectNameID returns a name -> id map for a lookup table.
func (r *Repo) SelectNameID(ctx context.Context, table string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT name, id FROM %s`, msIdent(table))
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("mssql: select name/id %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var name any
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, fmt.Errorf("mssql: scan name/id %s: %w", table, err)
		}
		out[storage.NormalizeKey(name)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mssql: rows %s: %w", table, err)
	}
	return out, nil
}

// SelectNeighborhoods returns all neighborhoods with their GeoJSON
// boundaries.
func (r *Repo) SelectNeighborhoods(ctx context.Context) ([]storage.Neighborhood, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, boundary FROM neighborhoods`)
	if err != nil {
		return nil, fmt.Errorf("mssql: select neighborhoods: %w", err)
	}
	defer rows.Close()

	var out []storage.Neighborhood
	for rows.Next() {
		var n storage.Neighborhood
		if err := rows.Scan(&n.ID, &n.Name, &n.Boundary); err != nil {
			return nil, fmt.Errorf("mssql: scan neighborhood: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mssql: neighborhood rows: %w", err)
	}
	return out, nil
}

func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }
