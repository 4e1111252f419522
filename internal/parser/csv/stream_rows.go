// Package csv stream-parses survey spreadsheets into rows keyed by canonical
// field names. Header resolution is delegated to internal/fields; values are
// trimmed and blank values are coerced to nil so downstream code has a single
// notion of "missing".
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"ecoroofs/internal/fields"
)

// Row is one parsed survey record. Fields maps canonical field names to
// trimmed values; a nil value means the cell was empty or whitespace.
// Dropped columns are absent from the map.
type Row struct {
	Line   int
	Fields map[string]*string
}

// Get returns the value for field, or nil when the field is absent or null.
func (r *Row) Get(field string) *string {
	return r.Fields[field]
}

// Describe renders the row's key fields for skip warnings, in a stable order.
func (r *Row) Describe(keys ...string) string {
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, fmt.Sprintf("line=%d", r.Line))
	for _, k := range keys {
		if v := r.Fields[k]; v != nil {
			parts = append(parts, fmt.Sprintf("%s=%q", k, *v))
		} else {
			parts = append(parts, k+"=<null>")
		}
	}
	return strings.Join(parts, " ")
}

// StreamRows streams CSV records from src into out as *Row values.
//
// The header row is normalized through fields.Normalize. Columns whose
// mapping is fields.Drop are discarded. An unmapped header that does not
// derive to a valid identifier aborts the stream with an error before any
// row is emitted.
//
// There is no duplicate-header detection: two headers resolving to the same
// field name silently overwrite each other within a row, last column wins.
//
// Every field value is trimmed; empty values are stored as nil.
func StreamRows(ctx context.Context, src io.ReadCloser, out chan<- *Row) error {
	defer src.Close()

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	line := 1
	hdr, err := cr.Read()
	if err != nil {
		return fmt.Errorf("csv: read header: %w", err)
	}

	// names[i] is the canonical field for column i; "" means dropped.
	names := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		name, _, err := fields.Normalize(h)
		if err != nil {
			return err
		}
		names[i] = name
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csv: read record: %w", err)
		}
		line++

		row := &Row{
			Line:   line,
			Fields: make(map[string]*string, len(names)),
		}
		for i, name := range names {
			if name == fields.Drop {
				continue
			}
			var v string
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			if v == "" {
				row.Fields[name] = nil
			} else {
				val := v
				row.Fields[name] = &val
			}
		}

		select {
		case out <- row:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RawHeader reads and returns the header row of src without normalizing it.
// The BOM is stripped from the first cell. Used by the probe tool to show
// raw headers next to their resolved names.
func RawHeader(src io.Reader) ([]string, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	if len(hdr) > 0 {
		hdr[0] = strings.TrimPrefix(hdr[0], "\uFEFF")
	}
	return hdr, nil
}

// ReadAll collects the full row stream into memory. The import pipeline makes
// several passes over the data (interning, then loading), so it buffers the
// whole file; survey spreadsheets are small.
func ReadAll(ctx context.Context, src io.ReadCloser) ([]*Row, error) {
	rows := make([]*Row, 0, 256)
	out := make(chan *Row)
	errCh := make(chan error, 1)

	go func() {
		errCh <- StreamRows(ctx, src, out)
		close(out)
	}()

	for r := range out {
		rows = append(rows, r)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return rows, nil
}
