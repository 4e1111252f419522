package csv

import (
	"context"
	"io"
	"strings"
	"testing"
)

func readAll(t *testing.T, data string) []*Row {
	t.Helper()
	rows, err := ReadAll(context.Background(), io.NopCloser(strings.NewReader(data)))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return rows
}

func TestReadAllTrimsAndNullCoerces(t *testing.T) {
	rows := readAll(t, "Name in BES Reports,Watershed\n  Roof A  ,   \n")

	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	r := rows[0]
	if r.Line != 2 {
		t.Errorf("Line = %d, want 2", r.Line)
	}
	if v := r.Get("name"); v == nil || *v != "Roof A" {
		t.Errorf("name = %v, want trimmed Roof A", v)
	}
	if v := r.Get("watershed"); v != nil {
		t.Errorf("watershed = %q, want nil for blank cell", *v)
	}
}

func TestReadAllStripsBOM(t *testing.T) {
	rows := readAll(t, "\uFEFFName in BES Reports\nRoof A\n")
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if v := rows[0].Get("name"); v == nil || *v != "Roof A" {
		t.Errorf("BOM header not normalized: %v", rows[0].Fields)
	}
}

func TestReadAllOmitsDroppedColumns(t *testing.T) {
	rows := readAll(t, "Name in BES Reports,Address\nRoof A,123 Main St\n")
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if _, present := rows[0].Fields["address"]; present {
		t.Errorf("dropped column present in row: %v", rows[0].Fields)
	}
	if len(rows[0].Fields) != 1 {
		t.Errorf("fields = %v, want only name", rows[0].Fields)
	}
}

func TestReadAllCollidingDerivedNamesLastWins(t *testing.T) {
	// Two unmapped headers deriving to the same field name: the later
	// column silently overwrites the earlier one.
	rows := readAll(t, "Extra Notes,extra notes\nfirst,second\n")
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if v := rows[0].Get("extra_notes"); v == nil || *v != "second" {
		t.Errorf("extra_notes = %v, want second (last column wins)", v)
	}
}

func TestReadAllAbortsOnInvalidHeader(t *testing.T) {
	_, err := ReadAll(context.Background(), io.NopCloser(strings.NewReader("123 Column\nvalue\n")))
	if err == nil {
		t.Fatalf("expected error for invalid derived header")
	}
}

func TestReadAllShortRecordYieldsNulls(t *testing.T) {
	rows := readAll(t, "Name in BES Reports,Watershed\nRoof A\n")
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if v := rows[0].Get("watershed"); v != nil {
		t.Errorf("missing trailing cell should be nil, got %q", *v)
	}
}

func TestStreamRowsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *Row)
	err := StreamRows(ctx, io.NopCloser(strings.NewReader("Name in BES Reports\nRoof A\n")), out)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRowDescribe(t *testing.T) {
	v := "Roof A"
	r := &Row{Line: 3, Fields: map[string]*string{"name": &v, "watershed": nil}}
	got := r.Describe("name", "watershed")
	want := `line=3 name="Roof A" watershed=<null>`
	if got != want {
		t.Errorf("Describe = %q, want %q", got, want)
	}
}
