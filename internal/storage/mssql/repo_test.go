package mssql

import (
	"database/sql"
	"strings"
	"testing"
)

func TestBuildInsertSQL(t *testing.T) {
	q, args := buildInsertSQL("building_uses", []string{"name"}, [][]any{
		{"Commercial"}, {"Industrial"},
	})

	want := `INSERT INTO [building_uses] ([name]) VALUES (@p1), (@p2);`
	if q != want {
		t.Errorf("sql = %q, want %q", q, want)
	}

	if len(args) != 2 {
		t.Fatalf("len(args) = %d, want 2", len(args))
	}
	na, ok := args[1].(sql.NamedArg)
	if !ok {
		t.Fatalf("args[1] is %T, want sql.NamedArg", args[1])
	}
	if na.Name != "p2" || na.Value != "Industrial" {
		t.Errorf("args[1] = %+v", na)
	}
}

func TestBuildInsertSQLMultiColumnNumbering(t *testing.T) {
	q, args := buildInsertSQL("locations", []string{"name", "point"}, [][]any{
		{"Roof A", "POINT(-122.6 45.5)"},
		{"Roof B", "POINT(-122.7 45.6)"},
	})
	if !strings.Contains(q, "(@p1, @p2), (@p3, @p4)") {
		t.Errorf("placeholder numbering wrong: %q", q)
	}
	if len(args) != 4 {
		t.Errorf("len(args) = %d, want 4", len(args))
	}
}

func TestMsIdentQuoting(t *testing.T) {
	if got := msIdent(`na]me`); got != `[na]]me]` {
		t.Errorf("msIdent = %q", got)
	}
}

func TestSchemaSQLGuards(t *testing.T) {
	for _, q := range schemaSQL {
		if !strings.Contains(q, "IF OBJECT_ID(") {
			t.Errorf("DDL must be guarded for reruns: %q", q[:40])
		}
	}
}
