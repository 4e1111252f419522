package importer

import (
	"context"
	"fmt"
	"sort"

	"ecoroofs/internal/metrics"
	"ecoroofs/internal/parser/csv"
)

// internColumn extracts the distinct non-null values of sourceField across
// all rows, normalizes them, and inserts one record per value into table.
// It returns the sorted distinct values so a dry run can resolve categorical
// lookups against them without having written anything.
//
// There is no merge with pre-existing records: the step is designed to run
// against an empty table, and re-running against a populated one surfaces
// the store's uniqueness violation. The sorted value list is reported before
// inserting so the operator can review what a run found.
func (imp *Importer) internColumn(ctx context.Context, rows []*csv.Row, sourceField, table string) ([]string, error) {
	imp.printf("Extracting %s values...", sourceField)

	set := make(map[string]struct{})
	for _, row := range rows {
		v := row.Get(sourceField)
		if v == nil {
			continue
		}
		n := NormalizeName(*v)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}

	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)

	imp.printf("Found %d distinct, non-empty %s values:", len(values), sourceField)
	for _, v := range values {
		imp.printf("    %q", v)
	}

	imp.printf("Inserting %d %s records...", len(values), table)
	if !imp.DryRun {
		insert := make([][]any, len(values))
		for i, v := range values {
			insert[i] = []any{v}
		}
		if _, err := imp.Repo.BulkInsert(ctx, table, []string{"name"}, insert); err != nil {
			return nil, fmt.Errorf("intern %s into %s: %w", sourceField, table, err)
		}
	}
	metrics.RecordRow(imp.job(), "interned", int64(len(values)))

	return values, nil
}
