package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"ecoroofs/internal/fields"
	"ecoroofs/internal/importer"
	"ecoroofs/internal/parser/csv"
)

// probe reports what an import of the given file would see, without touching
// any store: the header -> field mapping and the distinct categorical values
// each lookup table would receive.
func main() {
	var file string
	flag.StringVar(&file, "file", "", "survey CSV path (required)")
	flag.Parse()

	if file == "" {
		log.Fatalf("missing required -file")
	}

	f, err := os.Open(file)
	if err != nil {
		log.Fatalf("open %s: %v", file, err)
	}

	rows, err := csv.ReadAll(context.Background(), f)
	if err != nil {
		log.Fatalf("read %s: %v", file, err)
	}

	fmt.Printf("rows: %d\n\n", len(rows))

	printHeaderMapping(file)

	for _, field := range []string{"building_use", "watershed"} {
		printDistinct(rows, field)
	}
}

// printHeaderMapping re-reads just the header row and shows how each raw
// header resolves.
func printHeaderMapping(file string) {
	f, err := os.Open(file)
	if err != nil {
		log.Fatalf("open %s: %v", file, err)
	}
	defer f.Close()

	headers, err := csv.RawHeader(f)
	if err != nil {
		log.Fatalf("read header: %v", err)
	}

	fmt.Println("header mapping:")
	for _, h := range headers {
		name, known, err := fields.Normalize(h)
		switch {
		case err != nil:
			fmt.Printf("    %-30q -> ERROR: %v\n", h, err)
		case name == fields.Drop:
			fmt.Printf("    %-30q -> (dropped)\n", h)
		case known:
			fmt.Printf("    %-30q -> %s\n", h, name)
		default:
			fmt.Printf("    %-30q -> %s (derived)\n", h, name)
		}
	}
	fmt.Println()
}

func printDistinct(rows []*csv.Row, field string) {
	set := map[string]struct{}{}
	for _, r := range rows {
		if v := r.Get(field); v != nil {
			if n := importer.NormalizeName(*v); n != "" {
				set[n] = struct{}{}
			}
		}
	}
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)

	fmt.Printf("%s: %d distinct values\n", field, len(values))
	for _, v := range values {
		fmt.Printf("    %q\n", v)
	}
	fmt.Println()
}
