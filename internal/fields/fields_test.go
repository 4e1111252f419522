package fields

import "testing"

func TestNormalizeKnownHeaders(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Name in BES Reports", "name"},
		{"Project", "project"},
		{"Watershed", "watershed"},
		{"Building Use", "building_use"},
		{"Size (sf)", "square_footage"},
		{"Latitude(Non Obscured)", "latitude"},
		{"Longitude (Non Obscured)", "longitude"},
		{"Latitude", "latitude_obscured"},
		{"Confidence", "confidence_obscured"},
		{"  Year  ", "year_built"}, // trimmed before lookup
	}
	for _, c := range cases {
		got, known, err := Normalize(c.header)
		if err != nil {
			t.Errorf("Normalize(%q): %v", c.header, err)
			continue
		}
		if !known {
			t.Errorf("Normalize(%q): expected known header", c.header)
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestNormalizeDroppedHeaders(t *testing.T) {
	for _, h := range []string{"Address", "Address (Obscured)", "Cost", "Contractor"} {
		got, known, err := Normalize(h)
		if err != nil {
			t.Errorf("Normalize(%q): %v", h, err)
			continue
		}
		if !known || got != Drop {
			t.Errorf("Normalize(%q) = (%q, %v), want dropped", h, got, known)
		}
	}
}

func TestNormalizeDerivesUnknownHeaders(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Roof Area (m2)", "roof_area_m2"},
		{"  Extra   Notes ", "extra_notes"},
		{"already_clean", "already_clean"},
	}
	for _, c := range cases {
		got, known, err := Normalize(c.header)
		if err != nil {
			t.Errorf("Normalize(%q): %v", c.header, err)
			continue
		}
		if known {
			t.Errorf("Normalize(%q): expected derived, not known", c.header)
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestNormalizeRejectsInvalidDerivedNames(t *testing.T) {
	for _, h := range []string{"123 Column", "%%%", ""} {
		if _, _, err := Normalize(h); err == nil {
			t.Errorf("Normalize(%q): expected error", h)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	for _, s := range []string{"Roof Area (m2)", "MIXED case", "a_b_c", "  spaces  here "} {
		once := Clean(s)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q -> %q", s, once, twice)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	valid := []string{"name", "_private", "a1", "building_use"}
	for _, s := range valid {
		if !IsIdentifier(s) {
			t.Errorf("IsIdentifier(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "1abc", "has space", "da-sh"}
	for _, s := range invalid {
		if IsIdentifier(s) {
			t.Errorf("IsIdentifier(%q) = true, want false", s)
		}
	}
}
