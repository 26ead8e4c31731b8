package kb

import "testing"

// #region ratio-tests
func TestRatio(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "basis data", "basis data", 1.0, 1.0},
		{"both empty", "", "", 1.0, 1.0},
		{"one typo", "basis data", "basis datta", 0.85, 0.99},
		{"unrelated", "basis data", "kalkulus", 0.0, 0.4},
		{"one empty", "abc", "", 0.0, 0.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Ratio(tc.a, tc.b)
			if got < tc.min || got > tc.max {
				t.Errorf("Ratio(%q, %q) = %f, want in [%f, %f]", tc.a, tc.b, got, tc.min, tc.max)
			}
		})
	}
}

// #endregion ratio-tests

// #region best-match-tests
func TestBestMatch_Exact(t *testing.T) {
	choices := []string{"basis data", "machine learning", "senin"}
	got, ok := BestMatch("Basis Data", choices, 0.8)
	if !ok || got != "basis data" {
		t.Errorf("expected exact match 'basis data', got %q ok=%v", got, ok)
	}
}

func TestBestMatch_Typo(t *testing.T) {
	choices := []string{"basis data", "machine learning"}
	got, ok := BestMatch("basis datta", choices, 0.8)
	if !ok || got != "basis data" {
		t.Errorf("expected fuzzy match 'basis data', got %q ok=%v", got, ok)
	}
}

func TestBestMatch_BelowCutoff(t *testing.T) {
	choices := []string{"basis data", "machine learning"}
	if got, ok := BestMatch("kalkulus", choices, 0.8); ok {
		t.Errorf("expected no match below cutoff, got %q", got)
	}
}

func TestBestMatch_EmptyInputs(t *testing.T) {
	if _, ok := BestMatch("", []string{"a"}, 0.5); ok {
		t.Error("expected no match for empty query")
	}
	if _, ok := BestMatch("a", nil, 0.5); ok {
		t.Error("expected no match for empty choices")
	}
}

func TestBestMatch_TieKeepsFirst(t *testing.T) {
	// both candidates are one edit away; the first listed wins
	choices := []string{"abcd", "abce"}
	got, ok := BestMatch("abcf", choices, 0.7)
	if !ok || got != "abcd" {
		t.Errorf("expected tie resolved to first choice 'abcd', got %q ok=%v", got, ok)
	}
}

// #endregion best-match-tests

// #region person-name-tests
func TestCleanPersonName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pak hendry fonda", "hendry fonda"},
		{"Dosen Susi", "Susi"},
		{"ibu susi handayani", "susi handayani"},
		{"Bapak Hendry", "Hendry"},
		{"hendry fonda", "hendry fonda"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CleanPersonName(tc.in); got != tc.want {
			t.Errorf("CleanPersonName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// #endregion person-name-tests

// #region prodi-tests
func TestNormalizeProdi(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "teknik informatika"},
		{"ti", "teknik informatika"},
		{"IT", "teknik informatika"},
		{"si", "sistem informasi"},
		{"Sistem Informasi", "sistem informasi"},
		{"Teknik Informatika", "teknik informatika"},
		{"manajemen", "manajemen"},
	}
	for _, tc := range cases {
		if got := NormalizeProdi(tc.in); got != tc.want {
			t.Errorf("NormalizeProdi(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// #endregion prodi-tests
