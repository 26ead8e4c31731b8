package kb

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// #region ratio
// Ratio returns a similarity score in [0, 1] between two strings, computed
// from edit distance over the longer rune length.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// #endregion ratio

// #region best-match
// BestMatch returns the choice most similar to query, or false when nothing
// reaches the cutoff. Choices are scanned in order and ties keep the first
// hit, so a sorted choice list makes the answer stable.
func BestMatch(query string, choices []string, cutoff float64) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || len(choices) == 0 {
		return "", false
	}

	best := ""
	bestScore := 0.0
	for _, choice := range choices {
		score := Ratio(q, strings.ToLower(choice))
		if score > bestScore {
			best = choice
			bestScore = score
		}
	}
	if bestScore >= cutoff {
		return best, true
	}
	return "", false
}

// #endregion best-match

// #region person-name
var honorifics = map[string]bool{
	"dosen": true,
	"pak":   true,
	"bapak": true,
	"bu":    true,
	"ibu":   true,
}

// CleanPersonName strips honorific words so "pak hendry" and "hendry"
// resolve to the same lecturer.
func CleanPersonName(name string) string {
	words := strings.Fields(name)
	kept := words[:0]
	for _, w := range words {
		if honorifics[strings.ToLower(w)] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// #endregion person-name

// #region prodi
// NormalizeProdi maps study program abbreviations to their canonical names.
// An empty value defaults to teknik informatika.
func NormalizeProdi(prodi string) string {
	p := strings.ToLower(strings.TrimSpace(prodi))
	switch p {
	case "", "ti", "it":
		return "teknik informatika"
	case "si", "sistem informasi":
		return "sistem informasi"
	}
	return p
}

// #endregion prodi
