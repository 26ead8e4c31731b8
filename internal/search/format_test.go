package search

import (
	"strings"
	"testing"
)

// #region build-answer-tests
func TestBuildAnswer_WithSource(t *testing.T) {
	doc := RetrievedDoc{
		ScoredDoc: ScoredDoc{
			DocID:   "kb_007",
			Snippet: "Pengajuan cuti diajukan ke bagian akademik sebelum masa KRS.",
			Source:  "SK Dekan 12/2025",
		},
		FusedScore: 0.91,
	}

	got := BuildAnswer(doc)
	if !strings.HasPrefix(got, "Berdasarkan informasi yang saya temukan: Pengajuan cuti") {
		t.Errorf("unexpected answer prefix: %q", got)
	}
	if !strings.HasSuffix(got, "Sumber: SK Dekan 12/2025") {
		t.Errorf("expected source attribution, got %q", got)
	}
}

func TestBuildAnswer_DefaultSource(t *testing.T) {
	doc := RetrievedDoc{
		ScoredDoc: ScoredDoc{DocID: "kb_001", Snippet: "Isi KRS lewat portal."},
	}

	got := BuildAnswer(doc)
	if !strings.HasSuffix(got, "Sumber: Referensi KB") {
		t.Errorf("expected default source, got %q", got)
	}
}

func TestBuildAnswer_Deterministic(t *testing.T) {
	doc := RetrievedDoc{
		ScoredDoc:  ScoredDoc{DocID: "kb_001", Snippet: "Isi KRS lewat portal.", Source: "Panduan"},
		FusedScore: 0.77,
	}
	first := BuildAnswer(doc)
	for i := 0; i < 5; i++ {
		if BuildAnswer(doc) != first {
			t.Fatal("expected identical answers for identical input")
		}
	}
}

// #endregion build-answer-tests

// #region format-results-tests
func TestFormatResults(t *testing.T) {
	if got := FormatResults(nil); got != "" {
		t.Errorf("expected empty string for no docs, got %q", got)
	}

	docs := []RetrievedDoc{
		{ScoredDoc: ScoredDoc{DocID: "kb_001", Snippet: "first", Source: "A"}, FusedScore: 0.9},
		{ScoredDoc: ScoredDoc{DocID: "kb_002", Snippet: "second"}, FusedScore: 0.5},
	}
	got := FormatResults(docs)
	if !strings.Contains(got, "1. kb_001") || !strings.Contains(got, "2. kb_002") {
		t.Errorf("expected numbered entries, got %q", got)
	}
	if !strings.Contains(got, "Sumber: A") {
		t.Errorf("expected source line for first doc, got %q", got)
	}
}

// #endregion format-results-tests
