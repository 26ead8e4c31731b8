package search

import (
	"fmt"
	"strings"
)

// defaultSource labels answers whose document carries no origin metadata.
const defaultSource = "Referensi KB"

// #region build-answer
// BuildAnswer turns the winning hit into a user-facing reply with a source
// attribution line.
func BuildAnswer(doc RetrievedDoc) string {
	var b strings.Builder
	b.WriteString("Berdasarkan informasi yang saya temukan: ")
	b.WriteString(doc.Snippet)
	b.WriteString("\n\nSumber: ")
	if doc.Source != "" {
		b.WriteString(doc.Source)
	} else {
		b.WriteString(defaultSource)
	}
	return b.String()
}

// #endregion build-answer

// #region format-results
// FormatResults renders fused hits as a numbered list for diagnostics.
func FormatResults(docs []RetrievedDoc) string {
	if len(docs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "%d. %s (fused=%.4f sparse=%.4f dense=%.4f)\n", i+1, d.DocID, d.FusedScore, d.SparseScore, d.DenseScore)
		if d.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", d.Snippet)
		}
		if d.Source != "" {
			fmt.Fprintf(&b, "   Sumber: %s\n", d.Source)
		}
	}
	return b.String()
}

// #endregion format-results
