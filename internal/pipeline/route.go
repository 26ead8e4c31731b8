package pipeline

// #region imports
import (
	"fmt"
	"strings"
)

// #endregion

// #region routing-tables

// directIntents answer straight from their templates and carry no KB
// slots; a missing slot on one of these never turns into a clarifying
// question.
var directIntents = map[string]bool{
	"greeting":      true,
	"help":          true,
	"goodbye":       true,
	"clarification": true,
}

// longFormIntents have document-style answers that do not fit a one-line
// template, so they route to retrieval even when classified confidently.
var longFormIntents = map[string]bool{
	"panduan_krs":   true,
	"prosedur_cuti": true,
}

// #endregion

// #region clarify

const defaultClarifyFormat = "Mohon sebutkan %s agar saya dapat menjawab pertanyaan Anda dengan tepat."

// slotLabels maps slot names to the phrasing used in clarifying questions.
var slotLabels = map[string]string{
	"MATA_KULIAH": "nama mata kuliah",
	"DOSEN":       "nama dosen",
	"PRODI":       "program studi",
	"SEMESTER":    "semester yang dimaksud",
	"HARI":        "hari yang dimaksud",
	"IPK":         "IPK Anda",
	"SKS":         "jumlah SKS",
}

func slotLabel(slot string) string {
	if label, ok := slotLabels[slot]; ok {
		return label
	}
	return strings.ReplaceAll(strings.ToLower(slot), "_", " ")
}

// clarifyQuestion builds the question asking the user for the missing
// slots. Slot order is the sorted order reported by the renderer, so the
// wording is stable for a given failure.
func clarifyQuestion(format string, slots []string) string {
	if format == "" {
		format = defaultClarifyFormat
	}
	labels := make([]string, len(slots))
	for i, s := range slots {
		labels[i] = slotLabel(s)
	}
	return fmt.Sprintf(format, strings.Join(labels, " dan "))
}

// #endregion
