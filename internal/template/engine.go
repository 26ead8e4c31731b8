package template

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
)

// #region errors
// ErrNoTemplate is returned when an intent has no canned answer.
var ErrNoTemplate = errors.New("no template for intent")

// CompositionError reports a template whose required slots could not be
// filled from either the extracted entities or the knowledge base.
type CompositionError struct {
	Intent string
	Slots  []string // sorted
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("template %s: required slots unresolved: %s", e.Intent, strings.Join(e.Slots, ", "))
}

// #endregion errors

// #region engine
// placeholderRe matches {SLOT_NAME} markers inside template text.
var placeholderRe = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// Engine renders canned answers by filling template placeholders. Values
// come from the extracted entities first, then from the knowledge base,
// then fall back to "-".
type Engine struct {
	kb *kb.Snapshot
}

// NewEngine creates an Engine over a knowledge base snapshot.
func NewEngine(snapshot *kb.Snapshot) *Engine {
	return &Engine{kb: snapshot}
}

// #endregion engine

// #region render
// Render fills the template for an intent. Placeholders are resolved in
// order of appearance so equal inputs always produce identical output.
// source fills the {SOURCE} placeholder when the caller has retrieval
// context; empty falls back to a generic attribution.
//
// Returns ErrNoTemplate when the intent has no template, and a
// *CompositionError when a required slot stays unresolved.
func (e *Engine) Render(intent string, slots map[string]string, source string) (string, error) {
	tmpl := e.kb.Template(intent)
	if tmpl == nil {
		return "", fmt.Errorf("%w: %s", ErrNoTemplate, intent)
	}

	resolved := make(map[string]string)
	resolve := func(name string) string {
		if v, ok := resolved[name]; ok {
			return v
		}
		v := strings.TrimSpace(slots[name])
		if v == "" {
			v = e.kbValue(intent, name, slots)
		}
		if v == "" {
			v = "-"
		}
		resolved[name] = v
		return v
	}

	var b strings.Builder
	last := 0
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(tmpl.Text, -1) {
		b.WriteString(tmpl.Text[last:m[0]])
		name := tmpl.Text[m[2]:m[3]]
		if name == "SOURCE" {
			if source != "" {
				b.WriteString(source)
			} else {
				b.WriteString("Referensi KB")
			}
		} else {
			b.WriteString(resolve(name))
		}
		last = m[1]
	}
	b.WriteString(tmpl.Text[last:])

	var unmet []string
	for _, slot := range tmpl.RequiredSlots {
		if v := resolve(slot); v == "-" {
			unmet = append(unmet, slot)
		}
	}
	if len(unmet) > 0 {
		sort.Strings(unmet)
		return "", &CompositionError{Intent: intent, Slots: unmet}
	}

	return b.String(), nil
}

// #endregion render

// #region kb-lookup
// kbValue resolves a placeholder from the knowledge base using the intent
// to pick the lookup path. Returns "" when nothing applies.
func (e *Engine) kbValue(intent, placeholder string, slots map[string]string) string {
	switch intent {
	case "batas_sks":
		if placeholder != "SKS" {
			return ""
		}
		prodi := slotOr(slots, "PRODI", "Teknik Informatika")
		semester := slotOr(slots, "SEMESTER", "1")
		ipk, _ := strconv.ParseFloat(strings.TrimSpace(slots["IPK"]), 64)
		if r := e.kb.BatasSKS(semester, ipk, prodi); r != nil {
			return strconv.Itoa(r.SKSMaksimal)
		}

	case "dosen_pengampu":
		dosen := e.kb.DosenByMatkul(slots["MATA_KULIAH"])
		if len(dosen) == 0 {
			return ""
		}
		d := dosen[0]
		switch placeholder {
		case "DOSEN":
			return d.NamaLengkap
		case "SEMESTER":
			return strconv.Itoa(d.Semester)
		case "PRODI":
			return d.Prodi
		}

	case "info_dosen_umum":
		d := e.kb.FindDosen(slots["DOSEN"])
		if d == nil {
			return ""
		}
		switch placeholder {
		case "NAMA_LENGKAP":
			return d.NamaLengkap
		case "NAMA_PANGGILAN":
			return d.Panggilan
		case "PRODI":
			return d.Prodi
		case "MATA_KULIAH":
			return d.Matakuliah
		case "SEMESTER":
			return strconv.Itoa(d.Semester)
		}

	case "kontak_dosen", "nidn_dosen":
		d := e.kb.FindDosen(slots["DOSEN"])
		if d == nil {
			return ""
		}
		switch placeholder {
		case "NIDN":
			return d.NIDN
		case "PHONE":
			return d.NoHP
		case "NAMA_LENGKAP":
			return d.NamaLengkap
		}

	case "info_matakuliah", "sks_matkul", "prasyarat_matkul":
		mk := e.kb.FindMataKuliah(slots["MATA_KULIAH"])
		if mk == nil {
			return ""
		}
		switch placeholder {
		case "KODE_MATAKULIAH":
			return mk.Kode
		case "PRODI":
			return mk.Prodi
		case "SEMESTER":
			return strconv.Itoa(mk.Semester)
		case "SKS":
			return strconv.Itoa(mk.SKS)
		case "PRASYARAT":
			return mk.Prasyarat
		}

	case "jadwal_kuliah", "jadwal_hari", "jadwal_ruangan":
		jadwal := e.kb.JadwalByMatkul(slots["MATA_KULIAH"])
		if len(jadwal) == 0 {
			return ""
		}
		j := jadwal[0]
		switch placeholder {
		case "HARI":
			return j.Hari
		case "WAKTU":
			return j.Jam
		case "RUANGAN":
			return j.Ruang
		case "KELAS":
			return j.Kelas
		}

	case "jadwal_semester":
		k := e.kb.JadwalSemester(slotOr(slots, "SEMESTER", "semester 1"))
		if k == nil {
			return ""
		}
		switch placeholder {
		case "TANGGAL_MULAI":
			return k.Mulai
		case "TANGGAL_SELESAI":
			return k.Selesai
		case "KEGIATAN":
			return k.Kegiatan
		}

	case "jadwal_prodi":
		k := e.kb.KalenderAkademik(slotOr(slots, "PRODI", "Teknik Informatika"), slots["SEMESTER"])
		if k == nil {
			return ""
		}
		switch placeholder {
		case "TANGGAL_MULAI":
			return k.Mulai
		case "TANGGAL_SELESAI":
			return k.Selesai
		case "KEGIATAN":
			return k.Kegiatan
		}

	case "syarat_skripsi":
		syarat := e.kb.SyaratSkripsi(slotOr(slots, "PRODI", "Teknik Informatika"))
		if len(syarat) == 0 {
			return ""
		}
		sk := syarat[0]
		switch placeholder {
		case "IPK":
			return strconv.FormatFloat(sk.IPKMinimum, 'g', -1, 64)
		case "TOTAL_SKS":
			return strconv.Itoa(sk.SKSMinimum)
		case "DOKUMEN":
			return sk.Dokumen
		case "PROSEDUR":
			return sk.Prosedur
		}
	}
	return ""
}

func slotOr(slots map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(slots[key]); v != "" {
		return v
	}
	return fallback
}

// #endregion kb-lookup
