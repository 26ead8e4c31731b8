package kb

import "strings"

// Fuzzy cutoffs for key resolution. Day names tolerate more noise because
// the candidate set is tiny.
const (
	defaultMatchCutoff = 0.80
	dayCutoffDelta     = 0.05
)

// #region dosen
// FindDosen resolves a lecturer by name, tolerating honorifics, aliases and
// small typos. Returns nil when nothing matches.
func (s *Snapshot) FindDosen(name string) *Dosen {
	key := strings.ToLower(strings.TrimSpace(CleanPersonName(name)))
	if key == "" {
		return nil
	}
	if match, ok := BestMatch(key, s.dosenKeys, s.matchCutoff); ok {
		key = match
	}
	return s.dosen[key]
}

// DosenByMatkul returns the lecturers teaching a course, deduplicated,
// in knowledge base order.
func (s *Snapshot) DosenByMatkul(mataKuliah string) []*Dosen {
	key := strings.ToLower(strings.TrimSpace(mataKuliah))
	if match, ok := BestMatch(key, s.dosenMatkulKeys, s.matchCutoff); ok {
		key = match
	}

	seen := make(map[*Dosen]bool)
	var result []*Dosen
	for _, d := range s.dosenByMatkul[key] {
		if seen[d] {
			continue
		}
		seen[d] = true
		result = append(result, d)
	}
	return result
}

// #endregion dosen

// #region mata-kuliah
// FindMataKuliah resolves a course by canonical name or alias.
func (s *Snapshot) FindMataKuliah(name string) *MataKuliah {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	if match, ok := BestMatch(key, s.matkulKeys, s.matchCutoff); ok {
		key = match
	}
	return s.mataKuliah[key]
}

// MatkulByProdi returns every course of a study program.
func (s *Snapshot) MatkulByProdi(prodi string) []*MataKuliah {
	return s.matkulByProdi[NormalizeProdi(prodi)]
}

// #endregion mata-kuliah

// #region jadwal
// JadwalByMatkul returns the scheduled meetings of a course.
func (s *Snapshot) JadwalByMatkul(mataKuliah string) []*Jadwal {
	key := strings.ToLower(strings.TrimSpace(mataKuliah))
	if match, ok := BestMatch(key, s.jadwalMatkulKeys, s.matchCutoff); ok {
		key = match
	}
	return s.jadwalByMatkul[key]
}

// JadwalByHari returns every class meeting on a given day.
func (s *Snapshot) JadwalByHari(hari string) []*Jadwal {
	key := strings.ToLower(strings.TrimSpace(hari))
	if match, ok := BestMatch(key, s.hariKeys, s.dayCutoff); ok {
		key = match
	}
	return s.jadwalByHari[key]
}

// #endregion jadwal

// #region regulasi
// BatasSKS returns the credit-limit row matching a semester and GPA range,
// or nil when no regulation applies.
func (s *Snapshot) BatasSKS(semester string, ipk float64, prodi string) *RegulasiSKS {
	for _, r := range s.regulasiByProdi[NormalizeProdi(prodi)] {
		if r.Semester == semester && r.IPKMinimum <= ipk && ipk <= r.IPKMaksimum {
			return r
		}
	}
	return nil
}

// #endregion regulasi

// #region skripsi
// SyaratSkripsi returns the thesis requirements for a study program.
func (s *Snapshot) SyaratSkripsi(prodi string) []*Skripsi {
	want := NormalizeProdi(prodi)
	var result []*Skripsi
	for _, sk := range s.skripsi {
		if strings.ToLower(strings.TrimSpace(sk.Prodi)) == want {
			result = append(result, sk)
		}
	}
	return result
}

// #endregion skripsi

// #region kalender
// KalenderAkademik returns the first calendar event matching a study program
// and, when given, a semester label.
func (s *Snapshot) KalenderAkademik(prodi, semester string) *Kalender {
	want := NormalizeProdi(prodi)
	sem := strings.ToLower(strings.TrimSpace(semester))
	for _, k := range s.kalender {
		if !strings.Contains(strings.ToLower(k.Keterangan), want) {
			continue
		}
		if sem != "" && !strings.Contains(strings.ToLower(k.Semester), sem) {
			continue
		}
		return k
	}
	return nil
}

// JadwalSemester returns the first calendar event whose semester label
// contains the given term.
func (s *Snapshot) JadwalSemester(semester string) *Kalender {
	sem := strings.ToLower(strings.TrimSpace(semester))
	if sem == "" {
		return nil
	}
	for _, k := range s.kalender {
		if strings.Contains(strings.ToLower(k.Semester), sem) {
			return k
		}
	}
	return nil
}

// #endregion kalender

// #region template
// Template returns the canned answer for an intent, or nil when the intent
// has no template.
func (s *Snapshot) Template(intent string) *Template {
	return s.templates[intent]
}

// #endregion template
