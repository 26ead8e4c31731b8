package kb

import (
	"sort"
	"strings"
)

// #region snapshot-struct
// Snapshot is an immutable in-memory view of the knowledge base. It is
// built once and then shared read-only across request goroutines, so no
// locking is needed.
type Snapshot struct {
	dosen      map[string]*Dosen
	mataKuliah map[string]*MataKuliah
	jadwal     []*Jadwal
	kalender   []*Kalender
	skripsi    []*Skripsi
	regulasi   []*RegulasiSKS
	templates  map[string]*Template

	dosenByMatkul   map[string][]*Dosen
	matkulByProdi   map[string][]*MataKuliah
	jadwalByHari    map[string][]*Jadwal
	jadwalByMatkul  map[string][]*Jadwal
	regulasiByProdi map[string][]*RegulasiSKS

	// fuzzy lookups scan these instead of map keys so equal inputs
	// always match the same way
	dosenKeys       []string
	matkulKeys      []string
	dosenMatkulKeys []string
	jadwalMatkulKeys []string
	hariKeys        []string

	matchCutoff float64
	dayCutoff   float64
}

// SnapshotStats summarizes what a snapshot holds.
type SnapshotStats struct {
	Dosen       int `json:"dosen"`
	MataKuliah  int `json:"mata_kuliah"`
	Jadwal      int `json:"jadwal"`
	Kalender    int `json:"kalender"`
	Skripsi     int `json:"skripsi"`
	RegulasiSKS int `json:"regulasi_sks"`
	Templates   int `json:"templates"`
}

// #endregion snapshot-struct

// #region constructor
// NewSnapshot builds a snapshot directly from import data, deriving alias
// rows from the inline alias maps. Used by tests and replay fixtures; the
// server path goes through Store.LoadSnapshot.
func NewSnapshot(data ImportData) *Snapshot {
	var aliases []aliasRow

	for _, key := range sortedKeys(data.Dosen) {
		d := data.Dosen[key]
		if d.NamaLengkap == "" {
			continue
		}
		for _, alias := range d.Alias["nama_lengkap"] {
			aliases = append(aliases, aliasRow{strings.ToLower(alias), "dosen", strings.ToLower(d.NamaLengkap)})
		}
	}
	for _, key := range sortedKeys(data.MataKuliah) {
		mk := data.MataKuliah[key]
		for _, alias := range mk.Alias["mata_kuliah"] {
			aliases = append(aliases, aliasRow{strings.ToLower(alias), "mata_kuliah", strings.ToLower(key)})
		}
	}
	for _, j := range data.Jadwal {
		for _, alias := range j.Alias["mata_kuliah"] {
			aliases = append(aliases, aliasRow{strings.ToLower(alias), "mata_kuliah", strings.ToLower(j.MataKuliah)})
		}
	}

	sort.Slice(aliases, func(i, j int) bool {
		if aliases[i].Alias != aliases[j].Alias {
			return aliases[i].Alias < aliases[j].Alias
		}
		return aliases[i].Category < aliases[j].Category
	})
	return newSnapshotWithAliases(data, aliases)
}

func newSnapshotWithAliases(data ImportData, aliases []aliasRow) *Snapshot {
	s := &Snapshot{
		dosen:           make(map[string]*Dosen),
		mataKuliah:      make(map[string]*MataKuliah),
		templates:       make(map[string]*Template),
		dosenByMatkul:   make(map[string][]*Dosen),
		matkulByProdi:   make(map[string][]*MataKuliah),
		jadwalByHari:    make(map[string][]*Jadwal),
		jadwalByMatkul:  make(map[string][]*Jadwal),
		regulasiByProdi: make(map[string][]*RegulasiSKS),
		matchCutoff:     defaultMatchCutoff,
		dayCutoff:       defaultMatchCutoff - dayCutoffDelta,
	}

	for _, key := range sortedKeys(data.Dosen) {
		d := data.Dosen[key]
		if d.NamaLengkap == "" {
			continue
		}
		mainKey := strings.ToLower(d.NamaLengkap)
		rec := d
		rec.Alias = nil
		s.dosen[mainKey] = &rec
		if mk := strings.ToLower(rec.Matakuliah); mk != "" && mk != "-" {
			s.dosenByMatkul[mk] = append(s.dosenByMatkul[mk], &rec)
		}
	}

	for _, key := range sortedKeys(data.MataKuliah) {
		mk := data.MataKuliah[key]
		mainKey := strings.ToLower(key)
		rec := mk
		rec.Alias = nil
		s.mataKuliah[mainKey] = &rec
		if prodi := strings.ToLower(rec.Prodi); prodi != "" && prodi != "-" {
			s.matkulByProdi[prodi] = append(s.matkulByProdi[prodi], &rec)
		}
	}

	for i := range data.Jadwal {
		rec := data.Jadwal[i]
		rec.Alias = nil
		s.jadwal = append(s.jadwal, &rec)
		if hari := strings.ToLower(rec.Hari); hari != "" && hari != "-" {
			s.jadwalByHari[hari] = append(s.jadwalByHari[hari], &rec)
		}
		if mk := strings.ToLower(rec.MataKuliah); mk != "" {
			s.jadwalByMatkul[mk] = append(s.jadwalByMatkul[mk], &rec)
		}
	}

	for i := range data.Kalender {
		s.kalender = append(s.kalender, &data.Kalender[i])
	}
	for i := range data.Skripsi {
		s.skripsi = append(s.skripsi, &data.Skripsi[i])
	}
	for i := range data.RegulasiSKS {
		rec := &data.RegulasiSKS[i]
		s.regulasi = append(s.regulasi, rec)
		if prodi := strings.ToLower(rec.Prodi); prodi != "" {
			s.regulasiByProdi[prodi] = append(s.regulasiByProdi[prodi], rec)
		}
	}
	for i := range data.Templates {
		s.templates[data.Templates[i].Intent] = &data.Templates[i]
	}

	for _, a := range aliases {
		switch a.Category {
		case "dosen":
			if target, ok := s.dosen[a.TargetKey]; ok {
				if _, taken := s.dosen[a.Alias]; !taken {
					s.dosen[a.Alias] = target
				}
			}
		case "mata_kuliah":
			if target, ok := s.mataKuliah[a.TargetKey]; ok {
				if _, taken := s.mataKuliah[a.Alias]; !taken {
					s.mataKuliah[a.Alias] = target
				}
			}
			if jadwal, ok := s.jadwalByMatkul[a.TargetKey]; ok {
				if _, taken := s.jadwalByMatkul[a.Alias]; !taken {
					s.jadwalByMatkul[a.Alias] = jadwal
				}
			}
		}
	}

	s.dosenKeys = sortedMapKeys(s.dosen)
	s.matkulKeys = sortedMapKeys(s.mataKuliah)
	s.dosenMatkulKeys = sortedMapKeys(s.dosenByMatkul)
	s.jadwalMatkulKeys = sortedMapKeys(s.jadwalByMatkul)
	s.hariKeys = sortedMapKeys(s.jadwalByHari)

	return s
}

// SetAliasCutoff overrides the fuzzy-match cutoff for key resolution. The
// day-name cutoff follows at a fixed offset below it. Call before the
// snapshot is shared across goroutines.
func (s *Snapshot) SetAliasCutoff(cutoff float64) {
	if cutoff <= 0 || cutoff > 1 {
		return
	}
	s.matchCutoff = cutoff
	s.dayCutoff = cutoff - dayCutoffDelta
}

func sortedMapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion constructor

// #region stats
// Stats reports how many records the snapshot holds per category.
func (s *Snapshot) Stats() SnapshotStats {
	uniqueDosen := make(map[*Dosen]bool)
	for _, d := range s.dosen {
		uniqueDosen[d] = true
	}
	uniqueMatkul := make(map[*MataKuliah]bool)
	for _, mk := range s.mataKuliah {
		uniqueMatkul[mk] = true
	}
	return SnapshotStats{
		Dosen:       len(uniqueDosen),
		MataKuliah:  len(uniqueMatkul),
		Jadwal:      len(s.jadwal),
		Kalender:    len(s.kalender),
		Skripsi:     len(s.skripsi),
		RegulasiSKS: len(s.regulasi),
		Templates:   len(s.templates),
	}
}

// #endregion stats
