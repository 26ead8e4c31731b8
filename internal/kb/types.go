package kb

// #region records
// Dosen is a lecturer record. Alias carries alternate spellings of the
// full name and is only populated on the import path.
type Dosen struct {
	NamaLengkap string              `json:"nama_lengkap"`
	Panggilan   string              `json:"panggilan"`
	NIDN        string              `json:"nidn"`
	NoHP        string              `json:"no_hp"`
	Matakuliah  string              `json:"matakuliah"`
	Semester    int                 `json:"semester"`
	Prodi       string              `json:"prodi"`
	Alias       map[string][]string `json:"alias,omitempty"`
}

// MataKuliah is a course record.
type MataKuliah struct {
	Kode       string              `json:"kode"`
	SKS        int                 `json:"sks"`
	Semester   int                 `json:"semester"`
	Prodi      string              `json:"prodi"`
	Prasyarat  string              `json:"prasyarat"`
	Deskripsi  string              `json:"deskripsi"`
	Kompetensi string              `json:"kompetensi"`
	Alias      map[string][]string `json:"alias,omitempty"`
}

// Jadwal is one scheduled class meeting.
type Jadwal struct {
	MataKuliah string              `json:"mata_kuliah"`
	Kode       string              `json:"kode"`
	SKS        int                 `json:"sks"`
	Hari       string              `json:"hari"`
	Jam        string              `json:"jam"`
	JamMulai   float64             `json:"jam_mulai"`
	JamSelesai float64             `json:"jam_selesai"`
	Ruang      string              `json:"ruang"`
	Kelas      string              `json:"kelas"`
	Semester   int                 `json:"semester"`
	Prodi      string              `json:"prodi"`
	Alias      map[string][]string `json:"alias,omitempty"`
}

// Kalender is one academic calendar event.
type Kalender struct {
	Tahun      string `json:"tahun"`
	Semester   string `json:"semester"`
	Kegiatan   string `json:"kegiatan"`
	Mulai      string `json:"mulai"`
	Selesai    string `json:"selesai"`
	Target     string `json:"target"`
	Keterangan string `json:"keterangan"`
}

// Skripsi holds thesis eligibility requirements for one study program.
type Skripsi struct {
	Prodi           string  `json:"prodi"`
	SKSMinimum      int     `json:"sks_minimum"`
	SemesterMinimum int     `json:"semester_minimum"`
	IPKMinimum      float64 `json:"ipk_minimum"`
	MatkulWajib     string  `json:"matkul_wajib"`
	Dokumen         string  `json:"dokumen"`
	Prosedur        string  `json:"prosedur"`
}

// RegulasiSKS is one row of the credit-limit regulation table.
type RegulasiSKS struct {
	Semester    string  `json:"semester"`
	IPKMinimum  float64 `json:"ipk_minimum"`
	IPKMaksimum float64 `json:"ipk_maksimum"`
	SKSMaksimal int     `json:"sks_maksimal"`
	SKSMinimal  int     `json:"sks_minimal"`
	Prodi       string  `json:"prodi"`
	Keterangan  string  `json:"keterangan"`
}

// Template is a canned answer for one intent. Text may contain
// {PLACEHOLDER} slots filled at render time; RequiredSlots lists the
// placeholders that must resolve for the answer to be usable.
type Template struct {
	Intent        string   `json:"intent"`
	Text          string   `json:"template"`
	RequiredSlots []string `json:"required_slots,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// #endregion records

// #region import-data
// ImportData is the on-disk knowledge base shape consumed by the importer.
// Dosen and MataKuliah are keyed maps; the remaining categories are lists.
type ImportData struct {
	Dosen       map[string]Dosen      `json:"dosen"`
	MataKuliah  map[string]MataKuliah `json:"mata_kuliah"`
	Jadwal      []Jadwal              `json:"jadwal"`
	Kalender    []Kalender            `json:"kalender"`
	Skripsi     []Skripsi             `json:"skripsi"`
	RegulasiSKS []RegulasiSKS         `json:"regulasi_sks"`
	Templates   []Template            `json:"templates,omitempty"`
}

// ImportStats counts the rows written by one import run.
type ImportStats struct {
	Dosen       int
	MataKuliah  int
	Jadwal      int
	Kalender    int
	Skripsi     int
	RegulasiSKS int
	Aliases     int
	Templates   int
	Skipped     int
}

// #endregion import-data
