package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/filkom-ub/chatbot/go-orchestrator/internal/kb"
)

// #region main
func main() {
	dbPath := flag.String("db", envOr("CHATBOT_DB", "chatbot.db"), "path to chatbot.db")
	dataPath := flag.String("data", "", "path to knowledge base JSON")
	sample := flag.Bool("sample", false, "generate sample data instead of reading a JSON file")
	sampleDosen := flag.Int("sample-dosen", 15, "extra generated lecturers in sample mode")
	flag.Parse()

	if *dataPath == "" && !*sample {
		fmt.Fprintln(os.Stderr, "usage: kb-import --db path/to/chatbot.db --data path/to/kb.json")
		fmt.Fprintln(os.Stderr, "       kb-import --db path/to/chatbot.db --sample [--sample-dosen N]")
		os.Exit(2)
	}

	fmt.Println("=== Knowledge Base Import ===")
	fmt.Printf("  DB: %s\n", *dbPath)

	// Phase 1: gather the data
	var data kb.ImportData
	if *sample {
		fmt.Printf("\n--- Phase 1: Generate Sample Data ---\n")
		data = sampleData(*sampleDosen)
		fmt.Printf("  Generated %d lecturers, %d courses, %d schedule rows\n",
			len(data.Dosen), len(data.MataKuliah), len(data.Jadwal))
	} else {
		fmt.Printf("\n--- Phase 1: Read %s ---\n", *dataPath)
		raw, err := os.ReadFile(*dataPath)
		if err != nil {
			log.Fatalf("read data file: %v", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			log.Fatalf("parse data file: %v", err)
		}
		fmt.Printf("  Parsed %d lecturers, %d courses, %d schedule rows, %d templates\n",
			len(data.Dosen), len(data.MataKuliah), len(data.Jadwal), len(data.Templates))
	}
	if len(data.Templates) == 0 {
		fmt.Println("  No templates in source, using built-in template set")
		data.Templates = defaultTemplates()
	}

	// Phase 2: import in one transaction
	fmt.Println("\n--- Phase 2: Import ---")
	store, err := kb.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	stats, err := store.Import(data)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	fmt.Printf("  dosen: %d | mata_kuliah: %d | jadwal: %d | kalender: %d\n",
		stats.Dosen, stats.MataKuliah, stats.Jadwal, stats.Kalender)
	fmt.Printf("  skripsi: %d | regulasi_sks: %d | aliases: %d | templates: %d\n",
		stats.Skripsi, stats.RegulasiSKS, stats.Aliases, stats.Templates)
	if stats.Skipped > 0 {
		fmt.Printf("  skipped %d records without a usable key\n", stats.Skipped)
	}

	// Phase 3: reload as the server would and verify
	fmt.Println("\n--- Phase 3: Verify Snapshot ---")
	snapshot, err := store.LoadSnapshot()
	if err != nil {
		log.Fatalf("reload snapshot: %v", err)
	}
	snapStats := snapshot.Stats()
	fmt.Printf("  snapshot holds %d lecturers, %d courses, %d schedule rows, %d templates\n",
		snapStats.Dosen, snapStats.MataKuliah, snapStats.Jadwal, snapStats.Templates)

	fmt.Println("\n=== Import Complete ===")
}

// #endregion main

// #region sample-data

// sampleCourses anchors sample mode on courses the demo questions ask
// about; generated lecturers are spread across them.
var sampleCourses = []struct {
	Nama     string
	Kode     string
	SKS      int
	Semester int
	Prodi    string
	Alias    []string
}{
	{"Algoritma dan Pemrograman", "TIF1101", 4, 1, "Teknik Informatika", []string{"alpro", "algoritma"}},
	{"Basis Data", "TIF2301", 3, 3, "Teknik Informatika", []string{"basdat"}},
	{"Machine Learning", "TIF4701", 3, 7, "Teknik Informatika", []string{"ml", "pembelajaran mesin"}},
	{"Jaringan Komputer", "TIF3501", 3, 5, "Teknik Informatika", []string{"jarkom"}},
	{"Sistem Operasi", "TIF3401", 3, 4, "Teknik Informatika", []string{"sisop"}},
	{"Rekayasa Perangkat Lunak", "SIF2201", 3, 4, "Sistem Informasi", []string{"rpl"}},
	{"Interaksi Manusia Komputer", "SIF3301", 3, 5, "Sistem Informasi", []string{"imk"}},
}

var sampleDays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat"}

// sampleData builds a development knowledge base. Seeded so repeated
// runs produce the same database.
func sampleData(extraDosen int) kb.ImportData {
	gofakeit.Seed(42)

	data := kb.ImportData{
		Dosen:      make(map[string]kb.Dosen),
		MataKuliah: make(map[string]kb.MataKuliah),
	}

	// fixed anchor lecturer referenced by the demo questions
	data.Dosen["hendry_fonda"] = kb.Dosen{
		NamaLengkap: "Hendry Fonda",
		Panggilan:   "Fonda",
		NIDN:        "1021098802",
		NoHP:        "0812-6168-2801",
		Matakuliah:  "Machine Learning",
		Semester:    7,
		Prodi:       "Teknik Informatika",
		Alias:       map[string][]string{"nama_lengkap": {"Fonda", "Pak Fonda"}},
	}

	for i := 0; i < extraDosen; i++ {
		course := sampleCourses[i%len(sampleCourses)]
		name := gofakeit.Name()
		key := fmt.Sprintf("dosen_%02d", i+1)
		data.Dosen[key] = kb.Dosen{
			NamaLengkap: name,
			Panggilan:   gofakeit.FirstName(),
			NIDN:        gofakeit.DigitN(10),
			NoHP:        gofakeit.Phone(),
			Matakuliah:  course.Nama,
			Semester:    course.Semester,
			Prodi:       course.Prodi,
		}
	}

	for _, c := range sampleCourses {
		data.MataKuliah[c.Nama] = kb.MataKuliah{
			Kode:      c.Kode,
			SKS:       c.SKS,
			Semester:  c.Semester,
			Prodi:     c.Prodi,
			Prasyarat: "-",
			Deskripsi: gofakeit.Sentence(12),
			Alias:     map[string][]string{"mata_kuliah": c.Alias},
		}
		data.Jadwal = append(data.Jadwal, kb.Jadwal{
			MataKuliah: c.Nama,
			Kode:       c.Kode,
			SKS:        c.SKS,
			Hari:       sampleDays[gofakeit.Number(0, len(sampleDays)-1)],
			Jam:        "08:00-10:30",
			JamMulai:   8.0,
			JamSelesai: 10.5,
			Ruang:      fmt.Sprintf("Lab %d", gofakeit.Number(1, 6)),
			Kelas:      "A",
			Semester:   c.Semester,
			Prodi:      c.Prodi,
		})
	}

	data.Kalender = []kb.Kalender{
		{Tahun: "2026/2027", Semester: "Semester Ganjil", Kegiatan: "Pengisian KRS", Mulai: "2026-08-10", Selesai: "2026-08-21", Target: "Mahasiswa", Keterangan: "teknik informatika"},
		{Tahun: "2026/2027", Semester: "Semester Ganjil", Kegiatan: "Perkuliahan", Mulai: "2026-09-01", Selesai: "2026-12-18", Target: "Mahasiswa", Keterangan: "semua prodi"},
	}
	data.Skripsi = []kb.Skripsi{
		{Prodi: "Teknik Informatika", SKSMinimum: 120, SemesterMinimum: 7, IPKMinimum: 2.75, MatkulWajib: "Metodologi Penelitian", Dokumen: "Transkrip nilai, KRS berjalan", Prosedur: "Daftar ke bagian akademik lalu ajukan proposal"},
		{Prodi: "Sistem Informasi", SKSMinimum: 120, SemesterMinimum: 7, IPKMinimum: 2.75, MatkulWajib: "Metodologi Penelitian", Dokumen: "Transkrip nilai, KRS berjalan", Prosedur: "Daftar ke bagian akademik lalu ajukan proposal"},
	}
	data.RegulasiSKS = []kb.RegulasiSKS{
		{Semester: "ganjil", IPKMinimum: 3.0, IPKMaksimum: 4.0, SKSMaksimal: 24, SKSMinimal: 12, Prodi: "Teknik Informatika"},
		{Semester: "ganjil", IPKMinimum: 2.0, IPKMaksimum: 2.99, SKSMaksimal: 20, SKSMinimal: 12, Prodi: "Teknik Informatika"},
		{Semester: "ganjil", IPKMinimum: 0, IPKMaksimum: 1.99, SKSMaksimal: 16, SKSMinimal: 12, Prodi: "Teknik Informatika"},
	}

	return data
}

// #endregion sample-data

// #region templates

// defaultTemplates is the built-in template set, one per answerable
// intent. Long-form intents (panduan_krs, prosedur_cuti) intentionally
// have no template so they route to retrieval.
func defaultTemplates() []kb.Template {
	return []kb.Template{
		{Intent: "greeting", Text: "Halo! Saya asisten akademik FILKOM. Ada yang bisa saya bantu?"},
		{Intent: "help", Text: "Saya dapat menjawab pertanyaan tentang jadwal kuliah, dosen, mata kuliah, KRS, dan skripsi. Silakan ketik pertanyaan Anda."},
		{Intent: "goodbye", Text: "Terima kasih sudah menggunakan layanan chatbot FILKOM. Sampai jumpa!"},
		{Intent: "clarification", Text: "Maaf, bisa diulangi dengan kalimat yang lebih jelas?"},
		{Intent: "dosen_pengampu", Text: "Mata kuliah {MATA_KULIAH} diampu oleh {DOSEN}.", RequiredSlots: []string{"DOSEN"}},
		{Intent: "info_dosen_umum", Text: "{NAMA_LENGKAP} ({NAMA_PANGGILAN}) adalah dosen prodi {PRODI} dan mengampu mata kuliah {MATA_KULIAH}.", RequiredSlots: []string{"NAMA_LENGKAP"}},
		{Intent: "kontak_dosen", Text: "Kontak {NAMA_LENGKAP}: {PHONE}.", RequiredSlots: []string{"PHONE"}},
		{Intent: "nidn_dosen", Text: "NIDN {NAMA_LENGKAP}: {NIDN}.", RequiredSlots: []string{"NIDN"}},
		{Intent: "info_matakuliah", Text: "{MATA_KULIAH} ({KODE_MATAKULIAH}) berbobot {SKS} SKS, semester {SEMESTER} prodi {PRODI}.", RequiredSlots: []string{"KODE_MATAKULIAH"}},
		{Intent: "sks_matkul", Text: "Mata kuliah {MATA_KULIAH} berbobot {SKS} SKS.", RequiredSlots: []string{"SKS"}},
		{Intent: "prasyarat_matkul", Text: "Prasyarat mata kuliah {MATA_KULIAH}: {PRASYARAT}.", RequiredSlots: []string{"PRASYARAT"}},
		{Intent: "jadwal_kuliah", Text: "Perkuliahan {MATA_KULIAH} berlangsung hari {HARI} pukul {WAKTU} di {RUANGAN}.", RequiredSlots: []string{"HARI"}},
		{Intent: "jadwal_hari", Text: "Perkuliahan {MATA_KULIAH} berlangsung hari {HARI} pukul {WAKTU} di {RUANGAN}.", RequiredSlots: []string{"HARI"}},
		{Intent: "jadwal_ruangan", Text: "Perkuliahan {MATA_KULIAH} kelas {KELAS} menggunakan ruang {RUANGAN}.", RequiredSlots: []string{"RUANGAN"}},
		{Intent: "jadwal_semester", Text: "Kegiatan {KEGIATAN} berlangsung {TANGGAL_MULAI} sampai {TANGGAL_SELESAI}.", RequiredSlots: []string{"KEGIATAN"}},
		{Intent: "jadwal_prodi", Text: "Kegiatan {KEGIATAN} untuk prodi {PRODI} berlangsung {TANGGAL_MULAI} sampai {TANGGAL_SELESAI}.", RequiredSlots: []string{"KEGIATAN"}},
		{Intent: "syarat_skripsi", Text: "Syarat skripsi prodi {PRODI}: minimal {TOTAL_SKS} SKS dengan IPK {IPK}. Dokumen: {DOKUMEN}. Prosedur: {PROSEDUR}.", RequiredSlots: []string{"TOTAL_SKS"}},
		{Intent: "batas_sks", Text: "Dengan IPK {IPK}, batas pengambilan Anda adalah {SKS} SKS.", RequiredSlots: []string{"SKS"}},
	}
}

// #endregion templates

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
