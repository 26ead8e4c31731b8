package kb

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS dosen (
	key          TEXT PRIMARY KEY,
	nama_lengkap TEXT NOT NULL,
	panggilan    TEXT,
	nidn         TEXT,
	no_hp        TEXT,
	matakuliah   TEXT,
	semester     INTEGER NOT NULL DEFAULT 0,
	prodi        TEXT
);

CREATE TABLE IF NOT EXISTS mata_kuliah (
	key        TEXT PRIMARY KEY,
	kode       TEXT,
	sks        INTEGER NOT NULL DEFAULT 0,
	semester   INTEGER NOT NULL DEFAULT 0,
	prodi      TEXT,
	prasyarat  TEXT,
	deskripsi  TEXT,
	kompetensi TEXT
);

CREATE TABLE IF NOT EXISTS jadwal (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	mata_kuliah TEXT NOT NULL,
	kode        TEXT,
	sks         INTEGER NOT NULL DEFAULT 0,
	hari        TEXT,
	jam         TEXT,
	jam_mulai   REAL NOT NULL DEFAULT 0,
	jam_selesai REAL NOT NULL DEFAULT 0,
	ruang       TEXT,
	kelas       TEXT,
	semester    INTEGER NOT NULL DEFAULT 0,
	prodi       TEXT
);

CREATE TABLE IF NOT EXISTS kalender (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	tahun      TEXT,
	semester   TEXT,
	kegiatan   TEXT,
	mulai      TEXT,
	selesai    TEXT,
	target     TEXT,
	keterangan TEXT
);

CREATE TABLE IF NOT EXISTS skripsi (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	prodi            TEXT NOT NULL,
	sks_minimum      INTEGER NOT NULL DEFAULT 0,
	semester_minimum INTEGER NOT NULL DEFAULT 0,
	ipk_minimum      REAL NOT NULL DEFAULT 0,
	matkul_wajib     TEXT,
	dokumen          TEXT,
	prosedur         TEXT
);

CREATE TABLE IF NOT EXISTS regulasi_sks (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	semester     TEXT NOT NULL,
	ipk_minimum  REAL NOT NULL DEFAULT 0,
	ipk_maksimum REAL NOT NULL DEFAULT 0,
	sks_maksimal INTEGER NOT NULL DEFAULT 0,
	sks_minimal  INTEGER NOT NULL DEFAULT 0,
	prodi        TEXT,
	keterangan   TEXT
);

CREATE TABLE IF NOT EXISTS aliases (
	alias      TEXT NOT NULL,
	category   TEXT NOT NULL,
	target_key TEXT NOT NULL,
	UNIQUE(alias, category)
);

CREATE TABLE IF NOT EXISTS templates (
	intent         TEXT PRIMARY KEY,
	template       TEXT NOT NULL,
	required_slots TEXT,
	source         TEXT
);
`

// #endregion schema

// #region store-struct
// Store manages the knowledge base tables in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region import
// Import writes a full knowledge base into the store in one transaction.
// Existing rows with the same keys are replaced. Dosen entries without a
// nama_lengkap are skipped.
func (s *Store) Import(data ImportData) (ImportStats, error) {
	var stats ImportStats

	tx, err := s.db.Begin()
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, key := range sortedKeys(data.Dosen) {
		d := data.Dosen[key]
		if d.NamaLengkap == "" {
			stats.Skipped++
			continue
		}
		mainKey := strings.ToLower(d.NamaLengkap)
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO dosen (key, nama_lengkap, panggilan, nidn, no_hp, matakuliah, semester, prodi)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			mainKey, d.NamaLengkap, d.Panggilan, d.NIDN, d.NoHP, d.Matakuliah, d.Semester, d.Prodi,
		)
		if err != nil {
			return stats, fmt.Errorf("insert dosen %s: %w", mainKey, err)
		}
		stats.Dosen++

		n, err := insertAliases(tx, "dosen", mainKey, d.Alias["nama_lengkap"])
		if err != nil {
			return stats, err
		}
		stats.Aliases += n
	}

	for _, key := range sortedKeys(data.MataKuliah) {
		mk := data.MataKuliah[key]
		mainKey := strings.ToLower(key)
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO mata_kuliah (key, kode, sks, semester, prodi, prasyarat, deskripsi, kompetensi)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			mainKey, mk.Kode, mk.SKS, mk.Semester, mk.Prodi, mk.Prasyarat, mk.Deskripsi, mk.Kompetensi,
		)
		if err != nil {
			return stats, fmt.Errorf("insert mata_kuliah %s: %w", mainKey, err)
		}
		stats.MataKuliah++

		n, err := insertAliases(tx, "mata_kuliah", mainKey, mk.Alias["mata_kuliah"])
		if err != nil {
			return stats, err
		}
		stats.Aliases += n
	}

	for _, j := range data.Jadwal {
		_, err := tx.Exec(
			`INSERT INTO jadwal (mata_kuliah, kode, sks, hari, jam, jam_mulai, jam_selesai, ruang, kelas, semester, prodi)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			j.MataKuliah, j.Kode, j.SKS, j.Hari, j.Jam, j.JamMulai, j.JamSelesai, j.Ruang, j.Kelas, j.Semester, j.Prodi,
		)
		if err != nil {
			return stats, fmt.Errorf("insert jadwal %s: %w", j.MataKuliah, err)
		}
		stats.Jadwal++

		// schedule aliases resolve against the course name
		n, err := insertAliases(tx, "mata_kuliah", strings.ToLower(j.MataKuliah), j.Alias["mata_kuliah"])
		if err != nil {
			return stats, err
		}
		stats.Aliases += n
	}

	for _, k := range data.Kalender {
		_, err := tx.Exec(
			`INSERT INTO kalender (tahun, semester, kegiatan, mulai, selesai, target, keterangan)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			k.Tahun, k.Semester, k.Kegiatan, k.Mulai, k.Selesai, k.Target, k.Keterangan,
		)
		if err != nil {
			return stats, fmt.Errorf("insert kalender %s: %w", k.Kegiatan, err)
		}
		stats.Kalender++
	}

	for _, sk := range data.Skripsi {
		_, err := tx.Exec(
			`INSERT INTO skripsi (prodi, sks_minimum, semester_minimum, ipk_minimum, matkul_wajib, dokumen, prosedur)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sk.Prodi, sk.SKSMinimum, sk.SemesterMinimum, sk.IPKMinimum, sk.MatkulWajib, sk.Dokumen, sk.Prosedur,
		)
		if err != nil {
			return stats, fmt.Errorf("insert skripsi %s: %w", sk.Prodi, err)
		}
		stats.Skripsi++
	}

	for _, r := range data.RegulasiSKS {
		_, err := tx.Exec(
			`INSERT INTO regulasi_sks (semester, ipk_minimum, ipk_maksimum, sks_maksimal, sks_minimal, prodi, keterangan)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.Semester, r.IPKMinimum, r.IPKMaksimum, r.SKSMaksimal, r.SKSMinimal, r.Prodi, r.Keterangan,
		)
		if err != nil {
			return stats, fmt.Errorf("insert regulasi_sks %s: %w", r.Semester, err)
		}
		stats.RegulasiSKS++
	}

	for _, tmpl := range data.Templates {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO templates (intent, template, required_slots, source)
			 VALUES (?, ?, ?, ?)`,
			tmpl.Intent, tmpl.Text, strings.Join(tmpl.RequiredSlots, ","), tmpl.Source,
		)
		if err != nil {
			return stats, fmt.Errorf("insert template %s: %w", tmpl.Intent, err)
		}
		stats.Templates++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

func insertAliases(tx *sql.Tx, category, targetKey string, aliases []string) (int, error) {
	count := 0
	for _, alias := range aliases {
		aliasKey := strings.ToLower(alias)
		if aliasKey == "" || aliasKey == targetKey {
			continue
		}
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO aliases (alias, category, target_key) VALUES (?, ?, ?)`,
			aliasKey, category, targetKey,
		)
		if err != nil {
			return count, fmt.Errorf("insert alias %s: %w", aliasKey, err)
		}
		count++
	}
	return count, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion import

// #region load-snapshot
// LoadSnapshot reads every table into an immutable in-memory Snapshot.
func (s *Store) LoadSnapshot() (*Snapshot, error) {
	data, err := s.loadData()
	if err != nil {
		return nil, err
	}
	aliases, err := s.loadAliases()
	if err != nil {
		return nil, err
	}
	return newSnapshotWithAliases(*data, aliases), nil
}

// ExportData reads the knowledge base back into its import shape, with
// alias rows folded into the per-record alias maps. The fixture tooling
// uses it to embed a complete KB in every exported fixture.
func (s *Store) ExportData() (ImportData, error) {
	data, err := s.loadData()
	if err != nil {
		return ImportData{}, err
	}
	aliases, err := s.loadAliases()
	if err != nil {
		return ImportData{}, err
	}
	attachAliases(data, aliases)
	return *data, nil
}

// attachAliases rebuilds the inline alias maps the importer consumed.
// Course aliases prefer the course record and fall back to the first
// schedule row carrying the course.
func attachAliases(data *ImportData, aliases []aliasRow) {
	for _, a := range aliases {
		switch a.Category {
		case "dosen":
			d, ok := data.Dosen[a.TargetKey]
			if !ok {
				continue
			}
			if d.Alias == nil {
				d.Alias = make(map[string][]string)
			}
			d.Alias["nama_lengkap"] = append(d.Alias["nama_lengkap"], a.Alias)
			data.Dosen[a.TargetKey] = d
		case "mata_kuliah":
			if mk, ok := data.MataKuliah[a.TargetKey]; ok {
				if mk.Alias == nil {
					mk.Alias = make(map[string][]string)
				}
				mk.Alias["mata_kuliah"] = append(mk.Alias["mata_kuliah"], a.Alias)
				data.MataKuliah[a.TargetKey] = mk
				continue
			}
			for i := range data.Jadwal {
				if strings.ToLower(data.Jadwal[i].MataKuliah) != a.TargetKey {
					continue
				}
				if data.Jadwal[i].Alias == nil {
					data.Jadwal[i].Alias = make(map[string][]string)
				}
				data.Jadwal[i].Alias["mata_kuliah"] = append(data.Jadwal[i].Alias["mata_kuliah"], a.Alias)
				break
			}
		}
	}
}

func (s *Store) loadData() (*ImportData, error) {
	var data ImportData

	data.Dosen = make(map[string]Dosen)
	rows, err := s.db.Query(`SELECT key, nama_lengkap, panggilan, nidn, no_hp, matakuliah, semester, prodi FROM dosen`)
	if err != nil {
		return nil, fmt.Errorf("load dosen: %w", err)
	}
	for rows.Next() {
		var key string
		var d Dosen
		if err := rows.Scan(&key, &d.NamaLengkap, &d.Panggilan, &d.NIDN, &d.NoHP, &d.Matakuliah, &d.Semester, &d.Prodi); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan dosen: %w", err)
		}
		data.Dosen[key] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	data.MataKuliah = make(map[string]MataKuliah)
	rows, err = s.db.Query(`SELECT key, kode, sks, semester, prodi, prasyarat, deskripsi, kompetensi FROM mata_kuliah`)
	if err != nil {
		return nil, fmt.Errorf("load mata_kuliah: %w", err)
	}
	for rows.Next() {
		var key string
		var mk MataKuliah
		if err := rows.Scan(&key, &mk.Kode, &mk.SKS, &mk.Semester, &mk.Prodi, &mk.Prasyarat, &mk.Deskripsi, &mk.Kompetensi); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan mata_kuliah: %w", err)
		}
		data.MataKuliah[key] = mk
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT mata_kuliah, kode, sks, hari, jam, jam_mulai, jam_selesai, ruang, kelas, semester, prodi FROM jadwal ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load jadwal: %w", err)
	}
	for rows.Next() {
		var j Jadwal
		if err := rows.Scan(&j.MataKuliah, &j.Kode, &j.SKS, &j.Hari, &j.Jam, &j.JamMulai, &j.JamSelesai, &j.Ruang, &j.Kelas, &j.Semester, &j.Prodi); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan jadwal: %w", err)
		}
		data.Jadwal = append(data.Jadwal, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT tahun, semester, kegiatan, mulai, selesai, target, keterangan FROM kalender ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load kalender: %w", err)
	}
	for rows.Next() {
		var k Kalender
		if err := rows.Scan(&k.Tahun, &k.Semester, &k.Kegiatan, &k.Mulai, &k.Selesai, &k.Target, &k.Keterangan); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan kalender: %w", err)
		}
		data.Kalender = append(data.Kalender, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT prodi, sks_minimum, semester_minimum, ipk_minimum, matkul_wajib, dokumen, prosedur FROM skripsi ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load skripsi: %w", err)
	}
	for rows.Next() {
		var sk Skripsi
		if err := rows.Scan(&sk.Prodi, &sk.SKSMinimum, &sk.SemesterMinimum, &sk.IPKMinimum, &sk.MatkulWajib, &sk.Dokumen, &sk.Prosedur); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan skripsi: %w", err)
		}
		data.Skripsi = append(data.Skripsi, sk)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT semester, ipk_minimum, ipk_maksimum, sks_maksimal, sks_minimal, prodi, keterangan FROM regulasi_sks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load regulasi_sks: %w", err)
	}
	for rows.Next() {
		var r RegulasiSKS
		if err := rows.Scan(&r.Semester, &r.IPKMinimum, &r.IPKMaksimum, &r.SKSMaksimal, &r.SKSMinimal, &r.Prodi, &r.Keterangan); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan regulasi_sks: %w", err)
		}
		data.RegulasiSKS = append(data.RegulasiSKS, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT intent, template, required_slots, source FROM templates`)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	for rows.Next() {
		var t Template
		var slots sql.NullString
		var source sql.NullString
		if err := rows.Scan(&t.Intent, &t.Text, &slots, &source); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if slots.Valid && slots.String != "" {
			t.RequiredSlots = strings.Split(slots.String, ",")
		}
		t.Source = source.String
		data.Templates = append(data.Templates, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &data, nil
}

type aliasRow struct {
	Alias     string
	Category  string
	TargetKey string
}

func (s *Store) loadAliases() ([]aliasRow, error) {
	rows, err := s.db.Query(`SELECT alias, category, target_key FROM aliases ORDER BY alias, category`)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}
	defer rows.Close()

	var aliases []aliasRow
	for rows.Next() {
		var a aliasRow
		if err := rows.Scan(&a.Alias, &a.Category, &a.TargetKey); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// #endregion load-snapshot

// #region counts
// Counts returns the number of rows in each knowledge base table.
func (s *Store) Counts() (map[string]int, error) {
	tables := []string{"dosen", "mata_kuliah", "jadwal", "kalender", "skripsi", "regulasi_sks", "aliases", "templates"}
	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// #endregion counts
