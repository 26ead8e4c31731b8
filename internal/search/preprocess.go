package search

import (
	"strings"
	"unicode"
)

// #region stopwords
// stopwords contains common Indonesian words excluded from keyword extraction.
var stopwords = map[string]bool{
	"yang": true, "untuk": true, "pada": true, "ke": true, "di": true,
	"dari": true, "dan": true, "atau": true, "ini": true, "itu": true,
	"dengan": true, "akan": true, "juga": true, "ada": true, "adalah": true,
	"saya": true, "anda": true, "kamu": true, "kita": true, "kami": true,
	"mereka": true, "dia": true, "ia": true, "sudah": true, "belum": true,
	"bisa": true, "dapat": true, "boleh": true, "harus": true, "mau": true,
	"ingin": true, "seperti": true, "jika": true, "kalau": true, "jadi": true,
	"bahwa": true, "hanya": true, "saja": true, "lagi": true, "masih": true,
	"secara": true, "agar": true, "supaya": true, "tentang": true, "sebagai": true,
	"tidak": true, "bukan": true, "tapi": true, "tetapi": true, "namun": true,
	"apa": true, "apakah": true, "siapa": true, "kapan": true, "kenapa": true,
	"mengapa": true, "bagaimana": true, "berapa": true, "mana": true, "dimana": true,
	"ya": true, "kah": true, "pun": true, "per": true, "oleh": true,
	"dalam": true, "antara": true, "setelah": true, "sebelum": true, "sampai": true,
	"hari": true, "mohon": true, "tolong": true, "dong": true, "sih": true,
}

// #endregion stopwords

// #region keywords
// Keywords splits text into unique lowercase non-stopword tokens. Tokens keep
// digits so course codes like tif4701 survive.
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// #endregion keywords
