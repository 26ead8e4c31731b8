package pipeline

// #region imports
import (
	"crypto/md5"
	"encoding/binary"
	"strings"
)

// #endregion

// #region fallback

// fallbackVariants are the built-in last-resort replies, used when the
// config supplies none. Mirrors the service config defaults.
var fallbackVariants = []string{
	"Maaf, saya belum memahami pertanyaan Anda. Bisa dijelaskan lebih spesifik?",
	"Saya belum bisa menjawab pertanyaan tersebut. Coba tanyakan tentang jadwal kuliah, dosen, atau mata kuliah.",
	"Pertanyaan Anda di luar pemahaman saya saat ini. Silakan tanyakan informasi akademik FILKOM.",
	"Maaf, saya membutuhkan informasi yang lebih jelas. Coba tanyakan tentang kurikulum, jadwal, atau dosen.",
}

// selectFallback picks a variant by hashing the normalized user text, so
// identical inputs always receive the identical fallback string.
func selectFallback(variants []string, text string) (string, int) {
	if len(variants) == 0 {
		variants = fallbackVariants
	}
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(text))))
	idx := int(binary.BigEndian.Uint64(sum[:8]) % uint64(len(variants)))
	return variants[idx], idx
}

// #endregion
