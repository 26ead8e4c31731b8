package config

// #region imports
import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// #endregion

// #region config-struct

// Config holds every tunable the service reads at startup.
type Config struct {
	// Service
	Host    string
	Port    int
	GinMode string

	// Collaborator services
	NLUAddr    string
	SearchAddr string

	// Cascade thresholds
	IntentThreshold    float32 // min top-1 confidence for a template answer
	RetrievalThreshold float32 // min fused score for a retrieval answer
	ClarifyConfidence  float32 // sentinel confidence for clarifying questions
	MinFusedScore      float32 // fused-score floor applied before ranking

	// Hybrid fusion weights
	SparseWeight float32
	DenseWeight  float32
	TopK         int

	// Per-stage timeouts
	IntentTimeout time.Duration
	EntityTimeout time.Duration
	SearchTimeout time.Duration

	// Request limits
	MaxMessageLen int

	// Storage
	DBPath string

	// Logging
	LogFile    string
	LogJSON    bool
	LogLevel   string
	LogMaxMB   int
	LogBackups int
	LogMaxDays int

	// Alias matching
	AliasCutoff float32 // min similarity for fuzzy key resolution in KB lookups

	// Fallback and clarify texts
	FallbackMessages []string
	ClarifyFormat    string // one %s verb for the missing slot list
}

// #endregion

// #region defaults

// defaultFallbackMessages are the fixed reply variants used when no stage
// clears its threshold. The variant is chosen by hashing the user text, so
// identical inputs always receive the identical string.
var defaultFallbackMessages = []string{
	"Maaf, saya belum memahami pertanyaan Anda. Bisa dijelaskan lebih spesifik?",
	"Saya belum bisa menjawab pertanyaan tersebut. Coba tanyakan tentang jadwal kuliah, dosen, atau mata kuliah.",
	"Pertanyaan Anda di luar pemahaman saya saat ini. Silakan tanyakan informasi akademik FILKOM.",
	"Maaf, saya membutuhkan informasi yang lebih jelas. Coba tanyakan tentang kurikulum, jadwal, atau dosen.",
}

const defaultClarifyFormat = "Mohon sebutkan %s agar saya dapat menjawab pertanyaan Anda dengan tepat."

// Default returns the built-in configuration without reading the environment.
func Default() *Config {
	return &Config{
		Host:    "0.0.0.0",
		Port:    8080,
		GinMode: "release",

		NLUAddr:    "http://localhost:8001",
		SearchAddr: "http://localhost:8002",

		IntentThreshold:    0.85,
		RetrievalThreshold: 0.70,
		ClarifyConfidence:  0.50,
		MinFusedScore:      0.30,

		SparseWeight: 0.4,
		DenseWeight:  0.6,
		TopK:         5,

		IntentTimeout: 3 * time.Second,
		EntityTimeout: 3 * time.Second,
		SearchTimeout: 5 * time.Second,

		MaxMessageLen: 500,

		DBPath: "chatbot.db",

		LogFile:    "logs/chatbot.log",
		LogJSON:    false,
		LogLevel:   "info",
		LogMaxMB:   10,
		LogBackups: 5,
		LogMaxDays: 30,

		AliasCutoff: 0.80,

		FallbackMessages: defaultFallbackMessages,
		ClarifyFormat:    defaultClarifyFormat,
	}
}

// #endregion

// #region load

// Load reads .env (if present) and applies environment overrides on top of
// the defaults.
func Load() *Config {
	envPaths := []string{
		"config/.env",
		".env",
	}
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				log.Printf("[CONFIG] loaded %s", path)
				break
			}
		}
	}

	cfg := Default()

	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.Port = getEnvAsInt("PORT", cfg.Port)
	cfg.GinMode = getEnv("GIN_MODE", cfg.GinMode)

	cfg.NLUAddr = getEnv("NLU_ADDR", cfg.NLUAddr)
	cfg.SearchAddr = getEnv("SEARCH_ADDR", cfg.SearchAddr)

	cfg.IntentThreshold = getEnvAsFloat32("INTENT_THRESHOLD", cfg.IntentThreshold)
	cfg.RetrievalThreshold = getEnvAsFloat32("RETRIEVAL_THRESHOLD", cfg.RetrievalThreshold)
	cfg.ClarifyConfidence = getEnvAsFloat32("CLARIFY_CONFIDENCE", cfg.ClarifyConfidence)
	cfg.MinFusedScore = getEnvAsFloat32("MIN_FUSED_SCORE", cfg.MinFusedScore)

	cfg.SparseWeight = getEnvAsFloat32("SPARSE_WEIGHT", cfg.SparseWeight)
	cfg.DenseWeight = getEnvAsFloat32("DENSE_WEIGHT", cfg.DenseWeight)
	cfg.TopK = getEnvAsInt("SEARCH_TOP_K", cfg.TopK)

	cfg.IntentTimeout = getEnvAsDuration("INTENT_TIMEOUT", cfg.IntentTimeout)
	cfg.EntityTimeout = getEnvAsDuration("ENTITY_TIMEOUT", cfg.EntityTimeout)
	cfg.SearchTimeout = getEnvAsDuration("SEARCH_TIMEOUT", cfg.SearchTimeout)

	cfg.MaxMessageLen = getEnvAsInt("MAX_MESSAGE_LEN", cfg.MaxMessageLen)

	cfg.DBPath = getEnv("CHATBOT_DB", cfg.DBPath)

	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.LogJSON = getEnvAsBool("LOG_JSON", cfg.LogJSON)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogMaxMB = getEnvAsInt("LOG_MAX_MB", cfg.LogMaxMB)
	cfg.LogBackups = getEnvAsInt("LOG_BACKUPS", cfg.LogBackups)
	cfg.LogMaxDays = getEnvAsInt("LOG_MAX_DAYS", cfg.LogMaxDays)

	cfg.AliasCutoff = getEnvAsFloat32("ALIAS_CUTOFF", cfg.AliasCutoff)

	return cfg
}

// #endregion

// #region env-helpers

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsFloat32(key string, fallback float32) float32 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 32); err == nil {
		return float32(v)
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

// #endregion
