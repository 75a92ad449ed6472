package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read once from the environment at
// startup and passed down explicitly.
type Config struct {
	ListenAddr string
	UploadDir  string

	// LLM_PROVIDER selects both the generator and the embedder: "gemini"
	// (default) or "ollama".
	Provider string

	GeminiAPIKey    string
	GeminiModel     string
	GeminiEmbed     string
	OllamaURL       string
	OllamaModel     string
	OllamaEmbedURL  string
	OllamaEmbedName string

	// PostgresDSN enables the pgvector-backed document archive when set.
	PostgresDSN string

	MaxConcurrentQuestions int
	ModelCallsPerSecond    float64
	ModelTimeout           time.Duration
	EmbedTimeout           time.Duration
	RetryAttempts          int
}

func Load() Config {
	return Config{
		ListenAddr: getEnv("SERVER_ADDR", ":8000"),
		UploadDir:  getEnv("UPLOAD_DIR", "./uploads"),

		Provider: getEnv("LLM_PROVIDER", "gemini"),

		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiEmbed:     getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		OllamaURL:       os.Getenv("OLLAMA_URL"),
		OllamaModel:     os.Getenv("OLLAMA_MODEL"),
		OllamaEmbedURL:  os.Getenv("OLLAMA_EMBEDDING_URL"),
		OllamaEmbedName: os.Getenv("OLLAMA_EMBEDDING_MODEL"),

		PostgresDSN: os.Getenv("PG_DSN"),

		MaxConcurrentQuestions: getEnvInt("MAX_CONCURRENT_QUESTIONS", 4),
		ModelCallsPerSecond:    getEnvFloat("MODEL_CALLS_PER_SECOND", 2),
		ModelTimeout:           getEnvDuration("MODEL_TIMEOUT", 60*time.Second),
		EmbedTimeout:           getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		RetryAttempts:          getEnvInt("MODEL_RETRY_ATTEMPTS", 3),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
