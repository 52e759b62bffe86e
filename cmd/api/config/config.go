package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string

	LLMProvider      string
	OllamaBaseURL    string
	OllamaModel      string
	OllamaEmbedModel string
	GeminiAPIKey     string
	GeminiModel      string
	LLMTimeout       time.Duration

	Retriever        string
	ChunkSize        int
	TFIDFMaxFeatures int

	ArxivAPIURL        string
	ArxivPDFBaseURL    string
	ArxivEprintBaseURL string

	DBDriver string
	DBDSN    string

	LogLevel  string
	LogFormat string
	LogFile   string

	AuthJWTSecret string
}

// Load reads the configuration from the environment. Call godotenv.Load first
// to pick up a local .env file.
func Load() *Config {
	cfg := &Config{
		Host:           getenv("HOST", "0.0.0.0"),
		Port:           getenv("PORT", "8001"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "*")),

		LLMProvider:      strings.ToLower(getenv("LLM_PROVIDER", "ollama")),
		OllamaBaseURL:    getenv("OLLAMA_BASE_URL", "http://172.27.144.1:11434"),
		OllamaModel:      getenv("OLLAMA_MODEL", "qwen2.5:7b"),
		OllamaEmbedModel: getenv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		GeminiAPIKey:     os.Getenv("GOOGLE_AI_STUDIO_API_KEY"),
		GeminiModel:      getenv("GEMINI_MODEL", "gemini-1.5-flash"),
		LLMTimeout:       getenvDuration("LLM_TIMEOUT", 60*time.Second),

		Retriever:        strings.ToLower(getenv("RETRIEVER", "tfidf")),
		ChunkSize:        getenvInt("CHUNK_SIZE", 500),
		TFIDFMaxFeatures: getenvInt("TFIDF_MAX_FEATURES", 1000),

		ArxivAPIURL:        getenv("ARXIV_API_URL", "https://export.arxiv.org/api/query"),
		ArxivPDFBaseURL:    getenv("ARXIV_PDF_BASE_URL", "https://arxiv.org/pdf/"),
		ArxivEprintBaseURL: getenv("ARXIV_EPRINT_BASE_URL", "https://arxiv.org/e-print/"),

		DBDriver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
		DBDSN:    os.Getenv("DB_DSN"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "console"),
		LogFile:   os.Getenv("LOG_FILE"),

		AuthJWTSecret: os.Getenv("AUTH_JWT_SECRET"),
	}

	if cfg.DBDSN == "" {
		switch cfg.DBDriver {
		case "postgres":
			cfg.DBDSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				os.Getenv("DB_HOST"),
				os.Getenv("DB_USER"),
				os.Getenv("DB_PASSWORD"),
				os.Getenv("DB_NAME"),
				getenv("DB_PORT", "5432"),
			)
		default:
			cfg.DBDSN = "data/arxiv_rag.db"
		}
	}

	return cfg
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// AllowAllOrigins reports whether CORS should accept any origin.
func (c *Config) AllowAllOrigins() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return true
		}
	}
	return len(c.AllowedOrigins) == 0
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// getenvDuration accepts Go durations ("90s") or a plain number of seconds.
func getenvDuration(k string, fallback time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
