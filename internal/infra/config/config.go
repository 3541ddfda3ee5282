package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port string

	DB        DBConfig
	Embedder  EmbedderConfig
	Rerank    RerankConfig
	LLM       LLMConfig
	RAG       RAGConfig
	HTTP      HTTPConfig
	OTel      OTelConfig
	ServerURL string // used by ragctl
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN renders the pgx connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type EmbedderConfig struct {
	URL       string
	Model     string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type RerankConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

type LLMConfig struct {
	DefaultProvider string
	Timeout         time.Duration
	MaxTokens       int
	// Hosted provider throttling, shared by every request.
	RateLimitRPS   float64
	RateLimitBurst int

	Ollama    ProviderConfig
	OpenAI    ProviderConfig
	Gemini    ProviderConfig
	Streaming StreamingConfig
}

type ProviderConfig struct {
	URL    string
	Model  string
	APIKey string
}

type StreamingConfig struct {
	URL       string
	Model     string
	APIKey    string
	FieldPath string
}

type RAGConfig struct {
	Metric             string
	VariantCount       int
	ExpansionMaxTokens int
	PerQueryLimit      int
	FanoutConcurrency  int
	TopK               int
	WordLimit          int
	CallTimeout        time.Duration
}

type HTTPConfig struct {
	CORSAllowOrigins []string
	RateLimitRPS     float64
	RateLimitBurst   int
	ShutdownTimeout  time.Duration
}

type OTelConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	SampleRatio    float64
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8000"),
		DB: DBConfig{
			Host:     getEnvWithAlt("DB_HOST", "POSTGRES_HOST", "localhost"),
			Port:     getEnvWithAlt("DB_PORT", "POSTGRES_PORT", "5432"),
			User:     getEnvWithAlt("DB_USER", "POSTGRES_USER", "postgres"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "postgres"),
			Name:     getEnvWithAlt("DB_NAME", "POSTGRES_DB", "rag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 2),
		},
		Embedder: EmbedderConfig{
			URL:       getEnv("EMBEDDER_URL", "http://localhost:11434"),
			Model:     getEnv("EMBEDDING_MODEL", "all-minilm"),
			Timeout:   getEnvDuration("EMBEDDER_TIMEOUT", 30*time.Second),
			CacheSize: getEnvInt("EMBEDDING_CACHE_SIZE", 1024),
			CacheTTL:  getEnvDuration("EMBEDDING_CACHE_TTL", 10*time.Minute),
		},
		Rerank: RerankConfig{
			URL:     getEnv("RERANK_URL", "http://localhost:8001"),
			Model:   getEnv("RERANK_MODEL", "cross-encoder/ms-marco-MiniLM-L-6-v2"),
			Timeout: getEnvDuration("RERANK_TIMEOUT", 30*time.Second),
		},
		LLM: LLMConfig{
			DefaultProvider: getEnv("LLM_PROVIDER", "ollama"),
			Timeout:         getEnvDuration("LLM_TIMEOUT", 120*time.Second),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 0),
			RateLimitRPS:    getEnvFloat("LLM_RATE_LIMIT_RPS", 5),
			RateLimitBurst:  getEnvInt("LLM_RATE_LIMIT_BURST", 10),
			Ollama: ProviderConfig{
				URL:   getEnvWithAlt("OLLAMA_URL", "OLLAMA_HOST", "http://localhost:11434"),
				Model: getEnv("OLLAMA_MODEL", "jobautomation/OpenEuroLLM-Polish"),
			},
			OpenAI: ProviderConfig{
				URL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
				APIKey: getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			},
			Gemini: ProviderConfig{
				URL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
				Model:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
				APIKey: getSecret("GOOGLE_API_KEY", "GOOGLE_API_KEY_FILE", ""),
			},
			Streaming: StreamingConfig{
				URL:       getEnv("STREAMING_LLM_URL", ""),
				Model:     getEnv("STREAMING_LLM_MODEL", ""),
				APIKey:    getSecret("STREAMING_LLM_API_KEY", "STREAMING_LLM_API_KEY_FILE", ""),
				FieldPath: getEnv("STREAMING_LLM_FIELD_PATH", "choices.0.delta.content"),
			},
		},
		RAG: RAGConfig{
			Metric:             getEnv("RAG_METRIC", "cosine"),
			VariantCount:       getEnvInt("RAG_VARIANT_COUNT", 3),
			ExpansionMaxTokens: getEnvInt("RAG_EXPANSION_MAX_TOKENS", 256),
			PerQueryLimit:      getEnvInt("RAG_PER_QUERY_LIMIT", 5),
			FanoutConcurrency:  getEnvInt("RAG_FANOUT_CONCURRENCY", 4),
			TopK:               getEnvInt("RAG_TOP_K", 5),
			WordLimit:          getEnvInt("RAG_WORD_LIMIT", 3000),
			CallTimeout:        getEnvDuration("RAG_CALL_TIMEOUT", 30*time.Second),
		},
		HTTP: HTTPConfig{
			CORSAllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", []string{"*"}),
			RateLimitRPS:     getEnvFloat("HTTP_RATE_LIMIT_RPS", 20),
			RateLimitBurst:   getEnvInt("HTTP_RATE_LIMIT_BURST", 40),
			ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OTel: OTelConfig{
			Enabled:        getEnv("OTEL_ENABLED", "false") == "true",
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "rag-assistant"),
			ServiceVersion: getEnv("SERVICE_VERSION", "0.0.0"),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
			SampleRatio:    getEnvFloat("OTEL_TRACE_SAMPLE_RATIO", 1.0),
		},
		ServerURL: getEnv("RAG_SERVER_URL", "http://localhost:8000"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}

	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	return fallback
}

func getEnvWithAlt(key, altKey, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if value, ok := os.LookupEnv(altKey); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("30s") or plain seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
