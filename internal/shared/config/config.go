package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	QueueBackend string
	SQSQueueURL  string
	AMQPURL      string
	AMQPQueue    string

	AI AIConfig

	JWTSecret string
	RedisURL  string

	WorkerConcurrency  int
	SQSVisibility      time.Duration
	ShutdownTimeout    time.Duration
	SweeperInterval    time.Duration
	SweeperStaleAfter  time.Duration
	AnalysisTargetRole string
}

// AIConfig configures the resume analysis model call.
type AIConfig struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	MaxAttempts     int
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		QueueBackend: normalizeQueueBackend(getEnv("QUEUE_BACKEND", "memory")),
		SQSQueueURL:  getEnv("SQS_QUEUE_URL", ""),
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPQueue:    getEnv("AMQP_QUEUE", "resume_analysis"),

		AI: loadAIConfig(),

		JWTSecret: getEnv("JWT_SECRET", ""),
		RedisURL:  getEnv("REDIS_URL", ""),

		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 4),
		SQSVisibility:      getEnvDuration("SQS_VISIBILITY_TIMEOUT", 5*time.Minute),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		SweeperInterval:    getEnvDuration("SWEEPER_INTERVAL", 0),
		SweeperStaleAfter:  getEnvDuration("SWEEPER_STALE_AFTER", 15*time.Minute),
		AnalysisTargetRole: getEnv("ANALYSIS_TARGET_ROLE", ""),
	}
}

func loadAIConfig() AIConfig {
	cfg := AIConfig{
		Provider:        normalizeAIProvider(getEnv("LLM_PROVIDER", "")),
		Timeout:         getEnvDuration("AI_TIMEOUT", 60*time.Second),
		MaxAttempts:     getEnvInt("AI_MAX_ATTEMPTS", 3),
		Temperature:     getEnvFloat("AI_TEMPERATURE", 0.3),
		TopP:            getEnvFloat("AI_TOP_P", 0.95),
		TopK:            getEnvFloat("AI_TOP_K", 40),
		MaxOutputTokens: int32(getEnvInt("AI_MAX_OUTPUT_TOKENS", 2048)),
	}
	if cfg.Provider == "" {
		switch {
		case os.Getenv("GEMINI_API_KEY") != "":
			cfg.Provider = "gemini"
		case os.Getenv("OPENAI_API_KEY") != "":
			cfg.Provider = "openai"
		default:
			cfg.Provider = "static"
		}
	}
	switch cfg.Provider {
	case "gemini":
		cfg.APIKey = getEnv("GEMINI_API_KEY", "")
		cfg.Model = getEnv("GEMINI_MODEL", "gemini-2.5-flash")
		cfg.BaseURL = getEnv("GEMINI_BASE_URL", "")
	case "openai":
		cfg.APIKey = getEnv("OPENAI_API_KEY", "")
		cfg.Model = getEnv("OPENAI_MODEL", "gpt-4o-mini")
		cfg.BaseURL = getEnv("OPENAI_BASE_URL", "")
	}
	return cfg
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float32) float32 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		log.Printf("config %s invalid float: %v", key, err)
		return def
	}
	return float32(val)
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeAIProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return "gemini"
	case "openai":
		return "openai"
	case "static", "none":
		return "static"
	default:
		return ""
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "amqp", "rabbitmq":
		return "amqp"
	default:
		return "memory"
	}
}
