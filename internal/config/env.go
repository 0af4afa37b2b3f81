package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	VisionAgentAPIKey string
	OpenAIAPIKey      string
	GeminiAPIKey      string
	OpenAIModel       string
	GeminiModel       string
	LLMProvider       string // "openai" or "gemini"
	Temperature       float64

	UseMock      bool
	DemoFallback bool
	MockLatency  bool

	BatchSize         int
	MaxWorkers        int
	MaxRetries        int
	RetryLoggingStyle string

	UploadDir      string
	MaxUploadMB    int64
	ProcessTimeout int // seconds
}

// LoadConfig loads the environment variables and returns config. Mock mode
// is forced on when no vision agent key is configured.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "5001"),
		VisionAgentAPIKey: getEnv("VISION_AGENT_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
		Temperature:       0.5,
		UseMock:           getEnvBool("USE_MOCK", false),
		DemoFallback:      getEnvBool("DEMO_FALLBACK", false),
		MockLatency:       getEnvBool("MOCK_LATENCY", true),
		BatchSize:         getEnvInt("BATCH_SIZE", 20),
		MaxWorkers:        getEnvInt("MAX_WORKERS", 5),
		MaxRetries:        getEnvInt("MAX_RETRIES", 100),
		RetryLoggingStyle: getEnv("RETRY_LOGGING_STYLE", "inline_block"),
		UploadDir:         getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "doc_processor_uploads")),
		MaxUploadMB:       int64(getEnvInt("MAX_UPLOAD_MB", 16)),
		ProcessTimeout:    getEnvInt("PROCESS_TIMEOUT_SECONDS", 300),
	}

	if cfg.VisionAgentAPIKey == "" && !cfg.UseMock {
		log.Println("Warning: VISION_AGENT_API_KEY not set, falling back to mock SDK")
		cfg.UseMock = true
	}
	if cfg.OpenAIAPIKey == "" && cfg.LLMProvider == "openai" {
		log.Println("Warning: OPENAI_API_KEY not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
