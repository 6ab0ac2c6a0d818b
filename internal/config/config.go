package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"

	defaultDeepSeekModel = "deepseek-chat"
	defaultGeminiModel   = "gemini-1.5-flash-latest"
)

type Config struct {
	HTTPPort    string
	DatabaseURL string
	LogLevel    string

	StreamAPIKey    string
	StreamAPISecret string

	LLMProvider     string
	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	GeminiAPIKey    string
	CompletionModel string

	HistoryWindow int
	CORSOrigins   []string
}

// Load reads configuration from the environment, after applying an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	cfg := &Config{
		HTTPPort:        getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", "chat_relay.db"),
		LogLevel:        strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		StreamAPIKey:    getEnv("STREAM_API_KEY", ""),
		StreamAPISecret: getEnv("STREAM_API_SECRET", ""),
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderDeepSeek)),
		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		CompletionModel: getEnv("COMPLETION_MODEL", ""),
		HistoryWindow:   getEnvAsInt("HISTORY_WINDOW", 10),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "*")),
	}

	required := []struct {
		name, val string
	}{
		{"STREAM_API_KEY", cfg.StreamAPIKey},
		{"STREAM_API_SECRET", cfg.StreamAPISecret},
	}

	switch cfg.LLMProvider {
	case ProviderDeepSeek:
		required = append(required, struct{ name, val string }{"DEEPSEEK_API_KEY", cfg.DeepSeekAPIKey})
		if cfg.CompletionModel == "" {
			cfg.CompletionModel = defaultDeepSeekModel
		}
	case ProviderGemini:
		required = append(required, struct{ name, val string }{"GEMINI_API_KEY", cfg.GeminiAPIKey})
		if cfg.CompletionModel == "" {
			cfg.CompletionModel = defaultGeminiModel
		}
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}

	for _, req := range required {
		if req.val == "" {
			return nil, fmt.Errorf("required env var %s is not set", req.name)
		}
	}

	if cfg.HistoryWindow <= 0 {
		return nil, fmt.Errorf("HISTORY_WINDOW must be positive, got %d", cfg.HistoryWindow)
	}

	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog level. Unknown values fall back to INFO.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
