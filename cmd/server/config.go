package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Skufu/labinterpreter/internal/interpret"
)

type Config struct {
	Port         string
	GinMode      string
	GeminiAPIKey string
	OpenAIAPIKey string
	AIEnabled    bool
	GeminiModel  string
	OpenAIModel  string
	AITimeout    time.Duration
	CORSOrigins  []string
	MaxBodyBytes int64
	LogLevel     string
	LogFormat    string
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		GinMode:      getEnv("GIN_MODE", "release"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		AIEnabled:    strings.EqualFold(getEnv("AI_ENABLED", "false"), "true"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "json"),
	}

	timeout, err := time.ParseDuration(getEnv("AI_TIMEOUT", "90s"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("AI_TIMEOUT must be a positive duration, got %q", os.Getenv("AI_TIMEOUT"))
	}
	cfg.AITimeout = timeout

	maxBody, err := strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || maxBody <= 0 {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be a positive integer, got %q", os.Getenv("MAX_BODY_BYTES"))
	}
	cfg.MaxBodyBytes = maxBody

	if cfg.AIEnabled && cfg.GeminiAPIKey == "" && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY or OPENAI_API_KEY is required when AI_ENABLED=true")
	}

	return cfg, nil
}

// ModelLabel is the model_used value stamped on reports. It depends only on
// which keys are configured.
func (c *Config) ModelLabel() string {
	switch {
	case c.GeminiAPIKey != "":
		return c.GeminiModel
	case c.OpenAIAPIKey != "":
		return c.OpenAIModel
	default:
		return interpret.ModelRuleBased
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
