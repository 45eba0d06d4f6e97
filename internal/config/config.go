package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type LLMConfig struct {
	AnthropicKey string
	ClaudeModel  string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	EvaluationModel string

	DefaultModel string
}

// PipelineConfig carries the generation-pipeline guard rails. MaxTokenThreshold
// is the combined input length beyond which a Claude request is switched to
// Gemini; it is an operator-tunable limit, not a protocol constant.
type PipelineConfig struct {
	MinInputLength    int
	MaxInputLength    int
	MaxTokenThreshold int
	HeartbeatInterval time.Duration
	StatisticsDays    int
}

type CORSConfig struct {
	Origins []string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	minInput, err := getEnvInt("MIN_INPUT_LENGTH", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid MIN_INPUT_LENGTH: %w", err)
	}

	maxInput, err := getEnvInt("MAX_INPUT_LENGTH", 200000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_INPUT_LENGTH: %w", err)
	}

	threshold, err := getEnvInt("MAX_TOKEN_THRESHOLD", 100000)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_TOKEN_THRESHOLD: %w", err)
	}

	heartbeat, err := getEnvInt("SSE_HEARTBEAT_SECONDS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid SSE_HEARTBEAT_SECONDS: %w", err)
	}

	statsDays, err := getEnvInt("STATISTICS_PERIOD_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid STATISTICS_PERIOD_DAYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: maxConns,
			MinConns: minConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		LLM: LLMConfig{
			AnthropicKey:    getEnv("ANTHROPIC_API_KEY", ""),
			ClaudeModel:     getEnv("CLAUDE_MODEL", ""),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiBaseURL:   getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai/"),
			GeminiModel:     getEnv("GEMINI_MODEL", ""),
			EvaluationModel: getEnv("GEMINI_EVALUATION_MODEL", ""),
			DefaultModel:    getEnv("DEFAULT_MODEL", "Claude"),
		},
		Pipeline: PipelineConfig{
			MinInputLength:    minInput,
			MaxInputLength:    maxInput,
			MaxTokenThreshold: threshold,
			HeartbeatInterval: time.Duration(heartbeat) * time.Second,
			StatisticsDays:    statsDays,
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:8000,http://127.0.0.1:8000")),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
