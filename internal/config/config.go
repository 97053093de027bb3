// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/chameleon/internal/i18n"
)

// Answer providers.
const (
	AnswerProviderGemini = "gemini"
	AnswerProviderGrpc   = "grpc"
)

// Session stores.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	AllowedOrigins  []string
	DBPath          string
	DefaultLanguage i18n.Language
	KnowledgeFile   string // "" = embedded default
	Answer          AnswerConfig
	Contact         ContactConfig
	Session         SessionConfig
	RateLimit       RateLimitConfig
	ConversationLog ConversationLogConfig
}

// AnswerConfig selects and configures the answer provider.
type AnswerConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	GrpcAddr     string
	Timeout      time.Duration
}

// ContactConfig configures lead delivery. An empty endpoint records leads
// locally only.
type ContactConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// SessionConfig controls conversation snapshots.
type SessionConfig struct {
	Store     string
	RedisURL  string
	TTL       time.Duration
	CacheSize int
	IdleAfter time.Duration
}

// RateLimitConfig bounds message submits per visitor. Requests <= 0 disables
// the limit.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	lang, ok := i18n.Normalize(getEnv("DEFAULT_LANGUAGE", string(i18n.Default)))
	if !ok {
		lang = i18n.Default
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS"),
		DBPath:          getEnv("DB_PATH", "./data/chameleon.db"),
		DefaultLanguage: lang,
		KnowledgeFile:   getEnv("KNOWLEDGE_FILE", ""),
		Answer: AnswerConfig{
			Provider:     strings.ToLower(getEnv("ANSWER_PROVIDER", AnswerProviderGemini)),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			GrpcAddr:     getEnv("ANSWER_GRPC_ADDR", "localhost:50051"),
			Timeout:      getEnvDuration("ANSWER_TIMEOUT", 30*time.Second),
		},
		Contact: ContactConfig{
			Endpoint: getEnv("CONTACT_ENDPOINT", ""),
			Timeout:  getEnvDuration("CONTACT_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			Store:     strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
			RedisURL:  getEnv("REDIS_URL", ""),
			TTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),
			CacheSize: getEnvInt("SESSION_CACHE_SIZE", 1024),
			IdleAfter: getEnvDuration("SESSION_IDLE_AFTER", 30*time.Minute),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 20),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	switch c.Answer.Provider {
	case AnswerProviderGemini:
		if c.Answer.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini answer provider")
		}
	case AnswerProviderGrpc:
		if c.Answer.GrpcAddr == "" {
			return errors.New("ANSWER_GRPC_ADDR is required for the grpc answer provider")
		}
	default:
		return fmt.Errorf("ANSWER_PROVIDER must be %q or %q, got %q", AnswerProviderGemini, AnswerProviderGrpc, c.Answer.Provider)
	}
	if c.Answer.Timeout <= 0 {
		return errors.New("ANSWER_TIMEOUT must be > 0")
	}
	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Session.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis session store")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be > 0")
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return errors.New("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// Origins returns the CORS allow list: ALLOWED_ORIGINS, or FRONTEND_URL when
// that is unset.
func (c *Config) Origins() []string {
	if len(c.AllowedOrigins) > 0 {
		return c.AllowedOrigins
	}
	if c.FrontendURL != "" {
		return []string{c.FrontendURL}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
