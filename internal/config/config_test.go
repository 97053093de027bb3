package config

import (
	"strings"
	"testing"
	"time"

	"github.com/ashureev/chameleon/internal/i18n"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("ANSWER_PROVIDER", "")
	t.Setenv("SESSION_STORE", "")

	cfg, err := Load()
	if err == nil {
		t.Fatalf("expected empty provider to be rejected, got %+v", cfg)
	}

	t.Setenv("ANSWER_PROVIDER", "Gemini")
	t.Setenv("SESSION_STORE", "memory")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.DefaultLanguage != i18n.English || cfg.Answer.Provider != AnswerProviderGemini {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ConversationLog.Enabled {
		t.Fatal("conversation log must be off by default")
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development mode without FRONTEND_URL")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANSWER_PROVIDER", "grpc")
	t.Setenv("ANSWER_GRPC_ADDR", "answers:9000")
	t.Setenv("ANSWER_TIMEOUT", "45")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("DEFAULT_LANGUAGE", "fr-CA")
	t.Setenv("FRONTEND_URL", "https://shop.example.com")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Answer.Timeout != 45*time.Second || cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.Answer.Timeout, cfg.Session.TTL)
	}
	if cfg.DefaultLanguage != i18n.French {
		t.Fatalf("expected French, got %s", cfg.DefaultLanguage)
	}
	if cfg.IsDevelopment() {
		t.Fatal("expected production mode")
	}
	if got := cfg.Origins(); len(got) != 2 || got[1] != "https://b.example.com" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:   "8080",
			DBPath: "db",
			Answer: AnswerConfig{Provider: AnswerProviderGemini, GeminiAPIKey: "k", Timeout: time.Second},
			Session: SessionConfig{
				Store: SessionStoreMemory,
				TTL:   time.Hour,
			},
			ConversationLog: ConversationLogConfig{QueueSize: 1},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no key", func(c *Config) { c.Answer.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"bad provider", func(c *Config) { c.Answer.Provider = "openai" }, "ANSWER_PROVIDER"},
		{"redis without url", func(c *Config) { c.Session.Store = SessionStoreRedis }, "REDIS_URL"},
		{"bad store", func(c *Config) { c.Session.Store = "etcd" }, "SESSION_STORE"},
		{"limit without window", func(c *Config) { c.RateLimit.Requests = 5 }, "RATE_LIMIT_WINDOW"},
		{"log without dir", func(c *Config) { c.ConversationLog.Enabled = true }, "CONVERSATION_LOG_DIR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("D", "garbage")
	if got := getEnvDuration("D", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	t.Setenv("D", "1500ms")
	if got := getEnvDuration("D", time.Minute); got != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %v", got)
	}
}
