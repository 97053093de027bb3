// Chameleon - embeddable multilingual support chat server
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/chameleon/internal/answer"
	"github.com/ashureev/chameleon/internal/api"
	"github.com/ashureev/chameleon/internal/chat"
	"github.com/ashureev/chameleon/internal/config"
	"github.com/ashureev/chameleon/internal/contact"
	"github.com/ashureev/chameleon/internal/i18n"
	"github.com/ashureev/chameleon/internal/identity"
	"github.com/ashureev/chameleon/internal/knowledge"
	"github.com/ashureev/chameleon/internal/live"
	"github.com/ashureev/chameleon/internal/middleware"
	"github.com/ashureev/chameleon/internal/session"
	"github.com/ashureev/chameleon/internal/store"
	"github.com/ashureev/chameleon/internal/transcript"
	"github.com/ashureev/chameleon/web"
)

const (
	reapInterval    = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

//nolint:funlen // Startup wiring is intentionally sequential to keep dependency setup explicit.
func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "answer_provider", cfg.Answer.Provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	kb, err := loadKnowledge(cfg.KnowledgeFile)
	if err != nil {
		return err
	}
	slog.Info("Knowledge base loaded", "entries", kb.Len(), "file", cfg.KnowledgeFile)

	answerer, health, closeAnswerer, err := newAnswerer(ctx, cfg.Answer, logger)
	if err != nil {
		return err
	}
	defer closeAnswerer()

	var forward chat.ContactSender
	if cfg.Contact.Endpoint != "" {
		forward = contact.NewHTTPSender(cfg.Contact.Endpoint, cfg.Contact.Timeout, logger)
	} else {
		slog.Info("CONTACT_ENDPOINT not set, leads are recorded locally only")
	}
	sender := contact.NewRecorder(repo, forward, logger)

	snapshots, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := snapshots.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	transcripts, err := transcript.NewConversationLogger(transcript.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize conversation logger: %w", err)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	sessions, err := session.NewRegistry(session.RegistryConfig{
		Deps: chat.Dependencies{
			Answerer:  answerer,
			Sender:    sender,
			Knowledge: kb,
		},
		Store:     snapshots,
		CacheSize: cfg.Session.CacheSize,
		Options: func(key string) []chat.Option {
			visitorID, sessionID, _ := strings.Cut(key, "/")
			return []chat.Option{
				chat.WithLogger(logger.With("session", key)),
				chat.WithMessageHook(transcripts.MessageHook(visitorID, sessionID, "widget")),
			}
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("initialize session registry: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	limiter.StartEviction(ctx)
	session.StartReaper(ctx, sessions, reapInterval, cfg.Session.IdleAfter)

	baseHandler := api.NewHandler(repo, sessions, cfg.DefaultLanguage, logger)
	chatHandler := api.NewChatHandler(baseHandler, middleware.RateLimit(limiter, visitorKey))
	healthHandler := api.NewHealthHandler(baseHandler, health)

	hub := live.NewHub(logger)
	wsHandler, unsubscribe := live.NewHandler(live.HandlerConfig{
		Sessions: sessions,
		Hub:      hub,
		Limiter:  limiter,
		Resolve: func(r *http.Request) i18n.Language {
			return api.ResolveLanguage(r, cfg.DefaultLanguage)
		},
		AllowedOrigin: cfg.FrontendURL,
		IsDev:         cfg.IsDevelopment(),
		Logger:        logger,
	})
	defer unsubscribe()

	origins := cfg.Origins()
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(origins))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	healthHandler.RegisterRoutes(r)
	chatHandler.RegisterRoutes(r)
	r.Get("/ws/chat", wsHandler.ServeHTTP)

	// Serve the embedded widget (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WebSocket connections are long lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func visitorKey(r *http.Request) string {
	if id := identity.VisitorIDFromContext(r.Context()); id != "" {
		return id
	}
	return identity.IPFromRequest(r)
}

func loadKnowledge(path string) (*knowledge.Base, error) {
	if path == "" {
		return knowledge.Default(), nil
	}
	kb, err := knowledge.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load knowledge file: %w", err)
	}
	return kb, nil
}

// newAnswerer returns the configured answer provider, its health checker (nil
// when the provider has none) and a cleanup function.
func newAnswerer(ctx context.Context, cfg config.AnswerConfig, logger *slog.Logger) (chat.Answerer, api.HealthChecker, func(), error) {
	switch cfg.Provider {
	case config.AnswerProviderGrpc:
		grpcCfg := answer.DefaultGrpcClientConfig()
		grpcCfg.Address = cfg.GrpcAddr
		grpcCfg.RequestTimeout = cfg.Timeout

		slog.Info("Connecting to answer service via gRPC", "address", cfg.GrpcAddr)
		client, err := answer.NewGrpcClient(grpcCfg, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to answer service: %w", err)
		}
		return client, client, client.Close, nil
	default:
		gemini, err := answer.NewGemini(ctx, answer.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("initialize gemini: %w", err)
		}
		slog.Info("Answer provider ready", "provider", gemini.Name())
		return gemini, nil, func() {}, nil
	}
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	if cfg.Store != config.SessionStoreRedis {
		return session.NewStore(session.StoreTypeMemory, session.WithTTL(cfg.TTL))
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	slog.Info("Redis session store connected", "addr", opts.Addr)
	return session.NewStore(session.StoreTypeRedis, session.WithRedisClient(client), session.WithTTL(cfg.TTL))
}
