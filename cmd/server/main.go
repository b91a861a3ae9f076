package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"foxshelf/internal/app"
	"foxshelf/internal/catalog"
	"foxshelf/internal/config"
	"foxshelf/internal/identity"
	"foxshelf/internal/ratelimit"
	"foxshelf/internal/server"
	"foxshelf/internal/session"
	"foxshelf/internal/util"
	"foxshelf/pkg/ai"
	"foxshelf/pkg/domain"
	"foxshelf/pkg/storage"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = config.ConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	verifier := buildVerifier(cfg, logger)
	generator, streamer := buildGenerators(cfg, logger)
	blobs, files, err := buildBlobStore(cfg)
	if err != nil {
		logger.Error("failed to init storage", "err", err)
		os.Exit(1)
	}
	sessions := buildSessionStore(cfg, logger)

	cat := catalog.NewStore()
	seedCatalog(cat, cfg.AuthorName)

	appCore, err := app.New(app.Config{
		AuthorName:  cfg.AuthorName,
		AuthorEmail: cfg.AuthorEmail,
		Verifier:    verifier,
		Sessions:    sessions,
		Catalog:     cat,
		Blobs:       blobs,
		Generator:   generator,
		Streamer:    streamer,
	})
	if err != nil {
		logger.Error("failed to init app", "err", err)
		os.Exit(1)
	}

	signInLimiter, chatLimiter := buildLimiters(cfg, logger)

	httpServer := server.New(server.Config{
		App:            appCore,
		Files:          files,
		SignInLimiter:  signInLimiter,
		ChatLimiter:    chatLimiter,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		// Streaming responses stay open well past a normal request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("storefront listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func buildVerifier(cfg config.FileConfig, logger *slog.Logger) app.AssertionVerifier {
	if cfg.GoogleClientID == "" {
		logger.Warn("googleClientID not set; running browse-only, sign-in disabled")
		return nil
	}
	v, err := identity.NewVerifier(identity.Config{
		ClientID:   cfg.GoogleClientID,
		JWKSURL:    cfg.GoogleJWKSURL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		logger.Error("failed to init identity verifier", "err", err)
		os.Exit(1)
	}
	return v
}

func buildGenerators(cfg config.FileConfig, logger *slog.Logger) (ai.TextGenerator, ai.StreamGenerator) {
	switch cfg.AIProvider {
	case "ollama":
		if cfg.OllamaBaseURL == "" {
			logger.Warn("ollamaBaseURL not set; AI features disabled")
			return nil, nil
		}
		gen := ai.NewOllamaGenerator(ai.NewOllamaClient(cfg.OllamaBaseURL), cfg.OllamaModel)
		return gen, gen
	default:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("geminiAPIKey not set; AI features disabled")
			return nil, nil
		}
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			logger.Error("failed to init gemini client", "err", err)
			os.Exit(1)
		}
		// Description generation skips the thinking phase for latency.
		gen := ai.NewGeminiGenerator(client, cfg.GenerationModel, true)
		return gen, gen
	}
}

func buildBlobStore(cfg config.FileConfig) (storage.BlobStore, *storage.FileStore, error) {
	if cfg.MinioEndpoint != "" {
		store, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, nil, fmt.Errorf("minio: %w", err)
		}
		return store, nil, nil
	}
	files, err := storage.NewFileStore(cfg.StorageDir, "/files")
	if err != nil {
		return nil, nil, fmt.Errorf("file store: %w", err)
	}
	return files, files, nil
}

func buildSessionStore(cfg config.FileConfig, logger *slog.Logger) session.Store {
	ttl := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	if cfg.RedisAddr != "" {
		return session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, ttl)
	}
	logger.Info("redisAddr not set; sessions held in process memory")
	return session.NewMemoryStore(ttl)
}

func buildLimiters(cfg config.FileConfig, logger *slog.Logger) (*ratelimit.FixedWindowLimiter, *ratelimit.FixedWindowLimiter) {
	if cfg.RedisAddr == "" {
		logger.Info("redisAddr not set; rate limiting disabled")
		return nil, nil
	}
	var signIn, chat *ratelimit.FixedWindowLimiter
	var err error
	if cfg.SignInRateLimitPerMin > 0 {
		signIn, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "foxshelf:ratelimit:signin", cfg.SignInRateLimitPerMin, time.Minute)
		if err != nil {
			logger.Error("failed to init sign-in limiter", "err", err)
			os.Exit(1)
		}
	}
	if cfg.ChatRateLimitPerMinute > 0 {
		chat, err = ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "foxshelf:ratelimit:chat", cfg.ChatRateLimitPerMinute, time.Minute)
		if err != nil {
			logger.Error("failed to init chat limiter", "err", err)
			os.Exit(1)
		}
	}
	return signIn, chat
}

// seedCatalog loads the initial storefront titles so the shelf is never
// empty on first launch.
func seedCatalog(cat *catalog.Store, author string) {
	for _, b := range []domain.Book{
		{
			Title:         "The Starlight Compass",
			Description:   "When the stars begin to vanish from the night sky, a young cartographer inherits a compass that points not north, but toward whatever its holder has lost. Her search for the missing constellations leads her across drowned kingdoms and through cities built on the backs of sleeping giants.",
			Price:         12.99,
			CoverImageURL: "https://placehold.co/600x800/27272a/a7f3d0?text=The+Starlight+Compass",
			PayPalLink:    "https://www.paypal.com/paypalme/example/12.99",
		},
		{
			Title:         "The Whispering Woods",
			Description:   "The trees of the Elderwood remember every secret ever spoken beneath their branches. When a disgraced archivist arrives to catalog the forest's memories, she discovers one whisper that was never meant to be heard, and the woods themselves conspire to keep it that way.",
			Price:         9.99,
			CoverImageURL: "https://placehold.co/600x800/042f2e/a7f3d0?text=The+Whispering+Woods",
			PayPalLink:    "https://www.paypal.com/paypalme/example/9.99",
		},
	} {
		b.Author = author
		cat.Add(b)
	}
}
