package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	pixversehandler "github.com/aliskhannn/birthday-stream/internal/api/handlers/pixverse"
	streamhandler "github.com/aliskhannn/birthday-stream/internal/api/handlers/stream"
	submissionhandler "github.com/aliskhannn/birthday-stream/internal/api/handlers/submission"
	"github.com/aliskhannn/birthday-stream/internal/api/router"
	"github.com/aliskhannn/birthday-stream/internal/api/server"
	"github.com/aliskhannn/birthday-stream/internal/bgremoval"
	"github.com/aliskhannn/birthday-stream/internal/config"
	"github.com/aliskhannn/birthday-stream/internal/gateway"
	"github.com/aliskhannn/birthday-stream/internal/httpclient"
	"github.com/aliskhannn/birthday-stream/internal/infra/kafka/consumer"
	"github.com/aliskhannn/birthday-stream/internal/infra/kafka/producer"
	submissionmsg "github.com/aliskhannn/birthday-stream/internal/kafka/handlers/submission"
	"github.com/aliskhannn/birthday-stream/internal/middleware"
	"github.com/aliskhannn/birthday-stream/internal/orchestrator"
	"github.com/aliskhannn/birthday-stream/internal/pixverse"
	"github.com/aliskhannn/birthday-stream/internal/processor"
	entryrepo "github.com/aliskhannn/birthday-stream/internal/repository/entry"
	redisrepo "github.com/aliskhannn/birthday-stream/internal/repository/redis"
	submissionrepo "github.com/aliskhannn/birthday-stream/internal/repository/submission"
	streamsvc "github.com/aliskhannn/birthday-stream/internal/service/stream"
	submissionsvc "github.com/aliskhannn/birthday-stream/internal/service/submission"
	"github.com/aliskhannn/birthday-stream/internal/storage/file"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config/config.yml")

	// Connect to PostgreSQL (master and slaves).
	opts := &dbpg.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	slaveDSNs := make([]string, 0, len(cfg.Database.Slaves))
	for _, s := range cfg.Database.Slaves {
		slaveDSNs = append(slaveDSNs, s.DSN())
	}

	db, err := dbpg.New(cfg.Database.Master.DSN(), slaveDSNs, opts)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Redis holds submission progress and local fallback entries.
	rdb, err := redisrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Retry strategy for Kafka and storage calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL, strategy)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Outbound HTTP for the provider and the background removal sidecar.
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.HTTPClient.PreferIPv4,
		Timeout:    cfg.HTTPClient.Timeout,
	})

	if cfg.PixVerse.APIKey == "" {
		zlog.Logger.Warn().Msg("PIXVERSE_API_KEY is not set, provider calls will be rejected")
	}

	provider := pixverse.New(pixverse.Options{
		APIKey:         cfg.PixVerse.APIKey,
		BaseURL:        cfg.PixVerse.BaseURL,
		HTTPClient:     httpClient,
		Model:          cfg.PixVerse.Model,
		Quality:        cfg.PixVerse.Quality,
		MotionMode:     cfg.PixVerse.MotionMode,
		NegativePrompt: cfg.PixVerse.NegativePrompt,
		AspectRatio:    cfg.PixVerse.AspectRatio,
	})
	gatewaySvc := gateway.NewService(provider)

	// The orchestrator talks to the in-process gateway unless a remote proxy is configured.
	var gw orchestrator.Gateway = gatewaySvc
	if cfg.Gateway.BaseURL != "" {
		zlog.Logger.Info().Str("base_url", cfg.Gateway.BaseURL).Msg("using remote gateway")
		gw = gateway.NewClient(cfg.Gateway.BaseURL, httpClient)
	}

	orch := orchestrator.New(gw, orchestrator.Options{
		Interval:    cfg.Orchestrator.Interval,
		MaxAttempts: cfg.Orchestrator.MaxAttempts,
	})

	var remover bgremoval.Remover = bgremoval.Disabled{}
	if cfg.BackgroundRemoval.BaseURL != "" {
		remover = bgremoval.NewClient(cfg.BackgroundRemoval.BaseURL, httpclient.New(httpclient.Options{
			PreferIPv4: cfg.HTTPClient.PreferIPv4,
			Timeout:    cfg.BackgroundRemoval.Timeout,
		}))
	}

	// Initialize repositories, producer, processors and services.
	submissions := submissionrepo.NewRepository(db)
	entries := entryrepo.NewRepository(db)
	progress := redisrepo.NewRepo(rdb, cfg.Redis.ProgressTTL)
	p := producer.New(&cfg.Kafka, strategy)

	submissionService := submissionsvc.NewService(submissionsvc.Deps{
		Storage:     storage,
		Submissions: submissions,
		Entries:     entries,
		Progress:    progress,
		Producer:    p,
		Remover:     remover,
		Compositor:  processor.NewCompositor(cfg.Assets.BackgroundPath),
		Stamper:     processor.NewStamper(cfg.Assets.BoldFontPath, cfg.Assets.RegularFontPath),
		Generator:   orch,
	})
	streamService := streamsvc.NewService(entries, progress)

	// Kafka consumer for queued submissions.
	c := consumer.New(&cfg.Kafka, strategy, submissionmsg.NewSubmittedHandler(submissionService))

	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	var apiMiddleware []gin.HandlerFunc
	if cfg.RateLimit.Limit > 0 {
		apiMiddleware = append(apiMiddleware, middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RedisClient: rdb,
			Limit:       cfg.RateLimit.Limit,
			Window:      cfg.RateLimit.Window,
		}))
	}

	r := router.Setup(router.Handlers{
		PixVerse:   pixversehandler.NewHandler(gatewaySvc),
		Submission: submissionhandler.NewHandler(submissionService),
		Stream:     streamhandler.NewHandler(streamService),
	}, cfg.Server.TrustedProxies, apiMiddleware...)

	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.HTTPPort).Msg("starting server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine to finish.
	wg.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close master and slave databases.
	if err := db.Master.Close(); err != nil {
		zlog.Logger.Printf("failed to close master DB: %v", err)
	}
	for i, s := range db.Slaves {
		if err := s.Close(); err != nil {
			zlog.Logger.Printf("failed to close slave DB %d: %v", i, err)
		}
	}

	if err := rdb.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close redis client")
	}

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
