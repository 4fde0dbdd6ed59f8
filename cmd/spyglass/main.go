package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spyglassmedia/spyglass/internal/config"
	"github.com/spyglassmedia/spyglass/internal/content"
	"github.com/spyglassmedia/spyglass/internal/dispatch"
	"github.com/spyglassmedia/spyglass/internal/downloader"
	"github.com/spyglassmedia/spyglass/internal/downloader/sabnzbd"
	"github.com/spyglassmedia/spyglass/internal/infrastructure/events/nats"
	gormpersist "github.com/spyglassmedia/spyglass/internal/infrastructure/persistence/gorm"
	"github.com/spyglassmedia/spyglass/internal/infrastructure/providers/tmdb"
	"github.com/spyglassmedia/spyglass/internal/infrastructure/providers/tvmaze"
	"github.com/spyglassmedia/spyglass/internal/infrastructure/storage"
	"github.com/spyglassmedia/spyglass/internal/resolver"
	"github.com/spyglassmedia/spyglass/pkg/logger"
)

const serviceName = "spyglass"

// services bundles the composed core, ready to be handed to whichever
// transport fronts this process.
type services struct {
	resolver     *resolver.Resolver
	content      *content.Service
	orchestrator *dispatch.Orchestrator
}

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New()
	defer log.Sync()

	log.Info("starting service",
		zap.String("service", cfg.Server.ServiceName),
		zap.String("environment", cfg.Server.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, dbCleanup, err := gormpersist.NewDB(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbCleanup()

	// Initialize repositories
	resultRepo := gormpersist.NewSearchResultRepository(db)
	mediaRepo := gormpersist.NewMediaInfoRepository(db)
	attemptRepo := gormpersist.NewAttemptRepository(db)

	// Initialize metadata providers and the resolver
	tvProvider := tvmaze.NewClient(cfg.Providers.TVMazeBaseURL, cfg.Providers.Timeout)
	movieProvider := tmdb.NewClient(cfg.Providers.TMDBBaseURL, cfg.Providers.TMDBAPIKey, cfg.Providers.Timeout)
	idResolver := resolver.NewResolver(tvProvider, movieProvider, mediaRepo, log)

	// Initialize content storage
	var store storage.ContentStore
	switch cfg.Storage.Type {
	case "s3":
		store, err = storage.NewS3Store(ctx, cfg.Storage.S3Bucket, cfg.Storage.S3Prefix, cfg.Storage.S3Region, log)
	default:
		store, err = storage.NewLocalStore(cfg.Storage.LocalPath, log)
	}
	if err != nil {
		log.Fatal("failed to initialize content storage", zap.Error(err))
	}

	contentService := content.NewService(resultRepo, attemptRepo, store, log)

	// Initialize the download backend
	backendConfig := downloader.Config{
		Type:       cfg.Downloader.Type,
		URL:        cfg.Downloader.URL,
		APIKey:     cfg.Downloader.APIKey,
		AddingType: downloader.AddingType(cfg.Downloader.AddingType),
		Timeout:    cfg.Downloader.Timeout,
	}
	var backend downloader.Downloader
	switch backendConfig.Type {
	case "sabnzbd":
		backend = sabnzbd.NewClient(backendConfig, log)
	default:
		log.Fatal("unsupported downloader type", zap.String("type", backendConfig.Type))
	}

	// Initialize the event publisher when NATS is enabled
	var publisher dispatch.EventPublisher
	if cfg.NATS.Enabled {
		natsClient, natsCleanup, err := nats.NewClient(cfg.NATS, log)
		if err != nil {
			log.Fatal("failed to initialize NATS", zap.Error(err))
		}
		defer natsCleanup()
		publisher = nats.NewPublisher(natsClient, log)
	}

	core := &services{
		resolver: idResolver,
		content:  contentService,
		orchestrator: dispatch.NewOrchestrator(
			backend,
			backendConfig,
			contentService,
			resultRepo,
			attemptRepo,
			publisher,
			log,
		),
	}

	if check := core.orchestrator.CheckBackend(ctx); !check.OK {
		log.Warn("download backend unreachable", zap.String("message", check.Message))
	} else {
		log.Info("download backend reachable")
	}

	log.Info("service started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service")
	cancel()
}
