package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"inkgen/config"
	"inkgen/internal/handler"
	"inkgen/internal/identity"
	"inkgen/internal/inference"
	"inkgen/internal/progress"
	"inkgen/internal/queue"
	"inkgen/internal/repo"
	"inkgen/internal/service"
	"inkgen/internal/storage"
	"inkgen/router"
)

// main initializes services and starts the HTTP server with the fetch worker
// pool in-process.
func main() {
	config.InitConfig()
	repo.InitMysql()
	repo.InitRedis()
	storage.InitMinio()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	inferenceClient, err := inference.NewClient(inference.Options{
		APIToken: config.AppConfig.InferenceToken,
		BaseURL:  config.AppConfig.InferenceBaseURL,
	})
	if err != nil {
		log.Fatalf("init inference client: %v", err)
	}
	identityClient := identity.NewClient(
		config.AppConfig.IdentityURL,
		config.AppConfig.IdentityServiceKey,
		nil,
	)

	tracker := progress.NewTracker(config.AppConfig.ProgressRetention, config.AppConfig.ProgressMaxEntries)
	fetchQueue := queue.New(
		config.AppConfig.DownloadConcurrency,
		config.AppConfig.DownloadRate,
		config.AppConfig.DownloadBurst,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	fetchQueue.Start(ctx)
	defer fetchQueue.Stop()

	downloadService := service.NewDownloadService(
		repo.NewDownloadRepo(repo.Db),
		storage.Default,
		config.AppConfig.BucketName,
		tracker,
		fetchQueue,
		&http.Client{Timeout: config.AppConfig.DownloadHTTPTimeout},
		logger.With().Str("component", "downloads").Logger(),
	)
	generationService := service.NewGenerationService(
		repo.NewGenerationRepo(repo.Db),
		storage.Default,
		config.AppConfig.BucketName,
		inferenceClient,
		config.AppConfig.InferenceModel,
		service.NewSignedURLCache(repo.Redis),
		logger.With().Str("component", "generations").Logger(),
	)

	handler.Init(identityClient, downloadService, generationService)

	r := router.InitRouter()
	if err := r.Run(config.AppConfig.Host + ":" + config.AppConfig.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
