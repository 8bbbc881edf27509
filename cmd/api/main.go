package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/hrpanel/bulk-import/internal/application/importing"
	"github.com/hrpanel/bulk-import/internal/bootstrap"
	"github.com/hrpanel/bulk-import/internal/config"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	"github.com/hrpanel/bulk-import/internal/export"
	infrafile "github.com/hrpanel/bulk-import/internal/infrastructure/file"
	"github.com/hrpanel/bulk-import/internal/infrastructure/queue"
	"github.com/hrpanel/bulk-import/internal/infrastructure/repository"
	httpecho "github.com/hrpanel/bulk-import/internal/interfaces/http/echo"
	"github.com/hrpanel/bulk-import/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pgx pool")
	}
	defer pool.Close()

	redisClient, err := queue.NewRedisClient(queue.Config{
		Addr:      cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		PoolSize:  cfg.RedisPoolSize,
		QueueName: cfg.ImportQueue,
		DLQSuffix: cfg.DLQSuffix,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	files, err := newFileStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build file store")
	}

	jobRepo := repository.NewImportJobRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	batchWriter := repository.NewSubmissionBatchRepository(pool)
	producer := queue.NewProducer(redisClient)

	processor := app.NewProcessor(jobRepo, files, templateRepo, batchWriter, app.ProcessorConfig{
		ChunkSize:       cfg.ChunkSize,
		ChunkWorkers:    cfg.ChunkWorkers,
		ChunkTimeout:    cfg.ChunkTimeout,
		MaxStoredErrors: cfg.MaxStoredErrors,
	}, log)

	importHandler := httpecho.NewImportHandler(
		app.NewStartImport(jobRepo, files, producer, processor, app.StartImportConfig{
			InlineThreshold: cfg.InlineThreshold,
			MaxFileBytes:    cfg.ImportMaxFileBytes,
			MaxAttempts:     cfg.TaskMaxAttempts,
		}),
		app.NewGetImportStatus(jobRepo),
		app.NewRetryImport(jobRepo, files, producer),
		app.NewListImports(jobRepo),
	)
	exportHandler := httpecho.NewExportHandler(
		export.NewStreamer(db, templateRepo, cfg.ExportXLSXRowCeiling, cfg.ExportBatchSize),
	)

	server := bootstrap.NewHTTPServer(importHandler, exportHandler, fmt.Sprintf("%dM", cfg.APIMaxBodyBytes/(1024*1024)))

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumer := queue.NewConsumer(redisClient, cfg.TaskMaxAttempts)
	go func() {
		err := consumer.Consume(consumerCtx, func(ctx context.Context, task queue.ImportTask) error {
			if err := processor.Process(ctx, task.JobID); err != nil {
				if errors.Is(err, app.ErrTransient) {
					return fmt.Errorf("%w: %v", queue.ErrRetry, err)
				}
				return err
			}
			return nil
		})
		if err != nil && consumerCtx.Err() == nil {
			log.Error().Err(err).Msg("queue consumer stopped")
		}
	}()

	go func() {
		if err := server.Start(cfg.Addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopConsumer()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("graceful shutdown failed")
	}
}

func newFileStore(cfg config.Config) (domain.FileStore, error) {
	if cfg.StorageBackend == "s3" {
		return infrafile.NewS3Store(infrafile.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
	}
	return infrafile.NewLocalStore(cfg.UploadDir), nil
}
