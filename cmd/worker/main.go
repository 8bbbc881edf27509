// The worker binary runs the import consumer without the HTTP surface, for
// deployments that scale processing separately from the API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	app "github.com/hrpanel/bulk-import/internal/application/importing"
	"github.com/hrpanel/bulk-import/internal/config"
	domain "github.com/hrpanel/bulk-import/internal/domain/importing"
	infrafile "github.com/hrpanel/bulk-import/internal/infrastructure/file"
	"github.com/hrpanel/bulk-import/internal/infrastructure/queue"
	"github.com/hrpanel/bulk-import/internal/infrastructure/repository"
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

	processor := app.NewProcessor(
		repository.NewImportJobRepository(db),
		files,
		repository.NewTemplateRepository(db),
		repository.NewSubmissionBatchRepository(pool),
		app.ProcessorConfig{
			ChunkSize:       cfg.ChunkSize,
			ChunkWorkers:    cfg.ChunkWorkers,
			ChunkTimeout:    cfg.ChunkTimeout,
			MaxStoredErrors: cfg.MaxStoredErrors,
		},
		log,
	)

	ctx, stop := context.WithCancel(context.Background())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		stop()
	}()

	consumer := queue.NewConsumer(redisClient, cfg.TaskMaxAttempts)
	err = consumer.Consume(ctx, func(ctx context.Context, task queue.ImportTask) error {
		if err := processor.Process(ctx, task.JobID); err != nil {
			if errors.Is(err, app.ErrTransient) {
				return fmt.Errorf("%w: %v", queue.ErrRetry, err)
			}
			return err
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("consumer stopped")
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
