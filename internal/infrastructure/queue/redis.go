package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	PoolSize  int
	QueueName string
	DLQSuffix string
}

type RedisClient struct {
	client *redis.Client
	cfg    Config
}

func NewRedisClient(cfg Config) (*RedisClient, error) {
	if cfg.QueueName == "" {
		cfg.QueueName = "import_jobs"
	}
	if cfg.DLQSuffix == "" {
		cfg.DLQSuffix = ":dead"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisClient{client: rdb, cfg: cfg}, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
