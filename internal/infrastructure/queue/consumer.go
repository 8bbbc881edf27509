package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/hrpanel/bulk-import/internal/logger"
)

// TaskHandler processes one import task. Returning ErrRetry puts the task
// back on the queue with its attempt count bumped; any other error sends
// the payload to the dead-letter list.
type TaskHandler func(ctx context.Context, task ImportTask) error

// ErrRetry is returned by handlers for failures worth another queue-level
// attempt.
var ErrRetry = errors.New("task should be retried")

type Consumer struct {
	client      *redis.Client
	cfg         Config
	maxAttempts int
	log         zerolog.Logger
}

func NewConsumer(redisClient *RedisClient, maxAttempts int) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Consumer{
		client:      redisClient.client,
		cfg:         redisClient.cfg,
		maxAttempts: maxAttempts,
		log:         logger.Get(),
	}
}

// Consume blocks, popping tasks until ctx is cancelled. Single consumer by
// design; concurrency lives inside the import processor's chunk workers.
func (c *Consumer) Consume(ctx context.Context, handler TaskHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, 5*time.Second, c.cfg.QueueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error().Err(err).Str("queue", c.cfg.QueueName).Msg("failed to pop task")
			continue
		}
		if len(result) < 2 {
			continue
		}

		message := result[1]
		var task ImportTask
		if err := json.Unmarshal([]byte(message), &task); err != nil {
			c.log.Error().Err(err).Msg("malformed task payload")
			c.deadLetter(ctx, message)
			continue
		}

		if err := handler(ctx, task); err != nil {
			if errors.Is(err, ErrRetry) && task.Attempt+1 < c.maxAttempts {
				c.requeue(ctx, task)
				continue
			}
			c.log.Error().Err(err).Str("job_id", task.JobID).Int("attempt", task.Attempt).Msg("task failed")
			if errors.Is(err, ErrRetry) {
				c.deadLetter(ctx, message)
			}
		}
	}
}

func (c *Consumer) requeue(ctx context.Context, task ImportTask) {
	task.Attempt++
	data, err := json.Marshal(task)
	if err != nil {
		c.log.Error().Err(err).Str("job_id", task.JobID).Msg("failed to marshal retry task")
		return
	}
	if err := c.client.LPush(ctx, c.cfg.QueueName, data).Err(); err != nil {
		c.log.Error().Err(err).Str("job_id", task.JobID).Msg("failed to requeue task")
	}
}

func (c *Consumer) deadLetter(ctx context.Context, message string) {
	dlq := c.cfg.QueueName + c.cfg.DLQSuffix
	if err := c.client.LPush(ctx, dlq, message).Err(); err != nil {
		c.log.Error().Err(err).Str("dlq", dlq).Msg("failed to move task to DLQ")
	}
}
