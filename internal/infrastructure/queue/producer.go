package queue

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// ImportTask is the queue payload: just enough to re-read everything else
// from the import state store.
type ImportTask struct {
	JobID   string `json:"job_id"`
	Attempt int    `json:"attempt"`
}

type Producer struct {
	client *redis.Client
	cfg    Config
}

func NewProducer(redisClient *RedisClient) *Producer {
	return &Producer{client: redisClient.client, cfg: redisClient.cfg}
}

func (p *Producer) EnqueueImport(ctx context.Context, jobID string) error {
	return p.push(ctx, ImportTask{JobID: jobID})
}

func (p *Producer) push(ctx context.Context, task ImportTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.client.LPush(ctx, p.cfg.QueueName, data).Err()
}
