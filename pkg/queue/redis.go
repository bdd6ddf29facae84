package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// blockTimeout bounds BLPOP so the worker notices shutdown.
const blockTimeout = 5 * time.Second

// RedisQueue enqueues and dequeues jobs via Redis lists.
type RedisQueue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisQueue creates a new Redis-backed job queue.
func NewRedisQueue(client *redis.Client, logger *zap.Logger) *RedisQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{client: client, logger: logger}
}

// EnqueueEmail enqueues an email job.
func (q *RedisQueue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	job, raw, err := NewEmailJob(payload)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// Dequeue pops the next email job.
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, blockTimeout, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// DeadLetter pushes job to the DLQ with the failure recorded.
func (q *RedisQueue) DeadLetter(ctx context.Context, job *Job, cause error) error {
	raw, err := deadLetterBody(job, cause)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		return fmt.Errorf("dlq push: %w", err)
	}
	q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}

// Close is a no-op; the redis client is owned by the caller.
func (q *RedisQueue) Close() error { return nil }
