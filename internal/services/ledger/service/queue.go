package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	OVERRIDE_RETRY_QUEUE       = "ledger:override-retry"
	OVERRIDE_DEAD_LETTER_QUEUE = "ledger:override-retry:dead"
)

// OverrideQueue holds override propagations that failed after the downline
// credit committed. Pop returns nil, nil when the queue is empty.
type OverrideQueue interface {
	Push(ctx context.Context, job OverrideJob) error
	Pop(ctx context.Context) (*OverrideJob, error)
	DeadLetter(ctx context.Context, job OverrideJob) error
}

// RedisOverrideQueue is a FIFO on a Redis list: LPUSH to enqueue, RPOP to
// dequeue.
type RedisOverrideQueue struct {
	redis *redis.Client
}

func NewRedisOverrideQueue(client *redis.Client) *RedisOverrideQueue {
	return &RedisOverrideQueue{redis: client}
}

func (q *RedisOverrideQueue) Push(ctx context.Context, job OverrideJob) error {
	return q.push(ctx, OVERRIDE_RETRY_QUEUE, job)
}

func (q *RedisOverrideQueue) DeadLetter(ctx context.Context, job OverrideJob) error {
	return q.push(ctx, OVERRIDE_DEAD_LETTER_QUEUE, job)
}

func (q *RedisOverrideQueue) push(ctx context.Context, key string, job OverrideJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal override job: %w", err)
	}
	if err := q.redis.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to push override job to %s: %w", key, err)
	}
	return nil
}

func (q *RedisOverrideQueue) Pop(ctx context.Context) (*OverrideJob, error) {
	val, err := q.redis.RPop(ctx, OVERRIDE_RETRY_QUEUE).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop override job: %w", err)
	}

	var job OverrideJob
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return nil, fmt.Errorf("failed to decode override job: %w", err)
	}
	return &job, nil
}

func (q *RedisOverrideQueue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, OVERRIDE_RETRY_QUEUE).Result()
}

type nopQueue struct{}

func (nopQueue) Push(context.Context, OverrideJob) error        { return nil }
func (nopQueue) Pop(context.Context) (*OverrideJob, error)      { return nil, nil }
func (nopQueue) DeadLetter(context.Context, OverrideJob) error { return nil }
