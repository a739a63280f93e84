package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueKey is the Redis list holding pending submission ids.
const DefaultQueueKey = "results:submissions"

// RedisQueue is a FIFO list: LPUSH on enqueue, BRPOP on dequeue.
type RedisQueue struct {
	redis *redis.Client
	key   string
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue builds a queue on key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultQueueKey
	}
	return &RedisQueue{redis: client, key: key}
}

func (q *RedisQueue) Enqueue(ctx context.Context, submissionID string) error {
	if err := q.redis.LPush(ctx, q.key, submissionID).Err(); err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.redis.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("dequeue submission: %w", err)
	}
	// BRPOP replies [key, value].
	if len(res) != 2 {
		return "", false, fmt.Errorf("dequeue submission: unexpected reply %v", res)
	}
	return res[1], true, nil
}

// Len reports the pending depth.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, q.key).Result()
}

// ChanQueue is an in-process queue for the memory storage driver and tests.
type ChanQueue struct {
	ch chan string
}

var _ Queue = (*ChanQueue)(nil)

func NewChanQueue(size int) *ChanQueue {
	if size <= 0 {
		size = 1024
	}
	return &ChanQueue{ch: make(chan string, size)}
}

func (q *ChanQueue) Enqueue(ctx context.Context, submissionID string) error {
	select {
	case q.ch <- submissionID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("enqueue submission: queue full")
	}
}

func (q *ChanQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case id := <-q.ch:
		return id, true, nil
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}
