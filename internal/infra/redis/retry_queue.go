package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"trivia-game-service/internal/domain"
)

const retryQueueKey = "trivia:results:retry"

// RetryQueue is a Redis list of results whose save failed. Entries survive a
// process restart, so a replacement instance picks them up.
type RetryQueue struct {
	client *redis.Client
}

func NewRetryQueue(client *redis.Client) *RetryQueue {
	return &RetryQueue{client: client}
}

func (q *RetryQueue) Push(ctx context.Context, result domain.GameResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, retryQueueKey, raw).Err()
}

func (q *RetryQueue) Pop(ctx context.Context) (domain.GameResult, bool, error) {
	raw, err := q.client.LPop(ctx, retryQueueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.GameResult{}, false, nil
	}
	if err != nil {
		return domain.GameResult{}, false, err
	}
	var result domain.GameResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.GameResult{}, false, err
	}
	return result, true, nil
}

func (q *RetryQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, retryQueueKey).Result()
	return int(n), err
}
