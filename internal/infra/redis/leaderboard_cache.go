package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-game-service/internal/domain"
)

// LeaderboardCache stores leaderboard snapshots as JSON strings with a TTL.
// Redis expires keys on its own, so there is nothing to sweep.
type LeaderboardCache struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

func (c *LeaderboardCache) Get(ctx context.Context, key string) (domain.Leaderboard, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Leaderboard{}, false, nil
	}
	if err != nil {
		return domain.Leaderboard{}, false, err
	}
	var board domain.Leaderboard
	if err := json.Unmarshal(raw, &board); err != nil {
		// treat a garbled entry as a miss; the next Set overwrites it
		return domain.Leaderboard{}, false, nil
	}
	return board, true, nil
}

func (c *LeaderboardCache) Set(ctx context.Context, key string, board domain.Leaderboard, ttl time.Duration) error {
	raw, err := json.Marshal(board)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), raw, ttl).Err()
}

func (c *LeaderboardCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *LeaderboardCache) key(key string) string {
	return "trivia:leaderboard:" + key
}
