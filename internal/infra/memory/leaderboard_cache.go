package memory

import (
	"context"
	"sync"
	"time"

	"trivia-game-service/internal/domain"
)

// LeaderboardCache is a key to leaderboard map with per-entry expiry.
type LeaderboardCache struct {
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]cachedBoard
}

type cachedBoard struct {
	board     domain.Leaderboard
	expiresAt time.Time
}

func NewLeaderboardCache() *LeaderboardCache {
	return &LeaderboardCache{clock: time.Now, entries: make(map[string]cachedBoard)}
}

func (c *LeaderboardCache) Get(_ context.Context, key string) (domain.Leaderboard, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return domain.Leaderboard{}, false, nil
	}
	if !entry.expiresAt.After(c.clock()) {
		delete(c.entries, key)
		return domain.Leaderboard{}, false, nil
	}
	return entry.board, true, nil
}

func (c *LeaderboardCache) Set(_ context.Context, key string, board domain.Leaderboard, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedBoard{board: board, expiresAt: c.clock().Add(ttl)}
	return nil
}

func (c *LeaderboardCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Sweep removes every expired entry.
func (c *LeaderboardCache) Sweep(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	for key, entry := range c.entries {
		if !entry.expiresAt.After(now) {
			delete(c.entries, key)
		}
	}
	return nil
}

func (c *LeaderboardCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
