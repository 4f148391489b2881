package leaderboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
)

// Source answers leaderboard queries, typically the result store.
type Source interface {
	Query(ctx context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, error)
	MaxAttempt(ctx context.Context) (int, error)
}

// Cache stores snapshots by key with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Leaderboard, bool, error)
	Set(ctx context.Context, key string, board domain.Leaderboard, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// sweeper is implemented by caches that do not expire entries on their own.
type sweeper interface {
	Sweep(ctx context.Context) error
}

// EventLoaded is emitted after every fetch that reached the source.
const EventLoaded app.EventType = "leaderboard_loaded"

// Loaded is the payload of EventLoaded.
type Loaded struct {
	Mode        domain.LeaderboardMode `json:"mode"`
	Attempt     int                    `json:"attemptNumber,omitempty"`
	PlayerCount int                    `json:"playerCount"`
}

const (
	DefaultTTL        = 2 * time.Minute
	DefaultMaxEntries = 100
	maxAttemptKey     = "max_attempt"
)

type Config struct {
	TTL           time.Duration
	MaxAttemptTTL time.Duration
	MaxEntries    int
}

// Client fetches rankings from a Source through a short-lived cache.
type Client struct {
	source Source
	cache  Cache
	events app.EventSink
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

func NewClient(source Source, cache Cache, events app.EventSink, cfg Config, log zerolog.Logger) *Client {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAttemptTTL <= 0 {
		cfg.MaxAttemptTTL = 5 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Client{
		source: source,
		cache:  cache,
		events: events,
		cfg:    cfg,
		log:    log.With().Str("component", "leaderboard").Logger(),
		now:    time.Now,
	}
}

// Fetch returns the leaderboard for mode, served from cache when fresh.
// attempt is only read in attempt mode; 0 or out of range selects the latest.
func (c *Client) Fetch(ctx context.Context, mode domain.LeaderboardMode, attempt int) (domain.Leaderboard, error) {
	if !mode.Valid() {
		return domain.Leaderboard{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
	if mode == domain.ModeMaxAttempt {
		return c.maxAttempt(ctx, true)
	}

	if mode == domain.ModeAttempt {
		latest, err := c.maxAttempt(ctx, true)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		if attempt <= 0 || attempt > latest.MaxAttempt {
			attempt = latest.MaxAttempt
		}
	} else {
		attempt = 0
	}

	key := CacheKey(mode, attempt)
	if board, ok := c.cached(ctx, key); ok {
		return board, nil
	}
	return c.load(ctx, key, mode, attempt)
}

// Refresh drops the cached entry for mode (and any expired entries) and loads
// it again from the source.
func (c *Client) Refresh(ctx context.Context, mode domain.LeaderboardMode, attempt int) (domain.Leaderboard, error) {
	if !mode.Valid() {
		return domain.Leaderboard{}, fmt.Errorf("%w: %q", domain.ErrInvalidMode, mode)
	}
	if s, ok := c.cache.(sweeper); ok {
		if err := s.Sweep(ctx); err != nil {
			c.log.Warn().Err(err).Msg("cache sweep failed")
		}
	}
	if mode == domain.ModeMaxAttempt {
		return c.maxAttempt(ctx, false)
	}
	if mode == domain.ModeAttempt {
		latest, err := c.maxAttempt(ctx, false)
		if err != nil {
			return domain.Leaderboard{}, err
		}
		if attempt <= 0 || attempt > latest.MaxAttempt {
			attempt = latest.MaxAttempt
		}
	} else {
		attempt = 0
	}
	key := CacheKey(mode, attempt)
	if err := c.cache.Delete(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
	return c.load(ctx, key, mode, attempt)
}

// Invalidate drops every snapshot a new result can change. Attempt-specific
// keys other than attempt expire on their own.
func (c *Client) Invalidate(ctx context.Context, attempt int) {
	keys := []string{CacheKey(domain.ModeAll, 0), CacheKey(domain.ModeBest, 0), maxAttemptKey}
	if attempt > 0 {
		keys = append(keys, CacheKey(domain.ModeAttempt, attempt))
	}
	for _, key := range keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache delete failed")
		}
	}
}

func (c *Client) load(ctx context.Context, key string, mode domain.LeaderboardMode, attempt int) (domain.Leaderboard, error) {
	entries, err := c.source.Query(ctx, domain.LeaderboardQuery{Mode: mode, Attempt: attempt})
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("fetch leaderboard %s: %w", key, err)
	}
	if mode == domain.ModeBest {
		entries = Dedupe(entries)
	}
	if len(entries) > c.cfg.MaxEntries {
		entries = entries[:c.cfg.MaxEntries]
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}

	board := domain.Leaderboard{Mode: mode, Attempt: attempt, Entries: entries, FetchedAt: c.now()}
	if err := c.cache.Set(ctx, key, board, c.cfg.TTL); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	c.emit(Loaded{Mode: mode, Attempt: attempt, PlayerCount: len(entries)})
	return board, nil
}

func (c *Client) maxAttempt(ctx context.Context, useCache bool) (domain.Leaderboard, error) {
	if useCache {
		if board, ok := c.cached(ctx, maxAttemptKey); ok {
			return board, nil
		}
	}
	highest, err := c.source.MaxAttempt(ctx)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("fetch max attempt: %w", err)
	}
	board := domain.Leaderboard{
		Mode:       domain.ModeMaxAttempt,
		MaxAttempt: max(1, highest),
		Entries:    []domain.LeaderboardEntry{},
		FetchedAt:  c.now(),
	}
	if err := c.cache.Set(ctx, maxAttemptKey, board, c.cfg.MaxAttemptTTL); err != nil {
		c.log.Warn().Err(err).Msg("cache write failed")
	}
	return board, nil
}

func (c *Client) cached(ctx context.Context, key string) (domain.Leaderboard, bool) {
	board, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return domain.Leaderboard{}, false
	}
	if !ok {
		return domain.Leaderboard{}, false
	}
	board.Cached = true
	return board, true
}

func (c *Client) emit(payload Loaded) {
	if c.events == nil {
		return
	}
	c.events.Publish(app.Event{Type: EventLoaded, At: c.now(), Payload: payload})
}

// CacheKey is mode, suffixed with the attempt number when one is selected.
func CacheKey(mode domain.LeaderboardMode, attempt int) string {
	if attempt > 0 {
		return string(mode) + "_" + strconv.Itoa(attempt)
	}
	return string(mode)
}

// Dedupe keeps the first entry per device, falling back to the player id when
// the device is unknown.
func Dedupe(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	seen := make(map[string]struct{}, len(entries))
	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		key := e.DeviceID
		if key == "" {
			key = e.PlayerID
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}
