package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-game-service/internal/domain"
)

func TestResultStoreAssignsAttempts(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	first, err := store.SaveResult(ctx, domain.GameResult{SessionID: "s1", DeviceID: "d1", Score: 300})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second, _ := store.SaveResult(ctx, domain.GameResult{SessionID: "s2", DeviceID: "d1", Score: 100})
	other, _ := store.SaveResult(ctx, domain.GameResult{SessionID: "s3", DeviceID: "d2", Score: 200})
	if first.AttemptNumber != 1 || second.AttemptNumber != 2 || other.AttemptNumber != 1 {
		t.Fatalf("unexpected attempts %d %d %d", first.AttemptNumber, second.AttemptNumber, other.AttemptNumber)
	}

	dup, _ := store.SaveResult(ctx, domain.GameResult{SessionID: "s1", DeviceID: "d1", Score: 999})
	if dup.Score != 300 {
		t.Fatalf("expected duplicate session save to be ignored, got %+v", dup)
	}

	highest, _ := store.MaxAttempt(ctx)
	if highest != 2 {
		t.Fatalf("expected max attempt 2, got %d", highest)
	}
}

func TestResultStoreQueryModes(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for i, r := range []domain.GameResult{
		{SessionID: "a", DeviceID: "d1", Name: "A", Score: 100, FinishedAt: base},
		{SessionID: "b", DeviceID: "d1", Name: "A", Score: 500, FinishedAt: base.Add(time.Minute)},
		{SessionID: "c", DeviceID: "d2", Name: "B", Score: 500, FinishedAt: base.Add(-time.Minute)},
	} {
		if _, err := store.SaveResult(ctx, r); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := store.Query(ctx, domain.LeaderboardQuery{Mode: domain.ModeAll})
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(all) != 3 || all[0].DeviceID != "d2" || all[2].Score != 100 {
		t.Fatalf("unexpected order: %+v", all)
	}

	attempt, _ := store.Query(ctx, domain.LeaderboardQuery{Mode: domain.ModeAttempt, Attempt: 2})
	if len(attempt) != 1 || attempt[0].Score != 500 || attempt[0].Attempt != 2 {
		t.Fatalf("unexpected attempt rows: %+v", attempt)
	}

	limited, _ := store.Query(ctx, domain.LeaderboardQuery{Mode: domain.ModeBest, Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}

	if _, err := store.Query(ctx, domain.LeaderboardQuery{Mode: "weekly"}); !errors.Is(err, domain.ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestRetryQueueFIFO(t *testing.T) {
	q := NewRetryQueue()
	ctx := context.Background()
	_ = q.Push(ctx, domain.GameResult{SessionID: "1"})
	_ = q.Push(ctx, domain.GameResult{SessionID: "2"})

	got, ok, _ := q.Pop(ctx)
	if !ok || got.SessionID != "1" {
		t.Fatalf("expected first in first out, got %+v", got)
	}
	if n, _ := q.Len(ctx); n != 1 {
		t.Fatalf("expected one left, got %d", n)
	}
	_, _, _ = q.Pop(ctx)
	if _, ok, _ := q.Pop(ctx); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestLeaderboardCacheExpiry(t *testing.T) {
	cache := NewLeaderboardCache()
	now := time.Unix(1700000000, 0)
	cache.clock = func() time.Time { return now }
	ctx := context.Background()

	_ = cache.Set(ctx, "all", domain.Leaderboard{Mode: domain.ModeAll}, 2*time.Minute)
	_ = cache.Set(ctx, "best", domain.Leaderboard{Mode: domain.ModeBest}, 10*time.Minute)
	if _, ok, _ := cache.Get(ctx, "all"); !ok {
		t.Fatalf("expected hit")
	}

	now = now.Add(3 * time.Minute)
	if _, ok, _ := cache.Get(ctx, "all"); ok {
		t.Fatalf("expected expiry")
	}
	now = now.Add(10 * time.Minute)
	_ = cache.Sweep(ctx)
	if cache.Len() != 0 {
		t.Fatalf("expected sweep to drop expired entries, %d left", cache.Len())
	}
}
