package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-game-service/internal/domain"
)

// ResultStore keeps finished games in memory and answers leaderboard queries
// over them. It mirrors the Postgres store for local play and tests.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.GameResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// SaveResult stores result. A zero AttemptNumber is replaced with one more than
// the number of results already stored for the device.
func (s *ResultStore) SaveResult(_ context.Context, result domain.GameResult) (domain.GameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.results {
		if existing.SessionID != "" && existing.SessionID == result.SessionID {
			return existing, nil
		}
	}
	if result.AttemptNumber <= 0 {
		result.AttemptNumber = 1
		for _, existing := range s.results {
			if existing.DeviceID == result.DeviceID {
				result.AttemptNumber++
			}
		}
	}
	s.results = append(s.results, result)
	return result, nil
}

func (s *ResultStore) Query(_ context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, error) {
	if !q.Mode.Valid() || q.Mode == domain.ModeMaxAttempt {
		return nil, domain.ErrInvalidMode
	}
	s.mu.RLock()
	rows := make([]domain.GameResult, 0, len(s.results))
	for _, r := range s.results {
		if q.Mode == domain.ModeAttempt && r.AttemptNumber != q.Attempt {
			continue
		}
		rows = append(rows, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].FinishedAt.Before(rows[j].FinishedAt)
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	entries := make([]domain.LeaderboardEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.Entry()
	}
	return entries, nil
}

// MaxAttempt is the highest attempt number recorded by any device.
func (s *ResultStore) MaxAttempt(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := 0
	for _, r := range s.results {
		highest = max(highest, r.AttemptNumber)
	}
	return highest, nil
}
