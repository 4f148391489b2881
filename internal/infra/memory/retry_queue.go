package memory

import (
	"context"
	"sync"

	"trivia-game-service/internal/domain"
)

// RetryQueue holds results whose save failed, oldest first.
type RetryQueue struct {
	mu    sync.Mutex
	items []domain.GameResult
}

func NewRetryQueue() *RetryQueue {
	return &RetryQueue{}
}

func (q *RetryQueue) Push(_ context.Context, result domain.GameResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, result)
	return nil
}

func (q *RetryQueue) Pop(context.Context) (domain.GameResult, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.GameResult{}, false, nil
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true, nil
}

func (q *RetryQueue) Len(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}
