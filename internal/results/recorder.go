package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trivia-game-service/internal/domain"
)

// Store persists a finished game and returns it with its attempt number set.
type Store interface {
	SaveResult(ctx context.Context, result domain.GameResult) (domain.GameResult, error)
}

// Queue holds results whose save failed until connectivity returns.
type Queue interface {
	Push(ctx context.Context, result domain.GameResult) error
	Pop(ctx context.Context) (domain.GameResult, bool, error)
	Len(ctx context.Context) (int, error)
}

const (
	DefaultTimeout       = 10 * time.Second
	DefaultRetryInterval = 30 * time.Second
)

// Recorder saves results without blocking the game. Each save runs in its own
// goroutine with a timeout and is tracked in a pending set until it finishes;
// failures go to the retry queue, which Run drains periodically.
type Recorder struct {
	store   Store
	queue   Queue
	timeout time.Duration
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
	onSaved func(domain.GameResult)
}

type Option func(*Recorder)

func WithTimeout(d time.Duration) Option { return func(r *Recorder) { r.timeout = d } }
func WithLogger(log zerolog.Logger) Option {
	return func(r *Recorder) { r.log = log.With().Str("component", "results").Logger() }
}

// WithOnSaved registers a callback run after every successful save, e.g. to
// invalidate leaderboard caches.
func WithOnSaved(fn func(domain.GameResult)) Option { return func(r *Recorder) { r.onSaved = fn } }

func NewRecorder(store Store, queue Queue, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		queue:   queue,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
		pending: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record starts saving result and returns immediately.
func (r *Recorder) Record(result domain.GameResult) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	key := result.SessionID

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		r.enqueue(result)
		return
	}
	r.pending[key] = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.pending, key)
			r.mu.Unlock()
			cancel()
		}()
		if err := r.save(ctx, result); err != nil {
			r.log.Warn().Err(err).Str("session_id", key).Msg("result save failed, queued for retry")
			r.enqueue(result)
		}
	}()
}

// Pending is the number of saves still in flight.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Drain retries queued results until the queue is empty or a save fails; the
// failed result goes back to the queue. It returns how many were saved.
func (r *Recorder) Drain(ctx context.Context) (int, error) {
	saved := 0
	for {
		result, ok, err := r.queue.Pop(ctx)
		if err != nil {
			return saved, fmt.Errorf("pop retry queue: %w", err)
		}
		if !ok {
			return saved, nil
		}
		saveCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err = r.save(saveCtx, result)
		cancel()
		if err != nil {
			if pushErr := r.queue.Push(context.Background(), result); pushErr != nil {
				r.log.Error().Err(pushErr).Str("session_id", result.SessionID).Msg("requeue failed, result dropped")
			}
			return saved, err
		}
		saved++
	}
}

// Run drains the retry queue every interval until ctx is done.
func (r *Recorder) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	r.log.Info().Dur("interval", interval).Msg("retry worker started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("retry worker stopped")
			return
		case <-ticker.C:
			n, err := r.Drain(ctx)
			if n > 0 {
				r.log.Info().Int("saved", n).Msg("retried results saved")
			}
			if err != nil && ctx.Err() == nil {
				r.log.Warn().Err(err).Msg("retry pass stopped early")
			}
		}
	}
}

// Close cancels in-flight saves, which then land in the retry queue, and
// waits for them to finish.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	for _, cancel := range r.pending {
		cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) save(ctx context.Context, result domain.GameResult) error {
	saved, err := r.store.SaveResult(ctx, result)
	if err != nil {
		return Classify(err)
	}
	r.log.Info().
		Str("session_id", saved.SessionID).
		Str("device_id", saved.DeviceID).
		Int("score", saved.Score).
		Int("attempt", saved.AttemptNumber).
		Msg("result saved")
	if r.onSaved != nil {
		r.onSaved(saved)
	}
	return nil
}

// Classify marks deadline errors as request timeouts.
func Classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrRequestTimeout, err)
	}
	return err
}

func (r *Recorder) enqueue(result domain.GameResult) {
	if err := r.queue.Push(context.Background(), result); err != nil {
		r.log.Error().Err(err).Str("session_id", result.SessionID).Msg("retry queue push failed, result dropped")
	}
}
