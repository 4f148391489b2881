package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-game-service/internal/domain"
)

// QuestionLoader fetches the question set from a backing store (file, Postgres).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) (domain.QuestionSet, error)
}

const questionsKey = "questions"

// QuestionRepository caches the question set with a TTL so new sessions do not
// hit the backing store every time.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu        sync.RWMutex
	rnd       *rand.Rand
	set       domain.QuestionSet
	expiresAt time.Time
	loaded    bool
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context) (domain.QuestionSet, error) {
	if set, ok := r.cached(); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(questionsKey, func() (interface{}, error) {
		if set, ok := r.cached(); ok {
			return set, nil
		}
		set, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		if len(set.Questions) == 0 {
			return domain.QuestionSet{}, domain.ErrQuestionsNotFound
		}

		r.mu.Lock()
		r.set = set
		r.loaded = true
		r.expiresAt = r.clock().Add(r.ttlWithJitter())
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// Invalidate drops the cached set; the next call reloads it.
func (r *QuestionRepository) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.mu.Unlock()
}

func (r *QuestionRepository) cached() (domain.QuestionSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return domain.QuestionSet{}, false
	}
	// ttl <= 0 keeps the set for the life of the process.
	if r.ttl > 0 && !r.expiresAt.After(r.clock()) {
		return domain.QuestionSet{}, false
	}
	return r.set, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed set (tests, demos).
type StaticQuestionLoader struct {
	set domain.QuestionSet
}

func NewStaticQuestionLoader(set domain.QuestionSet) *StaticQuestionLoader {
	return &StaticQuestionLoader{set: set}
}

func (l *StaticQuestionLoader) LoadQuestions(context.Context) (domain.QuestionSet, error) {
	if len(l.set.Questions) == 0 {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}
	return l.set, nil
}
