package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
)

const questionsKey = "trivia:questions"

// QuestionRepository caches the question set in Redis and falls back to a
// loader on cache miss. Each question is one hash field:
// HSET trivia:questions {level}:{index} {json}
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context) (domain.QuestionSet, error) {
	if set, ok := r.fromCache(ctx); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.fromCache(ctx); ok {
			return set, nil
		}

		set, err := r.loader.LoadQuestions(ctx)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		fields := make(map[string]interface{}, len(set.Questions))
		for i, q := range set.Questions {
			raw, err := json.Marshal(q)
			if err != nil {
				return domain.QuestionSet{}, fmt.Errorf("encode question %d: %w", i, err)
			}
			fields[fmt.Sprintf("%s:%06d", q.Level, i)] = raw
		}
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, questionsKey)
		if len(fields) > 0 {
			pipe.HSet(ctx, questionsKey, fields)
		}
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, questionsKey, ttl)
		}
		// a failed write only costs a reload on the next miss
		_, _ = pipe.Exec(ctx)

		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) fromCache(ctx context.Context) (domain.QuestionSet, bool) {
	fields, err := r.client.HGetAll(ctx, questionsKey).Result()
	if err != nil || len(fields) == 0 {
		return domain.QuestionSet{}, false
	}
	set, err := buildSetFromCache(fields)
	if err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func buildSetFromCache(fields map[string]string) (domain.QuestionSet, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return fieldIndex(keys[i]) < fieldIndex(keys[j]) })

	set := domain.QuestionSet{Questions: make([]domain.Question, 0, len(keys))}
	for _, k := range keys {
		var q domain.Question
		if err := json.Unmarshal([]byte(fields[k]), &q); err != nil {
			return domain.QuestionSet{}, err
		}
		set.Questions = append(set.Questions, q)
	}
	return set, nil
}

func fieldIndex(field string) int {
	i := strings.LastIndexByte(field, ':')
	n, _ := strconv.Atoi(field[i+1:])
	return n
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
