package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"trivia-game-service/internal/domain"
	"trivia-game-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{QuestionLoader: memory.NewStaticQuestionLoader(sampleSet())}
	repo := NewQuestionRepository(client, loader, time.Minute)

	set, err := repo.GetQuestions(context.Background())
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists(questionsKey) {
		t.Fatalf("expected questions hash to be written")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuestions(context.Background())
	if err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Questions) != len(set.Questions) {
		t.Fatalf("expected %d cached questions, got %d", len(set.Questions), len(cached.Questions))
	}
	for i := range set.Questions {
		if cached.Questions[i].Text != set.Questions[i].Text {
			t.Fatalf("question %d out of order: %q", i, cached.Questions[i].Text)
		}
	}

	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetQuestions(context.Background()); err != nil {
		t.Fatalf("get questions after ttl: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuestionLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) (domain.QuestionSet, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuestionLoader.LoadQuestions(ctx)
}

func sampleSet() domain.QuestionSet {
	var set domain.QuestionSet
	for _, q := range []struct {
		text  string
		level domain.LevelName
	}{
		{"What is 2 + 2?", domain.LevelEasy},
		{"Capital of Japan?", domain.LevelMedium},
		{"Speed of light in km/s?", domain.LevelHard},
		{"Year the Library of Alexandria was founded?", domain.LevelImpossible},
		{"How many legs does a spider have?", domain.LevelEasy},
	} {
		set.Questions = append(set.Questions, domain.Question{
			Text:          q.text,
			Options:       []string{"a", "b", "c"},
			CorrectAnswer: "a",
			Level:         q.level,
		})
	}
	return set
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
