package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trivia-game-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleSet())}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.GetQuestions(context.Background()); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuestions(context.Background()); err != nil {
		t.Fatalf("get questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuestionLoader: NewStaticQuestionLoader(sampleSet())}
	repo := NewQuestionRepository(loader, time.Minute)
	now := time.Unix(1700000000, 0)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuestions(context.Background()); err != nil {
		t.Fatalf("get questions: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuestions(context.Background()); err != nil {
		t.Fatalf("get questions after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestQuestionRepositoryEmptySet(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(domain.QuestionSet{}), time.Minute)
	_, err := repo.GetQuestions(context.Background())
	if !errors.Is(err, domain.ErrQuestionsNotFound) {
		t.Fatalf("expected ErrQuestionsNotFound, got %v", err)
	}
}

func TestLoadQuestionFileFormats(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "questions.json")
	yamlPath := filepath.Join(dir, "questions.yaml")

	jsonDoc := `[{"text":"Capital of Egypt?","options":["Cairo","Giza"],"correctAnswer":"Cairo","level":"easy"}]`
	yamlDoc := "questions:\n  - text: Largest planet?\n    options: [Jupiter, Mars]\n    correctAnswer: Jupiter\n    level: hard\n"
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	set, err := LoadQuestionFile(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if len(set.Questions) != 1 || set.Questions[0].Level != domain.LevelEasy {
		t.Fatalf("unexpected json set: %+v", set)
	}

	set, err = NewFileQuestionLoader(yamlPath).LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if set.Questions[0].CorrectAnswer != "Jupiter" || len(set.Questions[0].Options) != 2 {
		t.Fatalf("unexpected yaml set: %+v", set)
	}

	if _, err := LoadQuestionFile(filepath.Join(dir, "missing.json")); !errors.Is(err, domain.ErrQuestionsNotFound) {
		t.Fatalf("expected ErrQuestionsNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
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
	return domain.QuestionSet{
		Questions: []domain.Question{
			{
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4"},
				CorrectAnswer: "4",
				Level:         domain.LevelEasy,
			},
		},
	}
}
