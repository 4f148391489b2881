package app

import (
	"fmt"

	"trivia-game-service/internal/domain"
)

// QuestionBank indexes a loaded question set by level. It is read-only after
// construction and may be shared between sessions.
type QuestionBank struct {
	byLevel map[domain.LevelName][]domain.Question
	size    int
}

func NewQuestionBank(set domain.QuestionSet) *QuestionBank {
	bank := &QuestionBank{byLevel: make(map[domain.LevelName][]domain.Question)}
	for _, q := range set.Questions {
		bank.byLevel[q.Level] = append(bank.byLevel[q.Level], q)
		bank.size++
	}
	return bank
}

// LevelQuestions returns a copy of every question tagged with level.
func (b *QuestionBank) LevelQuestions(level domain.LevelName) ([]domain.Question, error) {
	questions := b.byLevel[level]
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyLevel, level)
	}
	out := make([]domain.Question, len(questions))
	copy(out, questions)
	return out, nil
}

// Size is the total number of loaded questions.
func (b *QuestionBank) Size() int {
	if b == nil {
		return 0
	}
	return b.size
}
