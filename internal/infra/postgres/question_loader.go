package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-game-service/internal/domain"
)

// QuestionLoader loads the question set from Postgres. Options are stored as a
// JSONB array.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) (domain.QuestionSet, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT level, text, options, correct_answer FROM questions ORDER BY position, id`)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var set domain.QuestionSet
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.Level, &q.Text, &raw, &q.CorrectAnswer); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("unmarshal options: %w", err)
		}
		set.Questions = append(set.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load questions: %w", err)
	}
	if len(set.Questions) == 0 {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}
	return set, nil
}

// ReplaceQuestions swaps the stored set for set in one transaction.
func (l *QuestionLoader) ReplaceQuestions(ctx context.Context, set domain.QuestionSet) error {
	return l.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions`); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		batch := &pgx.Batch{}
		for i, q := range set.Questions {
			raw, err := json.Marshal(q.Options)
			if err != nil {
				return fmt.Errorf("encode options %d: %w", i, err)
			}
			batch.Queue(
				`INSERT INTO questions (level, text, options, correct_answer, position) VALUES ($1, $2, $3, $4, $5)`,
				string(q.Level), q.Text, raw, q.CorrectAnswer, i,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range set.Questions {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert question: %w", err)
			}
		}
		return br.Close()
	})
}
