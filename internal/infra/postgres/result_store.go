package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trivia-game-service/internal/domain"
)

// ResultStore persists finished games and answers leaderboard queries.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// SaveResult inserts result, assigning the next attempt number for its device
// when AttemptNumber is zero. Saving a session twice keeps the first row.
func (s *ResultStore) SaveResult(ctx context.Context, result domain.GameResult) (domain.GameResult, error) {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		// serialize attempt numbering per device
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, result.DeviceID); err != nil {
			return err
		}
		if result.AttemptNumber <= 0 {
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) + 1 FROM results WHERE device_id = $1`, result.DeviceID,
			).Scan(&result.AttemptNumber); err != nil {
				return err
			}
		}

		var attempt int
		err := tx.QueryRow(ctx, `
			INSERT INTO results (
				session_id, player_id, device_id, name, avatar, score,
				correct_answers, wrong_answers, skips, max_streak, level, won,
				attempt_number, started_at, finished_at,
				avg_response_ms, fastest_ms, slowest_ms
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			ON CONFLICT (session_id) DO NOTHING
			RETURNING attempt_number`,
			result.SessionID, result.PlayerID, result.DeviceID, result.Name, result.Avatar, result.Score,
			result.CorrectAnswers, result.WrongAnswers, result.Skips, result.MaxStreak, string(result.Level), result.Won,
			result.AttemptNumber, result.StartedAt, result.FinishedAt,
			result.AvgResponse.Milliseconds(), result.FastestAnswer.Milliseconds(), result.SlowestAnswer.Milliseconds(),
		).Scan(&attempt)
		if errors.Is(err, pgx.ErrNoRows) {
			return tx.QueryRow(ctx,
				`SELECT attempt_number FROM results WHERE session_id = $1`, result.SessionID,
			).Scan(&result.AttemptNumber)
		}
		return err
	})
	if err != nil {
		return domain.GameResult{}, fmt.Errorf("save result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) Query(ctx context.Context, q domain.LeaderboardQuery) ([]domain.LeaderboardEntry, error) {
	if !q.Mode.Valid() || q.Mode == domain.ModeMaxAttempt {
		return nil, domain.ErrInvalidMode
	}

	var (
		sb   strings.Builder
		args []interface{}
	)
	sb.WriteString(`SELECT player_id, name, score, level, avatar, device_id, attempt_number FROM results`)
	if q.Mode == domain.ModeAttempt {
		args = append(args, q.Attempt)
		sb.WriteString(` WHERE attempt_number = $1`)
	}
	sb.WriteString(` ORDER BY score DESC, finished_at ASC`)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.Name, &e.Score, &e.Level, &e.Avatar, &e.DeviceID, &e.Attempt); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *ResultStore) MaxAttempt(ctx context.Context) (int, error) {
	var highest int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(attempt_number), 0) FROM results`).Scan(&highest); err != nil {
		return 0, fmt.Errorf("max attempt: %w", err)
	}
	return highest, nil
}
