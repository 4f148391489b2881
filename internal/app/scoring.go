package app

import (
	"fmt"

	"trivia-game-service/internal/domain"
)

// ScoringConfig holds the score constants.
type ScoringConfig struct {
	StartingScore int                       `yaml:"startingScore"`
	Reward        int                       `yaml:"reward"`
	Penalty       int                       `yaml:"penalty"`
	HelperCosts   map[domain.HelperKind]int `yaml:"helperCosts"`
	SkipBase      int                       `yaml:"skipBase"`
	SkipIncrement int                       `yaml:"skipIncrement"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		StartingScore: 100,
		Reward:        100,
		Penalty:       50,
		HelperCosts: map[domain.HelperKind]int{
			domain.HelperFiftyFifty: 100,
			domain.HelperFreezeTime: 100,
		},
	}
}

// ScoreStats is a read-only copy of the scoreboard counters.
type ScoreStats struct {
	Score     int `json:"score"`
	Correct   int `json:"correct"`
	Wrong     int `json:"wrong"`
	Skips     int `json:"skips"`
	Streak    int `json:"streak"`
	MaxStreak int `json:"maxStreak"`
}

// Scoreboard tracks score, streaks and answer counters. Score never drops below zero.
type Scoreboard struct {
	cfg         ScoringConfig
	stats       ScoreStats
	skipsBought int
}

func NewScoreboard(cfg ScoringConfig) *Scoreboard {
	return &Scoreboard{cfg: cfg, stats: ScoreStats{Score: max(0, cfg.StartingScore)}}
}

// Correct records a correct answer and returns the applied score delta.
func (b *Scoreboard) Correct() int {
	b.stats.Correct++
	b.stats.Streak++
	b.stats.MaxStreak = max(b.stats.MaxStreak, b.stats.Streak)
	return b.add(b.cfg.Reward)
}

// Incorrect records a wrong answer and returns the applied (clamped) delta.
func (b *Scoreboard) Incorrect() int {
	b.stats.Wrong++
	b.stats.Streak = 0
	return b.add(-b.cfg.Penalty)
}

// Skipped counts a question that was never answered.
func (b *Scoreboard) Skipped() {
	b.stats.Skips++
}

// HelperCost returns what kind costs right now.
func (b *Scoreboard) HelperCost(kind domain.HelperKind) int {
	if kind == domain.HelperSkip {
		return b.cfg.SkipBase + b.cfg.SkipIncrement*b.skipsBought
	}
	return b.cfg.HelperCosts[kind]
}

// Spend deducts the cost of kind, or fails with ErrInsufficientScore leaving
// the score untouched.
func (b *Scoreboard) Spend(kind domain.HelperKind) (int, error) {
	cost := b.HelperCost(kind)
	if b.stats.Score < cost {
		return cost, fmt.Errorf("%w: %s costs %d, have %d", domain.ErrInsufficientScore, kind, cost, b.stats.Score)
	}
	b.stats.Score -= cost
	if kind == domain.HelperSkip {
		b.skipsBought++
	}
	return cost, nil
}

func (b *Scoreboard) Stats() ScoreStats { return b.stats }

func (b *Scoreboard) add(delta int) int {
	before := b.stats.Score
	b.stats.Score = max(0, before+delta)
	return b.stats.Score - before
}
