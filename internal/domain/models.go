package domain

import "time"

// LevelName identifies a difficulty tier in the question set.
type LevelName string

const (
	LevelEasy       LevelName = "easy"
	LevelMedium     LevelName = "medium"
	LevelHard       LevelName = "hard"
	LevelImpossible LevelName = "impossible"
)

// Level is a named difficulty tier. Progression through levels is strictly sequential.
type Level struct {
	Name           LevelName `json:"name" yaml:"name"`
	Label          string    `json:"label" yaml:"label"`
	Difficulty     float64   `json:"difficulty" yaml:"difficulty"`
	TimeMultiplier float64   `json:"timeMultiplier" yaml:"timeMultiplier"`
}

// DefaultLevels returns the fixed four-tier ladder.
func DefaultLevels() []Level {
	return []Level{
		{Name: LevelEasy, Label: "سهل", Difficulty: 1.0, TimeMultiplier: 1.0},
		{Name: LevelMedium, Label: "متوسط", Difficulty: 1.5, TimeMultiplier: 0.8},
		{Name: LevelHard, Label: "صعب", Difficulty: 2.0, TimeMultiplier: 0.6},
		{Name: LevelImpossible, Label: "مستحيل", Difficulty: 3.0, TimeMultiplier: 0.4},
	}
}

// Question models a multiple-choice question. CorrectAnswer must match exactly
// one option after normalization.
type Question struct {
	Text          string    `json:"text" yaml:"text"`
	Options       []string  `json:"options" yaml:"options"`
	CorrectAnswer string    `json:"correctAnswer" yaml:"correctAnswer"`
	Level         LevelName `json:"level" yaml:"level"`
}

// QuestionSet is the whole question bank as loaded from its source.
type QuestionSet struct {
	Questions []Question `json:"questions" yaml:"questions"`
}

// PresentedOption is one rendered option of the active question.
type PresentedOption struct {
	Text       string `json:"text"`
	Eliminated bool   `json:"eliminated,omitempty"`
}

// PresentedQuestion is the client-facing view of the active question.
// The correct answer is never part of it.
type PresentedQuestion struct {
	Index     int               `json:"index"`
	Total     int               `json:"total"`
	Level     LevelName         `json:"level"`
	LevelName string            `json:"levelLabel"`
	Text      string            `json:"text"`
	Options   []PresentedOption `json:"options"`
	Seconds   int               `json:"seconds"`
}

// HelperKind names a one-time assist.
type HelperKind string

const (
	HelperFiftyFifty HelperKind = "fiftyFifty"
	HelperFreezeTime HelperKind = "freezeTime"
	HelperSkip       HelperKind = "skipQuestion"
)

// TimerState is the countdown snapshot of the active question.
type TimerState struct {
	RemainingSeconds int  `json:"remaining"`
	TotalSeconds     int  `json:"total"`
	IsFrozen         bool `json:"frozen"`
}

// Player identifies who is playing a session.
type Player struct {
	ID       string `json:"playerId"`
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
}

// AnswerOutcome summarizes how a single question resolved.
type AnswerOutcome struct {
	QuestionIndex int           `json:"questionIndex"`
	Selected      string        `json:"selected"`
	CorrectAnswer string        `json:"correctAnswer"`
	Correct       bool          `json:"correct"`
	TimedOut      bool          `json:"timedOut,omitempty"`
	Delta         int           `json:"delta"`
	Score         int           `json:"score"`
	Streak        int           `json:"streak"`
	ResponseTime  time.Duration `json:"responseTimeMs"`
}

// GameResult is the payload handed to the result-persistence endpoint at game end.
type GameResult struct {
	PlayerID       string        `json:"playerId"`
	DeviceID       string        `json:"deviceId"`
	SessionID      string        `json:"sessionId"`
	Name           string        `json:"name"`
	Avatar         string        `json:"avatar,omitempty"`
	Score          int           `json:"score"`
	CorrectAnswers int           `json:"correctAnswers"`
	WrongAnswers   int           `json:"wrongAnswers"`
	Skips          int           `json:"skips"`
	MaxStreak      int           `json:"maxStreak"`
	Level          LevelName     `json:"level"`
	Won            bool          `json:"won"`
	AttemptNumber  int           `json:"attemptNumber"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	AvgResponse    time.Duration `json:"avgResponseMs"`
	FastestAnswer  time.Duration `json:"fastestMs"`
	SlowestAnswer  time.Duration `json:"slowestMs"`
}

// Entry projects the result onto a leaderboard row.
func (r GameResult) Entry() LeaderboardEntry {
	return LeaderboardEntry{
		PlayerID: r.PlayerID,
		Name:     r.Name,
		Score:    r.Score,
		Level:    r.Level,
		Avatar:   r.Avatar,
		DeviceID: r.DeviceID,
		Attempt:  r.AttemptNumber,
	}
}

// LeaderboardMode selects how rankings are queried.
type LeaderboardMode string

const (
	ModeAll        LeaderboardMode = "all"
	ModeBest       LeaderboardMode = "best"
	ModeAttempt    LeaderboardMode = "attempt"
	ModeMaxAttempt LeaderboardMode = "maxAttempt"
)

// Valid reports whether m is a known mode.
func (m LeaderboardMode) Valid() bool {
	switch m {
	case ModeAll, ModeBest, ModeAttempt, ModeMaxAttempt:
		return true
	}
	return false
}

// LeaderboardQuery is what a leaderboard source is asked for. Attempt is only
// read in ModeAttempt; Limit <= 0 means no limit.
type LeaderboardQuery struct {
	Mode    LeaderboardMode
	Attempt int
	Limit   int
}

// LeaderboardEntry is one ranked player record.
type LeaderboardEntry struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Level    LevelName `json:"level"`
	Avatar   string    `json:"avatar,omitempty"`
	DeviceID string    `json:"deviceId"`
	Attempt  int       `json:"attempt"`
}

// Leaderboard captures an ordered ranking snapshot.
type Leaderboard struct {
	Mode       LeaderboardMode    `json:"mode"`
	Attempt    int                `json:"attempt,omitempty"`
	MaxAttempt int                `json:"maxAttempt,omitempty"`
	Entries    []LeaderboardEntry `json:"entries"`
	FetchedAt  time.Time          `json:"fetchedAt"`
	Cached     bool               `json:"cached"`
}

// Preferences are per-device settings persisted locally.
type Preferences struct {
	DeviceID     string  `json:"deviceId"`
	AudioEnabled bool    `json:"audioEnabled"`
	Volume       float64 `json:"volume"`
	Theme        string  `json:"theme"`
	Avatar       string  `json:"avatar,omitempty"`
}

// DefaultPreferences returns the safe fallback used when nothing valid is stored.
func DefaultPreferences(deviceID string) Preferences {
	return Preferences{
		DeviceID:     deviceID,
		AudioEnabled: true,
		Volume:       0.7,
		Theme:        "dark",
	}
}
