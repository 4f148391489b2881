package app

import (
	"time"

	"trivia-game-service/internal/domain"
)

// EventType names a session event. Lifecycle types double as telemetry names.
type EventType string

const (
	EventGameStarted     EventType = "game_started"
	EventQuestion        EventType = "question"
	EventQuestionSkipped EventType = "question_skipped"
	EventTick            EventType = "tick"
	EventAnswered        EventType = "question_answered"
	EventScore           EventType = "score"
	EventHelperApplied   EventType = "helper_applied"
	EventLevelCompleted  EventType = "level_completed"
	EventGameOver        EventType = "game_over"
)

// Event is emitted by a Session on its owning goroutine.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"sessionId"`
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// EventSink receives session events. Implementations must not block.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a func to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Publish(e Event) { f(e) }

// MultiSink fans one event out to several sinks.
type MultiSink []EventSink

func (m MultiSink) Publish(e Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Publish(e)
		}
	}
}

// ResultRecorder hands a finished game to the persistence collaborator.
// Record must return immediately; delivery failures are the recorder's concern.
type ResultRecorder interface {
	Record(result domain.GameResult)
}

// ScoreChange is the payload of EventScore.
type ScoreChange struct {
	Old    int    `json:"old"`
	New    int    `json:"new"`
	Reason string `json:"reason"`
}

// LevelSummary is the payload of EventLevelCompleted.
type LevelSummary struct {
	Level     domain.LevelName `json:"level"`
	NextLevel domain.LevelName `json:"nextLevel,omitempty"`
	Score     int              `json:"score"`
	Correct   int              `json:"correctAnswers"`
	Wrong     int              `json:"wrongAnswers"`
	Duration  time.Duration    `json:"durationMs"`
}

// HelperResult is the payload of EventHelperApplied.
type HelperResult struct {
	Kind       domain.HelperKind `json:"kind"`
	Cost       int               `json:"cost"`
	Score      int               `json:"score"`
	Eliminated []string          `json:"eliminated,omitempty"`
}

// SkippedQuestion is the payload of EventQuestionSkipped.
type SkippedQuestion struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}
