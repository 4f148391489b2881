package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a game session has not been initialized.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrQuestionsNotFound indicates the question set could not be loaded.
	ErrQuestionsNotFound = errors.New("question set not found")

	// ErrInvalidStartState is returned when a game is started outside Idle or without questions.
	ErrInvalidStartState = errors.New("game cannot start in current state")
	// ErrInvalidLevel is returned for a level index outside the ladder.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrEmptyLevel indicates no question is tagged with the requested level.
	ErrEmptyLevel = errors.New("no questions for level")
	// ErrNoValidQuestions indicates every question of a level failed validation.
	ErrNoValidQuestions = errors.New("no valid questions for level")

	// ErrInvalidPlayerName rejects names outside 2-20 allowed characters.
	ErrInvalidPlayerName = errors.New("invalid player name")
	// ErrInvalidQuestion marks a malformed question record.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrUnknownOption is returned when the submitted option is not on screen.
	ErrUnknownOption = errors.New("option not found")

	// ErrInsufficientScore is returned when a helper costs more than the current score.
	ErrInsufficientScore = errors.New("insufficient score")
	// ErrHelperUsed is returned when a single-use helper was already applied this level.
	ErrHelperUsed = errors.New("helper already used this level")
	// ErrHelperUnavailable is returned for unknown helpers or on the hardest tier.
	ErrHelperUnavailable = errors.New("helper not available")
	// ErrNotActive is returned for question-scoped actions without an active question.
	ErrNotActive = errors.New("no active question")
	// ErrCooldown is returned when a device restarts before its cooldown elapsed.
	ErrCooldown = errors.New("start cooldown active")

	// ErrRequestTimeout marks a backend call that exceeded its deadline.
	ErrRequestTimeout = errors.New("backend request timed out")
	// ErrInvalidMode is returned for unknown leaderboard modes.
	ErrInvalidMode = errors.New("invalid leaderboard mode")
	// ErrInvalidPreferences rejects out-of-range settings.
	ErrInvalidPreferences = errors.New("invalid preferences")
)

// Kind groups errors by how callers recover from them.
type Kind string

const (
	KindUnknown       Kind = ""
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindNetwork       Kind = "network"
	KindState         Kind = "state"
)

// kinds is checked in order, so a validation cause wins over the state error
// wrapping it.
var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrQuestionsNotFound, KindConfiguration},
	{ErrInvalidLevel, KindConfiguration},
	{ErrEmptyLevel, KindConfiguration},
	{ErrNoValidQuestions, KindConfiguration},
	{ErrInvalidPlayerName, KindValidation},
	{ErrInvalidQuestion, KindValidation},
	{ErrUnknownOption, KindValidation},
	{ErrInvalidMode, KindValidation},
	{ErrInvalidPreferences, KindValidation},
	{ErrInsufficientScore, KindValidation},
	{ErrHelperUsed, KindValidation},
	{ErrHelperUnavailable, KindValidation},
	{ErrRequestTimeout, KindNetwork},
	{ErrInvalidStartState, KindState},
	{ErrNotActive, KindState},
	{ErrCooldown, KindState},
	{ErrSessionNotFound, KindState},
}

// KindOf classifies err by the first sentinel it wraps.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
