package app

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"trivia-game-service/internal/domain"
)

// State is a step of the game session state machine.
type State int

const (
	StateIdle State = iota
	StateLevelStarting
	StateQuestionActive
	StateAnswerLocked
	StateLevelComplete
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLevelStarting:
		return "level_starting"
	case StateQuestionActive:
		return "question_active"
	case StateAnswerLocked:
		return "answer_locked"
	case StateLevelComplete:
		return "level_complete"
	case StateGameOver:
		return "game_over"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config holds the gameplay rules.
type Config struct {
	Levels          []domain.Level
	QuestionSeconds int
	FeedbackDelay   time.Duration
	// MaxWrongAnswers ends the game once reached; 0 means unlimited.
	MaxWrongAnswers int
	Scoring         ScoringConfig
}

func DefaultConfig() Config {
	return Config{
		Levels:          domain.DefaultLevels(),
		QuestionSeconds: 80,
		FeedbackDelay:   2 * time.Second,
		Scoring:         DefaultScoringConfig(),
	}
}

// SessionDeps are the collaborators a Session needs. Only Bank and Scheduler
// are required.
type SessionDeps struct {
	Bank      *QuestionBank
	Scheduler Scheduler
	Shuffler  Shuffler
	Events    EventSink
	Results   ResultRecorder
	Clock     func() time.Time
	Logger    zerolog.Logger
}

// Session is the state machine of one playthrough. It is not safe for
// concurrent use: every method, and every task it schedules, must run on the
// goroutine that owns its Scheduler.
type Session struct {
	id   string
	cfg  Config
	deps SessionDeps
	log  zerolog.Logger

	state           State
	player          domain.Player
	levelIndex      int
	questionIndex   int
	pool            []domain.Question
	current         *activeQuestion
	answerSubmitted bool
	helpersUsed     map[domain.HelperKind]bool
	score           *Scoreboard
	timer           *Timer
	cancelAdvance   func()
	responses       responseStats
	won             bool
	result          *domain.GameResult
	// starting holds the player until level 0 is up, so game_started is
	// only emitted for games that actually began.
	starting *domain.Player

	startedAt         time.Time
	levelStartedAt    time.Time
	questionStartedAt time.Time
}

type activeQuestion struct {
	question domain.Question
	options  []domain.PresentedOption
	seconds  int
}

type responseStats struct {
	count   int
	total   time.Duration
	fastest time.Duration
	slowest time.Duration
}

func (r *responseStats) add(d time.Duration) {
	if r.count == 0 || d < r.fastest {
		r.fastest = d
	}
	if d > r.slowest {
		r.slowest = d
	}
	r.count++
	r.total += d
}

func (r responseStats) average() time.Duration {
	if r.count == 0 {
		return 0
	}
	return r.total / time.Duration(r.count)
}

func NewSession(id string, cfg Config, deps SessionDeps) *Session {
	if len(cfg.Levels) == 0 {
		cfg.Levels = domain.DefaultLevels()
	}
	if deps.Shuffler == nil {
		deps.Shuffler = NewShuffler()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	s := &Session{
		id:          id,
		cfg:         cfg,
		deps:        deps,
		log:         deps.Logger.With().Str("session_id", id).Logger(),
		helpersUsed: make(map[domain.HelperKind]bool),
		score:       NewScoreboard(cfg.Scoring),
	}
	s.timer = NewTimer(deps.Scheduler, s.onTick, s.HandleTimeout)
	return s
}

func (s *Session) ID() string   { return s.id }
func (s *Session) State() State { return s.state }

// StartGame begins a new playthrough at the first level. It is valid only from
// Idle, with a populated question bank and a valid player name.
func (s *Session) StartGame(player domain.Player) error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: session is %s", domain.ErrInvalidStartState, s.state)
	}
	if s.deps.Bank.Size() == 0 {
		return fmt.Errorf("%w: question repository is empty", domain.ErrInvalidStartState)
	}
	name, err := ValidatePlayerName(player.Name)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidStartState, err)
	}
	player.Name = name

	s.reset()
	s.player = player
	s.startedAt = s.now()
	s.state = StateLevelStarting
	s.starting = &player

	if err := s.StartLevel(0); err != nil {
		s.starting = nil
		s.state = StateIdle
		return err
	}
	return nil
}

// StartLevel loads, validates and shuffles the pool of levelIndex, then shows
// its first question. Invalid questions never enter the pool; each one counts
// as a skip once the level is up.
func (s *Session) StartLevel(levelIndex int) error {
	if s.state != StateLevelStarting {
		return fmt.Errorf("%w: session is %s", domain.ErrInvalidStartState, s.state)
	}
	if levelIndex < 0 || levelIndex >= len(s.cfg.Levels) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidLevel, levelIndex)
	}
	level := s.cfg.Levels[levelIndex]

	questions, err := s.deps.Bank.LevelQuestions(level.Name)
	if err != nil {
		return fmt.Errorf("start level %s: %w", level.Name, err)
	}
	valid := make([]domain.Question, 0, len(questions))
	var dropped []SkippedQuestion
	for i, q := range questions {
		if err := ValidateQuestion(q); err != nil {
			s.log.Warn().Err(err).Str("level", string(level.Name)).Msg("dropping invalid question")
			dropped = append(dropped, SkippedQuestion{Index: i, Reason: err.Error()})
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return fmt.Errorf("start level %s: %w", level.Name, domain.ErrNoValidQuestions)
	}

	if s.starting != nil {
		s.emit(EventGameStarted, *s.starting)
		s.starting = nil
	}
	for _, skipped := range dropped {
		s.score.Skipped()
		s.emit(EventQuestionSkipped, skipped)
	}

	clear(s.helpersUsed)
	s.levelIndex = levelIndex
	s.pool = Shuffled(s.deps.Shuffler, valid)
	s.questionIndex = 0
	s.levelStartedAt = s.now()
	s.fetchQuestion()
	return nil
}

// fetchQuestion shows the question at questionIndex. Past the end of the pool
// the level completes. Pools from StartLevel are already validated, so the
// skip branch only fires for pools built some other way.
func (s *Session) fetchQuestion() {
	s.stopAdvance()
	for s.questionIndex < len(s.pool) {
		q := s.pool[s.questionIndex]
		if err := ValidateQuestion(q); err != nil {
			s.score.Skipped()
			s.emit(EventQuestionSkipped, SkippedQuestion{Index: s.questionIndex, Reason: err.Error()})
			s.questionIndex++
			continue
		}
		s.present(q)
		return
	}
	s.completeLevel()
}

func (s *Session) present(q domain.Question) {
	options := Shuffled(s.deps.Shuffler, q.Options)
	presented := make([]domain.PresentedOption, len(options))
	for i, opt := range options {
		presented[i] = domain.PresentedOption{Text: opt}
	}
	s.current = &activeQuestion{question: q, options: presented, seconds: s.questionSeconds()}
	s.answerSubmitted = false
	s.questionStartedAt = s.now()
	s.state = StateQuestionActive
	s.timer.Start(s.current.seconds)
	s.emit(EventQuestion, s.presented())
}

// SubmitAnswer resolves the active question with option. A call made after the
// question already locked is ignored and reports accepted=false with no error.
func (s *Session) SubmitAnswer(option string) (outcome domain.AnswerOutcome, accepted bool, err error) {
	if s.state != StateQuestionActive || s.answerSubmitted {
		return domain.AnswerOutcome{}, false, nil
	}
	selected, ok := s.findOption(option)
	if !ok {
		return domain.AnswerOutcome{}, false, fmt.Errorf("%w: %q", domain.ErrUnknownOption, option)
	}
	return s.resolve(selected, false), true, nil
}

// HandleTimeout resolves the active question as wrong, as if a random wrong
// option had been picked. It is a no-op once the question is locked.
func (s *Session) HandleTimeout() {
	if s.state != StateQuestionActive || s.answerSubmitted {
		return
	}
	var wrong, hidden []string
	for _, opt := range s.current.options {
		if SameAnswer(opt.Text, s.current.question.CorrectAnswer) {
			continue
		}
		if opt.Eliminated {
			hidden = append(hidden, opt.Text)
		} else {
			wrong = append(wrong, opt.Text)
		}
	}
	if len(wrong) == 0 {
		wrong = hidden
	}
	selected := s.current.question.CorrectAnswer
	if len(wrong) > 0 {
		selected = wrong[s.deps.Shuffler.Intn(len(wrong))]
	}
	s.resolve(selected, true)
}

func (s *Session) resolve(selected string, timedOut bool) domain.AnswerOutcome {
	s.answerSubmitted = true
	s.state = StateAnswerLocked
	s.timer.Stop()

	q := s.current.question
	correct := !timedOut && SameAnswer(selected, q.CorrectAnswer)
	elapsed := s.now().Sub(s.questionStartedAt)
	s.responses.add(elapsed)

	old := s.score.Stats().Score
	var delta int
	if correct {
		delta = s.score.Correct()
	} else {
		delta = s.score.Incorrect()
	}
	stats := s.score.Stats()

	outcome := domain.AnswerOutcome{
		QuestionIndex: s.questionIndex,
		Selected:      selected,
		CorrectAnswer: q.CorrectAnswer,
		Correct:       correct,
		TimedOut:      timedOut,
		Delta:         delta,
		Score:         stats.Score,
		Streak:        stats.Streak,
		ResponseTime:  elapsed,
	}
	s.questionIndex++

	s.emit(EventAnswered, outcome)
	if delta != 0 {
		s.emit(EventScore, ScoreChange{Old: old, New: stats.Score, Reason: "answer"})
	}
	s.cancelAdvance = s.deps.Scheduler.AfterFunc(s.cfg.FeedbackDelay, s.afterFeedback)
	return outcome
}

func (s *Session) afterFeedback() {
	s.cancelAdvance = nil
	if s.state != StateAnswerLocked {
		return
	}
	if s.cfg.MaxWrongAnswers > 0 && s.score.Stats().Wrong >= s.cfg.MaxWrongAnswers {
		s.EndGame(false)
		return
	}
	s.fetchQuestion()
}

// UseHelper applies a helper to the active question. fiftyFifty and freezeTime
// are single-use per level; no helper works on the hardest tier.
func (s *Session) UseHelper(kind domain.HelperKind) (HelperResult, error) {
	if s.state != StateQuestionActive || s.answerSubmitted {
		return HelperResult{}, domain.ErrNotActive
	}
	if s.levelIndex == len(s.cfg.Levels)-1 {
		return HelperResult{}, fmt.Errorf("%w: disabled on %s", domain.ErrHelperUnavailable, s.level().Name)
	}

	var eliminate []int
	switch kind {
	case domain.HelperFiftyFifty, domain.HelperFreezeTime:
		if s.helpersUsed[kind] {
			return HelperResult{}, fmt.Errorf("%w: %s", domain.ErrHelperUsed, kind)
		}
		if kind == domain.HelperFiftyFifty {
			eliminate = s.pickEliminations()
			if len(eliminate) == 0 {
				return HelperResult{}, fmt.Errorf("%w: nothing to eliminate", domain.ErrHelperUnavailable)
			}
		}
	case domain.HelperSkip:
	default:
		return HelperResult{}, fmt.Errorf("%w: %s", domain.ErrHelperUnavailable, kind)
	}

	old := s.score.Stats().Score
	cost, err := s.score.Spend(kind)
	if err != nil {
		return HelperResult{}, err
	}
	result := HelperResult{Kind: kind, Cost: cost}

	switch kind {
	case domain.HelperFiftyFifty:
		for _, i := range eliminate {
			s.current.options[i].Eliminated = true
			result.Eliminated = append(result.Eliminated, s.current.options[i].Text)
		}
		s.helpersUsed[kind] = true
	case domain.HelperFreezeTime:
		s.timer.Freeze()
		s.helpersUsed[kind] = true
	}
	result.Score = s.score.Stats().Score

	s.emit(EventHelperApplied, result)
	if cost != 0 {
		s.emit(EventScore, ScoreChange{Old: old, New: result.Score, Reason: string(kind)})
	}

	if kind == domain.HelperSkip {
		s.answerSubmitted = true
		s.timer.Stop()
		s.score.Skipped()
		s.emit(EventQuestionSkipped, SkippedQuestion{Index: s.questionIndex, Reason: string(kind)})
		s.questionIndex++
		s.fetchQuestion()
	}
	return result, nil
}

// pickEliminations chooses up to two visible wrong options, always leaving at
// least one wrong option on screen.
func (s *Session) pickEliminations() []int {
	var candidates []int
	for i, opt := range s.current.options {
		if !opt.Eliminated && !SameAnswer(opt.Text, s.current.question.CorrectAnswer) {
			candidates = append(candidates, i)
		}
	}
	n := min(2, len(candidates)-1)
	if n <= 0 {
		return nil
	}
	return Shuffled(s.deps.Shuffler, candidates)[:n]
}

func (s *Session) completeLevel() {
	s.timer.Stop()
	s.current = nil
	if s.levelIndex >= len(s.cfg.Levels)-1 {
		s.EndGame(true)
		return
	}
	stats := s.score.Stats()
	s.state = StateLevelComplete
	s.emit(EventLevelCompleted, LevelSummary{
		Level:     s.level().Name,
		NextLevel: s.cfg.Levels[s.levelIndex+1].Name,
		Score:     stats.Score,
		Correct:   stats.Correct,
		Wrong:     stats.Wrong,
		Duration:  s.now().Sub(s.levelStartedAt),
	})
}

// NextLevel moves from LevelComplete to the following level. If that level
// cannot start the session stays on the completed level so the player can
// retry or restart.
func (s *Session) NextLevel() error {
	if s.state != StateLevelComplete {
		return fmt.Errorf("%w: session is %s", domain.ErrInvalidStartState, s.state)
	}
	next := s.levelIndex + 1
	if next >= len(s.cfg.Levels) {
		s.EndGame(true)
		return nil
	}
	s.state = StateLevelStarting
	if err := s.StartLevel(next); err != nil {
		s.state = StateLevelComplete
		s.log.Error().Err(err).Int("level", next).Msg("level start failed")
		return err
	}
	return nil
}

// EndGame freezes all timers, finalizes statistics and hands the result to the
// recorder. Calling it again is a no-op.
func (s *Session) EndGame(won bool) {
	if s.state == StateGameOver || s.state == StateIdle {
		return
	}
	s.timer.Stop()
	s.stopAdvance()
	s.state = StateGameOver
	s.won = won
	s.current = nil

	stats := s.score.Stats()
	result := domain.GameResult{
		PlayerID:       s.player.ID,
		DeviceID:       s.player.DeviceID,
		SessionID:      s.id,
		Name:           s.player.Name,
		Avatar:         s.player.Avatar,
		Score:          stats.Score,
		CorrectAnswers: stats.Correct,
		WrongAnswers:   stats.Wrong,
		Skips:          stats.Skips,
		MaxStreak:      stats.MaxStreak,
		Level:          s.level().Name,
		Won:            won,
		StartedAt:      s.startedAt,
		FinishedAt:     s.now(),
		AvgResponse:    s.responses.average(),
		FastestAnswer:  s.responses.fastest,
		SlowestAnswer:  s.responses.slowest,
	}
	s.result = &result
	s.emit(EventGameOver, result)
	if s.deps.Results != nil {
		s.deps.Results.Record(result)
	}
}

// Restart discards the current playthrough and returns to Idle.
func (s *Session) Restart() {
	s.timer.Stop()
	s.stopAdvance()
	s.reset()
	s.state = StateIdle
}

// Result is the finalized result once the game is over.
func (s *Session) Result() (domain.GameResult, bool) {
	if s.result == nil {
		return domain.GameResult{}, false
	}
	return *s.result, true
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	SessionID     string                     `json:"sessionId"`
	State         string                     `json:"state"`
	Level         domain.LevelName           `json:"level"`
	QuestionIndex int                        `json:"questionIndex"`
	PoolSize      int                        `json:"poolSize"`
	Stats         ScoreStats                 `json:"stats"`
	HelpersUsed   map[domain.HelperKind]bool `json:"helpersUsed"`
	Timer         domain.TimerState          `json:"timer"`
	Question      *domain.PresentedQuestion  `json:"question,omitempty"`
	Won           bool                       `json:"won"`
}

func (s *Session) Snapshot() Snapshot {
	helpers := make(map[domain.HelperKind]bool, len(s.helpersUsed))
	for k, v := range s.helpersUsed {
		helpers[k] = v
	}
	snap := Snapshot{
		SessionID:     s.id,
		State:         s.state.String(),
		Level:         s.level().Name,
		QuestionIndex: s.questionIndex,
		PoolSize:      len(s.pool),
		Stats:         s.score.Stats(),
		HelpersUsed:   helpers,
		Timer:         s.timer.State(),
		Won:           s.won,
	}
	if s.current != nil {
		q := s.presented()
		snap.Question = &q
	}
	return snap
}

func (s *Session) presented() domain.PresentedQuestion {
	level := s.level()
	options := make([]domain.PresentedOption, len(s.current.options))
	copy(options, s.current.options)
	return domain.PresentedQuestion{
		Index:     s.questionIndex,
		Total:     len(s.pool),
		Level:     level.Name,
		LevelName: level.Label,
		Text:      s.current.question.Text,
		Options:   options,
		Seconds:   s.current.seconds,
	}
}

func (s *Session) findOption(option string) (string, bool) {
	for _, opt := range s.current.options {
		if !opt.Eliminated && SameAnswer(opt.Text, option) {
			return opt.Text, true
		}
	}
	return "", false
}

func (s *Session) questionSeconds() int {
	mult := s.level().TimeMultiplier
	if mult <= 0 {
		mult = 1
	}
	return max(1, int(math.Round(float64(s.cfg.QuestionSeconds)*mult)))
}

func (s *Session) level() domain.Level {
	return s.cfg.Levels[s.levelIndex]
}

func (s *Session) onTick(state domain.TimerState) {
	s.emit(EventTick, state)
}

func (s *Session) stopAdvance() {
	if s.cancelAdvance != nil {
		s.cancelAdvance()
		s.cancelAdvance = nil
	}
}

func (s *Session) reset() {
	s.levelIndex = 0
	s.questionIndex = 0
	s.pool = nil
	s.current = nil
	s.answerSubmitted = false
	clear(s.helpersUsed)
	s.score = NewScoreboard(s.cfg.Scoring)
	s.responses = responseStats{}
	s.won = false
	s.result = nil
	s.starting = nil
}

func (s *Session) now() time.Time { return s.deps.Clock() }

func (s *Session) emit(typ EventType, payload any) {
	if s.deps.Events == nil {
		return
	}
	s.deps.Events.Publish(Event{Type: typ, SessionID: s.id, At: s.now(), Payload: payload})
}
