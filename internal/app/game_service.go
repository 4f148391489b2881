package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-game-service/internal/domain"
)

// SessionRepository abstracts how live game sessions are tracked (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionRepository loads the question set (from cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context) (domain.QuestionSet, error)
}

// GameService creates game sessions and enforces cross-session rules such as
// the start cooldown.
type GameService struct {
	sessions  SessionRepository
	questions QuestionRepository
	results   ResultRecorder
	telemetry EventSink
	cfg       Config
	cooldown  time.Duration
	log       zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	lastStarts map[string]time.Time
}

// Option customizes a GameService.
type Option func(*GameService)

func WithConfig(cfg Config) Option          { return func(s *GameService) { s.cfg = cfg } }
func WithResults(r ResultRecorder) Option   { return func(s *GameService) { s.results = r } }
func WithTelemetry(sink EventSink) Option   { return func(s *GameService) { s.telemetry = sink } }
func WithCooldown(d time.Duration) Option   { return func(s *GameService) { s.cooldown = d } }
func WithLogger(log zerolog.Logger) Option  { return func(s *GameService) { s.log = log } }
func WithClock(now func() time.Time) Option { return func(s *GameService) { s.now = now } }

func NewGameService(store SessionRepository, questions QuestionRepository, opts ...Option) *GameService {
	s := &GameService{
		sessions:   store,
		questions:  questions,
		cfg:        DefaultConfig(),
		log:        zerolog.Nop(),
		now:        time.Now,
		lastStarts: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSession loads the question bank and registers an idle session driven by
// sched. Events go to sink and to the telemetry sink.
func (s *GameService) NewSession(ctx context.Context, sched Scheduler, sink EventSink) (*Session, error) {
	set, err := s.questions.GetQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	id := uuid.NewString()
	session := NewSession(id, s.cfg, SessionDeps{
		Bank:      NewQuestionBank(set),
		Scheduler: sched,
		Events:    MultiSink{sink, s.telemetry},
		Results:   s.results,
		Clock:     s.now,
		Logger:    s.log,
	})
	s.sessions.Save(session)
	return session, nil
}

// Start begins a game on session for player. It must run on the session's
// goroutine.
func (s *GameService) Start(session *Session, player domain.Player) error {
	if player.DeviceID == "" {
		player.DeviceID = "device_" + uuid.NewString()
	}
	if player.ID == "" {
		player.ID = "player_" + uuid.NewString()
	}
	if err := s.checkCooldown(player.DeviceID); err != nil {
		return err
	}
	if err := session.StartGame(player); err != nil {
		return err
	}
	s.recordStart(player.DeviceID)
	return nil
}

// recordStart remembers when deviceID started and prunes devices whose
// cooldown has run out. Nothing is kept when the cooldown is disabled.
func (s *GameService) recordStart(deviceID string) {
	if s.cooldown <= 0 {
		return
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for device, at := range s.lastStarts {
		if now.Sub(at) >= s.cooldown {
			delete(s.lastStarts, device)
		}
	}
	s.lastStarts[deviceID] = now
}

// Remaining cooldown before deviceID may start another game.
func (s *GameService) CooldownRemaining(deviceID string) time.Duration {
	if s.cooldown <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastStarts[deviceID]
	if !ok {
		return 0
	}
	left := s.cooldown - s.now().Sub(last)
	if left <= 0 {
		delete(s.lastStarts, deviceID)
		return 0
	}
	return left
}

func (s *GameService) checkCooldown(deviceID string) error {
	if left := s.CooldownRemaining(deviceID); left > 0 {
		return fmt.Errorf("%w: %s left", domain.ErrCooldown, left.Round(time.Second))
	}
	return nil
}

// Get returns a registered session.
func (s *GameService) Get(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close drops the session from the repository.
func (s *GameService) Close(sessionID string) {
	s.sessions.Delete(sessionID)
}
