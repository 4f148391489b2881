package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/domain"
)

type mapSessions map[string]*app.Session

func (m mapSessions) Save(s *app.Session) { m[s.ID()] = s }
func (m mapSessions) Get(id string) (*app.Session, bool) {
	s, ok := m[id]
	return s, ok
}
func (m mapSessions) Delete(id string) { delete(m, id) }

type staticQuestions struct {
	set domain.QuestionSet
	err error
}

func (q staticQuestions) GetQuestions(context.Context) (domain.QuestionSet, error) {
	return q.set, q.err
}

func TestGameServiceLifecycle(t *testing.T) {
	sessions := mapSessions{}
	sched := app.NewManualScheduler(time.Unix(1700000000, 0))
	results := &recordingResults{}
	var telemetry []app.EventType
	svc := app.NewGameService(sessions, staticQuestions{set: sampleSet(2)},
		app.WithResults(results),
		app.WithClock(sched.Now),
		app.WithTelemetry(app.EventSinkFunc(func(e app.Event) { telemetry = append(telemetry, e.Type) })),
	)

	session, err := svc.NewSession(context.Background(), sched, nil)
	require.NoError(t, err)
	got, err := svc.Get(session.ID())
	require.NoError(t, err)
	require.Same(t, session, got)

	require.NoError(t, svc.Start(session, domain.Player{Name: "Alice"}))
	assert.Equal(t, app.StateQuestionActive, session.State())
	assert.Contains(t, telemetry, app.EventGameStarted)

	session.EndGame(false)
	require.Len(t, results.results, 1)
	assert.Contains(t, results.results[0].DeviceID, "device_")
	assert.Contains(t, results.results[0].PlayerID, "player_")

	svc.Close(session.ID())
	_, err = svc.Get(session.ID())
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestGameServiceCooldown(t *testing.T) {
	sched := app.NewManualScheduler(time.Unix(1700000000, 0))
	svc := app.NewGameService(mapSessions{}, staticQuestions{set: sampleSet(1)},
		app.WithClock(sched.Now),
		app.WithCooldown(30*time.Second),
	)
	player := domain.Player{DeviceID: "dev-1", Name: "Alice"}

	first, err := svc.NewSession(context.Background(), sched, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Start(first, player))

	second, err := svc.NewSession(context.Background(), sched, nil)
	require.NoError(t, err)
	err = svc.Start(second, player)
	assert.True(t, errors.Is(err, domain.ErrCooldown))
	assert.Equal(t, app.StateIdle, second.State())

	sched.Advance(31 * time.Second)
	assert.Zero(t, svc.CooldownRemaining("dev-1"))
	require.NoError(t, svc.Start(second, player))
}

func TestGameServiceQuestionLoadFailure(t *testing.T) {
	svc := app.NewGameService(mapSessions{}, staticQuestions{err: domain.ErrQuestionsNotFound})
	_, err := svc.NewSession(context.Background(), app.NewManualScheduler(time.Now()), nil)
	assert.True(t, errors.Is(err, domain.ErrQuestionsNotFound))
}
