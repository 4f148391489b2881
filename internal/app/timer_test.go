package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trivia-game-service/internal/domain"
)

func TestTimerFiresOnce(t *testing.T) {
	sched := NewManualScheduler(time.Unix(0, 0))
	timeouts := 0
	timer := NewTimer(sched, nil, func() { timeouts++ })

	timer.Start(80)
	sched.Advance(79 * time.Second)
	assert.Equal(t, 0, timeouts)
	assert.Equal(t, 1, timer.State().RemainingSeconds)

	sched.Advance(time.Second)
	assert.Equal(t, 1, timeouts)
	assert.False(t, timer.Running())

	sched.Advance(time.Minute)
	assert.Equal(t, 1, timeouts)
}

func TestTimerStopBeforeExpiry(t *testing.T) {
	sched := NewManualScheduler(time.Unix(0, 0))
	timeouts := 0
	timer := NewTimer(sched, nil, func() { timeouts++ })

	timer.Start(80)
	sched.Advance(30 * time.Second)
	timer.Stop()
	timer.Stop()
	sched.Advance(5 * time.Minute)

	assert.Equal(t, 0, timeouts)
	assert.Equal(t, 0, sched.Pending())
}

func TestTimerFreezeKeepsCadence(t *testing.T) {
	sched := NewManualScheduler(time.Unix(0, 0))
	var ticks []domain.TimerState
	timer := NewTimer(sched, func(s domain.TimerState) { ticks = append(ticks, s) }, nil)

	timer.Start(10)
	sched.Advance(3 * time.Second)
	timer.Freeze()
	sched.Advance(20 * time.Second)
	assert.Equal(t, 7, timer.State().RemainingSeconds)
	assert.True(t, timer.Running())

	timer.Unfreeze()
	sched.Advance(2 * time.Second)
	assert.Equal(t, 5, timer.State().RemainingSeconds)
	assert.Len(t, ticks, 5)
}

func TestTimerRestartCancelsPrevious(t *testing.T) {
	sched := NewManualScheduler(time.Unix(0, 0))
	timeouts := 0
	timer := NewTimer(sched, nil, func() { timeouts++ })

	timer.Start(2)
	sched.Advance(time.Second)
	timer.Start(5)
	sched.Advance(4 * time.Second)
	assert.Equal(t, 0, timeouts)
	assert.Equal(t, 1, sched.Pending())
	sched.Advance(time.Second)
	assert.Equal(t, 1, timeouts)
}
