package app

import (
	"time"

	"trivia-game-service/internal/domain"
)

// Timer is a one-second countdown for a single question. Freezing suspends the
// countdown but ticks keep their cadence. At most one timeout fires per Start.
type Timer struct {
	sched     Scheduler
	onTick    func(domain.TimerState)
	onTimeout func()

	state  domain.TimerState
	cancel func()
	fired  bool
}

func NewTimer(sched Scheduler, onTick func(domain.TimerState), onTimeout func()) *Timer {
	return &Timer{sched: sched, onTick: onTick, onTimeout: onTimeout}
}

// Start resets the countdown to seconds and cancels any previous run.
func (t *Timer) Start(seconds int) {
	t.Stop()
	if seconds < 1 {
		seconds = 1
	}
	t.state = domain.TimerState{RemainingSeconds: seconds, TotalSeconds: seconds}
	t.fired = false
	t.schedule()
}

// Stop cancels the countdown. Safe to call any number of times.
func (t *Timer) Stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *Timer) Freeze()   { t.state.IsFrozen = true }
func (t *Timer) Unfreeze() { t.state.IsFrozen = false }

// Running reports whether a tick is scheduled.
func (t *Timer) Running() bool { return t.cancel != nil }

func (t *Timer) State() domain.TimerState { return t.state }

func (t *Timer) schedule() {
	t.cancel = t.sched.AfterFunc(time.Second, t.tick)
}

func (t *Timer) tick() {
	t.cancel = nil
	if t.fired {
		return
	}
	if t.state.IsFrozen {
		t.schedule()
		return
	}
	t.state.RemainingSeconds--
	if t.onTick != nil {
		t.onTick(t.state)
	}
	if t.state.RemainingSeconds <= 0 {
		t.state.RemainingSeconds = 0
		t.fired = true
		if t.onTimeout != nil {
			t.onTimeout()
		}
		return
	}
	t.schedule()
}
