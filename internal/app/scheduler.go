package app

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Scheduler runs deferred work on the goroutine that owns a session.
// The returned cancel func must be called from that same goroutine; after it
// returns the task is guaranteed not to run, even if its timer already fired.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

// Loop serializes all work for one session onto a single goroutine.
// Session and Timer are not safe for concurrent use; everything that touches
// them goes through Do or Call.
type Loop struct {
	tasks     chan func()
	done      chan struct{}
	closeOnce sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		tasks: make(chan func(), 32),
		done:  make(chan struct{}),
	}
}

// Run executes queued tasks until ctx is canceled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Close stops the loop. Pending tasks are dropped.
func (l *Loop) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Do enqueues fn. It reports false if the loop is closed.
func (l *Loop) Do(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(fn func()) bool {
	finished := make(chan struct{})
	if !l.Do(func() {
		defer close(finished)
		fn()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-l.done:
		return false
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) func() {
	canceled := false // only touched on the loop goroutine
	t := time.AfterFunc(d, func() {
		l.Do(func() {
			if !canceled {
				fn()
			}
		})
	})
	return func() {
		canceled = true
		t.Stop()
	}
}

// ManualScheduler is a virtual-time Scheduler for deterministic tests.
// Tasks run synchronously inside Advance.
type ManualScheduler struct {
	start   time.Time
	elapsed time.Duration
	seq     int
	tasks   []*manualTask
}

type manualTask struct {
	at       time.Duration
	seq      int
	fn       func()
	canceled bool
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{start: start}
}

func (m *ManualScheduler) AfterFunc(d time.Duration, fn func()) func() {
	m.seq++
	task := &manualTask{at: m.elapsed + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, task)
	return func() { task.canceled = true }
}

// Now is the virtual clock; pass it as the session clock.
func (m *ManualScheduler) Now() time.Time {
	return m.start.Add(m.elapsed)
}

// Pending counts tasks that are scheduled and not canceled.
func (m *ManualScheduler) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.canceled {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d, running every task that falls due
// in order, including tasks scheduled by tasks.
func (m *ManualScheduler) Advance(d time.Duration) {
	target := m.elapsed + d
	for {
		next := m.popDue(target)
		if next == nil {
			break
		}
		m.elapsed = next.at
		next.fn()
	}
	m.elapsed = target
}

func (m *ManualScheduler) popDue(target time.Duration) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.canceled {
			live = append(live, t)
		}
	}
	m.tasks = live
	if len(m.tasks) == 0 {
		return nil
	}
	sort.Slice(m.tasks, func(i, j int) bool {
		if m.tasks[i].at != m.tasks[j].at {
			return m.tasks[i].at < m.tasks[j].at
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if m.tasks[0].at > target {
		return nil
	}
	next := m.tasks[0]
	m.tasks = m.tasks[1:]
	return next
}
