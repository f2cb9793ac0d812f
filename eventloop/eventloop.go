// Package eventloop runs a view's simulation ticks, pointer events and
// resize flushes on a single goroutine.
//
// Nothing scheduled through a Loop runs concurrently with anything else
// scheduled through the same Loop, so the components it drives keep no locks.
// Timers fire on their own goroutine but only post their callback back into
// the loop.
package eventloop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TFMV/forcegraph/errors"
)

// Handle cancels a scheduled callback. Cancel is idempotent and a cancelled
// callback never runs.
type Handle interface {
	Cancel()
}

// Scheduler runs fn once after d. Implementations guarantee that fn runs on
// the same execution context as every other callback they schedule.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

// Loop is a cooperative single-goroutine executor.
type Loop struct {
	tasks chan func()
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	timers map[*timerTask]struct{}
}

// New creates a loop whose queue holds up to buffer pending callbacks.
func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		done:   make(chan struct{}),
		timers: make(map[*timerTask]struct{}),
	}
}

// Run executes posted callbacks until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) {
	defer l.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. It reports false when the loop is closed and fn was dropped.
func (l *Loop) Post(fn func()) bool {
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

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return errors.New(errors.ErrCodeClosed, "event loop closed")
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return errors.New(errors.ErrCodeClosed, "event loop closed")
	}
}

// AfterFunc schedules fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	t := &timerTask{loop: l}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Closed() {
		t.cancelled.Store(true)
		return t
	}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			l.forget(t)
			if t.cancelled.Load() {
				return
			}
			fn()
		})
	})
	l.timers[t] = struct{}{}
	return t
}

// Close cancels every pending timer and stops accepting callbacks.
func (l *Loop) Close() {
	l.once.Do(func() {
		close(l.done)
		l.mu.Lock()
		for t := range l.timers {
			t.cancelled.Store(true)
			t.timer.Stop()
		}
		l.timers = make(map[*timerTask]struct{})
		l.mu.Unlock()
	})
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Pending returns the number of timers that have not fired or been cancelled.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

func (l *Loop) forget(t *timerTask) {
	l.mu.Lock()
	delete(l.timers, t)
	l.mu.Unlock()
}

type timerTask struct {
	loop      *Loop
	timer     *time.Timer
	cancelled atomic.Bool
}

func (t *timerTask) Cancel() {
	if t.cancelled.Swap(true) {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.loop.forget(t)
}
