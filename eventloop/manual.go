package eventloop

import (
	"sort"
	"time"
)

// Manual is a Scheduler driven by explicit calls instead of wall-clock time.
// Headless renders use it to run a simulation to rest as fast as possible,
// and tests use it to step timers deterministically. It is not safe for
// concurrent use.
type Manual struct {
	now   time.Duration
	seq   uint64
	queue []*manualTask
}

// NewManual returns a manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc queues fn to run once the clock reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.seq++
	t := &manualTask{due: m.now + d, seq: m.seq, fn: fn}
	m.queue = append(m.queue, t)
	return t
}

// Now returns the manual clock.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Pending returns the number of live callbacks.
func (m *Manual) Pending() int {
	m.compact()
	return len(m.queue)
}

// Advance moves the clock forward by d and runs every callback that becomes
// due, in due order, including callbacks scheduled by those callbacks. It
// returns the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	target := m.now + d
	ran := 0
	for {
		t := m.next()
		if t == nil || t.due > target {
			break
		}
		m.pop(t)
		if t.due > m.now {
			m.now = t.due
		}
		t.fn()
		ran++
	}
	m.now = target
	return ran
}

// RunUntilIdle runs callbacks in due order, advancing the clock to each one,
// until none are left or limit callbacks have run. A limit of zero or less
// means no limit.
func (m *Manual) RunUntilIdle(limit int) int {
	ran := 0
	for limit <= 0 || ran < limit {
		t := m.next()
		if t == nil {
			break
		}
		m.pop(t)
		if t.due > m.now {
			m.now = t.due
		}
		t.fn()
		ran++
	}
	return ran
}

func (m *Manual) next() *manualTask {
	m.compact()
	if len(m.queue) == 0 {
		return nil
	}
	sort.SliceStable(m.queue, func(i, j int) bool {
		if m.queue[i].due != m.queue[j].due {
			return m.queue[i].due < m.queue[j].due
		}
		return m.queue[i].seq < m.queue[j].seq
	})
	return m.queue[0]
}

func (m *Manual) pop(t *manualTask) {
	for i, q := range m.queue {
		if q == t {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

func (m *Manual) compact() {
	live := m.queue[:0]
	for _, t := range m.queue {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(m.queue); i++ {
		m.queue[i] = nil
	}
	m.queue = live
}

type manualTask struct {
	due       time.Duration
	seq       uint64
	fn        func()
	cancelled bool
}

func (t *manualTask) Cancel() {
	t.cancelled = true
}
