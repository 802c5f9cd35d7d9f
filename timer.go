package sr

import (
	"sync"
	"time"
)

// defaultTimeUnit is the wall-clock length of one channel time unit used
// by the socket layer. With the default timeout of 16 units this yields a
// 160ms retransmission timeout.
const defaultTimeUnit = 10 * time.Millisecond

// clockTimer maps the protocol's single-shot timer onto wall time. At
// most one expiry callback is ever outstanding: Start cancels any pending
// one, and a fire that lost the race against Stop is suppressed through
// the generation counter.
type clockTimer struct {
	unit   time.Duration
	expire func()

	mu         sync.Mutex
	pending    *time.Timer
	generation uint64
}

func newClockTimer(unit time.Duration, expire func()) *clockTimer {
	return &clockTimer{unit: unit, expire: expire}
}

func (t *clockTimer) Start(units float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelPending()
	generation := t.generation
	t.pending = time.AfterFunc(time.Duration(units*float64(t.unit)), func() {
		t.mu.Lock()
		if t.generation != generation {
			t.mu.Unlock()
			return
		}
		t.pending = nil
		t.mu.Unlock()
		t.expire()
	})
}

func (t *clockTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelPending()
}

func (t *clockTimer) cancelPending() {
	t.generation++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}
