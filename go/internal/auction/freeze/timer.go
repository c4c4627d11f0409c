// Package freeze owns the single-shot timer behind the post-bid freeze window.
package freeze

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultWindow is how long bidding stays frozen after any bid
const DefaultWindow = time.Second

// Clock is the subset of clockwork.Clock the timer needs.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Flag is where the freeze state lands
type Flag interface {
	SetFrozen(frozen bool)
}

// Timer sets the flag on Freeze and clears it once the window elapses.
// A new Freeze replaces the pending clear instead of adding another one.
type Timer struct {
	clock  Clock
	flag   Flag
	window time.Duration

	mu         sync.Mutex
	current    clockwork.Timer
	cancel     chan struct{}
	generation uint64
	deadline   time.Time
	closed     bool
}

// NewTimer creates a freeze timer writing to flag
func NewTimer(clock Clock, flag Flag, window time.Duration) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Timer{
		clock:  clock,
		flag:   flag,
		window: window,
	}
}

// Freeze sets the flag and (re)starts the window from now
func (t *Timer) Freeze() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	t.stopLocked()
	t.generation++
	gen := t.generation
	timer := t.clock.NewTimer(t.window)
	cancel := make(chan struct{})
	t.current = timer
	t.cancel = cancel
	t.deadline = t.clock.Now().Add(t.window)
	t.flag.SetFrozen(true)
	t.mu.Unlock()

	go t.wait(gen, timer, cancel)

	log.Debug().
		Uint64("generation", gen).
		Dur("window", t.window).
		Msg("bid freeze window started")
}

// Deadline returns when the current window ends, zero when not frozen
func (t *Timer) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return time.Time{}
	}
	return t.deadline
}

// Stop cancels any pending clear and unfreezes immediately
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.stopLocked()
		t.flag.SetFrozen(false)
	}
}

// Close stops the timer for good; later Freeze calls are ignored
func (t *Timer) Close() {
	t.Stop()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Timer) wait(gen uint64, timer clockwork.Timer, cancel <-chan struct{}) {
	select {
	case <-timer.Chan():
	case <-cancel:
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// A newer Freeze may have won the lock while this timer was firing.
	if gen != t.generation || t.current == nil {
		return
	}
	t.current = nil
	t.cancel = nil
	t.deadline = time.Time{}
	t.flag.SetFrozen(false)

	log.Debug().Uint64("generation", gen).Msg("bid freeze window cleared")
}

// stopLocked cancels the pending timer. Caller holds t.mu.
func (t *Timer) stopLocked() {
	if t.current == nil {
		return
	}
	stopAndDrainTimer(t.current)
	close(t.cancel)
	t.current = nil
	t.cancel = nil
	t.deadline = time.Time{}
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
