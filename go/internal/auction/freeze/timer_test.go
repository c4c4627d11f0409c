package freeze

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingFlag struct {
	mu      sync.Mutex
	frozen  bool
	changes []bool
}

func (f *recordingFlag) SetFrozen(frozen bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen = frozen
	f.changes = append(f.changes, frozen)
}

func (f *recordingFlag) Frozen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frozen
}

func (f *recordingFlag) Changes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.changes...)
}

const settle = 50 * time.Millisecond

func TestFreeze_ClearsAfterWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	flag := &recordingFlag{}
	timer := NewTimer(clock, flag, time.Second)

	timer.Freeze()
	require.True(t, flag.Frozen())
	assert.Equal(t, clock.Now().Add(time.Second), timer.Deadline())

	clock.Advance(999 * time.Millisecond)
	require.Never(t, func() bool { return !flag.Frozen() }, settle, 5*time.Millisecond)

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return !flag.Frozen() }, time.Second, 5*time.Millisecond)
	assert.True(t, timer.Deadline().IsZero())
}

func TestFreeze_NewerFreezeSupersedesOlder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	flag := &recordingFlag{}
	timer := NewTimer(clock, flag, time.Second)

	timer.Freeze()
	clock.Advance(400 * time.Millisecond)
	timer.Freeze()

	// The first window would have ended here.
	clock.Advance(600 * time.Millisecond)
	require.Never(t, func() bool { return !flag.Frozen() }, settle, 5*time.Millisecond)

	clock.Advance(399 * time.Millisecond)
	require.Never(t, func() bool { return !flag.Frozen() }, settle, 5*time.Millisecond)

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return !flag.Frozen() }, time.Second, 5*time.Millisecond)

	// Frozen continuously until the single clear.
	assert.Equal(t, []bool{true, true, false}, flag.Changes())
}

func TestFreeze_RapidBidsKeepExtending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	flag := &recordingFlag{}
	timer := NewTimer(clock, flag, time.Second)

	for i := 0; i < 10; i++ {
		timer.Freeze()
		clock.Advance(500 * time.Millisecond)
	}
	require.Never(t, func() bool { return !flag.Frozen() }, settle, 5*time.Millisecond)

	clock.Advance(500 * time.Millisecond)
	require.Eventually(t, func() bool { return !flag.Frozen() }, time.Second, 5*time.Millisecond)
}

func TestStop_UnfreezesImmediately(t *testing.T) {
	clock := clockwork.NewFakeClock()
	flag := &recordingFlag{}
	timer := NewTimer(clock, flag, time.Second)

	timer.Stop()
	assert.Empty(t, flag.Changes())

	timer.Freeze()
	timer.Stop()
	assert.False(t, flag.Frozen())

	clock.Advance(2 * time.Second)
	require.Never(t, func() bool { return len(flag.Changes()) != 2 }, settle, 5*time.Millisecond)
}

func TestClose_IgnoresLaterFreeze(t *testing.T) {
	clock := clockwork.NewFakeClock()
	flag := &recordingFlag{}
	timer := NewTimer(clock, flag, 0)

	timer.Close()
	timer.Freeze()
	assert.False(t, flag.Frozen())
	assert.Empty(t, flag.Changes())
}
