package vulkan

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGate tracks which slots are signaled.
type fakeGate struct {
	signaled []bool
	waitErr  error
	waits    []int
	resets   []int
}

func newFakeGate(slots int) *fakeGate {
	g := &fakeGate{signaled: make([]bool, slots)}
	for i := range g.signaled {
		g.signaled[i] = true
	}
	return g
}

func (g *fakeGate) wait(slot int) error {
	g.waits = append(g.waits, slot)
	if g.waitErr != nil {
		return g.waitErr
	}
	// The GPU retires the slot's work before the wait returns.
	g.signaled[slot] = true
	return nil
}

func (g *fakeGate) reset(slot int) error {
	g.resets = append(g.resets, slot)
	g.signaled[slot] = false
	return nil
}

func TestFrameSchedulerRoundRobin(t *testing.T) {
	gate := newFakeGate(MaxFramesInFlight)
	s := newFrameScheduler(MaxFramesInFlight, gate)

	var order []int
	for i := 0; i < 5; i++ {
		cur, err := s.begin()
		require.NoError(t, err)
		assert.Equal(t, SlotAcquiring, s.states[cur])
		require.NoError(t, s.acquired(cur))
		assert.Equal(t, SlotRecording, s.states[cur])
		s.submitted(cur)
		assert.Equal(t, SlotSubmitted, s.states[cur])
		assert.LessOrEqual(t, s.inFlight(), MaxFramesInFlight)
		order = append(order, cur)
	}
	assert.Equal(t, []int{0, 1, 0, 1, 0}, order)
	assert.Equal(t, order, gate.waits)
	assert.Equal(t, order, gate.resets)
}

// blockingGate holds a signal token per slot; wait blocks until the GPU side
// hands the token back with signal.
type blockingGate struct {
	fences []chan struct{}
}

func newBlockingGate(slots int) *blockingGate {
	g := &blockingGate{fences: make([]chan struct{}, slots)}
	for i := range g.fences {
		g.fences[i] = make(chan struct{}, 1)
		g.fences[i] <- struct{}{}
	}
	return g
}

func (g *blockingGate) wait(slot int) error {
	<-g.fences[slot]
	return nil
}

func (g *blockingGate) reset(slot int) error { return nil }

func (g *blockingGate) signal(slot int) { g.fences[slot] <- struct{}{} }

func TestFrameSchedulerBlocksUntilOldestFenceSignals(t *testing.T) {
	gate := newBlockingGate(MaxFramesInFlight)
	s := newFrameScheduler(MaxFramesInFlight, gate)

	for i := 0; i < MaxFramesInFlight; i++ {
		cur, err := s.begin()
		require.NoError(t, err)
		require.Equal(t, i, cur)
		require.NoError(t, s.acquired(cur))
		s.submitted(cur)
	}
	assert.Equal(t, MaxFramesInFlight, s.inFlight())

	began := make(chan int, 1)
	go func() {
		cur, err := s.begin()
		if err == nil {
			began <- cur
		}
	}()

	select {
	case cur := <-began:
		t.Fatalf("slot %d began before its fence signaled", cur)
	case <-time.After(50 * time.Millisecond):
	}

	gate.signal(0)
	select {
	case cur := <-began:
		assert.Equal(t, 0, cur)
	case <-time.After(time.Second):
		t.Fatal("begin did not return after the fence signaled")
	}
}

func TestFrameSchedulerAbortKeepsFence(t *testing.T) {
	gate := newFakeGate(MaxFramesInFlight)
	s := newFrameScheduler(MaxFramesInFlight, gate)

	cur, err := s.begin()
	require.NoError(t, err)
	s.abort(cur)

	assert.Equal(t, SlotIdle, s.states[cur])
	assert.Empty(t, gate.resets)
	assert.True(t, gate.signaled[cur])

	// The retry uses the same slot and does not block.
	again, err := s.begin()
	require.NoError(t, err)
	assert.Equal(t, cur, again)
}

func TestFrameSchedulerWaitFailure(t *testing.T) {
	gate := newFakeGate(MaxFramesInFlight)
	gate.waitErr = errors.New("device lost")
	s := newFrameScheduler(MaxFramesInFlight, gate)

	cur, err := s.begin()
	assert.ErrorContains(t, err, "device lost")
	assert.Equal(t, SlotIdle, s.states[cur])
	assert.Zero(t, s.inFlight())
}

func TestSlotStateString(t *testing.T) {
	assert.Equal(t, "Recording", SlotRecording.String())
	assert.Equal(t, "SlotState(9)", SlotState(9).String())
}
