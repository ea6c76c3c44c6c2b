package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusDeliversOnDispatchInOrder(t *testing.T) {
	bus := NewEventBus()
	var got []SystemEventCode
	record := func(ctx EventContext) { got = append(got, ctx.Type) }
	assert.True(t, bus.Register(EVENT_CODE_RESIZED, record))
	assert.True(t, bus.Register(EVENT_CODE_SHADERS_CHANGED, record))

	bus.Fire(EventContext{Type: EVENT_CODE_SHADERS_CHANGED})
	bus.Fire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 10, WindowHeight: 20}})
	assert.Empty(t, got, "listeners must not run before Dispatch")

	assert.Equal(t, 2, bus.Dispatch())
	assert.Equal(t, []SystemEventCode{EVENT_CODE_SHADERS_CHANGED, EVENT_CODE_RESIZED}, got)
	assert.Equal(t, 0, bus.Dispatch())
}

func TestEventBusRejectsOutOfRangeCodes(t *testing.T) {
	bus := NewEventBus()
	noop := func(EventContext) {}
	assert.False(t, bus.Register(0, noop))
	assert.False(t, bus.Register(MAX_EVENT_CODE, noop))
	assert.False(t, bus.Register(EVENT_CODE_KEY_PRESSED, nil))
}

func TestEventBusFireFromManyGoroutines(t *testing.T) {
	bus := NewEventBus()
	count := 0
	bus.Register(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) {
		ke := ctx.Data.(*KeyEvent)
		assert.Equal(t, KEY_V, ke.KeyCode)
		count++
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Fire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_V}})
		}()
	}
	wg.Wait()

	assert.Equal(t, 16, bus.Dispatch())
	assert.Equal(t, 16, count)
}

func TestEventBusShutdownDropsListeners(t *testing.T) {
	bus := NewEventBus()
	called := false
	bus.Register(EVENT_CODE_APPLICATION_QUIT, func(EventContext) { called = true })
	bus.Shutdown()
	bus.Fire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT})
	bus.Dispatch()
	assert.False(t, called)
}

func TestFrameMetricsFPS(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < 32; i++ {
		m.Update(0.125)
	}
	assert.Equal(t, 8.0, m.FPS())
	assert.InDelta(t, 125.0, m.FrameTime(), 0.001)
}
