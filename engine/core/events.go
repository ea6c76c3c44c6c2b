package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * ke := context.Data.(*KeyEvent)
	 */
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02

	// Resized/resolution changed from the OS.
	/* Context usage:
	 * se := context.Data.(*SystemEvent)
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x08

	// A compiled shader under the shader root was created or rewritten.
	/* Context usage:
	 * fe := context.Data.(*FileEvent)
	 */
	EVENT_CODE_SHADERS_CHANGED SystemEventCode = 0x09

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Key codes the engine reacts to. Values follow the virtual key table.
type KeyCode uint16

const (
	KEY_ESCAPE KeyCode = 0x1B
	KEY_F      KeyCode = 0x46
	KEY_V      KeyCode = 0x56
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type FileEvent struct {
	Path string
}

type FnOnEvent func(context EventContext)

// EventBus queues events from any goroutine and delivers them on the goroutine
// calling Dispatch.
type EventBus struct {
	mu         sync.Mutex
	registered [MAX_EVENT_CODE][]FnOnEvent
	queue      []EventContext
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

/**
 * Register to listen for when events are sent with the provided code.
 * @returns false if the code is out of range.
 */
func (b *EventBus) Register(code SystemEventCode, onEvent FnOnEvent) bool {
	if code <= 0 || code >= MAX_EVENT_CODE || onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered[code] = append(b.registered[code], onEvent)
	return true
}

// Fire queues the event. Listeners run on the next Dispatch.
func (b *EventBus) Fire(context EventContext) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, context)
}

// Dispatch drains the queue in firing order and returns the number of events delivered.
func (b *EventBus) Dispatch() int {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, e := range pending {
		b.mu.Lock()
		listeners := append([]FnOnEvent(nil), b.registered[e.Type]...)
		b.mu.Unlock()
		for _, l := range listeners {
			l(e)
		}
	}
	return len(pending)
}

func (b *EventBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.registered {
		b.registered[i] = nil
	}
	b.queue = nil
}
