package core

import (
	"sync"

	"github.com/spaghettifunk/luminary/engine/containers"
)

// System internal event codes. Application code should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the renderer down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01
	// Keyboard key pressed. Data is a *KeyEvent.
	EVENT_CODE_KEY_PRESSED SystemEventCode = 0x02
	// Keyboard key released. Data is a *KeyEvent.
	EVENT_CODE_KEY_RELEASED SystemEventCode = 0x03
	// Mouse moved. Data is a *MouseEvent with the cursor delta.
	EVENT_CODE_MOUSE_MOVED SystemEventCode = 0x06
	// Framebuffer resized. Data is a *SystemEvent.
	EVENT_CODE_RESIZED SystemEventCode = 0x08
)

// Key codes for the handful of keys the renderer reacts to; values match
// the GLFW key enumeration so the platform layer can cast directly.
type KeyCode int

const (
	KEY_A      KeyCode = 65
	KEY_D      KeyCode = 68
	KEY_S      KeyCode = 83
	KEY_W      KeyCode = 87
	KEY_ESCAPE KeyCode = 256
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	DeltaX float64
	DeltaY float64
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type EventCallback func(context EventContext)

type eventState struct {
	registered map[SystemEventCode][]EventCallback

	queueMu sync.Mutex
	pending *containers.RingQueue[EventContext]
}

var state *eventState

const maxPendingEvents = 512

// EventSystemInitialize must run before any Register/Fire call. Firing is
// safe from any goroutine; registration and processing belong to the main
// thread, which drains the queue once per frame via EventsProcess.
func EventSystemInitialize() error {
	state = &eventState{
		registered: make(map[SystemEventCode][]EventCallback),
		pending:    containers.NewRingQueue[EventContext](maxPendingEvents),
	}
	return nil
}

func EventSystemShutdown() error {
	state = nil
	return nil
}

func EventRegister(code SystemEventCode, callback EventCallback) {
	if state == nil {
		return
	}
	state.registered[code] = append(state.registered[code], callback)
}

// EventFire enqueues an event. When the queue is full the oldest pending
// event is dropped; stale resize/mouse events are not worth blocking for.
func EventFire(context EventContext) {
	if state == nil {
		return
	}
	state.queueMu.Lock()
	defer state.queueMu.Unlock()
	if err := state.pending.Enqueue(context); err != nil {
		_, _ = state.pending.Dequeue()
		_ = state.pending.Enqueue(context)
	}
}

// EventsProcess drains the pending queue, invoking registered callbacks
// in FIFO order. Called once per main-loop iteration.
func EventsProcess() {
	if state == nil {
		return
	}
	for {
		state.queueMu.Lock()
		context, err := state.pending.Dequeue()
		state.queueMu.Unlock()
		if err != nil {
			return
		}
		for _, cb := range state.registered[context.Type] {
			cb(context)
		}
	}
}
