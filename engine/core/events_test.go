package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventFireAndProcess(t *testing.T) {
	require.NoError(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var received []SystemEventCode
	EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) {
		received = append(received, context.Type)
	})

	EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED})
	EventFire(EventContext{Type: EVENT_CODE_KEY_RELEASED})
	assert.Empty(t, received, "events deliver on process, not on fire")

	EventsProcess()
	assert.Equal(t, []SystemEventCode{EVENT_CODE_KEY_PRESSED}, received)
}

func TestEventsProcessPreservesOrder(t *testing.T) {
	require.NoError(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var codes []KeyCode
	EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) {
		codes = append(codes, context.Data.(*KeyEvent).KeyCode)
	})

	for _, key := range []KeyCode{KEY_W, KEY_A, KEY_S} {
		EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: key}})
	}
	EventsProcess()
	assert.Equal(t, []KeyCode{KEY_W, KEY_A, KEY_S}, codes)
}

func TestEventFireDropsOldestWhenFull(t *testing.T) {
	require.NoError(t, EventSystemInitialize())
	defer EventSystemShutdown()

	var first KeyCode
	seen := 0
	EventRegister(EVENT_CODE_KEY_PRESSED, func(context EventContext) {
		if seen == 0 {
			first = context.Data.(*KeyEvent).KeyCode
		}
		seen++
	})

	for i := 0; i <= maxPendingEvents; i++ {
		EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KeyCode(i)}})
	}
	EventsProcess()

	assert.Equal(t, maxPendingEvents, seen)
	// The overflowing fire evicted event 0.
	assert.Equal(t, KeyCode(1), first)
}

func TestEventSystemUninitializedIsInert(t *testing.T) {
	require.NoError(t, EventSystemShutdown())

	EventRegister(EVENT_CODE_RESIZED, func(EventContext) { t.Fatal("must not fire") })
	EventFire(EventContext{Type: EVENT_CODE_RESIZED})
	EventsProcess()
}
