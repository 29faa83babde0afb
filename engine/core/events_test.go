package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type listener struct {
	received []EventContext
	handled  bool
}

func (l *listener) onEvent(context EventContext) bool {
	l.received = append(l.received, context)
	return l.handled
}

func withEventSystem(t *testing.T) {
	t.Helper()
	require.True(t, EventSystemInitialize())
	t.Cleanup(func() { require.NoError(t, EventSystemShutdown()) })
}

func TestEventFireDeliversData(t *testing.T) {
	withEventSystem(t)

	l := &listener{}
	require.True(t, EventRegister(EVENT_CODE_RESIZED, l, l.onEvent))

	fired := EventFire(EventContext{
		Type: EVENT_CODE_RESIZED,
		Data: &SystemEvent{WindowWidth: 1024, WindowHeight: 768},
	})
	require.False(t, fired)
	require.Len(t, l.received, 1)

	se, ok := l.received[0].Data.(*SystemEvent)
	require.True(t, ok)
	require.Equal(t, uint32(1024), se.WindowWidth)
	require.Equal(t, uint32(768), se.WindowHeight)
}

func TestEventRegisterRejectsDuplicates(t *testing.T) {
	withEventSystem(t)

	l := &listener{}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, l, l.onEvent))
	require.False(t, EventRegister(EVENT_CODE_KEY_PRESSED, l, l.onEvent))
	require.True(t, EventRegister(EVENT_CODE_KEY_RELEASED, l, l.onEvent))
}

func TestEventHandledStopsPropagation(t *testing.T) {
	withEventSystem(t)

	first := &listener{handled: true}
	second := &listener{}
	require.True(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, first, first.onEvent))
	require.True(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, second, second.onEvent))

	require.True(t, EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	require.Len(t, first.received, 1)
	require.Empty(t, second.received)
}

func TestEventUnregister(t *testing.T) {
	withEventSystem(t)

	a := &listener{}
	b := &listener{}
	require.True(t, EventRegister(EVENT_CODE_SHADERS_CHANGED, a, a.onEvent))
	require.True(t, EventRegister(EVENT_CODE_SHADERS_CHANGED, b, b.onEvent))

	require.True(t, EventUnregister(EVENT_CODE_SHADERS_CHANGED, a))
	require.False(t, EventUnregister(EVENT_CODE_SHADERS_CHANGED, a))

	EventFire(EventContext{Type: EVENT_CODE_SHADERS_CHANGED, Data: &AssetEvent{Path: "shaders/triangle-vert.spv"}})
	require.Empty(t, a.received)
	require.Len(t, b.received, 1)
}

func TestEventsBeforeInitialize(t *testing.T) {
	l := &listener{}
	require.False(t, EventRegister(EVENT_CODE_RESIZED, l, l.onEvent))
	require.False(t, EventFire(EventContext{Type: EVENT_CODE_RESIZED}))
	require.False(t, EventUnregister(EVENT_CODE_RESIZED, l))
}
