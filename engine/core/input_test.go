package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputProcessKeyFiresOnTransition(t *testing.T) {
	withEventSystem(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { _ = InputShutdown() })

	pressed := &listener{}
	released := &listener{}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, pressed, pressed.onEvent))
	require.True(t, EventRegister(EVENT_CODE_KEY_RELEASED, released, released.onEvent))

	InputProcessKey(KEY_ESCAPE, true)
	InputProcessKey(KEY_ESCAPE, true)
	require.Len(t, pressed.received, 1)
	require.True(t, InputIsKeyDown(KEY_ESCAPE))
	require.False(t, InputWasKeyDown(KEY_ESCAPE))

	ke, ok := pressed.received[0].Data.(*KeyEvent)
	require.True(t, ok)
	require.Equal(t, KEY_ESCAPE, ke.KeyCode)

	InputUpdate()
	require.True(t, InputWasKeyDown(KEY_ESCAPE))

	InputProcessKey(KEY_ESCAPE, false)
	require.Len(t, released.received, 1)
	require.False(t, InputIsKeyDown(KEY_ESCAPE))
}
