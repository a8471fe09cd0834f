package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/travmiller/paper-console-sub000/log2"
)

func TestDispatchInactive(t *testing.T) {
	t.Parallel()

	m := New(log2.NewTest(t, log2.LDebug))
	assert.False(t, m.Dispatch(3))
	assert.False(t, m.Active())
}

func TestEnterSupersedes(t *testing.T) {
	t.Parallel()

	m := New(log2.NewTest(t, log2.LDebug))
	oldCalls := 0
	newCalls := 0
	m.Enter("old", func(uint8) { oldCalls++ })
	m.Enter("new", func(uint8) { newCalls++ })
	assert.Equal(t, "new", m.Owner())
	assert.True(t, m.Dispatch(5))
	assert.Equal(t, 0, oldCalls)
	assert.Equal(t, 1, newCalls)
}

func TestExitOwnerLateTimeout(t *testing.T) {
	t.Parallel()

	m := New(log2.NewTest(t, log2.LDebug))
	m.Enter("menu-1", func(uint8) {})
	m.Enter("menu-2", func(uint8) {})
	// menu-1 timeout fires after menu-2 took over: must be a no-op
	assert.False(t, m.ExitOwner("menu-1"))
	assert.True(t, m.Active())
	assert.True(t, m.ExitOwner("menu-2"))
	assert.False(t, m.Active())
}

func TestDispatchPanicClearsSession(t *testing.T) {
	t.Parallel()

	m := New(log2.NewTest(t, log2.LDebug))
	m.Enter("broken", func(uint8) { panic("callback bug") })
	assert.True(t, m.Dispatch(1))
	assert.False(t, m.Active(), "panicking session must be cleared")
	assert.False(t, m.Dispatch(1))
}

func TestDispatchPosition(t *testing.T) {
	t.Parallel()

	m := New(log2.NewTest(t, log2.LDebug))
	got := uint8(0)
	m.Enter("menu", func(p uint8) { got = p })
	assert.True(t, m.Dispatch(7))
	assert.Equal(t, uint8(7), got)
	// session stays active until explicit exit
	assert.True(t, m.Dispatch(2))
	assert.Equal(t, uint8(2), got)
}
