package uthread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThreadTableInitialState(t *testing.T) {
	tt := newThreadTable(4)
	for i := 0; i < 4; i++ {
		cb, ok := tt.get(i)
		require.True(t, ok, "get(%d) should succeed within capacity", i)
		require.Equal(t, i, cb.Tid, "slot %d Tid", i)
		require.Equal(t, StateUnused, cb.State, "slot %d should start Unused", i)
	}
	_, ok := tt.get(4)
	require.False(t, ok, "get() should fail out of range")
	_, ok = tt.get(-1)
	require.False(t, ok, "get() should fail on negative id")
}

func TestThreadTableAllocateScansFromOne(t *testing.T) {
	tt := newThreadTable(3)
	tt.slots[0].State = StateRunning // main, must never be allocated

	cb, ok := tt.allocate()
	require.True(t, ok)
	require.Equal(t, 1, cb.Tid)
	cb.State = StateReady

	cb2, ok := tt.allocate()
	require.True(t, ok)
	require.Equal(t, 2, cb2.Tid)
	cb2.State = StateReady

	_, ok = tt.allocate()
	require.False(t, ok, "allocate() should fail once the table is full")
}

func TestThreadTableAllocateReusesTerminatedSlots(t *testing.T) {
	tt := newThreadTable(3)
	tt.slots[0].State = StateRunning
	tt.slots[1].State = StateTerminated
	tt.slots[2].State = StateReady

	cb, ok := tt.allocate()
	require.True(t, ok)
	require.Equal(t, 1, cb.Tid, "allocate() should reclaim the lowest terminated slot")
}

func TestThreadTableLive(t *testing.T) {
	tt := newThreadTable(3)
	tt.slots[0].State = StateRunning
	tt.slots[1].State = StateTerminated
	tt.slots[2].State = StateBlocked

	require.True(t, tt.live(0), "running slot should be live")
	require.False(t, tt.live(1), "terminated slot should not be live")
	require.True(t, tt.live(2), "blocked slot should still be live")
	require.False(t, tt.live(9), "out-of-range id should not be live")
}
