package fileindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildIndex(counts ...uint32) *EventIndex {
	x := New()
	for _, c := range counts {
		x.AddRecord(c)
	}

	return x
}

func TestEventIndex_SetEvent(t *testing.T) {
	x := buildIndex(3, 2, 4) // R = [0, 3, 5, 9]

	require.True(t, x.SetEvent(4))
	require.Equal(t, 1, x.CurrentRecord())
	require.Equal(t, 1, x.IntraRecord())

	require.False(t, x.SetEvent(3))
	require.Equal(t, 1, x.CurrentRecord())
	require.Equal(t, 0, x.IntraRecord())

	require.True(t, x.SetEvent(0))
	require.Equal(t, 0, x.CurrentRecord())
}

func TestEventIndex_SetEventOutOfRange(t *testing.T) {
	x := buildIndex(3)
	x.SetEvent(1)

	require.False(t, x.SetEvent(-1))
	require.False(t, x.SetEvent(99))
	require.Equal(t, 1, x.CurrentEvent())
}

func TestEventIndex_LocateDoesNotMoveCursor(t *testing.T) {
	x := buildIndex(3, 2, 4) // R = [0, 3, 5, 9]
	x.SetEvent(1)

	rec, intra, ok := x.Locate(7)
	require.True(t, ok)
	require.Equal(t, 2, rec)
	require.Equal(t, 2, intra)
	require.Equal(t, 1, x.CurrentEvent())

	_, _, ok = x.Locate(9)
	require.False(t, ok)
}

func TestEventIndex_AdvanceWithinAndAcrossRecords(t *testing.T) {
	x := buildIndex(2, 3) // R = [0, 2, 5]

	require.False(t, x.Advance()) // event 0 -> 1, still record 0
	require.Equal(t, 1, x.CurrentEvent())
	require.Equal(t, 0, x.CurrentRecord())

	require.True(t, x.Advance()) // event 1 -> 2, crosses into record 1
	require.Equal(t, 2, x.CurrentEvent())
	require.Equal(t, 1, x.CurrentRecord())
	require.Equal(t, 0, x.IntraRecord())
}

func TestEventIndex_AdvanceStopsAtLastEvent(t *testing.T) {
	x := buildIndex(2)
	x.SetEvent(1)

	require.False(t, x.Advance())
	require.Equal(t, 1, x.CurrentEvent())
}

func TestEventIndex_RetreatAcrossRecords(t *testing.T) {
	x := buildIndex(2, 3) // R = [0, 2, 5]
	x.SetEvent(2)

	require.True(t, x.Retreat())
	require.Equal(t, 0, x.CurrentRecord())
	require.Equal(t, 1, x.IntraRecord())

	require.False(t, x.Retreat())
	require.Equal(t, 0, x.CurrentEvent())
}
