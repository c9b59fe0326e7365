package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotmarket_backend/pkg/timeutil"
)

func TestResolveOpenDay(t *testing.T) {
	// 09:00-17:00, 60 minute slots, nothing booked.
	slots, err := Resolve(540, 1020, 60, nil)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	assert.Equal(t, "9:00 AM", slots[0].StartTime)
	assert.Equal(t, "10:00 AM", slots[0].EndTime)
	assert.Equal(t, "9:55 AM", slots[0].DisplayEndTime)
	assert.Equal(t, "4:00 PM", slots[7].StartTime)
	for _, s := range slots {
		assert.True(t, s.Available)
		assert.Empty(t, s.ConflictCause)
	}
}

func TestResolveWithReservation(t *testing.T) {
	// Existing reservation 10:00-11:00 blocks exactly one slot.
	busy := []BusyWindow{{StartMinute: 600, EndMinute: 660, Cause: CauseReservation}}
	slots, err := Resolve(540, 1020, 60, busy)
	require.NoError(t, err)
	require.Len(t, slots, 8)

	for _, s := range slots {
		if s.StartMinute == 600 {
			assert.False(t, s.Available)
			assert.Equal(t, CauseReservation, s.ConflictCause)
		} else {
			assert.Truef(t, s.Available, "slot %s should be free", s.StartTime)
		}
	}

	// The 09:00 slot displays a buffered end but its true range still
	// reaches 10:00, so overlap math keeps using the real end minute.
	assert.Equal(t, "9:55 AM", slots[0].DisplayEndTime)
	assert.Equal(t, 600, slots[0].EndMinute)
}

func TestResolveNoPartialTrailingSlot(t *testing.T) {
	// 09:00-10:30 with 60 minute slots: only 09:00 fits fully.
	slots, err := Resolve(540, 630, 60, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 540, slots[0].StartMinute)

	// 30 minute slots fill the same range exactly.
	slots, err = Resolve(540, 630, 30, nil)
	require.NoError(t, err)
	assert.Len(t, slots, 3)
}

func TestResolveRejectsBadInput(t *testing.T) {
	_, err := Resolve(540, 1020, 45, nil)
	assert.Error(t, err)
	_, err = Resolve(1020, 540, 60, nil)
	assert.Error(t, err)
}

func TestAvailableSlotsNeverOverlap(t *testing.T) {
	busy := []BusyWindow{
		{StartMinute: 600, EndMinute: 660, Cause: CauseReservation},
		{StartMinute: 840, EndMinute: 900, Cause: CauseRecurring},
	}
	slots, err := Resolve(540, 1020, 30, busy)
	require.NoError(t, err)

	for i, a := range slots {
		for _, b := range slots[i+1:] {
			if a.Available && b.Available {
				assert.False(t,
					timeutil.Overlaps(a.StartMinute, a.EndMinute, b.StartMinute, b.EndMinute),
					"available slots %s and %s overlap", a.StartTime, b.StartTime)
			}
		}
	}
}

func TestRecurringProjectionBlocksSlot(t *testing.T) {
	// Weekly subscription Monday 14:00-15:00 with no reservation yet:
	// the 14:00 slot is blocked with a recurring cause, and an
	// overlapping 14:30-15:30 request conflicts too.
	busy := []BusyWindow{{StartMinute: 840, EndMinute: 900, Cause: CauseRecurring}}

	slots, err := Resolve(540, 1020, 60, busy)
	require.NoError(t, err)
	for _, s := range slots {
		if s.StartMinute == 840 {
			assert.False(t, s.Available)
			assert.Equal(t, CauseRecurring, s.ConflictCause)
		}
	}

	cause, conflict := Conflicts(busy, 870, 930)
	assert.True(t, conflict)
	assert.Equal(t, CauseRecurring, cause)
}

func TestConflictsPrefersReservationCause(t *testing.T) {
	busy := []BusyWindow{
		{StartMinute: 600, EndMinute: 660, Cause: CauseRecurring},
		{StartMinute: 600, EndMinute: 660, Cause: CauseReservation},
	}
	cause, conflict := Conflicts(busy, 600, 660)
	assert.True(t, conflict)
	assert.Equal(t, CauseReservation, cause)

	_, conflict = Conflicts(busy, 660, 720)
	assert.False(t, conflict)
}
