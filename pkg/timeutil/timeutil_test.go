package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"9:00", 540},
		{"09:00", 540},
		{"17:30", 1050},
		{"0:15", 15},
		{"23:59", 1439},
		{"9:00AM", 540},
		{"9:00 am", 540},
		{"2:30PM", 870},
		{"2:30 pm", 870},
		{"12:00AM", 0},
		{"12:30 am", 30},
		{"12:00PM", 720},
		{"12:45 PM", 765},
		{" 11:00 PM ", 1380},
	}
	for _, c := range cases {
		got, err := ParseTime(c.in)
		require.NoErrorf(t, err, "ParseTime(%q)", c.in)
		assert.Equalf(t, c.want, got, "ParseTime(%q)", c.in)
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "noon", "25:00", "9:60", "13:00PM", "0:00AM", "9", "9:5:0"} {
		_, err := ParseTime(in)
		assert.Errorf(t, err, "ParseTime(%q) should fail", in)
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "12:00 AM", FormatTime(0))
	assert.Equal(t, "12:00 PM", FormatTime(720))
	assert.Equal(t, "9:00 AM", FormatTime(540))
	assert.Equal(t, "1:30 PM", FormatTime(810))
	assert.Equal(t, "11:59 PM", FormatTime(1439))
}

func TestOverlapsBoundaryExclusive(t *testing.T) {
	// Back-to-back slots share a boundary and must not conflict.
	assert.False(t, Overlaps(540, 600, 600, 660))
	assert.False(t, Overlaps(600, 660, 540, 600))

	assert.True(t, Overlaps(540, 600, 570, 630))
	assert.True(t, Overlaps(570, 630, 540, 600))
	assert.True(t, Overlaps(540, 660, 570, 600)) // containment
	assert.True(t, Overlaps(540, 600, 540, 600)) // identity
	assert.False(t, Overlaps(540, 600, 660, 720))
}

func TestDateOnlyAndAtMinute(t *testing.T) {
	ts := time.Date(2025, 3, 10, 14, 45, 12, 999, time.UTC)
	d := DateOnly(ts)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC), AtMinute(ts, 570))
}
