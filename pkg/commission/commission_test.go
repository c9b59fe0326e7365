package commission

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateDefaultRate(t *testing.T) {
	b, err := Calculate(100.00, nil, DefaultPlatformPercent)
	require.NoError(t, err)
	assert.Equal(t, 20.00, b.PlatformAmount)
	assert.Equal(t, 80.00, b.OwnerAmount)
	assert.Equal(t, 20, b.RateUsed)
}

func TestCalculateOwnerOverride(t *testing.T) {
	override := 10
	b, err := Calculate(100.00, &override, DefaultPlatformPercent)
	require.NoError(t, err)
	assert.Equal(t, 10.00, b.PlatformAmount)
	assert.Equal(t, 90.00, b.OwnerAmount)
	assert.Equal(t, 10, b.RateUsed)
}

func TestCalculateSumsToGross(t *testing.T) {
	grosses := []float64{0, 0.01, 9.99, 33.33, 100, 149.95, 1234.56}
	for rate := MinPercent; rate <= MaxPercent; rate++ {
		r := rate
		for _, gross := range grosses {
			b, err := Calculate(gross, &r, DefaultPlatformPercent)
			require.NoError(t, err)
			diff := math.Abs(b.OwnerAmount + b.PlatformAmount - gross)
			assert.LessOrEqualf(t, diff, 0.01, "gross %.2f rate %d", gross, rate)
		}
	}
}

func TestCalculateRejectsBadRates(t *testing.T) {
	zero, high := 0, 51
	_, err := Calculate(100, &zero, DefaultPlatformPercent)
	assert.Error(t, err)
	_, err = Calculate(100, &high, DefaultPlatformPercent)
	assert.Error(t, err)
	_, err = Calculate(100, nil, 0)
	assert.Error(t, err)
	_, err = Calculate(-1, nil, DefaultPlatformPercent)
	assert.Error(t, err)
}
