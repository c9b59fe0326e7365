// Package commission splits a reservation's gross price between the
// resource owner and the platform.
package commission

import (
	"fmt"
	"math"
)

// DefaultPlatformPercent applies when an owner has no override.
const DefaultPlatformPercent = 20

// Whole-number percentage bounds for any commission rate.
const (
	MinPercent = 1
	MaxPercent = 50
)

// Breakdown is the result of splitting a gross amount. Amounts are
// rounded to two decimals; OwnerAmount + PlatformAmount always equals
// the gross within one minor currency unit.
type Breakdown struct {
	OwnerAmount    float64 `json:"owner_amount"`
	PlatformAmount float64 `json:"platform_amount"`
	RateUsed       int     `json:"rate_used"`
}

// ValidRate reports whether r is an acceptable commission percentage.
func ValidRate(r int) bool {
	return r >= MinPercent && r <= MaxPercent
}

// Calculate resolves the effective rate (per-owner override when set,
// platform default otherwise) and splits gross accordingly. Stored
// amounts on completed reservations are authoritative; callers must
// not re-run this against a later-changed rate for those.
func Calculate(gross float64, override *int, defaultPercent int) (Breakdown, error) {
	if gross < 0 {
		return Breakdown{}, fmt.Errorf("gross amount cannot be negative")
	}

	rate := defaultPercent
	if override != nil {
		rate = *override
	}
	if !ValidRate(rate) {
		return Breakdown{}, fmt.Errorf("commission rate %d out of range %d-%d", rate, MinPercent, MaxPercent)
	}

	platform := Round2(gross * float64(rate) / 100)
	owner := Round2(gross - platform)

	return Breakdown{
		OwnerAmount:    owner,
		PlatformAmount: platform,
		RateUsed:       rate,
	}, nil
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
