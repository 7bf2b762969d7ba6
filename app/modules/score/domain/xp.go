// Package scoredomain holds the pure XP arithmetic: clamping, the level
// curve, decay and voice eligibility.
package scoredomain

import "math"

// MaxSafeXP is the largest XP value a user can hold (2^53 - 1), the largest
// integer that round-trips through a float64 and a JSON number unchanged.
const MaxSafeXP int64 = 1<<53 - 1

// ClampXP bounds xp to [0, MaxSafeXP].
func ClampXP(xp int64) int64 {
	switch {
	case xp < 0:
		return 0
	case xp > MaxSafeXP:
		return MaxSafeXP
	default:
		return xp
	}
}

// ClampDelta bounds a signed delta to [-MaxSafeXP, MaxSafeXP] so that adding
// it to any stored value cannot overflow int64.
func ClampDelta(delta int64) int64 {
	switch {
	case delta < -MaxSafeXP:
		return -MaxSafeXP
	case delta > MaxSafeXP:
		return MaxSafeXP
	default:
		return delta
	}
}

// ApplyDelta returns ClampXP(current + delta), truncating at both bounds.
func ApplyDelta(current, delta int64) int64 {
	return ClampXP(ClampXP(current) + ClampDelta(delta))
}

// NormalizeXP converts an arbitrary number to a valid XP value: non-finite and
// negative inputs become 0, fractions are floored, overflow saturates.
func NormalizeXP(v float64) int64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if math.IsInf(v, 1) || v >= float64(MaxSafeXP) {
		return MaxSafeXP
	}
	return int64(math.Floor(v))
}
