package scoredomain

import "math"

// MaxDecayPercent caps the fraction of XP removed by one decay pass.
const MaxDecayPercent = 0.95

// ShouldDecay reports whether a user with messagesInWindow messages falls below the activity floor.
func ShouldDecay(messagesInWindow int64, minMessages int) bool {
	return messagesInWindow < int64(minMessages)
}

// DecayedXP returns floor(current * (1 - percent)), with percent clamped to
// [0, MaxDecayPercent] regardless of what is stored.
func DecayedXP(current int64, percent float64) int64 {
	current = ClampXP(current)
	if math.IsNaN(percent) || percent < 0 {
		percent = 0
	}
	if percent > MaxDecayPercent {
		percent = MaxDecayPercent
	}
	return ClampXP(int64(math.Floor(float64(current) * (1 - percent))))
}
