package scoredomain

import "math"

// LevelFromXP returns floor(sqrt(max(0, xp) / max(1, factor))).
func LevelFromXP(xp, factor int64) int64 {
	xp = ClampXP(xp)
	if xp == 0 {
		return 0
	}
	if factor < 1 {
		factor = 1
	}
	// floor(sqrt(x)) == floor(sqrt(floor(x))) for x >= 0, so integer division is exact here.
	return isqrt(xp / factor)
}

// XPRangeForLevel returns [start, next): the XP at which level begins and the
// XP at which level+1 begins. Values saturate at math.MaxInt64.
func XPRangeForLevel(level, factor int64) (start, next int64) {
	if level < 0 {
		level = 0
	}
	if factor < 1 {
		factor = 1
	}
	return satMul(satMul(level, level), factor), satMul(satMul(level+1, level+1), factor)
}

// ProgressWithinLevel returns how far xp is through level, in [0, 1].
func ProgressWithinLevel(xp, level, factor int64) float64 {
	start, next := XPRangeForLevel(level, factor)
	span := next - start
	if span < 1 {
		span = 1
	}
	p := float64(xp-start) / float64(span)
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	r := int64(math.Sqrt(float64(n)))
	// math.Sqrt can be off by one for large n.
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

func satMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
