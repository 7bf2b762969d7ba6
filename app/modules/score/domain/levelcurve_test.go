package scoredomain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		name   string
		xp     int64
		factor int64
		want   int64
	}{
		{"zero xp", 0, 100, 0},
		{"negative xp", -50, 100, 0},
		{"just below level one", 99, 100, 0},
		{"exactly level one", 100, 100, 1},
		{"level two boundary", 400, 100, 2},
		{"just below level three", 899, 100, 2},
		{"factor below one treated as one", 16, 0, 4},
		{"max safe xp", MaxSafeXP, 1, 94906265},
		{"corrupt overflow clamps", math.MaxInt64, 1, 94906265},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromXP(tt.xp, tt.factor))
		})
	}
}

func TestLevelFromXP_Monotonic(t *testing.T) {
	for _, factor := range []int64{1, 7, 100, 1000} {
		prev := int64(0)
		for xp := int64(0); xp <= 50_000; xp += 13 {
			level := LevelFromXP(xp, factor)
			if level < prev {
				t.Fatalf("level decreased at xp=%d factor=%d: %d < %d", xp, factor, level, prev)
			}
			prev = level
		}
	}
}

func TestXPRangeForLevel(t *testing.T) {
	start, next := XPRangeForLevel(0, 100)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(100), next)

	start, next = XPRangeForLevel(3, 100)
	assert.Equal(t, int64(900), start)
	assert.Equal(t, int64(1600), next)

	// Every xp in [start, next) maps back to the level.
	for level := int64(0); level < 20; level++ {
		start, next := XPRangeForLevel(level, 37)
		assert.Equal(t, level, LevelFromXP(start, 37))
		assert.Equal(t, level, LevelFromXP(next-1, 37))
		assert.Equal(t, level+1, LevelFromXP(next, 37))
	}

	_, next = XPRangeForLevel(math.MaxInt32, math.MaxInt32)
	assert.Equal(t, int64(math.MaxInt64), next, "saturates instead of overflowing")
}

func TestProgressWithinLevel(t *testing.T) {
	assert.InDelta(t, 0.0, ProgressWithinLevel(100, 1, 100), 1e-9)
	assert.InDelta(t, 0.5, ProgressWithinLevel(250, 1, 100), 1e-9)
	assert.InDelta(t, 1.0, ProgressWithinLevel(10_000, 1, 100), 1e-9)
	assert.InDelta(t, 0.0, ProgressWithinLevel(-10, 0, 100), 1e-9)
}
