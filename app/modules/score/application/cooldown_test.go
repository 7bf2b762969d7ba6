package scoreservice

import (
	"testing"
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/stretchr/testify/assert"
)

func TestCooldownTracker_Allow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cooldown := 20 * time.Second

	tests := []struct {
		name    string
		offsets []time.Duration
		want    []bool
	}{
		{"second event one second later is rejected", []time.Duration{0, time.Second}, []bool{true, false}},
		{"event exactly at cooldown is allowed", []time.Duration{0, 20 * time.Second}, []bool{true, true}},
		{"rejected events do not extend the cooldown", []time.Duration{0, 10 * time.Second, 20 * time.Second}, []bool{true, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCooldownTracker(0)
			for i, off := range tt.offsets {
				got := c.Allow(sharedtypes.ActivityMessage, "g1", "u1", base.Add(off), cooldown)
				assert.Equal(t, tt.want[i], got, "event %d", i)
			}
		})
	}
}

func TestCooldownTracker_KindsAndKeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCooldownTracker(0)

	assert.True(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u1", now, time.Minute))
	assert.True(t, c.Allow(sharedtypes.ActivityReaction, "g1", "u1", now, time.Minute))
	assert.True(t, c.Allow(sharedtypes.ActivityMessage, "g2", "u1", now, time.Minute))
	assert.True(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u2", now, time.Minute))
	assert.False(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u1", now, time.Minute))
	assert.True(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u1", now, 0), "zero cooldown always allows")
}

func TestCooldownTracker_Release(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCooldownTracker(0)

	assert.True(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u1", now, time.Minute))
	c.Release(sharedtypes.ActivityMessage, "g1", "u1", now)
	assert.True(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u1", now.Add(time.Second), time.Minute))

	// A stale release does not clear a newer entry.
	c.Release(sharedtypes.ActivityMessage, "g1", "u1", now)
	assert.False(t, c.Allow(sharedtypes.ActivityMessage, "g1", "u1", now.Add(2*time.Second), time.Minute))
}

func TestCooldownTracker_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewCooldownTracker(6 * time.Hour)

	c.Allow(sharedtypes.ActivityMessage, "g1", "old", now.Add(-7*time.Hour), time.Second)
	c.Allow(sharedtypes.ActivityReaction, "g1", "old", now.Add(-7*time.Hour), time.Second)
	c.Allow(sharedtypes.ActivityMessage, "g1", "fresh", now.Add(-time.Hour), time.Second)

	assert.Equal(t, 2, c.Sweep(now))
	assert.Equal(t, 1, c.Len())
}
