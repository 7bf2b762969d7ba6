package scoreservice

import (
	"sync"
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// DefaultCooldownMaxAge is how long an idle cooldown entry survives a sweep.
const DefaultCooldownMaxAge = 6 * time.Hour

type cooldownKey struct {
	guildID sharedtypes.GuildID
	userID  sharedtypes.UserID
}

// CooldownTracker remembers the last awarded message and reaction per
// (guild, user). It is process-local; entries are dropped by Sweep.
type CooldownTracker struct {
	mu       sync.Mutex
	message  map[cooldownKey]time.Time
	reaction map[cooldownKey]time.Time
	maxAge   time.Duration
}

// NewCooldownTracker creates a tracker whose sweeps drop entries older than maxAge.
// A non-positive maxAge selects DefaultCooldownMaxAge.
func NewCooldownTracker(maxAge time.Duration) *CooldownTracker {
	if maxAge <= 0 {
		maxAge = DefaultCooldownMaxAge
	}
	return &CooldownTracker{
		message:  make(map[cooldownKey]time.Time),
		reaction: make(map[cooldownKey]time.Time),
		maxAge:   maxAge,
	}
}

func (c *CooldownTracker) entries(kind sharedtypes.ActivityKind) map[cooldownKey]time.Time {
	switch kind {
	case sharedtypes.ActivityMessage:
		return c.message
	case sharedtypes.ActivityReaction:
		return c.reaction
	default:
		return nil
	}
}

// Allow reports whether at least cooldown has elapsed since the last allowed
// event of kind for the user, and records now when it has.
func (c *CooldownTracker) Allow(kind sharedtypes.ActivityKind, guildID sharedtypes.GuildID, userID sharedtypes.UserID, now time.Time, cooldown time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.entries(kind)
	if m == nil {
		return true
	}
	key := cooldownKey{guildID: guildID, userID: userID}
	last, ok := m[key]
	if ok && cooldown > 0 && now.Sub(last) < cooldown {
		return false
	}
	// Events may arrive out of order; keep the latest timestamp.
	if !ok || now.After(last) {
		m[key] = now
	}
	return true
}

// Release forgets the user's last event of kind so that a failed award does
// not hold the user in cooldown.
func (c *CooldownTracker) Release(kind sharedtypes.ActivityKind, guildID sharedtypes.GuildID, userID sharedtypes.UserID, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.entries(kind)
	key := cooldownKey{guildID: guildID, userID: userID}
	if m != nil && m[key].Equal(at) {
		delete(m, key)
	}
}

// Sweep drops entries older than the tracker's max age and returns how many were removed.
func (c *CooldownTracker) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, m := range []map[cooldownKey]time.Time{c.message, c.reaction} {
		for key, last := range m {
			if now.Sub(last) > c.maxAge {
				delete(m, key)
				removed++
			}
		}
	}
	return removed
}

// Len returns the number of tracked entries across both maps.
func (c *CooldownTracker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.message) + len(c.reaction)
}
