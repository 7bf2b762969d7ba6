// Package levelrolesdomain holds the level-role mapping types and the pure
// role synchronization state machine.
package levelrolesdomain

import (
	"cmp"
	"slices"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

const day = 24 * time.Hour

// Mapping grants RoleID to members at or above RequiredLevel. A member who
// drops below keeps the role for DropGraceDays before it is revoked.
type Mapping struct {
	GuildID       sharedtypes.GuildID `json:"guildId"`
	RoleID        sharedtypes.RoleID  `json:"roleId"`
	RequiredLevel int64               `json:"requiredLevel"`
	DropGraceDays int                 `json:"dropGraceDays"`
}

// Grace returns the drop grace period as a duration.
func (m Mapping) Grace() time.Duration {
	return time.Duration(m.DropGraceDays) * day
}

// Validate rejects mappings with an empty role or negative thresholds.
func (m Mapping) Validate() error {
	if m.GuildID == "" {
		return apperrors.NewValidationError("guildId", "is required")
	}
	if m.RoleID == "" {
		return apperrors.NewValidationError("roleId", "is required")
	}
	if m.RequiredLevel < 0 {
		return apperrors.NewValidationError("requiredLevel", "must be >= 0")
	}
	if m.DropGraceDays < 0 {
		return apperrors.NewValidationError("dropGraceDays", "must be >= 0")
	}
	return nil
}

// SortMappings orders mappings by required level, then role id.
func SortMappings(mappings []Mapping) {
	slices.SortFunc(mappings, func(a, b Mapping) int {
		if c := cmp.Compare(a.RequiredLevel, b.RequiredLevel); c != 0 {
			return c
		}
		return cmp.Compare(a.RoleID, b.RoleID)
	})
}

// State classifies a (user, role) pair for one mapping.
type State string

const (
	QualifiedGranted   State = "qualified_granted"
	QualifiedUngranted State = "qualified_ungranted"
	UnqualifiedClean   State = "unqualified_clean"
	UnqualifiedPending State = "unqualified_pending"
	UnqualifiedExpired State = "unqualified_expired"
)

// Classify returns the state of a member at level for mapping m. belowSince
// is the zero time when no grace timer is running; a held role below its
// level without a timer is pending from now on, or expired when the mapping
// has no grace.
func Classify(m Mapping, level int64, held bool, belowSince, now time.Time) State {
	switch {
	case level >= m.RequiredLevel && held:
		return QualifiedGranted
	case level >= m.RequiredLevel:
		return QualifiedUngranted
	case !held:
		return UnqualifiedClean
	case belowSince.IsZero():
		if m.DropGraceDays == 0 {
			return UnqualifiedExpired
		}
		return UnqualifiedPending
	case now.Sub(belowSince) > m.Grace():
		return UnqualifiedExpired
	default:
		return UnqualifiedPending
	}
}

// SyncDecision is the set of platform role mutations a sync pass requests.
type SyncDecision struct {
	ToGrant  []sharedtypes.RoleID `json:"toGrant"`
	ToRevoke []sharedtypes.RoleID `json:"toRevoke"`
}

// IsEmpty reports whether the decision requests nothing.
func (d SyncDecision) IsEmpty() bool {
	return len(d.ToGrant) == 0 && len(d.ToRevoke) == 0
}

// Plan is a SyncDecision plus the drop-state writes the caller must persist.
type Plan struct {
	SyncDecision
	// Start lists roles whose grace timer starts now.
	Start []sharedtypes.RoleID
	// Clear lists roles whose grace timer must be removed.
	Clear []sharedtypes.RoleID
	// Pending lists held roles inside a running grace period.
	Pending []sharedtypes.RoleID
}

// Decide evaluates every mapping for a member at level holding held roles.
// belowSince maps role ids to running grace timers. Roles held by the member
// but absent from mappings are never touched.
//
// A revocation does not clear the timer: the caller clears it once the
// platform confirms, so a failed revoke is retried on the next pass.
func Decide(
	mappings []Mapping,
	belowSince map[sharedtypes.RoleID]time.Time,
	level int64,
	held []sharedtypes.RoleID,
	now time.Time,
) Plan {
	holding := make(map[sharedtypes.RoleID]struct{}, len(held))
	for _, r := range held {
		holding[r] = struct{}{}
	}

	plan := Plan{SyncDecision: SyncDecision{
		ToGrant:  []sharedtypes.RoleID{},
		ToRevoke: []sharedtypes.RoleID{},
	}}
	for _, m := range mappings {
		_, isHeld := holding[m.RoleID]
		since, timed := belowSince[m.RoleID]

		switch Classify(m, level, isHeld, since, now) {
		case QualifiedGranted:
			if timed {
				plan.Clear = append(plan.Clear, m.RoleID)
			}
		case QualifiedUngranted:
			plan.ToGrant = append(plan.ToGrant, m.RoleID)
			if timed {
				plan.Clear = append(plan.Clear, m.RoleID)
			}
		case UnqualifiedClean:
			if timed {
				plan.Clear = append(plan.Clear, m.RoleID)
			}
		case UnqualifiedPending:
			if !timed {
				plan.Start = append(plan.Start, m.RoleID)
			}
			plan.Pending = append(plan.Pending, m.RoleID)
		case UnqualifiedExpired:
			plan.ToRevoke = append(plan.ToRevoke, m.RoleID)
		}
	}
	return plan
}
