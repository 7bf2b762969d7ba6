package scoredomain

import (
	"cmp"
	"slices"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// MinVoicePeers is the number of eligible members a channel needs before any of them earns voice XP.
const MinVoicePeers = 2

// VoiceMember is one member's voice state at tick time.
type VoiceMember struct {
	UserID     sharedtypes.UserID    `json:"userId"`
	ChannelID  sharedtypes.ChannelID `json:"channelId"`
	IsBot      bool                  `json:"isBot"`
	SelfMute   bool                  `json:"selfMute"`
	ServerMute bool                  `json:"serverMute"`
	SelfDeaf   bool                  `json:"selfDeaf"`
	ServerDeaf bool                  `json:"serverDeaf"`
}

// VoiceSnapshot is every connected voice member of one guild.
type VoiceSnapshot struct {
	GuildID      sharedtypes.GuildID   `json:"guildId"`
	AFKChannelID sharedtypes.ChannelID `json:"afkChannelId,omitempty"`
	Members      []VoiceMember         `json:"members"`
}

// Eligible reports whether m may count toward and receive a voice award.
func (m VoiceMember) Eligible(afkChannelID sharedtypes.ChannelID) bool {
	if m.ChannelID == "" || m.IsBot {
		return false
	}
	if m.SelfMute || m.ServerMute || m.SelfDeaf || m.ServerDeaf {
		return false
	}
	if afkChannelID != "" && m.ChannelID == afkChannelID {
		return false
	}
	return true
}

// EligibleVoiceMembers returns the members that earn voice XP this tick:
// eligible members sharing a channel with at least one other eligible member.
// The result is ordered by channel, then user.
func EligibleVoiceMembers(snap VoiceSnapshot) []VoiceMember {
	byChannel := make(map[sharedtypes.ChannelID][]VoiceMember)
	seen := make(map[sharedtypes.UserID]struct{}, len(snap.Members))
	for _, m := range snap.Members {
		if !m.Eligible(snap.AFKChannelID) {
			continue
		}
		if _, dup := seen[m.UserID]; dup {
			continue
		}
		seen[m.UserID] = struct{}{}
		byChannel[m.ChannelID] = append(byChannel[m.ChannelID], m)
	}

	var out []VoiceMember
	for _, members := range byChannel {
		if len(members) < MinVoicePeers {
			continue
		}
		out = append(out, members...)
	}
	slices.SortFunc(out, func(a, b VoiceMember) int {
		if c := cmp.Compare(a.ChannelID, b.ChannelID); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out
}
