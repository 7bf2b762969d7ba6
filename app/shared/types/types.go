package sharedtypes

// GuildID is a Discord guild (server) snowflake.
type GuildID string

// UserID is a Discord user snowflake.
type UserID string

// RoleID is a Discord role snowflake.
type RoleID string

// ChannelID is a Discord channel snowflake.
type ChannelID string

func (g GuildID) String() string { return string(g) }
func (u UserID) String() string { return string(u) }
func (r RoleID) String() string { return string(r) }
func (c ChannelID) String() string { return string(c) }

// ActivityKind classifies an entry in the activity log.
type ActivityKind string

const (
	ActivityMessage     ActivityKind = "message"
	ActivityReaction    ActivityKind = "reaction"
	ActivityVoiceMinute ActivityKind = "voice_minute"
)

// Valid reports whether k is one of the known activity kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityMessage, ActivityReaction, ActivityVoiceMinute:
		return true
	}
	return false
}

// XPSource identifies what caused an XP change.
type XPSource string

const (
	SourceMessage  XPSource = "message"
	SourceReaction XPSource = "reaction"
	SourceVoice    XPSource = "voice"
	SourceDecay    XPSource = "decay"
	SourceAdmin    XPSource = "admin"
)
