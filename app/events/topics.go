// Package events defines the topics exchanged over the event bus and their payloads.
package events

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

const (
	// MessageCreatedV1 is published by the platform adapter for every guild message.
	MessageCreatedV1 = "platform.message.created.v1"

	// ReactionAddedV1 is published by the platform adapter for every reaction addition.
	ReactionAddedV1 = "platform.reaction.added.v1"

	// XPChangedV1 is published by the score module after any XP mutation.
	XPChangedV1 = "score.xp.changed.v1"

	// PoisonV1 receives messages whose handler kept failing after retries.
	PoisonV1 = "levelbot.poison.v1"
)

// MessageCreatedPayloadV1 is a normalized chat message event.
type MessageCreatedPayloadV1 struct {
	GuildID    sharedtypes.GuildID   `json:"guild_id"`
	ChannelID  sharedtypes.ChannelID `json:"channel_id"`
	UserID     sharedtypes.UserID    `json:"user_id"`
	MessageID  string                `json:"message_id,omitempty"`
	IsBot      bool                  `json:"is_bot"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// ReactionAddedPayloadV1 is a normalized reaction addition event.
type ReactionAddedPayloadV1 struct {
	GuildID    sharedtypes.GuildID   `json:"guild_id"`
	ChannelID  sharedtypes.ChannelID `json:"channel_id"`
	UserID     sharedtypes.UserID    `json:"user_id"`
	MessageID  string                `json:"message_id,omitempty"`
	Emoji      string                `json:"emoji,omitempty"`
	IsBot      bool                  `json:"is_bot"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// XPChangedPayloadV1 reports a user's XP and level before and after a mutation.
type XPChangedPayloadV1 struct {
	GuildID    sharedtypes.GuildID  `json:"guild_id"`
	UserID     sharedtypes.UserID   `json:"user_id"`
	OldXP      int64                `json:"old_xp"`
	NewXP      int64                `json:"new_xp"`
	OldLevel   int64                `json:"old_level"`
	NewLevel   int64                `json:"new_level"`
	Source     sharedtypes.XPSource `json:"source"`
	OccurredAt time.Time            `json:"occurred_at"`
}
