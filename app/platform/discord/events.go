package discord

import (
	"context"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/eventbus"
	"github.com/Black-And-White-Club/levelbot/app/events"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/bwmarrin/discordgo"
)

// messagePayload normalizes a gateway message. Direct messages and messages
// without an author yield false.
func messagePayload(m *discordgo.Message, now time.Time) (events.MessageCreatedPayloadV1, bool) {
	if m == nil || m.GuildID == "" || m.Author == nil {
		return events.MessageCreatedPayloadV1{}, false
	}
	at := m.Timestamp
	if at.IsZero() {
		at = now
	}
	return events.MessageCreatedPayloadV1{
		GuildID:    sharedtypes.GuildID(m.GuildID),
		ChannelID:  sharedtypes.ChannelID(m.ChannelID),
		UserID:     sharedtypes.UserID(m.Author.ID),
		MessageID:  m.ID,
		IsBot:      m.Author.Bot || m.WebhookID != "",
		OccurredAt: at.UTC(),
	}, true
}

// reactionPayload normalizes a reaction addition. isBot reports whether the
// reacting user is a bot when the event carries no member.
func reactionPayload(r *discordgo.MessageReactionAdd, isBot func(guildID, userID string) bool, now time.Time) (events.ReactionAddedPayloadV1, bool) {
	if r == nil || r.MessageReaction == nil || r.GuildID == "" || r.UserID == "" {
		return events.ReactionAddedPayloadV1{}, false
	}
	bot := false
	if r.Member != nil && r.Member.User != nil {
		bot = r.Member.User.Bot
	} else if isBot != nil {
		bot = isBot(r.GuildID, r.UserID)
	}
	return events.ReactionAddedPayloadV1{
		GuildID:    sharedtypes.GuildID(r.GuildID),
		ChannelID:  sharedtypes.ChannelID(r.ChannelID),
		UserID:     sharedtypes.UserID(r.UserID),
		MessageID:  r.MessageID,
		Emoji:      r.Emoji.APIName(),
		IsBot:      bot,
		OccurredAt: now.UTC(),
	}, true
}

func (s *Session) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil {
		return
	}
	payload, ok := messagePayload(m.Message, s.now())
	if !ok {
		return
	}
	s.publish(events.MessageCreatedV1, payload.GuildID, payload.UserID, payload)
}

func (s *Session) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	payload, ok := reactionPayload(r, s.memberIsBot, s.now())
	if !ok {
		return
	}
	s.publish(events.ReactionAddedV1, payload.GuildID, payload.UserID, payload)
}

func (s *Session) publish(topic string, guildID sharedtypes.GuildID, userID sharedtypes.UserID, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = attr.WithCorrelationID(ctx, watermill.NewUUID())

	if err := eventbus.PublishJSON(ctx, s.publisher, topic, payload); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish gateway event",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.Error(err),
		)
	}
}

func (s *Session) memberIsBot(guildID, userID string) bool {
	if s.state == nil {
		return false
	}
	member, err := s.state.Member(guildID, userID)
	if err != nil || member.User == nil {
		return false
	}
	return member.User.Bot
}
