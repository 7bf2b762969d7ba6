package discord

import (
	"errors"
	"fmt"

	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/bwmarrin/discordgo"
)

// VoiceSnapshot reads the guild's cached voice states.
func (s *Session) VoiceSnapshot(guildID sharedtypes.GuildID) (scoredomain.VoiceSnapshot, error) {
	if s.state == nil {
		return scoredomain.VoiceSnapshot{}, errors.New("discord: state disabled")
	}
	g, err := s.state.Guild(string(guildID))
	if err != nil {
		return scoredomain.VoiceSnapshot{}, fmt.Errorf("discord: guild %s: %w", guildID, err)
	}

	s.state.RLock()
	defer s.state.RUnlock()
	return snapshotFromGuild(g), nil
}

// snapshotFromGuild converts voice states to the scoring model. A voice state
// without an attached member falls back to the guild's member list for the bot flag.
func snapshotFromGuild(g *discordgo.Guild) scoredomain.VoiceSnapshot {
	snap := scoredomain.VoiceSnapshot{
		GuildID:      sharedtypes.GuildID(g.ID),
		AFKChannelID: sharedtypes.ChannelID(g.AfkChannelID),
	}

	bots := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		if m != nil && m.User != nil {
			bots[m.User.ID] = m.User.Bot
		}
	}

	for _, vs := range g.VoiceStates {
		if vs == nil || vs.ChannelID == "" {
			continue
		}
		bot := bots[vs.UserID]
		if vs.Member != nil && vs.Member.User != nil {
			bot = vs.Member.User.Bot
		}
		snap.Members = append(snap.Members, scoredomain.VoiceMember{
			UserID:     sharedtypes.UserID(vs.UserID),
			ChannelID:  sharedtypes.ChannelID(vs.ChannelID),
			IsBot:      bot,
			SelfMute:   vs.SelfMute,
			ServerMute: vs.Mute,
			SelfDeaf:   vs.SelfDeaf,
			ServerDeaf: vs.Deaf,
		})
	}
	return snap
}
