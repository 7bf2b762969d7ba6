// Package discord adapts a discordgo gateway session to the rest of the bot:
// inbound messages and reactions become normalized events on the bus, and the
// level roles module mutates member roles through it.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bwmarrin/discordgo"
)

// Intents are the gateway intents the bot needs. GuildMembers is privileged
// and must be enabled for the application.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMembers

// DefaultPublishTimeout bounds a single event publish from a gateway callback.
const DefaultPublishTimeout = 5 * time.Second

// Config configures the gateway session.
type Config struct {
	Token          string
	PublishTimeout time.Duration
}

// memberAPI is the subset of the discordgo REST client the adapter calls.
type memberAPI interface {
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Session wraps the discordgo session.
type Session struct {
	dg        *discordgo.Session
	api       memberAPI
	state     *discordgo.State
	publisher message.Publisher
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewSession creates a session that publishes gateway events to publisher.
// The websocket is not opened until Open.
func NewSession(cfg Config, publisher message.Publisher, logger *slog.Logger) (*Session, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is empty")
	}
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	dg.Identify.Intents = Intents
	dg.StateEnabled = true
	dg.State.TrackVoice = true
	dg.State.TrackMembers = true

	s := newSession(dg, dg.State, publisher, logger)
	s.dg = dg
	if cfg.PublishTimeout > 0 {
		s.timeout = cfg.PublishTimeout
	}

	dg.AddHandler(s.onReady)
	dg.AddHandler(s.onMessageCreate)
	dg.AddHandler(s.onReactionAdd)
	return s, nil
}

func newSession(api memberAPI, state *discordgo.State, publisher message.Publisher, logger *slog.Logger) *Session {
	return &Session{
		api:       api,
		state:     state,
		publisher: publisher,
		logger:    logger,
		timeout:   DefaultPublishTimeout,
		now:       time.Now,
	}
}

// Open connects the gateway websocket.
func (s *Session) Open(ctx context.Context) error {
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	s.logger.InfoContext(ctx, "Discord gateway connected")
	return nil
}

// Close disconnects the gateway websocket.
func (s *Session) Close() error {
	if s.dg == nil {
		return nil
	}
	return s.dg.Close()
}

// GuildIDs lists the guilds the bot currently sees.
func (s *Session) GuildIDs() []sharedtypes.GuildID {
	if s.state == nil {
		return nil
	}
	s.state.RLock()
	defer s.state.RUnlock()

	ids := make([]sharedtypes.GuildID, 0, len(s.state.Guilds))
	for _, g := range s.state.Guilds {
		if g == nil || g.Unavailable {
			continue
		}
		ids = append(ids, sharedtypes.GuildID(g.ID))
	}
	return ids
}

func (s *Session) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	user := ""
	if r.User != nil {
		user = r.User.Username
	}
	s.logger.Info("Discord session ready",
		slog.String("bot_user", user),
		slog.Int("guilds", len(r.Guilds)),
	)
}
