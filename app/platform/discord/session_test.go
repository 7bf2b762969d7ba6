package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/eventbus"
	"github.com/Black-And-White-Club/levelbot/app/events"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMemberAPI struct {
	AddFunc    func(guildID, userID, roleID string) error
	RemoveFunc func(guildID, userID, roleID string) error
	MemberFunc func(guildID, userID string) (*discordgo.Member, error)
	calls      []string
}

func (f *fakeMemberAPI) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "add:"+roleID)
	if f.AddFunc != nil {
		return f.AddFunc(guildID, userID, roleID)
	}
	return nil
}

func (f *fakeMemberAPI) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.calls = append(f.calls, "remove:"+roleID)
	if f.RemoveFunc != nil {
		return f.RemoveFunc(guildID, userID, roleID)
	}
	return nil
}

func (f *fakeMemberAPI) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	f.calls = append(f.calls, "member:"+userID)
	if f.MemberFunc != nil {
		return f.MemberFunc(guildID, userID)
	}
	return nil, errors.New("not implemented")
}

func restError(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: http.StatusText(status)},
	}
}

func TestMessagePayload(t *testing.T) {
	sent := time.Date(2026, 3, 1, 11, 59, 0, 0, time.FixedZone("x", 3600))

	tests := []struct {
		name string
		msg  *discordgo.Message
		want events.MessageCreatedPayloadV1
		ok   bool
	}{
		{name: "nil message"},
		{
			name: "direct message",
			msg:  &discordgo.Message{ChannelID: "c1", Author: &discordgo.User{ID: "u1"}},
		},
		{
			name: "no author",
			msg:  &discordgo.Message{GuildID: "g1", ChannelID: "c1"},
		},
		{
			name: "guild message",
			msg: &discordgo.Message{
				ID: "m1", GuildID: "g1", ChannelID: "c1", Timestamp: sent,
				Author: &discordgo.User{ID: "u1"},
			},
			want: events.MessageCreatedPayloadV1{
				GuildID: "g1", ChannelID: "c1", UserID: "u1", MessageID: "m1",
				OccurredAt: sent.UTC(),
			},
			ok: true,
		},
		{
			name: "bot author",
			msg: &discordgo.Message{
				ID: "m2", GuildID: "g1", ChannelID: "c1",
				Author: &discordgo.User{ID: "b1", Bot: true},
			},
			want: events.MessageCreatedPayloadV1{
				GuildID: "g1", ChannelID: "c1", UserID: "b1", MessageID: "m2",
				IsBot: true, OccurredAt: testNow,
			},
			ok: true,
		},
		{
			name: "webhook counts as bot",
			msg: &discordgo.Message{
				ID: "m3", GuildID: "g1", ChannelID: "c1", WebhookID: "w1", Timestamp: sent,
				Author: &discordgo.User{ID: "w1"},
			},
			want: events.MessageCreatedPayloadV1{
				GuildID: "g1", ChannelID: "c1", UserID: "w1", MessageID: "m3",
				IsBot: true, OccurredAt: sent.UTC(),
			},
			ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := messagePayload(tt.msg, testNow)
			assert.Equal(t, tt.ok, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReactionPayload(t *testing.T) {
	reaction := func(member *discordgo.Member) *discordgo.MessageReactionAdd {
		return &discordgo.MessageReactionAdd{
			MessageReaction: &discordgo.MessageReaction{
				UserID: "u1", MessageID: "m1", ChannelID: "c1", GuildID: "g1",
				Emoji: discordgo.Emoji{Name: "👍"},
			},
			Member: member,
		}
	}
	neverBot := func(string, string) bool { return false }
	alwaysBot := func(string, string) bool { return true }

	t.Run("member present", func(t *testing.T) {
		got, ok := reactionPayload(reaction(&discordgo.Member{User: &discordgo.User{ID: "u1", Bot: true}}), neverBot, testNow)
		require.True(t, ok)
		assert.True(t, got.IsBot)
		assert.Equal(t, sharedtypes.UserID("u1"), got.UserID)
		assert.Equal(t, "👍", got.Emoji)
		assert.Equal(t, testNow, got.OccurredAt)
	})

	t.Run("falls back to lookup without member", func(t *testing.T) {
		got, ok := reactionPayload(reaction(nil), alwaysBot, testNow)
		require.True(t, ok)
		assert.True(t, got.IsBot)
	})

	t.Run("direct message reaction ignored", func(t *testing.T) {
		r := reaction(nil)
		r.GuildID = ""
		_, ok := reactionPayload(r, neverBot, testNow)
		assert.False(t, ok)
	})

	t.Run("nil event ignored", func(t *testing.T) {
		_, ok := reactionPayload(nil, neverBot, testNow)
		assert.False(t, ok)
	})
}

func TestSnapshotFromGuild(t *testing.T) {
	g := &discordgo.Guild{
		ID:           "g1",
		AfkChannelID: "afk",
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "bot", Bot: true}},
		},
		VoiceStates: []*discordgo.VoiceState{
			{UserID: "u1", ChannelID: "v1"},
			{UserID: "u2", ChannelID: "v1", SelfMute: true},
			{UserID: "u3", ChannelID: "v1", Deaf: true},
			{UserID: "bot", ChannelID: "v1"},
			{UserID: "u4", ChannelID: ""},
			{UserID: "u5", ChannelID: "v1", Member: &discordgo.Member{User: &discordgo.User{ID: "u5"}}},
		},
	}

	snap := snapshotFromGuild(g)
	want := scoredomain.VoiceSnapshot{
		GuildID:      "g1",
		AFKChannelID: "afk",
		Members: []scoredomain.VoiceMember{
			{UserID: "u1", ChannelID: "v1"},
			{UserID: "u2", ChannelID: "v1", SelfMute: true},
			{UserID: "u3", ChannelID: "v1", ServerDeaf: true},
			{UserID: "bot", ChannelID: "v1", IsBot: true},
			{UserID: "u5", ChannelID: "v1"},
		},
	}
	if diff := cmp.Diff(want, snap); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	eligible := scoredomain.EligibleVoiceMembers(snap)
	require.Len(t, eligible, 2)
	assert.Equal(t, sharedtypes.UserID("u1"), eligible[0].UserID)
	assert.Equal(t, sharedtypes.UserID("u5"), eligible[1].UserID)
}

func TestRoleError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantHint    string
		wantMissing bool
	}{
		{name: "missing permissions code", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), wantHint: apperrors.HintManageRoles},
		{name: "forbidden status", err: restError(http.StatusForbidden, 0), wantHint: apperrors.HintManageRoles},
		{name: "unknown member", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember), wantMissing: true},
		{name: "transport error", err: errors.New("connection reset")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := roleError(tt.err, "g1", "u1", "r1", apperrors.RoleActionGrant)

			var pe *apperrors.PlatformActionError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantHint, pe.Hint)
			assert.Equal(t, apperrors.RoleActionGrant, pe.Action)
			assert.Equal(t, sharedtypes.RoleID("r1"), pe.RoleID)
			assert.Equal(t, tt.wantMissing, errors.Is(err, apperrors.ErrMemberNotFound))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, roleError(nil, "g1", "u1", "r1", apperrors.RoleActionRevoke))
}

func TestSessionRoles(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "g1"}))
	require.NoError(t, state.MemberAdd(&discordgo.Member{
		GuildID: "g1",
		User:    &discordgo.User{ID: "cached"},
		Roles:   []string{"r1", "r2"},
	}))

	t.Run("cached member", func(t *testing.T) {
		api := &fakeMemberAPI{}
		s := newSession(api, state, nil, discardLogger())

		roles, err := s.MemberRoles(context.Background(), "g1", "cached")
		require.NoError(t, err)
		assert.Equal(t, []sharedtypes.RoleID{"r1", "r2"}, roles)
		assert.Empty(t, api.calls)
	})

	t.Run("uncached member asks the API", func(t *testing.T) {
		api := &fakeMemberAPI{MemberFunc: func(_, userID string) (*discordgo.Member, error) {
			return &discordgo.Member{User: &discordgo.User{ID: userID}, Roles: []string{"r3"}}, nil
		}}
		s := newSession(api, state, nil, discardLogger())

		roles, err := s.MemberRoles(context.Background(), "g1", "remote")
		require.NoError(t, err)
		assert.Equal(t, []sharedtypes.RoleID{"r3"}, roles)
		assert.Equal(t, []string{"member:remote"}, api.calls)
	})

	t.Run("departed member", func(t *testing.T) {
		api := &fakeMemberAPI{MemberFunc: func(string, string) (*discordgo.Member, error) {
			return nil, restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember)
		}}
		s := newSession(api, state, nil, discardLogger())

		_, err := s.MemberRoles(context.Background(), "g1", "gone")
		assert.ErrorIs(t, err, apperrors.ErrMemberNotFound)
	})

	t.Run("grant and revoke", func(t *testing.T) {
		api := &fakeMemberAPI{RemoveFunc: func(string, string, string) error {
			return restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)
		}}
		s := newSession(api, state, nil, discardLogger())

		require.NoError(t, s.AddRole(context.Background(), "g1", "u1", "r1"))
		err := s.RemoveRole(context.Background(), "g1", "u1", "r2")

		var pe *apperrors.PlatformActionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, apperrors.RoleActionRevoke, pe.Action)
		assert.Equal(t, apperrors.HintManageRoles, pe.Hint)
		assert.Equal(t, []string{"add:r1", "remove:r2"}, api.calls)
	})
}

func TestSessionGuildIDs(t *testing.T) {
	state := discordgo.NewState()
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "g1"}))
	require.NoError(t, state.GuildAdd(&discordgo.Guild{ID: "g2", Unavailable: true}))

	s := newSession(&fakeMemberAPI{}, state, nil, discardLogger())
	assert.Equal(t, []sharedtypes.GuildID{"g1"}, s.GuildIDs())
}

func TestOnMessageCreatePublishes(t *testing.T) {
	bus := eventbus.NewInMemory(discardLogger())
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := bus.Subscribe(ctx, events.MessageCreatedV1)
	require.NoError(t, err)

	s := newSession(&fakeMemberAPI{}, discordgo.NewState(), bus, discardLogger())
	s.now = func() time.Time { return testNow }

	s.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m1", GuildID: "g1", ChannelID: "c1", Author: &discordgo.User{ID: "u1"},
	}})
	// Direct messages never reach the bus.
	s.onMessageCreate(nil, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m2", ChannelID: "dm", Author: &discordgo.User{ID: "u1"},
	}})

	select {
	case msg := <-msgs:
		msg.Ack()
		var payload events.MessageCreatedPayloadV1
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, sharedtypes.GuildID("g1"), payload.GuildID)
		assert.Equal(t, "m1", payload.MessageID)
		assert.Equal(t, testNow, payload.OccurredAt)
	case <-ctx.Done():
		t.Fatal("message was not published")
	}

	select {
	case msg := <-msgs:
		t.Fatalf("unexpected second message %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}
