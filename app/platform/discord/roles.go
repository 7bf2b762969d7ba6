package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/bwmarrin/discordgo"
)

// AddRole grants roleID to the member.
func (s *Session) AddRole(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	err := s.api.GuildMemberRoleAdd(string(guildID), string(userID), string(roleID), discordgo.WithContext(ctx))
	return roleError(err, guildID, userID, roleID, apperrors.RoleActionGrant)
}

// RemoveRole revokes roleID from the member.
func (s *Session) RemoveRole(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	err := s.api.GuildMemberRoleRemove(string(guildID), string(userID), string(roleID), discordgo.WithContext(ctx))
	return roleError(err, guildID, userID, roleID, apperrors.RoleActionRevoke)
}

// MemberRoles returns the member's roles from the state cache, asking the
// REST API when the member is not cached.
func (s *Session) MemberRoles(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) ([]sharedtypes.RoleID, error) {
	if s.state != nil {
		if m, err := s.state.Member(string(guildID), string(userID)); err == nil {
			return toRoleIDs(m.Roles), nil
		}
	}

	m, err := s.api.GuildMember(string(guildID), string(userID), discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, fmt.Errorf("discord: fetch member %s: %w", userID, err)
	}
	return toRoleIDs(m.Roles), nil
}

func toRoleIDs(roles []string) []sharedtypes.RoleID {
	out := make([]sharedtypes.RoleID, 0, len(roles))
	for _, r := range roles {
		out = append(out, sharedtypes.RoleID(r))
	}
	return out
}

// roleError wraps a failed role mutation. Permission failures carry the
// Manage Roles hint; an unknown member maps to ErrMemberNotFound.
func roleError(err error, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID, action apperrors.RoleAction) error {
	if err == nil {
		return nil
	}
	if isUnknownMember(err) {
		err = fmt.Errorf("%w: %w", apperrors.ErrMemberNotFound, err)
	}
	pe := &apperrors.PlatformActionError{
		GuildID: guildID,
		UserID:  userID,
		RoleID:  roleID,
		Action:  action,
		Err:     err,
	}
	if isPermissionDenied(err) {
		pe.Hint = apperrors.HintManageRoles
	}
	return pe
}

func isPermissionDenied(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeMissingPermissions {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden
}

func isUnknownMember(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	return rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMember
}
