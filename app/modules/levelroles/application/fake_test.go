package levelrolesservice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// FakePlatform is an in-memory guild: member roles plus programmable failures.
type FakePlatform struct {
	mu    sync.Mutex
	trace []string

	Roles map[sharedtypes.UserID][]sharedtypes.RoleID

	AddRoleErr    error
	RemoveRoleErr error
	MemberErr     error
}

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{trace: []string{}, Roles: map[sharedtypes.UserID][]sharedtypes.RoleID{}}
}

func (f *FakePlatform) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakePlatform) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakePlatform) MemberRoles(_ context.Context, _ sharedtypes.GuildID, userID sharedtypes.UserID) ([]sharedtypes.RoleID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("MemberRoles")
	if f.MemberErr != nil {
		return nil, f.MemberErr
	}
	return append([]sharedtypes.RoleID(nil), f.Roles[userID]...), nil
}

func (f *FakePlatform) AddRole(_ context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("AddRole:%s", roleID))
	if f.AddRoleErr != nil {
		var pae *apperrors.PlatformActionError
		if errors.As(f.AddRoleErr, &pae) {
			return f.AddRoleErr
		}
		return &apperrors.PlatformActionError{GuildID: guildID, UserID: userID, RoleID: roleID, Action: apperrors.RoleActionGrant, Err: f.AddRoleErr}
	}
	f.Roles[userID] = append(f.Roles[userID], roleID)
	return nil
}

func (f *FakePlatform) RemoveRole(_ context.Context, _ sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(fmt.Sprintf("RemoveRole:%s", roleID))
	if f.RemoveRoleErr != nil {
		return f.RemoveRoleErr
	}
	kept := f.Roles[userID][:0]
	for _, r := range f.Roles[userID] {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.Roles[userID] = kept
	return nil
}
