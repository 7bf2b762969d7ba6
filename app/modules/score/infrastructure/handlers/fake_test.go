package scorehandlers

import (
	"context"
	"time"

	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// FakeScoreService provides a programmable stub for scoreservice.Service.
type FakeScoreService struct {
	trace []string

	RecordMessageFunc     func(ctx context.Context, event scoreservice.MessageEvent) (scoreservice.AwardResult, error)
	RecordReactionAddFunc func(ctx context.Context, event scoreservice.ReactionEvent) (scoreservice.AwardResult, error)
}

func NewFakeScoreService() *FakeScoreService {
	return &FakeScoreService{trace: []string{}}
}

func (f *FakeScoreService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeScoreService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeScoreService) RecordMessage(ctx context.Context, event scoreservice.MessageEvent) (scoreservice.AwardResult, error) {
	f.record("RecordMessage")
	if f.RecordMessageFunc != nil {
		return f.RecordMessageFunc(ctx, event)
	}
	return scoreservice.AwardResult{}, nil
}

func (f *FakeScoreService) RecordReactionAdd(ctx context.Context, event scoreservice.ReactionEvent) (scoreservice.AwardResult, error) {
	f.record("RecordReactionAdd")
	if f.RecordReactionAddFunc != nil {
		return f.RecordReactionAddFunc(ctx, event)
	}
	return scoreservice.AwardResult{}, nil
}

func (f *FakeScoreService) RunVoiceTick(context.Context, scoredomain.VoiceSnapshot, time.Time) (scoreservice.VoiceTickResult, error) {
	f.record("RunVoiceTick")
	return scoreservice.VoiceTickResult{}, nil
}

func (f *FakeScoreService) RunDecayPass(context.Context, sharedtypes.GuildID, time.Time) (scoreservice.DecayResult, error) {
	f.record("RunDecayPass")
	return scoreservice.DecayResult{}, nil
}

func (f *FakeScoreService) GetXP(context.Context, sharedtypes.GuildID, sharedtypes.UserID) (int64, error) {
	f.record("GetXP")
	return 0, nil
}

func (f *FakeScoreService) SetXP(context.Context, sharedtypes.GuildID, sharedtypes.UserID, int64) (scoreservice.XPChangeResult, error) {
	f.record("SetXP")
	return scoreservice.XPChangeResult{}, nil
}

func (f *FakeScoreService) TopUsers(context.Context, sharedtypes.GuildID, int) (scoreservice.LeaderboardResult, error) {
	f.record("TopUsers")
	return scoreservice.LeaderboardResult{}, nil
}

func (f *FakeScoreService) GetStanding(context.Context, sharedtypes.GuildID, sharedtypes.UserID) (scoreservice.StandingResult, error) {
	f.record("GetStanding")
	return scoreservice.StandingResult{}, nil
}
