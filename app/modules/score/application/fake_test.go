package scoreservice

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/events"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// FakeScoreRepository provides a programmable stub for the scoredb.Repository interface.
type FakeScoreRepository struct {
	mu    sync.Mutex
	trace []string

	AddXPFunc          func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, delta int64, now time.Time) (scoredb.XPChange, error)
	SetXPFunc          func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64, now time.Time) (scoredb.XPChange, error)
	GetScoreFunc       func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*scoredb.UserScore, error)
	RepairXPFunc       func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, corrupt, normalized int64) error
	TopUsersFunc       func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int) ([]scoredb.RankedScore, error)
	RankFunc           func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error)
	ListUserScoresFunc func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]scoredb.UserScore, error)
	LogActivityFunc    func(ctx context.Context, db bun.IDB, record *scoredb.ActivityRecord) error
	CountInWindowFunc  func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, kind sharedtypes.ActivityKind, window time.Duration, now time.Time) (int64, error)
}

// NewFakeScoreRepository initializes a new FakeScoreRepository with an empty trace.
func NewFakeScoreRepository() *FakeScoreRepository {
	return &FakeScoreRepository{trace: []string{}}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeScoreRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeScoreRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeScoreRepository) AddXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, delta int64, now time.Time) (scoredb.XPChange, error) {
	f.record("AddXP")
	if f.AddXPFunc != nil {
		return f.AddXPFunc(ctx, db, guildID, userID, delta, now)
	}
	return scoredb.XPChange{NewXP: delta}, nil
}

func (f *FakeScoreRepository) SetXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64, now time.Time) (scoredb.XPChange, error) {
	f.record("SetXP")
	if f.SetXPFunc != nil {
		return f.SetXPFunc(ctx, db, guildID, userID, xp, now)
	}
	return scoredb.XPChange{NewXP: xp}, nil
}

func (f *FakeScoreRepository) GetScore(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*scoredb.UserScore, error) {
	f.record("GetScore")
	if f.GetScoreFunc != nil {
		return f.GetScoreFunc(ctx, db, guildID, userID)
	}
	return nil, scoredb.ErrNotFound
}

func (f *FakeScoreRepository) RepairXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, corrupt, normalized int64) error {
	f.record("RepairXP")
	if f.RepairXPFunc != nil {
		return f.RepairXPFunc(ctx, db, guildID, userID, corrupt, normalized)
	}
	return nil
}

func (f *FakeScoreRepository) TopUsers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int) ([]scoredb.RankedScore, error) {
	f.record("TopUsers")
	if f.TopUsersFunc != nil {
		return f.TopUsersFunc(ctx, db, guildID, limit)
	}
	return nil, nil
}

func (f *FakeScoreRepository) Rank(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error) {
	f.record("Rank")
	if f.RankFunc != nil {
		return f.RankFunc(ctx, db, guildID, userID)
	}
	return 0, scoredb.ErrNotFound
}

func (f *FakeScoreRepository) ListUserScores(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]scoredb.UserScore, error) {
	f.record("ListUserScores")
	if f.ListUserScoresFunc != nil {
		return f.ListUserScoresFunc(ctx, db, guildID)
	}
	return nil, nil
}

func (f *FakeScoreRepository) LogActivity(ctx context.Context, db bun.IDB, record *scoredb.ActivityRecord) error {
	f.record("LogActivity")
	if f.LogActivityFunc != nil {
		return f.LogActivityFunc(ctx, db, record)
	}
	return nil
}

func (f *FakeScoreRepository) CountInWindow(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, kind sharedtypes.ActivityKind, window time.Duration, now time.Time) (int64, error) {
	f.record("CountInWindow")
	if f.CountInWindowFunc != nil {
		return f.CountInWindowFunc(ctx, db, guildID, userID, kind, window, now)
	}
	return 0, nil
}

// FakeSettingsReader serves fixed settings, or an error when Err is set.
type FakeSettingsReader struct {
	Settings settingsdomain.GuildSettings
	Err      error
}

func (f *FakeSettingsReader) GetGuildSettings(_ context.Context, guildID sharedtypes.GuildID) (results.OperationResult[settingsdomain.GuildSettings, error], error) {
	if f.Err != nil {
		return results.OperationResult[settingsdomain.GuildSettings, error]{}, f.Err
	}
	s := f.Settings
	s.GuildID = guildID
	return results.SuccessResult[settingsdomain.GuildSettings, error](s), nil
}

// FakePublisher records published messages.
type FakePublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message

	PublishErr error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{messages: map[string][]*message.Message{}}
}

func (p *FakePublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[topic] = append(p.messages[topic], msgs...)
	return nil
}

func (p *FakePublisher) Close() error { return nil }

// XPChanged decodes every payload published to the xp changed topic.
func (p *FakePublisher) XPChanged() []events.XPChangedPayloadV1 {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.XPChangedPayloadV1
	for _, msg := range p.messages[events.XPChangedV1] {
		var payload events.XPChangedPayloadV1
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			out = append(out, payload)
		}
	}
	return out
}
