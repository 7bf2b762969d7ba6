package scoreservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/db/dbtest"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	scoremigrations "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories/migrations"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreService_MessageScenario(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t, scoremigrations.Migrations)

	settings := settingsdomain.Defaults("g1")
	settings.LevelCurveFactor = 100
	settings.MsgXP = 5
	settings.MsgCooldownSeconds = 0
	svc := newTestService(scoredb.NewRepository(db), settings, NewFakePublisher())

	send := func(i int) AwardOutcome {
		t.Helper()
		res, err := svc.RecordMessage(ctx, MessageEvent{
			GuildID: "g1",
			UserID:  "u1",
			At:      testNow.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		require.True(t, res.Success.Awarded)
		return *res.Success
	}

	var last AwardOutcome
	for i := 1; i <= 5; i++ {
		last = send(i)
	}
	assert.Equal(t, int64(25), last.NewXP)
	assert.Equal(t, int64(0), last.NewLevel)

	for i := 6; i <= 9; i++ {
		last = send(i)
	}
	assert.Equal(t, int64(45), last.NewXP)
	assert.Equal(t, int64(0), last.NewLevel)

	for i := 10; i <= 20; i++ {
		last = send(i)
		if last.NewXP >= 100 {
			break
		}
	}
	assert.Equal(t, int64(100), last.NewXP)
	assert.Equal(t, int64(1), last.NewLevel)
	assert.True(t, last.LeveledUp())

	xp, err := svc.GetXP(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), xp)

	count, err := scoredb.NewRepository(db).CountInWindow(ctx, nil, "g1", "u1", sharedtypes.ActivityMessage, 24*time.Hour, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)
}

func TestScoreService_ConcurrentAwardsAreNotLost(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewSQLite(t, scoremigrations.Migrations)

	settings := settingsdomain.Defaults("g1")
	settings.MsgCooldownSeconds = 0
	settings.ReactionCooldownSeconds = 0
	svc := newTestService(scoredb.NewRepository(db), settings, NewFakePublisher())

	faker := gofakeit.New(7)
	guildID := sharedtypes.GuildID(faker.Numerify("1##################"))
	userID := sharedtypes.UserID(faker.Numerify("2##################"))

	const workers = 16
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				at := testNow.Add(time.Duration(w*perWorker+i) * time.Millisecond)
				if i%2 == 0 {
					_, err := svc.RecordMessage(ctx, MessageEvent{GuildID: guildID, UserID: userID, At: at})
					assert.NoError(t, err)
				} else {
					_, err := svc.RecordReactionAdd(ctx, ReactionEvent{GuildID: guildID, UserID: userID, At: at})
					assert.NoError(t, err)
				}
			}
		}(w)
	}
	wg.Wait()

	xp, err := svc.GetXP(ctx, guildID, userID)
	require.NoError(t, err)
	half := int64(workers * perWorker / 2)
	assert.Equal(t, half*settings.MsgXP+half*settings.ReactionXP, xp)
}
