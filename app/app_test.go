package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/eventbus"
	"github.com/Black-And-White-Club/levelbot/app/events"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/Black-And-White-Club/levelbot/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("NATS_URL", "")
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("JWT_SECRET", "")

	body := fmt.Sprintf(`
database:
  driver: sqlite
  dsn: "file:%s?mode=memory&cache=shared"
api:
  listen_addr: "127.0.0.1:0"
observability:
  environment: dev
  log_level: error
`, uuid.NewString())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func TestAppAwardsMessageXPEndToEnd(t *testing.T) {
	cfg := loadTestConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application := &App{}
	require.NoError(t, application.Initialize(ctx, cfg))
	assert.Nil(t, application.Discord)
	assert.Nil(t, application.River)

	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx) }()
	<-application.Router.Running()

	guildID := sharedtypes.GuildID("g-" + uuid.NewString())
	userID := sharedtypes.UserID("u1")
	require.NoError(t, eventbus.PublishJSON(ctx, application.EventBus, events.MessageCreatedV1, events.MessageCreatedPayloadV1{
		GuildID:    guildID,
		ChannelID:  "c1",
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}))

	require.Eventually(t, func() bool {
		res, err := application.ScoreModule.ScoreService.GetStanding(ctx, guildID, userID)
		return err == nil && res.IsSuccess() && res.Success.XP == 5
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.NoError(t, application.Close(context.Background()))
}

func TestCloseOnEmptyApp(t *testing.T) {
	assert.NoError(t, (&App{}).Close(context.Background()))
}
