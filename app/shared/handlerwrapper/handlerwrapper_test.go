package handlerwrapper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Black-And-White-Club/levelbot/app/eventbus"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type testPayload struct {
	GuildID string `json:"guild_id"`
	XP      int64  `json:"xp"`
}

func newMessage(t *testing.T, payload any) *message.Message {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	msg := message.NewMessage("msg-1", b)
	middleware.SetCorrelationID("corr-7", msg)
	return msg
}

func wrap(handler func(context.Context, *testPayload) ([]Result, error)) message.HandlerFunc {
	return WrapTransformingTyped("test_handler",
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		noop.NewTracerProvider().Tracer("test"),
		handler,
	)
}

func TestWrapTransformingTyped(t *testing.T) {
	t.Run("decodes payload and encodes results", func(t *testing.T) {
		var seenCorrelation string
		h := wrap(func(ctx context.Context, p *testPayload) ([]Result, error) {
			seenCorrelation = attr.CorrelationID(ctx)
			assert.Equal(t, "g1", p.GuildID)
			return []Result{{
				Topic:    "score.out.v1",
				Payload:  testPayload{GuildID: p.GuildID, XP: p.XP * 2},
				Metadata: map[string]string{"source": "test"},
			}}, nil
		})

		out, err := h(newMessage(t, testPayload{GuildID: "g1", XP: 21}))
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "corr-7", seenCorrelation)
		assert.Equal(t, "score.out.v1", out[0].Metadata.Get(eventbus.TopicMetadataKey))
		assert.Equal(t, "test", out[0].Metadata.Get("source"))
		assert.Equal(t, "corr-7", middleware.MessageCorrelationID(out[0]))

		var got testPayload
		require.NoError(t, json.Unmarshal(out[0].Payload, &got))
		assert.Equal(t, int64(42), got.XP)
	})

	t.Run("undecodable payload is acked without calling the handler", func(t *testing.T) {
		called := false
		h := wrap(func(context.Context, *testPayload) ([]Result, error) {
			called = true
			return nil, nil
		})

		out, err := h(message.NewMessage("bad", []byte("{not json")))
		assert.NoError(t, err)
		assert.Empty(t, out)
		assert.False(t, called)
	})

	t.Run("handler error is returned for retry", func(t *testing.T) {
		h := wrap(func(context.Context, *testPayload) ([]Result, error) {
			return nil, errors.New("db down")
		})

		_, err := h(newMessage(t, testPayload{GuildID: "g1"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "test_handler")
		assert.Contains(t, err.Error(), "db down")
	})

	t.Run("unencodable result fails the message", func(t *testing.T) {
		h := wrap(func(context.Context, *testPayload) ([]Result, error) {
			return []Result{{Topic: "x", Payload: make(chan int)}}, nil
		})

		_, err := h(newMessage(t, testPayload{}))
		assert.Error(t, err)
	})
}
