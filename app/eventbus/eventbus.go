// Package eventbus provides the watermill publisher/subscriber pair shared by
// every module: NATS JetStream in deployments, an in-process channel otherwise.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/nats-io/nkeys"
)

// TopicMetadataKey names the metadata entry that overrides the publish topic
// when a message is published with an empty topic.
const TopicMetadataKey = "topic"

// EventBus is a watermill publisher and subscriber.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// Config selects the transport.
type Config struct {
	// URL of the NATS server. Empty selects the in-process bus.
	URL string
	// StreamName is the JetStream stream that stores every subject below.
	StreamName string
	// Subjects bound to the stream, e.g. "platform.>".
	Subjects []string
	// ConsumerGroup is the durable/queue group prefix shared by replicas.
	ConsumerGroup string
	AckWait       time.Duration
	// NKeySeed, when set, authenticates the connection with a user nkey.
	NKeySeed string
}

type bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nc.Conn
	logger     *slog.Logger

	// shared is set when publisher and subscriber are the same pub/sub.
	shared bool
}

// New returns a NATS JetStream bus when cfg.URL is set and an in-process bus otherwise.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (EventBus, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		logger.InfoContext(ctx, "NATS URL empty, using in-process event bus")
		return NewInMemory(logger), nil
	}
	return newNATS(ctx, cfg, logger)
}

// NewInMemory returns a bus backed by watermill's gochannel pub/sub.
func NewInMemory(logger *slog.Logger) EventBus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, watermill.NewSlogLogger(logger))
	return &bus{publisher: pubsub, subscriber: pubsub, logger: logger, shared: true}
}

func newNATS(ctx context.Context, cfg Config, logger *slog.Logger) (EventBus, error) {
	if cfg.StreamName == "" {
		cfg.StreamName = "LEVELBOT"
	}
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = []string{"platform.>", "score.>", "levelbot.>"}
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "levelbot"
	}
	if cfg.AckWait == 0 {
		cfg.AckWait = 30 * time.Second
	}

	natsOpts := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.MaxReconnects(-1),
		nc.ReconnectWait(2 * time.Second),
	}
	if cfg.NKeySeed != "" {
		opt, err := nkeyOption(cfg.NKeySeed)
		if err != nil {
			return nil, err
		}
		natsOpts = append(natsOpts, opt)
	}

	conn, err := nc.Connect(cfg.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: initialize JetStream: %w", err)
	}
	if err := ensureStream(ctx, js, cfg.StreamName, cfg.Subjects, logger); err != nil {
		conn.Close()
		return nil, err
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}
	subjectCalc := func(queueGroupPrefix, topic string) *wmnats.SubjectDetail {
		return &wmnats.SubjectDetail{
			Primary:    topic,
			QueueGroup: consumerName(queueGroupPrefix, topic),
		}
	}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   marshaler,
		JetStream: wmnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
		},
		SubjectCalculator: subjectCalc,
	}, wmLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: create publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              cfg.URL,
		NatsOptions:      natsOpts,
		Unmarshaler:      marshaler,
		QueueGroupPrefix: cfg.ConsumerGroup,
		SubscribersCount: 4,
		AckWaitTimeout:   cfg.AckWait,
		CloseTimeout:     10 * time.Second,
		JetStream: wmnats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			SubscribeOptions: []nc.SubOpt{
				nc.DeliverNew(),
				nc.AckExplicit(),
			},
			DurablePrefix: cfg.ConsumerGroup,
			DurableCalculator: func(prefix, topic string) string {
				return consumerName(prefix, topic)
			},
		},
		SubjectCalculator: subjectCalc,
	}, wmLogger)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("eventbus: create subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Connected to NATS JetStream",
		slog.String("url", cfg.URL),
		slog.String("stream", cfg.StreamName),
	)
	return &bus{publisher: publisher, subscriber: subscriber, conn: conn, logger: logger}, nil
}

// nkeyOption signs the server's connect nonce with the seed's key pair.
func nkeyOption(seed string) (nc.Option, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("eventbus: parse nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("eventbus: nkey public key: %w", err)
	}
	return nc.Nkey(pub, kp.Sign), nil
}

// consumerName builds a JetStream-safe durable/queue name; dots are not allowed there.
func consumerName(prefix, topic string) string {
	name := strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(topic)
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name string, subjects []string, logger *slog.Logger) error {
	stream, err := js.Stream(ctx, name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      name,
			Subjects:  subjects,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
		}); err != nil {
			return fmt.Errorf("eventbus: create stream %s: %w", name, err)
		}
		logger.InfoContext(ctx, "Created JetStream stream", slog.String("stream", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("eventbus: check stream %s: %w", name, err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("eventbus: stream info %s: %w", name, err)
	}
	missing := false
	for _, subject := range subjects {
		found := false
		for _, existing := range info.Config.Subjects {
			if existing == subject {
				found = true
				break
			}
		}
		if !found {
			info.Config.Subjects = append(info.Config.Subjects, subject)
			missing = true
		}
	}
	if missing {
		if _, err := js.UpdateStream(ctx, info.Config); err != nil {
			return fmt.Errorf("eventbus: update stream %s: %w", name, err)
		}
		logger.InfoContext(ctx, "Updated JetStream stream subjects", slog.String("stream", name))
	}
	return nil
}

// Publish sends messages to topic. When topic is empty each message is sent
// to the topic named by its TopicMetadataKey metadata.
func (b *bus) Publish(topic string, messages ...*message.Message) error {
	if topic != "" {
		return b.publisher.Publish(topic, messages...)
	}
	for _, msg := range messages {
		t := msg.Metadata.Get(TopicMetadataKey)
		if t == "" {
			return fmt.Errorf("eventbus: message %s has no topic", msg.UUID)
		}
		if err := b.publisher.Publish(t, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Close closes the publisher, the subscriber and the stream-management connection.
func (b *bus) Close() error {
	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if !b.shared {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber: %w", err))
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	return errors.Join(errs...)
}
