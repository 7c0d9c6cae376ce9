package transport

import (
	"context"
	"io"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MetadataClientID names the sending client on outbound messages.
const MetadataClientID = "client_id"

// StreamClient speaks the envelope protocol over a watermill pub/sub pair:
// server events are read from topicIn and requests published to topicOut.
type StreamClient struct {
	pub      message.Publisher
	sub      message.Subscriber
	topicIn  string
	topicOut string
	clientID string
	closer   io.Closer
}

var _ Client = &StreamClient{}

func NewStreamClient(pub message.Publisher, sub message.Subscriber, topicIn, topicOut string) *StreamClient {
	return &StreamClient{
		pub:      pub,
		sub:      sub,
		topicIn:  topicIn,
		topicOut: topicOut,
		clientID: uuid.NewString(),
	}
}

// NewRedisStreamClient connects to redis and makes sure the consumer group
// exists before the first read. An empty consumer name gets a random one.
func NewRedisStreamClient(ctx context.Context, s redisstream.Settings) (*StreamClient, error) {
	if s.Consumer == "" {
		s.Consumer = "ting-" + uuid.NewString()
	}
	pair, err := redisstream.Build(s)
	if err != nil {
		return nil, err
	}
	if err := redisstream.EnsureGroupAtTail(ctx, pair.Client, s.TopicIn, s.Group); err != nil {
		_ = pair.Close()
		return nil, err
	}
	c := NewStreamClient(pair.Publisher, pair.Subscriber, s.TopicIn, s.TopicOut)
	c.clientID = s.Consumer
	c.closer = pair
	return c, nil
}

// ClientID identifies this client on outbound messages.
func (c *StreamClient) ClientID() string {
	return c.clientID
}

func (c *StreamClient) Run(ctx context.Context, h Handler) error {
	msgs, err := c.sub.Subscribe(ctx, c.topicIn)
	if err != nil {
		return errors.Wrapf(err, "subscribe %s", c.topicIn)
	}
	d := NewDispatcher(h)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.Errorf("subscription to %s closed", c.topicIn)
			}
			// a bad payload is dropped, never redelivered
			_ = d.DispatchBytes(msg.Payload)
			msg.Ack()
		}
	}
}

func (c *StreamClient) Login(ctx context.Context, username string) error {
	return c.publish(ctx, TypeLogin, LoginRequest{Username: username})
}

func (c *StreamClient) Join(ctx context.Context, channel string) error {
	return c.publish(ctx, TypeJoinChannel, JoinChannel{Channel: channel})
}

func (c *StreamClient) Typing(ctx context.Context, content string, kind chat.MessageType) error {
	return c.publish(ctx, TypeTypingUpdate, TypingUpdateRequest{MessageContent: content, MessageType: kind})
}

func (c *StreamClient) Send(ctx context.Context, target, content string, kind chat.MessageType) error {
	return c.publish(ctx, TypeMessage, SendMessage{Target: target, MessageContent: content, MessageType: kind})
}

// Close releases the redis connection when the client owns one. Pub/sub
// passed to NewStreamClient stay with the caller.
func (c *StreamClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *StreamClient) publish(ctx context.Context, typ string, data any) error {
	if c.pub == nil {
		return ErrNotConnected
	}
	b, err := Encode(typ, data)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), b)
	msg.Metadata.Set(MetadataClientID, c.clientID)
	msg.SetContext(ctx)
	if err := c.pub.Publish(c.topicOut, msg); err != nil {
		return errors.Wrapf(err, "publish %s", typ)
	}
	log.Trace().Str("component", "transport").Str("type", typ).Str("topic", c.topicOut).Msg("published")
	return nil
}
