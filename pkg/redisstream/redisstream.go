// Package redisstream builds watermill publishers and subscribers over
// Redis Streams.
package redisstream

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill/message"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Settings holds the Redis Streams transport configuration.
type Settings struct {
	Addr     string `mapstructure:"redis-addr" validate:"required,hostname_port"`
	Group    string `mapstructure:"redis-group" validate:"required"`
	Consumer string `mapstructure:"redis-consumer"`
	TopicIn  string `mapstructure:"redis-topic-in" validate:"required"`
	TopicOut string `mapstructure:"redis-topic-out" validate:"required"`
}

// Pair is a publisher and a subscriber sharing one redis client.
type Pair struct {
	Client     redis.UniversalClient
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Close closes the subscriber, the publisher and the client, in that
// order, and returns the first error.
func (p *Pair) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{p.Subscriber, p.Publisher, p.Client} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build connects to redis and prepares a publisher and a consumer-group
// subscriber for s.
func Build(s Settings) (*Pair, error) {
	client := redis.NewClient(&redis.Options{Addr: s.Addr})
	marshaler := rstream.DefaultMarshallerUnmarshaller{}
	logger := NewLogger(log.Logger)

	pub, err := rstream.NewPublisher(rstream.PublisherConfig{
		Client:     client,
		Marshaller: marshaler,
	}, logger)
	if err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis stream publisher")
	}

	sub, err := rstream.NewSubscriber(rstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  marshaler,
		ConsumerGroup: s.Group,
		Consumer:      s.Consumer,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = client.Close()
		return nil, errors.Wrap(err, "redis stream subscriber")
	}

	return &Pair{Client: client, Publisher: pub, Subscriber: sub}, nil
}

// EnsureGroupAtTail creates the consumer group for stream at the tail ($)
// if it does not exist yet, so a fresh client does not replay the stream.
func EnsureGroupAtTail(ctx context.Context, client redis.UniversalClient, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil
		}
		return errors.Wrapf(err, "create group %s on %s", group, stream)
	}
	log.Info().Str("stream", stream).Str("group", group).Msg("created redis consumer group at $ (tail)")
	return nil
}
