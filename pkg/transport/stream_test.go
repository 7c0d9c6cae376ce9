package transport

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gtklocker/ting/pkg/chat"
	"github.com/stretchr/testify/require"
)

func newGoChannel(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	pubsub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })
	return pubsub
}

func TestStreamClient_PublishesRequests(t *testing.T) {
	pubsub := newGoChannel(t)
	client := NewStreamClient(pubsub, pubsub, "ting-in", "ting-out")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := pubsub.Subscribe(ctx, "ting-out")
	require.NoError(t, err)

	require.NoError(t, client.Login(ctx, "alice"))
	require.NoError(t, client.Send(ctx, "general", "hi", chat.MessageTypeText))

	var got []Envelope
	for len(got) < 2 {
		select {
		case msg := <-out:
			env, err := Decode(msg.Payload)
			require.NoError(t, err)
			require.Equal(t, client.ClientID(), msg.Metadata.Get(MetadataClientID))
			got = append(got, env)
			msg.Ack()
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for published requests")
		}
	}
	require.Equal(t, TypeLogin, got[0].Type)
	require.JSONEq(t, `{"username":"alice"}`, string(got[0].Data))
	require.Equal(t, TypeMessage, got[1].Type)
}

func TestStreamClient_RunDispatches(t *testing.T) {
	pubsub := newGoChannel(t)
	client := NewStreamClient(pubsub, pubsub, "ting-in", "ting-out")
	ctx, cancel := context.WithCancel(context.Background())

	h := newChanHandler()
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx, h) }()

	bad := message.NewMessage(watermill.NewUUID(), []byte(`{"type":"nope","data":{}}`))
	require.NoError(t, pubsub.Publish("ting-in", bad))
	b, err := Encode(TypeMessage, chat.MessageEvent{MessageID: 3, MessageContent: "hey", Target: "general", Username: "bob"})
	require.NoError(t, err)
	require.NoError(t, pubsub.Publish("ting-in", message.NewMessage(watermill.NewUUID(), b)))

	select {
	case <-h.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	h.mu.Lock()
	require.Len(t, h.messages, 1)
	require.Equal(t, "hey", h.messages[0].MessageContent)
	h.mu.Unlock()

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.NoError(t, client.Close())
}
