package redisstream

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestEnsureGroupAtTail_Idempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	require.NoError(t, EnsureGroupAtTail(ctx, client, "ting-events", "ting"))
	require.NoError(t, EnsureGroupAtTail(ctx, client, "ting-events", "ting"))

	err := client.XGroupCreate(ctx, "ting-events", "ting", "$").Err()
	require.Error(t, err)
	require.Contains(t, err.Error(), "BUSYGROUP")
	require.True(t, mr.Exists("ting-events"), "the stream is created with the group")
}

func TestBuild_ClosesEverything(t *testing.T) {
	mr := miniredis.RunT(t)
	pair, err := Build(Settings{
		Addr:     mr.Addr(),
		Group:    "ting",
		Consumer: "c1",
		TopicIn:  "ting-events",
		TopicOut: "ting-requests",
	})
	require.NoError(t, err)
	require.NoError(t, pair.Client.Ping(context.Background()).Err())
	require.NoError(t, pair.Close())
}
