package historystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/stretchr/testify/require"
)

func msg(id int64, username, content string) chat.Message {
	return chat.Message{ID: id, Username: username, MessageContent: content, MessageType: chat.MessageTypeText}
}

func newSQLiteStore(t *testing.T, limit int) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	dsn, err := SQLiteDSNForFile(dbPath)
	require.NoError(t, err)
	s, err := NewSQLiteStore(dsn, limit)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
	return s
}

// both stores must behave the same
func forEachStore(t *testing.T, limit int, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewInMemoryStore(limit)) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t, limit)) })
}

func TestStore_PutAndSnapshot(t *testing.T) {
	forEachStore(t, 100, func(t *testing.T, s Store) {
		ctx := context.Background()
		start := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

		m2 := msg(2, "b", "second")
		m2.DatetimeStart = &start
		require.NoError(t, s.Put(ctx, "general", m2))
		require.NoError(t, s.Put(ctx, "general", msg(1, "a", "first")))
		require.NoError(t, s.Put(ctx, "general", msg(1, "a", "first, edited")))
		require.NoError(t, s.Put(ctx, "random", msg(7, "c", "elsewhere")))

		got, err := s.Snapshot(ctx, "general", 0)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, int64(1), got[0].ID)
		require.Equal(t, "first, edited", got[0].MessageContent)
		require.Equal(t, "general", got[0].Target)
		require.Nil(t, got[0].DatetimeStart)
		require.NotNil(t, got[1].DatetimeStart)
		require.True(t, start.Equal(*got[1].DatetimeStart))

		got, err = s.Snapshot(ctx, "general", 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, int64(2), got[0].ID, "limit keeps the newest")

		got, err = s.Snapshot(ctx, "nowhere", 10)
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestStore_Rejects(t *testing.T) {
	forEachStore(t, 100, func(t *testing.T, s Store) {
		ctx := context.Background()
		typing := msg(1, "a", "draft")
		typing.Typing = true
		require.ErrorIs(t, s.Put(ctx, "general", typing), ErrTyping)
		require.ErrorIs(t, s.Put(ctx, "  ", msg(1, "a", "x")), ErrEmptyChannel)
		_, err := s.Snapshot(ctx, "", 10)
		require.ErrorIs(t, err, ErrEmptyChannel)
	})
}

func TestStore_ReplaceChannel(t *testing.T) {
	forEachStore(t, 100, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "general", msg(1, "a", "old")))

		draft := msg(5, "b", "draft")
		draft.Typing = true
		require.NoError(t, s.ReplaceChannel(ctx, "general", []chat.Message{msg(3, "a", "x"), msg(4, "b", "y"), draft}))

		got, err := s.Snapshot(ctx, "general", 0)
		require.NoError(t, err)
		require.Equal(t, []int64{3, 4}, []int64{got[0].ID, got[1].ID})
		require.Len(t, got, 2)
	})
}

func TestStore_EvictsOldest(t *testing.T) {
	forEachStore(t, 3, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := int64(1); i <= 5; i++ {
			require.NoError(t, s.Put(ctx, "general", msg(i, "a", "m")))
		}
		got, err := s.Snapshot(ctx, "general", 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		require.Equal(t, int64(3), got[0].ID)
	})
}

func TestStore_Channels(t *testing.T) {
	forEachStore(t, 100, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, "random", msg(4, "a", "x")))
		require.NoError(t, s.Put(ctx, "general", msg(1, "a", "x")))
		require.NoError(t, s.Put(ctx, "general", msg(9, "a", "y")))

		got, err := s.Channels(ctx)
		require.NoError(t, err)
		require.Equal(t, []ChannelInfo{
			{Name: "general", Count: 2, LastID: 9},
			{Name: "random", Count: 1, LastID: 4},
		}, got)
	})
}
