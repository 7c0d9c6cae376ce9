// Package historystore caches finalized chat messages per channel so the
// history pane has something to show before the server snapshot arrives.
package historystore

import (
	"context"
	"sort"
	"strings"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/pkg/errors"
)

var (
	ErrEmptyChannel = errors.New("history store: channel is empty")
	ErrTyping       = errors.New("history store: typing placeholders are not stored")
)

// DefaultLimit is the number of messages kept per channel when a store is
// created without an explicit limit.
const DefaultLimit = 500

// ChannelInfo summarizes the cached messages of one channel.
type ChannelInfo struct {
	Name   string
	Count  int
	LastID int64
}

// Store is a per-channel cache of finalized messages.
type Store interface {
	// Put inserts or updates one finalized message.
	Put(ctx context.Context, channel string, msg chat.Message) error
	// ReplaceChannel drops everything cached for channel and stores msgs.
	// Typing placeholders in msgs are skipped.
	ReplaceChannel(ctx context.Context, channel string, msgs []chat.Message) error
	// Snapshot returns the newest limit messages of channel by ascending id.
	// limit <= 0 returns everything that is cached.
	Snapshot(ctx context.Context, channel string, limit int) ([]chat.Message, error)
	Channels(ctx context.Context) ([]ChannelInfo, error)
	Close() error
}

func normalizeChannel(channel string) (string, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return "", ErrEmptyChannel
	}
	return channel, nil
}

func finalized(msgs []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if !m.Typing {
			out = append(out, m)
		}
	}
	return out
}

func sortByID(msgs []chat.Message) {
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func sortChannels(cs []ChannelInfo) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Name < cs[j].Name })
}
