package historystore

import (
	"context"
	"sync"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/samber/lo"
)

// InMemoryStore keeps at most limit messages per channel, evicting the
// lowest ids first.
type InMemoryStore struct {
	mu       sync.Mutex
	limit    int
	channels map[string]map[int64]chat.Message
}

var _ Store = &InMemoryStore{}

func NewInMemoryStore(limit int) *InMemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &InMemoryStore{
		limit:    limit,
		channels: map[string]map[int64]chat.Message{},
	}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) Put(_ context.Context, channel string, msg chat.Message) error {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return err
	}
	if msg.Typing {
		return ErrTyping
	}
	msg.Target = channel

	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.channels[channel]
	if !ok {
		msgs = map[int64]chat.Message{}
		s.channels[channel] = msgs
	}
	msgs[msg.ID] = msg
	s.evictLocked(msgs)
	return nil
}

func (s *InMemoryStore) ReplaceChannel(_ context.Context, channel string, in []chat.Message) error {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return err
	}
	msgs := map[int64]chat.Message{}
	for _, m := range finalized(in) {
		m.Target = channel
		msgs[m.ID] = m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(msgs)
	s.channels[channel] = msgs
	return nil
}

func (s *InMemoryStore) Snapshot(_ context.Context, channel string, limit int) ([]chat.Message, error) {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := lo.Values(s.channels[channel])
	s.mu.Unlock()

	sortByID(out)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryStore) Channels(_ context.Context) ([]ChannelInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChannelInfo, 0, len(s.channels))
	for name, msgs := range s.channels {
		if len(msgs) == 0 {
			continue
		}
		out = append(out, ChannelInfo{
			Name:   name,
			Count:  len(msgs),
			LastID: lo.Max(lo.Keys(msgs)),
		})
	}
	sortChannels(out)
	return out, nil
}

func (s *InMemoryStore) evictLocked(msgs map[int64]chat.Message) {
	if len(msgs) <= s.limit {
		return
	}
	ids := lo.Keys(msgs)
	sortIDs(ids)
	for _, id := range ids[:len(ids)-s.limit] {
		delete(msgs, id)
	}
}
