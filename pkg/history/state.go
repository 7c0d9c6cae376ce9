// Package history keeps the ordered message set of one channel. It merges
// typing updates, live messages and history snapshots, and tracks the
// unread badge.
//
// State transitions are pure: every reducer takes a State and returns a new
// one, never touching the input collection.
package history

import (
	"strconv"
	"strings"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// State is the view model of the history pane.
type State struct {
	Active bool
	Unread int
	// MyUsername is nil until login completes.
	MyUsername *string
	Messages   chat.Collection
}

// Effects are the side effects a reducer asks its caller to perform.
type Effects struct {
	PlaySound bool
}

// NewState returns an active pane with no messages.
func NewState() State {
	return State{
		Active:   true,
		Messages: chat.Collection{},
	}
}

// ApplyTypingUpdate merges a batch of typing deltas. Blank content removes
// the message whatever its target; other channels are ignored.
func (s State) ApplyTypingUpdate(channel string, batch chat.TypingBatch) State {
	if len(batch) == 0 {
		return s
	}
	messages := s.Messages.Clone()
	for key, upd := range batch {
		if strings.TrimSpace(upd.MessageContent) == "" {
			delete(messages, key)
			continue
		}
		if upd.Target != channel {
			continue
		}
		if existing, ok := messages[key]; ok {
			existing.MessageContent = upd.MessageContent
			messages[key] = existing
			continue
		}
		id, err := chat.ParseKey(key)
		if err != nil {
			log.Debug().Err(err).Str("component", "history").Str("reason", "bad-typing-key").Msg("dropping typing update")
			continue
		}
		messages[key] = chat.Message{
			ID:             id,
			Username:       upd.Username,
			MessageContent: upd.MessageContent,
			MessageType:    upd.MessageType,
			Target:         upd.Target,
			Typing:         true,
		}
	}
	s.Messages = messages
	return s
}

// DeleteTypingMessage drops every typing placeholder of username.
func (s State) DeleteTypingMessage(username string) State {
	s.Messages = lo.OmitBy(s.Messages, func(_ string, m chat.Message) bool {
		return m.Username == username && m.Typing
	})
	return s
}

// LoadHistory replaces the collection with a snapshot of target.
func (s State) LoadHistory(target string, batch chat.HistoryBatch) State {
	messages := make(chat.Collection, len(batch))
	for key, h := range batch {
		id := h.ID
		if id == 0 {
			parsed, err := chat.ParseKey(key)
			if err != nil {
				log.Debug().Err(err).Str("component", "history").Str("reason", "bad-history-key").Msg("dropping historical message")
				continue
			}
			id = parsed
		}
		messages[chat.Key(id)] = chat.Message{
			ID:             id,
			Username:       h.Username,
			MessageContent: h.MessageContent,
			MessageType:    h.MessageType,
			Target:         target,
			Typing:         h.Typing,
			DatetimeStart:  h.DatetimeStart,
			DatetimeEnd:    h.DatetimeEnd,
		}
	}
	s.Messages = messages
	return s
}

// OnLogin records the local identity.
func (s State) OnLogin(username string) State {
	s.MyUsername = &username
	return s
}

// OnMessage finalizes the typing placeholder of a message of channel. A
// message without a placeholder is dropped and has no effects.
func (s State) OnMessage(channel string, ev chat.MessageEvent) (State, Effects) {
	if ev.Target != channel {
		log.Debug().Str("component", "history").Str("reason", "other-channel").
			Str("target", ev.Target).Msg("ignoring message")
		return s, Effects{}
	}

	key := chat.Key(ev.MessageID)
	m, ok := s.Messages[key]
	if !ok {
		log.Debug().Str("component", "history").Str("reason", "no-placeholder").
			Int64("message_id", ev.MessageID).Msg("ignoring message")
		return s, Effects{}
	}
	messages := s.Messages.Clone()
	m.MessageContent = ev.MessageContent
	m.Typing = false
	messages[key] = m
	s.Messages = messages

	var fx Effects
	if !s.Active && !s.isMine(ev.Username) {
		s.Unread++
		fx.PlaySound = true
	}
	return s, fx
}

// Show marks the pane visible and clears the badge.
func (s State) Show() State {
	s.Active = true
	s.Unread = 0
	return s
}

// Hide marks the pane hidden.
func (s State) Hide() State {
	s.Active = false
	return s
}

// Title is the window title for s.
func (s State) Title(base string) string {
	if s.Active || s.Unread == 0 {
		return base
	}
	return "(" + strconv.Itoa(s.Unread) + ") " + base
}

func (s State) isMine(username string) bool {
	return s.MyUsername != nil && *s.MyUsername == username
}
