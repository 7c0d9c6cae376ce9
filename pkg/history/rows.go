package history

import (
	"sort"
	"time"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/samber/lo"
)

// Row is one display line of the pane.
type Row struct {
	ID             int64
	Username       string
	Own            bool
	MessageContent string
	Typing         bool
	MessageType    chat.MessageType
	// At is the message's start time, if the server sent one.
	At *time.Time
}

// Rows returns the display list of s, ordered by ascending id.
func Rows(s State) []Row {
	msgs := lo.Values(s.Messages)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return lo.Map(msgs, func(m chat.Message, _ int) Row {
		return Row{
			ID:             m.ID,
			Username:       m.Username,
			Own:            s.isMine(m.Username),
			MessageContent: m.MessageContent,
			Typing:         m.Typing,
			MessageType:    m.MessageType,
			At:             m.DatetimeStart,
		}
	})
}

// LastFinalized returns the newest non-typing message, if any.
func LastFinalized(s State) (chat.Message, bool) {
	finals := lo.Filter(lo.Values(s.Messages), func(m chat.Message, _ int) bool { return !m.Typing })
	if len(finals) == 0 {
		return chat.Message{}, false
	}
	return lo.MaxBy(finals, func(a, b chat.Message) bool { return a.ID > b.ID }), true
}
