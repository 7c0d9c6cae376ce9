// Package chat holds the message model shared by the history pane, the
// transports and the local history cache.
package chat

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// MessageType is the kind of a message. The set is open: servers may send
// kinds this client does not know about, and those render like text.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeEmote MessageType = "emote"
)

// Message is a single chat line, either a typing placeholder or a
// finalized record.
type Message struct {
	ID             int64       `json:"id"`
	Username       string      `json:"username"`
	MessageContent string      `json:"message_content"`
	MessageType    MessageType `json:"message_type"`
	Target         string      `json:"target"`
	Typing         bool        `json:"typing"`
	DatetimeStart  *time.Time  `json:"datetime_start,omitempty"`
	DatetimeEnd    *time.Time  `json:"datetime_end,omitempty"`
}

// Collection maps the decimal message id to the message. It is scoped to a
// single channel.
type Collection map[string]Message

// Key returns the collection key for a message id.
func Key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseKey parses a collection key back into a message id.
func ParseKey(key string) (int64, error) {
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid message id %q", key)
	}
	return id, nil
}

// Clone returns a shallow copy of the collection. Messages are values, so
// editing an entry of the copy never reaches the original.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
