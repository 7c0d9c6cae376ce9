// Package transport connects the client to a chat server. Every frame is a
// JSON envelope {"type": ..., "data": ...}; the same envelope travels over
// websockets and over redis streams.
package transport

import (
	"encoding/json"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/pkg/errors"
)

// Inbound envelope types.
const (
	TypeMessage              = "message"
	TypeUpdateTypingMessages = "update-typing-messages"
	TypeHistoricalMessages   = "historical-messages"
	TypeLoginResponse        = "login-response"
	TypePart                 = "part"
)

// Outbound envelope types.
const (
	TypeLogin        = "login"
	TypeJoinChannel  = "join-channel"
	TypeTypingUpdate = "typing-update"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode marshals data into an envelope of the given type.
func Encode(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", typ)
	}
	b, err := json.Marshal(Envelope{Type: typ, Data: raw})
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s envelope", typ)
	}
	return b, nil
}

// Decode parses an envelope without looking at its data.
func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "decode envelope")
	}
	if env.Type == "" {
		return Envelope{}, errors.New("envelope without type")
	}
	return env, nil
}

type LoginRequest struct {
	Username string `json:"username"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type JoinChannel struct {
	Channel string `json:"channel"`
}

type TypingUpdateRequest struct {
	MessageContent string           `json:"message_content"`
	MessageType    chat.MessageType `json:"message_type"`
}

type SendMessage struct {
	Target         string           `json:"target"`
	MessageContent string           `json:"message_content"`
	MessageType    chat.MessageType `json:"message_type"`
}

// HistoricalMessages is a history snapshot of one channel.
type HistoricalMessages struct {
	Target   string            `json:"target"`
	Messages chat.HistoryBatch `json:"messages"`
}

// Part announces that a user left.
type Part struct {
	Username string `json:"username"`
}
