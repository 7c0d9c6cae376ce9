package chat

import "time"

// MessageEvent is a finalized message delivered by the transport.
type MessageEvent struct {
	MessageID      int64       `json:"messageid"`
	MessageContent string      `json:"message_content"`
	MessageType    MessageType `json:"message_type"`
	Type           string      `json:"type,omitempty"`
	Target         string      `json:"target"`
	Username       string      `json:"username"`
}

// TypingUpdate is one entry of a typing batch.
type TypingUpdate struct {
	MessageContent string      `json:"message_content"`
	MessageType    MessageType `json:"message_type"`
	Target         string      `json:"target"`
	Typing         bool        `json:"typing"`
	Username       string      `json:"username"`
	DatetimeStart  *time.Time  `json:"datetime_start,omitempty"`
	DatetimeEnd    *time.Time  `json:"datetime_end,omitempty"`
}

// TypingBatch is keyed by message id.
type TypingBatch map[string]TypingUpdate

// HistoricalMessage is one entry of a channel history snapshot.
type HistoricalMessage struct {
	ID             int64       `json:"id"`
	MessageContent string      `json:"message_content"`
	MessageType    MessageType `json:"message_type"`
	Typing         bool        `json:"typing"`
	Username       string      `json:"username"`
	DatetimeStart  *time.Time  `json:"datetime_start,omitempty"`
	DatetimeEnd    *time.Time  `json:"datetime_end,omitempty"`
}

// HistoryBatch is keyed by message id.
type HistoryBatch map[string]HistoricalMessage

// HistoryBatchFromMessages builds a snapshot batch, e.g. from the local
// history cache.
func HistoryBatchFromMessages(msgs []Message) HistoryBatch {
	out := make(HistoryBatch, len(msgs))
	for _, m := range msgs {
		out[Key(m.ID)] = HistoricalMessage{
			ID:             m.ID,
			MessageContent: m.MessageContent,
			MessageType:    m.MessageType,
			Typing:         m.Typing,
			Username:       m.Username,
			DatetimeStart:  m.DatetimeStart,
			DatetimeEnd:    m.DatetimeEnd,
		}
	}
	return out
}
