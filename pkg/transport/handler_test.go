package transport

import (
	"context"
	"testing"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	messages []chat.MessageEvent
	typing   []chat.TypingBatch
	history  []HistoricalMessages
	logins   []LoginResponse
	parts    []string
}

func (r *recordingHandler) OnMessage(ev chat.MessageEvent) { r.messages = append(r.messages, ev) }
func (r *recordingHandler) OnUpdateTypingMessages(b chat.TypingBatch) {
	r.typing = append(r.typing, b)
}
func (r *recordingHandler) OnHistoricalMessagesAvailable(target string, b chat.HistoryBatch) {
	r.history = append(r.history, HistoricalMessages{Target: target, Messages: b})
}
func (r *recordingHandler) OnLoginResponse(resp LoginResponse) { r.logins = append(r.logins, resp) }
func (r *recordingHandler) OnPart(username string)             { r.parts = append(r.parts, username) }

func TestDispatcher_Routes(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h)

	require.NoError(t, d.DispatchBytes([]byte(`{"type":"message","data":{"messageid":5,"message_content":"hi!","message_type":"text","target":"general","username":"a"}}`)))
	require.NoError(t, d.DispatchBytes([]byte(`{"type":"update-typing-messages","data":{"6":{"message_content":"ty","message_type":"text","target":"general","typing":true,"username":"b"}}}`)))
	require.NoError(t, d.DispatchBytes([]byte(`{"type":"historical-messages","data":{"target":"general","messages":{"1":{"id":1,"message_content":"old","message_type":"text","typing":false,"username":"c","datetime_start":"2024-03-01T12:30:00Z"}}}}`)))
	require.NoError(t, d.DispatchBytes([]byte(`{"type":"login-response","data":{"success":false,"reason":"taken"}}`)))
	require.NoError(t, d.DispatchBytes([]byte(`{"type":"part","data":{"username":"b"}}`)))

	require.Equal(t, []chat.MessageEvent{{
		MessageID: 5, MessageContent: "hi!", MessageType: chat.MessageTypeText, Target: "general", Username: "a",
	}}, h.messages)
	require.Len(t, h.typing, 1)
	require.True(t, h.typing[0]["6"].Typing)
	require.Len(t, h.history, 1)
	require.Equal(t, "general", h.history[0].Target)
	require.NotNil(t, h.history[0].Messages["1"].DatetimeStart)
	require.Equal(t, []LoginResponse{{Success: false, Reason: "taken"}}, h.logins)
	require.Equal(t, []string{"b"}, h.parts)
}

func TestDispatcher_DropsBadFrames(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h)

	require.Error(t, d.DispatchBytes([]byte(`not json`)))
	require.Error(t, d.DispatchBytes([]byte(`{"data":{}}`)))
	require.Error(t, d.DispatchBytes([]byte(`{"type":"shrug","data":{}}`)))
	require.Error(t, d.DispatchBytes([]byte(`{"type":"message"}`)))
	require.Error(t, d.DispatchBytes([]byte(`{"type":"message","data":{"messageid":"five"}}`)))

	require.Empty(t, h.messages)
}

func TestDispatcher_EmptyHistory(t *testing.T) {
	h := &recordingHandler{}
	require.NoError(t, NewDispatcher(h).DispatchBytes([]byte(`{"type":"historical-messages","data":{"target":"general"}}`)))
	require.Len(t, h.history, 1)
	require.NotNil(t, h.history[0].Messages)
	require.Empty(t, h.history[0].Messages)
}

func TestEncode(t *testing.T) {
	b, err := Encode(TypeMessage, SendMessage{Target: "general", MessageContent: "hey", MessageType: chat.MessageTypeEmote})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"message","data":{"target":"general","message_content":"hey","message_type":"emote"}}`, string(b))
}

func TestChannelHandler_Forwards(t *testing.T) {
	ch := make(chan any, 4)
	h := NewChannelHandler(context.Background(), ch)

	h.OnMessage(chat.MessageEvent{MessageID: 1})
	h.OnPart("a")
	h.OnLoginResponse(LoginResponse{Success: true})

	require.Equal(t, MessageReceived{Event: chat.MessageEvent{MessageID: 1}}, <-ch)
	require.Equal(t, PartReceived{Username: "a"}, <-ch)
	require.Equal(t, LoginReceived{LoginResponse{Success: true}}, <-ch)
}

func TestChannelHandler_GivesUpAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewChannelHandler(ctx, make(chan any))
	h.OnPart("a") // must not block
}
