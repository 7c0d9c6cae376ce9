package transport

import (
	"context"
	"encoding/json"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned by sends on a client without a live
// connection.
var ErrNotConnected = errors.New("transport: not connected")

// Handler receives decoded server events. Implementations are called from
// the transport's read goroutine.
type Handler interface {
	OnMessage(ev chat.MessageEvent)
	OnUpdateTypingMessages(batch chat.TypingBatch)
	OnHistoricalMessagesAvailable(target string, batch chat.HistoryBatch)
	OnLoginResponse(resp LoginResponse)
	OnPart(username string)
}

// Client is a connection to a chat server.
type Client interface {
	// Run delivers server events to h until ctx is done or the connection
	// fails. A cancelled ctx is not an error.
	Run(ctx context.Context, h Handler) error
	Login(ctx context.Context, username string) error
	Join(ctx context.Context, channel string) error
	Typing(ctx context.Context, content string, kind chat.MessageType) error
	Send(ctx context.Context, target, content string, kind chat.MessageType) error
	Close() error
}

// Dispatcher decodes envelopes and routes them to a Handler.
type Dispatcher struct {
	h Handler
}

func NewDispatcher(h Handler) Dispatcher {
	return Dispatcher{h: h}
}

// DispatchBytes decodes a raw frame and dispatches it.
func (d Dispatcher) DispatchBytes(b []byte) error {
	env, err := Decode(b)
	if err != nil {
		log.Debug().Err(err).Str("component", "transport").Str("reason", "bad-frame").Msg("dropping frame")
		return err
	}
	return d.Dispatch(env)
}

// Dispatch routes env. Unknown types and undecodable payloads are logged
// and dropped; the returned error is informational.
func (d Dispatcher) Dispatch(env Envelope) error {
	err := d.dispatch(env)
	if err != nil {
		log.Debug().Err(err).Str("component", "transport").Str("reason", "bad-payload").
			Str("type", env.Type).Msg("dropping envelope")
	}
	return err
}

func (d Dispatcher) dispatch(env Envelope) error {
	switch env.Type {
	case TypeMessage:
		var ev chat.MessageEvent
		if err := decodeData(env, &ev); err != nil {
			return err
		}
		d.h.OnMessage(ev)
	case TypeUpdateTypingMessages:
		var batch chat.TypingBatch
		if err := decodeData(env, &batch); err != nil {
			return err
		}
		d.h.OnUpdateTypingMessages(batch)
	case TypeHistoricalMessages:
		var hm HistoricalMessages
		if err := decodeData(env, &hm); err != nil {
			return err
		}
		if hm.Messages == nil {
			hm.Messages = chat.HistoryBatch{}
		}
		d.h.OnHistoricalMessagesAvailable(hm.Target, hm.Messages)
	case TypeLoginResponse:
		var resp LoginResponse
		if err := decodeData(env, &resp); err != nil {
			return err
		}
		d.h.OnLoginResponse(resp)
	case TypePart:
		var p Part
		if err := decodeData(env, &p); err != nil {
			return err
		}
		d.h.OnPart(p.Username)
	default:
		return errors.Errorf("unknown envelope type %q", env.Type)
	}
	return nil
}

func decodeData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return errors.Errorf("%s: empty data", env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return errors.Wrapf(err, "%s: decode data", env.Type)
	}
	return nil
}

// Event types pushed by ChannelHandler.
type (
	MessageReceived struct{ Event chat.MessageEvent }
	TypingReceived  struct{ Batch chat.TypingBatch }
	HistoryReceived struct{ HistoricalMessages }
	LoginReceived   struct{ LoginResponse }
	PartReceived    struct{ Username string }
	Disconnected    struct{ Err error }
)

// ChannelHandler forwards every event into a channel so that a single
// event loop can apply them. Sends give up once ctx is done.
type ChannelHandler struct {
	ctx context.Context
	ch  chan<- any
}

var _ Handler = &ChannelHandler{}

func NewChannelHandler(ctx context.Context, ch chan<- any) *ChannelHandler {
	return &ChannelHandler{ctx: ctx, ch: ch}
}

func (c *ChannelHandler) push(v any) {
	select {
	case c.ch <- v:
	case <-c.ctx.Done():
	}
}

func (c *ChannelHandler) OnMessage(ev chat.MessageEvent) {
	c.push(MessageReceived{Event: ev})
}

func (c *ChannelHandler) OnUpdateTypingMessages(batch chat.TypingBatch) {
	c.push(TypingReceived{Batch: batch})
}

func (c *ChannelHandler) OnHistoricalMessagesAvailable(target string, batch chat.HistoryBatch) {
	c.push(HistoryReceived{HistoricalMessages{Target: target, Messages: batch}})
}

func (c *ChannelHandler) OnLoginResponse(resp LoginResponse) {
	c.push(LoginReceived{resp})
}

func (c *ChannelHandler) OnPart(username string) {
	c.push(PartReceived{Username: username})
}

// Disconnect reports the end of a Run.
func (c *ChannelHandler) Disconnect(err error) {
	c.push(Disconnected{Err: err})
}
