package historystore

import (
	"context"
	"time"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const persistTimeout = 2 * time.Second

// PersistingHandler writes finalized messages and history snapshots
// through to a Store before handing every event to the next handler.
// Persistence is best effort: storage errors are logged and never stop
// delivery.
type PersistingHandler struct {
	ctx   context.Context
	store Store
	next  transport.Handler
}

var _ transport.Handler = &PersistingHandler{}

func NewPersistingHandler(ctx context.Context, store Store, next transport.Handler) *PersistingHandler {
	return &PersistingHandler{ctx: ctx, store: store, next: next}
}

func (p *PersistingHandler) OnMessage(ev chat.MessageEvent) {
	p.persist("put", ev.Target, func(ctx context.Context) error {
		return p.store.Put(ctx, ev.Target, chat.Message{
			ID:             ev.MessageID,
			Username:       ev.Username,
			MessageContent: ev.MessageContent,
			MessageType:    ev.MessageType,
			Target:         ev.Target,
		})
	})
	p.next.OnMessage(ev)
}

func (p *PersistingHandler) OnUpdateTypingMessages(batch chat.TypingBatch) {
	p.next.OnUpdateTypingMessages(batch)
}

func (p *PersistingHandler) OnHistoricalMessagesAvailable(target string, batch chat.HistoryBatch) {
	msgs := lo.MapToSlice(batch, func(key string, h chat.HistoricalMessage) chat.Message {
		id := h.ID
		if id == 0 {
			id, _ = chat.ParseKey(key)
		}
		return chat.Message{
			ID:             id,
			Username:       h.Username,
			MessageContent: h.MessageContent,
			MessageType:    h.MessageType,
			Target:         target,
			Typing:         h.Typing,
			DatetimeStart:  h.DatetimeStart,
			DatetimeEnd:    h.DatetimeEnd,
		}
	})
	p.persist("replace", target, func(ctx context.Context) error {
		return p.store.ReplaceChannel(ctx, target, msgs)
	})
	p.next.OnHistoricalMessagesAvailable(target, batch)
}

func (p *PersistingHandler) OnLoginResponse(resp transport.LoginResponse) {
	p.next.OnLoginResponse(resp)
}

func (p *PersistingHandler) OnPart(username string) {
	p.next.OnPart(username)
}

func (p *PersistingHandler) persist(op, channel string, fn func(ctx context.Context) error) {
	if p.store == nil {
		return
	}
	base := p.ctx
	if base == nil || base.Err() != nil {
		// shutting down: let the last writes land
		base = context.Background()
	}
	ctx, cancel := context.WithTimeout(base, persistTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Warn().Err(err).
			Str("component", "history_persist").
			Str("op", op).
			Str("channel", channel).
			Msg("history write failed")
	}
}
