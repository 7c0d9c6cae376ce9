package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gtklocker/ting/pkg/chat"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWriteWait    = 10 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultPingInterval = 50 * time.Second
	maxFrameSize        = 1 << 20
)

// WebsocketClient speaks the envelope protocol over a single websocket.
// Writes are serialized; reads happen on the goroutine running Run.
type WebsocketClient struct {
	url    string
	dialer *websocket.Dialer
	header http.Header

	writeWait    time.Duration
	pongWait     time.Duration
	pingInterval time.Duration

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ Client = &WebsocketClient{}

type WebsocketOption func(*WebsocketClient)

func WithDialer(d *websocket.Dialer) WebsocketOption {
	return func(c *WebsocketClient) { c.dialer = d }
}

func WithHeader(h http.Header) WebsocketOption {
	return func(c *WebsocketClient) { c.header = h }
}

// WithKeepalive sets the ping interval and how long to wait for a pong.
func WithKeepalive(pingInterval, pongWait time.Duration) WebsocketOption {
	return func(c *WebsocketClient) {
		c.pingInterval = pingInterval
		c.pongWait = pongWait
	}
}

func NewWebsocketClient(url string, opts ...WebsocketOption) *WebsocketClient {
	c := &WebsocketClient{
		url:          url,
		dialer:       websocket.DefaultDialer,
		writeWait:    defaultWriteWait,
		pongWait:     defaultPongWait,
		pingInterval: defaultPingInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect dials the server. Run dials on its own when Connect was not
// called.
func (c *WebsocketClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		if resp != nil {
			return errors.Wrapf(err, "dial %s: http %d", c.url, resp.StatusCode)
		}
		return errors.Wrapf(err, "dial %s", c.url)
	}
	conn.SetReadLimit(maxFrameSize)
	c.conn = conn
	log.Info().Str("component", "transport").Str("url", c.url).Msg("websocket connected")
	return nil
}

func (c *WebsocketClient) Run(ctx context.Context, h Handler) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	d := NewDispatcher(h)
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if gctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return errors.Wrap(err, "websocket read")
			}
			_ = conn.SetReadDeadline(time.Now().Add(c.pongWait))
			_ = d.DispatchBytes(frame)
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				c.closeConn(conn)
				return nil
			case <-done:
				return nil
			case <-ticker.C:
				if err := c.writeControl(conn, websocket.PingMessage); err != nil {
					log.Warn().Err(err).Str("component", "transport").Msg("websocket ping failed")
				}
			}
		}
	})

	err := g.Wait()
	c.closeConn(conn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *WebsocketClient) Login(ctx context.Context, username string) error {
	return c.send(ctx, TypeLogin, LoginRequest{Username: username})
}

func (c *WebsocketClient) Join(ctx context.Context, channel string) error {
	return c.send(ctx, TypeJoinChannel, JoinChannel{Channel: channel})
}

func (c *WebsocketClient) Typing(ctx context.Context, content string, kind chat.MessageType) error {
	return c.send(ctx, TypeTypingUpdate, TypingUpdateRequest{MessageContent: content, MessageType: kind})
}

func (c *WebsocketClient) Send(ctx context.Context, target, content string, kind chat.MessageType) error {
	return c.send(ctx, TypeMessage, SendMessage{Target: target, MessageContent: content, MessageType: kind})
}

// Close sends a close frame and drops the connection.
func (c *WebsocketClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.writeWait))
	return conn.Close()
}

func (c *WebsocketClient) send(ctx context.Context, typ string, data any) error {
	b, err := Encode(typ, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(c.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.Wrapf(err, "websocket write %s", typ)
	}
	return nil
}

func (c *WebsocketClient) writeControl(conn *websocket.Conn, kind int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return conn.WriteControl(kind, nil, time.Now().Add(c.writeWait))
}

func (c *WebsocketClient) closeConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}
