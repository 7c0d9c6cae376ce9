package history

import (
	"time"

	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/deferred"
	"github.com/rs/zerolog/log"
)

// ScrollDelay lets the pane lay out new rows before scrolling.
const ScrollDelay = 30 * time.Millisecond

// Notifier is the window-level capability set of the pane.
type Notifier interface {
	SetTitle(title string)
	PlaySound()
}

// MessageNotifier is implemented by notifiers that can also surface the
// message that caused a sound cue.
type MessageNotifier interface {
	NotifyMessage(username, content string)
}

// Scroller moves the pane to its newest row.
type Scroller interface {
	ScrollToBottom()
}

type ScrollerFunc func()

func (f ScrollerFunc) ScrollToBottom() { f() }

// Component owns the State of one channel and performs the side effects
// that follow every applied event: title update, deferred scroll and the
// notification cue. It is not safe for concurrent use; callers drive it
// from a single event loop.
type Component struct {
	channel   string
	baseTitle string
	state     State

	notifier Notifier
	scroller Scroller
	sched    *deferred.Scheduler

	title    string
	hasTitle bool
	onChange []func(State)
}

type Option func(*Component)

func WithNotifier(n Notifier) Option {
	return func(c *Component) { c.notifier = n }
}

func WithScroller(s Scroller) Option {
	return func(c *Component) { c.scroller = s }
}

func WithScheduler(s *deferred.Scheduler) Option {
	return func(c *Component) { c.sched = s }
}

// WithChangeListener registers fn to run with the new state after every
// applied event.
func WithChangeListener(fn func(State)) Option {
	return func(c *Component) { c.onChange = append(c.onChange, fn) }
}

func NewComponent(channel, baseTitle string, opts ...Option) *Component {
	c := &Component{
		channel:   channel,
		baseTitle: baseTitle,
		state:     NewState(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.sched == nil {
		c.sched = deferred.NewScheduler()
	}
	return c
}

func (c *Component) Channel() string {
	return c.channel
}

func (c *Component) State() State {
	return c.state
}

func (c *Component) Rows() []Row {
	return Rows(c.state)
}

// SetChannel switches the pane to another channel. Messages of the old
// channel are dropped; identity and visibility are kept.
func (c *Component) SetChannel(channel string) {
	if channel == c.channel {
		return
	}
	c.channel = channel
	next := c.state
	next.Messages = chat.Collection{}
	c.apply(next, Effects{})
}

func (c *Component) OnUpdateTypingMessages(batch chat.TypingBatch) {
	c.apply(c.state.ApplyTypingUpdate(c.channel, batch), Effects{})
}

func (c *Component) DeleteTypingMessage(username string) {
	c.apply(c.state.DeleteTypingMessage(username), Effects{})
}

// OnHistoricalMessagesAvailable loads a snapshot. Snapshots of other
// channels are ignored.
func (c *Component) OnHistoricalMessagesAvailable(target string, batch chat.HistoryBatch) {
	if target != c.channel {
		log.Debug().Str("component", "history").Str("reason", "other-channel").
			Str("target", target).Str("channel", c.channel).Msg("ignoring history snapshot")
		return
	}
	c.apply(c.state.LoadHistory(target, batch), Effects{})
}

func (c *Component) OnLogin(username string) {
	c.apply(c.state.OnLogin(username), Effects{})
}

func (c *Component) OnMessage(ev chat.MessageEvent) {
	next, fx := c.state.OnMessage(c.channel, ev)
	c.apply(next, fx)
	if fx.PlaySound {
		if mn, ok := c.notifier.(MessageNotifier); ok {
			mn.NotifyMessage(ev.Username, ev.MessageContent)
		}
	}
}

func (c *Component) Show() {
	c.apply(c.state.Show(), Effects{})
}

func (c *Component) Hide() {
	c.apply(c.state.Hide(), Effects{})
}

// Teardown cancels pending scrolls. The component must not be used after.
func (c *Component) Teardown() {
	c.sched.Close()
}

func (c *Component) apply(next State, fx Effects) {
	c.state = next

	title := next.Title(c.baseTitle)
	if c.notifier != nil && (!c.hasTitle || title != c.title) {
		c.notifier.SetTitle(title)
	}
	c.title, c.hasTitle = title, true

	if c.scroller != nil {
		c.sched.After(ScrollDelay, c.scroller.ScrollToBottom)
	}
	if fx.PlaySound && c.notifier != nil {
		c.notifier.PlaySound()
	}
	for _, fn := range c.onChange {
		fn(next)
	}
}
