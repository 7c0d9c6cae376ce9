// Package ui is the full-screen terminal frontend: the username modal,
// the history pane and a compose line, bound to a transport client.
package ui

import (
	"context"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/deferred"
	"github.com/gtklocker/ting/pkg/history"
	"github.com/gtklocker/ting/pkg/i18n"
	"github.com/gtklocker/ting/pkg/login"
	"github.com/gtklocker/ting/pkg/persistence/historystore"
	"github.com/gtklocker/ting/pkg/transport"
	"github.com/rs/zerolog/log"
)

// Sender is the outbound half of a transport client.
type Sender interface {
	Login(ctx context.Context, username string) error
	Join(ctx context.Context, channel string) error
	Typing(ctx context.Context, content string, kind chat.MessageType) error
	Send(ctx context.Context, target, content string, kind chat.MessageType) error
}

// SoundPlayer rings for unread messages. notify.Sound satisfies it.
type SoundPlayer interface {
	PlaySound()
	NotifyMessage(username, content string)
}

type (
	focusLoginMsg struct{}
	scrollMsg     struct{}
	cachedMsg     struct {
		channel string
		msgs    []chat.Message
	}
	sendErrMsg struct {
		op  string
		err error
	}
	statusMsg string
)

// Options configures an App.
type Options struct {
	Channel       string
	Username      string
	BaseTitle     string
	Translator    i18n.Translator
	Sender        Sender
	Events        <-chan any
	Store         historystore.Store
	CacheLimit    int
	Sound         SoundPlayer
	MarkdownStyle string
}

// App is the bubbletea model. It is used through a pointer: the login form
// and the history component are stateful and shared with deferred
// callbacks.
type App struct {
	ctx    context.Context
	sender Sender
	events <-chan any
	store  historystore.Store
	limit  int
	tr     i18n.Translator

	send func(tea.Msg)

	form       *login.Form
	loginInput textinput.Model
	pending    string

	hist     *history.Component
	viewport viewport.Model
	renderer *Renderer
	mdStyle  string

	compose    textinput.Model
	lastTyping string

	title       *titleSink
	baseTitle   string
	status      string
	width       int
	height      int
	loggedIn    bool
	quitting    bool
	scheduler   *deferred.Scheduler
	initialUser string
}

// titleSink turns title changes of the history component into
// tea.SetWindowTitle commands and forwards sound cues.
type titleSink struct {
	pending *string
	sound   SoundPlayer
}

func (t *titleSink) SetTitle(title string) { t.pending = &title }

func (t *titleSink) PlaySound() {
	if t.sound != nil {
		go t.sound.PlaySound()
	}
}

func (t *titleSink) NotifyMessage(username, content string) {
	if t.sound != nil {
		go t.sound.NotifyMessage(username, content)
	}
}

func (t *titleSink) take() tea.Cmd {
	if t.pending == nil {
		return nil
	}
	title := *t.pending
	t.pending = nil
	return tea.SetWindowTitle(title)
}

func NewApp(ctx context.Context, opts Options) *App {
	tr := opts.Translator
	if tr == nil {
		tr = i18n.MustNew("")
	}
	base := opts.BaseTitle
	if base == "" {
		base = tr.T("history.title")
	}

	a := &App{
		ctx:         ctx,
		sender:      opts.Sender,
		events:      opts.Events,
		store:       opts.Store,
		limit:       opts.CacheLimit,
		tr:          tr,
		baseTitle:   base,
		mdStyle:     opts.MarkdownStyle,
		scheduler:   deferred.NewScheduler(),
		title:       &titleSink{sound: opts.Sound},
		initialUser: opts.Username,
	}

	a.loginInput = textinput.New()
	a.loginInput.Placeholder = tr.T("usernameSet.placeholder")
	a.loginInput.CharLimit = 64

	a.compose = textinput.New()
	a.compose.Placeholder = tr.T("compose.placeholder")
	a.compose.Prompt = "> "

	a.viewport = viewport.New(80, 20)
	a.renderer = NewRenderer(80, a.mdStyle)

	a.form = login.NewForm(tr, func(username string) { a.pending = username },
		login.WithScheduler(a.scheduler),
		login.WithFocuser(login.FocuserFunc(func() { a.post(focusLoginMsg{}) })),
	)
	a.hist = history.NewComponent(opts.Channel, base,
		history.WithScheduler(a.scheduler),
		history.WithNotifier(a.title),
		history.WithScroller(history.ScrollerFunc(func() { a.post(scrollMsg{}) })),
		history.WithChangeListener(func(history.State) { a.refresh() }),
	)
	return a
}

// SetProgram lets deferred callbacks post messages into the running
// program.
func (a *App) SetProgram(p *tea.Program) {
	a.send = p.Send
}

func (a *App) post(msg tea.Msg) {
	if a.send != nil {
		a.send(msg)
	}
}

// History exposes the history component, mostly for tests.
func (a *App) History() *history.Component { return a.hist }

// Form exposes the login form, mostly for tests.
func (a *App) Form() *login.Form { return a.form }

func (a *App) Init() tea.Cmd {
	a.form.Mount()
	cmds := []tea.Cmd{
		tea.SetWindowTitle(a.baseTitle),
		textinput.Blink,
		a.waitForEvent(),
		a.loadCached(a.hist.Channel()),
	}
	if a.initialUser != "" {
		a.loginInput.SetValue(a.initialUser)
		a.form.OnUsernameChange(a.initialUser)
	}
	return tea.Batch(cmds...)
}

func (a *App) waitForEvent() tea.Cmd {
	if a.events == nil {
		return nil
	}
	ch := a.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return transport.Disconnected{}
		}
		return e
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	return a, tea.Batch(cmd, a.title.take())
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(m.Width, m.Height)
		return nil
	case tea.FocusMsg:
		a.hist.Show()
		return nil
	case tea.BlurMsg:
		a.hist.Hide()
		return nil
	case focusLoginMsg:
		return a.loginInput.Focus()
	case scrollMsg:
		a.viewport.GotoBottom()
		return nil
	case cachedMsg:
		if m.channel == a.hist.Channel() && len(a.hist.State().Messages) == 0 && len(m.msgs) > 0 {
			a.hist.OnHistoricalMessagesAvailable(m.channel, chat.HistoryBatchFromMessages(m.msgs))
		}
		return nil
	case sendErrMsg:
		if m.op == "login" {
			a.form.OnLoginError(login.Unknown)
		}
		log.Warn().Err(m.err).Str("component", "ui").Str("op", m.op).Msg("send failed")
		a.status = m.op + ": " + m.err.Error()
		return nil
	case statusMsg:
		a.status = string(m)
		return nil

	case transport.MessageReceived:
		a.hist.OnMessage(m.Event)
		return a.waitForEvent()
	case transport.TypingReceived:
		a.hist.OnUpdateTypingMessages(m.Batch)
		return a.waitForEvent()
	case transport.HistoryReceived:
		a.hist.OnHistoricalMessagesAvailable(m.Target, m.Messages)
		return a.waitForEvent()
	case transport.PartReceived:
		a.hist.DeleteTypingMessage(m.Username)
		return a.waitForEvent()
	case transport.LoginReceived:
		return tea.Batch(a.onLoginResponse(m.LoginResponse), a.waitForEvent())
	case transport.Disconnected:
		a.status = "disconnected"
		if m.Err != nil {
			a.status += ": " + m.Err.Error()
		}
		return nil

	case tea.KeyMsg:
		return a.onKey(m)
	}
	return nil
}

func (a *App) onLoginResponse(resp transport.LoginResponse) tea.Cmd {
	if !resp.Success {
		kind := login.Result(resp.Reason)
		if kind == "" {
			kind = login.Unknown
		}
		a.form.OnLoginError(kind)
		return nil
	}
	a.form.OnLoginSuccess()
	a.loggedIn = true
	a.hist.OnLogin(a.pending)
	a.loginInput.Blur()
	return tea.Batch(a.compose.Focus(), a.join(a.hist.Channel()))
}

func (a *App) onKey(k tea.KeyMsg) tea.Cmd {
	switch k.String() {
	case "ctrl+c":
		return a.quit()
	case "ctrl+y":
		if a.loggedIn {
			return a.copyLast()
		}
	}

	if a.form.State().Visible {
		return a.onLoginKey(k)
	}

	switch k.Type {
	case tea.KeyEnter:
		return a.submitCompose()
	case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(k)
		return cmd
	}

	var cmd tea.Cmd
	a.compose, cmd = a.compose.Update(k)
	return tea.Batch(cmd, a.typing())
}

func (a *App) onLoginKey(k tea.KeyMsg) tea.Cmd {
	if k.Type == tea.KeyEnter {
		if !a.form.Submit() {
			return nil
		}
		username := a.pending
		return a.do("login", func(ctx context.Context) error { return a.sender.Login(ctx, username) })
	}
	var cmd tea.Cmd
	a.loginInput, cmd = a.loginInput.Update(k)
	if v := a.loginInput.Value(); v != a.form.State().Username {
		a.form.OnUsernameChange(v)
	}
	return cmd
}

func (a *App) submitCompose() tea.Cmd {
	text := strings.TrimSpace(a.compose.Value())
	a.compose.Reset()
	a.lastTyping = ""
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		cmd, arg, _ := strings.Cut(text[1:], " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "quit", "exit":
			return a.quit()
		case "join":
			if arg == "" {
				a.status = "usage: /join <channel>"
				return nil
			}
			return a.switchChannel(arg)
		case "me":
			if arg == "" {
				return nil
			}
			target := a.hist.Channel()
			return a.do("send", func(ctx context.Context) error {
				return a.sender.Send(ctx, target, arg, chat.MessageTypeEmote)
			})
		default:
			a.status = "unknown command /" + cmd
			return nil
		}
	}

	target := a.hist.Channel()
	return a.do("send", func(ctx context.Context) error {
		return a.sender.Send(ctx, target, text, chat.MessageTypeText)
	})
}

// typing sends the compose line as a typing update when it changed. A
// "/me " line types an emote; other commands are not sent.
func (a *App) typing() tea.Cmd {
	content, kind := a.compose.Value(), chat.MessageTypeText
	if strings.HasPrefix(content, "/") {
		rest, ok := strings.CutPrefix(content, "/me ")
		if !ok {
			return nil
		}
		content, kind = rest, chat.MessageTypeEmote
	}
	if content == a.lastTyping {
		return nil
	}
	a.lastTyping = content
	return a.do("typing", func(ctx context.Context) error {
		return a.sender.Typing(ctx, content, kind)
	})
}

func (a *App) switchChannel(channel string) tea.Cmd {
	if channel == a.hist.Channel() {
		return nil
	}
	a.hist.SetChannel(channel)
	a.status = ""
	return tea.Batch(a.join(channel), a.loadCached(channel))
}

func (a *App) join(channel string) tea.Cmd {
	return a.do("join", func(ctx context.Context) error { return a.sender.Join(ctx, channel) })
}

func (a *App) loadCached(channel string) tea.Cmd {
	if a.store == nil || channel == "" {
		return nil
	}
	store, limit := a.store, a.limit
	return func() tea.Msg {
		msgs, err := store.Snapshot(a.ctx, channel, limit)
		if err != nil {
			log.Warn().Err(err).Str("component", "ui").Str("channel", channel).Msg("history cache read failed")
			return nil
		}
		return cachedMsg{channel: channel, msgs: msgs}
	}
}

func (a *App) copyLast() tea.Cmd {
	m, ok := history.LastFinalized(a.hist.State())
	if !ok {
		return nil
	}
	return func() tea.Msg {
		if err := clipboard.WriteAll(m.MessageContent); err != nil {
			return sendErrMsg{op: "copy", err: err}
		}
		return statusMsg("copied message from " + m.Username)
	}
}

func (a *App) do(op string, fn func(ctx context.Context) error) tea.Cmd {
	if a.sender == nil {
		return nil
	}
	ctx := a.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return sendErrMsg{op: op, err: err}
		}
		return nil
	}
}

func (a *App) quit() tea.Cmd {
	a.quitting = true
	a.Teardown()
	return tea.Quit
}

// Teardown cancels every deferred focus and scroll.
func (a *App) Teardown() {
	a.form.Teardown()
	a.hist.Teardown()
}

func (a *App) resize(w, h int) {
	a.width, a.height = w, h
	a.viewport.Width = w
	vh := h - 4
	if vh < 1 {
		vh = 1
	}
	a.viewport.Height = vh
	a.renderer = NewRenderer(w, a.mdStyle)
	a.refresh()
}

func (a *App) refresh() {
	a.viewport.SetContent(a.renderer.Rows(a.hist.Rows()))
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if a.form.State().Visible {
		return a.loginView()
	}
	header := headerStyle.Render(a.baseTitle) + " " + channelStyle.Render("#"+a.hist.Channel())
	if u := a.hist.State().MyUsername; u != nil {
		header += " " + statusStyle.Render("as "+*u)
	}
	status := statusStyle.Render(a.status)
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.viewport.View(),
		composeStyle.Width(a.width).Render(a.compose.View()),
		status,
	)
}

func (a *App) loginView() string {
	st := a.form.State()
	parts := []string{
		modalTitleStyle.Render(a.tr.T("usernameSet.title")),
		a.loginInput.View(),
	}
	if st.BannerVisible() {
		parts = append(parts, errorStyle.Render(st.ErrorStr))
	}
	hint := "enter: " + a.tr.T("usernameSet.submit")
	if st.Pending {
		hint += " …"
	}
	parts = append(parts, hintStyle.Render(hint))
	if a.status != "" {
		parts = append(parts, statusStyle.Render(a.status))
	}
	modal := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
	if a.width == 0 || a.height == 0 {
		return modal
	}
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}
