package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gtklocker/ting/pkg/chat"
	"github.com/gtklocker/ting/pkg/i18n"
	"github.com/gtklocker/ting/pkg/persistence/historystore"
	"github.com/gtklocker/ting/pkg/transport"
	"github.com/stretchr/testify/require"
)

type call struct {
	op, arg, content string
	kind             chat.MessageType
}

type fakeSender struct {
	mu       sync.Mutex
	calls    []call
	loginErr error
}

func (f *fakeSender) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return nil
}

func (f *fakeSender) Login(_ context.Context, username string) error {
	_ = f.record(call{op: "login", arg: username})
	return f.loginErr
}

func (f *fakeSender) Join(_ context.Context, channel string) error {
	return f.record(call{op: "join", arg: channel})
}

func (f *fakeSender) Typing(_ context.Context, content string, kind chat.MessageType) error {
	return f.record(call{op: "typing", content: content, kind: kind})
}

func (f *fakeSender) Send(_ context.Context, target, content string, kind chat.MessageType) error {
	return f.record(call{op: "send", arg: target, content: content, kind: kind})
}

func (f *fakeSender) ops() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// drain runs cmd and every command it batches. Commands that block (cursor
// blink ticks) are abandoned.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, drain(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// update applies msg and feeds the app's own follow-up messages back in,
// the way a running program would.
func update(a *App, msg tea.Msg) []tea.Msg {
	_, cmd := a.Update(msg)
	out := drain(cmd)
	for _, m := range out {
		switch m.(type) {
		case cachedMsg, statusMsg, sendErrMsg:
			out = append(out, update(a, m)...)
		}
	}
	return out
}

func typeText(a *App, s string) {
	for _, r := range s {
		update(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func newTestApp(t *testing.T, opts Options) (*App, *fakeSender) {
	t.Helper()
	s := &fakeSender{}
	if opts.Channel == "" {
		opts.Channel = "general"
	}
	opts.Sender = s
	opts.Translator = i18n.MustNew("en")
	a := NewApp(context.Background(), opts)
	t.Cleanup(a.Teardown)
	drain(a.Init())
	update(a, tea.WindowSizeMsg{Width: 80, Height: 24})
	update(a, focusLoginMsg{})
	return a, s
}

func loginAs(t *testing.T, a *App, username string) {
	t.Helper()
	typeText(a, username)
	update(a, tea.KeyMsg{Type: tea.KeyEnter})
	update(a, transport.LoginReceived{LoginResponse: transport.LoginResponse{Success: true}})
	require.False(t, a.Form().State().Visible)
}

func titles(msgs []tea.Msg) []string {
	var out []string
	for _, m := range msgs {
		if fmt.Sprintf("%T", m) == "tea.setWindowTitleMsg" {
			out = append(out, fmt.Sprint(m))
		}
	}
	return out
}

func TestApp_LoginFlow(t *testing.T) {
	a, s := newTestApp(t, Options{})
	require.True(t, a.Form().State().Visible)

	typeText(a, "a b")
	require.Contains(t, a.View(), "Usernames may only contain letters and numbers.")
	update(a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Empty(t, s.ops(), "invalid usernames are not submitted")

	update(a, tea.KeyMsg{Type: tea.KeyBackspace})
	update(a, tea.KeyMsg{Type: tea.KeyBackspace})
	typeText(a, "ob")
	update(a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []call{{op: "login", arg: "aob"}}, s.ops())

	update(a, transport.LoginReceived{LoginResponse: transport.LoginResponse{Success: false, Reason: "taken"}})
	require.True(t, a.Form().State().Visible)
	require.Contains(t, a.View(), "This username is already taken.")

	typeText(a, "2")
	update(a, tea.KeyMsg{Type: tea.KeyEnter})
	update(a, transport.LoginReceived{LoginResponse: transport.LoginResponse{Success: true}})

	require.False(t, a.Form().State().Visible)
	require.Equal(t, "aob2", *a.History().State().MyUsername)
	require.Equal(t, call{op: "join", arg: "general"}, s.ops()[len(s.ops())-1])
	require.Contains(t, a.View(), "#general")
}

func TestApp_LoginSendFailureAllowsRetry(t *testing.T) {
	a, s := newTestApp(t, Options{})
	s.loginErr = errors.New("write: broken pipe")

	typeText(a, "alice")
	for i := 0; i < 3; i++ {
		update(a, tea.KeyMsg{Type: tea.KeyEnter})
	}

	require.Len(t, s.ops(), 3, "every enter is a new attempt")
	require.False(t, a.Form().State().Pending)
	require.True(t, a.Form().State().Visible)
	require.Contains(t, a.View(), "Could not log in. Please try again.")
}

func TestApp_PresetUsername(t *testing.T) {
	a, s := newTestApp(t, Options{Username: "zoe"})
	update(a, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, []call{{op: "login", arg: "zoe"}}, s.ops())
}

func TestApp_MessagesAndUnreadTitle(t *testing.T) {
	a, _ := newTestApp(t, Options{})
	loginAs(t, a, "me")

	update(a, transport.TypingReceived{Batch: chat.TypingBatch{
		"5": {MessageContent: "hi", Target: "general", Typing: true, Username: "bob"},
	}})
	require.Contains(t, a.View(), "bob: hi…")

	update(a, tea.BlurMsg{})
	msgs := update(a, transport.MessageReceived{Event: chat.MessageEvent{
		MessageID: 5, MessageContent: "hi!", Target: "general", Username: "bob",
	}})
	require.Equal(t, []string{"(1) Ting"}, titles(msgs))
	require.Equal(t, 1, a.History().State().Unread)
	rows := a.History().Rows()
	require.Len(t, rows, 1)
	require.False(t, rows[0].Typing)

	msgs = update(a, tea.FocusMsg{})
	require.Equal(t, []string{"Ting"}, titles(msgs))
	require.Equal(t, 0, a.History().State().Unread)

	update(a, transport.PartReceived{Username: "bob"})
	require.Len(t, a.History().Rows(), 1, "part only drops typing placeholders")
}

func TestApp_Compose(t *testing.T) {
	a, s := newTestApp(t, Options{})
	loginAs(t, a, "me")
	before := len(s.ops())

	typeText(a, "yo")
	update(a, tea.KeyMsg{Type: tea.KeyEnter})
	typeText(a, "/me waves")
	update(a, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, []call{
		{op: "typing", content: "y", kind: chat.MessageTypeText},
		{op: "typing", content: "yo", kind: chat.MessageTypeText},
		{op: "send", arg: "general", content: "yo", kind: chat.MessageTypeText},
		{op: "typing", content: "w", kind: chat.MessageTypeEmote},
		{op: "typing", content: "wa", kind: chat.MessageTypeEmote},
		{op: "typing", content: "wav", kind: chat.MessageTypeEmote},
		{op: "typing", content: "wave", kind: chat.MessageTypeEmote},
		{op: "typing", content: "waves", kind: chat.MessageTypeEmote},
		{op: "send", arg: "general", content: "waves", kind: chat.MessageTypeEmote},
	}, s.ops()[before:])
}

func TestApp_JoinSwitchesChannel(t *testing.T) {
	store := historystore.NewInMemoryStore(10)
	require.NoError(t, store.Put(context.Background(), "random", chat.Message{ID: 3, Username: "x", MessageContent: "cached"}))

	a, s := newTestApp(t, Options{Store: store})
	loginAs(t, a, "me")
	update(a, transport.HistoryReceived{HistoricalMessages: transport.HistoricalMessages{
		Target:   "general",
		Messages: chat.HistoryBatch{"1": {ID: 1, Username: "a", MessageContent: "old"}},
	}})
	require.Len(t, a.History().Rows(), 1)

	typeText(a, "/join random")
	update(a, tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, "random", a.History().Channel())
	require.Equal(t, call{op: "join", arg: "random"}, s.ops()[len(s.ops())-1])
	rows := a.History().Rows()
	require.Len(t, rows, 1)
	require.Equal(t, "cached", rows[0].MessageContent)

	// a snapshot for the old channel is ignored
	update(a, transport.HistoryReceived{HistoricalMessages: transport.HistoricalMessages{
		Target:   "general",
		Messages: chat.HistoryBatch{"2": {ID: 2, Username: "a", MessageContent: "late"}},
	}})
	require.Equal(t, "cached", a.History().Rows()[0].MessageContent)
}

func TestApp_Quit(t *testing.T) {
	a, _ := newTestApp(t, Options{})
	loginAs(t, a, "me")
	typeText(a, "/quit")
	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Empty(t, a.View())
}
