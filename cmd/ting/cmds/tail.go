package cmds

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gtklocker/ting/pkg/config"
	"github.com/gtklocker/ting/pkg/history"
	"github.com/gtklocker/ting/pkg/i18n"
	"github.com/gtklocker/ting/pkg/login"
	"github.com/gtklocker/ting/pkg/notify"
	"github.com/gtklocker/ting/pkg/persistence/historystore"
	"github.com/gtklocker/ting/pkg/transport"
	"github.com/gtklocker/ting/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
	"golang.org/x/sync/errgroup"
)

func NewTailCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Log in and print the messages of a channel as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runTail(ctx, s, os.Stdin, os.Stdout)
		},
	}
}

func runTail(ctx context.Context, s config.Settings, in io.Reader, out *os.File) error {
	tr, err := i18n.New(s.Locale)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := newClient(ctx, s)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	store := openStore(s)
	defer func() {
		_ = store.Close()
	}()

	var n history.Notifier = notify.Nop{}
	if isatty.IsTerminal(out.Fd()) {
		n = notify.NewTerminal(out, notify.WithDesktop(s.DesktopNotify))
	}

	events := make(chan any, 64)
	t := newTailer(s.Channel, tr, n, out)
	defer t.hist.Teardown()

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		ch := transport.NewChannelHandler(gctx, events)
		err := client.Run(gctx, historystore.NewPersistingHandler(gctx, store, ch))
		ch.Disconnect(err)
		return err
	})
	eg.Go(func() error {
		defer cancel()
		prompt := &input.UI{Writer: out, Reader: in}
		return t.run(gctx, client, events, func(previous string) (string, error) {
			if previous == "" && s.Username != "" {
				return s.Username, nil
			}
			return askUsername(prompt, tr)
		})
	})
	return eg.Wait()
}

func askUsername(prompt *input.UI, tr i18n.Translator) (string, error) {
	return prompt.Ask(tr.T("usernameSet.placeholder"), &input.Options{
		Required:  true,
		Loop:      true,
		HideOrder: true,
		ValidateFunc: func(answer string) error {
			if r := login.Validate(answer); !r.IsValid() {
				return errors.New(tr.T(r.ErrorKey()))
			}
			return nil
		},
	})
}

// tailer drives a history component from transport events and prints each
// finalized message once.
type tailer struct {
	channel  string
	tr       i18n.Translator
	w        io.Writer
	hist     *history.Component
	renderer *ui.Renderer
	printed  map[int64]bool
}

func newTailer(channel string, tr i18n.Translator, n history.Notifier, w io.Writer) *tailer {
	t := &tailer{
		channel:  channel,
		tr:       tr,
		w:        w,
		renderer: ui.NewRenderer(0, ""),
		printed:  map[int64]bool{},
	}
	t.hist = history.NewComponent(channel, tr.T("history.title"),
		history.WithNotifier(n),
		history.WithChangeListener(func(history.State) { t.flush() }),
	)
	return t
}

func (t *tailer) flush() {
	for _, row := range t.hist.Rows() {
		if row.Typing || t.printed[row.ID] {
			continue
		}
		t.printed[row.ID] = true
		_, _ = fmt.Fprintln(t.w, t.renderer.Row(row))
	}
}

// run logs in, asking for a new username after every rejection, joins the
// channel and applies events until the transport goes away.
func (t *tailer) run(
	ctx context.Context,
	client transport.Client,
	events <-chan any,
	ask func(previous string) (string, error),
) error {
	username := ""
	for {
		var err error
		username, err = ask(username)
		if err != nil {
			return errors.Wrap(err, "read username")
		}
		if err := client.Login(ctx, username); err != nil {
			return err
		}
		resp, err := t.awaitLogin(ctx, events)
		if err != nil {
			return err
		}
		if resp.Success {
			break
		}
		kind := login.Result(resp.Reason)
		if kind == "" {
			kind = login.Unknown
		}
		next := login.NewFormState().OnLoginError(kind, t.tr)
		_, _ = fmt.Fprintln(t.w, next.ErrorStr)
	}

	log.Info().Str("component", "tail").Str("username", username).Str("channel", t.channel).Msg("logged in")
	t.hist.OnLogin(username)
	if err := client.Join(ctx, t.channel); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if d, ok := e.(transport.Disconnected); ok {
				return d.Err
			}
			t.apply(e)
		}
	}
}

func (t *tailer) awaitLogin(ctx context.Context, events <-chan any) (transport.LoginResponse, error) {
	for {
		select {
		case <-ctx.Done():
			return transport.LoginResponse{}, ctx.Err()
		case e, ok := <-events:
			if !ok {
				return transport.LoginResponse{}, transport.ErrNotConnected
			}
			switch m := e.(type) {
			case transport.LoginReceived:
				return m.LoginResponse, nil
			case transport.Disconnected:
				if m.Err != nil {
					return transport.LoginResponse{}, m.Err
				}
				return transport.LoginResponse{}, transport.ErrNotConnected
			default:
				t.apply(e)
			}
		}
	}
}

func (t *tailer) apply(e any) {
	switch m := e.(type) {
	case transport.MessageReceived:
		t.hist.OnMessage(m.Event)
	case transport.TypingReceived:
		t.hist.OnUpdateTypingMessages(m.Batch)
	case transport.HistoryReceived:
		t.hist.OnHistoricalMessagesAvailable(m.Target, m.Messages)
	case transport.PartReceived:
		t.hist.DeleteTypingMessage(m.Username)
	}
}
