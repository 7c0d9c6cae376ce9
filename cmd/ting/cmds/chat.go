package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/gtklocker/ting/pkg/config"
	"github.com/gtklocker/ting/pkg/i18n"
	"github.com/gtklocker/ting/pkg/notify"
	"github.com/gtklocker/ting/pkg/persistence/historystore"
	"github.com/gtklocker/ting/pkg/transport"
	"github.com/gtklocker/ting/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the full-screen chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			return runChat(cmd.Context(), s)
		},
	}
}

func runChat(ctx context.Context, s config.Settings) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return errors.New("chat needs a terminal, use `ting tail` when piping")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tr, err := i18n.New(s.Locale)
	if err != nil {
		return err
	}

	channel, err := pickChannel(s, tr)
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

	events := make(chan any, 64)
	app := ui.NewApp(ctx, ui.Options{
		Channel:    channel,
		Username:   s.Username,
		Translator: tr,
		Sender:     client,
		Events:     events,
		Store:      store,
		CacheLimit: s.HistoryLimit,
		Sound:      notify.NewSound(notify.WithDesktop(s.DesktopNotify)),
	})
	defer app.Teardown()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	app.SetProgram(p)

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		ch := transport.NewChannelHandler(gctx, events)
		err := client.Run(gctx, historystore.NewPersistingHandler(gctx, store, ch))
		if err != nil {
			log.Error().Err(err).Str("component", "cmd").Msg("transport stopped")
		}
		ch.Disconnect(err)
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	return eg.Wait()
}

// pickChannel asks which channel to join when more than one is configured.
func pickChannel(s config.Settings, tr i18n.Translator) (string, error) {
	choices := s.ChannelChoices()
	if len(choices) == 1 {
		return choices[0], nil
	}
	channel := s.Channel
	opts := make([]huh.Option[string], 0, len(choices))
	for _, c := range choices {
		opts = append(opts, huh.NewOption("#"+c, c))
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(tr.T("channel.pick")).
				Options(opts...).
				Value(&channel),
		),
	).WithTheme(huh.ThemeCharm()).Run()
	if err != nil {
		return "", errors.Wrap(err, "pick channel")
	}
	return channel, nil
}
