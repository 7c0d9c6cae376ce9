// Package notify implements the window-level cues of the history pane:
// the terminal title, an audible bell and optional desktop notifications.
package notify

import (
	"io"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
)

// Terminal writes the window title as an OSC sequence and rings through
// beeep.
type Terminal struct {
	mu      sync.Mutex
	out     *termenv.Output
	appName string
	desktop bool

	beep   func() error
	notify func(title, body string) error
}

type Option func(*Terminal)

// WithDesktop also raises a desktop notification for every sound cue that
// comes with a message.
func WithDesktop(enabled bool) Option {
	return func(t *Terminal) { t.desktop = enabled }
}

func WithAppName(name string) Option {
	return func(t *Terminal) { t.appName = name }
}

func NewTerminal(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{
		out:     termenv.NewOutput(w),
		appName: "Ting",
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
		notify: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Terminal) SetTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.out.SetWindowTitle(title)
}

func (t *Terminal) PlaySound() {
	if err := t.beep(); err != nil {
		log.Debug().Err(err).Str("component", "notify").Msg("beep failed")
	}
}

// NotifyMessage raises a desktop notification when enabled.
func (t *Terminal) NotifyMessage(username, content string) {
	if !t.desktop {
		return
	}
	if err := t.notify(t.appName, username+": "+content); err != nil {
		log.Debug().Err(err).Str("component", "notify").Msg("desktop notification failed")
	}
}

// Sound only rings and notifies. It leaves the title to the caller, which
// suits frontends that own the terminal output.
type Sound struct {
	*Terminal
}

func NewSound(opts ...Option) Sound {
	return Sound{Terminal: NewTerminal(io.Discard, opts...)}
}

func (Sound) SetTitle(string) {}

// Nop discards every cue.
type Nop struct{}

func (Nop) SetTitle(string)              {}
func (Nop) PlaySound()                   {}
func (Nop) NotifyMessage(string, string) {}
