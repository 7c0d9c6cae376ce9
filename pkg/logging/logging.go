// Package logging configures the global zerolog logger. A full-screen UI
// owns stdout, so logs default to a rotating file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Stderr as log file writes human-readable logs to stderr.
const Stderr = "-"

type Settings struct {
	Level  string `mapstructure:"log-level"`
	File   string `mapstructure:"log-file"`
	Format string `mapstructure:"log-format"`
}

// AddFlags registers the logging flags on cmd's persistent flag set.
func AddFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.String("log-file", DefaultFile(), "Log file, or - for stderr")
	fs.String("log-format", "json", "Log format for files (json, text)")
}

// DefaultFile is $XDG_STATE_HOME/ting/ting.log, or ~/.local/state/ting/ting.log.
func DefaultFile() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "ting.log")
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "ting", "ting.log")
}

// Init replaces the global logger. The returned closer flushes and closes
// the log file, if any.
func Init(s Settings) (io.Closer, error) {
	level := zerolog.InfoLevel
	if s.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s.Level))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	w, closer, err := writer(s)
	if err != nil {
		return nil, err
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return closer, nil
}

func writer(s Settings) (io.Writer, io.Closer, error) {
	if s.File == "" || s.File == Stderr {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}, nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.File), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "create log directory")
	}
	lj := &lumberjack.Logger{
		Filename:   s.File,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	if s.Format == "text" {
		return zerolog.ConsoleWriter{Out: lj, NoColor: true, TimeFormat: time.RFC3339}, lj, nil
	}
	return lj, lj, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
