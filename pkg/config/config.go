// Package config loads client settings from flags, TING_* environment
// variables, an optional .env file and ~/.config/ting/config.yaml, in that
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gtklocker/ting/pkg/logging"
	"github.com/gtklocker/ting/pkg/redisstream"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	AppName   = "ting"
	EnvPrefix = "TING"

	TransportWebsocket = "websocket"
	TransportRedis     = "redis"
)

type Settings struct {
	Transport string   `mapstructure:"transport" validate:"oneof=websocket redis"`
	ServerURL string   `mapstructure:"server-url" validate:"omitempty,url"`
	Channel   string   `mapstructure:"channel" validate:"required"`
	Channels  []string `mapstructure:"channels" validate:"dive,required"`
	Username  string   `mapstructure:"username"`
	Locale    string   `mapstructure:"locale"`

	HistoryDB    string `mapstructure:"history-db"`
	HistoryLimit int    `mapstructure:"history-limit" validate:"gte=0"`

	DesktopNotify bool `mapstructure:"desktop-notify"`

	Redis   redisstream.Settings `mapstructure:",squash" validate:"-"`
	Logging logging.Settings     `mapstructure:",squash" validate:"-"`
}

// AddFlags registers every setting as a persistent flag of root.
func AddFlags(root *cobra.Command) {
	fs := root.PersistentFlags()
	fs.String("transport", TransportWebsocket, "Transport to the chat server (websocket, redis)")
	fs.String("server-url", "ws://localhost:3000/ws", "Websocket URL of the chat server")
	fs.String("channel", "ting", "Channel to join")
	fs.StringSlice("channels", nil, "Channels to choose from at startup")
	fs.String("username", "", "Username to log in with")
	fs.String("locale", "", "Locale of the interface (default from $LANG)")
	fs.String("history-db", DefaultHistoryDB(), "SQLite file caching history, empty for memory only")
	fs.Int("history-limit", 500, "Messages cached per channel")
	fs.Bool("desktop-notify", false, "Raise desktop notifications for unread messages")

	fs.String("redis-addr", "localhost:6379", "Redis address host:port")
	fs.String("redis-group", "ting", "Redis consumer group")
	fs.String("redis-consumer", "", "Redis consumer name (default random)")
	fs.String("redis-topic-in", "ting-events", "Stream the server publishes events to")
	fs.String("redis-topic-out", "ting-requests", "Stream the client publishes requests to")

	logging.AddFlags(root)
}

// DefaultHistoryDB lives next to the other per-user caches.
func DefaultHistoryDB() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, AppName, "history.db")
}

// InitViper wires v to root's flags, the environment and the config file.
// A missing .env or config file is not an error.
func InitViper(v *viper.Viper, root *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("could not load .env")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, AppName))
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "read config")
		}
	}

	if err := v.BindPFlags(root.PersistentFlags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	return nil
}

var validate = validator.New()

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "decode settings")
	}
	s.Transport = strings.ToLower(strings.TrimSpace(s.Transport))
	if err := validate.Struct(s); err != nil {
		return Settings{}, errors.Wrap(err, "invalid settings")
	}
	if s.Transport == TransportWebsocket && s.ServerURL == "" {
		return Settings{}, errors.New("invalid settings: server-url is required for the websocket transport")
	}
	if s.Transport == TransportRedis {
		if err := validate.Struct(s.Redis); err != nil {
			return Settings{}, errors.Wrap(err, "invalid redis settings")
		}
	}
	return s, nil
}

// ChannelChoices is the channel list offered at startup: the configured
// channels, or just the default channel.
func (s Settings) ChannelChoices() []string {
	if len(s.Channels) == 0 {
		return []string{s.Channel}
	}
	return s.Channels
}
