// Package cmds holds the subcommands of the ting binary.
package cmds

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gtklocker/ting/pkg/config"
	"github.com/gtklocker/ting/pkg/persistence/historystore"
	"github.com/gtklocker/ting/pkg/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func loadSettings() (config.Settings, error) {
	return config.Load(viper.GetViper())
}

// newClient builds the transport selected by s. Websocket clients are
// connected before returning so that the first login can be sent right
// away.
func newClient(ctx context.Context, s config.Settings) (transport.Client, error) {
	switch s.Transport {
	case config.TransportRedis:
		c, err := transport.NewRedisStreamClient(ctx, s.Redis)
		if err != nil {
			return nil, errors.Wrap(err, "redis transport")
		}
		log.Info().Str("component", "cmd").Str("client_id", c.ClientID()).Msg("using redis streams")
		return c, nil
	default:
		c := transport.NewWebsocketClient(s.ServerURL)
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// openStore opens the history cache. An empty path or a file that cannot
// be opened falls back to memory.
func openStore(s config.Settings) historystore.Store {
	if s.HistoryDB == "" {
		return historystore.NewInMemoryStore(s.HistoryLimit)
	}
	store, err := openSQLite(s.HistoryDB, s.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Str("component", "cmd").Str("path", s.HistoryDB).Msg("history cache unavailable, keeping it in memory")
		return historystore.NewInMemoryStore(s.HistoryLimit)
	}
	return store
}

func openSQLite(path string, limit int) (*historystore.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create history dir")
	}
	dsn, err := historystore.SQLiteDSNForFile(path)
	if err != nil {
		return nil, err
	}
	return historystore.NewSQLiteStore(dsn, limit)
}
