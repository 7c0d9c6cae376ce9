package historystore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gtklocker/ting/pkg/chat"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLiteStore struct {
	db    *sql.DB
	limit int
}

var _ Store = &SQLiteStore{}

// NewSQLiteStore opens (and migrates) the database at dsn. Each channel
// keeps at most limit messages.
func NewSQLiteStore(dsn string, limit int) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite history store: empty dsn")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: open")
	}
	s := &SQLiteStore{db: db, limit: limit}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// SQLiteDSNForFile returns a DSN for a database file with WAL and a busy
// timeout, so the tail and chat commands can share one cache.
func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite history store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history_messages (
		  channel TEXT NOT NULL,
		  id INTEGER NOT NULL,
		  username TEXT NOT NULL,
		  message_content TEXT NOT NULL,
		  message_type TEXT NOT NULL DEFAULT 'text',
		  datetime_start_ms INTEGER,
		  datetime_end_ms INTEGER,
		  updated_at_ms INTEGER NOT NULL,
		  PRIMARY KEY (channel, id)
		);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite history store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) Put(ctx context.Context, channel string, msg chat.Message) error {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return err
	}
	if msg.Typing {
		return ErrTyping
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite history store: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if err := upsert(ctx, tx, channel, msg); err != nil {
		return err
	}
	if err := s.prune(ctx, tx, channel); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "sqlite history store: commit")
}

func (s *SQLiteStore) ReplaceChannel(ctx context.Context, channel string, msgs []chat.Message) error {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite history store: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history_messages WHERE channel = ?`, channel); err != nil {
		return errors.Wrap(err, "sqlite history store: clear channel")
	}
	for _, m := range finalized(msgs) {
		if err := upsert(ctx, tx, channel, m); err != nil {
			return err
		}
	}
	if err := s.prune(ctx, tx, channel); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "sqlite history store: commit")
}

func (s *SQLiteStore) Snapshot(ctx context.Context, channel string, limit int) ([]chat.Message, error) {
	channel, err := normalizeChannel(channel)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, message_content, message_type, datetime_start_ms, datetime_end_ms
		FROM (
			SELECT * FROM history_messages
			WHERE channel = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`, channel, limit)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: snapshot")
	}
	defer func() { _ = rows.Close() }()

	out := []chat.Message{}
	for rows.Next() {
		var (
			m          chat.Message
			kind       string
			start, end sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.Username, &m.MessageContent, &kind, &start, &end); err != nil {
			return nil, errors.Wrap(err, "sqlite history store: scan message")
		}
		m.MessageType = chat.MessageType(kind)
		m.Target = channel
		m.DatetimeStart = fromMillis(start)
		m.DatetimeEnd = fromMillis(end)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite history store: iterate messages")
	}
	return out, nil
}

func (s *SQLiteStore) Channels(ctx context.Context) ([]ChannelInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, COUNT(*), MAX(id)
		FROM history_messages
		GROUP BY channel
		ORDER BY channel ASC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: list channels")
	}
	defer func() { _ = rows.Close() }()

	out := []ChannelInfo{}
	for rows.Next() {
		var ci ChannelInfo
		if err := rows.Scan(&ci.Name, &ci.Count, &ci.LastID); err != nil {
			return nil, errors.Wrap(err, "sqlite history store: scan channel")
		}
		out = append(out, ci)
	}
	return out, errors.Wrap(rows.Err(), "sqlite history store: iterate channels")
}

func upsert(ctx context.Context, tx *sql.Tx, channel string, m chat.Message) error {
	kind := string(m.MessageType)
	if kind == "" {
		kind = string(chat.MessageTypeText)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO history_messages (
			channel, id, username, message_content, message_type,
			datetime_start_ms, datetime_end_ms, updated_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel, id) DO UPDATE SET
			username = excluded.username,
			message_content = excluded.message_content,
			message_type = excluded.message_type,
			datetime_start_ms = COALESCE(excluded.datetime_start_ms, history_messages.datetime_start_ms),
			datetime_end_ms = COALESCE(excluded.datetime_end_ms, history_messages.datetime_end_ms),
			updated_at_ms = excluded.updated_at_ms
	`, channel, m.ID, m.Username, m.MessageContent, kind,
		toMillis(m.DatetimeStart), toMillis(m.DatetimeEnd), time.Now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "sqlite history store: upsert %s/%d", channel, m.ID)
	}
	return nil
}

func (s *SQLiteStore) prune(ctx context.Context, tx *sql.Tx, channel string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM history_messages
		WHERE channel = ? AND id NOT IN (
			SELECT id FROM history_messages WHERE channel = ? ORDER BY id DESC LIMIT ?
		)
	`, channel, channel, s.limit)
	return errors.Wrap(err, "sqlite history store: prune")
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
