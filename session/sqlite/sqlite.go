// Package sqlite provides a durable core.ConversationStore backed by
// modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/mrarejimmyz/chatcore/core"
	"github.com/mrarejimmyz/chatcore/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT    NOT NULL,
	seq             INTEGER NOT NULL,
	id              TEXT    NOT NULL,
	role            TEXT    NOT NULL,
	content         TEXT    NOT NULL,
	created_at      TEXT    NOT NULL,
	metadata        TEXT,
	PRIMARY KEY (conversation_id, seq)
);`

// Store persists conversations in a single messages table. The window
// invariant is enforced inside the append transaction.
type Store struct {
	db     *sql.DB
	window int
}

var _ core.ConversationStore = (*Store)(nil)

// Open opens (or creates) the database at dsn and prepares the schema.
func Open(dsn string, window int) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}
	// Each pragma must be prefixed with `_pragma=` for modernc.org/sqlite.
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", dsn+sep+"_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s, err := NewStore(db, window)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing database handle and creates the schema.
func NewStore(db *sql.DB, window int) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "failed to create messages table")
	}
	return &Store{db: db, window: session.NormalizeWindow(window)}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type row struct {
	seq int64
	msg core.Message
}

// History returns the conversation, system message first, oldest turn next.
func (s *Store) History(ctx context.Context, conversationID string) ([]core.Message, error) {
	rows, err := loadRows(ctx, s.db, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]core.Message, len(rows))
	for i, r := range rows {
		out[i] = r.msg
	}
	return out, nil
}

// Append inserts msg and trims the conversation in one transaction.
func (s *Store) Append(ctx context.Context, conversationID string, msg core.Message) error {
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := loadRows(ctx, tx, conversationID)
	if err != nil {
		return err
	}
	history := make([]core.Message, len(rows))
	var maxSeq int64
	for i, r := range rows {
		history[i] = r.msg
		if r.seq > maxSeq {
			maxSeq = r.seq
		}
	}

	kept := make(map[string]bool)
	for _, m := range session.ApplyAppend(history, msg, s.window) {
		kept[m.ID] = true
	}

	for _, r := range rows {
		if kept[r.msg.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ? AND seq = ?`, conversationID, r.seq); err != nil {
			return errors.Wrap(err, "failed to trim conversation")
		}
	}

	if kept[msg.ID] {
		if err := insert(ctx, tx, conversationID, maxSeq+1, msg); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "failed to commit append")
}

// Clear deletes every message of the conversation.
func (s *Store) Clear(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	return errors.Wrapf(err, "failed to clear conversation %s", conversationID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadRows(ctx context.Context, q querier, conversationID string) ([]row, error) {
	rs, err := q.QueryContext(ctx, `
		SELECT seq, id, role, content, created_at, metadata
		FROM messages
		WHERE conversation_id = ?
		ORDER BY CASE role WHEN 'system' THEN 0 ELSE 1 END, seq`, conversationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query messages")
	}
	defer rs.Close()

	out := []row{}
	for rs.Next() {
		var (
			r         row
			role      string
			createdAt string
			metadata  sql.NullString
		)
		if err := rs.Scan(&r.seq, &r.msg.ID, &role, &r.msg.Content, &createdAt, &metadata); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		r.msg.Role = core.Role(role)
		if r.msg.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, errors.Wrapf(err, "invalid created_at for message %s", r.msg.ID)
		}
		if metadata.Valid && metadata.String != "" {
			var md core.MessageMetadata
			if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
				return nil, errors.Wrapf(err, "invalid metadata for message %s", r.msg.ID)
			}
			r.msg.Metadata = &md
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rs.Err(), "failed to iterate messages")
}

func insert(ctx context.Context, tx *sql.Tx, conversationID string, seq int64, msg core.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	var metadata sql.NullString
	if msg.Metadata != nil {
		b, err := json.Marshal(msg.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to encode metadata")
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, seq, id, role, content, created_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversationID, seq, msg.ID, string(msg.Role), msg.Content, msg.Timestamp.Format(time.RFC3339Nano), metadata)
	return errors.Wrap(err, "failed to insert message")
}
