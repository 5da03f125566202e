package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/caremesh/medgate/pkg/chat"
)

// SQLiteStore persists conversations in a SQLite database. Use ":memory:"
// for an ephemeral database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	sender          TEXT NOT NULL,
	user_id         TEXT NOT NULL DEFAULT '',
	text            TEXT NOT NULL,
	image           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);

CREATE TABLE IF NOT EXISTS reports (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	record          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
`

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite serializes writers anyway; a single connection also keeps
	// ":memory:" databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, conversationID string) (*Conversation, error) {
	conv, err := s.get(ctx, conversationID)
	if err == nil {
		return conv, nil
	}
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, state, metadata, created_at) VALUES (?, ?, '{}', ?)
		 ON CONFLICT(id) DO NOTHING`,
		conversationID, string(chat.StateCollecting), now)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return s.get(ctx, conversationID)
}

func (s *SQLiteStore) get(ctx context.Context, conversationID string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, state, metadata, created_at FROM conversations WHERE id = ?`, conversationID)

	var conv Conversation
	var state, metaJSON string
	if err := row.Scan(&conv.ID, &state, &metaJSON, &conv.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound{ConversationID: conversationID}
		}
		return nil, fmt.Errorf("query conversation: %w", err)
	}

	conv.State = chat.State(state)
	if err := json.Unmarshal([]byte(metaJSON), &conv.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &conv, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, entry Entry) error {
	if err := s.require(ctx, conversationID); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender, user_id, text, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, entry.Sender, entry.UserID, entry.Text, entry.Image, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Messages(ctx context.Context, conversationID string, limit int) ([]Entry, error) {
	if err := s.require(ctx, conversationID); err != nil {
		return nil, err
	}

	query := `SELECT sender, user_id, text, image, created_at FROM messages
		WHERE conversation_id = ? ORDER BY id DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Sender, &e.UserID, &e.Text, &e.Image, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Rows come newest-first so the limit trims old entries; flip back to
	// chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *SQLiteStore) MergeMetadata(ctx context.Context, conversationID string, fields map[string]any) error {
	conv, err := s.get(ctx, conversationID)
	if err != nil {
		return err
	}

	if conv.Metadata == nil {
		conv.Metadata = map[string]any{}
	}
	for k, v := range fields {
		conv.Metadata[k] = v
	}

	metaJSON, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET metadata = ? WHERE id = ?`, string(metaJSON), conversationID); err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Metadata(ctx context.Context, conversationID string) (map[string]any, error) {
	conv, err := s.get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return conv.Metadata, nil
}

func (s *SQLiteStore) SetState(ctx context.Context, conversationID string, state chat.State) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET state = ? WHERE id = ?`, string(state), conversationID)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	if n == 0 {
		return ErrNotFound{ConversationID: conversationID}
	}
	return nil
}

func (s *SQLiteStore) State(ctx context.Context, conversationID string) (chat.State, error) {
	conv, err := s.get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return conv.State, nil
}

func (s *SQLiteStore) SaveReport(ctx context.Context, conversationID string, record map[string]any) error {
	if err := s.require(ctx, conversationID); err != nil {
		return err
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (conversation_id, record, created_at) VALUES (?, ?, ?)`,
		conversationID, string(recordJSON), time.Now().UTC()); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reports(ctx context.Context, conversationID string) ([]map[string]any, error) {
	if err := s.require(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM reports WHERE conversation_id = ? ORDER BY id`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var records []map[string]any
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var record map[string]any
		if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) require(ctx context.Context, conversationID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM conversations WHERE id = ?`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound{ConversationID: conversationID}
	}
	if err != nil {
		return fmt.Errorf("query conversation: %w", err)
	}
	return nil
}
