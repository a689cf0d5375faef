package attachments

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/earthchat/earth/pkg/chat"
)

const sqliteAttachmentsSchemaV1 = `
CREATE TABLE IF NOT EXISTS attachments (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL,
    media_type      TEXT NOT NULL,
    content         TEXT NOT NULL,
    size            INTEGER NOT NULL DEFAULT 0,
    created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_attachments_conversation ON attachments(conversation_id);
`

// SQLiteRepository persists attachment records in a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if path == "" {
		return nil, errors.New("sqlite attachment repository: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "cannot create database directory %s", dir)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(sqliteAttachmentsSchemaV1); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "database migration failed")
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, record chat.Attachment) error {
	if record.ID == "" {
		return errors.New("attachment id is required")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO attachments (id, conversation_id, name, media_type, content, size)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    conversation_id = excluded.conversation_id,
    name = excluded.name,
    media_type = excluded.media_type,
    content = excluded.content,
    size = excluded.size`,
		record.ID, record.ConversationID, record.Name, record.MediaType, record.Content, record.Size)
	return errors.Wrapf(err, "failed to save attachment %s", record.ID)
}

func (r *SQLiteRepository) GetByConversation(ctx context.Context, conversationID string) ([]chat.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, conversation_id, name, media_type, content, size
FROM attachments WHERE conversation_id = ? ORDER BY rowid`, conversationID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list attachments for conversation %s", conversationID)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []chat.Attachment{}
	for rows.Next() {
		var rec chat.Attachment
		if err := rows.Scan(&rec.ID, &rec.ConversationID, &rec.Name, &rec.MediaType, &rec.Content, &rec.Size); err != nil {
			return nil, errors.Wrap(err, "failed to scan attachment row")
		}
		out = append(out, rec)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate attachment rows")
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
	return errors.Wrapf(err, "failed to delete attachment %s", id)
}

func (r *SQLiteRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE conversation_id = ?`, conversationID)
	return errors.Wrapf(err, "failed to delete attachments for conversation %s", conversationID)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
