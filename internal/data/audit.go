package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// auditRepo implements the moderation audit log on SQLite
type auditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new audit log repository
func NewAuditRepo(dbPath string) (repo.AuditRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS moderation_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			actor_id INTEGER NOT NULL DEFAULT 0,
			action TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_moderation_log_chat ON moderation_log(chat_id, created_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &auditRepo{db: db}, nil
}

// Record appends one audit entry
func (r *auditRepo) Record(ctx context.Context, entry *domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO moderation_log (chat_id, user_id, actor_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		entry.ChatID,
		entry.UserID,
		entry.ActorID,
		string(entry.Action),
		entry.Detail,
		entry.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// RecentByChat returns the newest entries for a chat
func (r *auditRepo) RecentByChat(ctx context.Context, chatID int64, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chat_id, user_id, actor_id, action, detail, created_at
		FROM moderation_log
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var action string
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.ChatID, &entry.UserID, &entry.ActorID, &action, &entry.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		entry.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the database connection
func (r *auditRepo) Close() error {
	return r.db.Close()
}
