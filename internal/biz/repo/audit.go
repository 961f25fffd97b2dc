package repo

import (
	"context"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
)

// AuditRepo is the moderation audit log interface (SQLite)
type AuditRepo interface {
	// Record appends one audit entry
	Record(ctx context.Context, entry *domain.AuditEntry) error

	// RecentByChat returns the newest entries for a chat
	RecentByChat(ctx context.Context, chatID int64, limit int) ([]domain.AuditEntry, error)

	// Close closes the database connection
	Close() error
}
