package repo

import (
	"context"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
)

// StateRepo is the durable state repository interface. It is the single
// source of truth for users, warnings, the ban ledger, the file registry,
// broadcast channels and per-chat configuration. Every mutation is
// persisted before the call returns.
type StateRepo interface {
	// RegisterUser upserts a user and records chat membership
	RegisterUser(ctx context.Context, user *domain.User, chatID int64) error

	// ListUsers returns every registered user
	ListUsers(ctx context.Context) ([]domain.User, error)

	// IncrementWarning bumps the warning count for (chat, user) and
	// returns the new count
	IncrementWarning(ctx context.Context, chatID, userID int64) (int, error)

	// ResetWarnings zeroes the warning count for (chat, user)
	ResetWarnings(ctx context.Context, chatID, userID int64) error

	// WarningCount returns the current count for (chat, user)
	WarningCount(ctx context.Context, chatID, userID int64) (int, error)

	// RecordBan adds (chat, user) to the ban ledger
	RecordBan(ctx context.Context, chatID, userID int64) error

	// ClearBan removes (chat, user) from the ban ledger; clearing an
	// absent entry is a no-op
	ClearBan(ctx context.Context, chatID, userID int64) error

	// IsBanned checks the ban ledger
	IsBanned(ctx context.Context, chatID, userID int64) (bool, error)

	// AddFile adds or replaces a file registry entry
	AddFile(ctx context.Context, entry domain.FileEntry) error

	// RemoveFile deletes a file registry entry
	RemoveFile(ctx context.Context, key string) error

	// GetFile looks up a file entry, nil if absent
	GetFile(ctx context.Context, key string) (*domain.FileEntry, error)

	// ListFiles returns all file entries sorted by key
	ListFiles(ctx context.Context) ([]domain.FileEntry, error)

	// Channels returns the configured broadcast channel IDs
	Channels(ctx context.Context) ([]int64, error)

	// ObserveChannel records a channel as a broadcast target; observing a
	// known channel is a no-op
	ObserveChannel(ctx context.Context, chatID int64) error

	// ChatConfig returns the stored per-chat config, nil if never set
	ChatConfig(ctx context.Context, chatID int64) (*domain.StoredChatConfig, error)

	// SaveChatConfig persists the per-chat config
	SaveChatConfig(ctx context.Context, chatID int64, cfg *domain.StoredChatConfig) error

	// Close flushes and releases the store
	Close() error
}
