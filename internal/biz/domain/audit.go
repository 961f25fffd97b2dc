package domain

import "time"

// AuditAction identifies the kind of moderation action recorded
type AuditAction string

const (
	AuditDelete    AuditAction = "delete"
	AuditWarn      AuditAction = "warn"
	AuditBan       AuditAction = "ban"
	AuditUnban     AuditAction = "unban"
	AuditKick      AuditAction = "kick"
	AuditResetWarn AuditAction = "reset_warnings"
	AuditBroadcast AuditAction = "broadcast"
)

// AuditEntry is one row of the moderation audit log. The log is an
// operator-facing record, separate from the state snapshot.
type AuditEntry struct {
	ID        int64
	ChatID    int64
	UserID    int64
	ActorID   int64
	Action    AuditAction
	Detail    string
	CreatedAt time.Time
}
