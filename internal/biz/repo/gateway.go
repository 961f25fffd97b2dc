package repo

import "context"

// Gateway is the messaging-platform boundary. Every call does network
// I/O, may fail, and is bounded by a timeout in the implementation.
// Failures are reported as errors and are never process-fatal.
type Gateway interface {
	// DeleteMessage removes a message from a chat
	DeleteMessage(ctx context.Context, chatID, msgID int64) error

	// SendMessage sends text to a chat or user. html enables HTML
	// formatting in the message body.
	SendMessage(ctx context.Context, recipientID int64, text string, html bool) error

	// ForwardMessage forwards an existing message verbatim
	ForwardMessage(ctx context.Context, recipientID, fromChatID, msgID int64) error

	// BanMember bans a user from a chat
	BanMember(ctx context.Context, chatID, userID int64) error

	// UnbanMember lifts a ban. With onlyIfBanned the platform treats an
	// unbanned target as a no-op instead of kicking them.
	UnbanMember(ctx context.Context, chatID, userID int64, onlyIfBanned bool) error

	// ResolveHandle resolves an @username to a user ID
	ResolveHandle(ctx context.Context, handle string) (int64, error)
}
