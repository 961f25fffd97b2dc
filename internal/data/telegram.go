package data

import (
	"context"
	"time"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/repo"
	"github.com/Shadow-droid-3574/TeleResearch/internal/infra/telegram"
)

// telegramGateway adapts the Bot API client to the gateway interface.
// Every call is bounded by a timeout; a timed-out call is a failure for
// that action only and never rolls back state already committed.
type telegramGateway struct {
	client  *telegram.Client
	timeout time.Duration
}

// NewTelegramGateway creates a new gateway backed by the Bot API client
func NewTelegramGateway(client *telegram.Client, timeout time.Duration) repo.Gateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &telegramGateway{client: client, timeout: timeout}
}

func (g *telegramGateway) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// DeleteMessage removes a message from a chat
func (g *telegramGateway) DeleteMessage(ctx context.Context, chatID, msgID int64) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.client.DeleteMessage(ctx, chatID, msgID)
}

// SendMessage sends text to a chat or user
func (g *telegramGateway) SendMessage(ctx context.Context, recipientID int64, text string, html bool) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	parseMode := ""
	if html {
		parseMode = "HTML"
	}
	_, err := g.client.SendMessage(ctx, recipientID, text, parseMode)
	return err
}

// ForwardMessage forwards an existing message verbatim
func (g *telegramGateway) ForwardMessage(ctx context.Context, recipientID, fromChatID, msgID int64) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.client.ForwardMessage(ctx, recipientID, fromChatID, msgID)
}

// BanMember bans a user from a chat
func (g *telegramGateway) BanMember(ctx context.Context, chatID, userID int64) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.client.BanChatMember(ctx, chatID, userID)
}

// UnbanMember lifts a ban
func (g *telegramGateway) UnbanMember(ctx context.Context, chatID, userID int64, onlyIfBanned bool) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	return g.client.UnbanChatMember(ctx, chatID, userID, onlyIfBanned)
}

// ResolveHandle resolves an @username to a user ID
func (g *telegramGateway) ResolveHandle(ctx context.Context, handle string) (int64, error) {
	ctx, cancel := g.bound(ctx)
	defer cancel()

	chat, err := g.client.GetChat(ctx, handle)
	if err != nil {
		return 0, err
	}
	return chat.ID, nil
}
