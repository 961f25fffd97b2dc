package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// Update is one item from getUpdates
type Update struct {
	UpdateID    int64    `json:"update_id"`
	Message     *Message `json:"message"`
	EditedMsg   *Message `json:"edited_message"`
	ChannelPost *Message `json:"channel_post"`
}

// Message is a Bot API message
type Message struct {
	MessageID      int64     `json:"message_id"`
	From           *User     `json:"from"`
	Chat           Chat      `json:"chat"`
	Date           int64     `json:"date"`
	Text           string    `json:"text"`
	Caption        string    `json:"caption"`
	Document       *Document `json:"document"`
	ReplyToMessage *Message  `json:"reply_to_message"`
}

// User is a Bot API user
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// Chat is a Bot API chat. For private chats the ID doubles as the
// peer's user ID, which is what getChat on an @username resolves to.
type Chat struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"` // private, group, supergroup, channel
	Title    string `json:"title"`
	Username string `json:"username"`
}

// Document is an attached file
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// APIError is a non-ok Bot API response
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client is the Telegram Bot API client
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Bot API client. The client carries no
// global timeout: getUpdates long-polls for a caller-chosen duration,
// so every call is bounded through its context instead.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// call POSTs one Bot API method and decodes the result envelope
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return &APIError{Method: method, Code: envelope.ErrorCode, Description: envelope.Description}
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetMe returns the bot's own identity
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// GetUpdates long-polls for new updates past offset. The request is
// bounded at the poll timeout plus a margin for the round trip, so a
// server that holds the poll open cannot hang the loop.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec+10)*time.Second)
	defer cancel()

	params := map[string]any{
		"offset":          offset,
		"timeout":         timeoutSec,
		"allowed_updates": []string{"message", "channel_post"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// SendMessage sends text to a chat. parseMode may be empty or "HTML".
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) (*Message, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}
	var msg Message
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SendDocument sends a previously uploaded document by file ID
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) (*Message, error) {
	params := map[string]any{
		"chat_id":  chatID,
		"document": fileID,
	}
	if caption != "" {
		params["caption"] = caption
	}
	var msg Message
	if err := c.call(ctx, "sendDocument", params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ForwardMessage forwards an existing message verbatim
func (c *Client) ForwardMessage(ctx context.Context, chatID, fromChatID, messageID int64) error {
	params := map[string]any{
		"chat_id":      chatID,
		"from_chat_id": fromChatID,
		"message_id":   messageID,
	}
	return c.call(ctx, "forwardMessage", params, nil)
}

// DeleteMessage removes a message
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", params, nil)
}

// BanChatMember bans a user from a chat
func (c *Client) BanChatMember(ctx context.Context, chatID, userID int64) error {
	params := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
	}
	return c.call(ctx, "banChatMember", params, nil)
}

// UnbanChatMember lifts a ban. With onlyIfBanned set the call is a
// no-op for users who are not banned, instead of kicking them.
func (c *Client) UnbanChatMember(ctx context.Context, chatID, userID int64, onlyIfBanned bool) error {
	params := map[string]any{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": onlyIfBanned,
	}
	return c.call(ctx, "unbanChatMember", params, nil)
}

// GetChat resolves a chat (or @username) to its full record
func (c *Client) GetChat(ctx context.Context, handle string) (*Chat, error) {
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}
	params := map[string]any{"chat_id": handle}
	var chat Chat
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}
