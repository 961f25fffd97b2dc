package domain

// ChatType represents the chat type
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// IsGroup reports whether the chat is subject to moderation policy.
// Private conversations with the bot are exempt.
func (t ChatType) IsGroup() bool {
	return t == ChatTypeGroup || t == ChatTypeSupergroup
}

// InboundMessage is a platform message as seen by the moderation engine
type InboundMessage struct {
	MsgID    int64
	ChatID   int64
	ChatType ChatType
	From     User
	Text     string
	Caption  string
}

// ModerationText returns the unit of text the classifier evaluates.
// Text and caption are concatenated on purpose: a payload split across
// the two fields must still match as a whole.
func (m *InboundMessage) ModerationText() string {
	switch {
	case m.Text == "":
		return m.Caption
	case m.Caption == "":
		return m.Text
	default:
		return m.Text + " " + m.Caption
	}
}
