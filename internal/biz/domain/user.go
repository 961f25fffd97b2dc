package domain

// User is an identity observed by the bot in any chat.
// Users are append-only: they are created on first observation and
// updated on later ones, never removed, so the broadcast roster only grows.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Chats     []int64
}

// DisplayName returns the best human-readable name for the user
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		name = u.Username
	}
	return name
}

// InChat checks whether the user has been observed in the given chat
func (u *User) InChat(chatID int64) bool {
	for _, id := range u.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}

// ObserveChat records chat membership, returning true if it was new
func (u *User) ObserveChat(chatID int64) bool {
	if u.InChat(chatID) {
		return false
	}
	u.Chats = append(u.Chats, chatID)
	return true
}
