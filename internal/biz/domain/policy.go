package domain

import "strings"

// PolicyDefaults are the system-wide moderation defaults applied to any
// chat field that has not been configured explicitly.
type PolicyDefaults struct {
	WarnLimit   int
	DeleteLinks bool
	BanOnLimit  bool
	BannedWords []string
}

// StoredChatConfig is the persisted per-chat configuration. Nil pointer
// fields mean "unset, use the system default". Only administrative
// configuration commands mutate it.
type StoredChatConfig struct {
	DeleteLinks *bool    `json:"delete_links,omitempty"`
	WarnLimit   *int     `json:"warn_limit,omitempty"`
	BanOnLimit  *bool    `json:"ban_on_limit,omitempty"`
	BannedWords []string `json:"banned_words,omitempty"`
}

// ChatPolicy is the effective policy for one chat: stored configuration
// merged with defaults, banned words unioned with the global set.
type ChatPolicy struct {
	DeleteLinks bool
	WarnLimit   int
	BanOnLimit  bool
	BannedWords map[string]struct{}
}

// Effective merges the stored config (may be nil) with the defaults.
// The merge happens at read time so the persisted per-chat word list
// stays minimal.
func (d PolicyDefaults) Effective(stored *StoredChatConfig) ChatPolicy {
	p := ChatPolicy{
		DeleteLinks: d.DeleteLinks,
		WarnLimit:   d.WarnLimit,
		BanOnLimit:  d.BanOnLimit,
		BannedWords: make(map[string]struct{}, len(d.BannedWords)),
	}
	for _, w := range d.BannedWords {
		if w = normalizeWord(w); w != "" {
			p.BannedWords[w] = struct{}{}
		}
	}
	if stored == nil {
		return p
	}
	if stored.DeleteLinks != nil {
		p.DeleteLinks = *stored.DeleteLinks
	}
	if stored.WarnLimit != nil && *stored.WarnLimit > 0 {
		p.WarnLimit = *stored.WarnLimit
	}
	if stored.BanOnLimit != nil {
		p.BanOnLimit = *stored.BanOnLimit
	}
	for _, w := range stored.BannedWords {
		if w = normalizeWord(w); w != "" {
			p.BannedWords[w] = struct{}{}
		}
	}
	return p
}

// PolicyUpdate is a partial configuration change. Nil fields are left
// untouched; word additions and removals are set operations and never
// error on duplicates or missing entries.
type PolicyUpdate struct {
	DeleteLinks  *bool
	WarnLimit    *int
	BanOnLimit   *bool
	AddBanned    []string
	RemoveBanned []string
}

// IsZero reports whether the update changes nothing
func (u *PolicyUpdate) IsZero() bool {
	return u.DeleteLinks == nil && u.WarnLimit == nil && u.BanOnLimit == nil &&
		len(u.AddBanned) == 0 && len(u.RemoveBanned) == 0
}

// Apply applies the update to a stored config in place
func (c *StoredChatConfig) Apply(u PolicyUpdate) {
	if u.DeleteLinks != nil {
		v := *u.DeleteLinks
		c.DeleteLinks = &v
	}
	if u.WarnLimit != nil {
		v := *u.WarnLimit
		c.WarnLimit = &v
	}
	if u.BanOnLimit != nil {
		v := *u.BanOnLimit
		c.BanOnLimit = &v
	}
	for _, w := range u.AddBanned {
		if w = normalizeWord(w); w != "" && !containsWord(c.BannedWords, w) {
			c.BannedWords = append(c.BannedWords, w)
		}
	}
	for _, w := range u.RemoveBanned {
		w = normalizeWord(w)
		for i, existing := range c.BannedWords {
			if existing == w {
				c.BannedWords = append(c.BannedWords[:i], c.BannedWords[i+1:]...)
				break
			}
		}
	}
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimSpace(w))
}

func containsWord(words []string, w string) bool {
	for _, existing := range words {
		if existing == w {
			return true
		}
	}
	return false
}
