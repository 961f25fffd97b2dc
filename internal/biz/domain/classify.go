package domain

import (
	"regexp"
	"strings"
)

// LinkRules configures the link detector: which bare-domain TLDs count
// as links and which shortener hostnames are matched exactly.
type LinkRules struct {
	TLDs       []string
	Shorteners []string
}

// DefaultLinkRules returns the built-in detection rules
func DefaultLinkRules() LinkRules {
	return LinkRules{
		TLDs:       []string{"com", "net", "org", "in", "io", "info", "biz", "co", "me", "xyz", "tk"},
		Shorteners: []string{"bit.ly", "t.co", "tinyurl.com", "goo.gl", "is.gd", "ow.ly"},
	}
}

// Classification is the verdict for one unit of text
type Classification struct {
	LinkDetected bool
	BannedWord   string
}

// Violation reports whether the text broke any policy
func (c Classification) Violation() bool {
	return c.LinkDetected || c.BannedWord != ""
}

// Describe summarizes the verdict for logging and auditing
func (c Classification) Describe() string {
	switch {
	case c.LinkDetected && c.BannedWord != "":
		return "link and banned word " + c.BannedWord
	case c.LinkDetected:
		return "link"
	case c.BannedWord != "":
		return "banned word " + c.BannedWord
	default:
		return "clean"
	}
}

// Classifier decides whether message text violates link policy.
// It is pure: no state is mutated and no I/O happens during Classify.
type Classifier struct {
	urlRE       *regexp.Regexp
	ipRE        *regexp.Regexp
	shortenerRE *regexp.Regexp
}

var (
	obfuscatedDotRE = regexp.MustCompile(`(?i)\[\.\]|\{\.\}|\(dot\)|\sdot\s`)
	obfuscatedAtRE  = regexp.MustCompile(`(?i)\[at\]|\(at\)|\sat\s`)
)

// NewClassifier builds a classifier from the given rules. Zero-value
// rule lists fall back to the defaults.
func NewClassifier(rules LinkRules) *Classifier {
	defaults := DefaultLinkRules()
	if len(rules.TLDs) == 0 {
		rules.TLDs = defaults.TLDs
	}
	if len(rules.Shorteners) == 0 {
		rules.Shorteners = defaults.Shorteners
	}

	// Both lists come from config, so every entry is quoted before it
	// reaches the pattern
	tlds := make([]string, len(rules.TLDs))
	for i, tld := range rules.TLDs {
		tlds[i] = regexp.QuoteMeta(tld)
	}
	urlRE := regexp.MustCompile(`(?i)(https?://[\w\-.~:/?#\[\]@!$&'()*+,;=%]+` +
		`|www\.[\w\-]+\.[\w\-./?=&%]+` +
		`|t\.me/\S+|telegram\.me/\S+` +
		`|[\w\-]+\.(` + strings.Join(tlds, "|") + `)\b)`)

	escaped := make([]string, len(rules.Shorteners))
	for i, s := range rules.Shorteners {
		escaped[i] = regexp.QuoteMeta(s)
	}
	shortenerRE := regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)

	return &Classifier{
		urlRE:       urlRE,
		ipRE:        regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
		shortenerRE: shortenerRE,
	}
}

// NormalizeObfuscated rewrites common separator obfuscations
// ("example[.]com", "example (dot) com", "user [at] host") back to their
// literal characters so the link patterns can match them.
func NormalizeObfuscated(text string) string {
	t := obfuscatedDotRE.ReplaceAllString(text, ".")
	t = obfuscatedAtRE.ReplaceAllString(t, "@")
	return t
}

// Classify evaluates one unit of text against link detection and the
// effective banned-word set. Empty text never matches. When several
// banned words match, which one is reported is unspecified.
func (c *Classifier) Classify(text string, bannedWords map[string]struct{}) Classification {
	var result Classification
	if text == "" {
		return result
	}

	normalized := NormalizeObfuscated(text)
	if c.urlRE.MatchString(normalized) || c.ipRE.MatchString(normalized) || c.shortenerRE.MatchString(normalized) {
		result.LinkDetected = true
	}

	lowered := strings.ToLower(text)
	for w := range bannedWords {
		if w != "" && strings.Contains(lowered, w) {
			result.BannedWord = w
			break
		}
	}
	return result
}
