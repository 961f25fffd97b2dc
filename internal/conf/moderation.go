package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Shadow-droid-3574/TeleResearch/internal/biz/domain"
)

// ModerationConfig contains moderation defaults loaded from YAML.
// Per-chat overrides stored at runtime take precedence over these.
type ModerationConfig struct {
	WarnLimit   int      `yaml:"warn_limit"`
	DeleteLinks *bool    `yaml:"delete_links"`
	BanOnLimit  *bool    `yaml:"ban_on_limit"`
	BannedWords []string `yaml:"banned_words"`
	Links       LinksConfig
}

// LinksConfig tunes link detection
type LinksConfig struct {
	TLDs       []string `yaml:"tlds"`
	Shorteners []string `yaml:"shorteners"`
}

// LoadModerationConfig loads moderation defaults from a YAML file
func LoadModerationConfig(configPath string) (*ModerationConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/moderation.yaml",
			"./configs/moderation.yaml",
			"/etc/teleresearch/moderation.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "moderation.yaml"))
		}
	}

	var data []byte
	var loadedPath string

	for _, p := range paths {
		if p == "" {
			continue
		}
		if raw, err := os.ReadFile(p); err == nil {
			data = raw
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No moderation.yaml found, using defaults")
		return DefaultModerationConfig(), nil
	}

	fmt.Printf("[Config] Loading moderation defaults from: %s\n", loadedPath)

	var config ModerationConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse moderation.yaml: %w", err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *ModerationConfig) fillDefaults() {
	defaults := DefaultModerationConfig()

	if c.WarnLimit <= 0 {
		c.WarnLimit = defaults.WarnLimit
	}
	if c.DeleteLinks == nil {
		c.DeleteLinks = defaults.DeleteLinks
	}
	if c.BanOnLimit == nil {
		c.BanOnLimit = defaults.BanOnLimit
	}
	if len(c.Links.TLDs) == 0 {
		c.Links.TLDs = defaults.Links.TLDs
	}
	if len(c.Links.Shorteners) == 0 {
		c.Links.Shorteners = defaults.Links.Shorteners
	}
}

// ToPolicyDefaults converts to the domain policy defaults
func (c *ModerationConfig) ToPolicyDefaults() domain.PolicyDefaults {
	return domain.PolicyDefaults{
		WarnLimit:   c.WarnLimit,
		DeleteLinks: *c.DeleteLinks,
		BanOnLimit:  *c.BanOnLimit,
		BannedWords: append([]string(nil), c.BannedWords...),
	}
}

// ToLinkRules converts to the classifier link rules
func (c *ModerationConfig) ToLinkRules() domain.LinkRules {
	return domain.LinkRules{
		TLDs:       append([]string(nil), c.Links.TLDs...),
		Shorteners: append([]string(nil), c.Links.Shorteners...),
	}
}

// DefaultModerationConfig returns the built-in moderation defaults
func DefaultModerationConfig() *ModerationConfig {
	deleteLinks := true
	banOnLimit := true
	rules := domain.DefaultLinkRules()
	return &ModerationConfig{
		WarnLimit:   3,
		DeleteLinks: &deleteLinks,
		BanOnLimit:  &banOnLimit,
		BannedWords: []string{},
		Links: LinksConfig{
			TLDs:       rules.TLDs,
			Shorteners: rules.Shorteners,
		},
	}
}
