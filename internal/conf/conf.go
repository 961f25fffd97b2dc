package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration
type Config struct {
	// Telegram configuration
	Telegram TelegramConfig

	// Privileged operator user IDs
	Admins []int64

	// Store configuration
	Store StoreConfig

	// Gateway call timeouts
	Gateway GatewayConfig

	// Moderation defaults (loaded from YAML)
	Moderation *ModerationConfig
}

// TelegramConfig contains Bot API configuration
type TelegramConfig struct {
	Token string
}

// StoreConfig contains persistence paths
type StoreConfig struct {
	DataFile    string
	AuditDBPath string
}

// GatewayConfig contains timeout settings for outbound platform calls
type GatewayConfig struct {
	TimeoutSeconds     int
	PollTimeoutSeconds int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dataFile := os.Getenv("DATA_FILE")
	if dataFile == "" {
		dataFile = "data/data.json"
	}

	auditDBPath := os.Getenv("AUDIT_DB_PATH")
	if auditDBPath == "" {
		auditDBPath = filepath.Join(filepath.Dir(dataFile), "audit.db")
	}

	gatewayTimeout := 15
	if val := os.Getenv("GATEWAY_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			gatewayTimeout = parsed
		}
	}

	pollTimeout := 30
	if val := os.Getenv("POLL_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			pollTimeout = parsed
		}
	}

	// Load moderation defaults from YAML. A file that exists but does
	// not parse must not take the process down or leave the config nil:
	// fall back to the built-in defaults, like the state store does for
	// a corrupt snapshot.
	moderationPath := os.Getenv("MODERATION_CONFIG_PATH")
	moderation, err := LoadModerationConfig(moderationPath)
	if err != nil {
		fmt.Printf("[Config] Invalid moderation config, using defaults: %v\n", err)
		moderation = DefaultModerationConfig()
	}

	return &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("TG_BOT_TOKEN"),
		},
		Admins: parseAdminIDs(os.Getenv("ADMIN_IDS")),
		Store: StoreConfig{
			DataFile:    dataFile,
			AuditDBPath: auditDBPath,
		},
		Gateway: GatewayConfig{
			TimeoutSeconds:     gatewayTimeout,
			PollTimeoutSeconds: pollTimeout,
		},
		Moderation: moderation,
	}
}

// parseAdminIDs parses a comma-separated list of user IDs; malformed
// entries are skipped
func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// GatewayTimeout returns the outbound call timeout as a duration
func (c *GatewayConfig) GatewayTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return &ConfigError{Field: "TG_BOT_TOKEN", Message: "required"}
	}
	if len(c.Admins) == 0 {
		return &ConfigError{Field: "ADMIN_IDS", Message: "at least one admin user ID required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
