package gateway

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GatewayConfig is the top-level configuration for parley-gateway.
type GatewayConfig struct {
	SettingsPath string          `json:"settings_path"` // parley settings file; empty uses the default search
	SessionsDir  string          `json:"sessions_dir"`  // Directory for per-session history files (default: ~/.parley/gateway-sessions/)
	Discord      DiscordConfig   `json:"discord"`
	Heartbeat    HeartbeatConfig `json:"heartbeat"`
}

// DiscordConfig holds Discord bot configuration. The bot token itself never
// lives in the config file; token_env names the environment variable to read.
type DiscordConfig struct {
	TokenEnv          string   `json:"token_env"`
	AllowedGuildIDs   []string `json:"allowed_guild_ids"`
	AllowedChannelIDs []string `json:"allowed_channel_ids"`
	AllowedUserIDs    []string `json:"allowed_user_ids"`
	MentionOnly       bool     `json:"mention_only"` // In guilds, only respond when @mentioned
}

// Token reads the bot token from the environment.
func (c DiscordConfig) Token() string {
	env := c.TokenEnv
	if env == "" {
		env = "DISCORD_BOT_TOKEN"
	}
	return os.Getenv(env)
}

// LoadGatewayConfig loads configuration from a JSON file.
func LoadGatewayConfig(path string) (*GatewayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway config %s: %w", path, err)
	}

	cfg := DefaultGatewayConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse gateway config: %w", err)
	}

	// Expand $HOME in sessions_dir
	if cfg.SessionsDir == "" {
		home, _ := os.UserHomeDir()
		cfg.SessionsDir = filepath.Join(home, ".parley", "gateway-sessions")
	}

	return cfg, nil
}

// DefaultGatewayConfig returns sensible defaults.
func DefaultGatewayConfig() *GatewayConfig {
	home, _ := os.UserHomeDir()
	return &GatewayConfig{
		SessionsDir: filepath.Join(home, ".parley", "gateway-sessions"),
		Discord: DiscordConfig{
			TokenEnv:    "DISCORD_BOT_TOKEN",
			MentionOnly: true,
		},
		Heartbeat: HeartbeatConfig{
			Enabled:  false,
			Interval: "24h",
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".parley", "gateway.json")
}
