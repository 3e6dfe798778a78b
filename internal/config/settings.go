package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fpt/parley-cli/internal/infra"
	"github.com/fpt/parley-cli/internal/repository"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
)

// Defaults applied to fields the settings file leaves out
const (
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1024
	DefaultContextLimit = 8192
)

// Settings represents the main application settings
type Settings struct {
	LLM     LLMSettings    `json:"llm"`
	Chat    ChatSettings   `json:"chat"`
	Plugins PluginSettings `json:"plugins,omitempty"`
	Log     LogSettings    `json:"log,omitempty"`

	// Repository for persistence (nil for in-memory only)
	settingsRepository repository.SettingsRepository `json:"-"`
}

// LLMSettings contains LLM client configuration
type LLMSettings struct {
	Provider     string  `json:"provider"`                // "openrouter", "anthropic", "gemini", or "ollama"
	Model        string  `json:"model"`                   // model identifier
	BaseURL      string  `json:"base_url,omitempty"`      // for openrouter or ollama
	APIKeyEnv    string  `json:"api_key_env,omitempty"`   // environment variable holding the API key
	Temperature  float64 `json:"temperature,omitempty"`   // sampling temperature (0 = use default)
	MaxTokens    int     `json:"max_tokens,omitempty"`    // tokens reserved for the model response (0 = use default)
	ContextLimit int     `json:"context_limit,omitempty"` // context window when the model catalog has no entry (0 = use default)
}

// ChatSettings contains conversation behavior configuration
type ChatSettings struct {
	SystemPrompt   string `json:"system_prompt,omitempty"`
	ResponseStyle  string `json:"response_style,omitempty"` // "concise", "balanced", or "detailed"
	IncludeHistory *bool  `json:"include_history,omitempty"`
	MaxHistory     int    `json:"max_history,omitempty"`
	PresetDir      string `json:"preset_dir,omitempty"` // directory holding prompt preset files
}

// PluginSettings contains plugin configuration
type PluginSettings struct {
	Enabled     []string          `json:"enabled,omitempty"`
	AutosaveDir string            `json:"autosave_dir,omitempty"`
	MCPServers  []MCPServerConfig `json:"mcp_servers,omitempty"`
}

// LogSettings contains logging configuration
type LogSettings struct {
	Level string `json:"level,omitempty"` // "debug", "info", "warn", or "error"
}

// MCPServerType identifies the transport used to reach an MCP server
type MCPServerType string

const (
	MCPServerTypeStdio MCPServerType = "stdio"
	MCPServerTypeSSE   MCPServerType = "sse"
)

// MCPServerConfig describes one MCP server exposed to the plugin registry
type MCPServerConfig struct {
	Name    string        `json:"name"`
	Type    MCPServerType `json:"type"`
	Command string        `json:"command,omitempty"` // for stdio servers
	Args    []string      `json:"args,omitempty"`    // for stdio servers
	URL     string        `json:"url,omitempty"`     // for sse servers
}

// NewSettings creates new settings with in-memory repository
func NewSettings() *Settings {
	return NewSettingsWithRepository(infra.NewInMemorySettingsRepository())
}

// NewSettingsWithRepository creates new settings with injected repository
func NewSettingsWithRepository(settingsRepository repository.SettingsRepository) *Settings {
	settings := GetDefaultSettings()
	settings.settingsRepository = settingsRepository
	return settings
}

// NewSettingsWithPath creates new settings with file-based repository
func NewSettingsWithPath(configPath string) *Settings {
	repo := infra.NewFileSettingsRepository(configPath)
	return NewSettingsWithRepository(repo)
}

// Load loads settings from the repository
func (s *Settings) Load() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := s.settingsRepository.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	// Apply defaults for missing fields
	applyDefaults(s)
	return nil
}

// Save saves settings to the repository
func (s *Settings) Save() error {
	if s.settingsRepository == nil {
		return fmt.Errorf("no settings repository configured")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return s.settingsRepository.Save(data)
}

// LoadSettings loads application settings from a JSON file
func LoadSettings(configPath string) (*Settings, error) {
	settings := NewSettingsWithPath(configPath)

	// If config path is empty, search for existing settings file
	if configPath == "" {
		foundPath, _ := settings.settingsRepository.FindSettingsFile()
		if foundPath == "" {
			// No settings file found, create default one and return defaults
			return createDefaultSettingsFile()
		}
	}

	err := settings.Load()
	if err != nil {
		// If file doesn't exist and a specific path was provided, create it
		if configPath != "" {
			createdSettings, _ := createSettingsFileAtPath(configPath)
			return createdSettings, nil
		}
		// Otherwise return defaults
		return GetDefaultSettings(), nil
	}

	return settings, nil
}

// SaveSettings saves application settings to a JSON file
func SaveSettings(configPath string, settings *Settings) error {
	if settings.settingsRepository != nil {
		return settings.Save()
	}

	if configPath == "" {
		configPath = findSettingsFile()
		if configPath == "" {
			configPath = filepath.Join(".parley", "settings.json")
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// GetDefaultSettings returns default application settings
func GetDefaultSettings() *Settings {
	includeHistory := true
	return &Settings{
		LLM: LLMSettings{
			Provider:     "openrouter",
			Model:        "mistralai/mistral-7b-instruct",
			BaseURL:      "https://openrouter.ai/api/v1",
			APIKeyEnv:    "OPENROUTER_API_KEY",
			Temperature:  DefaultTemperature,
			MaxTokens:    DefaultMaxTokens,
			ContextLimit: DefaultContextLimit,
		},
		Chat: ChatSettings{
			SystemPrompt:   "You are a helpful assistant.",
			ResponseStyle:  "balanced",
			IncludeHistory: &includeHistory,
			MaxHistory:     message.DefaultMaxLength,
		},
		Plugins: PluginSettings{
			AutosaveDir: "saved_code",
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// GetDefaultLLMSettingsForProvider returns default LLM settings for a specific provider
func GetDefaultLLMSettingsForProvider(provider string) LLMSettings {
	switch provider {
	case "openrouter":
		return LLMSettings{
			Provider:     "openrouter",
			Model:        "mistralai/mistral-7b-instruct",
			BaseURL:      "https://openrouter.ai/api/v1",
			APIKeyEnv:    "OPENROUTER_API_KEY",
			Temperature:  DefaultTemperature,
			MaxTokens:    DefaultMaxTokens,
			ContextLimit: DefaultContextLimit,
		}
	case "anthropic", "claude":
		return LLMSettings{
			Provider:     "anthropic",
			Model:        "claude-sonnet-4-5-20250929",
			APIKeyEnv:    "ANTHROPIC_API_KEY",
			Temperature:  DefaultTemperature,
			MaxTokens:    DefaultMaxTokens,
			ContextLimit: 200000,
		}
	case "gemini":
		return LLMSettings{
			Provider:     "gemini",
			Model:        "gemini-2.5-flash-lite",
			APIKeyEnv:    "GEMINI_API_KEY",
			Temperature:  DefaultTemperature,
			MaxTokens:    DefaultMaxTokens,
			ContextLimit: 1048576,
		}
	case "ollama":
		return LLMSettings{
			Provider:     "ollama",
			Model:        "gpt-oss:latest",
			BaseURL:      "http://localhost:11434",
			Temperature:  DefaultTemperature,
			MaxTokens:    DefaultMaxTokens,
			ContextLimit: DefaultContextLimit,
		}
	default:
		// Default to openrouter settings for unknown providers
		return GetDefaultLLMSettingsForProvider("openrouter")
	}
}

// APIKeyEnvName returns the environment variable consulted for the API key
func (l LLMSettings) APIKeyEnvName() string {
	if l.APIKeyEnv != "" {
		return l.APIKeyEnv
	}
	switch l.Provider {
	case "openrouter":
		return "OPENROUTER_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	}
	return ""
}

// APIKey reads the API key from the environment. Keys never live in settings files.
func (l LLMSettings) APIKey() string {
	name := l.APIKeyEnvName()
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// HistoryIncluded reports whether prior turns are sent with each request
func (c ChatSettings) HistoryIncluded() bool {
	return c.IncludeHistory == nil || *c.IncludeHistory
}

// applyDefaults fills in missing fields with default values
func applyDefaults(settings *Settings) {
	providerDefaults := GetDefaultLLMSettingsForProvider(settings.LLM.Provider)

	if settings.LLM.Provider == "" {
		settings.LLM.Provider = providerDefaults.Provider
	}
	if settings.LLM.Model == "" {
		settings.LLM.Model = providerDefaults.Model
	}
	if settings.LLM.BaseURL == "" && (settings.LLM.Provider == "openrouter" || settings.LLM.Provider == "ollama") {
		settings.LLM.BaseURL = providerDefaults.BaseURL
	}
	if settings.LLM.APIKeyEnv == "" {
		settings.LLM.APIKeyEnv = providerDefaults.APIKeyEnv
	}
	if settings.LLM.Temperature == 0 {
		settings.LLM.Temperature = DefaultTemperature
	}
	if settings.LLM.MaxTokens == 0 {
		settings.LLM.MaxTokens = DefaultMaxTokens
	}
	if settings.LLM.ContextLimit == 0 {
		settings.LLM.ContextLimit = providerDefaults.ContextLimit
	}

	if settings.Chat.ResponseStyle == "" {
		settings.Chat.ResponseStyle = "balanced"
	}
	if settings.Chat.IncludeHistory == nil {
		includeHistory := true
		settings.Chat.IncludeHistory = &includeHistory
	}
	if settings.Chat.MaxHistory == 0 {
		settings.Chat.MaxHistory = message.DefaultMaxLength
	}

	if settings.Plugins.AutosaveDir == "" {
		settings.Plugins.AutosaveDir = "saved_code"
	}

	if settings.Log.Level == "" {
		settings.Log.Level = "info"
	}
}

// ValidateSettings validates the settings configuration
func ValidateSettings(settings *Settings) error {
	switch settings.LLM.Provider {
	case "openrouter", "anthropic", "gemini", "ollama":
	default:
		return fmt.Errorf("unsupported LLM provider: %s (must be 'openrouter', 'anthropic', 'gemini', or 'ollama')", settings.LLM.Provider)
	}

	if settings.LLM.Model == "" {
		return fmt.Errorf("LLM model is required")
	}

	if settings.LLM.Provider != "ollama" && settings.LLM.APIKey() == "" {
		return fmt.Errorf("API key is required for %s (set %s environment variable)", settings.LLM.Provider, settings.LLM.APIKeyEnvName())
	}

	if settings.LLM.Temperature < 0 || settings.LLM.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", settings.LLM.Temperature)
	}

	if settings.LLM.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}

	if settings.LLM.ContextLimit <= 0 {
		return fmt.Errorf("context_limit must be positive")
	}

	switch settings.Chat.ResponseStyle {
	case "concise", "balanced", "detailed":
	default:
		return fmt.Errorf("unsupported response style: %s (must be 'concise', 'balanced', or 'detailed')", settings.Chat.ResponseStyle)
	}

	if settings.Chat.MaxHistory <= 0 {
		return fmt.Errorf("max_history must be positive")
	}

	for _, serverConfig := range settings.Plugins.MCPServers {
		if err := ValidateMCPServerConfig(serverConfig); err != nil {
			return fmt.Errorf("invalid MCP server configuration for %s: %w", serverConfig.Name, err)
		}
	}

	return nil
}

// findSettingsFile searches for settings.json in order of preference:
// 1. .parley/settings.json in current directory
// 2. $HOME/.parley/settings.json
// Returns empty string if none found
func findSettingsFile() string {
	currentDirPath := filepath.Join(".parley", "settings.json")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, ".parley", "settings.json")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	return ""
}

// ValidateMCPServerConfig validates an MCP server configuration
func ValidateMCPServerConfig(config MCPServerConfig) error {
	if config.Name == "" {
		return fmt.Errorf("server name is required")
	}

	switch config.Type {
	case MCPServerTypeStdio:
		if config.Command == "" {
			return fmt.Errorf("command is required for stdio servers")
		}
	case MCPServerTypeSSE:
		if config.URL == "" {
			return fmt.Errorf("URL is required for HTTP/SSE servers")
		}
	default:
		return fmt.Errorf("unsupported server type: %s", config.Type)
	}

	return nil
}

// createDefaultSettingsFile creates a default settings.json file in ~/.parley/
func createDefaultSettingsFile() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return GetDefaultSettings(), nil // Fall back to defaults without file creation
	}

	settingsPath := filepath.Join(homeDir, ".parley", "settings.json")
	return createSettingsFileAtPath(settingsPath)
}

// createSettingsFileAtPath creates a default settings file at the specified path
func createSettingsFileAtPath(settingsPath string) (*Settings, error) {
	settings := NewSettingsWithPath(settingsPath)

	if err := settings.Save(); err != nil {
		// Return defaults without repository if saving fails
		return GetDefaultSettings(), nil
	}

	pkgLogger.NewComponentLogger("settings").InfoWithIntention(pkgLogger.IntentionConfig, "Created default settings file", "path", settingsPath)
	pkgLogger.NewComponentLogger("settings").InfoWithIntention(pkgLogger.IntentionStatus, "You can edit this file to customize your configuration")

	return settings, nil
}
