package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// overlay mirrors Settings with optional fields so that only keys present in
// the YAML file override the loaded settings.
type overlay struct {
	LLM struct {
		Provider     *string  `yaml:"provider"`
		Model        *string  `yaml:"model"`
		BaseURL      *string  `yaml:"base_url"`
		APIKeyEnv    *string  `yaml:"api_key_env"`
		Temperature  *float64 `yaml:"temperature"`
		MaxTokens    *int     `yaml:"max_tokens"`
		ContextLimit *int     `yaml:"context_limit"`
	} `yaml:"llm"`
	Chat struct {
		SystemPrompt   *string `yaml:"system_prompt"`
		ResponseStyle  *string `yaml:"response_style"`
		IncludeHistory *bool   `yaml:"include_history"`
		MaxHistory     *int    `yaml:"max_history"`
		PresetDir      *string `yaml:"preset_dir"`
	} `yaml:"chat"`
	Plugins struct {
		Enabled     []string `yaml:"enabled"`
		AutosaveDir *string  `yaml:"autosave_dir"`
	} `yaml:"plugins"`
	Log struct {
		Level *string `yaml:"level"`
	} `yaml:"log"`
}

// ApplyUserOverlay merges per-user overrides from a YAML file into settings.
// With an empty path the default locations are searched; a missing file is
// not an error.
func ApplyUserOverlay(settings *Settings, path string) error {
	if path == "" {
		path = findOverlayFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config overlay %s: %w", path, err)
	}

	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("failed to parse config overlay %s: %w", path, err)
	}

	if o.LLM.Provider != nil {
		settings.LLM.Provider = *o.LLM.Provider
	}
	if o.LLM.Model != nil {
		settings.LLM.Model = *o.LLM.Model
	}
	if o.LLM.BaseURL != nil {
		settings.LLM.BaseURL = *o.LLM.BaseURL
	}
	if o.LLM.APIKeyEnv != nil {
		settings.LLM.APIKeyEnv = *o.LLM.APIKeyEnv
	}
	if o.LLM.Temperature != nil {
		settings.LLM.Temperature = *o.LLM.Temperature
	}
	if o.LLM.MaxTokens != nil {
		settings.LLM.MaxTokens = *o.LLM.MaxTokens
	}
	if o.LLM.ContextLimit != nil {
		settings.LLM.ContextLimit = *o.LLM.ContextLimit
	}

	if o.Chat.SystemPrompt != nil {
		settings.Chat.SystemPrompt = *o.Chat.SystemPrompt
	}
	if o.Chat.ResponseStyle != nil {
		settings.Chat.ResponseStyle = *o.Chat.ResponseStyle
	}
	if o.Chat.IncludeHistory != nil {
		settings.Chat.IncludeHistory = o.Chat.IncludeHistory
	}
	if o.Chat.MaxHistory != nil {
		settings.Chat.MaxHistory = *o.Chat.MaxHistory
	}
	if o.Chat.PresetDir != nil {
		settings.Chat.PresetDir = *o.Chat.PresetDir
	}

	if len(o.Plugins.Enabled) > 0 {
		settings.Plugins.Enabled = o.Plugins.Enabled
	}
	if o.Plugins.AutosaveDir != nil {
		settings.Plugins.AutosaveDir = *o.Plugins.AutosaveDir
	}

	if o.Log.Level != nil {
		settings.Log.Level = *o.Log.Level
	}

	return nil
}

// findOverlayFile searches for config.yaml in order of preference:
// 1. .parley/config.yaml in current directory
// 2. $HOME/.parley/config.yaml
// Returns empty string if none found
func findOverlayFile() string {
	currentDirPath := filepath.Join(".parley", "config.yaml")
	if _, err := os.Stat(currentDirPath); err == nil {
		return currentDirPath
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		homeDirPath := filepath.Join(homeDir, ".parley", "config.yaml")
		if _, err := os.Stat(homeDirPath); err == nil {
			return homeDirPath
		}
	}

	return ""
}
