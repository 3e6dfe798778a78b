package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// UserConfig manages per-user configuration and data directories
type UserConfig struct {
	BaseDir          string // $HOME/.parley
	ConversationsDir string // $HOME/.parley/conversations
	PromptsDir       string // $HOME/.parley/prompts
	LogsDir          string // $HOME/.parley/logs
	HistoryFile      string // $HOME/.parley/history.txt (line editor input history)
}

// DefaultUserConfig creates the default user configuration
func DefaultUserConfig() (*UserConfig, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	baseDir := filepath.Join(homeDir, ".parley")

	config := &UserConfig{
		BaseDir:          baseDir,
		ConversationsDir: filepath.Join(baseDir, "conversations"),
		PromptsDir:       filepath.Join(baseDir, "prompts"),
		LogsDir:          filepath.Join(baseDir, "logs"),
		HistoryFile:      filepath.Join(baseDir, "history.txt"),
	}

	// Ensure directories exist
	if err := config.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create user directories: %w", err)
	}

	return config, nil
}

// EnsureDirectories creates the user configuration directories if they don't exist
func (c *UserConfig) EnsureDirectories() error {
	dirs := []string{
		c.BaseDir,
		c.ConversationsDir,
		c.PromptsDir,
		c.LogsDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ConversationFile returns the storage path for a named conversation.
// Names are reduced to a filesystem-safe form, so distinct names may collide.
func (c *UserConfig) ConversationFile(name string) string {
	safe := sanitizeFileName(name)
	if safe == "" {
		safe = "default"
	}
	if !strings.HasSuffix(safe, ".json") {
		safe += ".json"
	}
	return filepath.Join(c.ConversationsDir, safe)
}

// ListConversations returns all saved conversations with their info
func (c *UserConfig) ListConversations() ([]ConversationInfo, error) {
	entries, err := os.ReadDir(c.ConversationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read conversations directory: %w", err)
	}

	var conversations []ConversationInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		info := ConversationInfo{
			Name: strings.TrimSuffix(entry.Name(), ".json"),
			Path: filepath.Join(c.ConversationsDir, entry.Name()),
		}
		if fileInfo, err := entry.Info(); err == nil {
			info.Modified = fileInfo.ModTime()
		}

		conversations = append(conversations, info)
	}

	return conversations, nil
}

// sanitizeFileName creates a safe file name from a conversation name
func sanitizeFileName(name string) string {
	// Convert to slash notation for consistency
	normalizedPath := filepath.ToSlash(strings.TrimSpace(name))

	// Replace slashes with dashes
	dashPath := strings.ReplaceAll(normalizedPath, "/", "-")

	// Remove any problematic characters but keep dashes
	result := ""
	for _, r := range dashPath {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			result += string(r)
		case r == '-' || r == '_' || r == '.':
			result += string(r)
		default:
			result += "_"
		}
	}

	return result
}

// ConversationInfo contains information about a saved conversation
type ConversationInfo struct {
	Name     string    // Conversation name (file name without extension)
	Path     string    // Full path to the conversation file
	Modified time.Time // Last modification time
}
