package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fpt/parley-cli/internal/repository"
	"github.com/fpt/parley-cli/pkg/message"
)

// FileHistoryRepository represents file-persisted conversation repository
type FileHistoryRepository struct {
	filePath string
}

// NewFileHistoryRepository creates a new file-based conversation repository
func NewFileHistoryRepository(filePath string) *FileHistoryRepository {
	return &FileHistoryRepository{
		filePath: filePath,
	}
}

// Load implements repository.HistoryRepository
func (fr *FileHistoryRepository) Load() ([]*message.ChatMessage, error) {
	if fr.filePath == "" {
		return nil, fmt.Errorf("no file path specified")
	}

	data, err := os.ReadFile(fr.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no saved conversation at %s", fr.filePath)
		}
		return nil, fmt.Errorf("failed to read history file %s: %w", fr.filePath, err)
	}

	var state repository.HistoryState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to deserialize history from %s: %w", fr.filePath, err)
	}

	messages, err := repository.ImportHistory(state.Messages)
	if err != nil {
		return nil, fmt.Errorf("invalid history in %s: %w", fr.filePath, err)
	}

	return messages, nil
}

// Save implements repository.HistoryRepository
func (fr *FileHistoryRepository) Save(messages []*message.ChatMessage) error {
	if fr.filePath == "" {
		return fmt.Errorf("no file path specified")
	}

	state := repository.HistoryState{
		Messages: repository.ExportHistory(messages),
		Metadata: map[string]string{
			"saved_at": time.Now().Format(time.RFC3339),
		},
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(fr.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(fr.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file %s: %w", fr.filePath, err)
	}

	return nil
}

// Clear implements repository.HistoryRepository
func (fr *FileHistoryRepository) Clear() error {
	if fr.filePath == "" {
		return fmt.Errorf("no file path specified")
	}

	if err := os.Remove(fr.filePath); err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, nothing to clear
			return nil
		}
		return fmt.Errorf("failed to delete history file %s: %w", fr.filePath, err)
	}

	return nil
}
