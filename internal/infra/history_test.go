package infra

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpt/parley-cli/pkg/message"
)

func TestFileHistoryRepositoryRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "conversation.json")

	repo := NewFileHistoryRepository(filePath)

	originalMessages := []*message.ChatMessage{
		message.NewSystemMessage("Be terse."),
		message.NewUserMessage("hi"),
		message.NewAssistantMessage("hello"),
	}

	if err := repo.Save(originalMessages); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Fatal("File was not created")
	}

	loadedMessages, err := repo.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loadedMessages) != len(originalMessages) {
		t.Fatalf("Expected %d messages, got %d", len(originalMessages), len(loadedMessages))
	}

	for i, loaded := range loadedMessages {
		original := originalMessages[i]
		if loaded.Role() != original.Role() {
			t.Fatalf("Message %d role mismatch: expected %v, got %v", i, original.Role(), loaded.Role())
		}
		if loaded.Content() != original.Content() {
			t.Fatalf("Message %d content mismatch: expected %q, got %q", i, original.Content(), loaded.Content())
		}
		if !loaded.Timestamp().Equal(original.Timestamp()) {
			t.Fatalf("Message %d timestamp mismatch: expected %v, got %v", i, original.Timestamp(), loaded.Timestamp())
		}
	}
}

func TestFileHistoryRepositoryLoadFromNonExistentFile(t *testing.T) {
	repo := NewFileHistoryRepository("/non/existent/conversation.json")

	_, err := repo.Load()
	if err == nil {
		t.Fatal("Load from non-existent file should error")
	}
	if !strings.Contains(err.Error(), "no saved conversation") {
		t.Errorf("Expected 'no saved conversation' error, got: %v", err)
	}
}

func TestFileHistoryRepositoryLoadMalformedFile(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "broken.json")

	if err := os.WriteFile(filePath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	repo := NewFileHistoryRepository(filePath)
	if _, err := repo.Load(); err == nil {
		t.Fatal("Load of malformed file should error")
	}
}

func TestFileHistoryRepositoryLoadInvalidRecord(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "invalid.json")

	content := `{"messages": [{"role": "wizard", "content": "hi", "timestamp": "2025-06-01T18:00:00Z"}]}`
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	repo := NewFileHistoryRepository(filePath)
	messages, err := repo.Load()
	if err == nil {
		t.Fatal("Load of file with invalid record should error")
	}
	if messages != nil {
		t.Errorf("Expected no messages on failure, got %d", len(messages))
	}
}

func TestFileHistoryRepositoryClear(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "conversation.json")

	repo := NewFileHistoryRepository(filePath)
	if err := repo.Save([]*message.ChatMessage{message.NewUserMessage("hello")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Fatal("File should be removed after Clear")
	}

	// Clearing again is a no-op
	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear of missing file should not error: %v", err)
	}
}

func TestFileHistoryRepositorySaveCreatesDirectory(t *testing.T) {
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "nested", "dir", "conversation.json")

	repo := NewFileHistoryRepository(filePath)
	if err := repo.Save([]*message.ChatMessage{message.NewUserMessage("hello")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Fatal("Save should create intermediate directories")
	}
}

func TestFileHistoryRepositoryEmptyPath(t *testing.T) {
	repo := NewFileHistoryRepository("")

	if _, err := repo.Load(); err == nil {
		t.Error("Load with empty path should error")
	}
	if err := repo.Save(nil); err == nil {
		t.Error("Save with empty path should error")
	}
	if err := repo.Clear(); err == nil {
		t.Error("Clear with empty path should error")
	}
}
