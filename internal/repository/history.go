package repository

import (
	"fmt"
	"time"

	"github.com/fpt/parley-cli/pkg/message"
)

// HistoryRecord represents a single chat message in serialized form
type HistoryRecord struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryState represents a complete saved conversation
type HistoryState struct {
	Messages []HistoryRecord   `json:"messages"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HistoryRepository abstracts conversation persistence
type HistoryRepository interface {
	Load() ([]*message.ChatMessage, error)
	Save(messages []*message.ChatMessage) error
	Clear() error
}

// ImportError reports the first record that failed validation during import
type ImportError struct {
	Index  int
	Reason string
	cause  error
}

func (e *ImportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("history record %d: %s: %v", e.Index, e.Reason, e.cause)
	}
	return fmt.Sprintf("history record %d: %s", e.Index, e.Reason)
}

func (e *ImportError) Unwrap() error { return e.cause }

// ExportHistory converts messages to their serialized form.
// Timestamps are rendered as RFC3339Nano so records sort and parse textually.
func ExportHistory(messages []*message.ChatMessage) []HistoryRecord {
	records := make([]HistoryRecord, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		records = append(records, HistoryRecord{
			Role:      msg.Role().String(),
			Content:   msg.Content(),
			Timestamp: msg.Timestamp().Format(time.RFC3339Nano),
		})
	}
	return records
}

// ImportHistory converts serialized records back to messages. Every record is
// validated before any message is built: a missing role, missing content, or
// a timestamp that does not parse rejects the whole import.
func ImportHistory(records []HistoryRecord) ([]*message.ChatMessage, error) {
	messages := make([]*message.ChatMessage, 0, len(records))
	for i, record := range records {
		role, err := message.ParseRole(record.Role)
		if err != nil {
			return nil, &ImportError{Index: i, Reason: "invalid role", cause: err}
		}
		if record.Content == "" {
			return nil, &ImportError{Index: i, Reason: "missing content"}
		}
		if record.Timestamp == "" {
			return nil, &ImportError{Index: i, Reason: "missing timestamp"}
		}
		timestamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			return nil, &ImportError{Index: i, Reason: fmt.Sprintf("invalid timestamp %q", record.Timestamp), cause: err}
		}
		messages = append(messages, message.Restore(role, record.Content, timestamp))
	}
	return messages, nil
}
