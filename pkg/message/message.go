package message

import (
	"fmt"
	"time"
)

// ChatMessage is one turn of a conversation in a neutral format shared by
// all provider backends and front-ends.
type ChatMessage struct {
	id        string
	role      MessageRole
	content   string
	timestamp time.Time
	format    DisplayFormat
}

// NewChatMessage creates a new chat message with current timestamp
func NewChatMessage(role MessageRole, content string) *ChatMessage {
	return &ChatMessage{
		id:        generateMessageID(),
		role:      role,
		content:   content,
		timestamp: time.Now(),
		format:    FormatText,
	}
}

func NewUserMessage(content string) *ChatMessage {
	return NewChatMessage(RoleUser, content)
}

func NewAssistantMessage(content string) *ChatMessage {
	return NewChatMessage(RoleAssistant, content)
}

func NewSystemMessage(content string) *ChatMessage {
	return NewChatMessage(RoleSystem, content)
}

// Restore rebuilds a message from persisted fields, keeping the original
// timestamp. Used by history import; not part of the normal lifecycle.
func Restore(role MessageRole, content string, timestamp time.Time) *ChatMessage {
	return &ChatMessage{
		id:        generateMessageID(),
		role:      role,
		content:   content,
		timestamp: timestamp,
		format:    FormatText,
	}
}

func (c *ChatMessage) ID() string {
	return c.id
}

func (c *ChatMessage) Role() MessageRole {
	return c.role
}

func (c *ChatMessage) Content() string {
	return c.content
}

func (c *ChatMessage) Timestamp() time.Time {
	return c.timestamp
}

func (c *ChatMessage) Format() DisplayFormat {
	return c.format
}

// SetContent replaces the content. Only the active streaming target may be
// mutated; the stream assembler enforces that protocol.
func (c *ChatMessage) SetContent(content string) {
	c.content = content
}

// AppendContent concatenates a fragment onto the content.
func (c *ChatMessage) AppendContent(fragment string) {
	c.content += fragment
}

// SetFormat marks the content as pre-rendered markup or plain text.
func (c *ChatMessage) SetFormat(format DisplayFormat) {
	c.format = format
}

func (c *ChatMessage) String() string {
	return fmt.Sprintf("Message(ID: %s, Role: %s, Content: %q, Timestamp: %s)",
		c.id, c.role, c.content, c.timestamp.Format(time.RFC3339))
}

// TruncatedString returns a truncated, user-friendly representation for
// conversation previews
func (c *ChatMessage) TruncatedString() string {
	content := c.content

	switch c.role {
	case RoleUser:
		if len(content) > 150 {
			content = content[:150] + "..."
		}
		return fmt.Sprintf("You: %s", content)

	case RoleAssistant:
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		return fmt.Sprintf("Assistant: %s", content)

	case RoleSystem:
		// Skip system messages in conversation previews
		return ""

	default:
		if len(content) > 100 {
			content = content[:100] + "..."
		}
		return fmt.Sprintf("[%s] %s", c.role, content)
	}
}

// generateMessageID generates a unique message ID
func generateMessageID() string {
	return fmt.Sprintf("msg_%d", time.Now().UnixNano())
}
