package message

import (
	"strings"
	"testing"
	"time"
)

func TestRoleString(t *testing.T) {
	tests := []struct {
		role MessageRole
		want string
	}{
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleSystem, "system"},
		{MessageRole(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.role.String(); got != tt.want {
			t.Errorf("Expected role string %q, got %q", tt.want, got)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range []MessageRole{RoleUser, RoleAssistant, RoleSystem} {
		parsed, err := ParseRole(role.String())
		if err != nil {
			t.Fatalf("ParseRole(%q) returned error: %v", role.String(), err)
		}
		if parsed != role {
			t.Errorf("Expected ParseRole(%q) = %v, got %v", role.String(), role, parsed)
		}
	}

	if _, err := ParseRole("tool"); err == nil {
		t.Error("Expected error for unknown role, got nil")
	}
}

func TestNewChatMessage(t *testing.T) {
	before := time.Now()
	msg := NewUserMessage("Hello, world!")
	after := time.Now()

	if msg.Role() != RoleUser {
		t.Errorf("Expected role user, got %v", msg.Role())
	}
	if msg.Content() != "Hello, world!" {
		t.Errorf("Expected content %q, got %q", "Hello, world!", msg.Content())
	}
	if msg.Format() != FormatText {
		t.Errorf("Expected default format text, got %v", msg.Format())
	}
	if msg.Timestamp().Before(before) || msg.Timestamp().After(after) {
		t.Errorf("Expected timestamp between %v and %v, got %v", before, after, msg.Timestamp())
	}
	if msg.ID() == "" {
		t.Error("Expected non-empty message ID")
	}
}

func TestContentMutation(t *testing.T) {
	msg := NewAssistantMessage("")

	msg.AppendContent("Hel")
	msg.AppendContent("lo")
	if msg.Content() != "Hello" {
		t.Errorf("Expected appended content %q, got %q", "Hello", msg.Content())
	}

	msg.SetContent("replaced")
	if msg.Content() != "replaced" {
		t.Errorf("Expected replaced content %q, got %q", "replaced", msg.Content())
	}
}

func TestRestoreKeepsTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	msg := Restore(RoleAssistant, "hello again", ts)

	if !msg.Timestamp().Equal(ts) {
		t.Errorf("Expected restored timestamp %v, got %v", ts, msg.Timestamp())
	}
	if msg.Role() != RoleAssistant {
		t.Errorf("Expected role assistant, got %v", msg.Role())
	}
	if msg.Content() != "hello again" {
		t.Errorf("Expected content %q, got %q", "hello again", msg.Content())
	}
}

func TestSetFormat(t *testing.T) {
	msg := NewAssistantMessage("<b>hi</b>")
	msg.SetFormat(FormatHTML)
	if msg.Format() != FormatHTML {
		t.Errorf("Expected format html, got %v", msg.Format())
	}
}

func TestMessageString(t *testing.T) {
	msg := NewUserMessage("Hello")
	str := msg.String()
	if !strings.Contains(str, "Message(ID:") {
		t.Errorf("String should contain Message(ID:, got: %s", str)
	}
	if !strings.Contains(str, "Role: user") {
		t.Errorf("String should contain the role, got: %s", str)
	}
}

func TestTruncatedString(t *testing.T) {
	long := strings.Repeat("a", 300)

	user := NewUserMessage(long)
	if got := user.TruncatedString(); len(got) > len("You: ")+153 {
		t.Errorf("Expected truncated user preview, got %d chars", len(got))
	}

	assistant := NewAssistantMessage(long)
	if got := assistant.TruncatedString(); len(got) > len("Assistant: ")+203 {
		t.Errorf("Expected truncated assistant preview, got %d chars", len(got))
	}

	system := NewSystemMessage("Be terse")
	if got := system.TruncatedString(); got != "" {
		t.Errorf("Expected empty preview for system message, got %q", got)
	}
}
