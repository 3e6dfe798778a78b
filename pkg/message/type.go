package message

import "github.com/pkg/errors"

// MessageRole identifies which side of the conversation a message belongs to.
// A message's role never changes after creation.
type MessageRole int

const (
	RoleUser MessageRole = iota
	RoleAssistant
	RoleSystem
)

// String returns the wire representation of the role
func (r MessageRole) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	case RoleSystem:
		return "system"
	default:
		return "unknown"
	}
}

// ParseRole maps a wire role string back to a MessageRole
func ParseRole(s string) (MessageRole, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	case "system":
		return RoleSystem, nil
	default:
		return 0, errors.Errorf("unknown message role %q", s)
	}
}

// DisplayFormat tells renderers whether content is plain text or
// pre-rendered markup. The core never inspects it.
type DisplayFormat int

const (
	FormatText DisplayFormat = iota
	FormatHTML
)

// String returns the string representation of DisplayFormat
func (f DisplayFormat) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}
