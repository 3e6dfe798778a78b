package message

// DefaultMaxLength is the retention cap applied to new histories.
const DefaultMaxLength = 20

// ChatHistory is the ordered conversation owned by a single session
// controller. Only the foreground mutates it; the streaming worker never
// touches it directly, so no locking is required.
type ChatHistory struct {
	messages  []*ChatMessage
	maxLength int
}

// NewChatHistory creates an empty history with the default retention cap
func NewChatHistory() *ChatHistory {
	return NewChatHistoryWithLimit(DefaultMaxLength)
}

// NewChatHistoryWithLimit creates an empty history with the given cap
func NewChatHistoryWithLimit(maxLength int) *ChatHistory {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &ChatHistory{maxLength: maxLength}
}

// Add appends a message and trims the history to the retention cap.
func (h *ChatHistory) Add(msg *ChatMessage) {
	if msg == nil {
		return
	}
	h.messages = append(h.messages, msg)
	h.trim()
}

// Messages returns a copy of the message list in conversation order.
// The messages themselves are shared, not copied.
func (h *ChatHistory) Messages() []*ChatMessage {
	out := make([]*ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *ChatHistory) Len() int {
	return len(h.messages)
}

// Last returns the most recent message, or nil for an empty history.
func (h *ChatHistory) Last() *ChatMessage {
	if len(h.messages) == 0 {
		return nil
	}
	return h.messages[len(h.messages)-1]
}

// RemoveLast removes and returns the most recent message. Used by callers
// that need to drop a failed assistant turn.
func (h *ChatHistory) RemoveLast() *ChatMessage {
	if len(h.messages) == 0 {
		return nil
	}
	last := h.messages[len(h.messages)-1]
	h.messages = h.messages[:len(h.messages)-1]
	return last
}

// Clear removes every message.
func (h *ChatHistory) Clear() {
	h.messages = nil
}

// ReplaceAll swaps in an entirely new message list. Import uses this after
// all records validated, so the replacement is atomic.
func (h *ChatHistory) ReplaceAll(msgs []*ChatMessage) {
	h.messages = make([]*ChatMessage, len(msgs))
	copy(h.messages, msgs)
}

// MaxLength returns the retention cap.
func (h *ChatHistory) MaxLength() int {
	return h.maxLength
}

// trim keeps the most recent maxLength entries. A system message sitting at
// position 0 survives trimming: it is re-prepended unless the retained
// suffix already contains it. Trimming an already-trimmed history is a
// no-op.
func (h *ChatHistory) trim() {
	if len(h.messages) <= h.maxLength {
		return
	}

	var system *ChatMessage
	if h.messages[0].Role() == RoleSystem {
		system = h.messages[0]
	}

	tail := h.messages[len(h.messages)-h.maxLength:]
	if system == nil || containsMessage(tail, system) {
		h.messages = append([]*ChatMessage(nil), tail...)
		return
	}

	kept := make([]*ChatMessage, 0, len(tail)+1)
	kept = append(kept, system)
	kept = append(kept, tail...)
	h.messages = kept
}

func containsMessage(msgs []*ChatMessage, target *ChatMessage) bool {
	for _, m := range msgs {
		if m == target {
			return true
		}
	}
	return false
}
