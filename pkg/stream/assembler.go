// Package stream accumulates incremental response fragments into a single
// chat message with cooperative cancellation.
package stream

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/message"
)

// CancelledMarker is the literal annotation appended to the content of a
// message whose stream was stopped by the user.
const CancelledMarker = "[Cancelled]"

var (
	// ErrNotStreaming signals an operation that requires an active stream.
	// Hitting it indicates an ordering bug in the caller.
	ErrNotStreaming = errors.New("no active stream")

	// ErrStreamActive signals a Begin while a stream is still live.
	ErrStreamActive = errors.New("stream already active")
)

// State is the assembler lifecycle position.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a streaming cycle.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Assembler builds one assistant message at a time from stream fragments.
// The streaming worker appends; the renderer observes content through
// Content(). At most one message is live per cycle.
type Assembler struct {
	mu            sync.Mutex
	state         State
	target        *message.ChatMessage
	stopRequested bool
	err           error
}

// NewAssembler creates an idle assembler.
func NewAssembler() *Assembler {
	return &Assembler{state: StateIdle}
}

// Begin starts a fresh streaming cycle with a new empty assistant message
// and a cleared stop flag. Calling Begin while a stream is live is a caller
// bug and fails with ErrStreamActive.
func (a *Assembler) Begin() (*message.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateStreaming {
		return nil, errors.Wrap(ErrStreamActive, "begin")
	}

	a.target = message.NewAssistantMessage("")
	a.state = StateStreaming
	a.stopRequested = false
	a.err = nil
	return a.target, nil
}

// Append concatenates a fragment onto the live message. Once a stop has
// been requested further fragments are silently dropped; the transport is
// expected to tear the stream down at the next boundary. Outside of a
// streaming cycle Append fails with ErrNotStreaming.
func (a *Assembler) Append(fragment string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateStreaming {
		return errors.Wrap(ErrNotStreaming, "append")
	}
	if a.stopRequested {
		return nil
	}

	a.target.AppendContent(fragment)
	return nil
}

// RequestStop marks the live stream for cooperative cancellation. The
// worker observes the flag at fragment boundaries and terminates its loop;
// the following End freezes the message with the cancellation marker.
// Outside of a streaming cycle this is a no-op.
func (a *Assembler) RequestStop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateStreaming {
		a.stopRequested = true
	}
}

// StopRequested reports whether cancellation has been requested for the
// live stream.
func (a *Assembler) StopRequested() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopRequested
}

// End finalizes the live message. With no stop requested the content is
// frozen as-is and the state becomes Completed; after a stop the
// cancellation marker is appended and the state becomes Cancelled. Either
// way the finalized message is returned for the foreground to commit.
func (a *Assembler) End() (*message.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateStreaming {
		return nil, errors.Wrap(ErrNotStreaming, "end")
	}

	if a.stopRequested {
		a.target.AppendContent(CancelledMarker)
		a.state = StateCancelled
	} else {
		a.state = StateCompleted
	}
	return a.target, nil
}

// Fail records a transport failure and discards the partial message. What
// the user sees instead is the caller's policy; the assembler only reports
// the condition through Err.
func (a *Assembler) Fail(err error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateStreaming {
		return errors.Wrap(ErrNotStreaming, "fail")
	}

	a.state = StateFailed
	a.err = err
	a.target = nil
	return nil
}

// State returns the current lifecycle state.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Message returns the live or finalized message of the current cycle, nil
// when idle or failed. Renderers should prefer Content for observation
// while a stream is live; the returned message is safe to use once the
// cycle reached a terminal state.
func (a *Assembler) Message() *message.ChatMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.target
}

// Content returns a snapshot of the accumulated content. During a live
// stream successive snapshots only ever grow.
func (a *Assembler) Content() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.target == nil {
		return ""
	}
	return a.target.Content()
}

// Err returns the failure recorded by Fail, nil otherwise.
func (a *Assembler) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
