package plugin

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/message"
)

// stubPlugin records hook calls and replays configured results.
type stubPlugin struct {
	name      string
	handled   bool
	hookErr   error
	userCalls []string
	responses []*message.ChatMessage
	closed    bool
}

func (s *stubPlugin) Name() string        { return s.name }
func (s *stubPlugin) Description() string { return "stub" }

func (s *stubPlugin) OnUserMessage(_ context.Context, text string) (bool, error) {
	s.userCalls = append(s.userCalls, text)
	return s.handled, s.hookErr
}

func (s *stubPlugin) OnResponse(_ context.Context, msg *message.ChatMessage) error {
	s.responses = append(s.responses, msg)
	return s.hookErr
}

func (s *stubPlugin) Close() error {
	s.closed = true
	return nil
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubPlugin{name: "echo"}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := registry.Register(&stubPlugin{name: "echo"}); err == nil {
		t.Error("expected an error registering a duplicate name")
	}
	if err := registry.Register(&stubPlugin{name: ""}); err == nil {
		t.Error("expected an error registering an empty name")
	}
}

func TestGetAndAll(t *testing.T) {
	registry := NewRegistry()
	first := &stubPlugin{name: "first"}
	second := &stubPlugin{name: "second"}
	if err := registry.Register(first); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(second); err != nil {
		t.Fatal(err)
	}

	if p, ok := registry.Get("second"); !ok || p != second {
		t.Error("expected Get to return the registered plugin")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("expected Get to miss for an unknown name")
	}

	all := registry.All()
	if len(all) != 2 || all[0].Name() != "first" || all[1].Name() != "second" {
		t.Errorf("expected registration order [first second], got %v", all)
	}
}

func TestDispatchUserMessageShortCircuits(t *testing.T) {
	registry := NewRegistry()
	first := &stubPlugin{name: "first", handled: true}
	second := &stubPlugin{name: "second"}
	if err := registry.Register(first); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(second); err != nil {
		t.Fatal(err)
	}

	if !registry.DispatchUserMessage(context.Background(), "/cmd") {
		t.Error("expected the message to be handled")
	}
	if len(first.userCalls) != 1 {
		t.Errorf("expected 1 call on first plugin, got %d", len(first.userCalls))
	}
	if len(second.userCalls) != 0 {
		t.Errorf("expected the second plugin to be skipped, got %d calls", len(second.userCalls))
	}
}

func TestDispatchUserMessageUnhandled(t *testing.T) {
	registry := NewRegistry()
	first := &stubPlugin{name: "first"}
	second := &stubPlugin{name: "second"}
	if err := registry.Register(first); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(second); err != nil {
		t.Fatal(err)
	}

	if registry.DispatchUserMessage(context.Background(), "hello") {
		t.Error("expected the message to pass through unhandled")
	}
	if len(first.userCalls) != 1 || len(second.userCalls) != 1 {
		t.Error("expected every plugin to see the message")
	}
}

func TestDispatchUserMessageSkipsFailingPlugin(t *testing.T) {
	registry := NewRegistry()
	// A plugin that errors while claiming handled must not consume the
	// message.
	broken := &stubPlugin{name: "broken", handled: true, hookErr: errors.New("boom")}
	fallback := &stubPlugin{name: "fallback", handled: true}
	if err := registry.Register(broken); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(fallback); err != nil {
		t.Fatal(err)
	}

	if !registry.DispatchUserMessage(context.Background(), "/cmd") {
		t.Error("expected the fallback plugin to handle the message")
	}
	if len(fallback.userCalls) != 1 {
		t.Errorf("expected dispatch to continue past the failing plugin, got %d calls", len(fallback.userCalls))
	}
}

func TestDispatchResponseReachesAllPlugins(t *testing.T) {
	registry := NewRegistry()
	broken := &stubPlugin{name: "broken", hookErr: errors.New("boom")}
	healthy := &stubPlugin{name: "healthy"}
	if err := registry.Register(broken); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(healthy); err != nil {
		t.Fatal(err)
	}

	msg := message.NewAssistantMessage("final answer")
	registry.DispatchResponse(context.Background(), msg)

	if len(broken.responses) != 1 || len(healthy.responses) != 1 {
		t.Error("expected every plugin to receive the response despite the failure")
	}
	if healthy.responses[0] != msg {
		t.Error("expected the original message to be delivered")
	}
}

func TestCloseClosesClosers(t *testing.T) {
	registry := NewRegistry()
	closable := &stubPlugin{name: "closable"}
	if err := registry.Register(closable); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(NewAutosavePlugin(t.TempDir())); err != nil {
		t.Fatal(err)
	}

	registry.Close()
	if !closable.closed {
		t.Error("expected Close to reach plugins implementing io.Closer")
	}
}
