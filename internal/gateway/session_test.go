package gateway

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/pkg/llm"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
)

type stubLLMClient struct {
	model string
}

func (c *stubLLMClient) Chat(ctx context.Context, messages []*message.ChatMessage) (string, error) {
	return "", nil
}

func (c *stubLLMClient) ChatStream(ctx context.Context, messages []*message.ChatMessage, handler llm.StreamHandler) error {
	return nil
}

func (c *stubLLMClient) Model() string         { return c.model }
func (c *stubLLMClient) SetModel(model string) { c.model = model }
func (c *stubLLMClient) Provider() string      { return "stub" }

func newTestManager(t *testing.T, store *SessionStore) (*SessionManager, *int) {
	t.Helper()

	created := 0
	factory := func(cfg config.LLMSettings) (llm.Client, error) {
		created++
		return &stubLLMClient{model: cfg.Model}, nil
	}
	logger := pkgLogger.NewLoggerWithConsoleWriter(pkgLogger.LogLevelError, io.Discard)
	return NewSessionManager(config.GetDefaultSettings(), store, factory, logger), &created
}

func TestGetOrCreateSessionReusesExisting(t *testing.T) {
	sm, created := newTestManager(t, nil)
	key := SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "user1"}

	first, err := sm.GetOrCreateSession(context.Background(), key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	second, err := sm.GetOrCreateSession(context.Background(), key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if first != second {
		t.Error("Expected the same session for the same key")
	}
	if *created != 1 {
		t.Errorf("Expected 1 client to be built, got %d", *created)
	}
}

func TestGetOrCreateSessionSeparatesPeers(t *testing.T) {
	sm, created := newTestManager(t, nil)

	alice, err := sm.GetOrCreateSession(context.Background(), SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "alice"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	bob, err := sm.GetOrCreateSession(context.Background(), SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "bob"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if alice == bob {
		t.Error("Expected distinct sessions for distinct peers")
	}
	if *created != 2 {
		t.Errorf("Expected 2 clients to be built, got %d", *created)
	}

	alice.Chat.History().Add(message.NewUserMessage("only for this session"))
	if bob.Chat.History().Len() != 0 {
		t.Errorf("Expected the other session's history to stay empty, got %d messages", bob.Chat.History().Len())
	}
}

func TestSessionModelSwitchStaysLocal(t *testing.T) {
	sm, _ := newTestManager(t, nil)

	alice, _ := sm.GetOrCreateSession(context.Background(), SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "alice"})
	bob, _ := sm.GetOrCreateSession(context.Background(), SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "bob"})

	alice.Chat.Client().SetModel("some/other-model")
	alice.Chat.Settings().LLM.Model = "some/other-model"

	if got := bob.Chat.Client().Model(); got == "some/other-model" {
		t.Error("Expected the model switch to stay local to one session")
	}
	if got := bob.Chat.Settings().LLM.Model; got == "some/other-model" {
		t.Error("Expected the settings copy to stay local to one session")
	}
}

func TestClearSessionWipesHistoryAndFile(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	sm, _ := newTestManager(t, store)
	key := SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "user1"}

	session, err := sm.GetOrCreateSession(context.Background(), key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	session.Chat.History().Add(message.NewUserMessage("hello"))
	session.Chat.History().Add(message.NewAssistantMessage("hi there"))
	if err := session.Chat.SaveConversation(store.RepositoryFor(key)); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	if err := sm.ClearSession(key); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if session.Chat.History().Len() != 0 {
		t.Errorf("Expected empty history after clear, got %d messages", session.Chat.History().Len())
	}
	if _, err := os.Stat(store.SessionPath(key)); !os.IsNotExist(err) {
		t.Error("Expected the persisted session file to be removed")
	}
}

func TestSessionResumeFromStore(t *testing.T) {
	store := NewSessionStore(t.TempDir())
	key := SessionKey{ChannelType: "discord", ChannelID: "chan1", PeerID: "user1"}

	sm1, _ := newTestManager(t, store)
	first, err := sm1.GetOrCreateSession(context.Background(), key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	first.Chat.History().Add(message.NewUserMessage("what did we talk about"))
	first.Chat.History().Add(message.NewAssistantMessage("travel plans for October"))
	if err := first.Chat.SaveConversation(store.RepositoryFor(key)); err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	// A fresh manager simulates a gateway restart
	sm2, _ := newTestManager(t, store)
	resumed, err := sm2.GetOrCreateSession(context.Background(), key)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if resumed.Chat.History().Len() != 2 {
		t.Fatalf("Expected 2 resumed messages, got %d", resumed.Chat.History().Len())
	}
	if got := resumed.Chat.History().Last().Content(); got != "travel plans for October" {
		t.Errorf("Expected resumed assistant message, got %q", got)
	}
}

func TestSessionPathSanitizesKey(t *testing.T) {
	store := NewSessionStore("sessions")
	key := SessionKey{ChannelType: "discord", ChannelID: "chan/123", PeerID: "user@42"}

	base := filepath.Base(store.SessionPath(key))
	if base != "discord_chan_123_user_42.json" {
		t.Errorf("Expected sanitized file name, got %q", base)
	}
}
