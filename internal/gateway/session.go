package gateway

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fpt/parley-cli/internal/app"
	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/pkg/llm"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
)

// SessionKey uniquely identifies a conversation context.
type SessionKey struct {
	ChannelType string
	ChannelID   string
	PeerID      string
}

// String returns the canonical key form used for persistence file names.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.ChannelType, k.ChannelID, k.PeerID)
}

// Session holds per-peer state. Turns are serialized through mu so two
// messages from the same peer cannot interleave on one history.
type Session struct {
	Key          SessionKey
	Chat         *app.ChatSession
	LastActivity time.Time
	out          *bytes.Buffer // captures plugin-rendered output during a turn
	mu           sync.Mutex
}

// ClientFactory builds an LLM client for a new session.
type ClientFactory func(config.LLMSettings) (llm.Client, error)

// SessionManager manages per-peer chat sessions. Each session runs the full
// chat core in-process with its own history, budgeter, client and plugins.
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[SessionKey]*Session
	settings  *config.Settings
	store     *SessionStore
	newClient ClientFactory
	logger    *pkgLogger.Logger
}

// NewSessionManager creates a session manager.
func NewSessionManager(settings *config.Settings, store *SessionStore, newClient ClientFactory, logger *pkgLogger.Logger) *SessionManager {
	return &SessionManager{
		sessions:  make(map[SessionKey]*Session),
		settings:  settings,
		store:     store,
		newClient: newClient,
		logger:    logger.WithComponent("sessions"),
	}
}

// GetOrCreateSession returns an existing session or builds a new chat core
// for the key, resuming persisted history when the store has it.
func (sm *SessionManager) GetOrCreateSession(ctx context.Context, key SessionKey) (*Session, error) {
	sm.mu.RLock()
	if s, ok := sm.sessions[key]; ok {
		sm.mu.RUnlock()
		s.mu.Lock()
		s.LastActivity = time.Now()
		s.mu.Unlock()
		return s, nil
	}
	sm.mu.RUnlock()

	// Each session gets its own settings copy so a !model switch stays local.
	settings := *sm.settings
	llmClient, err := sm.newClient(settings.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	out := &bytes.Buffer{}
	plugins := app.BuildPluginRegistry(ctx, &settings, out, sm.logger)
	chat := app.NewChatSession(llmClient, plugins, &settings, sm.logger, out)

	if sm.store != nil {
		if n, err := chat.LoadConversation(sm.store.RepositoryFor(key)); err == nil && n > 0 {
			sm.logger.Info("Resumed session history", "key", key.String(), "messages", n)
		}
	}

	session := &Session{
		Key:          key,
		Chat:         chat,
		LastActivity: time.Now(),
		out:          out,
	}

	sm.mu.Lock()
	if existing, ok := sm.sessions[key]; ok {
		sm.mu.Unlock()
		chat.Plugins().Close()
		return existing, nil
	}
	sm.sessions[key] = session
	sm.mu.Unlock()

	return session, nil
}

// ClearSession wipes the session's history and its persisted file. The
// session itself survives so a switched model carries over.
func (sm *SessionManager) ClearSession(key SessionKey) error {
	sm.mu.RLock()
	session, ok := sm.sessions[key]
	sm.mu.RUnlock()

	if ok {
		session.mu.Lock()
		session.Chat.ClearHistory()
		session.mu.Unlock()
	}
	if sm.store != nil {
		return sm.store.RepositoryFor(key).Clear()
	}
	return nil
}

// Close shuts down plugin registries across all sessions.
func (sm *SessionManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, s := range sm.sessions {
		s.Chat.Plugins().Close()
	}
}
