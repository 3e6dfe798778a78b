package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgErrors "github.com/pkg/errors"

	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/pkg/budget"
	"github.com/fpt/parley-cli/pkg/client"
	"github.com/fpt/parley-cli/pkg/llm"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
)

// Discord typing indicators expire after about ten seconds.
const typingRefreshInterval = 8 * time.Second

// Plugin-rendered output is capped before it goes back to a channel.
const maxPluginReply = 1800

// catalogTimeout caps the model list fetch behind !model.
const catalogTimeout = 30 * time.Second

// Gateway routes messages between channel adapters and in-process chat sessions.
type Gateway struct {
	config    *GatewayConfig
	settings  *config.Settings
	bus       *MessageBus
	sessions  *SessionManager
	store     *SessionStore
	heartbeat *Heartbeat
	adapters  map[string]Adapter
	logger    *pkgLogger.Logger
}

// NewGateway creates a gateway running the chat core in-process.
func NewGateway(cfg *GatewayConfig, settings *config.Settings, logger *pkgLogger.Logger) (*Gateway, error) {
	bus := NewMessageBus(64)

	var store *SessionStore
	if cfg.SessionsDir != "" {
		store = NewSessionStore(cfg.SessionsDir)
		if err := store.EnsureDirectory(); err != nil {
			logger.Warn("Failed to create sessions directory", "dir", cfg.SessionsDir, "error", err)
			store = nil
		}
	}

	sessions := NewSessionManager(settings, store, client.NewLLMClient, logger)

	gw := &Gateway{
		config:   cfg,
		settings: settings,
		bus:      bus,
		sessions: sessions,
		store:    store,
		adapters: make(map[string]Adapter),
		logger:   logger.WithComponent("gateway"),
	}

	// Initialize Discord adapter if a token is present in the environment
	if token := cfg.Discord.Token(); token != "" {
		discord, err := NewDiscordAdapter(bus, cfg.Discord, token, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create discord adapter: %w", err)
		}
		gw.adapters["discord"] = discord
	}

	gw.heartbeat = NewHeartbeat(cfg.Heartbeat, bus, logger)

	return gw, nil
}

// Run starts all adapters and processes messages. Blocks until ctx is cancelled.
func (gw *Gateway) Run(ctx context.Context) error {
	// Start adapters
	for name, a := range gw.adapters {
		gw.logger.Info("Starting adapter", "adapter", name)
		go func(n string, ad Adapter) {
			if err := ad.Start(ctx); err != nil {
				gw.logger.Error("Adapter failed", "adapter", n, "error", err)
			}
		}(name, a)
	}

	// Start heartbeat
	go gw.heartbeat.Start(ctx)

	// Start outbound dispatcher
	go gw.dispatchOutbound(ctx)

	gw.logger.Info("Gateway running, processing messages")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-gw.bus.Inbound:
			go gw.handleInbound(ctx, msg)
		}
	}
}

func (gw *Gateway) handleInbound(ctx context.Context, msg InboundMessage) {
	// Handle commands
	if strings.HasPrefix(msg.Text, "!") {
		gw.handleCommand(ctx, msg)
		return
	}

	key := SessionKey{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		PeerID:      msg.PeerID,
	}

	session, err := gw.sessions.GetOrCreateSession(ctx, key)
	if err != nil {
		gw.logger.Error("Failed to create session", "error", err, "peer", msg.PeerName)
		gw.sendError(msg, "Sorry, I could not start a chat session.")
		return
	}

	// Keep the typing indicator alive while the request streams
	stopTyping := gw.keepTyping(ctx, msg.ChannelType, msg.ChannelID)
	defer stopTyping()

	session.mu.Lock()
	session.LastActivity = time.Now()
	session.out.Reset()
	reply, sendErr := session.Chat.Send(ctx, msg.Text, nil)
	pluginOutput := strings.TrimSpace(session.out.String())
	if sendErr == nil && reply != nil && gw.store != nil {
		if err := session.Chat.SaveConversation(gw.store.RepositoryFor(key)); err != nil {
			gw.logger.Warn("Failed to persist session history", "key", key.String(), "error", err)
		}
	}
	session.mu.Unlock()

	if sendErr != nil {
		if pkgErrors.Is(sendErr, budget.ErrNothingToSend) {
			gw.sendError(msg, "Your message does not fit the context window. Use !clear to start fresh.")
			return
		}
		gw.logger.Error("Chat request failed", "error", sendErr, "peer", msg.PeerName)
		gw.sendError(msg, fmt.Sprintf("Sorry, the model request failed (code %d).", llm.Classify(sendErr)))
		return
	}

	var responseText string
	if reply != nil {
		responseText = reply.Content()
	} else {
		// A plugin handled the message; relay whatever it rendered.
		responseText = pluginOutput
		if len(responseText) > maxPluginReply {
			responseText = responseText[:maxPluginReply] + "\n...(truncated)"
		}
	}

	if responseText != "" {
		gw.bus.Outbound <- OutboundMessage{
			ChannelType: msg.ChannelType,
			ChannelID:   msg.ChannelID,
			Text:        responseText,
			ReplyToID:   msg.ReplyToID,
		}
	}
}

func (gw *Gateway) handleCommand(ctx context.Context, msg InboundMessage) {
	parts := strings.Fields(msg.Text)
	cmd := strings.TrimPrefix(parts[0], "!")

	key := SessionKey{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		PeerID:      msg.PeerID,
	}

	var response string
	switch cmd {
	case "clear":
		if err := gw.sessions.ClearSession(key); err != nil {
			gw.logger.Warn("Failed to clear persisted session", "key", key.String(), "error", err)
		}
		response = "Conversation cleared. Starting fresh."
	case "model":
		response = gw.switchModel(ctx, key, parts[1:])
	case "help":
		response = "**Available commands:**\n" +
			"`!clear` — Clear conversation\n" +
			"`!model <id>` — Switch model\n" +
			"`!help` — Show this help"
	default:
		response = fmt.Sprintf("Unknown command: !%s. Use !help for available commands.", cmd)
	}

	gw.bus.Outbound <- OutboundMessage{
		ChannelType: msg.ChannelType,
		ChannelID:   msg.ChannelID,
		Text:        response,
		ReplyToID:   msg.ReplyToID,
	}
}

// switchModel changes the model for one session. When the backend exposes a
// catalog, the context limit is refreshed from the catalog entry.
func (gw *Gateway) switchModel(ctx context.Context, key SessionKey, args []string) string {
	session, err := gw.sessions.GetOrCreateSession(ctx, key)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if len(args) == 0 {
		return fmt.Sprintf("Current model: %s\nUsage: !model <id>", session.Chat.Client().Model())
	}

	modelID := args[0]
	settings := session.Chat.Settings()

	if catalog, ok := session.Chat.Client().(llm.ModelCatalog); ok {
		listCtx, cancel := context.WithTimeout(ctx, catalogTimeout)
		defer cancel()
		if models, err := catalog.ListModels(listCtx); err == nil {
			for _, m := range models {
				if m.ID == modelID {
					if m.ContextLength > 0 {
						settings.LLM.ContextLimit = m.ContextLength
					}
					break
				}
			}
		}
	}

	session.Chat.Client().SetModel(modelID)
	settings.LLM.Model = modelID
	return fmt.Sprintf("Model switched to %s.", modelID)
}

// keepTyping shows a typing indicator and refreshes it until the returned
// stop function is called.
func (gw *Gateway) keepTyping(ctx context.Context, channelType, channelID string) func() {
	adapter, ok := gw.adapters[channelType]
	if !ok {
		return func() {}
	}

	_ = adapter.SendTyping(ctx, channelID)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(typingRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = adapter.SendTyping(ctx, channelID)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (gw *Gateway) dispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-gw.bus.Outbound:
			if a, ok := gw.adapters[msg.ChannelType]; ok {
				if err := a.Send(ctx, msg); err != nil {
					gw.logger.Error("Failed to send outbound message", "error", err)
				}
			}
		}
	}
}

func (gw *Gateway) sendError(orig InboundMessage, text string) {
	gw.bus.Outbound <- OutboundMessage{
		ChannelType: orig.ChannelType,
		ChannelID:   orig.ChannelID,
		Text:        text,
		ReplyToID:   orig.ReplyToID,
	}
}

// Close shuts down all adapters and session plugins.
func (gw *Gateway) Close() error {
	for _, a := range gw.adapters {
		_ = a.Stop()
	}
	gw.sessions.Close()
	return nil
}
