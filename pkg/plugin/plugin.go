// Package plugin defines the conversation hook contract and the registry
// that dispatches user messages and finalized responses to registered
// plugins. Plugins are registered explicitly at startup; there is no
// reflective discovery.
package plugin

import (
	"context"
	"io"

	"github.com/pkg/errors"

	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
)

// Package-level logger for plugin dispatch
var logger = pkgLogger.NewComponentLogger("plugin")

// Plugin receives conversation hooks.
type Plugin interface {
	// Name returns the unique plugin identifier.
	Name() string
	// Description returns a short human-readable summary.
	Description() string
	// OnUserMessage runs before a user message is submitted to the model.
	// Returning handled=true consumes the message; it is then neither added
	// to history nor sent.
	OnUserMessage(ctx context.Context, text string) (handled bool, err error)
	// OnResponse runs after an assistant response has been finalized and
	// committed to history.
	OnResponse(ctx context.Context, msg *message.ChatMessage) error
}

// Registry holds plugins and dispatches hooks in registration order.
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Plugin)}
}

// Register adds a plugin. Dispatch order is registration order. A second
// plugin under an already-registered name is rejected.
func (r *Registry) Register(p Plugin) error {
	name := p.Name()
	if name == "" {
		return errors.New("plugin name must not be empty")
	}
	if _, exists := r.byName[name]; exists {
		return errors.Errorf("plugin %q already registered", name)
	}

	r.plugins = append(r.plugins, p)
	r.byName[name] = p
	logger.DebugWithIntention(pkgLogger.IntentionPlugin, "Plugin registered", "name", name)
	return nil
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns the registered plugins in registration order.
func (r *Registry) All() []Plugin {
	out := make([]Plugin, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// DispatchUserMessage offers text to each plugin in registration order and
// stops at the first one that handles it. A failing plugin is logged and
// skipped; its handled flag is ignored so a broken plugin never consumes a
// message. Returns whether any plugin handled the text.
func (r *Registry) DispatchUserMessage(ctx context.Context, text string) bool {
	for _, p := range r.plugins {
		handled, err := p.OnUserMessage(ctx, text)
		if err != nil {
			logger.WarnWithIntention(pkgLogger.IntentionPlugin, "Plugin failed on user message",
				"plugin", p.Name(), "error", err)
			continue
		}
		if handled {
			logger.DebugWithIntention(pkgLogger.IntentionPlugin, "Message handled by plugin", "plugin", p.Name())
			return true
		}
	}
	return false
}

// DispatchResponse delivers a finalized assistant message to every plugin.
// Per-plugin failures are logged and delivery continues.
func (r *Registry) DispatchResponse(ctx context.Context, msg *message.ChatMessage) {
	for _, p := range r.plugins {
		if err := p.OnResponse(ctx, msg); err != nil {
			logger.WarnWithIntention(pkgLogger.IntentionPlugin, "Plugin failed on response",
				"plugin", p.Name(), "error", err)
		}
	}
}

// Close shuts down plugins holding external connections. Plugins opt in by
// implementing io.Closer.
func (r *Registry) Close() {
	for _, p := range r.plugins {
		closer, ok := p.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			logger.Warn("Error closing plugin", "plugin", p.Name(), "error", err)
		}
	}
}
