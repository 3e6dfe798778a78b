package app

import (
	"context"
	"io"

	"github.com/fpt/parley-cli/internal/config"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/plugin"
)

// BuildPluginRegistry constructs the registry from settings.Plugins.Enabled.
// Plugins that fail to initialize are skipped with a warning so one bad MCP
// server cannot take the whole session down. Plugin-rendered output goes to out.
func BuildPluginRegistry(ctx context.Context, settings *config.Settings, out io.Writer, logger *pkgLogger.Logger) *plugin.Registry {
	log := logger.WithComponent("plugins")
	registry := plugin.NewRegistry()

	for _, name := range settings.Plugins.Enabled {
		switch name {
		case "autosave":
			dir := settings.Plugins.AutosaveDir
			if dir == "" {
				dir = "saved_code"
			}
			if err := registry.Register(plugin.NewAutosavePlugin(dir)); err != nil {
				log.Warn("Failed to register plugin", "plugin", name, "error", err)
			}
		case "webfetch":
			if err := registry.Register(plugin.NewWebFetchPlugin(out)); err != nil {
				log.Warn("Failed to register plugin", "plugin", name, "error", err)
			}
		case "mcp":
			for _, serverCfg := range settings.Plugins.MCPServers {
				p, err := plugin.NewMCPPlugin(ctx, serverCfg, out)
				if err != nil {
					log.Warn("Failed to start MCP server", "server", serverCfg.Name, "error", err)
					continue
				}
				if err := registry.Register(p); err != nil {
					log.Warn("Failed to register plugin", "plugin", p.Name(), "error", err)
				}
			}
		default:
			log.Warn("Unknown plugin in settings", "plugin", name)
		}
	}

	return registry
}
