package plugin

import (
	"context"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/client"
	mcpapi "github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/internal/config"
	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
)

// Hook tool names an MCP server exposes to participate in the conversation.
const (
	mcpUserMessageTool = "on_user_message"
	mcpResponseTool    = "on_response"
)

const mcpProtocolVersion = "2024-11-05"

// MCPPlugin adapts one MCP server into a conversation plugin. The server
// opts into hooks by exposing tools named on_user_message and/or
// on_response. on_user_message receives {"text"}; a non-empty text reply
// marks the message handled and is rendered to the session output.
// on_response receives {"role", "content"} for every finalized assistant
// message; its reply is ignored.
type MCPPlugin struct {
	name            string
	serverType      config.MCPServerType
	client          *client.Client
	out             io.Writer
	hasUserHook     bool
	hasResponseHook bool
}

// NewMCPPlugin connects to the configured server, initializes the MCP
// session and discovers which hook tools the server exposes. The connection
// stays open until Close.
func NewMCPPlugin(ctx context.Context, cfg config.MCPServerConfig, out io.Writer) (*MCPPlugin, error) {
	var mcpClient *client.Client
	var err error

	switch cfg.Type {
	case config.MCPServerTypeStdio:
		mcpClient, err = client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create stdio MCP client for %s", cfg.Name)
		}

	case config.MCPServerTypeSSE:
		mcpClient, err = client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create SSE MCP client for %s", cfg.Name)
		}

	default:
		return nil, errors.Errorf("unsupported MCP server type: %s", cfg.Type)
	}

	p := &MCPPlugin{
		name:       cfg.Name,
		serverType: cfg.Type,
		client:     mcpClient,
		out:        out,
	}

	if err := p.start(ctx); err != nil {
		_ = mcpClient.Close()
		return nil, err
	}
	return p, nil
}

// start opens the connection, runs the MCP handshake and records which hook
// tools the server offers.
func (p *MCPPlugin) start(ctx context.Context) error {
	if err := p.client.Start(ctx); err != nil {
		return errors.Wrapf(err, "failed to start MCP client for %s", p.name)
	}

	initRequest := mcpapi.InitializeRequest{
		Params: mcpapi.InitializeParams{
			ProtocolVersion: mcpProtocolVersion,
			Capabilities:    mcpapi.ClientCapabilities{},
			ClientInfo: mcpapi.Implementation{
				Name:    "parley",
				Version: "1.0.0",
			},
		},
	}
	if _, err := p.client.Initialize(ctx, initRequest); err != nil {
		return errors.Wrapf(err, "failed to initialize MCP client for %s", p.name)
	}

	tools, err := p.client.ListTools(ctx, mcpapi.ListToolsRequest{})
	if err != nil {
		return errors.Wrapf(err, "failed to list tools on MCP server %s", p.name)
	}
	for _, tool := range tools.Tools {
		switch tool.Name {
		case mcpUserMessageTool:
			p.hasUserHook = true
		case mcpResponseTool:
			p.hasResponseHook = true
		}
	}

	if !p.hasUserHook && !p.hasResponseHook {
		logger.Warn("MCP server exposes no conversation hooks", "server", p.name)
	}
	logger.InfoWithIntention(pkgLogger.IntentionSuccess, "Connected to MCP server",
		"server", p.name, "user_hook", p.hasUserHook, "response_hook", p.hasResponseHook)
	return nil
}

// Name returns the configured server name.
func (p *MCPPlugin) Name() string { return p.name }

// Description returns a short summary.
func (p *MCPPlugin) Description() string {
	return fmt.Sprintf("MCP server %s (%s)", p.name, p.serverType)
}

// OnUserMessage forwards the text to the server's on_user_message tool.
func (p *MCPPlugin) OnUserMessage(ctx context.Context, text string) (bool, error) {
	if !p.hasUserHook {
		return false, nil
	}

	reply, err := p.callHook(ctx, mcpUserMessageTool, map[string]any{"text": text})
	if err != nil {
		return false, err
	}
	if reply == "" {
		return false, nil
	}

	fmt.Fprintln(p.out, reply)
	return true, nil
}

// OnResponse forwards the finalized assistant message to the server's
// on_response tool.
func (p *MCPPlugin) OnResponse(ctx context.Context, msg *message.ChatMessage) error {
	if !p.hasResponseHook {
		return nil
	}

	_, err := p.callHook(ctx, mcpResponseTool, map[string]any{
		"role":    msg.Role().String(),
		"content": msg.Content(),
	})
	return err
}

// Close tears down the server connection.
func (p *MCPPlugin) Close() error {
	return p.client.Close()
}

// callHook invokes one hook tool and returns its text reply.
func (p *MCPPlugin) callHook(ctx context.Context, tool string, args map[string]any) (string, error) {
	request := mcpapi.CallToolRequest{
		Params: mcpapi.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	}

	result, err := p.client.CallTool(ctx, request)
	if err != nil {
		return "", errors.Wrapf(err, "MCP tool %s failed on server %s", tool, p.name)
	}

	text := extractTextFromMCPResult(result)
	if result.IsError {
		return "", errors.Errorf("MCP tool %s reported an error on server %s: %s", tool, p.name, text)
	}
	return text, nil
}

// extractTextFromMCPResult pulls the first text content out of a tool
// result.
func extractTextFromMCPResult(result *mcpapi.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	switch content := result.Content[0].(type) {
	case mcpapi.TextContent:
		return content.Text
	default:
		logger.Warn("Unhandled MCP content type", "type", fmt.Sprintf("%T", content))
		return ""
	}
}
