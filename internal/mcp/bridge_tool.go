package mcp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	mcpclient "github.com/mark3labs/mcp-go/client"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/rustyclaw/rustyclaw/internal/tools"
)

// BridgeTool adapts one tool discovered on a remote MCP server into the
// local tools.Tool interface, so the agent loop's tool-use pipeline
// never has to know a given call crosses a process boundary.
type BridgeTool struct {
	server     string
	origName   string
	prefixed   string
	desc       string
	schema     map[string]interface{}
	client     *mcpclient.Client
	timeoutSec int
	connected  *atomic.Bool
}

// NewBridgeTool wraps a discovered MCP tool. toolPrefix, if set, is
// prepended to the tool's name (joined with "_") to avoid collisions
// between servers that happen to expose the same tool name.
func NewBridgeTool(server string, t mcpgo.Tool, client *mcpclient.Client, toolPrefix string, timeoutSec int, connected *atomic.Bool) *BridgeTool {
	name := t.Name
	if toolPrefix != "" {
		name = toolPrefix + "_" + name
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": t.InputSchema.Properties,
		"required":   t.InputSchema.Required,
	}
	return &BridgeTool{
		server:     server,
		origName:   t.Name,
		prefixed:   name,
		desc:       t.Description,
		schema:     schema,
		client:     client,
		timeoutSec: timeoutSec,
		connected:  connected,
	}
}

// OriginalName returns the tool's name as advertised by the MCP server,
// before any prefix was applied — used for allow/deny matching, since
// grants are expressed in terms of the server's own tool names.
func (b *BridgeTool) OriginalName() string { return b.origName }

func (b *BridgeTool) Name() string                       { return b.prefixed }
func (b *BridgeTool) Description() string                { return b.desc }
func (b *BridgeTool) Parameters() map[string]interface{} { return b.schema }

func (b *BridgeTool) Execute(ctx context.Context, args map[string]interface{}) *tools.Result {
	if b.connected != nil && !b.connected.Load() {
		return tools.ErrorResult(fmt.Sprintf("mcp server %q is disconnected", b.server))
	}

	req := mcpgo.CallToolRequest{}
	req.Params.Name = b.origName
	req.Params.Arguments = args

	res, err := b.client.CallTool(ctx, req)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("mcp tool %q: %v", b.prefixed, err))
	}

	text := renderContent(res.Content)
	if res.IsError {
		return tools.ErrorResult(text)
	}
	return tools.NewResult(text)
}

// renderContent flattens an MCP tool result into plain text for the LLM.
// Non-text content blocks (images, resources) are summarized rather than
// dropped silently.
func renderContent(blocks []mcpgo.Content) string {
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		switch c := block.(type) {
		case mcpgo.TextContent:
			b.WriteString(c.Text)
		default:
			b.WriteString(fmt.Sprintf("[unsupported MCP content block: %T]", block))
		}
	}
	return b.String()
}
