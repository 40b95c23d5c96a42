// Package toolbox implements the Toolbox component of spec.md §4.8: the
// active tool surface the Agent Loop dispatches against, backed by a
// locally-known tool set plus the Registry's meta-tools.
package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/agent"
	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/permission"
	"github.com/relaymesh/toolmesh/pool"
	"github.com/relaymesh/toolmesh/registry/catalogue"
	"github.com/relaymesh/toolmesh/registry/client"
)

// ConflictError reports every tool name a connectToServer call rejected
// because it is already registered from a different origin (spec.md §4.8:
// "reject the whole batch with a compound error listing every offending
// name").
type ConflictError struct {
	Names []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("toolbox: name conflict(s): %s", strings.Join(e.Names, ", "))
}

// Toolbox holds the locally-known tool descriptors, their server origins,
// the connection pool used to reach them, and the Registry Client used to
// reach the meta-tools.
type Toolbox struct {
	mu      sync.RWMutex
	names   []string // insertion order of local tool names
	tools   map[string]catalogue.ToolDescriptor
	origins map[string]mcp.ServerDescriptor

	pool     *pool.Pool[string, *mcp.Client]
	registry *client.Client

	cfg config
	log *zap.Logger
}

// New builds an empty Toolbox over connPool and registry.
func New(connPool *pool.Pool[string, *mcp.Client], registry *client.Client, opts ...Option) *Toolbox {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Toolbox{
		tools:    make(map[string]catalogue.ToolDescriptor),
		origins:  make(map[string]mcp.ServerDescriptor),
		pool:     connPool,
		registry: registry,
		cfg:      cfg,
		log:      cfg.logOrNop(),
	}
}

// AvailableTools returns the tools the Agent should be told about: locally
// known tools in insertion order, followed by the Registry's meta-tools,
// stable across calls within a turn (spec.md §4.8).
func (tb *Toolbox) AvailableTools() []agent.ToolDescriptor {
	tb.mu.RLock()
	defer tb.mu.RUnlock()

	out := make([]agent.ToolDescriptor, 0, len(tb.names)+len(registryToolInfos))
	for _, name := range tb.names {
		t := tb.tools[name]
		out = append(out, agent.ToolDescriptor{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	out = append(out, registryToolInfos...)
	return out
}

// ConnectToServer eagerly acquires a client for server, lists its tools,
// and installs all of them — unless any tool name is already registered
// from a *different* origin, in which case the whole batch is rejected
// with a ConflictError and nothing is installed. Re-registering the same
// server is a no-op for its already-known tools.
func (tb *Toolbox) ConnectToServer(ctx context.Context, server mcp.ServerDescriptor) error {
	mcpClient, err := tb.pool.Acquire(ctx, server.Key(), func(ctx context.Context) (*mcp.Client, error) {
		return mcp.Dial(server, tb.log)
	})
	if err != nil {
		return fmt.Errorf("toolbox: connect to %s: %w", server.Key(), err)
	}

	infos, err := mcpClient.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("toolbox: list tools on %s: %w", server.Key(), err)
	}

	descs := make([]catalogue.ToolDescriptor, len(infos))
	for i, info := range infos {
		var schema map[string]any
		if len(info.InputSchema) > 0 {
			_ = json.Unmarshal(info.InputSchema, &schema)
		}
		descs[i] = catalogue.ToolDescriptor{Name: info.Name, Description: info.Description, InputSchema: schema}
	}

	origins := make([]catalogue.ToolOrigin, len(descs))
	for i, d := range descs {
		origins[i] = catalogue.ToolOrigin{Tool: d, Server: server}
	}
	return tb.RegisterTools(origins)
}

// RegisterTools records descriptors and their origins without opening any
// connection (the lazy path): spec.md §4.8.
func (tb *Toolbox) RegisterTools(origins []catalogue.ToolOrigin) error {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	var conflicts []string
	for _, o := range origins {
		if existing, ok := tb.origins[o.Tool.Name]; ok && existing.Key() != o.Server.Key() {
			conflicts = append(conflicts, o.Tool.Name)
		}
	}
	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return &ConflictError{Names: conflicts}
	}

	for _, o := range origins {
		if _, known := tb.tools[o.Tool.Name]; known {
			continue
		}
		tb.names = append(tb.names, o.Tool.Name)
		tb.tools[o.Tool.Name] = o.Tool
		tb.origins[o.Tool.Name] = o.Server
	}
	return nil
}

// IsRegistryTool reports whether name is one of the Registry's own
// meta-tools (spec.md I4).
func (tb *Toolbox) IsRegistryTool(name string) bool {
	return tb.registry != nil && tb.registry.IsRegistryTool(name)
}

// ExecuteTool dispatches a single ToolUse block and returns the matching
// ToolResult. It never returns an error for an ordinary dispatch failure —
// every failure mode spec.md §4.8 names becomes an isError ToolResult
// instead, so the Agent Loop can always continue the turn.
func (tb *Toolbox) ExecuteTool(ctx context.Context, use conversation.ToolUse) conversation.ToolResult {
	if tb.cfg.hooks != nil {
		res, err := tb.cfg.hooks.RunPreToolUse(ctx, "", use.Name, use.Args)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("pre-tool-use hook error: %v", err))
		}
		if res != nil && res.Block {
			return errorResult(use.ID, fmt.Sprintf("blocked by hook: %s", res.Reason))
		}
		if res != nil && res.UpdatedInput != nil {
			use.Args = res.UpdatedInput
		}
	}

	if tb.cfg.perm != nil {
		decision, err := tb.cfg.perm.Check(ctx, use.Name, use.Args)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("permission check error: %v", err))
		}
		// Ask has nowhere to go — the Toolbox has no interactive channel back
		// to a human — so it is treated the same as Deny.
		if decision != permission.Allow {
			return errorResult(use.ID, fmt.Sprintf("permission denied for %q", use.Name))
		}
	}

	result := tb.dispatch(ctx, use)

	if tb.cfg.hooks != nil {
		if result.IsError {
			_ = tb.cfg.hooks.RunPostToolFailure(ctx, "", use.Name, use.Args, fmt.Errorf("%s", result.JoinedText()))
		} else {
			_ = tb.cfg.hooks.RunPostToolUse(ctx, "", use.Name, use.Args, result.JoinedText())
		}
	}

	return result
}

func (tb *Toolbox) dispatch(ctx context.Context, use conversation.ToolUse) conversation.ToolResult {
	if tb.IsRegistryTool(use.Name) {
		return tb.dispatchRegistry(ctx, use)
	}

	tb.mu.RLock()
	server, known := tb.origins[use.Name]
	tb.mu.RUnlock()
	if !known {
		return errorResult(use.ID, fmt.Sprintf("unknown tool %q", use.Name))
	}

	mcpClient, err := tb.pool.Acquire(ctx, server.Key(), func(ctx context.Context) (*mcp.Client, error) {
		return mcp.Dial(server, tb.log)
	})
	if err != nil {
		return errorResult(use.ID, fmt.Sprintf("connect to %s: %v", server.Key(), err))
	}

	out, err := mcpClient.CallTool(ctx, use.Name, use.Args)
	if err != nil {
		return errorResult(use.ID, fmt.Sprintf("%s: %v", use.Name, err))
	}

	content := make([]conversation.Text, len(out.Content))
	for i, c := range out.Content {
		content[i] = conversation.NewText(c.Text)
	}
	return conversation.ToolResult{ToolUseID: use.ID, Content: content, IsError: out.IsError}
}

func errorResult(toolUseID, message string) conversation.ToolResult {
	return conversation.ToolResult{
		ToolUseID: toolUseID,
		Content:   []conversation.Text{conversation.NewText(message)},
		IsError:   true,
	}
}
