// Package client implements the Registry Client of spec.md §4.7: a thin
// adapter over an mcp.Client targeting a Registry Service, translating
// each meta-tool call into a typed result plus the raw JSON the model
// should see.
package client

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/registry/catalogue"
	"github.com/relaymesh/toolmesh/registry/service"
)

// Client wraps an mcp.Client whose peer is a Registry Service.
type Client struct {
	mcp *mcp.Client
	log *zap.Logger

	// names is the local snapshot of registry tool names, used by the
	// Toolbox for I4 dispatch routing without a round trip.
	names map[string]struct{}
}

// New wraps mcpClient, which must target a Registry Service (in-process or
// remote).
func New(mcpClient *mcp.Client, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	names := make(map[string]struct{}, len(service.ToolNames))
	for _, n := range service.ToolNames {
		names[n] = struct{}{}
	}
	return &Client{mcp: mcpClient, log: log, names: names}
}

// IsRegistryTool reports whether name is one of the Registry Service's own
// meta-tools (spec.md I4: these names are never shadowed by an upstream
// tool).
func (c *Client) IsRegistryTool(name string) bool {
	_, ok := c.names[name]
	return ok
}

// Result carries the parsed JSON payload, the raw text of the JSON block,
// and the human summary block. The Toolbox passes only Summary back into
// the conversation; RawJSON is available to Go callers.
type Result[T any] struct {
	Value   T
	RawJSON string
	Summary string
}

// call invokes name on the Registry Service and splits its two-block
// envelope: content[0] is the JSON-tagged block, content[1] the human
// summary (service.envelope's fixed ordering).
func call(ctx context.Context, c *Client, name string, args any) (json.RawMessage, string, error) {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, "", fmt.Errorf("registry client: marshal %s args: %w", name, err)
	}

	result, err := c.mcp.CallTool(ctx, name, argsJSON)
	if err != nil {
		return nil, "", fmt.Errorf("registry client: %s: %w", name, err)
	}
	if len(result.Content) == 0 {
		return nil, "", fmt.Errorf("registry client: %s: empty result", name)
	}

	rawJSON := result.Content[0].Text
	summary := rawJSON
	if len(result.Content) > 1 {
		summary = result.Content[1].Text
	}
	if result.IsError {
		return json.RawMessage(rawJSON), summary, fmt.Errorf("registry client: %s: %s", name, summary)
	}
	return json.RawMessage(rawJSON), summary, nil
}

// QueryTools searches the catalogue for tools matching query.
func (c *Client) QueryTools(ctx context.Context, query string, limit int) (Result[[]catalogue.ToolOrigin], error) {
	rawJSON, summary, err := call(ctx, c, service.ToolQueryTools, map[string]any{"query": query, "limit": limit})
	res := Result[[]catalogue.ToolOrigin]{RawJSON: string(rawJSON), Summary: summary}
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(rawJSON, &res.Value); err != nil {
		return res, fmt.Errorf("registry client: unmarshal query-tools result: %w", err)
	}
	return res, nil
}

// ListTools returns every tool currently registered in the catalogue.
func (c *Client) ListTools(ctx context.Context) (Result[[]catalogue.ToolDescriptor], error) {
	rawJSON, summary, err := call(ctx, c, service.ToolListTools, map[string]any{})
	res := Result[[]catalogue.ToolDescriptor]{RawJSON: string(rawJSON), Summary: summary}
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(rawJSON, &res.Value); err != nil {
		return res, fmt.Errorf("registry client: unmarshal list-tools result: %w", err)
	}
	return res, nil
}

// AddTool registers a single tool descriptor.
func (c *Client) AddTool(ctx context.Context, tool catalogue.ToolDescriptor) (Result[catalogue.ToolDescriptor], error) {
	rawJSON, summary, err := call(ctx, c, service.ToolAddTool, map[string]any{"tool": tool})
	res := Result[catalogue.ToolDescriptor]{RawJSON: string(rawJSON), Summary: summary}
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(rawJSON, &res.Value); err != nil {
		return res, fmt.Errorf("registry client: unmarshal add-tool result: %w", err)
	}
	return res, nil
}

// AddServer connects to serverSpec ("url::type[::authToken]") and registers
// every tool it reports.
func (c *Client) AddServer(ctx context.Context, serverSpec, authToken string) (Result[[]catalogue.ToolDescriptor], error) {
	rawJSON, summary, err := call(ctx, c, service.ToolAddServer, map[string]any{"serverString": serverSpec, "authToken": authToken})
	res := Result[[]catalogue.ToolDescriptor]{RawJSON: string(rawJSON), Summary: summary}
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(rawJSON, &res.Value); err != nil {
		return res, fmt.Errorf("registry client: unmarshal add-server result: %w", err)
	}
	return res, nil
}

// DeleteTool removes name from the catalogue.
func (c *Client) DeleteTool(ctx context.Context, name string) (Result[bool], error) {
	rawJSON, summary, err := call(ctx, c, service.ToolDeleteTool, map[string]any{"name": name})
	res := Result[bool]{RawJSON: string(rawJSON), Summary: summary}
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(rawJSON, &res.Value); err != nil {
		return res, fmt.Errorf("registry client: unmarshal delete-tool result: %w", err)
	}
	return res, nil
}
