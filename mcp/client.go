package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is the request/response layer on top of a Transport: it assigns
// JSON-RPC ids, performs the initialize handshake once, and exposes the two
// operations the rest of the gateway needs — listTools and callTool
// (spec.md §4.2).
type Client struct {
	desc      ServerDescriptor
	transport Transport
	log       *zap.Logger

	initialized bool
}

// NewClient wraps an already-constructed Transport. Most callers should use
// Dial instead, which also builds the Transport from desc.
func NewClient(desc ServerDescriptor, transport Transport, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{desc: desc, transport: transport, log: log}
}

// Dial builds the right Transport for desc and wraps it in a Client.
func Dial(desc ServerDescriptor, log *zap.Logger, opts ...TransportOption) (*Client, error) {
	if log != nil {
		opts = append(opts, WithLogger(log))
	}
	t, err := NewTransport(desc, opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(desc, t, log), nil
}

func (c *Client) nextID() string {
	return uuid.NewString()
}

func (c *Client) request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal params for %s: %w", method, err)
	}

	req := &Request{
		JSONRPC: "2.0",
		ID:      c.nextID(),
		Method:  method,
		Params:  raw,
	}

	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp: %s: %w", method, err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s (code %d)", ErrRPC, resp.Error.Message, resp.Error.Code)
	}
	return resp.Result, nil
}

// ensureInitialized performs the MCP initialize handshake exactly once per
// Client. Peers that don't require one simply echo back an empty result.
func (c *Client) ensureInitialized(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	_, err := c.request(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]string{"name": "toolmesh", "version": "0.1"},
		"capabilities":    map[string]any{},
	})
	if err != nil {
		c.log.Debug("mcp: initialize failed, continuing without handshake", zap.Error(err))
	}
	c.initialized = true
	return nil
}

// ListTools discovers every tool the peer currently exposes.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	raw, err := c.request(ctx, "tools/list", map[string]any{})
	if err != nil {
		return nil, err
	}
	var result listToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: unmarshal tools/list result: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes name on the peer with args, rejecting the call before it
// ever reaches the Conversation Model if the result carries image content
// (spec.md §4.2).
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (*CallToolResult, error) {
	if err := c.ensureInitialized(ctx); err != nil {
		return nil, err
	}

	if args == nil {
		args = json.RawMessage("{}")
	}
	raw, err := c.request(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": json.RawMessage(args),
	})
	if err != nil {
		return nil, err
	}

	var result CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("mcp: unmarshal tools/call result: %w", err)
	}
	if result.HasImageContent() {
		return nil, ErrImageResult
	}
	return &result, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Descriptor returns the ServerDescriptor this Client was dialed for.
func (c *Client) Descriptor() ServerDescriptor {
	return c.desc
}
