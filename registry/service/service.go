// Package service implements the Registry Service of spec.md §4.6: the
// Tool Catalogue exposed as an in-process, MCP-shaped server with exactly
// five meta-tools. It satisfies mcp.Transport directly rather than
// spawning a real subprocess or socket, so a Registry Client can wrap it
// in an ordinary mcp.Client without any wire serialization.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/internal/toolschema"
	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/registry/catalogue"
)

// Meta-tool names, spec.md §4.6.
const (
	ToolQueryTools = "query-tools"
	ToolListTools  = "list-tools"
	ToolAddTool    = "add-tool"
	ToolAddServer  = "add-server"
	ToolDeleteTool = "delete-tool"
)

// ToolNames is the stable, ordered set of tools the Registry Service
// exposes — used by the Toolbox (I4) and the Registry Client to recognize
// a meta-tool name without a round trip.
var ToolNames = []string{ToolQueryTools, ToolListTools, ToolAddTool, ToolAddServer, ToolDeleteTool}

type queryToolsArgs struct {
	Query string `json:"query" jsonschema:"required,description=Natural-language description of the capability needed"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum number of tools to return (default 10)"`
}

type listToolsArgs struct{}

type addToolArgs struct {
	Tool catalogue.ToolDescriptor `json:"tool" jsonschema:"required,description=Tool descriptor to register"`
}

type addServerArgs struct {
	ServerString string `json:"serverString" jsonschema:"required,description=url::type[::authToken], e.g. stdio:///path/to/server::stdio"`
	AuthToken    string `json:"authToken,omitempty" jsonschema:"description=Overrides any authToken embedded in serverString"`
}

type deleteToolArgs struct {
	Name string `json:"name" jsonschema:"required,description=Tool name to remove"`
}

// Service is the Catalogue reachable as an MCP server.
type Service struct {
	cat *catalogue.Catalogue
	log *zap.Logger
}

var _ mcp.Transport = (*Service)(nil)

// New builds a Service over cat.
func New(cat *catalogue.Catalogue, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cat: cat, log: log}
}

func (s *Service) Send(ctx context.Context, req *mcp.Request) (*mcp.Response, error) {
	switch req.Method {
	case "initialize":
		return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
	case "tools/list":
		return s.handleListTools(req)
	case "tools/call":
		return s.handleCallTool(ctx, req)
	default:
		return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Error: &mcp.RPCError{
			Code: -32601, Message: fmt.Sprintf("registry: unknown method %q", req.Method),
		}}, nil
	}
}

func (s *Service) Notify(context.Context, *mcp.Notification) error { return nil }

func (s *Service) Close() error { return nil }

func (s *Service) handleListTools(req *mcp.Request) (*mcp.Response, error) {
	tools := []mcp.ToolInfo{
		{Name: ToolQueryTools, Description: "Search the tool catalogue for tools matching a natural-language query.", InputSchema: mustSchema[queryToolsArgs]()},
		{Name: ToolListTools, Description: "List every tool currently registered in the catalogue.", InputSchema: mustSchema[listToolsArgs]()},
		{Name: ToolAddTool, Description: "Register a single tool descriptor into the catalogue.", InputSchema: mustSchema[addToolArgs]()},
		{Name: ToolAddServer, Description: "Connect to an MCP server and register every tool it reports.", InputSchema: mustSchema[addServerArgs]()},
		{Name: ToolDeleteTool, Description: "Remove a tool from the catalogue by name.", InputSchema: mustSchema[deleteToolArgs]()},
	}
	result, err := json.Marshal(struct {
		Tools []mcp.ToolInfo `json:"tools"`
	}{Tools: tools})
	if err != nil {
		return nil, fmt.Errorf("registry: marshal tools/list: %w", err)
	}
	return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
}

func mustSchema[T any]() json.RawMessage {
	raw, err := toolschema.GenerateJSON[T]()
	if err != nil {
		// Generation only fails on a programmer error (an unreflectable
		// field on one of this package's own arg structs).
		panic(fmt.Sprintf("registry: schema generation: %v", err))
	}
	return raw
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (s *Service) handleCallTool(ctx context.Context, req *mcp.Request) (*mcp.Response, error) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return nil, fmt.Errorf("registry: unmarshal tools/call params: %w", err)
	}

	var result mcp.CallToolResult
	switch params.Name {
	case ToolQueryTools:
		result = s.queryTools(ctx, params.Arguments)
	case ToolListTools:
		result = s.listTools(ctx)
	case ToolAddTool:
		result = s.addTool(ctx, params.Arguments)
	case ToolAddServer:
		result = s.addServer(ctx, params.Arguments)
	case ToolDeleteTool:
		result = s.deleteTool(ctx, params.Arguments)
	default:
		return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Error: &mcp.RPCError{
			Code: -32602, Message: fmt.Sprintf("registry: unknown tool %q", params.Name),
		}}, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("registry: marshal tools/call result: %w", err)
	}
	return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Result: raw}, nil
}

// envelope returns a CallToolResult whose content array carries, in fixed
// order, a JSON-tagged block at index 0 (parseable verbatim, "null" on
// error) and a human-readable summary at index 1 (spec.md §4.6: "the JSON
// block is tagged so Registry Clients can pick it out unambiguously" —
// position is the tag here, since both blocks are otherwise plain text).
func envelope(jsonPayload any, summary string, isError bool) mcp.CallToolResult {
	var jsonText string
	if jsonPayload == nil {
		jsonText = "null"
	} else if raw, err := json.Marshal(jsonPayload); err == nil {
		jsonText = string(raw)
	} else {
		jsonText = "null"
	}
	return mcp.CallToolResult{
		Content: []mcp.ToolResultContent{
			{Type: "text", Text: jsonText},
			{Type: "text", Text: summary},
		},
		IsError: isError,
	}
}

func (s *Service) queryTools(ctx context.Context, rawArgs json.RawMessage) mcp.CallToolResult {
	var args queryToolsArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return envelope(nil, fmt.Sprintf("invalid query-tools arguments: %v", err), true)
	}

	origins, err := s.cat.QueryTools(ctx, args.Query, args.Limit)
	if err != nil {
		return envelope(nil, fmt.Sprintf("query-tools failed: %v", err), true)
	}
	if len(origins) == 0 {
		return envelope([]catalogue.ToolOrigin{}, fmt.Sprintf("no tools found matching %q", args.Query), false)
	}

	names := make([]string, len(origins))
	for i, o := range origins {
		names[i] = o.Tool.Name
	}
	summary := fmt.Sprintf("found %d tool(s) matching %q: %s", len(origins), args.Query, strings.Join(names, ", "))
	return envelope(origins, summary, false)
}

func (s *Service) listTools(ctx context.Context) mcp.CallToolResult {
	descs, err := s.cat.ListTools(ctx, 0)
	if err != nil {
		return envelope(nil, fmt.Sprintf("list-tools failed: %v", err), true)
	}
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Name
	}
	sort.Strings(names)
	return envelope(descs, fmt.Sprintf("%d tool(s) registered: %s", len(descs), strings.Join(names, ", ")), false)
}

func (s *Service) addTool(ctx context.Context, rawArgs json.RawMessage) mcp.CallToolResult {
	var args addToolArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return envelope(nil, fmt.Sprintf("invalid add-tool arguments: %v", err), true)
	}
	if args.Tool.Name == "" {
		return envelope(nil, "add-tool requires a non-empty tool name", true)
	}

	if err := s.cat.AddTool(ctx, args.Tool, mcp.ServerDescriptor{}); err != nil {
		return envelope(nil, fmt.Sprintf("add-tool failed: %v", err), true)
	}
	return envelope(args.Tool, fmt.Sprintf("registered tool %q", args.Tool.Name), false)
}

func (s *Service) addServer(ctx context.Context, rawArgs json.RawMessage) mcp.CallToolResult {
	var args addServerArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return envelope(nil, fmt.Sprintf("invalid add-server arguments: %v", err), true)
	}

	server, err := mcp.ParseServerSpec(args.ServerString)
	if err != nil {
		return envelope(nil, fmt.Sprintf("invalid serverString: %v", err), true)
	}
	if args.AuthToken != "" {
		server.AuthToken = args.AuthToken
	}

	added, err := s.cat.AddServer(ctx, server)
	if err != nil && len(added) == 0 {
		return envelope(nil, fmt.Sprintf("add-server failed: %v", err), true)
	}

	names := make([]string, len(added))
	for i, t := range added {
		names[i] = t.Name
	}
	summary := fmt.Sprintf("connected to %s, registered %d tool(s): %s", server.Key(), len(added), strings.Join(names, ", "))
	if err != nil {
		summary += fmt.Sprintf(" (some tools failed: %v)", err)
	}
	return envelope(added, summary, false)
}

func (s *Service) deleteTool(ctx context.Context, rawArgs json.RawMessage) mcp.CallToolResult {
	var args deleteToolArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return envelope(nil, fmt.Sprintf("invalid delete-tool arguments: %v", err), true)
	}

	ok, err := s.cat.DeleteTool(ctx, args.Name)
	if err != nil {
		return envelope(nil, fmt.Sprintf("delete-tool failed: %v", err), true)
	}
	if !ok {
		return envelope(false, fmt.Sprintf("tool %q not found", args.Name), false)
	}
	return envelope(true, fmt.Sprintf("deleted tool %q", args.Name), false)
}
