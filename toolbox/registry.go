package toolbox

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/agent"
	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/registry/catalogue"
	"github.com/relaymesh/toolmesh/registry/service"
)

// registryToolInfos are the five meta-tools every Toolbox advertises
// regardless of what is locally registered (spec.md §4.6, I4). They carry
// a name and a terse description only: no InputSchema is attached, so the
// Agent is given no argument shape for them. The Registry Service's own
// tools/list schemas are not fetched; the Toolbox uses these stable names
// to satisfy availableTools() without a round trip to the Registry.
var registryToolInfos = []agent.ToolDescriptor{
	{Name: service.ToolQueryTools, Description: "Search the tool registry by natural-language query."},
	{Name: service.ToolListTools, Description: "List every tool currently registered in this session."},
	{Name: service.ToolAddTool, Description: "Register a single tool descriptor directly."},
	{Name: service.ToolAddServer, Description: "Connect to an MCP server and register all of its tools."},
	{Name: service.ToolDeleteTool, Description: "Remove a tool from the registry."},
}

// dispatchRegistry forwards use to the Registry Client. After a successful
// query-tools call it auto-registers the returned origins (spec.md §4.6:
// "a successful query-tools call registers its results into the Toolbox").
// The result text returned to the model is always the Registry Service's
// human summary, never the raw JSON block: the Registry Client's
// Result.RawJSON stays on the Go side and is not placed in the conversation.
func (tb *Toolbox) dispatchRegistry(ctx context.Context, use conversation.ToolUse) conversation.ToolResult {
	switch use.Name {
	case service.ToolQueryTools:
		var args struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.Unmarshal(use.Args, &args); err != nil {
			return errorResult(use.ID, fmt.Sprintf("query-tools: invalid arguments: %v", err))
		}
		res, err := tb.registry.QueryTools(ctx, args.Query, args.Limit)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("query-tools: %v", err))
		}
		if len(res.Value) > 0 {
			if regErr := tb.RegisterTools(res.Value); regErr != nil {
				tb.log.Warn("toolbox: query-tools auto-register conflict", zap.Error(regErr))
			}
		}
		return okResult(use.ID, res.Summary)

	case service.ToolListTools:
		res, err := tb.registry.ListTools(ctx)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("list-tools: %v", err))
		}
		return okResult(use.ID, res.Summary)

	case service.ToolAddTool:
		var args struct {
			Tool catalogue.ToolDescriptor `json:"tool"`
		}
		if err := json.Unmarshal(use.Args, &args); err != nil {
			return errorResult(use.ID, fmt.Sprintf("add-tool: invalid arguments: %v", err))
		}
		res, err := tb.registry.AddTool(ctx, args.Tool)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("add-tool: %v", err))
		}
		return okResult(use.ID, res.Summary)

	case service.ToolAddServer:
		var args struct {
			ServerString string `json:"serverString"`
			AuthToken    string `json:"authToken"`
		}
		if err := json.Unmarshal(use.Args, &args); err != nil {
			return errorResult(use.ID, fmt.Sprintf("add-server: invalid arguments: %v", err))
		}
		res, err := tb.registry.AddServer(ctx, args.ServerString, args.AuthToken)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("add-server: %v", err))
		}
		return okResult(use.ID, res.Summary)

	case service.ToolDeleteTool:
		var args struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(use.Args, &args); err != nil {
			return errorResult(use.ID, fmt.Sprintf("delete-tool: invalid arguments: %v", err))
		}
		res, err := tb.registry.DeleteTool(ctx, args.Name)
		if err != nil {
			return errorResult(use.ID, fmt.Sprintf("delete-tool: %v", err))
		}
		return okResult(use.ID, res.Summary)

	default:
		return errorResult(use.ID, fmt.Sprintf("unknown registry tool %q", use.Name))
	}
}

func okResult(toolUseID, text string) conversation.ToolResult {
	return conversation.ToolResult{
		ToolUseID: toolUseID,
		Content:   []conversation.Text{conversation.NewText(text)},
	}
}
