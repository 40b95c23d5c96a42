package toolbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/pool"
	"github.com/relaymesh/toolmesh/registry/catalogue"
	"github.com/relaymesh/toolmesh/registry/client"
	"github.com/relaymesh/toolmesh/registry/service"
)

type fakeTransport struct {
	onSend func(req *mcp.Request) (*mcp.Response, error)
}

func (f *fakeTransport) Send(_ context.Context, req *mcp.Request) (*mcp.Response, error) {
	return f.onSend(req)
}
func (f *fakeTransport) Notify(context.Context, *mcp.Notification) error { return nil }
func (f *fakeTransport) Close() error                                   { return nil }

func newTestPool() *pool.Pool[string, *mcp.Client] {
	return pool.New[string, *mcp.Client](pool.Config[*mcp.Client]{})
}

func seedClient(t *testing.T, connPool *pool.Pool[string, *mcp.Client], server mcp.ServerDescriptor, c *mcp.Client) {
	t.Helper()
	_, err := connPool.Acquire(context.Background(), server.Key(), func(context.Context) (*mcp.Client, error) {
		return c, nil
	})
	require.NoError(t, err)
}

func echoToolServer(toolName string) *mcp.Client {
	server := mcp.ServerDescriptor{URL: "upstream", Transport: mcp.TransportStdio}
	transport := &fakeTransport{
		onSend: func(req *mcp.Request) (*mcp.Response, error) {
			switch req.Method {
			case "initialize":
				return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}, nil
			case "tools/list":
				return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(
					`{"tools":[{"name":"` + toolName + `","description":"does a thing","inputSchema":{"type":"object"}}]}`)}, nil
			case "tools/call":
				return &mcp.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(
					`{"content":[{"type":"text","text":"ok"}],"isError":false}`)}, nil
			}
			return nil, nil
		},
	}
	return mcp.NewClient(server, transport, nil)
}

func TestToolbox_RegisterTools_LazyNoConnection(t *testing.T) {
	tb := New(newTestPool(), nil)
	server := mcp.ServerDescriptor{URL: "x", Transport: mcp.TransportStdio}

	err := tb.RegisterTools([]catalogue.ToolOrigin{
		{Tool: catalogue.ToolDescriptor{Name: "fetch", Description: "fetch a url"}, Server: server},
	})
	require.NoError(t, err)

	names := make([]string, 0)
	for _, td := range tb.AvailableTools() {
		names = append(names, td.Name)
	}
	assert.Contains(t, names, "fetch")
}

func TestToolbox_RegisterTools_ConflictRejectsWholeBatch(t *testing.T) {
	tb := New(newTestPool(), nil)
	serverA := mcp.ServerDescriptor{URL: "a", Transport: mcp.TransportStdio}
	serverB := mcp.ServerDescriptor{URL: "b", Transport: mcp.TransportStdio}

	require.NoError(t, tb.RegisterTools([]catalogue.ToolOrigin{
		{Tool: catalogue.ToolDescriptor{Name: "fetch"}, Server: serverA},
	}))

	err := tb.RegisterTools([]catalogue.ToolOrigin{
		{Tool: catalogue.ToolDescriptor{Name: "fetch"}, Server: serverB},
		{Tool: catalogue.ToolDescriptor{Name: "new-tool"}, Server: serverB},
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"fetch"}, conflict.Names)

	names := make([]string, 0)
	for _, td := range tb.AvailableTools() {
		names = append(names, td.Name)
	}
	assert.NotContains(t, names, "new-tool")
}

func TestToolbox_RegisterTools_SameServerIsNoop(t *testing.T) {
	tb := New(newTestPool(), nil)
	server := mcp.ServerDescriptor{URL: "a", Transport: mcp.TransportStdio}

	require.NoError(t, tb.RegisterTools([]catalogue.ToolOrigin{
		{Tool: catalogue.ToolDescriptor{Name: "fetch"}, Server: server},
	}))
	err := tb.RegisterTools([]catalogue.ToolOrigin{
		{Tool: catalogue.ToolDescriptor{Name: "fetch", Description: "updated"}, Server: server},
	})
	require.NoError(t, err)
}

func TestToolbox_ConnectToServer_Eager(t *testing.T) {
	connPool := newTestPool()
	tb := New(connPool, nil)
	server := mcp.ServerDescriptor{URL: "upstream", Transport: mcp.TransportStdio}
	seedClient(t, connPool, server, echoToolServer("fetch"))

	require.NoError(t, tb.ConnectToServer(context.Background(), server))

	names := make([]string, 0)
	for _, td := range tb.AvailableTools() {
		names = append(names, td.Name)
	}
	assert.Contains(t, names, "fetch")
}

func TestToolbox_ExecuteTool_Dispatches(t *testing.T) {
	connPool := newTestPool()
	tb := New(connPool, nil)
	server := mcp.ServerDescriptor{URL: "upstream", Transport: mcp.TransportStdio}
	seedClient(t, connPool, server, echoToolServer("fetch"))
	require.NoError(t, tb.ConnectToServer(context.Background(), server))

	result := tb.ExecuteTool(context.Background(), conversation.ToolUse{ID: "t1", Name: "fetch", Args: json.RawMessage(`{}`)})
	require.False(t, result.IsError)
	assert.Equal(t, "t1", result.ToolUseID)
	assert.Equal(t, "ok", result.JoinedText())
}

func TestToolbox_ExecuteTool_UnknownToolDoesNotRaise(t *testing.T) {
	tb := New(newTestPool(), nil)
	result := tb.ExecuteTool(context.Background(), conversation.ToolUse{ID: "t1", Name: "nonexistent"})
	assert.True(t, result.IsError)
	assert.Contains(t, result.JoinedText(), "unknown tool")
}

func newTestRegistryClient() *client.Client {
	cat := catalogue.New(catalogue.NewMemoryStore(), catalogue.NewHashEmbedder(), nil, nil)
	svc := service.New(cat, nil)
	mcpClient := mcp.NewClient(mcp.ServerDescriptor{URL: "registry", Transport: mcp.TransportStdio}, svc, nil)
	return client.New(mcpClient, nil)
}

func TestToolbox_AvailableTools_IncludesRegistryMetaTools(t *testing.T) {
	tb := New(newTestPool(), newTestRegistryClient())
	names := make(map[string]bool)
	for _, td := range tb.AvailableTools() {
		names[td.Name] = true
	}
	for _, n := range service.ToolNames {
		assert.True(t, names[n], "expected meta-tool %s to be advertised", n)
	}
}

func TestToolbox_ExecuteTool_RegistryAddToolThenListTools(t *testing.T) {
	tb := New(newTestPool(), newTestRegistryClient())
	ctx := context.Background()

	addArgs, _ := json.Marshal(map[string]any{
		"tool": map[string]any{"name": "search", "description": "search the web"},
	})
	res := tb.ExecuteTool(ctx, conversation.ToolUse{ID: "t1", Name: service.ToolAddTool, Args: addArgs})
	require.False(t, res.IsError)

	listArgs, _ := json.Marshal(map[string]any{})
	res = tb.ExecuteTool(ctx, conversation.ToolUse{ID: "t2", Name: service.ToolListTools, Args: listArgs})
	require.False(t, res.IsError)
	assert.Contains(t, res.JoinedText(), "1")
}

func TestToolbox_ExecuteTool_QueryToolsAutoRegisters(t *testing.T) {
	tb := New(newTestPool(), newTestRegistryClient())
	ctx := context.Background()

	addArgs, _ := json.Marshal(map[string]any{
		"tool": map[string]any{"name": "search", "description": "search the web for things"},
	})
	require.False(t, tb.ExecuteTool(ctx, conversation.ToolUse{ID: "t1", Name: service.ToolAddTool, Args: addArgs}).IsError)

	queryArgs, _ := json.Marshal(map[string]any{"query": "search the web", "limit": 5})
	res := tb.ExecuteTool(ctx, conversation.ToolUse{ID: "t2", Name: service.ToolQueryTools, Args: queryArgs})
	require.False(t, res.IsError)

	names := make([]string, 0)
	for _, td := range tb.AvailableTools() {
		names = append(names, td.Name)
	}
	assert.Contains(t, names, "search")
}

func TestToolbox_ExecuteTool_DeleteToolNotFound(t *testing.T) {
	tb := New(newTestPool(), newTestRegistryClient())
	delArgs, _ := json.Marshal(map[string]any{"name": "nope"})
	res := tb.ExecuteTool(context.Background(), conversation.ToolUse{ID: "t1", Name: service.ToolDeleteTool, Args: delArgs})
	require.False(t, res.IsError)
	assert.Contains(t, res.JoinedText(), "not found")
}
