package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/registry/catalogue"
)

func newTestCatalogue() *catalogue.Catalogue {
	return catalogue.New(catalogue.NewMemoryStore(), catalogue.NewHashEmbedder(), nil, nil)
}

func req(method string, params json.RawMessage) *mcp.Request {
	return &mcp.Request{JSONRPC: "2.0", ID: "t1", Method: method, Params: params}
}

func callTool(t *testing.T, svc *Service, name string, args any) ([]byte, string, bool) {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	require.NoError(t, err)

	params, err := json.Marshal(struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{Name: name, Arguments: argsJSON})
	require.NoError(t, err)

	resp, err := svc.Send(context.Background(), req("tools/call", params))
	require.NoError(t, err)
	require.Nil(t, resp.Error)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 2)
	return []byte(result.Content[0].Text), result.Content[1].Text, result.IsError
}

func TestService_ListToolsAdvertisesFiveMetaTools(t *testing.T) {
	svc := New(newTestCatalogue(), nil)
	resp, err := svc.Send(context.Background(), req("tools/list", nil))
	require.NoError(t, err)

	var result struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	assert.ElementsMatch(t, ToolNames, names)
}

func TestService_AddToolThenListTools(t *testing.T) {
	svc := New(newTestCatalogue(), nil)

	jsonBlock, summary, isErr := callTool(t, svc, ToolAddTool, map[string]any{
		"tool": catalogue.ToolDescriptor{Name: "greet", Description: "say hello"},
	})
	assert.False(t, isErr)
	assert.Contains(t, summary, "greet")
	var added catalogue.ToolDescriptor
	require.NoError(t, json.Unmarshal(jsonBlock, &added))
	assert.Equal(t, "greet", added.Name)

	jsonBlock, summary, isErr = callTool(t, svc, ToolListTools, map[string]any{})
	assert.False(t, isErr)
	assert.Contains(t, summary, "greet")
	var listed []catalogue.ToolDescriptor
	require.NoError(t, json.Unmarshal(jsonBlock, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "greet", listed[0].Name)
}

func TestService_QueryTools_NoMatches(t *testing.T) {
	svc := New(newTestCatalogue(), nil)
	jsonBlock, summary, isErr := callTool(t, svc, ToolQueryTools, map[string]any{"query": "anything"})
	assert.False(t, isErr)
	assert.Contains(t, summary, "no tools found")
	assert.Equal(t, "[]", string(jsonBlock))
}

func TestService_DeleteTool_NotFound(t *testing.T) {
	svc := New(newTestCatalogue(), nil)
	jsonBlock, summary, isErr := callTool(t, svc, ToolDeleteTool, map[string]any{"name": "ghost"})
	assert.False(t, isErr)
	assert.Contains(t, summary, "not found")
	assert.Equal(t, "false", string(jsonBlock))
}

func TestService_DeleteTool_Found(t *testing.T) {
	svc := New(newTestCatalogue(), nil)
	_, _, _ = callTool(t, svc, ToolAddTool, map[string]any{
		"tool": catalogue.ToolDescriptor{Name: "greet", Description: "say hello"},
	})

	jsonBlock, summary, isErr := callTool(t, svc, ToolDeleteTool, map[string]any{"name": "greet"})
	assert.False(t, isErr)
	assert.Contains(t, summary, "deleted")
	assert.Equal(t, "true", string(jsonBlock))
}

func TestService_AddTool_RejectsEmptyName(t *testing.T) {
	svc := New(newTestCatalogue(), nil)
	jsonBlock, summary, isErr := callTool(t, svc, ToolAddTool, map[string]any{
		"tool": catalogue.ToolDescriptor{Name: ""},
	})
	assert.True(t, isErr)
	assert.Equal(t, "null", string(jsonBlock))
	assert.NotEmpty(t, summary)
}

func TestService_UnknownTool(t *testing.T) {
	svc := New(newTestCatalogue(), nil)
	params, _ := json.Marshal(struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{Name: "not-a-real-tool", Arguments: json.RawMessage(`{}`)})

	resp, err := svc.Send(context.Background(), req("tools/call", params))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
}
