package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/registry/catalogue"
	"github.com/relaymesh/toolmesh/registry/service"
)

func newTestClient() *Client {
	cat := catalogue.New(catalogue.NewMemoryStore(), catalogue.NewHashEmbedder(), nil, nil)
	svc := service.New(cat, nil)
	mcpClient := mcp.NewClient(mcp.ServerDescriptor{URL: "registry", Transport: mcp.TransportStdio}, svc, nil)
	return New(mcpClient, nil)
}

func TestClient_IsRegistryTool(t *testing.T) {
	c := newTestClient()
	for _, n := range service.ToolNames {
		assert.True(t, c.IsRegistryTool(n))
	}
	assert.False(t, c.IsRegistryTool("fetch"))
}

func TestClient_AddToolListToolsRoundTrip(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	addRes, err := c.AddTool(ctx, catalogue.ToolDescriptor{Name: "greet", Description: "say hello"})
	require.NoError(t, err)
	assert.Equal(t, "greet", addRes.Value.Name)
	assert.Contains(t, addRes.Summary, "greet")
	assert.NotEmpty(t, addRes.RawJSON)

	listRes, err := c.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, listRes.Value, 1)
	assert.Equal(t, "greet", listRes.Value[0].Name)
}

func TestClient_QueryTools_Empty(t *testing.T) {
	c := newTestClient()
	res, err := c.QueryTools(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, res.Value)
}

func TestClient_DeleteTool(t *testing.T) {
	c := newTestClient()
	ctx := context.Background()

	_, err := c.AddTool(ctx, catalogue.ToolDescriptor{Name: "greet"})
	require.NoError(t, err)

	delRes, err := c.DeleteTool(ctx, "greet")
	require.NoError(t, err)
	assert.True(t, delRes.Value)

	delRes, err = c.DeleteTool(ctx, "greet")
	require.NoError(t, err)
	assert.False(t, delRes.Value)
}

func TestClient_AddTool_ErrorSurfacesSummary(t *testing.T) {
	c := newTestClient()
	_, err := c.AddTool(context.Background(), catalogue.ToolDescriptor{Name: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty tool name")
}
