package agentloop

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaymesh/toolmesh/agent"
	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/mcp"
	"github.com/relaymesh/toolmesh/pool"
	"github.com/relaymesh/toolmesh/toolbox"
)

// scriptedAgent returns one canned response per call, in order. Calling it
// more times than scripted is a test bug and panics loudly.
type scriptedAgent struct {
	responses [][]conversation.ContentBlock
	errs      []error
	calls     int
}

func (a *scriptedAgent) Chat(_ context.Context, _ conversation.Conversation, _ []agent.ToolDescriptor) ([]conversation.ContentBlock, error) {
	i := a.calls
	a.calls++
	if i >= len(a.responses) {
		panic("scriptedAgent: ran out of scripted responses")
	}
	var err error
	if i < len(a.errs) {
		err = a.errs[i]
	}
	return a.responses[i], err
}

func newTestToolbox() *toolbox.Toolbox {
	connPool := pool.New[string, *mcp.Client](pool.Config[*mcp.Client]{})
	return toolbox.New(connPool, nil)
}

func TestLoop_FinalResponseTerminates(t *testing.T) {
	a := &scriptedAgent{responses: [][]conversation.ContentBlock{
		{conversation.NewText("thinking out loud"), conversation.FinalResponse{Response: "done"}},
	}}
	loop := New(a, newTestToolbox())
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))
	assert.Equal(t, 1, a.calls)

	proj := conv.UserFacingProjection()
	assert.Contains(t, proj, "done")
}

func TestLoop_UserInputTerminates(t *testing.T) {
	a := &scriptedAgent{responses: [][]conversation.ContentBlock{
		{conversation.UserInput{Request: "which file?"}},
	}}
	loop := New(a, newTestToolbox())
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))
	proj := conv.UserFacingProjection()
	assert.Contains(t, proj, "which file?")
}

func TestLoop_ToolUseThenFinalResponse(t *testing.T) {
	connPool := pool.New[string, *mcp.Client](pool.Config[*mcp.Client]{})
	tb := toolbox.New(connPool, nil)

	a := &scriptedAgent{responses: [][]conversation.ContentBlock{
		{conversation.ToolUse{ID: "tu1", Name: "nonexistent", Args: json.RawMessage(`{}`)}},
		{conversation.FinalResponse{Response: "all done"}},
	}}
	loop := New(a, tb)
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))
	assert.Equal(t, 2, a.calls)

	result, ok := conv.ToolUseByID("tu1")
	assert.True(t, ok)
	assert.Equal(t, "nonexistent", result.Name)

	var sawToolResult bool
	for _, msg := range conv.Messages {
		for _, block := range msg.Content {
			if tr, ok := block.(conversation.ToolResult); ok {
				sawToolResult = true
				assert.True(t, tr.IsError)
				assert.Equal(t, "tu1", tr.ToolUseID)
			}
		}
	}
	assert.True(t, sawToolResult)
}

func TestLoop_FinalResponseWinsOverTrailingToolUse(t *testing.T) {
	a := &scriptedAgent{responses: [][]conversation.ContentBlock{
		{
			conversation.FinalResponse{Response: "the answer"},
			conversation.ToolUse{ID: "tu-dropped", Name: "whatever"},
		},
	}}
	loop := New(a, newTestToolbox())
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))
	assert.Equal(t, 1, a.calls)

	_, ok := conv.ToolUseByID("tu-dropped")
	assert.False(t, ok, "trailing ToolUse after FinalResponse must be dropped")
}

func TestLoop_DepthCapTerminatesWithDiagnostic(t *testing.T) {
	responses := make([][]conversation.ContentBlock, 0)
	for i := 0; i < 20; i++ {
		responses = append(responses, []conversation.ContentBlock{conversation.NewText("still working")})
	}
	a := &scriptedAgent{responses: responses}
	loop := New(a, newTestToolbox(), WithMaxDepth(3))
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))
	assert.Equal(t, 4, a.calls) // depth 0..3 inclusive before the cap fires

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, conversation.RoleSystem, last.Role)
}

func TestLoop_AgentErrorAppendsExceptionAndTerminates(t *testing.T) {
	a := &scriptedAgent{
		responses: [][]conversation.ContentBlock{{}},
		errs:      []error{assert.AnError},
	}
	loop := New(a, newTestToolbox())
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))
	assert.Equal(t, 1, a.calls)

	proj := conv.UserFacingProjection()
	require.Len(t, proj, 2)
	assert.Contains(t, proj[1], "error:")
}

func TestLoop_MultipleToolUsesSequential(t *testing.T) {
	a := &scriptedAgent{responses: [][]conversation.ContentBlock{
		{
			conversation.ToolUse{ID: "tu1", Name: "missing-a"},
			conversation.ToolUse{ID: "tu2", Name: "missing-b"},
		},
		{conversation.FinalResponse{Response: "done"}},
	}}
	loop := New(a, newTestToolbox())
	conv := &conversation.Conversation{}

	require.NoError(t, loop.Run(context.Background(), conv, "hello"))

	var order []string
	for _, msg := range conv.Messages {
		for _, block := range msg.Content {
			if tr, ok := block.(conversation.ToolResult); ok {
				order = append(order, tr.ToolUseID)
			}
		}
	}
	assert.Equal(t, []string{"tu1", "tu2"}, order)
}
