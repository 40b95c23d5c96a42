package permission_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/relaymesh/toolmesh/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeDefault_AsksForUnmatchedTool(t *testing.T) {
	checker := permission.NewChecker(permission.ModeDefault, nil)
	d, err := checker.Check(context.Background(), "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Ask, d)
}

func TestModeAcceptEdits_AllowsUnmatchedTool(t *testing.T) {
	checker := permission.NewChecker(permission.ModeAcceptEdits, nil)
	d, err := checker.Check(context.Background(), "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Allow, d)
}

func TestModeBypassPermissions_AllowsEverything(t *testing.T) {
	checker := permission.NewChecker(permission.ModeBypassPermissions, nil)
	ctx := context.Background()
	for _, tool := range []string{"fetch-url", "query-tools", "delete-tool", "anything"} {
		d, err := checker.Check(ctx, tool, nil)
		require.NoError(t, err)
		assert.Equal(t, permission.Allow, d, "tool %s should be allowed in bypass mode", tool)
	}
}

func TestModePlan_DeniesUnmatchedTool(t *testing.T) {
	checker := permission.NewChecker(permission.ModePlan, nil)
	d, err := checker.Check(context.Background(), "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Deny, d)
}

func TestCustomCanUseTool_OverridesMode(t *testing.T) {
	alwaysDeny := func(ctx context.Context, toolName string, input json.RawMessage) (permission.Decision, error) {
		return permission.Deny, nil
	}

	checker := permission.NewChecker(permission.ModeBypassPermissions, alwaysDeny)
	ctx := context.Background()

	d, err := checker.Check(ctx, "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Deny, d, "custom callback should override mode")
}

func TestSetMode(t *testing.T) {
	checker := permission.NewChecker(permission.ModeDefault, nil)
	ctx := context.Background()

	d, err := checker.Check(ctx, "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Ask, d)

	checker.SetMode(permission.ModeAcceptEdits)
	assert.Equal(t, permission.ModeAcceptEdits, checker.Mode())

	d, err = checker.Check(ctx, "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Allow, d)

	checker.SetMode(permission.ModePlan)
	d, err = checker.Check(ctx, "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Deny, d)
}

func TestSetRules_TakesPrecedenceOverMode(t *testing.T) {
	checker := permission.NewChecker(permission.ModeDefault, nil)
	checker.SetRules([]permission.Rule{
		{Pattern: "danger-*", Decision: permission.Deny},
		{Pattern: "*", Decision: permission.Allow},
	})
	ctx := context.Background()

	d, err := checker.Check(ctx, "danger-delete", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Deny, d)

	d, err = checker.Check(ctx, "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Allow, d)
}

func TestNilCanUseToolUsesMode(t *testing.T) {
	checker := permission.NewChecker(permission.ModeDefault, nil)
	d, err := checker.Check(context.Background(), "fetch-url", nil)
	require.NoError(t, err)
	assert.Equal(t, permission.Ask, d)
}
