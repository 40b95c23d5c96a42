// Package permission gates whether a tool call the Toolbox is about to
// forward to an upstream MCP server may proceed (spec.md §4.8's
// supplemented hook/permission interception point).
package permission

import (
	"context"
	"encoding/json"
)

// Decision represents the outcome of a permission check.
type Decision int

const (
	Allow Decision = iota // Tool execution is permitted
	Deny                  // Tool execution is blocked
	Ask                   // User should be prompted for confirmation
)

// Mode controls the default permission behavior when no Rule matches and
// no Func callback is set. Tool names reaching the Toolbox are arbitrary
// capabilities advertised by whatever upstream MCP server registered
// them — there is no fixed read/write taxonomy to fall back on the way a
// closed set of builtin tools would allow, so the mode-only default is the
// same decision for every tool name; per-name policy belongs in Rules.
type Mode int

const (
	ModeDefault           Mode = iota // unmatched tool asks
	ModeAcceptEdits                   // unmatched tool allowed
	ModeBypassPermissions             // all allowed
	ModePlan                          // unmatched tool denied
)

// Func is a user-provided permission callback. It receives the tool name
// and input, and returns a Decision. Takes precedence over Mode and Rules.
type Func func(ctx context.Context, toolName string, input json.RawMessage) (Decision, error)

// Checker evaluates whether a tool can be used. Precedence: Func callback,
// then Rules (glob-matched against the tool name), then Mode's default.
type Checker struct {
	mode       Mode
	rules      []Rule
	canUseTool Func
}

// NewChecker creates a permission checker with the given mode.
func NewChecker(mode Mode, canUseTool Func) *Checker {
	return &Checker{mode: mode, canUseTool: canUseTool}
}

// NewCheckerWithRules creates a permission checker with the given mode,
// rule set, and Func callback.
func NewCheckerWithRules(mode Mode, rules []Rule, canUseTool Func) *Checker {
	return &Checker{mode: mode, rules: rules, canUseTool: canUseTool}
}

// SetRules installs the glob-pattern rule set consulted between the Func
// callback and the Mode default.
func (c *Checker) SetRules(rules []Rule) {
	c.rules = rules
}

// Check evaluates whether the named tool with the given input is allowed.
func (c *Checker) Check(ctx context.Context, toolName string, input json.RawMessage) (Decision, error) {
	if c.canUseTool != nil {
		return c.canUseTool(ctx, toolName, input)
	}

	if len(c.rules) > 0 {
		if d, matched := MatchRules(c.rules, toolName); matched {
			return d, nil
		}
	}

	switch c.mode {
	case ModeBypassPermissions:
		return Allow, nil
	case ModePlan:
		return Deny, nil
	case ModeAcceptEdits:
		return Allow, nil
	default: // ModeDefault
		return Ask, nil
	}
}

// Mode returns the current permission mode.
func (c *Checker) Mode() Mode {
	return c.mode
}

// SetMode updates the permission mode.
func (c *Checker) SetMode(mode Mode) {
	c.mode = mode
}
