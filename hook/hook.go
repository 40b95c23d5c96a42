// Package hook defines public types for the tool-call hook system.
//
// Hooks let a caller register callbacks that fire before and after a
// Toolbox dispatches a tool call. A Stop event is also defined, but neither
// the Toolbox nor the Agent Loop fires it. The
// [Matcher] type binds a set of [Func] callbacks to a specific [Event] and
// an optional tool-name regex pattern.
package hook

import (
	"context"
	"encoding/json"
	"time"
)

// Event identifies when a hook fires. Restricted to the tool-dispatch
// lifecycle the Toolbox actually exercises (spec.md §4.8) — session,
// compaction, API-request, notification, subagent, and permission-request
// events from the original hook system don't apply to a gateway that has
// no sessions, no compaction, and no subagents of its own. Of these events
// the Toolbox fires only the three tool events; Stop is fired only by a
// direct call to the hook runner's RunStop.
type Event string

const (
	PreToolUse         Event = "PreToolUse"
	PostToolUse        Event = "PostToolUse"
	PostToolUseFailure Event = "PostToolUseFailure"
	Stop               Event = "Stop"
)

// Input is passed to hook functions.
type Input struct {
	SessionID  string
	Event      Event
	ToolName   string          // Tool-related events.
	ToolInput  json.RawMessage // PreToolUse, PostToolUse, PostToolUseFailure.
	ToolOutput string          // PostToolUse.
	ToolError  error           // PostToolUseFailure.
}

// Result is returned by hook functions. A zero value means "no action".
type Result struct {
	Block        bool            // If true, blocks the tool from executing.
	Reason       string          // Human-readable reason for blocking.
	UpdatedInput json.RawMessage // If non-nil, replaces the tool input (PreToolUse only).
	Decision     string          // "allow", "deny", "ask" — for permission hooks.
}

// Func is the signature for hook callbacks.
type Func func(ctx context.Context, input *Input) (*Result, error)

// Matcher defines which events a set of hooks should fire for.
type Matcher struct {
	Event   Event         // Which event to match.
	Pattern string        // Regex pattern for tool name (empty = match all).
	Hooks   []Func        // Functions to call (in order).
	Timeout time.Duration // Max time for all hooks in this matcher (0 = 30s default).
}
