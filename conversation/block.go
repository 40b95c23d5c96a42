// Package conversation holds the vendor-neutral message and content-block
// model shared by the Agent, Agent Loop, and Toolbox, plus translation to
// and from the wire format of a specific LLM vendor.
package conversation

import "encoding/json"

// Role identifies who produced a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind tags the concrete type of a ContentBlock.
type BlockKind string

const (
	KindText          BlockKind = "text"
	KindThinking      BlockKind = "thinking"
	KindToolUse       BlockKind = "tool_use"
	KindToolResult    BlockKind = "tool_result"
	KindUserInput     BlockKind = "user_input"
	KindFinalResponse BlockKind = "final_response"
	KindException     BlockKind = "exception"
)

// ContentBlock is the tagged-sum interface implemented by every block
// variant. Each variant carries its own fields; there is no shared base
// struct to avoid a virtual-hierarchy shape (see DESIGN.md).
type ContentBlock interface {
	Kind() BlockKind
	// UserFacing reports whether this block should appear in the compact
	// REPL projection (spec.md §7: "user-facing text plus final response
	// plus exception messages").
	UserFacing() bool
}

// Text is ordinary model or user prose. Thinking blocks are never
// user-facing; Text blocks are, unless explicitly marked otherwise (e.g.
// the raw pre-sentinel-detection body is discarded, not surfaced).
type Text struct {
	TextValue  string
	IsUserFace bool
}

func (Text) Kind() BlockKind     { return KindText }
func (t Text) UserFacing() bool  { return t.IsUserFace }
func NewText(text string) Text   { return Text{TextValue: text, IsUserFace: true} }

// Thinking carries extended-reasoning content and its cryptographic
// signature. Never rendered to the end user.
type Thinking struct {
	Signature string
	TextValue string
}

func (Thinking) Kind() BlockKind    { return KindThinking }
func (Thinking) UserFacing() bool   { return false }

// ToolUse is a model-issued tool invocation request. ID is an opaque
// correlation token from the model, reused verbatim by the matching
// ToolResult (invariant I1).
type ToolUse struct {
	ID   string
	Name string
	Args json.RawMessage
}

func (ToolUse) Kind() BlockKind   { return KindToolUse }
func (ToolUse) UserFacing() bool  { return false }

// ToolResult is the Toolbox's response to a ToolUse, correlated by
// ToolUseID. Content is restricted to text — image parts are rejected at
// ingest (spec.md §4.2, §4.4).
type ToolResult struct {
	ToolUseID string
	Content   []Text
	IsError   bool
}

func (ToolResult) Kind() BlockKind  { return KindToolResult }
func (ToolResult) UserFacing() bool { return false }

// JoinedText concatenates the result's text content for logging/dispatch.
func (r ToolResult) JoinedText() string {
	out := ""
	for i, t := range r.Content {
		if i > 0 {
			out += "\n"
		}
		out += t.TextValue
	}
	return out
}

// UserInput is a userFacing sentinel that terminates a turn by asking the
// human for more information.
type UserInput struct {
	Request string
}

func (UserInput) Kind() BlockKind  { return KindUserInput }
func (UserInput) UserFacing() bool { return true }

// FinalResponse is a userFacing sentinel that terminates a turn with the
// agent's answer.
type FinalResponse struct {
	Response string
}

func (FinalResponse) Kind() BlockKind  { return KindFinalResponse }
func (FinalResponse) UserFacing() bool { return true }

// Exception is a userFacing, non-terminating surface for a caught error.
type Exception struct {
	Message string
}

func (Exception) Kind() BlockKind  { return KindException }
func (Exception) UserFacing() bool { return true }
