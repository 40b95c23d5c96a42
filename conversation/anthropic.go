package conversation

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrImageContent is returned by FromWireMessage for any vendor tool_result
// block in a response; the block's content parts are not inspected, so a
// text-only tool_result is rejected too. Images are not carried through tool
// results in this gateway
// (spec.md §4.2, §9 — the source's TODO to add them is explicitly not
// picked up here).
var ErrImageContent = errors.New("conversation: image content in tool result is not supported")

// ToWireRole maps a neutral Role onto the vendor's message role. System
// messages are not representable as a vendor MessageParam — callers send
// the system prompt out of band (as the Agent's configured system prompt)
// and must not include RoleSystem messages in the wire translation.
func ToWireRole(r Role) anthropic.MessageParamRole {
	switch r {
	case RoleUser:
		return anthropic.MessageParamRoleUser
	case RoleAssistant:
		return anthropic.MessageParamRoleAssistant
	default:
		return anthropic.MessageParamRoleUser
	}
}

// ToWireMessages translates every non-system Message in the conversation
// into vendor MessageParams, in order.
func ToWireMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, anthropic.MessageParam{
			Role:    ToWireRole(m.Role),
			Content: toWireBlocks(m.Content),
		})
	}
	return out
}

func toWireBlocks(blocks []ContentBlock) []anthropic.ContentBlockParamUnion {
	out := make([]anthropic.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch v := b.(type) {
		case Text:
			out = append(out, anthropic.NewTextBlock(v.TextValue))
		case UserInput:
			out = append(out, anthropic.NewTextBlock(markerUserInput+": "+v.Request))
		case FinalResponse:
			out = append(out, anthropic.NewTextBlock(markerFinalResponse+": "+v.Response))
		case Exception:
			out = append(out, anthropic.NewTextBlock(v.Message))
		case ToolUse:
			out = append(out, anthropic.NewToolUseBlock(v.ID, v.Args, v.Name))
		case ToolResult:
			out = append(out, anthropic.NewToolResultBlock(v.ToolUseID, v.JoinedText(), v.IsError))
		case Thinking:
			out = append(out, anthropic.NewThinkingBlock(v.Signature, v.TextValue))
		}
	}
	return out
}

// FromWireMessage translates one assistant turn's response content blocks
// into the neutral block set, applying sentinel detection and the
// text-hygiene pass to every Text block along the way.
func FromWireMessage(content []anthropic.ContentBlockUnion) ([]ContentBlock, error) {
	out := make([]ContentBlock, 0, len(content))
	for _, block := range content {
		switch block.Type {
		case "text":
			cleaned := cleanText(block.Text)
			if sentinel, ok := detectSentinel(cleaned); ok {
				out = append(out, sentinel)
				continue
			}
			out = append(out, NewText(cleaned))
		case "thinking":
			out = append(out, Thinking{Signature: block.Signature, TextValue: block.Thinking})
		case "tool_use":
			tu := block.AsToolUse()
			out = append(out, ToolUse{ID: tu.ID, Name: tu.Name, Args: []byte(tu.Input)})
		case "tool_result":
			return nil, ErrImageContent
		default:
			// Unrecognized block types (e.g. redacted_thinking) are dropped
			// rather than surfaced — they carry no user-facing or dispatch
			// meaning in this gateway.
		}
	}
	return out, nil
}

// HasImageToolResult reports whether any of parts is an image content item.
// The MCP Client ingest path does not call it; that path rejects image
// content with its own check, mcp.CallToolResult.HasImageContent.
func HasImageToolResult(parts []ContentItemKind) bool {
	for _, p := range parts {
		if p == ContentItemImage {
			return true
		}
	}
	return false
}

// ContentItemKind tags a raw MCP tool-result content item.
type ContentItemKind int

const (
	ContentItemText ContentItemKind = iota
	ContentItemImage
)
