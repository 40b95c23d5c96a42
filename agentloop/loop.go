// Package agentloop implements the Agent Loop of spec.md §4.10: a bounded
// iterative turn controller alternating model calls and tool dispatch.
package agentloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/relaymesh/toolmesh/agent"
	"github.com/relaymesh/toolmesh/conversation"
	"github.com/relaymesh/toolmesh/toolbox"
)

// Loop drives a full user turn against an Agent and a Toolbox, per the
// AWAIT_USER / MODEL_CALL / DISPATCH_TOOLS / TERMINAL state machine.
// Implemented iteratively, not recursively — depth is just a counter, and
// Go's goroutine stacks make recursion here an unforced stylistic choice
// with no benefit.
type Loop struct {
	agent   agent.Agent
	toolbox *toolbox.Toolbox
	cfg     config
}

// New builds a Loop driving a against tb.
func New(a agent.Agent, tb *toolbox.Toolbox, opts ...Option) *Loop {
	return &Loop{agent: a, toolbox: tb, cfg: newConfig(opts)}
}

// Run executes one full user turn: it appends query as a user message to
// conv, then alternates Agent.Chat calls and Toolbox dispatch until a
// terminal sentinel, an exception, or the depth cap is reached. conv is
// mutated in place; the turn's outcome is reflected entirely in its final
// contents (UserInput, FinalResponse, or a diagnostic Exception/Text) — Run
// itself only returns an error for a context cancellation the caller should
// treat as aborting the whole session, not just the turn.
func (l *Loop) Run(ctx context.Context, conv *conversation.Conversation, query string) error {
	conv.Append(conversation.NewMessage(conversation.RoleUser, conversation.NewText(query)))

	depth := 0
	for {
		if err := ctx.Err(); err != nil {
			conv.Append(conversation.NewMessage(conversation.RoleSystem, conversation.Exception{Message: err.Error()}))
			return err
		}

		blocks, err := l.agent.Chat(ctx, *conv, l.toolbox.AvailableTools())
		if err != nil {
			conv.Append(conversation.NewMessage(conversation.RoleSystem, conversation.Exception{Message: err.Error()}))
			return nil
		}

		terminated := l.dispatchBlocks(ctx, conv, blocks, depth)
		if terminated {
			return nil
		}

		if depth >= l.cfg.maxDepth {
			conv.Append(conversation.NewMessage(conversation.RoleSystem,
				conversation.NewText(fmt.Sprintf("agent loop: depth cap (%d) reached without a final response", l.cfg.maxDepth))))
			return nil
		}
		depth++
		l.cfg.logger.Debug("agentloop: continuing", zap.Int("depth", depth))
	}
}

// dispatchBlocks walks one model response's blocks in emission order,
// flushing scratch assistant content and dispatching ToolUse blocks as it
// goes. Returns true if the turn reached TERMINAL.
func (l *Loop) dispatchBlocks(ctx context.Context, conv *conversation.Conversation, blocks []conversation.ContentBlock, depth int) bool {
	scratch := conversation.NewMessage(conversation.RoleAssistant)
	flush := func() {
		if len(scratch.Content) > 0 {
			conv.Append(scratch)
			scratch = conversation.NewMessage(conversation.RoleAssistant)
		}
	}

	for i, block := range blocks {
		switch b := block.(type) {
		case conversation.Text, conversation.Thinking:
			scratch = scratch.Append(block)

		case conversation.ToolUse:
			scratch = scratch.Append(block)
			flush()
			result := l.toolbox.ExecuteTool(ctx, b)
			conv.Append(conversation.NewMessage(conversation.RoleUser, result))

		case conversation.UserInput:
			scratch = scratch.Append(block)
			flush()
			return true

		case conversation.FinalResponse:
			scratch = scratch.Append(block)
			flush()
			if remaining := blocks[i+1:]; len(remaining) > 0 {
				l.cfg.logger.Warn("agentloop: final response followed by additional blocks, dropping",
					zap.Int("depth", depth), zap.Int("dropped", len(remaining)))
			}
			return true

		default:
			l.cfg.logger.Warn("agentloop: unrecognized content block, dropping", zap.String("kind", string(block.Kind())))
		}
	}

	flush()
	return false
}
