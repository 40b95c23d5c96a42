// Package agent implements the Agent component of spec.md §4.9: a
// stateless per-turn contract translating a Conversation and a tool list
// into new content blocks via one vendor LLM call.
package agent

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/relaymesh/toolmesh/conversation"
)

// ToolDescriptor is the minimal shape the Agent needs to advertise a tool to
// the vendor — it is translated 1:1 from registry/catalogue.ToolDescriptor
// by the Toolbox, keeping this package free of a dependency on the registry.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Agent is implemented by every vendor adapter. It never sees the Toolbox —
// it only translates blocks and makes one request.
type Agent interface {
	Chat(ctx context.Context, conv conversation.Conversation, tools []ToolDescriptor) ([]conversation.ContentBlock, error)
}

// AnthropicAgent adapts the Anthropic Messages API.
type AnthropicAgent struct {
	client       *anthropic.Client
	model        anthropic.Model
	systemPrompt string
	maxTokens    int64
}

// New constructs an AnthropicAgent. model and systemPrompt are fixed for the
// life of the Agent, per spec.md §4.9 ("It carries its own system prompt,
// model name, and max-token setting").
func New(model string, systemPrompt string, maxTokens int64) *AnthropicAgent {
	client := anthropic.NewClient()
	return &AnthropicAgent{
		client:       &client,
		model:        anthropic.Model(model),
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
	}
}

// Chat makes one Messages API call and translates the response back into
// neutral content blocks, including sentinel detection.
func (a *AnthropicAgent) Chat(ctx context.Context, conv conversation.Conversation, tools []ToolDescriptor) ([]conversation.ContentBlock, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  conversation.ToWireMessages(conv.Messages),
	}

	if a.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.systemPrompt}}
	}

	if len(tools) > 0 {
		params.Tools = toWireTools(tools)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("agent: messages.new: %w", err)
	}

	blocks, err := conversation.FromWireMessage(msg.Content)
	if err != nil {
		return nil, fmt.Errorf("agent: translate response: %w", err)
	}
	return blocks, nil
}

func toWireTools(tools []ToolDescriptor) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.InputSchema["properties"],
					Required:   requiredStrings(t.InputSchema["required"]),
				},
			},
		})
	}
	return out
}

func requiredStrings(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
