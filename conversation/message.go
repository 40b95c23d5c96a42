package conversation

// Message is an ordered sequence of content blocks attributed to a single
// role. Within a turn a Message is built up append-only via scratch
// accumulation in the Agent Loop; once flushed into a Conversation it is
// treated as immutable by convention (callers should not mutate a Message
// after it has been appended to a Conversation).
type Message struct {
	Role    Role
	Content []ContentBlock
}

// NewMessage constructs a Message from a role and an initial set of blocks.
func NewMessage(role Role, blocks ...ContentBlock) Message {
	return Message{Role: role, Content: append([]ContentBlock{}, blocks...)}
}

// Append adds a block to the message and returns the updated message value.
func (m Message) Append(block ContentBlock) Message {
	m.Content = append(m.Content, block)
	return m
}

// Conversation is an ordered sequence of Messages.
type Conversation struct {
	Messages []Message
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
}

// Last returns the final message in the conversation, or the zero Message
// and false if the conversation is empty.
func (c *Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ToolUseByID scans the conversation for a ToolUse block with the given id,
// used to validate invariant I1 (every ToolResult matches a preceding
// ToolUse).
func (c *Conversation) ToolUseByID(id string) (ToolUse, bool) {
	for _, msg := range c.Messages {
		for _, block := range msg.Content {
			if tu, ok := block.(ToolUse); ok && tu.ID == id {
				return tu, true
			}
		}
	}
	return ToolUse{}, false
}

// UserFacingProjection returns the compact projection described in
// spec.md §7: user-facing text, final response, and exception messages, in
// conversation order.
func (c *Conversation) UserFacingProjection() []string {
	var lines []string
	for _, msg := range c.Messages {
		for _, block := range msg.Content {
			if !block.UserFacing() {
				continue
			}
			switch b := block.(type) {
			case Text:
				lines = append(lines, b.TextValue)
			case UserInput:
				lines = append(lines, b.Request)
			case FinalResponse:
				lines = append(lines, b.Response)
			case Exception:
				lines = append(lines, "error: "+b.Message)
			}
		}
	}
	return lines
}
