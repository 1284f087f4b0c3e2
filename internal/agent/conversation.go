package agent

import "github.com/cloudwego/eino/schema"

// EventKind classifies entries in a conversation's turn log.
type EventKind string

const (
	EventModelText   EventKind = "model_text"
	EventToolRequest EventKind = "tool_request"
	EventToolResult  EventKind = "tool_result"
)

// TurnEvent is one append-only entry in the conversation log.
type TurnEvent struct {
	Kind EventKind
	Tool string
	Text string
}

// ToolCallRecord captures one executed tool call for auditing and grading.
type ToolCallRecord struct {
	Tool   string `json:"tool"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Conversation accumulates the state of one agent run: the wire messages
// sent to the model, a human-readable turn log, and the tool audit trail.
// It is owned by a single run and not safe for concurrent use.
type Conversation struct {
	messages   []*schema.Message
	events     []TurnEvent
	toolCalls  []ToolCallRecord
	iterations int
	terminal   bool
}

// NewConversation starts a conversation from the initial prompt messages.
func NewConversation(initial []*schema.Message) *Conversation {
	return &Conversation{messages: initial}
}

// Messages returns the wire messages for the next model call.
func (c *Conversation) Messages() []*schema.Message {
	return c.messages
}

// Iterations returns how many model turns have completed.
func (c *Conversation) Iterations() int {
	return c.iterations
}

// Terminal reports whether the model has produced a final answer.
func (c *Conversation) Terminal() bool {
	return c.terminal
}

// Events returns the turn log in order.
func (c *Conversation) Events() []TurnEvent {
	return c.events
}

// ToolCalls returns the tool audit trail in execution order.
func (c *Conversation) ToolCalls() []ToolCallRecord {
	return c.toolCalls
}

// AddModelTurn appends a model response. A response without tool calls
// marks the conversation terminal.
func (c *Conversation) AddModelTurn(msg *schema.Message) {
	c.iterations++
	c.messages = append(c.messages, msg)
	if msg.Content != "" {
		c.events = append(c.events, TurnEvent{Kind: EventModelText, Text: msg.Content})
	}
	for _, tc := range msg.ToolCalls {
		c.events = append(c.events, TurnEvent{
			Kind: EventToolRequest,
			Tool: tc.Function.Name,
			Text: tc.Function.Arguments,
		})
	}
	if len(msg.ToolCalls) == 0 {
		c.terminal = true
	}
}

// AddToolResults appends tool result messages in call order and records
// the audit trail.
func (c *Conversation) AddToolResults(results []*schema.Message, records []ToolCallRecord) {
	c.messages = append(c.messages, results...)
	for _, r := range results {
		c.events = append(c.events, TurnEvent{Kind: EventToolResult, Text: r.Content})
	}
	c.toolCalls = append(c.toolCalls, records...)
}

// FinalText returns the last model text, or empty if none was produced.
func (c *Conversation) FinalText() string {
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Kind == EventModelText {
			return c.events[i].Text
		}
	}
	return ""
}
