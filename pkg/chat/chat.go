package chat

import "time"

type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// Message is one turn of a conversation. Messages are never modified once
// appended to a transcript.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
	// ToolCalls is only set on assistant messages.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID and IsError are only set on tool messages.
	ToolCallID string    `json:"tool_call_id,omitempty"`
	IsError    bool      `json:"is_error,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
}

// ToolCall is a complete tool invocation requested by the model. Arguments
// holds the raw JSON text as streamed.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func UserMessage(content string) Message {
	return Message{Role: MessageRoleUser, Content: content, CreatedAt: time.Now()}
}

func SystemMessage(content string) Message {
	return Message{Role: MessageRoleSystem, Content: content, CreatedAt: time.Now()}
}

func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: MessageRoleAssistant, Content: content, ToolCalls: calls, CreatedAt: time.Now()}
}

func ToolResultMessage(callID, output string) Message {
	return Message{Role: MessageRoleTool, Content: output, ToolCallID: callID, CreatedAt: time.Now()}
}
