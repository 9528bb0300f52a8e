package runtime

import (
	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

// Event is emitted by RunStream. Every run starts with StreamStarted and
// ends with StreamStopped.
type Event interface {
	isEvent()
}

type StreamStartedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

func StreamStarted(sessionID string) Event {
	return &StreamStartedEvent{
		Type:      "stream_started",
		SessionID: sessionID,
	}
}

func (e *StreamStartedEvent) isEvent() {}

// AgentChoiceEvent carries one fragment of assistant text.
type AgentChoiceEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func AgentChoice(content string) Event {
	return &AgentChoiceEvent{
		Type:    "agent_choice",
		Content: content,
	}
}

func (e *AgentChoiceEvent) isEvent() {}

// PartialToolCallEvent is sent when the model opens a tool call, before
// its arguments are complete.
type PartialToolCallEvent struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

func PartialToolCall(index int, id, name string) Event {
	return &PartialToolCallEvent{
		Type:  "partial_tool_call",
		ID:    id,
		Name:  name,
		Index: index,
	}
}

func (e *PartialToolCallEvent) isEvent() {}

type ToolCallEvent struct {
	Type     string        `json:"type"`
	ToolCall chat.ToolCall `json:"tool_call"`
}

func ToolCall(toolCall chat.ToolCall) Event {
	return &ToolCallEvent{
		Type:     "tool_call",
		ToolCall: toolCall,
	}
}

func (e *ToolCallEvent) isEvent() {}

type ToolCallResponseEvent struct {
	Type     string        `json:"type"`
	ToolCall chat.ToolCall `json:"tool_call"`
	Response string        `json:"response"`
	Success  bool          `json:"success"`
}

func ToolCallResponse(toolCall chat.ToolCall, response string, success bool) Event {
	return &ToolCallResponseEvent{
		Type:     "tool_call_response",
		ToolCall: toolCall,
		Response: response,
		Success:  success,
	}
}

func (e *ToolCallResponseEvent) isEvent() {}

// TokenUsageEvent reports the cumulative token counters of the session.
type TokenUsageEvent struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

func TokenUsage(sessionID string, input, output int64) Event {
	return &TokenUsageEvent{
		Type:         "token_usage",
		SessionID:    sessionID,
		InputTokens:  input,
		OutputTokens: output,
	}
}

func (e *TokenUsageEvent) isEvent() {}

// MaxRoundsReachedEvent ends a run whose round budget ran out while the
// model kept calling tools. Content holds the text produced across all
// rounds.
type MaxRoundsReachedEvent struct {
	Type      string `json:"type"`
	MaxRounds int    `json:"max_rounds"`
	Content   string `json:"content"`
}

func MaxRoundsReached(maxRounds int, content string) Event {
	return &MaxRoundsReachedEvent{
		Type:      "max_rounds_reached",
		MaxRounds: maxRounds,
		Content:   content,
	}
}

func (e *MaxRoundsReachedEvent) isEvent() {}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func Error(msg, code string) Event {
	return &ErrorEvent{
		Type:  "error",
		Error: msg,
		Code:  code,
	}
}

func (e *ErrorEvent) isEvent() {}

type StreamStoppedEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
}

func StreamStopped(sessionID string) Event {
	return &StreamStoppedEvent{
		Type:      "stream_stopped",
		SessionID: sessionID,
	}
}

func (e *StreamStoppedEvent) isEvent() {}
