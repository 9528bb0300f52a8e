package runtime

import (
	"log/slog"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
)

const cancelledToolResult = "(tool execution cancelled)"

// repairToolResults returns history with a failed result inserted for
// every assistant tool call that has none. Both dialects reject a history
// where a tool call is not answered before the next turn. A run stopped
// between two tool calls stores exactly such a history. Stored messages
// are left untouched.
func repairToolResults(history []chat.Message) []chat.Message {
	repaired := make([]chat.Message, 0, len(history))
	for i := 0; i < len(history); {
		msg := history[i]
		repaired = append(repaired, msg)
		i++
		if msg.Role != chat.MessageRoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		answered := make(map[string]bool, len(msg.ToolCalls))
		for ; i < len(history) && history[i].Role == chat.MessageRoleTool; i++ {
			answered[history[i].ToolCallID] = true
			repaired = append(repaired, history[i])
		}

		for _, call := range msg.ToolCalls {
			if answered[call.ID] {
				continue
			}
			slog.Warn("Tool call without a result in history", "tool", call.Name, "tool_call_id", call.ID)
			result := chat.ToolResultMessage(call.ID, cancelledToolResult)
			result.IsError = true
			repaired = append(repaired, result)
		}
	}
	return repaired
}
