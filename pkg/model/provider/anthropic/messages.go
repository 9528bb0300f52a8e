package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// convertMessages maps the transcript onto Anthropic messages. System
// messages are lifted out by systemBlocks. Consecutive tool results are
// grouped into the single user message Anthropic expects after tool_use.
func convertMessages(messages []chat.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for i := 0; i < len(messages); i++ {
		msg := &messages[i]

		switch msg.Role {
		case chat.MessageRoleUser:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case chat.MessageRoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if txt := strings.TrimSpace(msg.Content); txt != "" {
				blocks = append(blocks, anthropic.NewTextBlock(txt))
			}
			for _, call := range msg.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(call.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: input,
					},
				})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}

		case chat.MessageRoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			j := i
			for ; j < len(messages) && messages[j].Role == chat.MessageRoleTool; j++ {
				blocks = append(blocks, anthropic.NewToolResultBlock(messages[j].ToolCallID, messages[j].Content, messages[j].IsError))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))
			i = j - 1
		}
	}
	return out
}

func systemBlocks(systemPrompt string, messages []chat.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if systemPrompt != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: systemPrompt})
	}
	for _, msg := range messages {
		if msg.Role == chat.MessageRoleSystem && strings.TrimSpace(msg.Content) != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: msg.Content})
		}
	}
	return blocks
}

func convertTools(requestTools []tools.Tool) []anthropic.ToolUnionParam {
	if len(requestTools) == 0 {
		return nil
	}
	out := make([]anthropic.ToolUnionParam, len(requestTools))
	for i, tool := range requestTools {
		var required []string
		switch r := tool.Parameters["required"].(type) {
		case []string:
			required = r
		case []any:
			for _, v := range r {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
		out[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        tool.Name,
			Description: anthropic.String(tool.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: tool.Parameters["properties"],
				Required:   required,
			},
		}}
	}
	return out
}
