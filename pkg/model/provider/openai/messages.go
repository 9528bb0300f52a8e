package openai

import (
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/LucasSabena/codemobile-sub001/pkg/chat"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools"
)

// convertMessages maps the transcript onto chat completion messages. The
// system prompt, when set, is sent first.
func convertMessages(systemPrompt string, messages []chat.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}

	for i := range messages {
		msg := &messages[i]

		switch msg.Role {
		case chat.MessageRoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))

		case chat.MessageRoleUser:
			out = append(out, openai.UserMessage(msg.Content))

		case chat.MessageRoleAssistant:
			// Empty assistant turns are rejected by most servers.
			if len(msg.ToolCalls) == 0 && strings.TrimSpace(msg.Content) == "" {
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = param.NewOpt(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: call.Arguments,
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case chat.MessageRoleTool:
			toolMsg := openai.ChatCompletionToolMessageParam{ToolCallID: msg.ToolCallID}
			toolMsg.Content.OfString = param.NewOpt(msg.Content)
			out = append(out, openai.ChatCompletionMessageParamUnion{OfTool: &toolMsg})
		}
	}
	return out
}

func convertTools(requestTools []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(requestTools) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, len(requestTools))
	for i, tool := range requestTools {
		out[i] = openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  shared.FunctionParameters(tool.Parameters),
		})
	}
	return out
}
