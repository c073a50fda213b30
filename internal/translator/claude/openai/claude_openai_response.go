// Package openai provides response translation functionality for Anthropic to OpenAI API.
// This package handles the conversion of Anthropic API responses into OpenAI Chat Completions-compatible
// JSON format, transforming streaming events and non-streaming responses into the format
// expected by OpenAI API clients. It supports both streaming and non-streaming modes,
// handling text content, tool calls, and usage metadata appropriately.
package openai

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ConvertAnthropicResponseToOpenAIParams holds parameters for response conversion
type ConvertAnthropicResponseToOpenAIParams struct {
	CreatedAt    int64
	ResponseID   string
	FinishReason string
	// InputTokens is the prompt token count reported by message_start.
	InputTokens int64
	// Tool calls accumulator for streaming
	ToolCallsAccumulator map[int]*ToolCallAccumulator
}

// ToolCallAccumulator holds the state for accumulating tool call data
type ToolCallAccumulator struct {
	ID        string
	Name      string
	Arguments strings.Builder
}

// ConvertAnthropicResponseToOpenAI converts Anthropic streaming response format to OpenAI Chat Completions format.
// This function processes various Anthropic event types and transforms them into OpenAI-compatible JSON responses.
// It handles text content, tool calls, and usage metadata, outputting responses that match the OpenAI API format.
func ConvertAnthropicResponseToOpenAI(rawJSON []byte, param *ConvertAnthropicResponseToOpenAIParams) []string {
	root := gjson.ParseBytes(rawJSON)
	eventType := root.Get("type").String()

	// Base OpenAI streaming response template
	template := `{"id":"","object":"chat.completion.chunk","created":0,"model":"","choices":[{"index":0,"delta":{},"finish_reason":null}]}`

	// Set model
	modelResult := gjson.GetBytes(rawJSON, "model")
	modelName := modelResult.String()
	if modelName != "" {
		template, _ = sjson.Set(template, "model", modelName)
	}

	// Set response ID and creation time
	if param.ResponseID != "" {
		template, _ = sjson.Set(template, "id", param.ResponseID)
	}
	if param.CreatedAt > 0 {
		template, _ = sjson.Set(template, "created", param.CreatedAt)
	}

	switch eventType {
	case "message_start":
		// Initialize response with message metadata
		if message := root.Get("message"); message.Exists() {
			param.ResponseID = message.Get("id").String()
			param.CreatedAt = time.Now().Unix()
			param.InputTokens = message.Get("usage.input_tokens").Int()

			template, _ = sjson.Set(template, "id", param.ResponseID)
			template, _ = sjson.Set(template, "model", modelName)
			template, _ = sjson.Set(template, "created", param.CreatedAt)

			// Set initial role
			template, _ = sjson.Set(template, "choices.0.delta.role", "assistant")
			template, _ = sjson.Set(template, "choices.0.delta.content", "")

			// Initialize tool calls accumulator
			if param.ToolCallsAccumulator == nil {
				param.ToolCallsAccumulator = make(map[int]*ToolCallAccumulator)
			}
		}
		return []string{template}

	case "content_block_start":
		// Start of a content block
		if contentBlock := root.Get("content_block"); contentBlock.Exists() {
			blockType := contentBlock.Get("type").String()

			if blockType == "tool_use" {
				// Start of tool call - initialize accumulator
				toolCallID := contentBlock.Get("id").String()
				toolName := contentBlock.Get("name").String()
				index := int(root.Get("index").Int())

				if param.ToolCallsAccumulator == nil {
					param.ToolCallsAccumulator = make(map[int]*ToolCallAccumulator)
				}

				param.ToolCallsAccumulator[index] = &ToolCallAccumulator{
					ID:   toolCallID,
					Name: toolName,
				}

				// Don't output anything yet - wait for complete tool call
				return []string{}
			}
		}
		// Text/other block starts carry no caller-visible delta of their own;
		// the content arrives on the following content_block_delta events.
		return []string{}

	case "content_block_delta":
		// Handle content delta (text or tool use)
		if delta := root.Get("delta"); delta.Exists() {
			deltaType := delta.Get("type").String()

			switch deltaType {
			case "text_delta":
				// Text content delta
				if text := delta.Get("text"); text.Exists() {
					template, _ = sjson.Set(template, "choices.0.delta.content", text.String())
				}

			case "input_json_delta":
				// Tool use input delta - accumulate arguments
				if partialJSON := delta.Get("partial_json"); partialJSON.Exists() {
					index := int(root.Get("index").Int())
					if param.ToolCallsAccumulator != nil {
						if accumulator, exists := param.ToolCallsAccumulator[index]; exists {
							accumulator.Arguments.WriteString(partialJSON.String())
						}
					}
				}
				// Don't output anything yet - wait for complete tool call
				return []string{}
			}
		}
		return []string{template}

	case "content_block_stop":
		// End of content block - output complete tool call if it's a tool_use block
		index := int(root.Get("index").Int())
		if param.ToolCallsAccumulator != nil {
			if accumulator, exists := param.ToolCallsAccumulator[index]; exists {
				// Build complete tool call
				arguments := accumulator.Arguments.String()
				if arguments == "" {
					arguments = "{}"
				}

				toolCall := map[string]interface{}{
					"index": index,
					"id":    accumulator.ID,
					"type":  "function",
					"function": map[string]interface{}{
						"name":      accumulator.Name,
						"arguments": arguments,
					},
				}

				template, _ = sjson.Set(template, "choices.0.delta.tool_calls", []interface{}{toolCall})

				// Clean up the accumulator for this index
				delete(param.ToolCallsAccumulator, index)

				return []string{template}
			}
		}
		return []string{}

	case "message_delta":
		// Handle message-level changes
		if delta := root.Get("delta"); delta.Exists() {
			if stopReason := delta.Get("stop_reason"); stopReason.Exists() {
				param.FinishReason = mapAnthropicStopReasonToOpenAI(stopReason.String())
				template, _ = sjson.Set(template, "choices.0.finish_reason", param.FinishReason)
			}
		}

		// Handle usage information
		if usage := root.Get("usage"); usage.Exists() {
			inputTokens := param.InputTokens
			if v := usage.Get("input_tokens"); v.Exists() {
				inputTokens = v.Int()
			}
			usageObj := map[string]interface{}{
				"prompt_tokens":     inputTokens,
				"completion_tokens": usage.Get("output_tokens").Int(),
				"total_tokens":      inputTokens + usage.Get("output_tokens").Int(),
			}
			template, _ = sjson.Set(template, "usage", usageObj)
		}
		return []string{template}

	case "message_stop":
		// Final message - send [DONE]
		return []string{"[DONE]"}

	case "ping":
		// Ping events - ignore
		return []string{}

	case "error":
		// Error event
		if errorData := root.Get("error"); errorData.Exists() {
			errorResponse := map[string]interface{}{
				"error": map[string]interface{}{
					"message": errorData.Get("message").String(),
					"type":    errorData.Get("type").String(),
				},
			}
			errorJSON, _ := json.Marshal(errorResponse)
			return []string{string(errorJSON)}
		}
		return []string{}

	default:
		// Unknown event type - ignore
		return []string{}
	}
}

// mapAnthropicStopReasonToOpenAI maps Anthropic stop reasons to OpenAI stop reasons
func mapAnthropicStopReasonToOpenAI(anthropicReason string) string {
	switch anthropicReason {
	case "end_turn":
		return "stop"
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	case "stop_sequence":
		return "stop"
	default:
		return "stop"
	}
}

// ConvertAnthropicNonStreamResponseToOpenAI converts one complete (non-streamed)
// Anthropic Messages response object into a single OpenAI chat.completion body.
func ConvertAnthropicNonStreamResponseToOpenAI(rawJSON []byte) string {
	out := `{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}],"usage":{"prompt_tokens":0,"completion_tokens":0,"total_tokens":0}}`
	root := gjson.ParseBytes(rawJSON)

	out, _ = sjson.Set(out, "id", "chatcmpl-"+root.Get("id").String())
	out, _ = sjson.Set(out, "created", time.Now().Unix())
	out, _ = sjson.Set(out, "model", root.Get("model").String())

	var contentParts []string
	var toolCalls []interface{}
	root.Get("content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			contentParts = append(contentParts, block.Get("text").String())
		case "tool_use":
			argsJSON, _ := json.Marshal(block.Get("input").Value())
			toolCalls = append(toolCalls, map[string]interface{}{
				"index": len(toolCalls),
				"id":    block.Get("id").String(),
				"type":  "function",
				"function": map[string]interface{}{
					"name":      block.Get("name").String(),
					"arguments": string(argsJSON),
				},
			})
		}
		return true
	})

	out, _ = sjson.Set(out, "choices.0.message.content", strings.Join(contentParts, ""))
	if len(toolCalls) > 0 {
		toolCallsJSON, _ := json.Marshal(toolCalls)
		out, _ = sjson.SetRaw(out, "choices.0.message.tool_calls", string(toolCallsJSON))
		out, _ = sjson.Set(out, "choices.0.finish_reason", "tool_calls")
		if strings.Join(contentParts, "") == "" {
			out, _ = sjson.SetRaw(out, "choices.0.message.content", "null")
		}
	} else {
		out, _ = sjson.Set(out, "choices.0.finish_reason", mapAnthropicStopReasonToOpenAI(root.Get("stop_reason").String()))
	}

	inputTokens := root.Get("usage.input_tokens").Int()
	outputTokens := root.Get("usage.output_tokens").Int()
	out, _ = sjson.Set(out, "usage.prompt_tokens", inputTokens)
	out, _ = sjson.Set(out, "usage.completion_tokens", outputTokens)
	out, _ = sjson.Set(out, "usage.total_tokens", inputTokens+outputTokens)

	return out
}

