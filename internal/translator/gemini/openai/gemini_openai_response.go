package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ConvertGeminiResponseToOpenAIParams accumulates per-stream state across
// calls to ConvertGeminiResponseToOpenAI.
type ConvertGeminiResponseToOpenAIParams struct {
	ResponseID string
	CreatedAt  int64
}

func mapGeminiFinishReason(reason string) string {
	switch reason {
	case "STOP":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION":
		return "content_filter"
	default:
		return "stop"
	}
}

// ConvertGeminiResponseToOpenAI converts one Gemini streamGenerateContent
// chunk into an OpenAI chat.completion.chunk line.
func ConvertGeminiResponseToOpenAI(_ context.Context, _ string, _, _ []byte, _ string, rawJSON []byte, param *any) []string {
	state, _ := (*param).(*ConvertGeminiResponseToOpenAIParams)
	if state == nil {
		state = &ConvertGeminiResponseToOpenAIParams{
			ResponseID: "chatcmpl-" + uuid.NewString(),
			CreatedAt:  time.Now().Unix(),
		}
		*param = state
	}

	root := gjson.ParseBytes(rawJSON)
	template := `{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":null}]}`
	template, _ = sjson.Set(template, "id", state.ResponseID)
	template, _ = sjson.Set(template, "created", state.CreatedAt)
	if model := root.Get("modelVersion"); model.Exists() {
		template, _ = sjson.Set(template, "model", model.String())
	}

	candidate := root.Get("candidates.0")
	if !candidate.Exists() {
		return []string{}
	}

	var toolCalls []interface{}
	var textParts []string
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if text := part.Get("text"); text.Exists() {
			textParts = append(textParts, text.String())
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			argsJSON, _ := json.Marshal(fc.Get("args").Value())
			toolCalls = append(toolCalls, map[string]interface{}{
				"index": len(toolCalls),
				"id":    "call_" + uuid.NewString(),
				"type":  "function",
				"function": map[string]interface{}{
					"name":      fc.Get("name").String(),
					"arguments": string(argsJSON),
				},
			})
		}
		return true
	})

	if len(textParts) > 0 {
		template, _ = sjson.Set(template, "choices.0.delta.content", strings.Join(textParts, ""))
	}
	if len(toolCalls) > 0 {
		toolCallsJSON, _ := json.Marshal(toolCalls)
		template, _ = sjson.SetRaw(template, "choices.0.delta.tool_calls", string(toolCallsJSON))
	}

	if finish := candidate.Get("finishReason"); finish.Exists() {
		template, _ = sjson.Set(template, "choices.0.finish_reason", mapGeminiFinishReason(finish.String()))
	}

	if usage := root.Get("usageMetadata"); usage.Exists() {
		template, _ = sjson.Set(template, "usage.prompt_tokens", usage.Get("promptTokenCount").Int())
		template, _ = sjson.Set(template, "usage.completion_tokens", usage.Get("candidatesTokenCount").Int())
		template, _ = sjson.Set(template, "usage.total_tokens", usage.Get("totalTokenCount").Int())
	}

	return []string{template}
}

// ConvertGeminiResponseToOpenAINonStream folds a complete (non-streamed)
// Gemini generateContent response into a single OpenAI chat.completion body.
func ConvertGeminiResponseToOpenAINonStream(_ context.Context, _ string, _, _, rawJSON []byte, _ *any) string {
	out := `{"object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":""},"finish_reason":"stop"}]}`
	root := gjson.ParseBytes(rawJSON)

	out, _ = sjson.Set(out, "id", "chatcmpl-"+uuid.NewString())
	if model := root.Get("modelVersion"); model.Exists() {
		out, _ = sjson.Set(out, "model", model.String())
	}
	out, _ = sjson.Set(out, "created", time.Now().Unix())

	candidate := root.Get("candidates.0")
	var textParts []string
	var toolCalls []interface{}
	candidate.Get("content.parts").ForEach(func(_, part gjson.Result) bool {
		if text := part.Get("text"); text.Exists() {
			textParts = append(textParts, text.String())
		}
		if fc := part.Get("functionCall"); fc.Exists() {
			argsJSON, _ := json.Marshal(fc.Get("args").Value())
			toolCalls = append(toolCalls, map[string]interface{}{
				"id":   "call_" + uuid.NewString(),
				"type": "function",
				"function": map[string]interface{}{
					"name":      fc.Get("name").String(),
					"arguments": string(argsJSON),
				},
			})
		}
		return true
	})

	if len(textParts) > 0 {
		out, _ = sjson.Set(out, "choices.0.message.content", strings.Join(textParts, ""))
	}
	if len(toolCalls) > 0 {
		toolCallsJSON, _ := json.Marshal(toolCalls)
		out, _ = sjson.SetRaw(out, "choices.0.message.tool_calls", string(toolCallsJSON))
		out, _ = sjson.Set(out, "choices.0.finish_reason", "tool_calls")
	} else if finish := candidate.Get("finishReason"); finish.Exists() {
		out, _ = sjson.Set(out, "choices.0.finish_reason", mapGeminiFinishReason(finish.String()))
	}

	if usage := root.Get("usageMetadata"); usage.Exists() {
		out, _ = sjson.Set(out, "usage.prompt_tokens", usage.Get("promptTokenCount").Int())
		out, _ = sjson.Set(out, "usage.completion_tokens", usage.Get("candidatesTokenCount").Int())
		out, _ = sjson.Set(out, "usage.total_tokens", usage.Get("totalTokenCount").Int())
	}

	return out
}
