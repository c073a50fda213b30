package openai

import (
	"context"
	"testing"

	"github.com/tidwall/gjson"
)

func TestConvertAnthropicResponseToOpenAIStreamLifecycle(t *testing.T) {
	param := &ConvertAnthropicResponseToOpenAIParams{ToolCallsAccumulator: make(map[int]*ToolCallAccumulator)}

	var lines []string
	events := []string{
		`{"type":"message_start","message":{"id":"msg_1","model":"claude-m","usage":{"input_tokens":7}}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hi"}}`,
		`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":3}}`,
		`{"type":"message_stop"}`,
	}
	for _, ev := range events {
		lines = append(lines, ConvertAnthropicResponseToOpenAI([]byte(ev), param)...)
	}

	if len(lines) != 4 {
		t.Fatalf("expected 4 output lines (role, content, finish, [DONE]), got %d: %v", len(lines), lines)
	}

	roleChunk := gjson.Parse(lines[0])
	if roleChunk.Get("choices.0.delta.role").String() != "assistant" {
		t.Fatalf("expected first chunk to carry the role, got %q", lines[0])
	}

	contentChunk := gjson.Parse(lines[1])
	if contentChunk.Get("choices.0.delta.content").String() != "hi" {
		t.Fatalf("expected second chunk content \"hi\", got %q", lines[1])
	}

	finishChunk := gjson.Parse(lines[2])
	if finishChunk.Get("choices.0.finish_reason").String() != "stop" {
		t.Fatalf("expected finish_reason stop, got %q", lines[2])
	}
	usage := finishChunk.Get("usage")
	if usage.Get("prompt_tokens").Int() != 7 || usage.Get("completion_tokens").Int() != 3 || usage.Get("total_tokens").Int() != 10 {
		t.Fatalf("unexpected usage: %s", usage.Raw)
	}

	if lines[3] != "[DONE]" {
		t.Fatalf("expected terminal [DONE] with no trailing newline, got %q", lines[3])
	}
}

func TestConvertAnthropicResponseToolCallAccumulation(t *testing.T) {
	param := &ConvertAnthropicResponseToOpenAIParams{ToolCallsAccumulator: make(map[int]*ToolCallAccumulator)}

	events := []string{
		`{"type":"message_start","message":{"id":"msg_1"}}`,
		`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"lookup"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"q\":"}}`,
		`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"\"x\"}"}}`,
		`{"type":"content_block_stop","index":0}`,
	}

	var lines []string
	for _, ev := range events {
		lines = append(lines, ConvertAnthropicResponseToOpenAI([]byte(ev), param)...)
	}

	var toolCallLine string
	for _, l := range lines {
		if gjson.Get(l, "choices.0.delta.tool_calls").Exists() {
			toolCallLine = l
		}
	}
	if toolCallLine == "" {
		t.Fatalf("expected a tool_calls delta chunk among: %v", lines)
	}
	tc := gjson.Get(toolCallLine, "choices.0.delta.tool_calls.0")
	if tc.Get("function.name").String() != "lookup" {
		t.Fatalf("unexpected tool call: %s", tc.Raw)
	}
	if tc.Get("function.arguments").String() != `{"q":"x"}` {
		t.Fatalf("expected accumulated arguments, got %q", tc.Get("function.arguments").String())
	}
}

// TestConvertAnthropicNonStreamResponseToOpenAI exercises the actual
// non-streaming path: a single, plain (non-SSE-framed) Anthropic Messages
// response object, exactly what ClaudeExecutor.Execute returns and what
// dispatch hands straight to respTransform.NonStream.
func TestConvertAnthropicNonStreamResponseToOpenAI(t *testing.T) {
	resp := `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-m",
		"content": [{"type": "text", "text": "hi"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 7, "output_tokens": 3}
	}`
	out := ConvertAnthropicNonStreamResponseToOpenAI([]byte(resp))
	root := gjson.Parse(out)

	if root.Get("object").String() != "chat.completion" {
		t.Fatalf("expected object chat.completion, got %q", root.Get("object").String())
	}
	if root.Get("id").String() != "chatcmpl-msg_1" {
		t.Fatalf("expected id chatcmpl-msg_1, got %q", root.Get("id").String())
	}
	if root.Get("model").String() != "claude-m" {
		t.Fatalf("expected model claude-m, got %q", root.Get("model").String())
	}
	if root.Get("choices.0.message.role").String() != "assistant" {
		t.Fatalf("expected assistant role, got %q", root.Get("choices.0.message.role").String())
	}
	if root.Get("choices.0.message.content").String() != "hi" {
		t.Fatalf("expected content \"hi\", got %q", root.Get("choices.0.message.content").String())
	}
	if root.Get("choices.0.finish_reason").String() != "stop" {
		t.Fatalf("expected finish_reason stop, got %q", root.Get("choices.0.finish_reason").String())
	}
	if root.Get("usage.total_tokens").Int() != 10 {
		t.Fatalf("expected total_tokens 10, got %d", root.Get("usage.total_tokens").Int())
	}
}

func TestConvertAnthropicNonStreamResponseToOpenAIToolUse(t *testing.T) {
	resp := `{
		"id": "msg_2",
		"model": "claude-m",
		"content": [
			{"type": "tool_use", "id": "toolu_1", "name": "lookup", "input": {"q": "x"}}
		],
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 4, "output_tokens": 2}
	}`
	out := ConvertAnthropicNonStreamResponseToOpenAI([]byte(resp))
	root := gjson.Parse(out)

	if root.Get("choices.0.finish_reason").String() != "tool_calls" {
		t.Fatalf("expected finish_reason tool_calls, got %q", root.Get("choices.0.finish_reason").String())
	}
	tc := root.Get("choices.0.message.tool_calls.0")
	if tc.Get("function.name").String() != "lookup" {
		t.Fatalf("expected tool call name lookup, got %q", tc.Get("function.name").String())
	}
	if tc.Get("function.arguments").String() != `{"q":"x"}` {
		t.Fatalf("expected arguments {\"q\":\"x\"}, got %q", tc.Get("function.arguments").String())
	}
}

func TestNonStreamAdapterParsesPlainBodyDirectly(t *testing.T) {
	resp := `{"id":"msg_3","model":"claude-m","content":[{"type":"text","text":"ok"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`
	out := NonStreamAdapter(context.Background(), "claude-m", nil, nil, []byte(resp), nil)
	if gjson.Get(out, "choices.0.message.content").String() != "ok" {
		t.Fatalf("expected NonStreamAdapter to parse the plain body directly, got %q", out)
	}
}
