package openai

import "context"

// StreamAdapter exposes ConvertAnthropicResponseToOpenAI under the registry's
// generic ResponseStreamTransform signature, boxing the per-stream
// accumulator state in param across calls.
func StreamAdapter(_ context.Context, _ string, _, _ []byte, _ string, rawJSON []byte, param *any) []string {
	state, _ := (*param).(*ConvertAnthropicResponseToOpenAIParams)
	if state == nil {
		state = &ConvertAnthropicResponseToOpenAIParams{ToolCallsAccumulator: make(map[int]*ToolCallAccumulator)}
		*param = state
	}
	return ConvertAnthropicResponseToOpenAI(rawJSON, state)
}

// NonStreamAdapter exposes ConvertAnthropicNonStreamResponseToOpenAI under
// the registry's generic ResponseNonStreamTransform signature. rawJSON is a
// single, non-SSE-framed Anthropic Messages response object: the Claude
// executor's non-stream Execute call never frames its body as SSE, so this
// parses it directly rather than decoding it as a stream.
func NonStreamAdapter(_ context.Context, _ string, _, _, rawJSON []byte, _ *any) string {
	return ConvertAnthropicNonStreamResponseToOpenAI(rawJSON)
}
