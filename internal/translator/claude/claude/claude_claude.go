// Package claude implements the identity translator for Claude-format
// clients talking to Claude-format credentials: the wire shape is already
// correct, so only the model field is rewritten to the credential's
// resolved upstream id.
package claude

import (
	"context"

	"github.com/tidwall/sjson"
)

// ConvertClaudeRequestToClaude rewrites the model field and returns the
// body otherwise untouched.
func ConvertClaudeRequestToClaude(modelName string, rawJSON []byte, _ bool) []byte {
	out, err := sjson.SetBytes(rawJSON, "model", modelName)
	if err != nil {
		return rawJSON
	}
	return out
}

// PassthroughClaudeResponseStream forwards each upstream SSE event to a
// Claude-format client, re-attaching the original "event:" name so the
// caller sees the same composite "event: X\ndata: Y" framing Claude itself
// emits.
func PassthroughClaudeResponseStream(_ context.Context, _ string, _, _ []byte, eventName string, rawJSON []byte, _ *any) []string {
	if eventName == "" {
		return []string{string(rawJSON)}
	}
	return []string{"event: " + eventName + "\ndata: " + string(rawJSON)}
}

// PassthroughClaudeResponseNonStream forwards the upstream body unchanged.
func PassthroughClaudeResponseNonStream(_ context.Context, _ string, _, _, rawJSON []byte, _ *any) string {
	return string(rawJSON)
}
