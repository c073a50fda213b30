// Package chat_completions implements the identity translator for
// OpenAI-format clients talking to OpenAI-format credentials: the wire shape
// is already correct, so only the model field is rewritten to the
// credential's resolved upstream id.
package chat_completions

import (
	"github.com/tidwall/sjson"
)

// ConvertOpenAIRequestToOpenAI rewrites the model field of an OpenAI Chat
// Completions request to modelName and otherwise passes the body through
// unchanged.
func ConvertOpenAIRequestToOpenAI(modelName string, rawJSON []byte, _ bool) []byte {
	if modelName == "" {
		return rawJSON
	}
	out, err := sjson.SetBytes(rawJSON, "model", modelName)
	if err != nil {
		return rawJSON
	}
	return out
}
