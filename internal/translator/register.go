// Package translator blank-imports every concrete translator package so a
// single import of this package populates the sdk/translator registry.
package translator

import (
	_ "github.com/nexusgate/aigateway/internal/translator/claude/claude"
	_ "github.com/nexusgate/aigateway/internal/translator/claude/openai"
	_ "github.com/nexusgate/aigateway/internal/translator/gemini/openai"
	_ "github.com/nexusgate/aigateway/internal/translator/openai/openai/chat-completions"
)
