package claude

import (
	"github.com/nexusgate/aigateway/sdk/translator"
)

func init() {
	translator.Register(
		translator.Claude,
		translator.Claude,
		ConvertClaudeRequestToClaude,
		translator.ResponseTransform{
			Stream:    PassthroughClaudeResponseStream,
			NonStream: PassthroughClaudeResponseNonStream,
		},
	)
}
