package chat_completions

import (
	"github.com/nexusgate/aigateway/sdk/translator"
)

func init() {
	translator.Register(
		translator.OpenAI,
		translator.OpenAI,
		ConvertOpenAIRequestToOpenAI,
		translator.ResponseTransform{
			Stream:    PassthroughOpenAIResponseStream,
			NonStream: PassthroughOpenAIResponseNonStream,
		},
	)
}
