package openai

import (
	"github.com/nexusgate/aigateway/sdk/translator"
)

func init() {
	translator.Register(
		translator.OpenAI,
		translator.Gemini,
		ConvertOpenAIRequestToGemini,
		translator.ResponseTransform{
			Stream:    ConvertGeminiResponseToOpenAI,
			NonStream: ConvertGeminiResponseToOpenAINonStream,
		},
	)
}
