package openai

import (
	"github.com/tidwall/sjson"

	"github.com/nexusgate/aigateway/sdk/translator"
)

func init() {
	translator.Register(
		translator.OpenAI,
		translator.Claude,
		func(modelName string, rawJSON []byte, _ bool) []byte {
			out := ConvertOpenAIRequestToAnthropic(rawJSON)
			if modelName != "" {
				if rewritten, err := sjson.Set(out, "model", modelName); err == nil {
					out = rewritten
				}
			}
			return []byte(out)
		},
		translator.ResponseTransform{
			Stream:    StreamAdapter,
			NonStream: NonStreamAdapter,
		},
	)
}
