// Package openai provides request/response translation between an
// OpenAI-format client and a Gemini generateContent upstream.
package openai

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ConvertOpenAIRequestToGemini transforms an OpenAI Chat Completions request
// into a Gemini generateContent request body.
func ConvertOpenAIRequestToGemini(modelName string, rawJSON []byte, _ bool) []byte {
	out := `{"contents":[]}`
	root := gjson.ParseBytes(rawJSON)

	genConfig := map[string]interface{}{}
	if temp := root.Get("temperature"); temp.Exists() {
		genConfig["temperature"] = temp.Float()
	}
	if maxTokens := root.Get("max_tokens"); maxTokens.Exists() {
		genConfig["maxOutputTokens"] = maxTokens.Int()
	}
	if topP := root.Get("top_p"); topP.Exists() {
		genConfig["topP"] = topP.Float()
	}
	if stop := root.Get("stop"); stop.Exists() {
		var stops []string
		if stop.IsArray() {
			stop.ForEach(func(_, v gjson.Result) bool {
				stops = append(stops, v.String())
				return true
			})
		} else {
			stops = append(stops, stop.String())
		}
		genConfig["stopSequences"] = stops
	}
	if len(genConfig) > 0 {
		genJSON, _ := json.Marshal(genConfig)
		out, _ = sjson.SetRaw(out, "generationConfig", string(genJSON))
	}

	// toolCallID -> function name, so a later "tool" role message can be
	// turned back into a functionResponse naming the right function.
	toolCallNames := make(map[string]string)

	var contents []interface{}
	var systemParts []string

	if messages := root.Get("messages"); messages.Exists() && messages.IsArray() {
		messages.ForEach(func(_, msg gjson.Result) bool {
			role := msg.Get("role").String()

			switch role {
			case "system", "developer":
				if text := msg.Get("content"); text.Exists() {
					systemParts = append(systemParts, text.String())
				}
				return true
			case "tool":
				name := toolCallNames[msg.Get("tool_call_id").String()]
				content := msg.Get("content").String()
				var respValue interface{} = content
				if json.Valid([]byte(content)) {
					_ = json.Unmarshal([]byte(content), &respValue)
				}
				contents = append(contents, map[string]interface{}{
					"role": "function",
					"parts": []interface{}{
						map[string]interface{}{
							"functionResponse": map[string]interface{}{
								"name":     name,
								"response": map[string]interface{}{"content": respValue},
							},
						},
					},
				})
				return true
			}

			geminiRole := "user"
			if role == "assistant" {
				geminiRole = "model"
			}

			var parts []interface{}
			if text := msg.Get("content"); text.Exists() && text.Type == gjson.String && text.String() != "" {
				parts = append(parts, map[string]interface{}{"text": text.String()})
			}
			if toolCalls := msg.Get("tool_calls"); toolCalls.Exists() && toolCalls.IsArray() {
				toolCalls.ForEach(func(_, tc gjson.Result) bool {
					name := tc.Get("function.name").String()
					toolCallNames[tc.Get("id").String()] = name
					var args interface{}
					argsStr := tc.Get("function.arguments").String()
					if argsStr != "" {
						_ = json.Unmarshal([]byte(argsStr), &args)
					}
					parts = append(parts, map[string]interface{}{
						"functionCall": map[string]interface{}{"name": name, "args": args},
					})
					return true
				})
			}
			if len(parts) == 0 {
				parts = append(parts, map[string]interface{}{"text": ""})
			}
			contents = append(contents, map[string]interface{}{"role": geminiRole, "parts": parts})
			return true
		})
	}

	if len(contents) > 0 {
		contentsJSON, _ := json.Marshal(contents)
		out, _ = sjson.SetRaw(out, "contents", string(contentsJSON))
	}
	if len(systemParts) > 0 {
		out, _ = sjson.Set(out, "systemInstruction.parts.0.text", strings.Join(systemParts, "\n\n"))
	}

	if tools := root.Get("tools"); tools.Exists() && tools.IsArray() {
		var decls []interface{}
		tools.ForEach(func(_, tool gjson.Result) bool {
			fn := tool.Get("function")
			if !fn.Exists() {
				return true
			}
			decl := map[string]interface{}{
				"name":        fn.Get("name").String(),
				"description": fn.Get("description").String(),
			}
			if params := fn.Get("parameters"); params.Exists() {
				decl["parameters"] = params.Value()
			}
			decls = append(decls, decl)
			return true
		})
		if len(decls) > 0 {
			out, _ = sjson.SetRaw(out, "tools", mustMarshal([]interface{}{
				map[string]interface{}{"functionDeclarations": decls},
			}))
		}
	}

	if toolChoice := root.Get("tool_choice"); toolChoice.Exists() {
		mode := ""
		switch toolChoice.String() {
		case "none":
			mode = "NONE"
		case "auto":
			mode = "AUTO"
		case "required":
			mode = "ANY"
		}
		if mode != "" {
			out, _ = sjson.Set(out, "toolConfig.functionCallingConfig.mode", mode)
		}
	}

	_ = modelName
	return []byte(out)
}

func mustMarshal(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
