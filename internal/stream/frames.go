package stream

import (
	"encoding/json"
	"strings"
)

// ChatResponse is one event of an OpenAI-style chat completion stream.
type ChatResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateResponse is one line of an Ollama generate stream.
type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GeminiResponse is one event of a Gemini streamGenerateContent stream.
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// eventData returns the payload of an SSE "data:" line.
func eventData(line string) (string, bool) {
	data, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	data = strings.TrimSpace(data)
	if data == "" || data == "[DONE]" {
		return "", false
	}
	return data, true
}

// ParseGenerateFrame decodes a line-delimited JSON object carrying a
// "response" field.
func ParseGenerateFrame(frame string) (string, bool) {
	var r GenerateResponse
	if err := json.Unmarshal([]byte(frame), &r); err != nil {
		return "", false
	}
	return r.Response, r.Response != ""
}

// ParseGeminiFrame decodes a "data:" event with nested
// candidates[0].content.parts[0].text.
func ParseGeminiFrame(frame string) (string, bool) {
	data, ok := eventData(frame)
	if !ok {
		return "", false
	}

	var r GeminiResponse
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return "", false
	}
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	text := r.Candidates[0].Content.Parts[0].Text
	return text, text != ""
}

// ParseChatFrame decodes a "data:" event of a chat completion stream,
// preferring the delta content over a full message.
func ParseChatFrame(frame string) (string, bool) {
	data, ok := eventData(frame)
	if !ok {
		return "", false
	}

	var r ChatResponse
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return "", false
	}
	if len(r.Choices) == 0 {
		return "", false
	}
	content := r.Choices[0].Delta.Content
	if content == "" {
		content = r.Choices[0].Message.Content
	}
	return content, content != ""
}
