package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/markis/smooth/internal/stream"
)

// Gemini calls the Generative Language REST API with server-sent events.
type Gemini struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type gmPart struct {
	Text string `json:"text"`
}

type gmContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []gmPart `json:"parts"`
}

type gmRequest struct {
	SystemInstruction *gmContent  `json:"systemInstruction,omitempty"`
	Contents          []gmContent `json:"contents"`
}

func (g *Gemini) Open(ctx context.Context, r Request) (<-chan stream.Delta, error) {
	payload := gmRequest{
		Contents: []gmContent{{Role: "user", Parts: []gmPart{{Text: r.Text}}}},
	}
	if r.Instructions != "" {
		payload.SystemInstruction = &gmContent{Parts: []gmPart{{Text: r.Instructions}}}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse",
		strings.TrimRight(g.BaseURL, "/"), url.PathEscape(r.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-goog-api-key", g.APIKey)

	return openStream(ctx, g.HTTP, req, stream.ParseGeminiFrame)
}
