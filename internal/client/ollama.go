package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/markis/smooth/internal/stream"
)

// Ollama talks to a local or remote Ollama server.
type Ollama struct {
	BaseURL string
	HTTP    *http.Client
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

func (o *Ollama) Open(ctx context.Context, r Request) (<-chan stream.Delta, error) {
	data, err := json.Marshal(generateRequest{Model: r.Model, Prompt: r.Text, System: r.Instructions, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := strings.TrimRight(o.BaseURL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")

	return openStream(ctx, o.HTTP, req, stream.ParseGenerateFrame)
}
