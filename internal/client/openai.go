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

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type (
	Message map[string]any
	Options map[string]any
)

// prepareInput builds a streaming chat completion payload.
func prepareInput(r Request) Options {
	messages := make([]Message, 0, 2)
	if r.Instructions != "" {
		messages = append(messages, Message{"role": "system", "content": r.Instructions})
	}
	messages = append(messages, Message{"role": "user", "content": r.Text})

	payload := make(Options, 5)
	payload["messages"] = messages
	payload["model"] = r.Model
	payload["stream"] = true

	// o1-family models reject sampling parameters.
	if !strings.HasPrefix(r.Model, "o1") {
		payload["n"] = 1
		payload["temperature"] = 0.4
	}

	return payload
}

// newChatRequest builds the POST for a chat completions stream.
func newChatRequest(ctx context.Context, endpoint string, r Request, headers map[string]string) (*http.Request, error) {
	data, err := json.Marshal(prepareInput(r))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	return req, nil
}

func (o *OpenAI) Open(ctx context.Context, r Request) (<-chan stream.Delta, error) {
	endpoint := strings.TrimRight(o.BaseURL, "/") + "/v1/chat/completions"
	req, err := newChatRequest(ctx, endpoint, r, map[string]string{"Authorization": "Bearer " + o.APIKey})
	if err != nil {
		return nil, err
	}
	return openStream(ctx, o.HTTP, req, stream.ParseChatFrame)
}
