package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/markis/smooth/internal/stream"
)

// GeminiSDK streams through the official Gemini Go SDK.
type GeminiSDK struct {
	client *genai.Client
}

func NewGeminiSDK(ctx context.Context, apiKey string) (*GeminiSDK, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiSDK{client: cl}, nil
}

func (g *GeminiSDK) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiSDK) Open(ctx context.Context, r Request) (<-chan stream.Delta, error) {
	m := g.client.GenerativeModel(r.Model)
	if r.Instructions != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(r.Instructions)},
		}
	}

	iter := m.GenerateContentStream(ctx, genai.Text(r.Text))
	return streamResponses(ctx, iter.Next)
}

// streamResponses turns SDK responses into cumulative deltas. The request
// is only sent on the first call to next, so that call is made here to
// report a rejected request before any delta.
func streamResponses(ctx context.Context, next func() (*genai.GenerateContentResponse, error)) (<-chan stream.Delta, error) {
	first, err := next()
	exhausted := errors.Is(err, iterator.Done)
	if err != nil && !exhausted {
		return nil, remoteError(err)
	}

	p := stream.NewParser(ctx, nil)
	go p.Pull(func() (string, error) {
		if exhausted {
			return "", io.EOF
		}
		if first != nil {
			resp := first
			first = nil
			return responseText(resp), nil
		}
		resp, err := next()
		if errors.Is(err, iterator.Done) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}
		return responseText(resp), nil
	})
	return p.Deltas(), nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// remoteError maps an SDK error to a RemoteCallFailedError, keeping the
// HTTP status when the SDK exposes one.
func remoteError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &stream.RemoteCallFailedError{Status: gerr.Code, Body: gerr.Message}
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return &stream.RemoteCallFailedError{Status: coded.HTTPCode(), Body: err.Error()}
	}
	return &stream.RemoteCallFailedError{Body: err.Error()}
}
