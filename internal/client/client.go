// Package client opens streaming rewrite requests against the supported
// LLM providers.
package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/markis/smooth/internal/config"
	"github.com/markis/smooth/internal/stream"
)

// Request is one chunk to rewrite.
type Request struct {
	Text         string
	Instructions string
	Model        string
}

// Provider opens one streaming rewrite. A request the service rejects is
// returned as a *stream.RemoteCallFailedError before any delta.
type Provider interface {
	Open(ctx context.Context, req Request) (<-chan stream.Delta, error)
}

// Rewriter binds a provider to fixed instructions and model.
type Rewriter struct {
	Provider     Provider
	Name         string
	Instructions string
	Model        string
}

// Stream rewrites one piece of text.
func (r *Rewriter) Stream(ctx context.Context, text string) (<-chan stream.Delta, error) {
	return r.Provider.Open(ctx, Request{Text: text, Instructions: r.Instructions, Model: r.Model})
}

// Close releases provider resources, if any.
func (r *Rewriter) Close() error {
	if c, ok := r.Provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var defaultModels = map[string]string{
	config.ProviderOllama:    "gemma3:12b",
	config.ProviderGemini:    "gemini-2.0-flash",
	config.ProviderGeminiSDK: "gemini-2.0-flash",
	config.ProviderOpenAI:    "gpt-4o-mini",
	config.ProviderCopilot:   "gpt-4o",
}

// New builds the rewriter selected by cfg.Provider.
func New(ctx context.Context, cfg *config.Config) (*Rewriter, error) {
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}
	hc := HTTPClient(cfg.Timeout)

	var p Provider
	switch cfg.Provider {
	case config.ProviderOllama:
		p = &Ollama{BaseURL: cfg.Providers.Ollama.URL, HTTP: hc}
	case config.ProviderGemini:
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini: missing api key (set GEMINI_API_KEY)")
		}
		p = &Gemini{BaseURL: cfg.Providers.Gemini.URL, APIKey: cfg.Providers.Gemini.APIKey, HTTP: hc}
	case config.ProviderGeminiSDK:
		if cfg.Providers.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini-sdk: missing api key (set GEMINI_API_KEY)")
		}
		sdk, err := NewGeminiSDK(ctx, cfg.Providers.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		p = sdk
	case config.ProviderOpenAI:
		if cfg.Providers.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai: missing api key (set OPENAI_API_KEY)")
		}
		p = &OpenAI{BaseURL: cfg.Providers.OpenAI.URL, APIKey: cfg.Providers.OpenAI.APIKey, HTTP: hc}
	case config.ProviderCopilot:
		p = NewCopilot(hc)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	return &Rewriter{Provider: p, Name: cfg.Provider, Instructions: cfg.Instructions, Model: model}, nil
}

var (
	transport     *http.Transport
	transportOnce sync.Once
)

// HTTPClient returns a client sharing one pooled transport. timeout bounds
// a whole request including the streamed body; zero means no limit.
func HTTPClient(timeout time.Duration) *http.Client {
	transportOnce.Do(func() {
		transport = &http.Transport{
			MaxIdleConns:       100,
			IdleConnTimeout:    90 * time.Second,
			DisableCompression: false,
			DisableKeepAlives:  false,
			ForceAttemptHTTP2:  true,
		}

		transport.DialContext = (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext
	})

	return &http.Client{Transport: transport, Timeout: timeout}
}

// openStream sends req and, on success, decodes its body with parse.
func openStream(ctx context.Context, hc *http.Client, req *http.Request, parse stream.FrameFunc) (<-chan stream.Delta, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if err := stream.CheckResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	p := stream.NewParser(ctx, parse)
	go p.Process(resp.Body)
	return p.Deltas(), nil
}
