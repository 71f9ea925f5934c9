package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/markis/smooth/internal/stream"
)

// Constants
const (
	APIBase   = "https://api.githubcopilot.com"
	GitHubAPI = "https://api.github.com"
)

// AuthorizationResponse represents the structure of the response from the GitHub API for authorization.
type AuthorizationResponse struct {
	Token string `json:"token"`
}

// Copilot calls the GitHub Copilot chat API using the locally stored
// GitHub OAuth token.
type Copilot struct {
	APIBase   string
	GitHubAPI string
	HTTP      *http.Client
	// Token returns the GitHub OAuth token to exchange.
	Token func() (string, error)

	mu      sync.Mutex
	headers map[string]string
}

func NewCopilot(hc *http.Client) *Copilot {
	return &Copilot{APIBase: APIBase, GitHubAPI: GitHubAPI, HTTP: hc, Token: getGitHubToken}
}

// defaultHeaders returns the default headers for the API requests.
func defaultHeaders() map[string]string {
	return map[string]string{
		"Editor-Version":         "vscode/1.100.2",
		"Copilot-Integration-Id": "vscode-chat",
	}
}

// getHeaders exchanges the GitHub token for a Copilot token once and
// returns the authorization headers for chat requests.
func (c *Copilot) getHeaders(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.headers != nil {
		return c.headers, nil
	}

	token, err := c.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get GitHub token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GitHubAPI+"/copilot_internal/v2/token", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	headers := defaultHeaders()
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", "Token "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("failed to close response body", "error", err)
		}
	}()

	if err := stream.CheckResponse(resp); err != nil {
		return nil, fmt.Errorf("copilot token request: %w", err)
	}

	auth := AuthorizationResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if auth.Token == "" {
		return nil, errors.New("received empty token in response")
	}

	headers["Authorization"] = "Bearer " + auth.Token
	c.headers = headers
	return headers, nil
}

func (c *Copilot) Open(ctx context.Context, r Request) (<-chan stream.Delta, error) {
	headers, err := c.getHeaders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get headers: %w", err)
	}

	req, err := newChatRequest(ctx, c.APIBase+"/chat/completions", r, headers)
	if err != nil {
		return nil, err
	}
	return openStream(ctx, c.HTTP, req, stream.ParseChatFrame)
}
