// ABOUTME: Gateway API client for the hireloop-matrix bridge.
// ABOUTME: Exchanges tenant credentials for a token and opens chunk streams.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// GatewayClient communicates with the hireloop-gateway HTTP API.
type GatewayClient struct {
	baseURL  string
	tenantID string
	secret   string
	client   *http.Client

	mu    sync.Mutex
	token string
}

// NewGatewayClient creates a new gateway client.
func NewGatewayClient(baseURL, tenantID, secret string) *GatewayClient {
	return &GatewayClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		tenantID: tenantID,
		secret:   secret,
		client:   &http.Client{},
	}
}

// SendMessage posts a user message and returns the chunk stream. The
// caller owns closing the returned body.
func (g *GatewayClient) SendMessage(ctx context.Context, conversationID, userID, content, idempotencyKey string) (io.ReadCloser, error) {
	body := map[string]any{
		"conversation_id": conversationID,
		"content":         content,
		"user_id":         userID,
	}
	if idempotencyKey != "" {
		body["idempotency_key"] = idempotencyKey
	}
	return g.openStream(ctx, "/v1/messages", body)
}

// SendCommand posts an approval command and returns the chunk stream.
func (g *GatewayClient) SendCommand(ctx context.Context, conversationID, commandID string) (io.ReadCloser, error) {
	body := map[string]any{
		"conversation_id": conversationID,
		"command_id":      commandID,
	}
	return g.openStream(ctx, "/v1/commands", body)
}

// openStream posts JSON to the given path with a bearer token and
// returns the streaming response body. A 401 invalidates the cached
// token and retries once with a fresh one.
func (g *GatewayClient) openStream(ctx context.Context, path string, body map[string]any) (io.ReadCloser, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := g.bearer(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("sending request: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			g.mu.Lock()
			g.token = ""
			g.mu.Unlock()
			continue
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, g.errorFromResponse(resp)
		}
		return resp.Body, nil
	}
	return nil, fmt.Errorf("unauthorized after token refresh")
}

// bearer returns the cached token, fetching one if needed.
func (g *GatewayClient) bearer(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" {
		return g.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"tenant_id": g.tenantID,
		"secret":    g.secret,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/token", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", g.errorFromResponse(resp)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("gateway returned empty token")
	}
	g.token = out.Token
	return g.token, nil
}

// errorFromResponse extracts an error message from a non-200 response.
func (g *GatewayClient) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, errResp.Error)
	}
	return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
