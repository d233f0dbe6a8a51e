// Package agent wraps the external LLM agent capabilities (classification,
// resume scoring, interview evaluation, job drafting) behind fixed
// request/response contracts with deterministic mock fallbacks.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	// Load env
	_ "github.com/joho/godotenv/autoload"
)

// Client is a minimal client for the vendor's conversation API.
type Client struct {
	APIKey  string
	BaseURL string
	httpc   *http.Client
}

// NewClient builds a Client from environment configuration. An empty API key
// is allowed; agents detect it and fall back to their mocks.
func NewClient() *Client {
	base := os.Getenv("AGENT_API_BASE")
	if base == "" {
		base = "https://api.mistral.ai"
	}
	timeout := 30 * time.Second
	if v, err := strconv.Atoi(os.Getenv("AGENT_TIMEOUT_SECONDS")); err == nil && v > 0 {
		timeout = time.Duration(v) * time.Second
	}
	return &Client{
		APIKey:  os.Getenv("MISTRAL_API_KEY"),
		BaseURL: base,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type conversationInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type conversationRequest struct {
	AgentID string              `json:"agent_id"`
	Inputs  []conversationInput `json:"inputs"`
}

type conversationResponse struct {
	Outputs []struct {
		Content string `json:"content"`
	} `json:"outputs"`
}

// Converse sends one user message to the given agent and returns the raw
// text reply.
func (c *Client) Converse(ctx context.Context, agentID, content string) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("agent API key is not configured")
	}

	body, err := json.Marshal(conversationRequest{
		AgentID: agentID,
		Inputs:  []conversationInput{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/conversations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("agent API call failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("agent API error (status %d): %s", resp.StatusCode, string(raw))
	}

	var out conversationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Outputs) == 0 {
		return "", fmt.Errorf("empty response from agent")
	}
	return out.Outputs[0].Content, nil
}

// stripFences removes a markdown code fence the model may wrap JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// useMock reports whether the agent named by envPrefix should run its mock:
// either explicitly requested or forced by a missing API key.
func (c *Client) useMock(envPrefix string) bool {
	if strings.EqualFold(os.Getenv(envPrefix+"_MOCK"), "true") {
		return true
	}
	return c.APIKey == ""
}

// approxTokens is the rough token estimate used for usage accounting.
func approxTokens(s string) int {
	return len(strings.Fields(s)) * 2
}
