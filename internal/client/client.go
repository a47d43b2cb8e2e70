// Package client implements the completion requester against a local
// OpenAI-compatible inference server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"xloractl/pkg/types"
)

const (
	// DefaultBaseURL is the local inference server the tool targets
	// when no endpoint is configured.
	DefaultBaseURL = "http://localhost:1234"
	// DefaultModel is the model identifier local servers accept.
	DefaultModel = "default"
	// DefaultChatMaxTokens is the token budget for the chat form.
	DefaultChatMaxTokens = 50
	// DefaultCompleteMaxTokens is the token budget for the text form.
	DefaultCompleteMaxTokens = 500
)

const (
	chatPath       = "/v1/chat/completions"
	completionPath = "/v1/completions"
)

// Config holds construction parameters for a Client.
type Config struct {
	// BaseURL of the inference server, e.g. "http://localhost:1234".
	BaseURL string
	// Model identifier sent with every request. Defaults to "default".
	Model string
	// HTTPClient to use. Defaults to http.DefaultClient semantics:
	// no timeout, the request blocks until the server answers.
	HTTPClient *http.Client
}

// Client sends single completion requests to an inference server.
// It holds no session state across calls.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{baseURL: baseURL, model: model, httpClient: hc}, nil
}

// Chat sends a chat-form completion request carrying exactly one
// user-role message and returns choices[0].message.content.
// A non-2xx response is returned as a *StatusError.
func (c *Client) Chat(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultChatMaxTokens
	}
	payload := types.ChatRequest{
		Model:     c.model,
		Messages:  []types.Message{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}
	var resp types.ChatResponse
	if err := c.post(ctx, chatPath, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Complete sends a text-form completion request with a raw prompt
// string and returns choices[0].text.
// A non-2xx response is returned as a *StatusError.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultCompleteMaxTokens
	}
	payload := types.CompletionRequest{
		Model:     c.model,
		Prompt:    prompt,
		MaxTokens: maxTokens,
	}
	var resp types.CompletionResponse
	if err := c.post(ctx, completionPath, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return resp.Choices[0].Text, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
