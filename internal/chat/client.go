// Package chat relays questions to an OpenAI-compatible completion
// service and translates provider failures into a stable taxonomy.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"battsim/internal/config"
)

// Provider error taxonomy. Each kind maps to a distinct user-facing
// status code; provider-internal detail stays in the server logs.
var (
	ErrProviderAuth        = errors.New("ai provider rejected credentials")
	ErrProviderRateLimited = errors.New("ai provider rate limit exceeded")
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrEmptyCompletion     = errors.New("ai provider returned no completion")
)

// Message is one turn of a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls the chat-completions endpoint. Configuration is passed
// in at construction; no global provider state is read.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a completion client
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

// Ask sends a single-turn question and returns the completion text
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	return c.Complete(ctx, []Message{{Role: "user", Content: question}})
}

// Complete sends a conversation and returns the assistant's reply
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("ai provider request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", strings.TrimSpace(string(detail))))
		return "", classifyStatus(resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(out.Choices) > 0 {
		text := strings.TrimSpace(out.Choices[0].Message.Content)
		if text != "" {
			return text, nil
		}
	}
	return "", ErrEmptyCompletion
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrProviderAuth
	case status == http.StatusTooManyRequests:
		return ErrProviderRateLimited
	case status >= 500:
		return ErrProviderUnavailable
	default:
		return fmt.Errorf("ai provider returned status %d", status)
	}
}
