// Package extractor talks to the generative-language service and turns its
// replies into typed results.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chatter sends a conversation and returns the model's raw text reply.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
	Provider() string
}

// GatewayClient speaks the OpenAI-compatible /chat/completions API.
type GatewayClient struct {
	baseURL      string
	apiKey       string
	model        string
	httpClient   *http.Client
	maxRetryTime time.Duration
	log          *logrus.Entry
}

type GatewayOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewGatewayClient(opts GatewayOptions, log *logrus.Entry) *GatewayClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GatewayClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		model:        opts.Model,
		httpClient:   &http.Client{Timeout: timeout},
		maxRetryTime: timeout + timeout/2,
		log:          log.WithField("component", "llm-gateway"),
	}
}

func (c *GatewayClient) Provider() string { return "openai" }

// Chat posts the messages with JSON response mode and retries transport and
// 5xx failures. 4xx responses are not retried.
func (c *GatewayClient) Chat(ctx context.Context, messages []Message) (string, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return "", errors.New("llm gateway not configured")
	}
	reqBody := map[string]any{
		"model":           c.model,
		"messages":        messages,
		"temperature":     0.0,
		"response_format": map[string]string{"type": "json_object"},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encode llm request: %w", err)
	}
	c.log.WithField("payload_len", len(data)).Debug("llm request")

	var (
		content string
		lastErr error
	)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.log.WithField("error", err.Error()).Warn("llm request failed")
			return err
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		c.log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))

		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("llm gateway status %d: %s", resp.StatusCode, truncate(string(body), 300))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}

		// Try choices[0].message.content (OpenAI-like)
		if inner := contentFromChoices(body); inner != "" {
			content = inner
			lastErr = nil
			return nil
		}
		lastErr = errors.New("no message content in llm response")
		return backoff.Permanent(lastErr)
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.maxRetryTime
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return "", fmt.Errorf("llm chat failed: %w", lastErr)
	}
	return content, nil
}

// contentFromChoices reads openai-style choices[0].message.content
func contentFromChoices(body []byte) string {
	var obj struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &obj); err != nil || len(obj.Choices) == 0 {
		return ""
	}
	return obj.Choices[0].Message.Content
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
