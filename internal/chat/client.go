package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/entityscout/entityscout/internal/config"
	"github.com/entityscout/entityscout/internal/models"
	"github.com/entityscout/entityscout/pkg/logger"
)

const maxResponseBytes = 10 * 1024 * 1024 // 10MB limit

// Client issues Chat Completions requests against an OpenAI-compatible
// endpoint. Every request is retried with randomized exponential backoff; once
// the attempt budget is exhausted the error is returned to the caller rather
// than raised, so the conversation loop can end cleanly.
type Client struct {
	baseURL        string
	apiKey         string
	model          string
	client         *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	log            *zap.Logger
}

// New creates a client for the configured endpoint. The retry budget and
// backoff cap come from the agent config so they stay tunable.
func New(cfg config.OpenAIConfig, agentCfg config.AgentConfig) *Client {
	maxAttempts := agentCfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	maxBackoff := time.Duration(agentCfg.BackoffMaxSeconds) * time.Second
	if maxBackoff <= 0 {
		maxBackoff = 40 * time.Second
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		maxAttempts:    maxAttempts,
		initialBackoff: time.Second,
		maxBackoff:     maxBackoff,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		log: logger.Named("chat"),
	}
}

// Model returns the configured default model name.
func (c *Client) Model() string {
	return c.model
}

// CreateChatCompletion sends one chat completion request, retrying transport
// and provider errors up to the attempt budget. It never panics; after the
// budget is spent the last error is returned.
func (c *Client) CreateChatCompletion(ctx context.Context, req models.ChatCompletionRequest) (*models.ChatCompletionResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("chat request has no messages")
	}
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxInterval = c.maxBackoff
	bo.MaxElapsedTime = 0

	var resp *models.ChatCompletionResponse
	attempt := 0
	operation := func() error {
		attempt++
		r, err := c.doRequest(ctx, body)
		if err != nil {
			c.log.Warn("chat request attempt failed",
				zap.Int("attempt", attempt),
				zap.String("model", req.Model),
				zap.Error(err),
			)
			return err
		}
		resp = r
		return nil
	}

	err = backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(c.maxAttempts-1)))
	if err != nil {
		return nil, fmt.Errorf("chat request failed after %d attempts: %w", attempt, err)
	}
	return resp, nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (*models.ChatCompletionResponse, error) {
	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		var errResp models.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("upstream %d: %s", httpResp.StatusCode, errResp.Error.Message)
		}
		return nil, fmt.Errorf("upstream %d: %s", httpResp.StatusCode, string(respBody))
	}

	var chatResp models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &chatResp, nil
}
