package llm

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

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/neromous/Beaver/internal/config"
)

// errTransient tags failures worth retrying: transport errors, rate
// limits, and server-side status codes.
var errTransient = errors.New("transient")

// APIError is a non-2xx response, with the message extracted from the
// JSON error body when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// OpenAIClient speaks the OpenAI-compatible chat completion protocol.
// Any endpoint exposing POST <base>/chat/completions works: OpenAI,
// OpenRouter, Ollama, llama.cpp, vLLM.
type OpenAIClient struct {
	endpoint  string
	apiKey    string
	model     string
	http      *http.Client
	retries   int
	baseDelay time.Duration
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewOpenAI builds a client for one OpenAI-compatible entry.
func NewOpenAI(api config.APIConfig, opts Options) *OpenAIClient {
	opts = opts.withDefaults()
	return &OpenAIClient{
		endpoint:  normalizeEndpoint(api.URL),
		apiKey:    api.SecretKey,
		model:     api.Model,
		http:      &http.Client{Timeout: opts.Timeout},
		retries:   opts.Retries,
		baseDelay: opts.RetryBaseDelay,
		limiter:   rate.NewLimiter(rate.Limit(2), 4),
		log:       opts.Logger,
	}
}

// normalizeEndpoint appends the chat completions path unless the URL
// already carries it, so both base URLs and full endpoint URLs work in
// configuration.
func normalizeEndpoint(raw string) string {
	u := strings.TrimRight(raw, "/")
	if strings.HasSuffix(u, "/chat/completions") {
		return u
	}
	return u + "/chat/completions"
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request, retrying transient failures with
// exponential backoff.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * c.baseDelay
			c.log.Debug("retrying completion",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		resp, err := c.doRequest(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.retries, lastErr)
}

func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", errTransient, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, statusError(httpResp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}
	return &Response{
		Text:  parsed.Choices[0].Message.Content,
		Model: parsed.Model,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// statusError maps a non-200 response to an APIError, pulling the
// message out of the JSON error body when it parses.
func statusError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var parsed errorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	if msg == "" {
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			msg = "authentication failed"
		case http.StatusNotFound:
			msg = "endpoint not found"
		default:
			msg = http.StatusText(status)
		}
	}
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return &APIError{Status: status, Message: msg}
}

func retryable(err error) bool {
	if errors.Is(err, errTransient) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status == http.StatusTooManyRequests || ae.Status >= 500
	}
	return false
}

// Validate sends a one-token probe to confirm the entry works end to
// end.
func (c *OpenAIClient) Validate(ctx context.Context) error {
	one := 1
	_, err := c.Complete(ctx, Request{
		Messages:  []Message{{Role: RoleUser, Content: "ping"}},
		MaxTokens: &one,
	})
	return err
}

// Close satisfies Client; the HTTP client holds nothing needing
// teardown.
func (c *OpenAIClient) Close() error { return nil }
