// Package llm holds the provider clients behind one interface: the
// OpenAI-compatible HTTP protocol and the Gemini SDK.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neromous/Beaver/internal/config"
)

// Chat roles accepted across providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleFunction  = "function"
	RoleTool      = "tool"
)

// KnownRole reports whether role is one of the chat roles.
func KnownRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction, RoleTool:
		return true
	}
	return false
}

// Message is one chat turn. Content is a string for plain text, or a
// part list (maps with a "type" entry) for multimedia payloads.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Request is a provider-neutral completion request. Nil sampling fields
// are omitted from the wire call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is one completed exchange.
type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Client talks to one configured provider endpoint.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Validate(ctx context.Context) error
	Close() error
}

// Options tune transport behavior shared by all clients.
type Options struct {
	Timeout        time.Duration
	Retries        int
	RetryBaseDelay time.Duration
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// New builds the client for one provider entry based on api.type.
func New(ctx context.Context, api config.APIConfig, opts Options) (Client, error) {
	switch api.Type {
	case "", "openai":
		return NewOpenAI(api, opts), nil
	case "gemini":
		return NewGemini(ctx, api, opts)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", api.Type)
	}
}
