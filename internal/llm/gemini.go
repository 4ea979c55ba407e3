package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/neromous/Beaver/internal/config"
)

// GeminiClient drives Gemini models through the official SDK instead of
// the OpenAI-compatible shim.
type GeminiClient struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// NewGemini builds a client for one entry with api.type gemini.
func NewGemini(ctx context.Context, api config.APIConfig, opts Options) (*GeminiClient, error) {
	if api.SecretKey == "" {
		return nil, fmt.Errorf("gemini provider requires api.secret_key")
	}
	opts = opts.withDefaults()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: api.SecretKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: api.Model, log: opts.Logger}, nil
}

// Complete maps the request onto GenerateContent. System messages merge
// into the system instruction; only text content crosses this bridge.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var system []string
	var contents []*genai.Content
	for _, m := range req.Messages {
		text, err := messageText(m)
		if err != nil {
			return nil, err
		}
		switch m.Role {
		case RoleSystem:
			system = append(system, text)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("request has no user content")
	}

	genCfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n"), genai.RoleUser)
	}
	if req.Temperature != nil {
		genCfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		genCfg.TopP = genai.Ptr(float32(*req.TopP))
	}
	if req.MaxTokens != nil {
		genCfg.MaxOutputTokens = int32(*req.MaxTokens)
	}

	c.log.Debug("gemini generate", zap.String("model", model), zap.Int("contents", len(contents)))
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate failed: %w", err)
	}

	out := &Response{Text: resp.Text(), Model: model}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// messageText flattens message content to plain text. Part lists keep
// their text parts; media parts have no mapping on this path.
func messageText(m Message) (string, error) {
	switch content := m.Content.(type) {
	case string:
		return content, nil
	case []any:
		var texts []string
		for _, part := range content {
			pm, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := pm["text"].(string); ok {
				texts = append(texts, t)
			}
		}
		if len(texts) == 0 {
			return "", fmt.Errorf("gemini provider supports text content only")
		}
		return strings.Join(texts, " "), nil
	default:
		return "", fmt.Errorf("unsupported content type %T", m.Content)
	}
}

// Validate sends a one-token probe.
func (c *GeminiClient) Validate(ctx context.Context) error {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: 1}
	contents := []*genai.Content{genai.NewContentFromText("ping", genai.RoleUser)}
	if _, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg); err != nil {
		return fmt.Errorf("gemini validate failed: %w", err)
	}
	return nil
}

// Close satisfies Client; the SDK client holds nothing needing
// teardown.
func (c *GeminiClient) Close() error { return nil }
