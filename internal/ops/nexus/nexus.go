// Package nexus sends chat completions to configured providers. Clients
// are built lazily and cached per provider/model pair for the life of
// the process.
package nexus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neromous/Beaver/internal/config"
	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/llm"
	"github.com/neromous/Beaver/internal/ops/msg"
)

const category = "Nexus"

// Service owns the provider clients and the completion operations.
type Service struct {
	cfg *config.Config
	log *zap.Logger

	mu      sync.Mutex
	clients map[string]llm.Client
}

func New(cfg *config.Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cfg: cfg, log: log, clients: make(map[string]llm.Client)}
}

// Close shuts down every cached client.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	for key, c := range s.clients {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(s.clients, key)
	}
	return first
}

func (s *Service) client(ctx context.Context, provider, model string) (llm.Client, config.Provider, error) {
	entry, err := s.cfg.Provider(provider, model)
	if err != nil {
		return nil, config.Provider{}, err
	}
	key := provider + "/" + model
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[key]; ok {
		return c, entry, nil
	}
	c, err := llm.New(ctx, entry.API, llm.Options{
		Timeout: s.cfg.Timeout(),
		Retries: s.cfg.Retries(),
		Logger:  s.log,
	})
	if err != nil {
		return nil, config.Provider{}, err
	}
	s.clients[key] = c
	return c, entry, nil
}

// providerRef reads the provider/model pair out of a config map.
func providerRef(v core.Value) (string, string, error) {
	if v.Kind() != core.KindMap {
		return "", "", fmt.Errorf("config must be a map, got %s", v.Kind())
	}
	provider := textOf(v, "provider")
	model := textOf(v, "model")
	if provider == "" || model == "" {
		return "", "", errors.New("config requires non-empty provider and model")
	}
	return provider, model, nil
}

func textOf(m core.Value, key string) string {
	e, ok := m.MapGet(key)
	if !ok {
		return ""
	}
	switch e.Kind() {
	case core.KindString:
		return e.Str()
	case core.KindKeyword:
		return strings.TrimPrefix(e.KeywordName(), ":")
	}
	return ""
}

// collectMessages accepts one message map, one message vector, or a list
// of either, and converts them to wire form.
func collectMessages(v core.Value) ([]llm.Message, error) {
	var raw []core.Value
	switch v.Kind() {
	case core.KindMap:
		raw = []core.Value{v}
	case core.KindList:
		items := v.Items()
		if len(items) > 0 {
			if _, ok := msg.Role(items[0]); ok {
				raw = []core.Value{v}
			}
		}
		if raw == nil {
			raw = items
		}
	default:
		return nil, fmt.Errorf("messages must be a map or list, got %s", v.Kind())
	}
	out := make([]llm.Message, len(raw))
	for i, item := range raw {
		m, err := msg.ToMessage(item)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

func checkMessages(msgs []llm.Message) error {
	users := 0
	for i, m := range msgs {
		if !llm.KnownRole(m.Role) {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		if s, ok := m.Content.(string); ok && strings.TrimSpace(s) == "" {
			return fmt.Errorf("message %d: content is blank", i)
		}
		if m.Role == llm.RoleUser {
			users++
		}
	}
	if users == 0 {
		return errors.New("at least one user message is required")
	}
	return nil
}

// sync runs one completion and wraps the outcome in the result map.
func (s *Service) sync(ctx context.Context, cfgV, msgsV core.Value) (core.Value, error) {
	provider, model, err := providerRef(cfgV)
	if err != nil {
		return core.Value{}, err
	}
	msgs, err := collectMessages(msgsV)
	if err != nil {
		return core.Value{}, err
	}
	if err := checkMessages(msgs); err != nil {
		return core.Value{}, err
	}
	client, entry, err := s.client(ctx, provider, model)
	if err != nil {
		return core.Value{}, err
	}
	s.log.Debug("completion",
		zap.String("provider", provider),
		zap.String("model", model),
		zap.Int("messages", len(msgs)))
	start := time.Now()
	resp, err := client.Complete(ctx, llm.Request{
		Model:       entry.API.Model,
		Messages:    msgs,
		Temperature: entry.Model.Temperature,
		TopP:        entry.Model.TopP,
		MaxTokens:   entry.Model.MaxTokens,
	})
	if err != nil {
		return core.Value{}, err
	}
	elapsed := time.Since(start)
	users, systems := 0, 0
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			users++
		case llm.RoleSystem:
			systems++
		}
	}
	return core.MapOf(map[string]core.Value{
		"success":  core.Bool(true),
		"response": core.String(resp.Text),
		"config": core.MapOf(map[string]core.Value{
			"provider": core.String(provider),
			"model":    core.String(model),
		}),
		"metadata": core.MapOf(map[string]core.Value{
			"response_time_ms":     core.Int(elapsed.Milliseconds()),
			"message_count":        core.Int(int64(len(msgs))),
			"user_message_count":   core.Int(int64(users)),
			"system_message_count": core.Int(int64(systems)),
			"usage": core.MapOf(map[string]core.Value{
				"prompt_tokens":     core.Int(int64(resp.Usage.PromptTokens)),
				"completion_tokens": core.Int(int64(resp.Usage.CompletionTokens)),
				"total_tokens":      core.Int(int64(resp.Usage.TotalTokens)),
			}),
		}),
	}), nil
}

// syncOne handles one batch item: a map with config and messages keys.
func (s *Service) syncOne(ctx context.Context, item core.Value) (core.Value, error) {
	if item.Kind() != core.KindMap {
		return core.Value{}, fmt.Errorf("batch item must be a map, got %s", item.Kind())
	}
	cfgV, okC := item.MapGet("config")
	msgsV, okM := item.MapGet("messages")
	if !okC || !okM {
		return core.Value{}, errors.New("batch item missing config or messages")
	}
	return s.sync(ctx, cfgV, msgsV)
}

func (s *Service) validateTarget(call *core.Call) (string, string, error) {
	switch call.Len() {
	case 0:
		ref, err := s.cfg.DefaultProvider()
		if err != nil {
			return "", "", err
		}
		return ref.Provider, ref.Model, nil
	case 1:
		arg, err := call.Arg(0)
		if err != nil {
			return "", "", err
		}
		return providerRef(arg)
	default:
		provider, err := call.Str(0)
		if err != nil {
			return "", "", err
		}
		model, err := call.Str(1)
		if err != nil {
			return "", "", err
		}
		return provider, model, nil
	}
}

// Register installs the completion operations.
func (s *Service) Register(reg *core.Registry) {
	reg.MustRegister(&core.Operation{
		Name:        ":nexus/sync",
		Description: "Send messages to a provider and wait for the reply",
		Category:    category,
		Usage:       `[:nexus/sync {:provider "openai" :model "gpt-4o"} [:user "hi"]]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(2); err != nil {
				return core.Value{}, err
			}
			cfgV := call.Args[0]
			var msgsV core.Value
			if call.Len() == 2 {
				msgsV = call.Args[1]
			} else {
				msgsV = core.List(call.Args[1:]...)
			}
			return s.sync(ctx, cfgV, msgsV)
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":nexus/sync-batch",
		Description: "Run several completions in order, reporting per-item failures",
		Category:    category,
		Usage:       `[:nexus/sync-batch [{"config" {:provider "p" :model "m"} "messages" [[":user" "hi"]]}]]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			items, err := call.ListAt(0)
			if err != nil {
				return core.Value{}, err
			}
			out := make([]core.Value, 0, len(items))
			for i, item := range items {
				if err := ctx.Err(); err != nil {
					return core.Value{}, err
				}
				res, err := s.syncOne(ctx, item)
				if err != nil {
					out = append(out, core.MapOf(map[string]core.Value{
						"success": core.Bool(false),
						"index":   core.Int(int64(i)),
						"error":   core.String(err.Error()),
					}))
					continue
				}
				out = append(out, res)
			}
			return core.List(out...), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":nexus/validate",
		Description: "Check a provider entry and probe the endpoint",
		Category:    category,
		Usage:       `[:nexus/validate "openai" "gpt-4o"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			provider, model, err := s.validateTarget(call)
			if err != nil {
				return core.Value{}, err
			}
			out := map[string]core.Value{
				"provider": core.String(provider),
				"model":    core.String(model),
				"valid":    core.Bool(false),
				"warnings": core.List(),
			}
			if _, err := s.cfg.Provider(provider, model); err != nil {
				out["error"] = core.String(err.Error())
				return core.MapOf(out), nil
			}
			res := s.cfg.Validate(provider, model)
			warnings := make([]core.Value, len(res.Warnings))
			for i, w := range res.Warnings {
				warnings[i] = core.String(w)
			}
			out["warnings"] = core.List(warnings...)
			if !res.Valid {
				out["error"] = core.String("missing " + strings.Join(res.Missing, ", "))
				return core.MapOf(out), nil
			}
			client, _, err := s.client(ctx, provider, model)
			if err != nil {
				out["error"] = core.String(err.Error())
				return core.MapOf(out), nil
			}
			if err := client.Validate(ctx); err != nil {
				out["error"] = core.String(err.Error())
				return core.MapOf(out), nil
			}
			out["valid"] = core.Bool(true)
			return core.MapOf(out), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":nexus/quick-chat",
		Description: "Send one prompt to the default provider",
		Category:    category,
		Usage:       `[:nexus/quick-chat "summarize this repo"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			if err := call.Require(1); err != nil {
				return core.Value{}, err
			}
			prompt := strings.Join(call.Texts(), " ")
			ref, err := s.cfg.DefaultProvider()
			if err != nil {
				return core.Value{}, err
			}
			client, entry, err := s.client(ctx, ref.Provider, ref.Model)
			if err != nil {
				return core.Value{}, err
			}
			resp, err := client.Complete(ctx, llm.Request{
				Model:       entry.API.Model,
				Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
				Temperature: entry.Model.Temperature,
				TopP:        entry.Model.TopP,
				MaxTokens:   entry.Model.MaxTokens,
			})
			if err != nil {
				return core.Value{}, err
			}
			return core.String(resp.Text), nil
		},
	})
}
