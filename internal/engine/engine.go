// Package engine wires the interpreter together: configuration, sandbox,
// operation registry, resolver, provider clients, and the execution log.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/neromous/Beaver/internal/config"
	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/edn"
	"github.com/neromous/Beaver/internal/history"
	"github.com/neromous/Beaver/internal/logging"
	"github.com/neromous/Beaver/internal/ops/ednops"
	"github.com/neromous/Beaver/internal/ops/fileio"
	"github.com/neromous/Beaver/internal/ops/help"
	"github.com/neromous/Beaver/internal/ops/markdown"
	"github.com/neromous/Beaver/internal/ops/msg"
	"github.com/neromous/Beaver/internal/ops/nexus"
	"github.com/neromous/Beaver/internal/ops/stringops"
	"github.com/neromous/Beaver/internal/ops/text"
	"github.com/neromous/Beaver/internal/ops/upload"
	"github.com/neromous/Beaver/internal/sandbox"
)

// Options tune engine construction beyond what configuration carries.
type Options struct {
	// NoHistory skips the execution log even when configuration enables
	// it. The REPL sets this for throwaway sessions.
	NoHistory bool
}

// Engine is one assembled interpreter instance.
type Engine struct {
	Cfg      *config.Config
	Registry *core.Registry
	Resolver *core.Resolver
	Sandbox  *sandbox.Resolver
	History  *history.Store

	nexus *nexus.Service
	log   *zap.Logger
}

// New assembles an engine from cfg. A nil cfg uses built-in defaults.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	sb, err := sandbox.New()
	if err != nil {
		return nil, err
	}
	if len(cfg.Settings.Sandbox) > 0 {
		if _, err := sb.SetAllowed(cfg.Settings.Sandbox); err != nil {
			return nil, err
		}
	}

	var store *history.Store
	if cfg.Settings.History && !opts.NoHistory {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	reg := core.NewRegistry()
	nx := nexus.New(cfg, logging.Named("nexus"))
	text.Register(reg)
	markdown.Register(reg)
	stringops.Register(reg)
	fileio.Register(reg, sb)
	msg.Register(reg)
	upload.New(sb, cfg.Settings.UploadMaxMB).Register(reg)
	nx.Register(reg)
	help.Register(reg)
	ednops.New(sb, logging.Named("script")).Register(reg)

	res := core.NewResolver(reg)
	res.MaxDepth = cfg.ResolveMaxDepth()
	res.Log = logging.Named("resolver")

	return &Engine{
		Cfg:      cfg,
		Registry: reg,
		Resolver: res,
		Sandbox:  sb,
		History:  store,
		nexus:    nx,
		log:      logging.Named("engine"),
	}, nil
}

// EvalText parses and resolves one source form. Empty input returns
// edn.ErrEmptyInput without touching the log; every other outcome is
// recorded.
func (e *Engine) EvalText(ctx context.Context, source string) (core.Value, error) {
	parsed, err := edn.Parse(source)
	if err != nil {
		if !errors.Is(err, edn.ErrEmptyInput) {
			e.record(source, "", core.Value{}, 0, err)
		}
		return core.Value{}, err
	}
	start := time.Now()
	out, err := e.Resolver.Resolve(ctx, parsed)
	e.record(source, "", out, time.Since(start), err)
	return out, err
}

// EvalValue resolves an already parsed value.
func (e *Engine) EvalValue(ctx context.Context, v core.Value) (core.Value, error) {
	start := time.Now()
	out, err := e.Resolver.Resolve(ctx, v)
	e.record(v.String(), "", out, time.Since(start), err)
	return out, err
}

// RunScript executes a script file, recording the run under its path.
func (e *Engine) RunScript(ctx context.Context, path string) (core.Value, error) {
	expr := core.Expr(":edn/run", core.String(path))
	start := time.Now()
	out, err := e.Resolver.Resolve(ctx, expr)
	e.record(expr.String(), path, out, time.Since(start), err)
	return out, err
}

func (e *Engine) record(source, script string, result core.Value, elapsed time.Duration, evalErr error) {
	if e.History == nil {
		return
	}
	entry := &history.Entry{
		Source:   source,
		Script:   script,
		OK:       evalErr == nil,
		Duration: elapsed,
	}
	if evalErr != nil {
		entry.Error = evalErr.Error()
	} else {
		entry.Result = result.String()
	}
	if err := e.History.Record(entry); err != nil {
		e.log.Warn("record history", zap.Error(err))
	}
}

// Close releases provider clients and the history store.
func (e *Engine) Close() error {
	var first error
	if err := e.nexus.Close(); err != nil {
		first = err
	}
	if e.History != nil {
		if err := e.History.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
