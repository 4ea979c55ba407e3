// Package ednops runs script files through the resolver: one command per
// file, or a list of commands executed in order.
package ednops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/edn"
	"github.com/neromous/Beaver/internal/sandbox"
)

const category = "Scripting"

// Service reads and executes script files under the sandbox.
type Service struct {
	sb  *sandbox.Resolver
	log *zap.Logger
}

func New(sb *sandbox.Resolver, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{sb: sb, log: log}
}

// load reads and parses one script file without resolving it.
func (s *Service) load(path string) (core.Value, string, error) {
	abs, err := s.sb.Resolve(path)
	if err != nil {
		return core.Value{}, "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return core.Value{}, "", fmt.Errorf("read script %s: %w", abs, err)
	}
	parsed, err := edn.Parse(string(data))
	if err != nil {
		if errors.Is(err, edn.ErrEmptyInput) {
			return core.Value{}, "", fmt.Errorf("script %s is empty", abs)
		}
		return core.Value{}, "", fmt.Errorf("script %s: %w", abs, err)
	}
	return parsed, abs, nil
}

var sampleScripts = []struct {
	name string
	body string
}{
	{"simple_text.edn", `[:p "Hello" " " "World" "!"]`},
	{"markdown_doc.edn", `[[:md/h1 "Report"]
 [:md/h2 "Summary"]
 [:p "Generated with bf."]
 [:md/list "first point" "second point"]]`},
	{"multi_command.edn", `[[:p "step one"]
 [:row "step" "two"]
 [:rows "a" "b" "c"]]`},
}

// Register installs the script operations.
func (s *Service) Register(reg *core.Registry) {
	reg.MustRegister(&core.Operation{
		Name:        ":edn/run",
		Description: "Execute a script file, continuing past failed commands",
		Category:    category,
		Usage:       `[:edn/run "scripts/report.edn"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			parsed, abs, err := s.load(path)
			if err != nil {
				return core.Value{}, err
			}
			s.sb.SetScriptDir(filepath.Dir(abs))

			var commands []core.Value
			if parsed.Kind() == core.KindList {
				commands = parsed.Items()
			} else {
				commands = []core.Value{parsed}
			}

			start := time.Now()
			allOK := true
			results := make([]core.Value, 0, len(commands))
			for i, cmd := range commands {
				if err := ctx.Err(); err != nil {
					return core.Value{}, err
				}
				out, err := call.Resolve(ctx, cmd)
				if err != nil {
					allOK = false
					s.log.Debug("script command failed",
						zap.String("file", abs),
						zap.Int("index", i),
						zap.Error(err))
					results = append(results, core.MapOf(map[string]core.Value{
						"index":   core.Int(int64(i)),
						"success": core.Bool(false),
						"error":   core.String(err.Error()),
					}))
					continue
				}
				results = append(results, core.MapOf(map[string]core.Value{
					"index":   core.Int(int64(i)),
					"success": core.Bool(true),
					"result":  out,
				}))
			}
			return core.MapOf(map[string]core.Value{
				"success":           core.Bool(allOK),
				"file_path":         core.String(abs),
				"execution_count":   core.Int(int64(len(commands))),
				"execution_time_ms": core.Int(time.Since(start).Milliseconds()),
				"results":           core.List(results...),
			}), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":edn/load",
		Description: "Parse a script file and return it unexecuted",
		Category:    category,
		Usage:       `[:edn/load "scripts/report.edn"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			parsed, _, err := s.load(path)
			if err != nil {
				return core.Value{}, err
			}
			return parsed, nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":edn/create-samples",
		Description: "Write example script files into a directory",
		Category:    category,
		Usage:       `[:edn/create-samples "examples/edn_scripts"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			dir, err := call.StrOr(0, "examples/edn_scripts")
			if err != nil {
				return core.Value{}, err
			}
			abs, err := s.sb.Resolve(dir)
			if err != nil {
				return core.Value{}, err
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return core.Value{}, fmt.Errorf("create %s: %w", abs, err)
			}
			names := make([]core.Value, 0, len(sampleScripts))
			for _, sample := range sampleScripts {
				target := filepath.Join(abs, sample.name)
				if err := os.WriteFile(target, []byte(sample.body+"\n"), 0o644); err != nil {
					return core.Value{}, fmt.Errorf("write %s: %w", target, err)
				}
				names = append(names, core.String(sample.name))
			}
			return core.MapOf(map[string]core.Value{
				"directory": core.String(abs),
				"files":     core.List(names...),
				"count":     core.Int(int64(len(sampleScripts))),
			}), nil
		},
	})
}
