package fileio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/sandbox"
)

func registerDirOps(reg *core.Registry, sb *sandbox.Resolver) {
	reg.MustRegister(&core.Operation{
		Name:        ":dir/exists",
		Description: "Whether a directory exists at the path",
		Category:    categoryFileIO,
		Usage:       `[:dir/exists "src"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			st, err := os.Stat(abs)
			return core.Bool(err == nil && st.IsDir()), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":dir/create",
		Description: "Create a directory and its parents",
		Category:    categoryFileIO,
		Usage:       `[:dir/create "out/reports"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return core.Value{}, fmt.Errorf("create %s: %w", abs, err)
			}
			return core.String("created " + abs), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":dir/list",
		Description: "List directory entries matching a glob pattern",
		Category:    categoryFileIO,
		Usage:       `[:dir/list "src" "*.go"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			pattern, err := call.StrOr(1, "*")
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			st, err := os.Stat(abs)
			if err != nil || !st.IsDir() {
				return core.Value{}, fmt.Errorf("not a directory: %s", abs)
			}
			matches, err := filepath.Glob(filepath.Join(abs, pattern))
			if err != nil {
				return core.Value{}, fmt.Errorf("bad pattern %q: %w", pattern, err)
			}
			sort.Strings(matches)
			elems := make([]core.Value, len(matches))
			for i, m := range matches {
				elems[i] = core.String(m)
			}
			return core.List(elems...), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":dir/delete",
		Description: "Delete a directory, recursively when asked",
		Category:    categoryFileIO,
		Usage:       `[:dir/delete "tmp" true]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			recursive, err := call.BoolOr(1, false)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			st, err := os.Stat(abs)
			if err != nil || !st.IsDir() {
				return core.Value{}, fmt.Errorf("not a directory: %s", abs)
			}
			if recursive {
				if err := os.RemoveAll(abs); err != nil {
					return core.Value{}, fmt.Errorf("remove %s: %w", abs, err)
				}
			} else if err := os.Remove(abs); err != nil {
				return core.Value{}, fmt.Errorf("remove %s: %w", abs, err)
			}
			return core.String("removed " + abs), nil
		},
	})
}

func registerPathOps(reg *core.Registry, sb *sandbox.Resolver) {
	reg.MustRegister(&core.Operation{
		Name:        ":path/info",
		Description: "Describe a path relative to the working directory",
		Category:    categoryFileIO,
		Usage:       `[:path/info "src/main.go"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			info, err := sb.Info(path)
			if err != nil {
				return core.Value{}, err
			}
			return core.MapOf(map[string]core.Value{
				"original":          core.String(info.Original),
				"resolved":          core.String(info.Resolved),
				"relative_to_cwd":   core.String(info.RelativeToCwd),
				"is_absolute":       core.Bool(info.IsAbsolute),
				"exists":            core.Bool(info.Exists),
				"is_file":           core.Bool(info.IsFile),
				"is_directory":      core.Bool(info.IsDir),
				"dirname":           core.String(info.Dirname),
				"basename":          core.String(info.Basename),
				"current_directory": core.String(info.Cwd),
				"script_directory":  core.String(info.ScriptDir),
			}), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":path/cwd",
		Description: "The working directory paths resolve against",
		Category:    categoryFileIO,
		Usage:       `[:path/cwd]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			return core.String(sb.Cwd()), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":path/resolve",
		Description: "Resolve a path to absolute form",
		Category:    categoryFileIO,
		Usage:       `[:path/resolve "../notes.txt"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			return core.String(abs), nil
		},
	})
}

func registerSandboxOps(reg *core.Registry, sb *sandbox.Resolver) {
	reg.MustRegister(&core.Operation{
		Name:        ":sandbox/allow",
		Description: "Add a directory to the allow-list",
		Category:    categorySecurity,
		Usage:       `[:sandbox/allow "/data"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			dir, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Allow(dir)
			if err != nil {
				return core.Value{}, err
			}
			return core.String("allowed " + abs), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":sandbox/set",
		Description: "Replace the allow-list",
		Category:    categorySecurity,
		Usage:       `[:sandbox/set "/data" "/tmp/work"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			dirs, err := stringArgs(call)
			if err != nil {
				return core.Value{}, err
			}
			set, err := sb.SetAllowed(dirs)
			if err != nil {
				return core.Value{}, err
			}
			if len(set) == 0 {
				return core.String("sandbox cleared, access unrestricted"), nil
			}
			return core.String(fmt.Sprintf("sandbox restricted to %d directories", len(set))), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":sandbox/clear",
		Description: "Remove all allow-list restrictions",
		Category:    categorySecurity,
		Usage:       `[:sandbox/clear]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			sb.Clear()
			return core.String("sandbox cleared, access unrestricted"), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":sandbox/list",
		Description: "The current allow-list",
		Category:    categorySecurity,
		Usage:       `[:sandbox/list]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			dirs := sb.Allowed()
			elems := make([]core.Value, len(dirs))
			for i, d := range dirs {
				elems[i] = core.String(d)
			}
			return core.List(elems...), nil
		},
	})
}

// stringArgs flattens arguments into strings, accepting both varargs and
// a single list.
func stringArgs(call *core.Call) ([]string, error) {
	var out []string
	for i, arg := range call.Args {
		switch arg.Kind() {
		case core.KindString:
			out = append(out, arg.Str())
		case core.KindList:
			for _, e := range arg.Items() {
				if e.Kind() != core.KindString {
					return nil, fmt.Errorf("argument %d: expected a list of strings", i)
				}
				out = append(out, e.Str())
			}
		default:
			return nil, fmt.Errorf("argument %d: expected string or list, got %s", i, arg.Kind())
		}
	}
	return out, nil
}
