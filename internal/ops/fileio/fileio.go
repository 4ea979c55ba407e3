// Package fileio registers the filesystem operations. Every path passes
// through the sandbox resolver before anything touches disk.
package fileio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/sandbox"
)

const (
	categoryFileIO   = "FileIO"
	categorySecurity = "Security"
)

// Register installs file, directory, path, and sandbox management
// operations bound to sb.
func Register(reg *core.Registry, sb *sandbox.Resolver) {
	registerFileOps(reg, sb)
	registerDirOps(reg, sb)
	registerPathOps(reg, sb)
	registerSandboxOps(reg, sb)
}

func registerFileOps(reg *core.Registry, sb *sandbox.Resolver) {
	reg.MustRegister(&core.Operation{
		Name:        ":file/read",
		Description: "Read a file as UTF-8 text",
		Category:    categoryFileIO,
		Usage:       `[:file/read "notes.txt"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			enc, err := call.StrOr(1, "utf-8")
			if err != nil {
				return core.Value{}, err
			}
			if enc != "utf-8" && enc != "utf8" {
				return core.Value{}, fmt.Errorf("unsupported encoding %q", enc)
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				return core.Value{}, fmt.Errorf("read %s: %w", abs, err)
			}
			return core.String(string(data)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/write",
		Description: "Write text to a file, creating parent directories",
		Category:    categoryFileIO,
		Usage:       `[:file/write "out.txt" "content"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			content, err := call.Text(1)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return core.Value{}, fmt.Errorf("create parent directory: %w", err)
			}
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return core.Value{}, fmt.Errorf("write %s: %w", abs, err)
			}
			return core.String(fmt.Sprintf("wrote %s (%d bytes)", abs, len(content))), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/append",
		Description: "Append text to a file, creating it if missing",
		Category:    categoryFileIO,
		Usage:       `[:file/append "log.txt" "line"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			content, err := call.Text(1)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return core.Value{}, fmt.Errorf("create parent directory: %w", err)
			}
			f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return core.Value{}, fmt.Errorf("open %s: %w", abs, err)
			}
			defer f.Close()
			n, err := f.WriteString(content)
			if err != nil {
				return core.Value{}, fmt.Errorf("append to %s: %w", abs, err)
			}
			return core.String(fmt.Sprintf("appended %d bytes to %s", n, abs)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/exists",
		Description: "Whether a regular file exists at the path",
		Category:    categoryFileIO,
		Usage:       `[:file/exists "notes.txt"]`,
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
			return core.Bool(err == nil && st.Mode().IsRegular()), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/info",
		Description: "Size, timestamps, and type of a file",
		Category:    categoryFileIO,
		Usage:       `[:file/info "notes.txt"]`,
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
			if err != nil {
				return core.Value{}, fmt.Errorf("stat %s: %w", abs, err)
			}
			return core.MapOf(map[string]core.Value{
				"path":      core.String(abs),
				"name":      core.String(st.Name()),
				"size":      core.Int(st.Size()),
				"modified":  core.String(st.ModTime().UTC().Format(time.RFC3339)),
				"is_file":   core.Bool(st.Mode().IsRegular()),
				"is_dir":    core.Bool(st.IsDir()),
				"extension": core.String(filepath.Ext(abs)),
			}), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/delete",
		Description: "Delete a file",
		Category:    categoryFileIO,
		Usage:       `[:file/delete "old.txt"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			path, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			abs, err := sb.Resolve(path)
			if err != nil {
				return core.Value{}, err
			}
			if err := os.Remove(abs); err != nil {
				return core.Value{}, fmt.Errorf("delete %s: %w", abs, err)
			}
			return core.String("deleted " + abs), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/copy",
		Description: "Copy a file, creating destination directories",
		Category:    categoryFileIO,
		Usage:       `[:file/copy "a.txt" "backup/a.txt"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			src, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			dst, err := call.Str(1)
			if err != nil {
				return core.Value{}, err
			}
			srcAbs, err := sb.Resolve(src)
			if err != nil {
				return core.Value{}, err
			}
			dstAbs, err := sb.Resolve(dst)
			if err != nil {
				return core.Value{}, err
			}
			if err := copyFile(srcAbs, dstAbs); err != nil {
				return core.Value{}, err
			}
			return core.String(fmt.Sprintf("copied %s to %s", srcAbs, dstAbs)), nil
		},
	})

	reg.MustRegister(&core.Operation{
		Name:        ":file/move",
		Description: "Move or rename a file",
		Category:    categoryFileIO,
		Usage:       `[:file/move "a.txt" "archive/a.txt"]`,
		Handler: func(ctx context.Context, call *core.Call) (core.Value, error) {
			src, err := call.Str(0)
			if err != nil {
				return core.Value{}, err
			}
			dst, err := call.Str(1)
			if err != nil {
				return core.Value{}, err
			}
			srcAbs, err := sb.Resolve(src)
			if err != nil {
				return core.Value{}, err
			}
			dstAbs, err := sb.Resolve(dst)
			if err != nil {
				return core.Value{}, err
			}
			if err := os.MkdirAll(filepath.Dir(dstAbs), 0o755); err != nil {
				return core.Value{}, fmt.Errorf("create destination directory: %w", err)
			}
			if err := os.Rename(srcAbs, dstAbs); err != nil {
				return core.Value{}, fmt.Errorf("move %s: %w", srcAbs, err)
			}
			return core.String(fmt.Sprintf("moved %s to %s", srcAbs, dstAbs)), nil
		},
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
