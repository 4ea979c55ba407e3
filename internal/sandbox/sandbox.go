// Package sandbox normalizes filesystem paths and enforces the
// directory allow-list every file operation runs behind.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrDenied marks a path outside the allowed directories.
var ErrDenied = errors.New("path outside allowed directories")

// Resolver turns user-supplied paths into absolute ones and checks them
// against the allow-list. An empty allow-list means unrestricted. The
// working directory is cached at construction so every resolution in a
// run sees the same base.
type Resolver struct {
	mu        sync.RWMutex
	cwd       string
	scriptDir string
	allowed   []string
}

func New() (*Resolver, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	return &Resolver{cwd: cwd}, nil
}

// Cwd returns the cached working directory.
func (r *Resolver) Cwd() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cwd
}

// Resolve expands ~, makes path absolute against the cached working
// directory, cleans it, and checks the allow-list.
func (r *Resolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	abs, err := r.normalize(path)
	if err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.isAllowed(abs) {
		return "", fmt.Errorf("path %s: %w", abs, ErrDenied)
	}
	return abs, nil
}

func (r *Resolver) normalize(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) {
		r.mu.RLock()
		path = filepath.Join(r.cwd, path)
		r.mu.RUnlock()
	}
	return filepath.Clean(path), nil
}

// isAllowed needs a read lock held. The trailing-separator comparison
// keeps /foo from admitting /foobar.
func (r *Resolver) isAllowed(abs string) bool {
	if len(r.allowed) == 0 {
		return true
	}
	for _, dir := range r.allowed {
		if abs == dir || strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// Allow adds one directory to the allow-list and returns its normalized
// form.
func (r *Resolver) Allow(dir string) (string, error) {
	abs, err := r.normalize(dir)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.allowed {
		if d == abs {
			return abs, nil
		}
	}
	r.allowed = append(r.allowed, abs)
	return abs, nil
}

// SetAllowed replaces the allow-list. An empty list removes all
// restrictions.
func (r *Resolver) SetAllowed(dirs []string) ([]string, error) {
	abs := make([]string, 0, len(dirs))
	for _, d := range dirs {
		a, err := r.normalize(d)
		if err != nil {
			return nil, err
		}
		abs = append(abs, a)
	}
	r.mu.Lock()
	r.allowed = abs
	r.mu.Unlock()
	return abs, nil
}

// Clear removes all restrictions.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.allowed = nil
	r.mu.Unlock()
}

// Allowed returns a copy of the allow-list.
func (r *Resolver) Allowed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.allowed))
	copy(out, r.allowed)
	return out
}

// SetScriptDir records the directory of the running script, reported by
// path introspection.
func (r *Resolver) SetScriptDir(dir string) {
	r.mu.Lock()
	r.scriptDir = dir
	r.mu.Unlock()
}

func (r *Resolver) ScriptDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scriptDir
}

// PathInfo describes one path. Filling it stats the path but reads
// nothing.
type PathInfo struct {
	Original      string
	Resolved      string
	RelativeToCwd string
	IsAbsolute    bool
	Exists        bool
	IsFile        bool
	IsDir         bool
	Dirname       string
	Basename      string
	Cwd           string
	ScriptDir     string
}

// Info resolves path and describes it.
func (r *Resolver) Info(path string) (PathInfo, error) {
	abs, err := r.Resolve(path)
	if err != nil {
		return PathInfo{}, err
	}
	info := PathInfo{
		Original:   path,
		Resolved:   abs,
		IsAbsolute: filepath.IsAbs(path),
		Dirname:    filepath.Dir(abs),
		Basename:   filepath.Base(abs),
		Cwd:        r.Cwd(),
		ScriptDir:  r.ScriptDir(),
	}
	if rel, err := filepath.Rel(info.Cwd, abs); err == nil {
		info.RelativeToCwd = rel
	}
	if st, err := os.Stat(abs); err == nil {
		info.Exists = true
		info.IsFile = st.Mode().IsRegular()
		info.IsDir = st.IsDir()
	}
	return info, nil
}
