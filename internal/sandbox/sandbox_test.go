package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRelativeToCwd(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	cwd, _ := os.Getwd()

	abs, err := r.Resolve("notes.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if abs != filepath.Join(cwd, "notes.txt") {
		t.Errorf("got %s", abs)
	}

	abs, err = r.Resolve("a/../b.txt")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if abs != filepath.Join(cwd, "b.txt") {
		t.Errorf("path not cleaned: %s", abs)
	}
}

func TestResolveEmptyPath(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(""); err == nil {
		t.Error("empty path resolved")
	}
}

func TestAllowListEnforcement(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := r.Allow(dir); err != nil {
		t.Fatalf("Allow failed: %v", err)
	}

	if _, err := r.Resolve(filepath.Join(dir, "inside.txt")); err != nil {
		t.Errorf("path inside the allow-list denied: %v", err)
	}
	if _, err := r.Resolve("/etc/passwd"); !errors.Is(err, ErrDenied) {
		t.Errorf("path outside the allow-list admitted: %v", err)
	}
	// /foo must not admit /foobar
	if _, err := r.Resolve(dir + "bar/x.txt"); !errors.Is(err, ErrDenied) {
		t.Errorf("sibling with the allowed prefix admitted: %v", err)
	}
	// escaping through .. is caught after cleaning
	if _, err := r.Resolve(filepath.Join(dir, "..", "escape.txt")); !errors.Is(err, ErrDenied) {
		t.Errorf("dot-dot escape admitted: %v", err)
	}
}

func TestAllowIsIdempotent(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	r.Allow(dir)
	r.Allow(dir)
	if got := r.Allowed(); len(got) != 1 {
		t.Errorf("duplicate Allow grew the list: %v", got)
	}
}

func TestSetAllowedAndClear(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	a, b := t.TempDir(), t.TempDir()
	set, err := r.SetAllowed([]string{a, b})
	if err != nil {
		t.Fatalf("SetAllowed failed: %v", err)
	}
	if len(set) != 2 {
		t.Fatalf("SetAllowed returned %v", set)
	}
	if _, err := r.Resolve("/somewhere/else"); !errors.Is(err, ErrDenied) {
		t.Error("restriction not applied")
	}

	r.Clear()
	if _, err := r.Resolve("/somewhere/else"); err != nil {
		t.Errorf("cleared sandbox still denies: %v", err)
	}
	if got := r.Allowed(); len(got) != 0 {
		t.Errorf("Allowed() after Clear = %v", got)
	}
}

func TestInfo(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	file := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r.SetScriptDir(dir)

	info, err := r.Info(file)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if !info.Exists || !info.IsFile || info.IsDir {
		t.Errorf("stat flags wrong: %+v", info)
	}
	if info.Basename != "data.txt" || info.Dirname != dir {
		t.Errorf("name split wrong: %+v", info)
	}
	if !info.IsAbsolute {
		t.Error("absolute input reported relative")
	}
	if info.ScriptDir != dir {
		t.Errorf("script dir = %q", info.ScriptDir)
	}

	missing, err := r.Info(filepath.Join(dir, "nope.txt"))
	if err != nil {
		t.Fatalf("Info on a missing path failed: %v", err)
	}
	if missing.Exists {
		t.Error("missing path reported existing")
	}
}
