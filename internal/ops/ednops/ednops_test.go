package ednops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/edn"
	"github.com/neromous/Beaver/internal/ops/markdown"
	"github.com/neromous/Beaver/internal/ops/text"
	"github.com/neromous/Beaver/internal/sandbox"
)

type harness struct {
	res *core.Resolver
	sb  *sandbox.Resolver
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	sb, err := sandbox.New()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if _, err := sb.Allow(dir); err != nil {
		t.Fatal(err)
	}
	reg := core.NewRegistry()
	text.Register(reg)
	markdown.Register(reg)
	New(sb, nil).Register(reg)
	return &harness{res: core.NewResolver(reg), sb: sb, dir: dir}
}

func (h *harness) script(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (h *harness) eval(t *testing.T, source string) (core.Value, error) {
	t.Helper()
	parsed, err := edn.Parse(source)
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	return h.res.Resolve(context.Background(), parsed)
}

func q(path string) string { return fmt.Sprintf("%q", path) }

func TestRunSingleCommandScript(t *testing.T) {
	h := newHarness(t)
	path := h.script(t, "one.edn", `[:p "hello" " " "script"]`)

	got, err := h.eval(t, `[:edn/run `+q(path)+`]`)
	if err != nil {
		t.Fatal(err)
	}
	ok, _ := got.MapGet("success")
	if !ok.Bool() {
		t.Fatalf("run = %s", got)
	}
	count, _ := got.MapGet("execution_count")
	if count.Int() != 1 {
		t.Errorf("execution_count = %d", count.Int())
	}
	results, _ := got.MapGet("results")
	first := results.Items()[0]
	out, _ := first.MapGet("result")
	if out.Str() != "hello script" {
		t.Errorf("result = %s", out)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	path := h.script(t, "multi.edn", `[[:p "ok-one"]
 [:does-not-exist "x"]
 [:p "ok-two"]]`)

	got, err := h.eval(t, `[:edn/run `+q(path)+`]`)
	if err != nil {
		t.Fatal(err)
	}
	ok, _ := got.MapGet("success")
	if ok.Bool() {
		t.Error("script with a failing command reported success")
	}
	results, _ := got.MapGet("results")
	items := results.Items()
	if len(items) != 3 {
		t.Fatalf("results = %s", results)
	}

	for i, wantOK := range []bool{true, false, true} {
		s, _ := items[i].MapGet("success")
		if s.Bool() != wantOK {
			t.Errorf("command %d success = %v, want %v", i, s.Bool(), wantOK)
		}
	}
	errText, _ := items[1].MapGet("error")
	if errText.Str() == "" {
		t.Error("failed command carries no error text")
	}
	out, _ := items[2].MapGet("result")
	if out.Str() != "ok-two" {
		t.Errorf("later commands did not run: %s", items[2])
	}
}

func TestRunSetsScriptDir(t *testing.T) {
	h := newHarness(t)
	path := h.script(t, "dir.edn", `[:p "x"]`)
	if _, err := h.eval(t, `[:edn/run `+q(path)+`]`); err != nil {
		t.Fatal(err)
	}
	if got := h.sb.ScriptDir(); got != h.dir {
		t.Errorf("script dir = %q, want %q", got, h.dir)
	}
}

func TestRunRejectsBadScripts(t *testing.T) {
	h := newHarness(t)

	empty := h.script(t, "empty.edn", "; nothing here\n")
	if _, err := h.eval(t, `[:edn/run `+q(empty)+`]`); err == nil {
		t.Error("empty script accepted")
	}

	malformed := h.script(t, "broken.edn", `[:p "unterminated`)
	if _, err := h.eval(t, `[:edn/run `+q(malformed)+`]`); err == nil {
		t.Error("malformed script accepted")
	}

	if _, err := h.eval(t, `[:edn/run `+q(filepath.Join(h.dir, "missing.edn"))+`]`); err == nil {
		t.Error("missing script accepted")
	}
}

func TestLoadParsesWithoutExecuting(t *testing.T) {
	h := newHarness(t)
	path := h.script(t, "load.edn", `[:p "not yet"]`)

	got, err := h.eval(t, `[:edn/load `+q(path)+`]`)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind() != core.KindExpr || got.Head() != ":p" {
		t.Errorf("load = %s", got)
	}
}

func TestCreateSamples(t *testing.T) {
	h := newHarness(t)
	target := filepath.Join(h.dir, "samples")

	got, err := h.eval(t, `[:edn/create-samples `+q(target)+`]`)
	if err != nil {
		t.Fatal(err)
	}
	count, _ := got.MapGet("count")
	files, _ := got.MapGet("files")
	if count.Int() != int64(len(files.Items())) || count.Int() == 0 {
		t.Fatalf("create-samples = %s", got)
	}

	// every sample parses and runs
	for _, f := range files.Items() {
		sample := filepath.Join(target, f.Str())
		out, err := h.eval(t, `[:edn/run `+q(sample)+`]`)
		if err != nil {
			t.Fatalf("sample %s failed: %v", f.Str(), err)
		}
		ok, _ := out.MapGet("success")
		if !ok.Bool() {
			t.Errorf("sample %s reported failure: %s", f.Str(), out)
		}
	}
}
