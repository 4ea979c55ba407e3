package text

import (
	"context"
	"testing"

	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/edn"
)

func eval(t *testing.T, source string) core.Value {
	t.Helper()
	reg := core.NewRegistry()
	Register(reg)
	parsed, err := edn.Parse(source)
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	out, err := core.NewResolver(reg).Resolve(context.Background(), parsed)
	if err != nil {
		t.Fatalf("resolve %q: %v", source, err)
	}
	return out
}

func TestTextOps(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`[:p "Hello" " " "World"]`, "Hello World"},
		{`[:p]`, ""},
		{`[:row "a" "b" "c"]`, "a b c"},
		{`[:rows "one" "two"]`, "one\ntwo"},
		{`[:bold "important"]`, "**important**"},
		{`[:italic "em"]`, "*em*"},
		{`[:code "x := 1"]`, "`x := 1`"},
		{`[:quote "said"]`, "> said"},
		{`[:join ", " "a" "b" "c"]`, "a, b, c"},
		{`[:indent 2 "nested"]`, "    nested"},
		{`[:indent -1 "flat"]`, "flat"},
		{`[:br]`, "\n"},
		{`[:sep]`, "---"},
		{`[:sep "==="]`, "==="},
		// non-string arguments render as display text
		{`[:p 1 " " true]`, "1 true"},
		{`[:row [1 2]]`, "[1 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := eval(t, tt.source)
			if got.Kind() != core.KindString || got.Str() != tt.want {
				t.Errorf("eval(%s) = %s, want %q", tt.source, got, tt.want)
			}
		})
	}
}

func TestTextOpsCompose(t *testing.T) {
	got := eval(t, `[:rows [:bold "Title"] [:row "a" [:italic "b"]]]`)
	want := "**Title**\na *b*"
	if got.Str() != want {
		t.Errorf("got %q, want %q", got.Str(), want)
	}
}
