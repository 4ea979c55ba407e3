package stringops

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

func TestTransforms(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`[:str/upper "hello"]`, "HELLO"},
		{`[:str/lower "HeLLo"]`, "hello"},
		{`[:str/title "hello world"]`, "Hello World"},
		{`[:str/trim "  padded  "]`, "padded"},
		{`[:str/reverse "abc"]`, "cba"},
		{`[:str/reverse "héllo"]`, "olléh"},
		{`[:str/upper "a" "b"]`, "A B"},
		{`[:str/replace "a-b-c" "-" "_"]`, "a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := eval(t, tt.source)
			if got.Str() != tt.want {
				t.Errorf("got %q, want %q", got.Str(), tt.want)
			}
		})
	}
}

func TestLength(t *testing.T) {
	got := eval(t, `[:str/length "héllo"]`)
	if got.Kind() != core.KindInt || got.Int() != 5 {
		t.Errorf("length counts runes, got %s", got)
	}
}

func TestSplit(t *testing.T) {
	got := eval(t, `[:str/split "a,b,c" ","]`)
	if got.Kind() != core.KindList || len(got.Items()) != 3 {
		t.Fatalf("split = %s", got)
	}
	if got.Items()[1].Str() != "b" {
		t.Errorf("split[1] = %s", got.Items()[1])
	}

	got = eval(t, `[:str/split "a b"]`)
	if len(got.Items()) != 2 {
		t.Errorf("default separator should be a space: %s", got)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{`[:str/contains "haystack" "stack"]`, true},
		{`[:str/contains "haystack" "needle"]`, false},
		{`[:str/starts-with "prefix-rest" "prefix"]`, true},
		{`[:str/starts-with "rest" "prefix"]`, false},
		{`[:str/ends-with "name.txt" ".txt"]`, true},
		{`[:str/ends-with "name.txt" ".go"]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := eval(t, tt.source)
			if got.Kind() != core.KindBool || got.Bool() != tt.want {
				t.Errorf("got %s, want %v", got, tt.want)
			}
		})
	}
}
