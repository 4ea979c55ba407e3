package edn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/neromous/Beaver/internal/core"
)

func TestParseScalars(t *testing.T) {
	tests := []struct {
		input string
		want  core.Value
	}{
		{"nil", core.Nil()},
		{"true", core.Bool(true)},
		{"false", core.Bool(false)},
		{"42", core.Int(42)},
		{"-42", core.Int(-42)},
		{"+7", core.Int(7)},
		{"3.14", core.Float(3.14)},
		{"-0.5", core.Float(-0.5)},
		{"2e3", core.Float(2000)},
		{"1.5e-2", core.Float(0.015)},
		{`"hello"`, core.String("hello")},
		{`""`, core.String("")},
		{`"line\nbreak"`, core.String("line\nbreak")},
		{":kw", core.Keyword(":kw")},
		{":ns/name", core.Keyword(":ns/name")},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "Parse(%s) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestParseExpressionTagging(t *testing.T) {
	// keyword head makes an expression
	got, err := Parse(`[:md/h1 "Title"]`)
	require.NoError(t, err)
	require.Equal(t, core.KindExpr, got.Kind())
	assert.Equal(t, ":md/h1", got.Head())
	require.Len(t, got.Args(), 1)
	assert.Equal(t, "Title", got.Args()[0].Str())

	// string head spelling a keyword stays plain data
	got, err = Parse(`[":user" "hello"]`)
	require.NoError(t, err)
	require.Equal(t, core.KindList, got.Kind())
	assert.Equal(t, ":user", got.Items()[0].Str())

	// keyword in a non-head position stays a keyword value
	got, err = Parse(`[1 :kw]`)
	require.NoError(t, err)
	require.Equal(t, core.KindList, got.Kind())
	assert.Equal(t, core.KindKeyword, got.Items()[1].Kind())

	// parens work like brackets
	got, err = Parse(`(:p "x")`)
	require.NoError(t, err)
	assert.Equal(t, core.KindExpr, got.Kind())
}

func TestParseNested(t *testing.T) {
	got, err := Parse(`[:rows [:md/h1 "T"] [:p "body" [:bold "x"]] {"cfg" [1 2]}]`)
	require.NoError(t, err)
	require.Equal(t, core.KindExpr, got.Kind())
	require.Len(t, got.Args(), 3)
	assert.Equal(t, core.KindExpr, got.Args()[0].Kind())
	assert.Equal(t, core.KindExpr, got.Args()[1].Kind())
	assert.Equal(t, core.KindMap, got.Args()[2].Kind())

	inner := got.Args()[1]
	require.Len(t, inner.Args(), 2)
	assert.Equal(t, ":bold", inner.Args()[1].Head())
}

func TestParseMaps(t *testing.T) {
	got, err := Parse(`{:provider "openai" "model" "gpt-4o" :n 3}`)
	require.NoError(t, err)
	require.Equal(t, core.KindMap, got.Kind())
	assert.Equal(t, 3, got.MapLen())

	v, ok := got.MapGet("provider")
	require.True(t, ok)
	assert.Equal(t, "openai", v.Str())
	v, ok = got.MapGet("model")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", v.Str())
	v, ok = got.MapGet(":n")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Int())

	// map values may be expressions
	got, err = Parse(`{"body" [:p "x"]}`)
	require.NoError(t, err)
	v, ok = got.MapGet("body")
	require.True(t, ok)
	assert.Equal(t, core.KindExpr, v.Kind())
}

func TestParseComments(t *testing.T) {
	got, err := Parse("; heading\n[:p \"x\"] ; tail")
	require.NoError(t, err)
	assert.Equal(t, core.KindExpr, got.Kind())
}

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t", "; only a comment", ",,,"} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrEmptyInput, "input %q", input)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated vector", `[:p "x"`},
		{"unterminated map", `{:k "v"`},
		{"unterminated string", `[:p "never`},
		{"mismatched closer", `(:p "x"]`},
		{"stray closer", `]`},
		{"dangling keyword marker", `[: "x"]`},
		{"trailing junk", `[:p "x"] extra`},
		{"second form", `[:p] [:p]`},
		{"unknown symbol", `[frob]`},
		{"map key not scalar", `{[1] "v"}`},
		{"map key without value", `{:k}`},
		{"duplicate map key", `{:k 1 :k 2}`},
		{"int overflow", `99999999999999999999`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "error is %T: %v", err, err)
			assert.Greater(t, pe.Line, 0)
			assert.Greater(t, pe.Col, 0)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse("[:p\n  \"x\" }")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, 7, pe.Col)
}

// genValue draws a parseable value of bounded depth.
func genValue(depth int) *rapid.Generator[core.Value] {
	scalar := rapid.OneOf(
		rapid.Just(core.Nil()),
		rapid.Map(rapid.Bool(), core.Bool),
		rapid.Map(rapid.Int64(), core.Int),
		rapid.Map(rapid.StringMatching(`[a-z ]{0,12}`), core.String),
		rapid.Map(rapid.StringMatching(`:[a-z][a-z-]{0,6}(/[a-z][a-z-]{0,6})?`), core.Keyword),
	)
	if depth <= 0 {
		return scalar
	}
	child := genValue(depth - 1)
	return rapid.OneOf(
		scalar,
		rapid.Custom(func(r *rapid.T) core.Value {
			elems := rapid.SliceOfN(child, 0, 3).Draw(r, "elems")
			if len(elems) > 0 && elems[0].Kind() == core.KindKeyword {
				return core.Expr(elems[0].KeywordName(), elems[1:]...)
			}
			return core.List(elems...)
		}),
		rapid.Custom(func(r *rapid.T) core.Value {
			keys := rapid.SliceOfNDistinct(
				rapid.StringMatching(`[a-z]{1,6}`), 0, 3, rapid.ID).Draw(r, "keys")
			entries := make(map[string]core.Value, len(keys))
			for _, k := range keys {
				entries[k] = child.Draw(r, "entry")
			}
			return core.MapOf(entries)
		}),
	)
}

// Rendering a value and reading it back yields an equal value, and a
// fixed text always parses to the same result.
func TestParseRenderRoundTrip(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		v := genValue(3).Draw(r, "value")
		text := v.String()

		first, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", text, err)
		}
		if !first.Equal(v) {
			t.Fatalf("round trip changed %q into %q", text, first.String())
		}
		second, err := Parse(text)
		if err != nil || !second.Equal(first) {
			t.Fatalf("Parse is not a pure function of %q", text)
		}
	})
}
