package edn

import "testing"

func TestNextTokenBasics(t *testing.T) {
	input := `[:md/h1 "Title" 42 -7 3.14 1e3 true false nil {:k "v"}] ; trailing comment`

	want := []struct {
		typ TokenType
		lit string
	}{
		{TokenLBracket, "["},
		{TokenKeyword, ":md/h1"},
		{TokenString, "Title"},
		{TokenInt, "42"},
		{TokenInt, "-7"},
		{TokenFloat, "3.14"},
		{TokenFloat, "1e3"},
		{TokenSymbol, "true"},
		{TokenSymbol, "false"},
		{TokenSymbol, "nil"},
		{TokenLBrace, "{"},
		{TokenKeyword, ":k"},
		{TokenString, "v"},
		{TokenRBrace, "}"},
		{TokenRBracket, "]"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.typ || tok.Literal != w.lit {
			t.Fatalf("token %d = (%s, %q), want (%s, %q)", i, tok.Type, tok.Literal, w.typ, w.lit)
		}
	}
}

func TestCommasAreWhitespace(t *testing.T) {
	l := NewLexer("1, 2,,3")
	for _, want := range []string{"1", "2", "3"} {
		tok := l.NextToken()
		if tok.Type != TokenInt || tok.Literal != want {
			t.Fatalf("got (%s, %q), want int %s", tok.Type, tok.Literal, want)
		}
	}
	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Errorf("trailing token %s", tok.Type)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"a\nb"`, "a\nb"},
		{`"a\tb"`, "a\tb"},
		{`"a\rb"`, "a\rb"},
		{`"say \"hi\""`, `say "hi"`},
		{`"back\\slash"`, `back\slash`},
		{`"Aé"`, "Aé"},
	}
	for _, tt := range tests {
		l := NewLexer(tt.in)
		tok := l.NextToken()
		if tok.Type != TokenString || tok.Literal != tt.want {
			t.Errorf("lex %s = (%s, %q), want string %q", tt.in, tok.Type, tok.Literal, tt.want)
		}
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"never closed`},
		{"bad escape", `"\q"`},
		{"bad unicode escape", `"\u00zz"`},
		{"dangling colon", ": foo"},
		{"malformed number", "12abc"},
		{"malformed exponent", "1e+"},
		{"unexpected rune", "§"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLexer(tt.input)
			tok := l.NextToken()
			if tok.Type != TokenIllegal {
				t.Errorf("lexed (%s, %q), want ILLEGAL", tok.Type, tok.Literal)
			}
		})
	}
}

func TestTokenPositions(t *testing.T) {
	l := NewLexer("[:a\n  \"b\"]")

	tok := l.NextToken() // [
	if tok.Line != 1 || tok.Col != 1 {
		t.Errorf("[ at %d:%d, want 1:1", tok.Line, tok.Col)
	}
	tok = l.NextToken() // :a
	if tok.Line != 1 || tok.Col != 2 {
		t.Errorf(":a at %d:%d, want 1:2", tok.Line, tok.Col)
	}
	tok = l.NextToken() // "b"
	if tok.Line != 2 || tok.Col != 3 {
		t.Errorf(`"b" at %d:%d, want 2:3`, tok.Line, tok.Col)
	}
}

func TestKeywordShapes(t *testing.T) {
	for _, kw := range []string{":p", ":md/h1", ":file.upload/img", ":str/starts-with", ":help"} {
		l := NewLexer(kw)
		tok := l.NextToken()
		if tok.Type != TokenKeyword || tok.Literal != kw {
			t.Errorf("lex %s = (%s, %q)", kw, tok.Type, tok.Literal)
		}
	}
}
