// Package edn reads the bracketed command notation: vectors, maps,
// strings, numbers, keywords, booleans, and nil. A sequence whose first
// element is a keyword becomes an expression node; everything else is
// plain data. What a node is gets decided here, once, at read time.
package edn

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/neromous/Beaver/internal/core"
)

// ErrEmptyInput reports input holding no form at all: empty text,
// whitespace, or comments only. It is not a syntax failure; callers
// decide whether empty means "nothing to do" or a mistake.
var ErrEmptyInput = errors.New("empty input")

// maxNesting bounds parser recursion so deeply nested input reports an
// error instead of exhausting the stack.
const maxNesting = 10000

// ParseError is a syntax failure with its 1-based source position.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parse reads exactly one top-level form from input. Text after the form
// (other than whitespace and comments) is an error.
func Parse(input string) (core.Value, error) {
	p := &parser{lex: NewLexer(input)}
	p.next()
	if p.tok.Type == TokenEOF {
		return core.Value{}, ErrEmptyInput
	}
	v, err := p.parseValue(0)
	if err != nil {
		return core.Value{}, err
	}
	if p.tok.Type != TokenEOF {
		return core.Value{}, p.errorf("unexpected %s after top-level form", describe(p.tok))
	}
	return v, nil
}

type parser struct {
	lex *Lexer
	tok Token
}

func (p *parser) next() { p.tok = p.lex.NextToken() }

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.tok.Line, Col: p.tok.Col, Msg: fmt.Sprintf(format, args...)}
}

func describe(t Token) string {
	switch t.Type {
	case TokenEOF:
		return "end of input"
	case TokenString:
		return "string"
	case TokenInt, TokenFloat:
		return fmt.Sprintf("number %s", t.Literal)
	default:
		return fmt.Sprintf("%q", t.Literal)
	}
}

func (p *parser) parseValue(depth int) (core.Value, error) {
	if depth > maxNesting {
		return core.Value{}, p.errorf("nesting exceeds %d levels", maxNesting)
	}

	switch p.tok.Type {
	case TokenIllegal:
		return core.Value{}, p.errorf("%s", p.tok.Literal)

	case TokenString:
		v := core.String(p.tok.Literal)
		p.next()
		return v, nil

	case TokenInt:
		n, err := strconv.ParseInt(p.tok.Literal, 10, 64)
		if err != nil {
			return core.Value{}, p.errorf("integer %s out of range", p.tok.Literal)
		}
		p.next()
		return core.Int(n), nil

	case TokenFloat:
		f, err := strconv.ParseFloat(p.tok.Literal, 64)
		if err != nil {
			return core.Value{}, p.errorf("malformed float %s", p.tok.Literal)
		}
		p.next()
		return core.Float(f), nil

	case TokenKeyword:
		v := core.Keyword(p.tok.Literal)
		p.next()
		return v, nil

	case TokenSymbol:
		tok := p.tok
		p.next()
		switch tok.Literal {
		case "true":
			return core.Bool(true), nil
		case "false":
			return core.Bool(false), nil
		case "nil":
			return core.Nil(), nil
		default:
			return core.Value{}, &ParseError{
				Line: tok.Line, Col: tok.Col,
				Msg: fmt.Sprintf("unknown symbol %q", tok.Literal),
			}
		}

	case TokenLBracket:
		return p.parseSequence(TokenRBracket, depth)
	case TokenLParen:
		return p.parseSequence(TokenRParen, depth)
	case TokenLBrace:
		return p.parseMap(depth)

	case TokenEOF:
		return core.Value{}, p.errorf("unexpected end of input")
	default:
		return core.Value{}, p.errorf("unexpected %s", describe(p.tok))
	}
}

// parseSequence reads [ ... ] or ( ... ). A keyword in first position
// makes the whole sequence an expression with that keyword as its head;
// a string in first position, even one spelling a keyword like ":user",
// keeps the sequence plain data.
func (p *parser) parseSequence(closer TokenType, depth int) (core.Value, error) {
	open := p.tok
	p.next()

	var elems []core.Value
	for {
		switch p.tok.Type {
		case closer:
			p.next()
			if len(elems) > 0 && elems[0].Kind() == core.KindKeyword {
				return core.Expr(elems[0].KeywordName(), elems[1:]...), nil
			}
			return core.List(elems...), nil
		case TokenEOF:
			return core.Value{}, &ParseError{
				Line: open.Line, Col: open.Col,
				Msg: fmt.Sprintf("unterminated sequence, expected %s", closer),
			}
		case TokenRBracket, TokenRParen, TokenRBrace:
			return core.Value{}, p.errorf("expected %s, found %q", closer, p.tok.Literal)
		default:
			v, err := p.parseValue(depth + 1)
			if err != nil {
				return core.Value{}, err
			}
			elems = append(elems, v)
		}
	}
}

// parseMap reads { ... } with alternating keys and values. Keys must be
// strings or keywords; keyword keys keep their colon in the stored name.
func (p *parser) parseMap(depth int) (core.Value, error) {
	open := p.tok
	p.next()

	entries := make(map[string]core.Value)
	for {
		switch p.tok.Type {
		case TokenRBrace:
			p.next()
			return core.MapOf(entries), nil
		case TokenEOF:
			return core.Value{}, &ParseError{
				Line: open.Line, Col: open.Col,
				Msg: "unterminated map, expected }",
			}
		}

		keyTok := p.tok
		key, err := p.parseValue(depth + 1)
		if err != nil {
			return core.Value{}, err
		}
		var name string
		switch key.Kind() {
		case core.KindString:
			name = key.Str()
		case core.KindKeyword:
			name = key.KeywordName()
		default:
			return core.Value{}, &ParseError{
				Line: keyTok.Line, Col: keyTok.Col,
				Msg: fmt.Sprintf("map key must be a string or keyword, got %s", key.Kind()),
			}
		}
		if _, dup := entries[name]; dup {
			return core.Value{}, &ParseError{
				Line: keyTok.Line, Col: keyTok.Col,
				Msg: fmt.Sprintf("duplicate map key %s", name),
			}
		}

		if p.tok.Type == TokenRBrace || p.tok.Type == TokenEOF {
			return core.Value{}, &ParseError{
				Line: keyTok.Line, Col: keyTok.Col,
				Msg: fmt.Sprintf("map key %s has no value", name),
			}
		}
		val, err := p.parseValue(depth + 1)
		if err != nil {
			return core.Value{}, err
		}
		entries[name] = val
	}
}
