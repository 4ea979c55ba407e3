package edn

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Lexer scans expression text into tokens. Commas count as whitespace
// and ; starts a comment running to end of line, so the same scanner
// serves one-liners and script files.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	col          int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == ',':
			l.readChar()
		case l.ch == ';':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return
		}
	}
}

// NextToken returns the next token in the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	tok := Token{Line: l.line, Col: l.col}

	switch l.ch {
	case 0:
		tok.Type = TokenEOF
		return tok
	case '[':
		tok.Type, tok.Literal = TokenLBracket, "["
		l.readChar()
		return tok
	case ']':
		tok.Type, tok.Literal = TokenRBracket, "]"
		l.readChar()
		return tok
	case '(':
		tok.Type, tok.Literal = TokenLParen, "("
		l.readChar()
		return tok
	case ')':
		tok.Type, tok.Literal = TokenRParen, ")"
		l.readChar()
		return tok
	case '{':
		tok.Type, tok.Literal = TokenLBrace, "{"
		l.readChar()
		return tok
	case '}':
		tok.Type, tok.Literal = TokenRBrace, "}"
		l.readChar()
		return tok
	case '"':
		lit, err := l.readString()
		if err != nil {
			tok.Type, tok.Literal = TokenIllegal, err.Error()
			return tok
		}
		tok.Type, tok.Literal = TokenString, lit
		return tok
	case ':':
		if !isSymbolChar(l.peekChar()) {
			l.readChar()
			tok.Type, tok.Literal = TokenIllegal, "keyword marker ':' without a name"
			return tok
		}
		l.readChar()
		tok.Type, tok.Literal = TokenKeyword, ":"+l.readName()
		return tok
	}

	switch {
	case isDigit(l.ch) || ((l.ch == '-' || l.ch == '+') && isDigit(l.peekChar())):
		return l.readNumber()
	case isSymbolChar(l.ch):
		tok.Type, tok.Literal = TokenSymbol, l.readName()
		return tok
	default:
		r, size := utf8.DecodeRuneInString(l.input[l.position:])
		for i := 0; i < size; i++ {
			l.readChar()
		}
		tok.Type, tok.Literal = TokenIllegal, fmt.Sprintf("unexpected character %q", r)
		return tok
	}
}

func (l *Lexer) readName() string {
	start := l.position
	for isSymbolChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() Token {
	tok := Token{Line: l.line, Col: l.col}
	start := l.position
	typ := TokenInt

	if l.ch == '-' || l.ch == '+' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = TokenFloat
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if (l.ch == 'e' || l.ch == 'E') &&
		(isDigit(l.peekChar()) || l.peekChar() == '-' || l.peekChar() == '+') {
		typ = TokenFloat
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		digits := false
		for isDigit(l.ch) {
			digits = true
			l.readChar()
		}
		if !digits {
			tok.Type = TokenIllegal
			tok.Literal = fmt.Sprintf("malformed number %q", l.input[start:l.position])
			return tok
		}
	}
	if isSymbolChar(l.ch) {
		for isSymbolChar(l.ch) {
			l.readChar()
		}
		tok.Type = TokenIllegal
		tok.Literal = fmt.Sprintf("malformed number %q", l.input[start:l.position])
		return tok
	}

	tok.Type, tok.Literal = typ, l.input[start:l.position]
	return tok
}

func (l *Lexer) readString() (string, error) {
	var b strings.Builder
	l.readChar() // opening quote
	for {
		switch l.ch {
		case 0:
			return "", fmt.Errorf("unterminated string")
		case '"':
			l.readChar()
			return b.String(), nil
		case '\\':
			l.readChar()
			switch l.ch {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				r, err := l.readUnicodeEscape()
				if err != nil {
					return "", err
				}
				b.WriteRune(r)
			case 0:
				return "", fmt.Errorf("unterminated string")
			default:
				return "", fmt.Errorf("unsupported escape \\%c", l.ch)
			}
			l.readChar()
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readUnicodeEscape consumes the four hex digits after \u. On return the
// cursor sits on the last digit.
func (l *Lexer) readUnicodeEscape() (rune, error) {
	var n rune
	for i := 0; i < 4; i++ {
		l.readChar()
		var d rune
		switch {
		case l.ch >= '0' && l.ch <= '9':
			d = rune(l.ch - '0')
		case l.ch >= 'a' && l.ch <= 'f':
			d = rune(l.ch-'a') + 10
		case l.ch >= 'A' && l.ch <= 'F':
			d = rune(l.ch-'A') + 10
		default:
			return 0, fmt.Errorf("invalid unicode escape")
		}
		n = n*16 + d
	}
	return n, nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

// isSymbolChar covers keyword and symbol bodies: letters, digits, and
// the punctuation that appears in operation names like :file.upload/img
// or :md/task-list.
func isSymbolChar(ch byte) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	}
	switch ch {
	case '-', '_', '+', '*', '!', '?', '.', '/', '<', '>', '=', '$', '%', '&':
		return true
	}
	return false
}
