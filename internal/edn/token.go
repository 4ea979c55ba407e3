package edn

import "fmt"

// TokenType classifies lexed tokens.
type TokenType int

const (
	TokenIllegal TokenType = iota
	TokenEOF
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenString
	TokenInt
	TokenFloat
	TokenKeyword
	TokenSymbol
)

func (t TokenType) String() string {
	switch t {
	case TokenIllegal:
		return "ILLEGAL"
	case TokenEOF:
		return "EOF"
	case TokenLBracket:
		return "["
	case TokenRBracket:
		return "]"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	case TokenString:
		return "STRING"
	case TokenInt:
		return "INT"
	case TokenFloat:
		return "FLOAT"
	case TokenKeyword:
		return "KEYWORD"
	case TokenSymbol:
		return "SYMBOL"
	default:
		return fmt.Sprintf("TokenType(%d)", int(t))
	}
}

// Token is one lexeme with the position where it starts. Line and Col
// are 1-based; Col counts bytes. For TokenIllegal the literal holds the
// failure message instead of source text.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Col     int
}
