package sqlscan

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// EOF marks the end of input.
	EOF TokenType = iota
	// Illegal is an unrecognized character.
	Illegal
	// Ident is an unquoted identifier or keyword.
	Ident
	// QuotedIdent is an identifier wrapped in "", `` or [].
	QuotedIdent
	// String is a single-quoted string literal.
	String
	// Number is a numeric literal.
	Number
	// Dot is ".".
	Dot
	// Comma is ",".
	Comma
	// LParen is "(".
	LParen
	// RParen is ")".
	RParen
	// Semicolon is ";".
	Semicolon
	// Operator is any other punctuation (=, <, ||, ::, ...).
	Operator
)

var tokenNames = map[TokenType]string{
	EOF:         "EOF",
	Illegal:     "ILLEGAL",
	Ident:       "IDENT",
	QuotedIdent: "QUOTED_IDENT",
	String:      "STRING",
	Number:      "NUMBER",
	Dot:         ".",
	Comma:       ",",
	LParen:      "(",
	RParen:      ")",
	Semicolon:   ";",
	Operator:    "OPERATOR",
}

// String returns the string representation of a token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", int(t))
}

// Position is a location in the source text.
type Position struct {
	Line   int // 1-based
	Column int // 1-based
	Offset int // 0-based byte offset
}

// Token is a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// Is reports whether the token is the unquoted keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Type == Ident && len(t.Literal) == len(kw) && equalFold(t.Literal, kw)
}

func equalFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
