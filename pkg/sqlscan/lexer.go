package sqlscan

import (
	"strings"
	"unicode"
)

// Lexer tokenizes SQL input. It only understands enough of SQL to find
// identifiers reliably: strings, quoted identifiers and comments are
// consumed whole so their contents never leak into the token stream.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int
	col     int
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	switch l.ch {
	case 0:
		return Token{Type: EOF, Pos: pos}
	case '\'':
		return Token{Type: String, Literal: l.readDelimited('\''), Pos: pos}
	case '"':
		return Token{Type: QuotedIdent, Literal: l.readDelimited('"'), Pos: pos}
	case '`':
		return Token{Type: QuotedIdent, Literal: l.readDelimited('`'), Pos: pos}
	case '[':
		return Token{Type: QuotedIdent, Literal: l.readDelimited(']'), Pos: pos}
	case '.':
		l.readChar()
		return Token{Type: Dot, Literal: ".", Pos: pos}
	case ',':
		l.readChar()
		return Token{Type: Comma, Literal: ",", Pos: pos}
	case '(':
		l.readChar()
		return Token{Type: LParen, Literal: "(", Pos: pos}
	case ')':
		l.readChar()
		return Token{Type: RParen, Literal: ")", Pos: pos}
	case ';':
		l.readChar()
		return Token{Type: Semicolon, Literal: ";", Pos: pos}
	}

	if isLetter(l.ch) || l.ch == '_' {
		return Token{Type: Ident, Literal: l.readIdentifier(), Pos: pos}
	}
	if isDigit(l.ch) {
		return Token{Type: Number, Literal: l.readNumber(), Pos: pos}
	}
	if strings.IndexByte("+-*/%=<>!|:&^~@#?$", l.ch) >= 0 {
		start := l.pos
		l.readChar()
		for strings.IndexByte("=<>|:", l.ch) >= 0 && l.ch != 0 {
			l.readChar()
		}
		return Token{Type: Operator, Literal: l.input[start:l.pos], Pos: pos}
	}

	tok := Token{Type: Illegal, Literal: string(l.ch), Pos: pos}
	l.readChar()
	return tok
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && (l.ch != '*' || l.peekChar() != '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
			continue
		}

		break
	}
}

// readDelimited reads a quoted run starting at the opening delimiter.
// A doubled closing delimiter stands for one literal delimiter.
func (l *Lexer) readDelimited(closing byte) string {
	l.readChar()

	var result strings.Builder
	for l.ch != 0 {
		if l.ch == closing {
			if l.peekChar() == closing {
				result.WriteByte(closing)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return ch >= 0x80 || unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			break
		}
	}
	return tokens
}
