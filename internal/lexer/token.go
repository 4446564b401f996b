// Package lexer turns a character stream into a token sequence with source
// spans (spec.md §4.1). Structure grounded on the teacher's
// internal/lexer/token.go and internal/lexer/lexer.go (rune-at-a-time
// scanner over a string, NewToken helper).
package lexer

import (
	"fmt"

	"github.com/webschembly/wsc/internal/source"
)

// TokenType enumerates the finite ordered token vocabulary of spec.md §3.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	LPAREN  // (
	RPAREN  // )
	VECOPEN // #(
	S64OPEN // #s64(
	F64OPEN // #f64(
	DOT     // .
	QUOTE   // '

	IDENT   // identifier
	INTEGER // 123, -7
	FLOAT   // 1.5, -0.25
	NAN     // +nan.0 / -nan.0
	STRING  // "abc"
	CHAR    // #\a, #\space, ...
	BOOLEAN // #t / #f
	DIRECTIVE
)

var names = map[TokenType]string{
	ILLEGAL:   "ILLEGAL",
	EOF:       "EOF",
	LPAREN:    "(",
	RPAREN:    ")",
	VECOPEN:   "#(",
	S64OPEN:   "#s64(",
	F64OPEN:   "#f64(",
	DOT:       ".",
	QUOTE:     "'",
	IDENT:     "IDENT",
	INTEGER:   "INTEGER",
	FLOAT:     "FLOAT",
	NAN:       "NAN",
	STRING:    "STRING",
	CHAR:      "CHAR",
	BOOLEAN:   "BOOLEAN",
	DIRECTIVE: "DIRECTIVE",
}

func (t TokenType) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexical unit with its literal text and source span.
type Token struct {
	Type    TokenType
	Literal string
	Span    source.Span
}

// NewToken builds a single-point-origin token spanning exactly its literal
// text, grounded on the teacher's lexer.NewToken helper.
func NewToken(typ TokenType, literal string, startLine, startCol int) Token {
	end := source.Pos{Line: startLine, Column: startCol + len([]rune(literal))}
	return Token{
		Type:    typ,
		Literal: literal,
		Span: source.Span{
			Start: source.Pos{Line: startLine, Column: startCol},
			End:   end,
		},
	}
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// isIdentChar reports whether r may appear in a Scheme-family identifier:
// ASCII alphanumerics plus the extended punctuation set spec.md §4.1 names.
func isIdentChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '!', '$', '%', '&', '*', '+', '-', '/', ':', '<', '=', '>', '?', '^', '_', '~', '.':
		return true
	}
	return false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
