// Package token defines the lexical data model shared by the lexer,
// parser, and emitter: source locations, token kinds, and the fixed
// keyword/syntax/operator tables the lexer matches against.
package token

import "fmt"

// Kind classifies a Token. Unlike the teacher's per-literal TokenType
// enum, vmlua's grammar is small enough that a handful of kinds plus the
// literal text fully determines a token's meaning.
type Kind string

const (
	Identifier Kind = "IDENTIFIER"
	Syntax     Kind = "SYNTAX"
	Keyword    Kind = "KEYWORD"
	Number     Kind = "NUMBER"
	Operator   Kind = "OPERATOR"
	EOF        Kind = "EOF"
	Unknown    Kind = "UNKNOWN"
)

// Location is a source position: 1-based line/column, 0-based byte offset.
type Location struct {
	Line   int
	Column int
	Offset int
}

// Step advances the location by exactly one byte. A newline resets the
// column to 1 and advances the line; any other byte advances the column.
func (l Location) Step(isNewline bool) Location {
	next := Location{Line: l.Line, Column: l.Column, Offset: l.Offset + 1}
	if isNewline {
		next.Line = l.Line + 1
		next.Column = 1
	} else {
		next.Column = l.Column + 1
	}
	return next
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Token is a single lexical unit: its kind, the verbatim matched text,
// and the location where it began.
type Token struct {
	Kind    Kind
	Literal string
	Loc     Location
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, %s)", t.Kind, t.Literal, t.Loc)
}

// Keywords is the fixed keyword set, in the match order the lexer's
// keyword sub-lexer tries them.
var Keywords = []string{
	"function", "end", "if", "elseif", "else", "while", "do", "in", "nil",
	"repeat", "util", "true", "false", "and", "or", "not", "break", "then",
	"local", "return",
}

// syntaxChars is the fixed set of single-character syntax tokens.
var syntaxChars = []byte{';', '=', '(', ')', ','}

// Operators is the fixed operator list, checked in this order so that
// longer prefixes win (the whitespace-terminated word operators and the
// two-character comparisons must be tried before the single-character
// arithmetic operators).
var Operators = []string{
	"and ", "or ", "not ", "==", "!=", ">=", "<=", "+", "-", "*", "/", "^", "%", ">", "<",
}

// IsKeyword reports whether s is one of the fixed keywords.
func IsKeyword(s string) bool {
	for _, kw := range Keywords {
		if kw == s {
			return true
		}
	}
	return false
}

// IsSyntax reports whether b is one of the fixed syntax characters.
func IsSyntax(b byte) bool {
	for _, s := range syntaxChars {
		if s == b {
			return true
		}
	}
	return false
}
