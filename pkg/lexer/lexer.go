// Package lexer turns a source byte stream into a sequence of tokens,
// one pass, no lookahead beyond the current attempt, restartable from
// the start of input.
package lexer

import (
	"fmt"

	"vmlua/pkg/token"
)

// Lexer holds the input and a cursor that sub-lexers advance and, on a
// failed match, rewind. The cursor (offset + location) is the only
// mutable state carried between NextToken calls.
type Lexer struct {
	input  string
	offset int
	loc    token.Location
}

// New constructs a Lexer positioned at the start of input.
func New(input string) *Lexer {
	return &Lexer{input: input, loc: token.Location{Line: 1, Column: 1, Offset: 0}}
}

// Reset rewinds the lexer to the start of input, making the iterator
// restartable from position 0 as the public contract requires.
func (l *Lexer) Reset() {
	l.offset = 0
	l.loc = token.Location{Line: 1, Column: 1, Offset: 0}
}

func (l *Lexer) atEOF() bool {
	return l.offset >= len(l.input)
}

func (l *Lexer) peek() byte {
	if l.atEOF() {
		return 0
	}
	return l.input[l.offset]
}

func (l *Lexer) advance() byte {
	c := l.peek()
	l.offset++
	l.loc = l.loc.Step(c == '\n')
	return c
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isLetter(c) || isDigit(c)
}

// NextToken yields the next token, advancing the cursor past it. It
// returns a token of Kind EOF once the input is exhausted, and never
// advances past EOF. A malformed input is reported as an error rather
// than a panic, matching spec.md's "fail fatally" lex-error policy.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespace()

	if l.atEOF() {
		return token.Token{Kind: token.EOF, Loc: l.loc}, nil
	}

	start := l.loc
	subLexers := []func() (token.Token, bool){
		l.lexKeyword,
		l.lexIdentifier,
		l.lexNumber,
		l.lexSyntax,
		l.lexOperator,
	}
	for _, sub := range subLexers {
		save := l.mark()
		tok, ok := sub()
		if ok {
			return tok, nil
		}
		l.rewind(save)
	}

	c := l.peek()
	return token.Token{}, fmt.Errorf("unexpected character %q at %s", c, start)
}

// cursor captures the lexer's position for a sub-lexer rewind.
type cursor struct {
	offset int
	loc    token.Location
}

func (l *Lexer) mark() cursor {
	return cursor{offset: l.offset, loc: l.loc}
}

func (l *Lexer) rewind(c cursor) {
	l.offset = c.offset
	l.loc = c.loc
}

func (l *Lexer) skipWhitespace() {
	for !l.atEOF() && isSpace(l.peek()) {
		l.advance()
	}
}

// lexKeyword matches a fixed keyword, requiring the consumed length to
// equal the keyword exactly (no partial match) and the keyword to end
// at a word boundary: a keyword followed by a letter, digit or
// underscore does not match, so e.g. "ifx" and "endian" fall through to
// the identifier sub-lexer. At a word boundary at most one keyword can
// match, so the table order never decides between two of them.
func (l *Lexer) lexKeyword() (token.Token, bool) {
	start := l.mark()
	for _, kw := range token.Keywords {
		l.rewind(start)
		if l.consumeLiteral(kw) && (l.atEOF() || !isAlnum(l.peek())) {
			return token.Token{Kind: token.Keyword, Literal: kw, Loc: start.loc}, true
		}
	}
	l.rewind(start)
	return token.Token{}, false
}

// lexIdentifier matches [A-Za-z_][A-Za-z0-9_]*. An identifier starting
// with a digit is rejected here (the caller falls through to the
// number sub-lexer, and a bare leading digit followed by letters is an
// error the number sub-lexer will also reject, surfacing as "unexpected
// character").
func (l *Lexer) lexIdentifier() (token.Token, bool) {
	start := l.mark()
	if l.atEOF() || !isLetter(l.peek()) {
		return token.Token{}, false
	}
	for !l.atEOF() && isAlnum(l.peek()) {
		l.advance()
	}
	lit := l.input[start.offset:l.offset]
	return token.Token{Kind: token.Identifier, Literal: lit, Loc: start.loc}, true
}

// lexNumber matches an optional leading sign followed by one or more
// decimal digits; the sign is consumed here, not by the parser. Digits
// directly followed by a letter or underscore are refused, so a word
// that starts with a digit is a lex error.
func (l *Lexer) lexNumber() (token.Token, bool) {
	start := l.mark()
	if !l.atEOF() && (l.peek() == '-' || l.peek() == '+') {
		l.advance()
	}
	digitsStart := l.offset
	for !l.atEOF() && isDigit(l.peek()) {
		l.advance()
	}
	if l.offset == digitsStart || (!l.atEOF() && isLetter(l.peek())) {
		l.rewind(start)
		return token.Token{}, false
	}
	lit := l.input[start.offset:l.offset]
	return token.Token{Kind: token.Number, Literal: lit, Loc: start.loc}, true
}

// lexSyntax matches a single syntax character, refusing `=` when it is
// immediately followed by another `=` so the operator sub-lexer can
// produce `==`.
func (l *Lexer) lexSyntax() (token.Token, bool) {
	start := l.mark()
	if l.atEOF() || !token.IsSyntax(l.peek()) {
		return token.Token{}, false
	}
	c := l.peek()
	if c == '=' && l.offset+1 < len(l.input) && l.input[l.offset+1] == '=' {
		return token.Token{}, false
	}
	l.advance()
	return token.Token{Kind: token.Syntax, Literal: string(c), Loc: start.loc}, true
}

// lexOperator matches the longest operator from the fixed list, in the
// list's declared order.
func (l *Lexer) lexOperator() (token.Token, bool) {
	start := l.mark()
	for _, op := range token.Operators {
		l.rewind(start)
		if l.consumeLiteral(op) {
			return token.Token{Kind: token.Operator, Literal: op, Loc: start.loc}, true
		}
	}
	l.rewind(start)
	return token.Token{}, false
}

// consumeLiteral advances past lit if the input at the current cursor
// matches it exactly. On a partial or failed match it returns false
// with the cursor wherever the mismatch stopped it; the caller rewinds.
func (l *Lexer) consumeLiteral(lit string) bool {
	for i := 0; i < len(lit); i++ {
		if l.atEOF() || l.peek() != lit[i] {
			return false
		}
		l.advance()
	}
	return true
}
