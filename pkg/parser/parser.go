// Package parser turns a token vector into an AST by recursive descent
// over a deliberately flat, non-precedence grammar: every statement
// form is tried in a fixed order against the current position, and
// every binary expression has exactly one operator.
package parser

import (
	"fmt"
	"strconv"

	"vmlua/pkg/ast"
	"vmlua/pkg/lexer"
	"vmlua/pkg/token"
)

// Parser holds the fully-lexed token vector and drives the fixed-order
// statement dispatch over it. Unlike a single-pass curToken/peekToken
// parser, each statement parser here takes an explicit token index and
// returns the index just past what it consumed, so a failed attempt
// never mutates shared state — essential since spec.md's grammar tries
// five statement shapes in order and only the first matching one
// commits.
type Parser struct {
	tokens []token.Token
	errors []string
}

// New tokenizes l fully and returns a Parser over the result.
func New(l *lexer.Lexer) (*Parser, error) {
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return &Parser{tokens: tokens}, nil
}

// Errors returns the parser's diagnostic message list. No parse path
// appends to it, so it is always empty; parse failures are reported
// only through Parse's returned error.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) tokenAt(it int) token.Token {
	if it >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[it]
}

// Parse consumes the full token vector and returns the resulting AST,
// or a fatal error if the input is not a valid program.
func (p *Parser) Parse() (*ast.Program, error) {
	prog := &ast.Program{}
	it := 0
	for it < len(p.tokens) && p.tokenAt(it).Kind != token.EOF {
		stmt, next, err := p.parseStatement(it)
		if err != nil {
			return nil, fmt.Errorf("parse error at %s: %w", p.tokenAt(it).Loc, err)
		}
		if stmt == nil {
			return nil, fmt.Errorf("parse error, end too early, at %s", p.tokenAt(it).Loc)
		}
		prog.Statements = append(prog.Statements, stmt)
		it = next
	}
	return prog, nil
}

// stmtParsers is the fixed order spec.md §4.2 requires: if, return,
// expression, function, local. The first parser whose leading
// keyword/shape matches commits; if it then fails to complete, parsing
// fails overall rather than falling through to the next form.
func (p *Parser) stmtParsers() []func(int) (ast.Statement, int, bool, error) {
	return []func(int) (ast.Statement, int, bool, error){
		p.parseIf,
		p.parseReturn,
		p.parseExpressionStatement,
		p.parseFunction,
		p.parseLocal,
	}
}

func (p *Parser) parseStatement(it int) (ast.Statement, int, error) {
	for _, parse := range p.stmtParsers() {
		stmt, next, matched, err := parse(it)
		if matched {
			return stmt, next, err
		}
	}
	return nil, it, nil
}

func (p *Parser) expectKeyword(it int, kw string) bool {
	t := p.tokenAt(it)
	return t.Kind == token.Keyword && t.Literal == kw
}

func (p *Parser) expectSyntax(it int, sym string) bool {
	t := p.tokenAt(it)
	return t.Kind == token.Syntax && t.Literal == sym
}

func (p *Parser) expectIdentifier(it int) bool {
	return p.tokenAt(it).Kind == token.Identifier
}

// parseIf implements `if EXPR then STMT* (else STMT*)? end`.
func (p *Parser) parseIf(it int) (ast.Statement, int, bool, error) {
	if !p.expectKeyword(it, "if") {
		return nil, it, false, nil
	}
	tok := p.tokenAt(it)
	next := it + 1

	cond, next, err := p.parseExpression(next)
	if err != nil {
		return nil, it, true, fmt.Errorf("if: expected condition expression: %w", err)
	}

	if !p.expectKeyword(next, "then") {
		return nil, it, true, fmt.Errorf("if: expected 'then' but got %q", p.tokenAt(next).Literal)
	}
	next++

	var thenStmts []ast.Statement
	for !p.expectKeyword(next, "end") && !p.expectKeyword(next, "else") {
		stmt, n, err := p.parseStatement(next)
		if err != nil {
			return nil, it, true, err
		}
		if stmt == nil {
			return nil, it, true, fmt.Errorf("if: expected statement but got %q", p.tokenAt(next).Literal)
		}
		thenStmts = append(thenStmts, stmt)
		next = n
	}

	var elseStmts []ast.Statement
	if p.expectKeyword(next, "else") {
		next++
		for !p.expectKeyword(next, "end") {
			stmt, n, err := p.parseStatement(next)
			if err != nil {
				return nil, it, true, err
			}
			if stmt == nil {
				return nil, it, true, fmt.Errorf("if: expected statement but got %q", p.tokenAt(next).Literal)
			}
			elseStmts = append(elseStmts, stmt)
			next = n
		}
	}
	next++ // end

	return &ast.IfStmt{Token: tok, Cond: cond, Then: thenStmts, Else: elseStmts}, next, true, nil
}

// parseReturn implements `return EXPR ;`.
func (p *Parser) parseReturn(it int) (ast.Statement, int, bool, error) {
	if !p.expectKeyword(it, "return") {
		return nil, it, false, nil
	}
	tok := p.tokenAt(it)
	next := it + 1

	expr, next, err := p.parseExpression(next)
	if err != nil {
		return nil, it, true, fmt.Errorf("return: expected expression: %w", err)
	}
	if !p.expectSyntax(next, ";") {
		return nil, it, true, fmt.Errorf("return: expected ';' but got %q", p.tokenAt(next).Literal)
	}
	next++
	return &ast.RetStmt{Token: tok, Value: expr}, next, true, nil
}

// parseExpressionStatement implements `EXPR ;`.
func (p *Parser) parseExpressionStatement(it int) (ast.Statement, int, bool, error) {
	tok := p.tokenAt(it)
	expr, next, err := p.parseExpression(it)
	if err != nil {
		return nil, it, false, nil
	}
	if !p.expectSyntax(next, ";") {
		return nil, it, false, nil
	}
	next++
	return &ast.ExprStmt{Token: tok, Value: expr}, next, true, nil
}

// parseFunction implements `function IDENT ( IDENT (, IDENT)* ) STMT* end`.
func (p *Parser) parseFunction(it int) (ast.Statement, int, bool, error) {
	if !p.expectKeyword(it, "function") {
		return nil, it, false, nil
	}
	tok := p.tokenAt(it)
	next := it + 1

	if !p.expectIdentifier(next) {
		return nil, it, true, fmt.Errorf("function: expected identifier but got %q", p.tokenAt(next).Literal)
	}
	name := p.tokenAt(next).Literal
	next++

	if !p.expectSyntax(next, "(") {
		return nil, it, true, fmt.Errorf("function: expected '(' but got %q", p.tokenAt(next).Literal)
	}
	next++

	var params []string
	for !p.expectSyntax(next, ")") {
		if len(params) > 0 {
			if !p.expectSyntax(next, ",") {
				return nil, it, true, fmt.Errorf("function: expected ',' but got %q", p.tokenAt(next).Literal)
			}
			next++
		}
		if !p.expectIdentifier(next) {
			return nil, it, true, fmt.Errorf("function: expected parameter identifier but got %q", p.tokenAt(next).Literal)
		}
		params = append(params, p.tokenAt(next).Literal)
		next++
	}
	next++ // )

	var body []ast.Statement
	for !p.expectKeyword(next, "end") {
		stmt, n, err := p.parseStatement(next)
		if err != nil {
			return nil, it, true, err
		}
		if stmt == nil {
			return nil, it, true, fmt.Errorf("function: expected statement but got %q", p.tokenAt(next).Literal)
		}
		body = append(body, stmt)
		next = n
	}
	next++ // end

	return &ast.FuncDecl{Token: tok, Name: name, Params: params, Body: body}, next, true, nil
}

// parseLocal implements `local IDENT = EXPR ;`.
func (p *Parser) parseLocal(it int) (ast.Statement, int, bool, error) {
	if !p.expectKeyword(it, "local") {
		return nil, it, false, nil
	}
	tok := p.tokenAt(it)
	next := it + 1

	if !p.expectIdentifier(next) {
		return nil, it, true, fmt.Errorf("local: expected identifier but got %q", p.tokenAt(next).Literal)
	}
	name := p.tokenAt(next).Literal
	next++

	if !p.expectSyntax(next, "=") {
		return nil, it, true, fmt.Errorf("local: expected '=' but got %q", p.tokenAt(next).Literal)
	}
	next++

	expr, next, err := p.parseExpression(next)
	if err != nil {
		return nil, it, true, fmt.Errorf("local: expected expression: %w", err)
	}
	if !p.expectSyntax(next, ";") {
		return nil, it, true, fmt.Errorf("local: expected ';' but got %q", p.tokenAt(next).Literal)
	}
	next++

	return &ast.LocalStmt{Token: tok, Name: name, Value: expr}, next, true, nil
}

// parseExpression implements the deliberately flat grammar:
//
//	EXPR := PRIMARY | IDENT '(' ARGLIST ')' | PRIMARY OP PRIMARY
//
// Nested binary expressions are not supported; commas between call
// arguments are accepted but not required.
func (p *Parser) parseExpression(it int) (ast.Expression, int, error) {
	leftTok := p.tokenAt(it)
	left, err := p.parsePrimary(leftTok)
	if err != nil {
		return nil, it, err
	}
	next := it + 1

	if p.expectSyntax(next, "(") {
		next++
		var args []ast.Expression
		for !p.expectSyntax(next, ")") {
			arg, n, err := p.parseExpression(next)
			if err != nil {
				return nil, it, fmt.Errorf("call: expected expression: %w", err)
			}
			args = append(args, arg)
			next = n
			if p.expectSyntax(next, ",") {
				next++
			}
		}
		next++ // )
		return &ast.FuncCall{Token: leftTok, Name: leftTok.Literal, Args: args}, next, nil
	}

	op := p.tokenAt(next)
	if !isBinaryOpToken(op) {
		return left, next, nil
	}
	next++

	rightTok := p.tokenAt(next)
	right, err := p.parsePrimary(rightTok)
	if err != nil {
		return nil, it, fmt.Errorf("binary expression: expected operand but got %q", rightTok.Literal)
	}
	next++

	return &ast.BinaryOp{Token: op, Op: op.Literal, Left: left, Right: right}, next, nil
}

// isBinaryOpToken reports whether tok can introduce the right-hand side
// of a binary expression. The keyword sub-lexer runs before the
// operator sub-lexer, so `and`/`or` followed by a space always lex as
// Keyword tokens (literal without the trailing space),
// never as the Operator-kind `"and "`/`"or "` entries in the operator
// table — both representations must still be accepted here (spec.md
// §4.1's ordering note).
func isBinaryOpToken(tok token.Token) bool {
	if tok.Kind == token.Operator {
		return true
	}
	return tok.Kind == token.Keyword && (tok.Literal == "and" || tok.Literal == "or")
}

// parsePrimary accepts exactly a number-token or an identifier-token.
func (p *Parser) parsePrimary(tok token.Token) (ast.Expression, error) {
	switch tok.Kind {
	case token.Number:
		n, err := strconv.ParseInt(tok.Literal, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q: %w", tok.Literal, err)
		}
		return &ast.LiteralNumber{Token: tok, Value: int32(n)}, nil
	case token.Identifier:
		return &ast.LiteralID{Token: tok, Name: tok.Literal}, nil
	default:
		return nil, fmt.Errorf("expected number or identifier but got %q", tok.Literal)
	}
}
