// Package parser implements a recursive descent parser for basm source
// files. It trusts the lexer to have handled whitespace and tokenization,
// focusing purely on assembling the syntax tree of fields and scopes.
package parser

import (
	"io"
	"log/slog"
	"os"

	"github.com/basm-lang/basm/pkgs/ast"
	"github.com/basm-lang/basm/pkgs/errors"
	"github.com/basm-lang/basm/pkgs/lexer"
)

// Parser walks the token slice and builds the Program node
type Parser struct {
	input  string // the raw input for error context slicing
	tokens []lexer.Token
	pos    int // current position in the token slice

	// errors encountered during parsing; parsing continues past a bad
	// field, but Parse only reports the first one
	errors []*errors.BasmError

	logger *slog.Logger
}

// Parse tokenizes and parses source text into a complete Program.
// It returns the Program node, or nil and the first error encountered.
func Parse(input string) (*ast.Program, error) {
	logLevel := slog.LevelInfo
	if os.Getenv("BASM_DEBUG_PARSER") != "" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop timestamps and level for cleaner parser traces
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))

	lex := lexer.New(input)
	p := &Parser{
		input:  input,
		tokens: lex.TokenizeToSlice(),
		logger: logger,
	}
	program := p.parseProgram()

	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return program, nil
}

// ParseReader reads everything from the reader and parses it
func ParseReader(reader io.Reader) (*ast.Program, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInputRead, "failed to read input", err)
	}
	return Parse(string(data))
}

// --- Main Parsing Logic ---

// parseProgram is the top-level entry point.
// Program = { SetupField | MetaField | MainField }*
// Field ordering is free; duplicates of main/setup are errors.
func (p *Parser) parseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.isAtEnd() {
		switch p.current().Type {
		case lexer.SETUP:
			p.logger.Debug("→ setup field", "pos", p.current().Position())
			header := p.current()
			p.advance()
			body, err := p.parseScope()
			if err != nil {
				p.addError(err)
				p.synchronize()
				continue
			}
			if program.Setup != nil {
				p.addError(errors.New(errors.ErrParse, "more than one [setup] field").WithSpan(header.Span))
				continue
			}
			program.Setup = &ast.Field{Header: header, Body: body}

		case lexer.MAIN:
			p.logger.Debug("→ main field", "pos", p.current().Position())
			header := p.current()
			p.advance()
			body, err := p.parseScope()
			if err != nil {
				p.addError(err)
				p.synchronize()
				continue
			}
			if program.Main != nil {
				p.addError(errors.New(errors.ErrParse, "more than one [main] field").WithSpan(header.Span))
				continue
			}
			program.Main = &ast.Field{Header: header, Body: body}

		case lexer.METAOPEN:
			meta, err := p.parseMetaField()
			if err != nil {
				p.addError(err)
				p.synchronize()
				continue
			}
			program.Metas = append(program.Metas, meta)

		case lexer.ILLEGAL:
			p.addError(p.lexError(p.current()))
			p.advance()

		default:
			p.addError(errors.Newf(errors.ErrParse,
				"unexpected token %s at top level, expected a field header", p.current().Type).
				WithSpan(p.current().Span))
			p.synchronize()
		}
	}

	return program
}

// parseMetaField parses a meta-instruction definition.
// MetaField = "[@" IDENTIFIER { IDENTIFIER | "[" IDENTIFIER "]" }* "]" Scope
func (p *Parser) parseMetaField() (*ast.MetaField, error) {
	open := p.current()
	p.advance() // consume [@

	if p.match(lexer.RBRACKET) {
		return nil, errors.New(errors.ErrParse, "empty field header: meta-instruction needs a name").
			WithSpan(open.Span)
	}

	name, err := p.consume(lexer.IDENTIFIER, "expected meta-instruction name after '[@'")
	if err != nil {
		return nil, err
	}
	p.logger.Debug("→ meta field", "name", name.Value)

	var params []ast.Param
	for !p.match(lexer.RBRACKET) {
		switch p.current().Type {
		case lexer.IDENTIFIER:
			params = append(params, ast.Param{Name: p.current()})
			p.advance()
		case lexer.LBRACKET:
			p.advance()
			pname, err := p.consume(lexer.IDENTIFIER, "expected scope parameter name after '['")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(lexer.RBRACKET, "expected ']' after scope parameter name"); err != nil {
				return nil, err
			}
			params = append(params, ast.Param{Name: pname, IsScope: true})
		case lexer.EOF:
			return nil, errors.New(errors.ErrParse, "unbalanced brackets: meta-instruction header never closed").
				WithSpan(open.Span)
		default:
			return nil, errors.Newf(errors.ErrParse,
				"unexpected token %s in meta-instruction header", p.current().Type).
				WithSpan(p.current().Span)
		}
	}
	p.advance() // consume closing ]

	body, err := p.parseScope()
	if err != nil {
		return nil, err
	}

	return &ast.MetaField{
		Name:   name,
		Params: params,
		Body:   body,
		Span:   lexer.SourceSpan{Start: open.Span.Start, End: body.Span.End},
	}, nil
}

// parseScope parses a bracketed statement sequence.
// Scope = "[" { InstructionCall ";" | Scope }* "]"
func (p *Parser) parseScope() (*ast.Scope, error) {
	open, err := p.consume(lexer.LBRACKET, "expected '[' to open a scope")
	if err != nil {
		return nil, err
	}

	scope := &ast.Scope{}
	for !p.match(lexer.RBRACKET) {
		switch p.current().Type {
		case lexer.EOF:
			return nil, errors.New(errors.ErrParse, "unbalanced brackets: scope never closed").
				WithSpan(open.Span)
		case lexer.LBRACKET:
			// a scope statement inlines into the surrounding scope but
			// introduces a fresh child environment; it takes no ';'
			inner, err := p.parseScope()
			if err != nil {
				return nil, err
			}
			scope.Statements = append(scope.Statements, inner)
		case lexer.IDENTIFIER:
			call, err := p.parseInstructionCall()
			if err != nil {
				return nil, err
			}
			scope.Statements = append(scope.Statements, call)
		case lexer.ILLEGAL:
			return nil, p.lexError(p.current())
		default:
			return nil, errors.Newf(errors.ErrParse,
				"unexpected token %s in scope, expected an instruction or a nested scope", p.current().Type).
				WithSpan(p.current().Span)
		}
	}
	closing := p.current()
	p.advance() // consume ]

	scope.Span = lexer.SourceSpan{Start: open.Span.Start, End: closing.Span.End}
	return scope, nil
}

// parseInstructionCall parses `NAME arg* ;`. The first argument of ALIS is an
// identifier target, never evaluated as a number.
func (p *Parser) parseInstructionCall() (*ast.InstructionCall, error) {
	name := p.current()
	p.advance()
	p.logger.Debug("  → instruction", "name", name.Value)

	call := &ast.InstructionCall{Name: name}

	if name.Value == "ALIS" && p.match(lexer.IDENTIFIER) {
		ident := p.current()
		p.advance()
		call.Args = append(call.Args, &ast.IdentArg{Name: ident})
	}

	for !p.match(lexer.SEMICOLON) {
		if p.match(lexer.EOF) || p.match(lexer.RBRACKET) {
			return nil, errors.Newf(errors.ErrParse,
				"expected ';' after %s instruction", name.Value).
				WithSpan(p.previous().Span)
		}
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
	closing := p.current()
	p.advance() // consume ;

	call.Span = lexer.SourceSpan{Start: name.Span.Start, End: closing.Span.End}
	return call, nil
}

// parseArgument dispatches on the first token of an argument:
// "[" IDENT "]" is a scope reference, any other "[" opens a scope literal,
// a string stays a string, everything else is a number expression.
func (p *Parser) parseArgument() (ast.Argument, error) {
	switch p.current().Type {
	case lexer.LBRACKET:
		if p.peek().Type == lexer.IDENTIFIER && p.peekAt(2).Type == lexer.RBRACKET {
			open := p.current()
			p.advance()
			ident := p.current()
			p.advance()
			closing := p.current()
			p.advance()
			return &ast.ScopeRefArg{
				Name: ident,
				Span: lexer.SourceSpan{Start: open.Span.Start, End: closing.Span.End},
			}, nil
		}
		scope, err := p.parseScope()
		if err != nil {
			return nil, err
		}
		return &ast.ScopeLiteralArg{Scope: scope}, nil

	case lexer.STRING:
		tok := p.current()
		p.advance()
		return &ast.StringArg{Token: tok}, nil

	case lexer.NUMBER, lexer.CHAR, lexer.IDENTIFIER:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &ast.NumberArg{Expr: expr}, nil

	case lexer.ILLEGAL:
		return nil, p.lexError(p.current())

	default:
		return nil, errors.Newf(errors.ErrParse,
			"unexpected token %s, expected an argument", p.current().Type).
			WithSpan(p.current().Span)
	}
}

// parseExpression parses a number expression strictly left-to-right over
// + - * / with no precedence: 3+2*4 parses as ((3+2)*4).
func (p *Parser) parseExpression() (*ast.Expression, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	expr := &ast.Expression{First: first}
	end := first.Token.Span.End
	for p.current().IsOperator() {
		op := p.current()
		p.advance()
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		expr.Rest = append(expr.Rest, ast.ExprOp{Op: op, Term: term})
		end = term.Token.Span.End
	}

	expr.Span = lexer.SourceSpan{Start: first.Token.Span.Start, End: end}
	return expr, nil
}

// parseTerm parses an expression leaf
func (p *Parser) parseTerm() (ast.Term, error) {
	tok := p.current()
	if !tok.IsTerm() {
		if tok.Type == lexer.ILLEGAL {
			return ast.Term{}, p.lexError(tok)
		}
		return ast.Term{}, errors.Newf(errors.ErrParse,
			"unexpected token %s, expected a number, character literal or identifier", tok.Type).
			WithSpan(tok.Span)
	}
	p.advance()
	return ast.Term{Token: tok}, nil
}

// --- Helpers ---

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	return p.peekAt(1)
}

func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) previous() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) match(t lexer.TokenType) bool {
	return p.current().Type == t
}

func (p *Parser) isAtEnd() bool {
	return p.current().Type == lexer.EOF
}

func (p *Parser) consume(t lexer.TokenType, message string) (lexer.Token, error) {
	if p.current().Type == t {
		tok := p.current()
		p.advance()
		return tok, nil
	}
	return lexer.Token{}, errors.Newf(errors.ErrParse, "%s, got %s", message, p.current().Type).
		WithSpan(p.current().Span)
}

func (p *Parser) addError(err error) {
	if basmErr, ok := err.(*errors.BasmError); ok {
		p.errors = append(p.errors, basmErr)
		return
	}
	p.errors = append(p.errors, errors.Wrap(errors.ErrParse, "parse failure", err))
}

func (p *Parser) lexError(tok lexer.Token) *errors.BasmError {
	return errors.New(errors.ErrLex, tok.Value).
		WithSpan(tok.Span).
		WithContext("raw", tok.Raw)
}

// synchronize skips tokens until the next plausible field header so one
// malformed field does not cascade into errors for everything after it
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		switch p.current().Type {
		case lexer.MAIN, lexer.SETUP, lexer.METAOPEN:
			return
		}
		p.advance()
	}
}
