// Package ast defines the syntax tree for basm source files: a program is a
// set of fields, each field holds a scope of instruction statements.
package ast

import (
	"github.com/basm-lang/basm/pkgs/lexer"
)

// Program is the root node produced by the parser. Exactly one main field is
// required; setup is optional; meta fields keep their source order.
type Program struct {
	Setup *Field
	Metas []*MetaField
	Main  *Field
}

// Field is a [main] or [setup] field with its scope body
type Field struct {
	Header lexer.Token
	Body   *Scope
}

// MetaField is a user-defined meta-instruction: [@NAME params...] body
type MetaField struct {
	Name   lexer.Token
	Params []Param
	Body   *Scope
	Span   lexer.SourceSpan
}

// Param is one entry of a meta-instruction signature. A bare identifier is a
// number parameter; an identifier in brackets is a scope parameter.
type Param struct {
	Name    lexer.Token
	IsScope bool
}

// Scope is an ordered sequence of instruction calls and nested scopes with
// its own lexical environment
type Scope struct {
	Statements []Statement
	Span       lexer.SourceSpan
}

// Statement is implemented by *InstructionCall and *Scope
type Statement interface {
	stmtNode()
	StatementSpan() lexer.SourceSpan
}

func (*InstructionCall) stmtNode() {}
func (*Scope) stmtNode()           {}

func (s *Scope) StatementSpan() lexer.SourceSpan { return s.Span }

// InstructionCall is a named instruction with its ordered argument list
type InstructionCall struct {
	Name lexer.Token
	Args []Argument
	Span lexer.SourceSpan
}

func (c *InstructionCall) StatementSpan() lexer.SourceSpan { return c.Span }

// Argument is implemented by *NumberArg, *ScopeLiteralArg, *ScopeRefArg,
// *StringArg and *IdentArg
type Argument interface {
	argNode()
	ArgSpan() lexer.SourceSpan
}

func (*NumberArg) argNode()      {}
func (*ScopeLiteralArg) argNode() {}
func (*ScopeRefArg) argNode()    {}
func (*StringArg) argNode()      {}
func (*IdentArg) argNode()       {}

// NumberArg is a number expression in an argument slot
type NumberArg struct {
	Expr *Expression
}

func (a *NumberArg) ArgSpan() lexer.SourceSpan { return a.Expr.Span }

// ScopeLiteralArg is a literal [ ... ] scope body in an argument slot
type ScopeLiteralArg struct {
	Scope *Scope
}

func (a *ScopeLiteralArg) ArgSpan() lexer.SourceSpan { return a.Scope.Span }

// ScopeRefArg is [ident]: a reference to a scope alias
type ScopeRefArg struct {
	Name lexer.Token
	Span lexer.SourceSpan
}

func (a *ScopeRefArg) ArgSpan() lexer.SourceSpan { return a.Span }

// StringArg is a raw string literal; not subject to alias substitution
type StringArg struct {
	Token lexer.Token
}

func (a *StringArg) ArgSpan() lexer.SourceSpan { return a.Token.Span }

// IdentArg is a bare identifier argument, used for ALIS target names
type IdentArg struct {
	Name lexer.Token
}

func (a *IdentArg) ArgSpan() lexer.SourceSpan { return a.Name.Span }

// Expression is a number expression evaluated strictly left-to-right with no
// operator precedence: 3+2*4 is ((3+2)*4).
type Expression struct {
	First Term
	Rest  []ExprOp
	Span  lexer.SourceSpan
}

// ExprOp is one operator/term pair in an expression chain
type ExprOp struct {
	Op   lexer.Token
	Term Term
}

// Term is an expression leaf: an integer literal, a character literal, or an
// identifier naming a number alias
type Term struct {
	Token lexer.Token
}
