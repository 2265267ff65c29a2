package compiler

import (
	"strconv"

	"github.com/basm-lang/basm/pkgs/ast"
	"github.com/basm-lang/basm/pkgs/errors"
	"github.com/basm-lang/basm/pkgs/lexer"
)

// evalExpression evaluates a number expression strictly left to right with
// no operator precedence. Arithmetic is wrapping uint32; division truncates
// toward zero and rejects a zero divisor.
func evalExpression(expr *ast.Expression, ctx Context) (uint32, *errors.BasmError) {
	value, err := evalTerm(expr.First.Token, ctx)
	if err != nil {
		return 0, err
	}

	for _, op := range expr.Rest {
		operand, err := evalTerm(op.Term.Token, ctx)
		if err != nil {
			return 0, err
		}

		switch op.Op.Type {
		case lexer.PLUS:
			value += operand
		case lexer.MINUS:
			value -= operand
		case lexer.STAR:
			value *= operand
		case lexer.SLASH:
			if operand == 0 {
				return 0, errors.New(errors.ErrOverflow, "expression tried to divide by zero").
					WithSpan(expr.Span)
			}
			value /= operand
		}
	}

	return value, nil
}

// evalTerm evaluates one expression leaf: a number literal, a character
// literal or an identifier naming a number alias
func evalTerm(tok lexer.Token, ctx Context) (uint32, *errors.BasmError) {
	switch tok.Type {
	case lexer.NUMBER:
		v, err := strconv.ParseUint(tok.Value, 10, 32)
		if err != nil {
			return 0, errors.Newf(errors.ErrOverflow, "number literal %q is out of range", tok.Value).
				WithSpan(tok.Span)
		}
		return uint32(v), nil

	case lexer.CHAR:
		runes := []rune(tok.Value)
		return uint32(runes[0]), nil

	case lexer.IDENTIFIER:
		if v, ok := ctx.FindNumberAlias(tok.Value); ok {
			return v, nil
		}
		return 0, errors.Newf(errors.ErrScope, "alias %q was not defined", tok.Value).
			WithSpan(tok.Span)

	default:
		return 0, errors.Newf(errors.ErrType, "unexpected %s in number expression", tok.Type).
			WithSpan(tok.Span)
	}
}
