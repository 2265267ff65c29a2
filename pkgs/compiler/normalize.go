package compiler

import (
	"strings"

	"github.com/basm-lang/basm/pkgs/ast"
	"github.com/basm-lang/basm/pkgs/errors"
)

// normalizedItem is one entry of a normalized scope body
type normalizedItem interface {
	compile(ctx *MainContext, buf *strings.Builder) *errors.BasmError
}

// NormalizedScope is a scope body with every alias resolved, every
// expression evaluated and every meta-instruction call bound to its
// definition. Scope aliases store values of this type, which is what makes
// alias bindings snapshot the environment of their ALIS statement.
type NormalizedScope struct {
	From  *ast.Scope
	items []normalizedItem
}

// NewNormalizedScope resolves a parsed scope against the environment.
// ALIS statements bind into ctx and produce no output item; INLN statements
// splice the referenced body; nested scopes open a child frame.
func NewNormalizedScope(scope *ast.Scope, ctx Context) (*NormalizedScope, *errors.BasmError) {
	normalized := &NormalizedScope{From: scope}

	for _, stmt := range scope.Statements {
		switch s := stmt.(type) {
		case *ast.InstructionCall:
			switch s.Name.Value {
			case "ALIS":
				if err := bindAlias(ctx, s); err != nil {
					return nil, err
				}

			case "INLN":
				item, err := resolveInline(ctx, s)
				if err != nil {
					return nil, err
				}
				normalized.items = append(normalized.items, item)

			default:
				item, err := newNormalizedInstruction(s, ctx)
				if err != nil {
					return nil, err
				}
				normalized.items = append(normalized.items, item)
			}

		case *ast.Scope:
			item, err := NewNormalizedScope(s, ctx.SubScope())
			if err != nil {
				return nil, err
			}
			normalized.items = append(normalized.items, item)
		}
	}

	return normalized, nil
}

func (n *NormalizedScope) compile(ctx *MainContext, buf *strings.Builder) *errors.BasmError {
	for _, item := range n.items {
		if err := item.compile(ctx, buf); err != nil {
			return err
		}
	}
	return nil
}

// NormalizedInstruction is an instruction call with resolved arguments and
// its implementation looked up in the registry
type NormalizedInstruction struct {
	From *ast.InstructionCall
	kind Instruction
	args []Argument
}

func newNormalizedInstruction(call *ast.InstructionCall, ctx Context) (*NormalizedInstruction, *errors.BasmError) {
	main := ctx.Main()
	name := call.Name.Value

	kind, ok := main.FindInstruction(name)
	if !ok {
		if main.inSetup && main.pendingMetas[name] {
			return nil, errors.Newf(errors.ErrSetup,
				"the setup field cannot call meta-instruction %q, it is not registered yet", name).
				WithSpan(call.Name.Span)
		}
		return nil, errors.Newf(errors.ErrMeta, "instruction %q is not defined", name).
			WithSpan(call.Name.Span)
	}

	args := make([]Argument, 0, len(call.Args))
	for _, arg := range call.Args {
		resolved, err := resolveArgument(arg, ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, resolved)
	}

	return &NormalizedInstruction{From: call, kind: kind, args: args}, nil
}

func resolveArgument(arg ast.Argument, ctx Context) (Argument, *errors.BasmError) {
	switch a := arg.(type) {
	case *ast.NumberArg:
		value, err := evalExpression(a.Expr, ctx)
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgNumber, Number: value}, nil

	case *ast.ScopeLiteralArg:
		scope, err := NewNormalizedScope(a.Scope, ctx.SubScope())
		if err != nil {
			return Argument{}, err
		}
		return Argument{Kind: ArgScope, Scope: scope}, nil

	case *ast.ScopeRefArg:
		scope, ok := ctx.FindScopeAlias(a.Name.Value)
		if !ok {
			return Argument{}, errors.Newf(errors.ErrScope, "scope alias %q was not defined", a.Name.Value).
				WithSpan(a.Span)
		}
		return Argument{Kind: ArgScope, Scope: scope}, nil

	case *ast.StringArg:
		return Argument{Kind: ArgString, Str: a.Token.Value}, nil

	case *ast.IdentArg:
		// a bare identifier outside ALIS reads as a number alias
		value, ok := ctx.FindNumberAlias(a.Name.Value)
		if !ok {
			return Argument{}, errors.Newf(errors.ErrScope, "alias %q was not defined", a.Name.Value).
				WithSpan(a.Name.Span)
		}
		return Argument{Kind: ArgNumber, Number: value}, nil

	default:
		return Argument{}, errors.New(errors.ErrType, "unsupported argument form").
			WithSpan(arg.ArgSpan())
	}
}

func (n *NormalizedInstruction) compile(ctx *MainContext, buf *strings.Builder) *errors.BasmError {
	if err := checkArgs(n.kind.Signature(), n.args); err != nil {
		return err.WithSpan(n.From.Span)
	}
	if err := n.kind.Emit(buf, ctx, n.args); err != nil {
		if err.Span == nil {
			return err.WithSpan(n.From.Span)
		}
		return err
	}
	return nil
}

// bindAlias evaluates an ALIS statement and adds the binding to ctx.
// The value argument is evaluated immediately: number expressions become
// integers and scope bodies are normalized against the current environment.
func bindAlias(ctx Context, call *ast.InstructionCall) *errors.BasmError {
	if len(call.Args) != 2 {
		return errors.Newf(errors.ErrType, "ALIS takes 2 arguments, got %d", len(call.Args)).
			WithSpan(call.Span)
	}

	ident, ok := call.Args[0].(*ast.IdentArg)
	if !ok {
		return errors.New(errors.ErrType, "the first argument of ALIS must be a bare identifier").
			WithSpan(call.Args[0].ArgSpan())
	}
	name := ident.Name.Value

	switch value := call.Args[1].(type) {
	case *ast.NumberArg:
		evaluated, err := evalExpression(value.Expr, ctx)
		if err != nil {
			return err
		}
		ctx.AddNumberAlias(name, evaluated)

	case *ast.ScopeLiteralArg:
		scope, err := NewNormalizedScope(value.Scope, ctx.SubScope())
		if err != nil {
			return err
		}
		ctx.AddScopeAlias(name, scope)

	case *ast.ScopeRefArg:
		scope, ok := ctx.FindScopeAlias(value.Name.Value)
		if !ok {
			return errors.Newf(errors.ErrScope, "scope alias %q was not defined", value.Name.Value).
				WithSpan(value.Span)
		}
		ctx.AddScopeAlias(name, scope)

	case *ast.IdentArg:
		evaluated, ok := ctx.FindNumberAlias(value.Name.Value)
		if !ok {
			return errors.Newf(errors.ErrScope, "alias %q was not defined", value.Name.Value).
				WithSpan(value.Name.Span)
		}
		ctx.AddNumberAlias(name, evaluated)

	default:
		return errors.New(errors.ErrType, "the value of ALIS must be a number or a scope").
			WithSpan(call.Args[1].ArgSpan())
	}

	return nil
}

// resolveInline splices the scope an INLN statement names. The stored body
// was normalized when its alias was bound, so number aliases inside it keep
// the values they had at binding time.
func resolveInline(ctx Context, call *ast.InstructionCall) (*NormalizedScope, *errors.BasmError) {
	if len(call.Args) != 1 {
		return nil, errors.Newf(errors.ErrType, "INLN takes 1 argument, got %d", len(call.Args)).
			WithSpan(call.Span)
	}

	switch arg := call.Args[0].(type) {
	case *ast.ScopeRefArg:
		scope, ok := ctx.FindScopeAlias(arg.Name.Value)
		if !ok {
			return nil, errors.Newf(errors.ErrScope, "scope alias %q was not defined", arg.Name.Value).
				WithSpan(arg.Span)
		}
		return scope, nil

	case *ast.ScopeLiteralArg:
		return NewNormalizedScope(arg.Scope, ctx.SubScope())

	default:
		return nil, errors.New(errors.ErrType, "the argument of INLN must be a scope").
			WithSpan(call.Args[0].ArgSpan())
	}
}
