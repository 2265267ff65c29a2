package compiler

import (
	"math"
	"slices"
	"strings"

	"github.com/basm-lang/basm/pkgs/ast"
	"github.com/basm-lang/basm/pkgs/errors"
)

// ArgKind classifies the argument slots of an instruction signature
type ArgKind int

const (
	ArgNumber ArgKind = iota
	ArgScope
	ArgString
)

func (k ArgKind) String() string {
	switch k {
	case ArgNumber:
		return "number"
	case ArgScope:
		return "scope"
	case ArgString:
		return "string"
	default:
		return "unknown"
	}
}

// Argument is a fully normalized instruction argument: an evaluated number,
// a normalized scope body, or a raw string
type Argument struct {
	Kind   ArgKind
	Number uint32
	Scope  *NormalizedScope
	Str    string
}

// Instruction is implemented by every built-in and by registered
// meta-instructions. Emit may assume the arguments already match Signature.
type Instruction interface {
	Signature() []ArgKind
	Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError
}

// builtIn returns the registry of built-in instructions
func builtIn() map[string]Instruction {
	return map[string]Instruction{
		"ALIS": alisInstruction{},
		"INLN": inlnInstruction{},
		"ZERO": zeroInstruction{},
		"INCR": incrInstruction{},
		"DECR": decrInstruction{},
		"ADDP": addpInstruction{},
		"SUBP": subpInstruction{},
		"COPY": copyInstruction{},
		"WHNE": whneInstruction{},
		"IN":   inInstruction{},
		"OUT":  outInstruction{},
		"LSTR": lstrInstruction{},
		"PSTR": pstrInstruction{},
		"RAW":  rawInstruction{},
		"BBOX": bboxInstruction{},
		"ASUM": asumInstruction{},
	}
}

// checkArgs validates arity and per-slot argument kinds against a signature
func checkArgs(signature []ArgKind, args []Argument) *errors.BasmError {
	if len(args) > len(signature) {
		return errors.Newf(errors.ErrType, "too many arguments, expected %d, got %d", len(signature), len(args))
	}
	if len(args) < len(signature) {
		return errors.Newf(errors.ErrType, "too few arguments, expected %d, got %d", len(signature), len(args))
	}

	for i, kind := range signature {
		if args[i].Kind != kind {
			return errors.Newf(errors.ErrType, "argument %d is a %s, expected a %s", i+1, args[i].Kind, kind)
		}
	}
	return nil
}

// cellAddress converts an evaluated operand into a tape address. Values past
// the signed range are wrapped negatives and name no real cell.
func cellAddress(v uint32) (int, *errors.BasmError) {
	if v > math.MaxInt32 {
		return 0, errors.Newf(errors.ErrAddress, "cell address %d is out of range", v)
	}
	return int(v), nil
}

// moveTo emits the '>' or '<' run taking the assumed pointer to addr and
// records the new position
func moveTo(buf *strings.Builder, ctx *MainContext, addr int) *errors.BasmError {
	if addr < 0 {
		return errors.Newf(errors.ErrAddress, "cannot move to negative cell address %d", addr)
	}

	delta := addr - ctx.Pointer()
	if delta > 0 {
		emitRun(buf, '>', delta)
	} else {
		emitRun(buf, '<', -delta)
	}

	ctx.SetPointer(addr)
	return nil
}

// emitRun writes n copies of ch
func emitRun(buf *strings.Builder, ch byte, n int) {
	for i := 0; i < n; i++ {
		buf.WriteByte(ch)
	}
}

// alisInstruction never reaches emission; bindings happen at normalization.
// It stays registered so meta-instruction names cannot collide with ALIS.
type alisInstruction struct{}

func (alisInstruction) Signature() []ArgKind { return nil }
func (alisInstruction) Emit(*strings.Builder, *MainContext, []Argument) *errors.BasmError {
	return nil
}

// inlnInstruction never reaches emission; splicing happens at normalization
type inlnInstruction struct{}

func (inlnInstruction) Signature() []ArgKind { return []ArgKind{ArgScope} }
func (inlnInstruction) Emit(*strings.Builder, *MainContext, []Argument) *errors.BasmError {
	return nil
}

type zeroInstruction struct{}

func (zeroInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber} }

func (zeroInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	buf.WriteString("[-]")
	return nil
}

type incrInstruction struct{}

func (incrInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgNumber} }

func (incrInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	emitRun(buf, '+', int(uint64(args[1].Number)%ctx.cellMod))
	return nil
}

type decrInstruction struct{}

func (decrInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgNumber} }

func (decrInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	emitRun(buf, '-', int(uint64(args[1].Number)%ctx.cellMod))
	return nil
}

// addpInstruction drains cell b into cell a
type addpInstruction struct{}

func (addpInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgNumber} }

func (addpInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	a, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	b, err := cellAddress(args[1].Number)
	if err != nil {
		return err
	}

	if err := moveTo(buf, ctx, b); err != nil {
		return err
	}
	buf.WriteString("[-")
	if err := moveTo(buf, ctx, a); err != nil {
		return err
	}
	buf.WriteByte('+')
	if err := moveTo(buf, ctx, b); err != nil {
		return err
	}
	buf.WriteByte(']')
	return nil
}

// subpInstruction drains cell b, subtracting it from cell a
type subpInstruction struct{}

func (subpInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgNumber} }

func (subpInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	a, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	b, err := cellAddress(args[1].Number)
	if err != nil {
		return err
	}

	if err := moveTo(buf, ctx, b); err != nil {
		return err
	}
	buf.WriteString("[-")
	if err := moveTo(buf, ctx, a); err != nil {
		return err
	}
	buf.WriteByte('-')
	if err := moveTo(buf, ctx, b); err != nil {
		return err
	}
	buf.WriteByte(']')
	return nil
}

// copyInstruction drains src into both destination cells
type copyInstruction struct{}

func (copyInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgNumber, ArgNumber} }

func (copyInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	src, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	dst1, err := cellAddress(args[1].Number)
	if err != nil {
		return err
	}
	dst2, err := cellAddress(args[2].Number)
	if err != nil {
		return err
	}

	if err := moveTo(buf, ctx, src); err != nil {
		return err
	}
	buf.WriteString("[-")
	if err := moveTo(buf, ctx, dst1); err != nil {
		return err
	}
	buf.WriteByte('+')
	if err := moveTo(buf, ctx, dst2); err != nil {
		return err
	}
	buf.WriteByte('+')
	if err := moveTo(buf, ctx, src); err != nil {
		return err
	}
	buf.WriteByte(']')
	return nil
}

// whneInstruction loops its body while the cell differs from the compared
// value. For a non-zero comparison the cell is shifted down by the value
// around the bracket tests and restored on the way out.
type whneInstruction struct{}

func (whneInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgNumber, ArgScope} }

func (whneInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	compared := int(args[1].Number)
	body := args[2].Scope

	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	emitRun(buf, '-', compared)
	buf.WriteByte('[')
	emitRun(buf, '+', compared)

	if err := body.compile(ctx, buf); err != nil {
		return err
	}

	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	emitRun(buf, '-', compared)
	buf.WriteByte(']')
	emitRun(buf, '+', compared)
	return nil
}

type inInstruction struct{}

func (inInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber} }

func (inInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	buf.WriteByte(',')
	return nil
}

type outInstruction struct{}

func (outInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber} }

func (outInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}
	buf.WriteByte('.')
	return nil
}

// lstrInstruction loads a string into consecutive cells starting at the
// given address, clearing each cell before filling it
type lstrInstruction struct{}

func (lstrInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgString} }

func (lstrInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	start, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}

	for i, ch := range []rune(args[1].Str) {
		if err := moveTo(buf, ctx, start+i); err != nil {
			return err
		}
		buf.WriteString("[-]")
		emitRun(buf, '+', int(ch))
	}
	return nil
}

// pstrInstruction prints a string through a single buffer cell, emitting
// only the delta between consecutive characters. The buffer is assumed
// clear on entry and is cleared again on exit.
type pstrInstruction struct{}

func (pstrInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber, ArgString} }

func (pstrInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	if err := moveTo(buf, ctx, addr); err != nil {
		return err
	}

	previous := 0
	for _, ch := range []rune(args[1].Str) {
		delta := int(ch) - previous
		if delta > 0 {
			emitRun(buf, '+', delta)
		} else {
			emitRun(buf, '-', -delta)
		}
		buf.WriteByte('.')
		previous = int(ch)
	}

	buf.WriteString("[-]")
	return nil
}

// rawInstruction splices its string verbatim into the output without
// touching the pointer tracker
type rawInstruction struct{}

func (rawInstruction) Signature() []ArgKind { return []ArgKind{ArgString} }

func (rawInstruction) Emit(buf *strings.Builder, _ *MainContext, args []Argument) *errors.BasmError {
	buf.WriteString(args[0].Str)
	return nil
}

// bboxInstruction emits the physical moves taking the real pointer to the
// given address while leaving the assumed position untouched
type bboxInstruction struct{}

func (bboxInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber} }

func (bboxInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}

	delta := addr - ctx.Pointer()
	if delta > 0 {
		emitRun(buf, '>', delta)
	} else {
		emitRun(buf, '<', -delta)
	}
	return nil
}

// asumInstruction updates the assumed pointer without emitting anything
type asumInstruction struct{}

func (asumInstruction) Signature() []ArgKind { return []ArgKind{ArgNumber} }

func (asumInstruction) Emit(_ *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	addr, err := cellAddress(args[0].Number)
	if err != nil {
		return err
	}
	ctx.SetPointer(addr)
	return nil
}

// metaInstruction adapts a user-defined meta-instruction field to the
// Instruction interface. Each call expands the body in a fresh scope rooted
// at the globals, so caller-local aliases never leak in.
type metaInstruction struct {
	field      *ast.MetaField
	name       string
	paramNames []string
	signature  []ArgKind
}

func newMetaInstruction(field *ast.MetaField) *metaInstruction {
	names := make([]string, len(field.Params))
	kinds := make([]ArgKind, len(field.Params))
	for i, p := range field.Params {
		names[i] = p.Name.Value
		if p.IsScope {
			kinds[i] = ArgScope
		} else {
			kinds[i] = ArgNumber
		}
	}

	return &metaInstruction{
		field:      field,
		name:       field.Name.Value,
		paramNames: names,
		signature:  kinds,
	}
}

func (m *metaInstruction) Signature() []ArgKind { return m.signature }

func (m *metaInstruction) Emit(buf *strings.Builder, ctx *MainContext, args []Argument) *errors.BasmError {
	if slices.Contains(ctx.metaStack, m.name) {
		return errors.Newf(errors.ErrMeta, "meta-instruction %q expands recursively", m.name).
			WithSpan(m.field.Span)
	}
	ctx.metaStack = append(ctx.metaStack, m.name)
	defer func() {
		ctx.metaStack = ctx.metaStack[:len(ctx.metaStack)-1]
	}()

	scope := ctx.BuildScope()
	for i, name := range m.paramNames {
		if m.signature[i] == ArgScope {
			scope.AddScopeAlias(name, args[i].Scope)
		} else {
			scope.AddNumberAlias(name, args[i].Number)
		}
	}

	normalized, err := NewNormalizedScope(m.field.Body, scope)
	if err != nil {
		return errors.Wrapf(errors.ErrMeta, err, "failed to inline meta-instruction %q", m.name).
			WithSpan(m.field.Span)
	}
	if err := normalized.compile(ctx, buf); err != nil {
		return errors.Wrapf(errors.ErrMeta, err, "failed to inline meta-instruction %q", m.name).
			WithSpan(m.field.Span)
	}
	return nil
}
