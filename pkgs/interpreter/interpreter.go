// Package interpreter runs brainfuck programs on a growable tape. The cell
// type, overflow behaviour, tape limit and io modes are all chosen through
// Options, so the same machine can model every target the compiler emits for.
package interpreter

import (
	"io"
	"math"
	"os"
)

// CellKind selects the integer type backing each tape cell
type CellKind int

const (
	U8 CellKind = iota
	I8
	U16
	I16
	U32
	I32
)

// OverflowMode selects what happens when cell arithmetic leaves the cell's
// value range
type OverflowMode int

const (
	// Wrap performs modular arithmetic, the brainfuck default
	Wrap OverflowMode = iota
	// Saturate clamps to the nearest bound
	Saturate
	// Abort stops the program with an error
	Abort
)

// IOMode selects how ',' and '.' exchange values with the outside world
type IOMode int

const (
	// Character reads and writes single characters
	Character IOMode = iota
	// Number reads and writes decimal integers
	Number
)

// Options configures a machine before it runs
type Options struct {
	Cell     CellKind
	Overflow OverflowMode

	// TapeLimit caps the number of cells; 0 means unlimited. The limit is
	// only enforced when a cell is read or written, moving the pointer past
	// it is free.
	TapeLimit int

	Input  IOMode
	Output IOMode

	In  io.Reader
	Out io.Writer
}

// DefaultOptions is an unlimited u8 wrapping machine speaking characters on
// stdin and stdout
func DefaultOptions() Options {
	return Options{
		Cell:     U8,
		Overflow: Wrap,
		Input:    Character,
		Output:   Character,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
}

// Interpreter executes brainfuck source
type Interpreter interface {
	// Run executes the program until the instruction pointer leaves the
	// code
	Run(program string) error

	// CellAt reports the value of a cell; ok is false when the cell was
	// never allocated
	CellAt(idx int) (value int64, ok bool)
}

// New builds an Interpreter for the configured cell kind
func New(opts Options) Interpreter {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	switch opts.Cell {
	case I8:
		return newMachine[int8](opts, math.MinInt8, math.MaxInt8)
	case U16:
		return newMachine[uint16](opts, 0, math.MaxUint16)
	case I16:
		return newMachine[int16](opts, math.MinInt16, math.MaxInt16)
	case U32:
		return newMachine[uint32](opts, 0, math.MaxUint32)
	case I32:
		return newMachine[int32](opts, math.MinInt32, math.MaxInt32)
	default:
		return newMachine[uint8](opts, 0, math.MaxUint8)
	}
}
