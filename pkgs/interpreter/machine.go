package interpreter

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/basm-lang/basm/pkgs/errors"
)

// cellValue is the set of integer types a tape cell can be backed by
type cellValue interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32
}

// machine is the interpreter for one concrete cell type. min and max are the
// cell's value bounds, carried as int64 so arithmetic and io can be written
// once for every kind.
type machine[T cellValue] struct {
	opts     Options
	min, max int64

	tape    []T
	pointer int

	in *bufio.Reader
}

func newMachine[T cellValue](opts Options, min, max int64) *machine[T] {
	return &machine[T]{
		opts: opts,
		min:  min,
		max:  max,
		in:   bufio.NewReader(opts.In),
	}
}

func (m *machine[T]) Run(program string) error {
	code := compile(program)

	ip := 0
	for ip >= 0 && ip < len(code) {
		next, err := m.advance(code, ip)
		if err != nil {
			return err
		}
		ip = next
	}

	return nil
}

// advance executes the instruction at ip and returns the next instruction
// pointer
func (m *machine[T]) advance(code []instruction, ip int) (int, *errors.BasmError) {
	op := code[ip]

	switch op.kind {
	case opAdd:
		if err := m.adjust(int64(op.count)); err != nil {
			return 0, err
		}

	case opSub:
		if err := m.adjust(-int64(op.count)); err != nil {
			return 0, err
		}

	case opRight:
		m.pointer += op.count

	case opLeft:
		m.pointer -= op.count
		if m.pointer < 0 {
			return 0, errors.New(errors.ErrRuntime, "the tape pointer moved below cell 0")
		}

	case opOpen:
		v, err := m.cell()
		if err != nil {
			return 0, err
		}
		if v == 0 {
			return skipForward(code, ip)
		}

	case opClose:
		v, err := m.cell()
		if err != nil {
			return 0, err
		}
		if v != 0 {
			return skipBackward(code, ip)
		}

	case opIn:
		if err := m.input(); err != nil {
			return 0, err
		}

	case opOut:
		if err := m.output(); err != nil {
			return 0, err
		}
	}

	return ip + 1, nil
}

// skipForward finds the instruction after the ']' matching the '[' at ip. An
// unmatched '[' runs the program off the end of the code, which ends it.
func skipForward(code []instruction, ip int) (int, *errors.BasmError) {
	depth := 0
	for ; ip < len(code); ip++ {
		switch code[ip].kind {
		case opOpen:
			depth++
		case opClose:
			depth--
			if depth == 0 {
				return ip + 1, nil
			}
		}
	}
	return ip, nil
}

// skipBackward finds the instruction after the '[' matching the ']' at ip
func skipBackward(code []instruction, ip int) (int, *errors.BasmError) {
	depth := 0
	for ; ip >= 0; ip-- {
		switch code[ip].kind {
		case opClose:
			depth++
		case opOpen:
			depth--
			if depth == 0 {
				return ip + 1, nil
			}
		}
	}
	return 0, errors.New(errors.ErrRuntime, "a ']' had no matching '['")
}

// ensure grows the tape so the pointer's cell exists. The tape limit is
// checked here rather than on pointer moves, so a program may step past the
// limit as long as it never touches a cell beyond it.
func (m *machine[T]) ensure() *errors.BasmError {
	if m.pointer < len(m.tape) {
		return nil
	}
	if m.opts.TapeLimit > 0 && m.pointer >= m.opts.TapeLimit {
		return errors.Newf(errors.ErrRuntime,
			"the tape is limited to %d cells, the program tried to use cell %d",
			m.opts.TapeLimit, m.pointer)
	}

	grown := make([]T, m.pointer+1)
	copy(grown, m.tape)
	m.tape = grown
	return nil
}

func (m *machine[T]) cell() (int64, *errors.BasmError) {
	if err := m.ensure(); err != nil {
		return 0, err
	}
	return int64(m.tape[m.pointer]), nil
}

// adjust adds delta to the current cell under the configured overflow
// behaviour
func (m *machine[T]) adjust(delta int64) *errors.BasmError {
	v, err := m.cell()
	if err != nil {
		return err
	}
	v += delta

	if v < m.min || v > m.max {
		switch m.opts.Overflow {
		case Saturate:
			if v > m.max {
				v = m.max
			} else {
				v = m.min
			}
		case Abort:
			return errors.Newf(errors.ErrRuntime, "arithmetic overflowed cell %d", m.pointer)
		default:
			v = m.wrap(v)
		}
	}

	m.tape[m.pointer] = T(v)
	return nil
}

// wrap folds v into the cell's value range with modular arithmetic
func (m *machine[T]) wrap(v int64) int64 {
	span := m.max - m.min + 1
	v = (v - m.min) % span
	if v < 0 {
		v += span
	}
	return v + m.min
}

func (m *machine[T]) output() *errors.BasmError {
	v, err := m.cell()
	if err != nil {
		return err
	}

	if m.opts.Output == Number {
		fmt.Fprintf(m.opts.Out, "%d ", v)
		return nil
	}

	r := rune(uint32(v))
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	fmt.Fprintf(m.opts.Out, "%c", r)
	return nil
}

func (m *machine[T]) input() *errors.BasmError {
	if err := m.ensure(); err != nil {
		return err
	}

	if m.opts.Input == Number {
		return m.numberInput()
	}

	r, _, err := m.in.ReadRune()
	if err != nil {
		return errors.Wrap(errors.ErrInputRead, "failed to read an input character", err)
	}
	m.tape[m.pointer] = T(m.wrap(int64(r)))
	return nil
}

// numberInput prompts until the user types an integer that fits the cell
func (m *machine[T]) numberInput() *errors.BasmError {
	for {
		fmt.Fprint(m.opts.Out, "\n?: ")

		line, err := m.in.ReadString('\n')
		if err != nil && line == "" {
			return errors.Wrap(errors.ErrInputRead, "failed to read an input number", err)
		}

		v, parseErr := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if parseErr != nil || v < m.min || v > m.max {
			continue
		}

		m.tape[m.pointer] = T(v)
		return nil
	}
}

func (m *machine[T]) CellAt(idx int) (int64, bool) {
	if idx < 0 || idx >= len(m.tape) {
		return 0, false
	}
	return int64(m.tape[idx]), true
}
