package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/basm-lang/basm/pkgs/compiler"
	"github.com/basm-lang/basm/pkgs/interpreter"
)

func runCommand() *cobra.Command {
	var (
		cellSize         uint
		signed           bool
		abortOverflow    bool
		saturateOverflow bool
		tapeLimit        int
		numberInput      bool
		numberOutput     bool
		raw              bool
		noOptimize       bool
	)

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Compile and run a basm program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]

			source, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("error reading %s: %w", input, err)
			}

			program := string(source)
			if !raw {
				opts := compiler.DefaultOptions()
				opts.Optimize = !noOptimize
				opts.CellWidth = cellSize

				program, err = compiler.Transpile(string(source), input, opts)
				if err != nil {
					return fmt.Errorf("%s", describeError(err, string(source), input))
				}
			}

			cell, err := cellKind(cellSize, signed)
			if err != nil {
				return err
			}
			overflow := interpreter.Wrap
			if saturateOverflow {
				overflow = interpreter.Saturate
			}
			if abortOverflow {
				overflow = interpreter.Abort
			}

			in, closeInput, err := inputReader()
			if err != nil {
				return err
			}
			defer func() { _ = closeInput() }()

			opts := interpreter.DefaultOptions()
			opts.Cell = cell
			opts.Overflow = overflow
			opts.TapeLimit = tapeLimit
			opts.In = in
			if numberInput {
				opts.Input = interpreter.Number
			}
			if numberOutput {
				opts.Output = interpreter.Number
			}

			return interpreter.New(opts).Run(program)
		},
	}

	cmd.Flags().UintVar(&cellSize, "cell-size", 8, "Cell size in bits: 8, 16 or 32")
	cmd.Flags().BoolVar(&signed, "signed", false, "Use signed cells")
	cmd.Flags().BoolVar(&abortOverflow, "abort-overflow", false, "Stop the program when a cell overflows")
	cmd.Flags().BoolVar(&saturateOverflow, "saturate-overflow", false, "Clamp cells at their bounds instead of wrapping")
	cmd.Flags().IntVar(&tapeLimit, "tape-limit", 0, "Maximum number of tape cells, 0 for unlimited")
	cmd.Flags().BoolVar(&numberInput, "number-input", false, "Read ',' input as decimal numbers")
	cmd.Flags().BoolVar(&numberOutput, "number-output", false, "Write '.' output as decimal numbers")
	cmd.Flags().BoolVar(&raw, "raw", false, "Treat the file as plain brainfuck, skipping compilation")
	cmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "Skip the output optimisation pass")

	return cmd
}

func cellKind(size uint, signed bool) (interpreter.CellKind, error) {
	switch {
	case size == 8 && !signed:
		return interpreter.U8, nil
	case size == 8 && signed:
		return interpreter.I8, nil
	case size == 16 && !signed:
		return interpreter.U16, nil
	case size == 16 && signed:
		return interpreter.I16, nil
	case size == 32 && !signed:
		return interpreter.U32, nil
	case size == 32 && signed:
		return interpreter.I32, nil
	default:
		return 0, fmt.Errorf("unsupported cell size %d, expected 8, 16 or 32", size)
	}
}

// inputReader returns the reader the interpreter takes ',' input from. On a
// terminal it reads through readline so the user gets line editing, piped
// input is passed through untouched.
func inputReader() (io.Reader, func() error, error) {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin, func() error { return nil }, nil
	}

	rl, err := readline.New("")
	if err != nil {
		return nil, nil, fmt.Errorf("error opening the input line reader: %w", err)
	}
	return &lineReader{rl: rl}, rl.Close, nil
}

// lineReader adapts a readline instance to io.Reader, one line per prompt
type lineReader struct {
	rl  *readline.Instance
	buf []byte
}

func (r *lineReader) Read(p []byte) (int, error) {
	if len(r.buf) == 0 {
		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return 0, io.EOF
			}
			return 0, err
		}
		r.buf = append([]byte(line), '\n')
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
