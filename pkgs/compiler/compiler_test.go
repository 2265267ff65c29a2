package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basm-lang/basm/pkgs/errors"
	"github.com/basm-lang/basm/pkgs/parser"
)

// compileSource lowers source without the optimiser so tests can assert the
// emitter's exact output
func compileSource(t *testing.T, source string) string {
	t.Helper()

	program, err := parser.Parse(source)
	require.NoError(t, err)

	out, err := CompileWithOptions(program, Options{Optimize: false, CellWidth: 8})
	require.NoError(t, err)
	return out
}

func compileError(t *testing.T, source string) error {
	t.Helper()

	program, err := parser.Parse(source)
	require.NoError(t, err)

	_, err = CompileWithOptions(program, Options{Optimize: false, CellWidth: 8})
	require.Error(t, err)
	return err
}

func TestBuiltinEmission(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "ZERO moves and clears",
			source:   `[main] [ ZERO 3; ]`,
			expected: ">>>[-]",
		},
		{
			name:     "INCR emits pluses",
			source:   `[main] [ INCR 0 5; ]`,
			expected: "+++++",
		},
		{
			name:     "INCR folds by cell width",
			source:   `[main] [ INCR 0 260; ]`,
			expected: "++++",
		},
		{
			name:     "DECR emits minuses",
			source:   `[main] [ DECR 1 2; ]`,
			expected: ">--",
		},
		{
			name:     "ADDP drains b into a",
			source:   `[main] [ ADDP 0 1; ]`,
			expected: ">[-<+>]",
		},
		{
			name:     "SUBP drains b subtracting from a",
			source:   `[main] [ SUBP 2 0; ]`,
			expected: "[->>-<<]",
		},
		{
			name:     "COPY drains src into both destinations",
			source:   `[main] [ COPY 0 1 2; ]`,
			expected: "[->+>+<<]",
		},
		{
			name:     "WHNE against zero is a plain loop",
			source:   `[main] [ WHNE 0 0 [ INCR 0 1; ]; ]`,
			expected: "[+]",
		},
		{
			name:     "WHNE shifts the cell around the bracket tests",
			source:   `[main] [ WHNE 0 2 [ ZERO 1; ]; ]`,
			expected: "--[++>[-]<--]++",
		},
		{
			name:     "IN and OUT emit at their cells",
			source:   `[main] [ IN 0; OUT 1; ]`,
			expected: ",>.",
		},
		{
			name:     "LSTR clears and fills consecutive cells",
			source:   `[main] [ LSTR 1 "Hi"; ]`,
			expected: ">[-]" + runOf('+', 72) + ">[-]" + runOf('+', 105),
		},
		{
			name:     "PSTR prints deltas through one cell and clears it",
			source:   `[main] [ PSTR 0 "ab"; ]`,
			expected: runOf('+', 97) + ".+.[-]",
		},
		{
			name:     "RAW is spliced without tracking the pointer",
			source:   `[main] [ RAW ">>"; INCR 0 1; ]`,
			expected: ">>+",
		},
		{
			name:     "BBOX moves the physical pointer only",
			source:   `[main] [ BBOX 2; INCR 0 1; ]`,
			expected: ">>+",
		},
		{
			name:     "ASUM retargets the assumed pointer only",
			source:   `[main] [ INCR 2 1; ASUM 0; INCR 2 1; ]`,
			expected: ">>+>>+",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, compileSource(t, tt.source))
		})
	}
}

func runOf(ch byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = ch
	}
	return string(out)
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "no precedence, strictly left to right",
			source:   `[main] [ INCR 0 3+2*4; ]`,
			expected: runOf('+', 20),
		},
		{
			name:     "character literals are their code points",
			source:   `[main] [ INCR 0 'A'; ]`,
			expected: runOf('+', 65),
		},
		{
			name:     "division truncates",
			source:   `[main] [ INCR 0 7/2; ]`,
			expected: "+++",
		},
		{
			name:     "aliases resolve inside expressions",
			source:   `[main] [ ALIS five 5; INCR 0 five*2; ]`,
			expected: runOf('+', 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, compileSource(t, tt.source))
		})
	}
}

func TestAliases(t *testing.T) {
	t.Run("number alias names a cell", func(t *testing.T) {
		out := compileSource(t, `[main] [ ALIS counter 2; INCR counter 1; ]`)
		assert.Equal(t, ">>+", out)
	})

	t.Run("inner scope bindings do not leak out", func(t *testing.T) {
		out := compileSource(t, `[main] [ ALIS x 2; [ ALIS x 4; INCR x 1; ] INCR x 1; ]`)
		assert.Equal(t, ">>>>+<<+", out)
	})

	t.Run("scope alias inlines its body", func(t *testing.T) {
		out := compileSource(t, `[main] [ ALIS body [ INCR 0 1; ]; INLN [body]; INLN [body]; ]`)
		assert.Equal(t, "++", out)
	})

	t.Run("scope alias snapshots bindings at definition", func(t *testing.T) {
		out := compileSource(t, `[main] [ ALIS v 5; ALIS body [ INCR 0 v; ]; ALIS v 9; INLN [body]; ]`)
		assert.Equal(t, "+++++", out)
	})

	t.Run("INLN accepts a scope literal", func(t *testing.T) {
		out := compileSource(t, `[main] [ INLN [ INCR 1 1; ]; ]`)
		assert.Equal(t, ">+", out)
	})

	t.Run("rebinding in the same frame replaces the value", func(t *testing.T) {
		out := compileSource(t, `[main] [ ALIS x 1; ALIS x 3; INCR x 1; ]`)
		assert.Equal(t, ">>>+", out)
	})
}

func TestSetupField(t *testing.T) {
	t.Run("top level setup aliases are global", func(t *testing.T) {
		out := compileSource(t, `
[setup] [ ALIS base 3; ]
[main] [ INCR base 1; ]`)
		assert.Equal(t, ">>>+", out)
	})

	t.Run("setup emits before main", func(t *testing.T) {
		out := compileSource(t, `
[setup] [ ZERO 0; ]
[main] [ INCR 1 1; ]`)
		assert.Equal(t, "[-]>+", out)
	})

	t.Run("setup cannot call meta-instructions", func(t *testing.T) {
		program, err := parser.Parse(`
[setup] [ BUMP 1; ]
[@BUMP a] [ INCR a 1; ]
[main] [ ]`)
		require.NoError(t, err)

		_, err = CompileWithOptions(program, Options{CellWidth: 8})
		require.Error(t, err)
		assert.True(t, errors.IsErrorType(err, errors.ErrSetup), "got %v", err)
	})
}

func TestMetaInstructions(t *testing.T) {
	t.Run("number parameters", func(t *testing.T) {
		out := compileSource(t, `
[@BUMP a] [ INCR a 1; ]
[main] [ BUMP 3; ]`)
		assert.Equal(t, ">>>+", out)
	})

	t.Run("scope parameters expand where called", func(t *testing.T) {
		out := compileSource(t, `
[@TWICE [body]] [ INLN [body]; INLN [body]; ]
[main] [ TWICE [ INCR 0 1; ]; ]`)
		assert.Equal(t, "++", out)
	})

	t.Run("expansion sees globals, not caller locals", func(t *testing.T) {
		out := compileSource(t, `
[setup] [ ALIS g 1; ]
[@M] [ INCR g 1; ]
[main] [ ALIS g 2; M; ]`)
		assert.Equal(t, ">+", out)
	})

	t.Run("metas can call other metas", func(t *testing.T) {
		out := compileSource(t, `
[@INNER a] [ INCR a 1; ]
[@OUTER a] [ INNER a; INNER a; ]
[main] [ OUTER 1; ]`)
		assert.Equal(t, ">++", out)
	})

	t.Run("recursion is rejected", func(t *testing.T) {
		err := compileError(t, `
[@LOOP] [ LOOP; ]
[main] [ LOOP; ]`)
		assert.True(t, errors.IsErrorType(err, errors.ErrMeta), "got %v", err)
		assert.Contains(t, err.Error(), "recursively")
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		err := compileError(t, `
[@X] [ ]
[@X] [ ]
[main] [ ]`)
		assert.True(t, errors.IsErrorType(err, errors.ErrMeta), "got %v", err)
		assert.Contains(t, err.Error(), "already defined")
	})

	t.Run("builtin names cannot be redefined", func(t *testing.T) {
		err := compileError(t, `
[@ZERO a] [ ]
[main] [ ]`)
		assert.True(t, errors.IsErrorType(err, errors.ErrMeta), "got %v", err)
	})
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name      string
		source    string
		errorType string
		message   string
	}{
		{
			name:      "unknown instruction",
			source:    `[main] [ NOPE 0; ]`,
			errorType: errors.ErrMeta,
			message:   "is not defined",
		},
		{
			name:      "too few arguments",
			source:    `[main] [ ZERO; ]`,
			errorType: errors.ErrType,
			message:   "too few arguments",
		},
		{
			name:      "too many arguments",
			source:    `[main] [ ZERO 1 2; ]`,
			errorType: errors.ErrType,
			message:   "too many arguments",
		},
		{
			name:      "argument kind mismatch",
			source:    `[main] [ ZERO [ INCR 0 1; ]; ]`,
			errorType: errors.ErrType,
			message:   "expected a number",
		},
		{
			name:      "undefined number alias",
			source:    `[main] [ INCR nope 1; ]`,
			errorType: errors.ErrScope,
			message:   "was not defined",
		},
		{
			name:      "undefined scope alias",
			source:    `[main] [ INLN [nope]; ]`,
			errorType: errors.ErrScope,
			message:   "was not defined",
		},
		{
			name:      "negative address wraps out of range",
			source:    `[main] [ ZERO 0-1; ]`,
			errorType: errors.ErrAddress,
			message:   "out of range",
		},
		{
			name:      "division by zero",
			source:    `[main] [ INCR 0 1/0; ]`,
			errorType: errors.ErrOverflow,
			message:   "divide by zero",
		},
		{
			name:      "number literal too large",
			source:    `[main] [ INCR 0 4294967296; ]`,
			errorType: errors.ErrOverflow,
			message:   "out of range",
		},
		{
			name:      "missing main field",
			source:    `[setup] [ ]`,
			errorType: errors.ErrParse,
			message:   "missing a [main] field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := compileError(t, tt.source)
			assert.True(t, errors.IsErrorType(err, tt.errorType),
				"expected %s, got %v", tt.errorType, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCellWidthOptions(t *testing.T) {
	program, err := parser.Parse(`[main] [ INCR 0 260; ]`)
	require.NoError(t, err)

	out, err := CompileWithOptions(program, Options{CellWidth: 16})
	require.NoError(t, err)
	assert.Equal(t, runOf('+', 260), out, "16 bit cells do not fold 260")

	// comparison counts are never folded, whatever the width
	program, err = parser.Parse(`[main] [ WHNE 0 300 [ ]; ]`)
	require.NoError(t, err)
	out, err = CompileWithOptions(program, Options{CellWidth: 8})
	require.NoError(t, err)
	assert.Equal(t, runOf('-', 300)+"["+runOf('+', 300)+runOf('-', 300)+"]"+runOf('+', 300), out)
}

func TestTranspileOptimizes(t *testing.T) {
	source := `[main] [ INCR 0 3; ZERO 1; DECR 0 2; ]`

	plain, err := Transpile(source, "test.basm", Options{Optimize: false, CellWidth: 8})
	require.NoError(t, err)
	assert.Equal(t, "+++>[-]<--", plain)

	optimized, err := Transpile(source, "test.basm", Options{Optimize: true, CellWidth: 8})
	require.NoError(t, err)
	assert.Equal(t, ">[-]<+", optimized)
}
