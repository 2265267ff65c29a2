// Package compiler lowers a parsed basm program into brainfuck text.
// Compilation runs in three stages over a shared context: the setup field is
// normalized and emitted first, meta-instruction fields are registered, then
// the main field is normalized and emitted with a tracked tape pointer.
package compiler

import (
	"log/slog"
	"os"
	"strings"

	"github.com/basm-lang/basm/pkgs/ast"
	"github.com/basm-lang/basm/pkgs/errors"
	"github.com/basm-lang/basm/pkgs/optimiser"
	"github.com/basm-lang/basm/pkgs/parser"
)

// Options configures a compilation
type Options struct {
	// Optimize runs the peephole optimiser over the emitted program
	Optimize bool
	// CellWidth is the bit width used to fold INCR/DECR counts (default 8)
	CellWidth uint
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{Optimize: true, CellWidth: 8}
}

// Compile lowers a program into brainfuck text with default options.
// The optimiser is not applied; see Transpile for the full pipeline.
func Compile(program *ast.Program) (string, error) {
	return CompileWithOptions(program, DefaultOptions())
}

// CompileWithOptions lowers a program into brainfuck text
func CompileWithOptions(program *ast.Program, opts Options) (string, error) {
	c := &compilation{
		ctx:    NewMainContext(opts),
		logger: newLogger(),
	}
	return c.run(program)
}

// Transpile runs the whole pipeline over raw source text: lex, parse,
// compile and, when enabled, optimise. The name is used in debug traces;
// callers render errors against the source themselves.
func Transpile(source, name string, opts Options) (string, error) {
	program, err := parser.Parse(source)
	if err != nil {
		return "", err
	}

	out, err := CompileWithOptions(program, opts)
	if err != nil {
		return "", err
	}

	if opts.Optimize {
		out = optimiser.Optimize(out)
	}

	newLogger().Debug("transpiled program", "name", name, "bytes", len(out))
	return out, nil
}

// compilation holds the output buffer and context of one Compile call
type compilation struct {
	buf    strings.Builder
	ctx    *MainContext
	logger *slog.Logger
}

func (c *compilation) run(program *ast.Program) (string, error) {
	for _, meta := range program.Metas {
		c.ctx.pendingMetas[meta.Name.Value] = true
	}

	if program.Setup != nil {
		c.logger.Debug("normalizing setup field")
		c.ctx.inSetup = true
		// the setup field binds its top-level aliases straight into the
		// globals, so it normalizes against the MainContext itself
		normalized, err := NewNormalizedScope(program.Setup.Body, c.ctx)
		if err != nil {
			return "", err
		}
		if err := normalized.compile(c.ctx, &c.buf); err != nil {
			return "", err
		}
		c.ctx.inSetup = false
	}

	for _, meta := range program.Metas {
		c.logger.Debug("registering meta-instruction", "name", meta.Name.Value)
		if c.ctx.AddInstruction(meta.Name.Value, newMetaInstruction(meta)) {
			return "", errors.Newf(errors.ErrMeta, "instruction %q was already defined", meta.Name.Value).
				WithSpan(meta.Name.Span)
		}
	}

	if program.Main == nil {
		return "", errors.New(errors.ErrParse, "the program is missing a [main] field")
	}

	c.logger.Debug("normalizing main field")
	normalized, err := NewNormalizedScope(program.Main.Body, c.ctx.BuildScope())
	if err != nil {
		return "", err
	}
	if err := normalized.compile(c.ctx, &c.buf); err != nil {
		return "", err
	}

	c.logger.Debug("compilation finished", "bytes", c.buf.Len(), "pointer", c.ctx.Pointer())
	return c.buf.String(), nil
}

func newLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("BASM_DEBUG_COMPILER") != "" {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Drop timestamps and level for cleaner compiler traces
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
