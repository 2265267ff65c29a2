package errors

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basm-lang/basm/pkgs/lexer"
)

func spanAt(line, column, offset, width int) lexer.SourceSpan {
	return lexer.SourceSpan{
		Start: lexer.SourcePosition{Line: line, Column: column, Offset: offset},
		End:   lexer.SourcePosition{Line: line, Column: column + width, Offset: offset + width},
	}
}

func TestErrorFormatting(t *testing.T) {
	err := New(ErrType, "too few arguments")
	assert.Equal(t, "TYPE_ERROR: too few arguments", err.Error())

	cause := stderrors.New("underlying")
	wrapped := Wrap(ErrMeta, "failed to inline", cause)
	assert.Equal(t, "META_ERROR: failed to inline (caused by: underlying)", wrapped.Error())
	assert.Equal(t, cause, stderrors.Unwrap(wrapped))
}

func TestIsErrorType(t *testing.T) {
	err := Newf(ErrScope, "alias %q was not defined", "x")
	assert.True(t, IsErrorType(err, ErrScope))
	assert.False(t, IsErrorType(err, ErrType))
	assert.False(t, IsErrorType(stderrors.New("plain"), ErrScope))
}

func TestContext(t *testing.T) {
	err := New(ErrLex, "unexpected character").WithContext("raw", "?")

	raw, ok := err.GetContext("raw")
	require.True(t, ok)
	assert.Equal(t, "?", raw)

	_, ok = err.GetContext("missing")
	assert.False(t, ok)
}

func TestDescribeWithSpan(t *testing.T) {
	source := "[main] [\n    INCR nope 1;\n]"
	err := New(ErrScope, `alias "nope" was not defined`).
		WithSpan(spanAt(2, 10, 18, 4))

	described := Describe(err, source, "prog.basm")
	lines := strings.Split(described, "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "error at prog.basm:2:10", lines[0])
	assert.Equal(t, `  alias "nope" was not defined`, lines[1])
	assert.Equal(t, "      INCR nope 1;", lines[2])
	assert.Equal(t, "  "+strings.Repeat(" ", 9)+"^^^^", lines[3])
}

func TestDescribeWithoutSpan(t *testing.T) {
	err := New(ErrParse, "the program is missing a [main] field")
	assert.Equal(t, err.Error(), Describe(err, "[setup] [ ]", "prog.basm"))

	plain := stderrors.New("not a structured error")
	assert.Equal(t, plain.Error(), Describe(plain, "", "prog.basm"))
}

func TestDescribeTrimsLongLines(t *testing.T) {
	long := strings.Repeat("x", 200) + "HERE" + strings.Repeat("y", 200)
	err := New(ErrParse, "found it").WithSpan(spanAt(1, 201, 200, 4))

	described := Describe(err, long, "prog.basm")
	assert.Contains(t, described, "...")
	assert.Contains(t, described, "HERE")
	assert.Contains(t, described, "^^^^")
	for _, line := range strings.Split(described, "\n") {
		assert.LessOrEqual(t, len(line), 2*contextWindow+10)
	}
}
