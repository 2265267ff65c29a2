package errors

import (
	"fmt"
	"strings"

	"github.com/basm-lang/basm/pkgs/lexer"
)

// Error types for the stages of the compilation pipeline
const (
	// Lexing errors: unterminated string, bad character, malformed literal
	ErrLex = "LEX_ERROR"
	// Parsing errors: missing ';', unbalanced brackets, duplicate fields
	ErrParse = "PARSE_ERROR"
	// Argument checking errors: wrong arity, wrong argument kind
	ErrType = "TYPE_ERROR"
	// Alias resolution errors: alias not defined in context
	ErrScope = "SCOPE_ERROR"
	// Meta-instruction errors: undefined, recursive, name collision
	ErrMeta = "META_ERROR"
	// Setup field errors: setup calls a meta-instruction
	ErrSetup = "SETUP_ERROR"
	// Emission errors: move to a negative address
	ErrAddress = "ADDRESS_ERROR"
	// Compile-time arithmetic outside the representable range
	ErrOverflow = "OVERFLOW_ERROR"

	// Shell/CLI errors
	ErrInputRead = "INPUT_READ_ERROR"
	ErrRuntime   = "RUNTIME_ERROR"
)

// BasmError represents a structured error with type, source span and context
type BasmError struct {
	Type    string
	Message string
	Cause   error
	Span    *lexer.SourceSpan
	Context map[string]interface{}
}

// Error implements the error interface
func (e *BasmError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *BasmError) Unwrap() error {
	return e.Cause
}

// New creates a new BasmError
func New(errorType, message string) *BasmError {
	return &BasmError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a new BasmError with a formatted message
func Newf(errorType, format string, args ...interface{}) *BasmError {
	return New(errorType, fmt.Sprintf(format, args...))
}

// Wrap creates a new BasmError wrapping an existing error
func Wrap(errorType, message string, cause error) *BasmError {
	return &BasmError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Wrapf creates a new BasmError wrapping an existing error with a formatted message
func Wrapf(errorType string, cause error, format string, args ...interface{}) *BasmError {
	return Wrap(errorType, fmt.Sprintf(format, args...), cause)
}

// WithSpan attaches the source span the error points at
func (e *BasmError) WithSpan(span lexer.SourceSpan) *BasmError {
	e.Span = &span
	return e
}

// WithContext adds context information to the error
func (e *BasmError) WithContext(key string, value interface{}) *BasmError {
	e.Context[key] = value
	return e
}

// GetType returns the error type
func (e *BasmError) GetType() string {
	return e.Type
}

// GetContext returns context value by key
func (e *BasmError) GetContext(key string) (interface{}, bool) {
	value, exists := e.Context[key]
	return value, exists
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	if basmErr, ok := err.(*BasmError); ok {
		return basmErr.Type == errorType
	}
	return false
}

// Number of characters shown around a spanned error in Describe
const contextWindow = 50

// Describe renders a print-ready description of the error against its source
// text: position header, message, and a caret line under the offending slice.
// Falls back to the plain message when the error carries no span.
func Describe(err error, source, name string) string {
	basmErr, ok := err.(*BasmError)
	if !ok || basmErr.Span == nil {
		return err.Error()
	}

	span := *basmErr.Span
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("error at %s:%d:%d\n", name, span.Start.Line, span.Start.Column))
	builder.WriteString(fmt.Sprintf("  %s\n", basmErr.Message))

	line := sourceLine(source, span.Start.Offset)
	if line == "" {
		return builder.String()
	}

	width := span.End.Offset - span.Start.Offset
	if width < 1 {
		width = 1
	}
	col := span.Start.Column - 1
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	if col+width > len(line) {
		width = len(line) - col
		if width < 1 {
			width = 1
		}
	}

	display, displayCol := trimToWindow(line, col)
	pointer := strings.Repeat(" ", displayCol) + strings.Repeat("^", width)
	builder.WriteString(fmt.Sprintf("  %s\n  %s", display, pointer))
	return builder.String()
}

// sourceLine extracts the full source line containing a byte offset
func sourceLine(source string, offset int) string {
	if offset > len(source) {
		offset = len(source)
	}
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := strings.IndexByte(source[offset:], '\n')
	if end == -1 {
		return source[start:]
	}
	return source[start : offset+end]
}

// trimToWindow keeps at most contextWindow characters either side of col
func trimToWindow(line string, col int) (string, int) {
	start := 0
	if col > contextWindow {
		start = col - contextWindow
	}
	end := len(line)
	if col+contextWindow < end {
		end = col + contextWindow
	}
	trimmed := line[start:end]
	if start > 0 {
		trimmed = "..." + trimmed
		return trimmed, col - start + 3
	}
	return trimmed, col - start
}
