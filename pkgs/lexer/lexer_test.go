package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenExpectation struct {
	tokenType TokenType
	value     string
}

func expectTokens(t *testing.T, input string, expected []tokenExpectation) {
	t.Helper()

	tokens := New(input).TokenizeToSlice()
	require.Len(t, tokens, len(expected), "token count mismatch")

	for i, exp := range expected {
		assert.Equal(t, exp.tokenType, tokens[i].Type, "token %d type", i)
		assert.Equal(t, exp.value, tokens[i].Value, "token %d value", i)
	}
}

func TestFieldHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "main header",
			input: `[main]`,
			expected: []tokenExpectation{
				{MAIN, "[main]"},
				{EOF, ""},
			},
		},
		{
			name:  "setup header",
			input: `[setup]`,
			expected: []tokenExpectation{
				{SETUP, "[setup]"},
				{EOF, ""},
			},
		},
		{
			name:  "meta header",
			input: `[@DOUBLE cell]`,
			expected: []tokenExpectation{
				{METAOPEN, "[@"},
				{IDENTIFIER, "DOUBLE"},
				{IDENTIFIER, "cell"},
				{RBRACKET, "]"},
				{EOF, ""},
			},
		},
		{
			name:  "plain bracket is a scope opener",
			input: `[ ZERO 0; ]`,
			expected: []tokenExpectation{
				{LBRACKET, "["},
				{IDENTIFIER, "ZERO"},
				{NUMBER, "0"},
				{SEMICOLON, ";"},
				{RBRACKET, "]"},
				{EOF, ""},
			},
		},
		{
			name:  "bracket followed by main identifier without closing bracket",
			input: `[main ]`,
			expected: []tokenExpectation{
				{LBRACKET, "["},
				{IDENTIFIER, "main"},
				{RBRACKET, "]"},
				{EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectTokens(t, tt.input, tt.expected)
		})
	}
}

func TestExpressionsAndLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tokenExpectation
	}{
		{
			name:  "operators",
			input: `3+2*4-1/2`,
			expected: []tokenExpectation{
				{NUMBER, "3"},
				{PLUS, "+"},
				{NUMBER, "2"},
				{STAR, "*"},
				{NUMBER, "4"},
				{MINUS, "-"},
				{NUMBER, "1"},
				{SLASH, "/"},
				{NUMBER, "2"},
				{EOF, ""},
			},
		},
		{
			name:  "char literal",
			input: `'x'`,
			expected: []tokenExpectation{
				{CHAR, "x"},
				{EOF, ""},
			},
		},
		{
			name:  "string literal keeps quotes out of the value",
			input: `"Hello, World!"`,
			expected: []tokenExpectation{
				{STRING, "Hello, World!"},
				{EOF, ""},
			},
		},
		{
			name:  "string literal has no escapes",
			input: `"a\n"`,
			expected: []tokenExpectation{
				{STRING, `a\n`},
				{EOF, ""},
			},
		},
		{
			name:  "comment runs to end of line",
			input: "INCR 0 5; // bump the counter\nOUT 0;",
			expected: []tokenExpectation{
				{IDENTIFIER, "INCR"},
				{NUMBER, "0"},
				{NUMBER, "5"},
				{SEMICOLON, ";"},
				{IDENTIFIER, "OUT"},
				{NUMBER, "0"},
				{SEMICOLON, ";"},
				{EOF, ""},
			},
		},
		{
			name:  "identifiers with underscores and digits",
			input: `loop_2 _x`,
			expected: []tokenExpectation{
				{IDENTIFIER, "loop_2"},
				{IDENTIFIER, "_x"},
				{EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectTokens(t, tt.input, tt.expected)
		})
	}
}

func TestIllegalTokens(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
		raw     string
	}{
		{
			name:    "unterminated string",
			input:   `"abc`,
			message: "unterminated string literal",
			raw:     `"abc`,
		},
		{
			name:    "empty char literal",
			input:   `''`,
			message: "empty character literal",
			raw:     `''`,
		},
		{
			name:    "wide char literal",
			input:   `'ab'`,
			message: "character literal holds more than one character",
			raw:     `'ab'`,
		},
		{
			name:    "malformed number",
			input:   `12abc`,
			message: "malformed number literal",
			raw:     `12abc`,
		},
		{
			name:    "stray byte",
			input:   `?`,
			message: "unexpected character",
			raw:     `?`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := New(tt.input).TokenizeToSlice()
			require.NotEmpty(t, tokens)

			tok := tokens[0]
			assert.Equal(t, ILLEGAL, tok.Type)
			assert.Equal(t, tt.message, tok.Value)
			assert.Equal(t, tt.raw, tok.Raw)
		})
	}
}

func TestTokenPositions(t *testing.T) {
	input := "[main]\nZERO 0;\n"
	tokens := New(input).TokenizeToSlice()
	require.Len(t, tokens, 5)

	zero := tokens[1]
	assert.Equal(t, IDENTIFIER, zero.Type)
	assert.Equal(t, 2, zero.Line)
	assert.Equal(t, 1, zero.Column)
	assert.Equal(t, 7, zero.Span.Start.Offset)
	assert.Equal(t, 11, zero.Span.End.Offset)
}
