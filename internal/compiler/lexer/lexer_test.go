package lexer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scan(t *testing.T, source string) ([]Token, []LexError) {
	t.Helper()
	tokens, errs := New(source).ScanTokens()
	return tokens, errs
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestScanTokens_Delimiters(t *testing.T) {
	tokens, errs := scan(t, "( ) { } [ ] , ; @ ? : :: . -> =>")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{
		TOKEN_LPAREN, TOKEN_RPAREN, TOKEN_LBRACE, TOKEN_RBRACE,
		TOKEN_LBRACKET, TOKEN_RBRACKET, TOKEN_COMMA, TOKEN_SEMI,
		TOKEN_AT, TOKEN_QUESTION, TOKEN_COLON, TOKEN_DOUBLE_COLON,
		TOKEN_DOT, TOKEN_ARROW, TOKEN_FATARROW, TOKEN_EOF,
	}, types(tokens))
}

func TestScanTokens_Operators(t *testing.T) {
	tokens, errs := scan(t, "+ ++ - * / % = == != < <= > >=")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{
		TOKEN_PLUS, TOKEN_PLUS_PLUS, TOKEN_HYPHEN, TOKEN_STAR, TOKEN_SLASH,
		TOKEN_PERCENT, TOKEN_EQUALS, TOKEN_EQ, TOKEN_NEQ, TOKEN_LANGLE,
		TOKEN_LTE, TOKEN_RANGLE, TOKEN_GTE, TOKEN_EOF,
	}, types(tokens))
}

func TestScanTokens_KeywordsAreCaseInsensitive(t *testing.T) {
	tokens, errs := scan(t, "Publish REQUIRE When Match")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{TOKEN_PUBLISH, TOKEN_REQUIRE, TOKEN_WHEN, TOKEN_MATCH, TOKEN_EOF}, types(tokens))
}

func TestScanTokens_ArticlesAndPrepositions(t *testing.T) {
	tokens, errs := scan(t, "a an the from into via with on by against")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{
		TOKEN_A, TOKEN_AN, TOKEN_THE, TOKEN_FROM, TOKEN_INTO, TOKEN_VIA,
		TOKEN_WITH, TOKEN_ON, TOKEN_BY, TOKEN_AGAINST, TOKEN_EOF,
	}, types(tokens))
}

// Numeric separators are stripped before parsing and must not affect the
// resulting value (testable property 1).
func TestScanTokens_NumericSeparatorsAreTransparent(t *testing.T) {
	cases := []struct {
		source   string
		expected int64
	}{
		{"1_000_000", 1000000},
		{"0x1_F", 0x1F},
		{"0b1010_1010", 0b10101010},
	}
	for _, tc := range cases {
		tokens, errs := scan(t, tc.source)
		require.Empty(t, errs, tc.source)
		require.Len(t, tokens, 2)
		assert.Equal(t, TOKEN_INT_LITERAL, tokens[0].Type, tc.source)
		assert.Equal(t, tc.expected, tokens[0].Literal, tc.source)
	}
}

func TestScanTokens_FloatLiteralWithExponent(t *testing.T) {
	tokens, errs := scan(t, "1.5e10 2E-3")
	require.Empty(t, errs)
	require.Len(t, tokens, 3)
	assert.Equal(t, TOKEN_FLOAT_LITERAL, tokens[0].Type)
	assert.InDelta(t, 1.5e10, tokens[0].Literal, 1)
	assert.Equal(t, TOKEN_FLOAT_LITERAL, tokens[1].Type)
	assert.InDelta(t, 2e-3, tokens[1].Literal, 1e-9)
}

func TestScanTokens_TrailingEIsNotAnExponent(t *testing.T) {
	// "1e" with no following digits: the trial exponent scan must back out
	// cleanly and leave the lexer positioned right after the integer.
	tokens, errs := scan(t, "1e")
	require.Empty(t, errs)
	require.Len(t, tokens, 3)
	assert.Equal(t, TOKEN_INT_LITERAL, tokens[0].Type)
	assert.Equal(t, int64(1), tokens[0].Literal)
	assert.Equal(t, TOKEN_IDENTIFIER, tokens[1].Type)
	assert.Equal(t, "e", tokens[1].Lexeme)
}

func TestScanTokens_SignedLiteralFoldingOpenQuestion(t *testing.T) {
	// After an operator/open-delimiter/comma, '-5' folds into one signed
	// literal token; in an expression position it stays two tokens so
	// "x - 5" still parses as subtraction.
	tokens, errs := scan(t, "(-5) x - 5")
	require.Empty(t, errs)
	assert.Equal(t, TOKEN_LPAREN, tokens[0].Type)
	assert.Equal(t, TOKEN_INT_LITERAL, tokens[1].Type)
	assert.Equal(t, int64(-5), tokens[1].Literal)
	assert.Equal(t, TOKEN_RPAREN, tokens[2].Type)
	assert.Equal(t, TOKEN_IDENTIFIER, tokens[3].Type)
	assert.Equal(t, TOKEN_HYPHEN, tokens[4].Type)
	assert.Equal(t, TOKEN_INT_LITERAL, tokens[5].Type)
	assert.Equal(t, int64(5), tokens[5].Literal)
}

func TestScanTokens_StringLiteralSimple(t *testing.T) {
	tokens, errs := scan(t, `"hello world"`)
	require.Empty(t, errs)
	require.Len(t, tokens, 2)
	assert.Equal(t, TOKEN_STRING_LITERAL, tokens[0].Type)
	assert.Equal(t, "hello world", tokens[0].Literal)
}

func TestScanTokens_StringLiteralEscapes(t *testing.T) {
	tokens, errs := scan(t, `"line1\nline2\t\"quoted\""`)
	require.Empty(t, errs)
	require.Len(t, tokens, 2)
	assert.Equal(t, "line1\nline2\t\"quoted\"", tokens[0].Literal)
}

func TestScanTokens_StringLiteralUnicodeEscape(t *testing.T) {
	tokens, errs := scan(t, `"\u{1F600}"`)
	require.Empty(t, errs)
	require.Len(t, tokens, 2)
	assert.Equal(t, "😀", tokens[0].Literal)
}

func TestScanTokens_StringInterpolation(t *testing.T) {
	tokens, errs := scan(t, `"total: ${price + 1}!"`)
	require.Empty(t, errs)

	assert.Equal(t, []TokenType{
		TOKEN_STRING_SEGMENT, TOKEN_INTERPOLATION_START, TOKEN_IDENTIFIER,
		TOKEN_PLUS, TOKEN_INT_LITERAL, TOKEN_INTERPOLATION_END,
		TOKEN_STRING_SEGMENT, TOKEN_EOF,
	}, types(tokens))
	assert.Equal(t, "total: ", tokens[0].Literal)
	assert.Equal(t, "!", tokens[6].Literal)
}

func TestScanTokens_SingleQuotedStringsDoNotInterpolate(t *testing.T) {
	tokens, errs := scan(t, `'total: ${price}'`)
	require.Empty(t, errs)
	require.Len(t, tokens, 2)
	assert.Equal(t, TOKEN_STRING_LITERAL, tokens[0].Type)
	assert.Equal(t, "total: ${price}", tokens[0].Literal)
}

func TestScanTokens_UnterminatedStringReportsError(t *testing.T) {
	_, errs := scan(t, `"unterminated`)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnterminatedString, errs[0].Kind)
}

// A division that cannot be mistaken for a regex literal must still scan as
// TOKEN_SLASH, and the trial scan must leave the cursor exactly where it
// was before the attempt (testable property 3).
func TestScanTokens_RegexTrialScanRestoresOnFailure(t *testing.T) {
	tokens, errs := scan(t, "total / count")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{TOKEN_IDENTIFIER, TOKEN_SLASH, TOKEN_IDENTIFIER, TOKEN_EOF}, types(tokens))
}

func TestScanTokens_RegexLiteral(t *testing.T) {
	tokens, errs := scan(t, `when value matches /^[A-Z]+\/[0-9]+$/i`)
	require.Empty(t, errs)
	require.Len(t, tokens, 5)
	assert.Equal(t, TOKEN_REGEX_LITERAL, tokens[3].Type)
	assert.Equal(t, `/^[A-Z]+\/[0-9]+$/i`, tokens[3].Literal)
}

func TestScanTokens_RegexNotAllowedAfterIdentifier(t *testing.T) {
	// A '/' right after an identifier is division, never a regex opener.
	tokens, errs := scan(t, "price / 2")
	require.Empty(t, errs)
	assert.Equal(t, TOKEN_SLASH, tokens[1].Type)
}

func TestScanTokens_LineComment(t *testing.T) {
	tokens, errs := scan(t, "publish // a trailing comment\nrequire")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{TOKEN_PUBLISH, TOKEN_REQUIRE, TOKEN_EOF}, types(tokens))
}

func TestScanTokens_NestedBlockComment(t *testing.T) {
	tokens, errs := scan(t, "publish (* outer (* inner *) still outer *) require")
	require.Empty(t, errs)
	assert.Equal(t, []TokenType{TOKEN_PUBLISH, TOKEN_REQUIRE, TOKEN_EOF}, types(tokens))
}

func TestScanTokens_UnterminatedBlockCommentReportsError(t *testing.T) {
	_, errs := scan(t, "publish (* never closed")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnexpectedCharacter, errs[0].Kind)
}

func TestScanTokens_UnexpectedCharacter(t *testing.T) {
	_, errs := scan(t, "publish # require")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnexpectedCharacter, errs[0].Kind)
}

// Concatenating the source lexemes of every non-EOF, non-synthesized token
// reproduces the original source modulo whitespace (testable property 2).
func TestScanTokens_LexemeConcatenationRoundTrip(t *testing.T) {
	source := `publish an OrderPlaced event from order where total > 100.5`
	tokens, errs := scan(t, source)
	require.Empty(t, errs)

	var rebuilt string
	for _, tok := range tokens {
		if tok.Type == TOKEN_EOF {
			continue
		}
		rebuilt += tok.Lexeme + " "
	}
	assert.Equal(t, source, strings.TrimSuffix(rebuilt, " "))
}
