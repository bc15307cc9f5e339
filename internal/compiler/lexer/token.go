// Package lexer provides lexical analysis for ARO source code.
// It tokenizes Action-Result-Object sentences into a stream of tokens for the parser.
package lexer

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a token in the ARO language
type TokenType int

const (
	// TOKEN_EOF marks the end of the token stream.
	TOKEN_EOF TokenType = iota
	// TOKEN_ERROR represents a lexical error encountered during scanning.
	TOKEN_ERROR

	// Delimiters
	TOKEN_LPAREN   // (
	TOKEN_RPAREN   // )
	TOKEN_LBRACE   // {
	TOKEN_RBRACE   // }
	TOKEN_LBRACKET // [
	TOKEN_RBRACKET // ]
	TOKEN_LANGLE   // <
	TOKEN_RANGLE   // >
	TOKEN_COLON    // :
	TOKEN_DOUBLE_COLON
	TOKEN_DOT      // .
	TOKEN_COMMA    // ,
	TOKEN_SEMI     // ;
	TOKEN_AT       // @
	TOKEN_QUESTION // ?
	TOKEN_ARROW    // ->
	TOKEN_FATARROW // =>
	TOKEN_EQUALS   // =

	// Operators
	TOKEN_PLUS
	TOKEN_HYPHEN // '-' — may also be folded into a signed numeric literal by the lexer
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_PERCENT
	TOKEN_PLUS_PLUS
	TOKEN_EQ
	TOKEN_NEQ
	TOKEN_LTE
	TOKEN_GTE

	// Core keywords
	TOKEN_PUBLISH
	TOKEN_REQUIRE
	TOKEN_IMPORT
	TOKEN_AS

	// Control flow
	TOKEN_IF
	TOKEN_THEN
	TOKEN_ELSE
	TOKEN_WHEN
	TOKEN_MATCH
	TOKEN_CASE
	TOKEN_OTHERWISE
	TOKEN_WHERE

	// Iteration
	TOKEN_FOR
	TOKEN_EACH
	TOKEN_IN
	TOKEN_AT_PREP // 'at' used as iteration index marker / preposition
	TOKEN_PARALLEL
	TOKEN_CONCURRENCY

	// Types
	TOKEN_TYPE
	TOKEN_ENUM
	TOKEN_PROTOCOL

	// Errors
	TOKEN_ERROR_KW
	TOKEN_GUARD
	TOKEN_DEFER
	TOKEN_ASSERT
	TOKEN_PRECONDITION

	// Logical
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_IS
	TOKEN_EXISTS
	TOKEN_DEFINED
	TOKEN_NULL_KW
	TOKEN_EMPTY
	TOKEN_CONTAINS
	TOKEN_MATCHES

	// Literals
	TOKEN_IDENTIFIER
	TOKEN_INT_LITERAL
	TOKEN_FLOAT_LITERAL
	TOKEN_STRING_LITERAL
	TOKEN_REGEX_LITERAL
	TOKEN_TRUE
	TOKEN_FALSE
	TOKEN_NIL

	// String interpolation
	TOKEN_STRING_SEGMENT
	TOKEN_INTERPOLATION_START // ${
	TOKEN_INTERPOLATION_END   // } closing an interpolation

	// Articles
	TOKEN_A
	TOKEN_AN
	TOKEN_THE

	// Prepositions
	TOKEN_FROM
	TOKEN_FOR_PREP
	TOKEN_AGAINST
	TOKEN_TO
	TOKEN_INTO
	TOKEN_VIA
	TOKEN_WITH
	TOKEN_ON
	TOKEN_BY
)

// TokenTypeNames maps token types to their string representations
var TokenTypeNames = map[TokenType]string{
	TOKEN_EOF:                 "EOF",
	TOKEN_ERROR:               "ERROR",
	TOKEN_LPAREN:              "LPAREN",
	TOKEN_RPAREN:              "RPAREN",
	TOKEN_LBRACE:              "LBRACE",
	TOKEN_RBRACE:              "RBRACE",
	TOKEN_LBRACKET:            "LBRACKET",
	TOKEN_RBRACKET:            "RBRACKET",
	TOKEN_LANGLE:              "LANGLE",
	TOKEN_RANGLE:              "RANGLE",
	TOKEN_COLON:               "COLON",
	TOKEN_DOUBLE_COLON:        "DOUBLE_COLON",
	TOKEN_DOT:                 "DOT",
	TOKEN_COMMA:               "COMMA",
	TOKEN_SEMI:                "SEMI",
	TOKEN_AT:                  "AT",
	TOKEN_QUESTION:            "QUESTION",
	TOKEN_ARROW:               "ARROW",
	TOKEN_FATARROW:            "FATARROW",
	TOKEN_EQUALS:              "EQUALS",
	TOKEN_PLUS:                "PLUS",
	TOKEN_HYPHEN:              "HYPHEN",
	TOKEN_STAR:                "STAR",
	TOKEN_SLASH:               "SLASH",
	TOKEN_PERCENT:             "PERCENT",
	TOKEN_PLUS_PLUS:           "PLUS_PLUS",
	TOKEN_EQ:                  "EQ",
	TOKEN_NEQ:                 "NEQ",
	TOKEN_LTE:                 "LTE",
	TOKEN_GTE:                 "GTE",
	TOKEN_PUBLISH:             "PUBLISH",
	TOKEN_REQUIRE:             "REQUIRE",
	TOKEN_IMPORT:              "IMPORT",
	TOKEN_AS:                  "AS",
	TOKEN_IF:                  "IF",
	TOKEN_THEN:                "THEN",
	TOKEN_ELSE:                "ELSE",
	TOKEN_WHEN:                "WHEN",
	TOKEN_MATCH:               "MATCH",
	TOKEN_CASE:                "CASE",
	TOKEN_OTHERWISE:           "OTHERWISE",
	TOKEN_WHERE:               "WHERE",
	TOKEN_FOR:                 "FOR",
	TOKEN_EACH:                "EACH",
	TOKEN_IN:                  "IN",
	TOKEN_AT_PREP:             "AT_PREP",
	TOKEN_PARALLEL:            "PARALLEL",
	TOKEN_CONCURRENCY:         "CONCURRENCY",
	TOKEN_TYPE:                "TYPE",
	TOKEN_ENUM:                "ENUM",
	TOKEN_PROTOCOL:            "PROTOCOL",
	TOKEN_ERROR_KW:            "ERROR_KW",
	TOKEN_GUARD:               "GUARD",
	TOKEN_DEFER:               "DEFER",
	TOKEN_ASSERT:              "ASSERT",
	TOKEN_PRECONDITION:        "PRECONDITION",
	TOKEN_AND:                 "AND",
	TOKEN_OR:                  "OR",
	TOKEN_NOT:                 "NOT",
	TOKEN_IS:                  "IS",
	TOKEN_EXISTS:              "EXISTS",
	TOKEN_DEFINED:             "DEFINED",
	TOKEN_NULL_KW:             "NULL",
	TOKEN_EMPTY:               "EMPTY",
	TOKEN_CONTAINS:            "CONTAINS",
	TOKEN_MATCHES:             "MATCHES",
	TOKEN_IDENTIFIER:          "IDENTIFIER",
	TOKEN_INT_LITERAL:         "INT_LITERAL",
	TOKEN_FLOAT_LITERAL:       "FLOAT_LITERAL",
	TOKEN_STRING_LITERAL:      "STRING_LITERAL",
	TOKEN_REGEX_LITERAL:       "REGEX_LITERAL",
	TOKEN_TRUE:                "TRUE",
	TOKEN_FALSE:               "FALSE",
	TOKEN_NIL:                 "NIL",
	TOKEN_STRING_SEGMENT:      "STRING_SEGMENT",
	TOKEN_INTERPOLATION_START: "INTERPOLATION_START",
	TOKEN_INTERPOLATION_END:   "INTERPOLATION_END",
	TOKEN_A:                   "A",
	TOKEN_AN:                  "AN",
	TOKEN_THE:                 "THE",
	TOKEN_FROM:                "FROM",
	TOKEN_FOR_PREP:            "FOR_PREP",
	TOKEN_AGAINST:             "AGAINST",
	TOKEN_TO:                  "TO",
	TOKEN_INTO:                "INTO",
	TOKEN_VIA:                 "VIA",
	TOKEN_WITH:                "WITH",
	TOKEN_ON:                  "ON",
	TOKEN_BY:                  "BY",
}

// String returns the string representation of a TokenType
func (t TokenType) String() string {
	if name, ok := TokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", t)
}

// Token represents a single lexical token in ARO source code
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int // 1-indexed
	Column  int // 1-indexed
	Offset  int // 0-indexed byte offset of the token start
}

// String returns a string representation of the token
func (t Token) String() string {
	if t.Literal != nil {
		return fmt.Sprintf("%s '%s' (%v) at %d:%d", t.Type, t.Lexeme, t.Literal, t.Line, t.Column)
	}
	return fmt.Sprintf("%s '%s' at %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

// Keywords maps reserved words (matched case-insensitively) to their token types.
// Articles and prepositions share this single table with core/control-flow keywords:
// the grammar treats them as distinct token kinds even though lookup is unified.
var Keywords = map[string]TokenType{
	"publish": TOKEN_PUBLISH,
	"require": TOKEN_REQUIRE,
	"import":  TOKEN_IMPORT,
	"as":      TOKEN_AS,

	"if":        TOKEN_IF,
	"then":      TOKEN_THEN,
	"else":      TOKEN_ELSE,
	"when":      TOKEN_WHEN,
	"match":     TOKEN_MATCH,
	"case":      TOKEN_CASE,
	"otherwise": TOKEN_OTHERWISE,
	"where":     TOKEN_WHERE,

	"for":         TOKEN_FOR,
	"each":        TOKEN_EACH,
	"in":          TOKEN_IN,
	"at":          TOKEN_AT_PREP,
	"parallel":    TOKEN_PARALLEL,
	"concurrency": TOKEN_CONCURRENCY,

	"type":     TOKEN_TYPE,
	"enum":     TOKEN_ENUM,
	"protocol": TOKEN_PROTOCOL,

	"error":        TOKEN_ERROR_KW,
	"guard":        TOKEN_GUARD,
	"defer":        TOKEN_DEFER,
	"assert":       TOKEN_ASSERT,
	"precondition": TOKEN_PRECONDITION,

	"and":      TOKEN_AND,
	"or":       TOKEN_OR,
	"not":      TOKEN_NOT,
	"is":       TOKEN_IS,
	"exists":   TOKEN_EXISTS,
	"defined":  TOKEN_DEFINED,
	"null":     TOKEN_NULL_KW,
	"empty":    TOKEN_EMPTY,
	"contains": TOKEN_CONTAINS,
	"matches":  TOKEN_MATCHES,

	"true":  TOKEN_TRUE,
	"false": TOKEN_FALSE,
	"nil":   TOKEN_NIL,

	"a":   TOKEN_A,
	"an":  TOKEN_AN,
	"the": TOKEN_THE,

	"from":    TOKEN_FROM,
	"against": TOKEN_AGAINST,
	"to":      TOKEN_TO,
	"into":    TOKEN_INTO,
	"via":     TOKEN_VIA,
	"with":    TOKEN_WITH,
	"on":      TOKEN_ON,
	"by":      TOKEN_BY,
}

// Articles is the subset of Keywords that are grammatical articles.
var Articles = map[TokenType]bool{
	TOKEN_A:   true,
	TOKEN_AN:  true,
	TOKEN_THE: true,
}

// Prepositions is the subset of Keywords that are grammatical prepositions.
// 'for' and 'at' double as iteration keywords; the parser disambiguates by position.
var Prepositions = map[TokenType]bool{
	TOKEN_FROM:    true,
	TOKEN_FOR:     true,
	TOKEN_AT_PREP: true,
	TOKEN_AGAINST: true,
	TOKEN_TO:      true,
	TOKEN_INTO:    true,
	TOKEN_VIA:     true,
	TOKEN_WITH:    true,
	TOKEN_ON:      true,
	TOKEN_BY:      true,
}

// LexErrorKind closes the set of lexical error categories (spec §7).
type LexErrorKind string

const (
	ErrUnexpectedCharacter  LexErrorKind = "unexpected-character"
	ErrUnterminatedString   LexErrorKind = "unterminated-string"
	ErrInvalidEscape        LexErrorKind = "invalid-escape"
	ErrInvalidNumber        LexErrorKind = "invalid-number"
	ErrInvalidUnicodeEscape LexErrorKind = "invalid-unicode-escape"
)

// LexError represents an error encountered during lexical analysis
type LexError struct {
	Kind    LexErrorKind
	Message string
	Line    int
	Column  int
	Offset  int
	Lexeme  string
}

// Error implements the error interface
func (e LexError) Error() string {
	return fmt.Sprintf("lexical error at %d:%d: %s (near '%s')", e.Line, e.Column, e.Message, e.Lexeme)
}

// IsKeyword reports whether s names a reserved word, article or preposition
// (case-insensitive).
func IsKeyword(s string) bool {
	_, ok := Keywords[strings.ToLower(s)]
	return ok
}
