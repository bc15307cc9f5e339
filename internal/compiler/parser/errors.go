// Package parser implements the ARO language parser: recursive-descent for
// the statement grammar, Pratt precedence climbing for expressions, with
// panic-mode error recovery that resynchronizes at statement and
// feature-set boundaries.
package parser

import (
	"fmt"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
)

// ParseErrorKind closes the set of parser error categories (spec §7).
type ParseErrorKind string

const (
	ErrUnexpectedToken        ParseErrorKind = "unexpected-token"
	ErrUnexpectedEOF          ParseErrorKind = "unexpected-end-of-file"
	ErrInvalidStatement       ParseErrorKind = "invalid-statement"
	ErrMissingFeatureSetName  ParseErrorKind = "missing-feature-set-name"
	ErrMissingBusinessActivity ParseErrorKind = "missing-business-activity"
	ErrInvalidQualifiedNoun   ParseErrorKind = "invalid-qualified-noun"
	ErrEmptyFeatureSet        ParseErrorKind = "empty-feature-set"
)

// ParseError is a single recoverable parser diagnostic.
type ParseError struct {
	Kind     ParseErrorKind
	Message  string
	Expected string // populated for ErrUnexpectedToken
	Got      string // populated for ErrUnexpectedToken
	Location ast.SourceLocation
	Token    lexer.Token
}

// Error implements the error interface.
func (e ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s (near '%s')",
		e.Location.Line, e.Location.Column, e.Message, e.Token.Lexeme)
}

func newParseError(kind ParseErrorKind, message string, token lexer.Token) ParseError {
	return ParseError{
		Kind:     kind,
		Message:  message,
		Location: ast.TokenLocation(token),
		Token:    token,
	}
}

func newUnexpectedTokenError(expected string, token lexer.Token) ParseError {
	return ParseError{
		Kind:     ErrUnexpectedToken,
		Message:  fmt.Sprintf("expected %s, got '%s'", expected, token.Lexeme),
		Expected: expected,
		Got:      token.Type.String(),
		Location: ast.TokenLocation(token),
		Token:    token,
	}
}
