// Package diagnostics provides structured source diagnostics for the ARO
// compiler frontend: a closed Diagnostic type, a mutex-guarded Collector,
// a colorized terminal printer, and an LSP bridge for editor integration.
package diagnostics

import (
	"encoding/json"
	"fmt"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
	"github.com/aro-lang/aro/internal/compiler/parser"
)

// Severity is the closed set of diagnostic severities (spec §6).
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Stage names which compiler phase raised the diagnostic.
type Stage string

const (
	StageLexer    Stage = "lexer"
	StageParser   Stage = "parser"
	StageSemantic Stage = "semantic"
)

// Kind is a machine-readable diagnostic kind, taken from one of the three
// closed taxonomies in spec §7 (lexer/parser/semantic).
type Kind string

const (
	// Lexer kinds, mirroring lexer.LexErrorKind.
	KindUnexpectedCharacter  Kind = "unexpected-character"
	KindUnterminatedString   Kind = "unterminated-string"
	KindInvalidEscape        Kind = "invalid-escape"
	KindInvalidNumber        Kind = "invalid-number"
	KindInvalidUnicodeEscape Kind = "invalid-unicode-escape"

	// Parser kinds, mirroring parser.ParseErrorKind.
	KindUnexpectedToken        Kind = "unexpected-token"
	KindUnexpectedEOF          Kind = "unexpected-end-of-file"
	KindInvalidStatement       Kind = "invalid-statement"
	KindMissingFeatureSetName  Kind = "missing-feature-set-name"
	KindMissingBusinessActivity Kind = "missing-business-activity"
	KindInvalidQualifiedNoun   Kind = "invalid-qualified-noun"
	KindEmptyFeatureSet        Kind = "empty-feature-set"

	// Semantic kinds (spec §7, component G).
	KindUndefinedVariable           Kind = "undefined-variable"
	KindDuplicateDefinition         Kind = "duplicate-definition"
	KindUndefinedExternalDependency Kind = "undefined-external-dependency"
	KindCircularDependency          Kind = "circular-dependency"
	KindInvalidPublish              Kind = "invalid-publish"
	KindTypeError                   Kind = "type-error"
	KindDuplicateFeatureSet         Kind = "duplicate-feature-set"
	KindUnreachableCode             Kind = "unreachable-code"
	KindMissingTerminator            Kind = "missing-terminator"
	KindUnusedVariable              Kind = "unused-variable"
	KindOrphanEvent                 Kind = "orphan-event"
	KindImmutabilityViolation       Kind = "immutability-violation"
)

// Diagnostic is a single structured compiler diagnostic, closed over the
// severity/stage/kind triad above. It serializes to JSON for tooling and to
// a colorized string for terminal output.
type Diagnostic struct {
	Severity   Severity           `json:"severity"`
	Stage      Stage              `json:"stage"`
	Kind       Kind               `json:"kind"`
	Message    string             `json:"message"`
	Location   ast.SourceLocation `json:"location"`
	Hints      []string           `json:"hints,omitempty"`
	Expected   string             `json:"expected,omitempty"`
	Got        string             `json:"got,omitempty"`
	RelatedAt  *ast.SourceLocation `json:"related_at,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	return d.Pretty()
}

// Pretty renders the diagnostic in the format mandated by spec §6:
// "{severity} [{loc}]: {message}\n  hint: {hint}*".
func (d Diagnostic) Pretty() string {
	s := fmt.Sprintf("%s [%d:%d]: %s", d.Severity, d.Location.Line, d.Location.Column, d.Message)
	for _, h := range d.Hints {
		s += fmt.Sprintf("\n  hint: %s", h)
	}
	return s
}

// WithHint appends a remediation hint and returns the diagnostic for chaining.
func (d Diagnostic) WithHint(hint string) Diagnostic {
	d.Hints = append(d.Hints, hint)
	return d
}

// ToJSON marshals the diagnostic for machine consumption.
func (d Diagnostic) ToJSON() (string, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// FromLexError adapts a lexer.LexError into a Diagnostic.
func FromLexError(e lexer.LexError) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Stage:    StageLexer,
		Kind:     Kind(e.Kind),
		Message:  e.Message,
		Location: ast.SourceLocation{Line: e.Line, Column: e.Column, Offset: e.Offset},
	}
}

// FromParseError adapts a parser.ParseError into a Diagnostic.
func FromParseError(e parser.ParseError) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Stage:    StageParser,
		Kind:     Kind(e.Kind),
		Message:  e.Message,
		Location: e.Location,
		Expected: e.Expected,
		Got:      e.Got,
	}
}

// NewSemantic builds a semantic-stage diagnostic (component G).
func NewSemantic(severity Severity, kind Kind, message string, loc ast.SourceLocation) Diagnostic {
	return Diagnostic{Severity: severity, Stage: StageSemantic, Kind: kind, Message: message, Location: loc}
}
