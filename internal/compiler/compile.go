// Package compiler wires the lexer, parser, and semantic analyzer into
// a single entry point (spec §8's end-to-end compilation scenarios).
package compiler

import (
	"github.com/aro-lang/aro/internal/compiler/analyzer"
	"github.com/aro-lang/aro/internal/compiler/diagnostics"
	"github.com/aro-lang/aro/internal/compiler/lexer"
	"github.com/aro-lang/aro/internal/compiler/parser"
)

// Result is the outcome of compiling one source string through the
// frontend: the fully analyzed program (nil if lexing/parsing failed
// outright) and every diagnostic raised along the way.
type Result struct {
	Analyzed    *analyzer.AnalyzedProgram
	Diagnostics []diagnostics.Diagnostic
}

// Success reports whether compilation produced no error-severity
// diagnostic at any stage.
func (r *Result) Success() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			return false
		}
	}
	return true
}

// Compile runs source through the lexer, parser, and analyzer in turn.
// Lexer errors abort immediately (spec §7: "Lexer errors abort
// lexing — no further tokens"); parser errors are recoverable, so
// parsing always returns whatever program it managed to resynchronize
// through; semantic analysis never aborts and always returns an
// AnalyzedProgram.
func Compile(source string) *Result {
	lx := lexer.New(source)
	tokens, lexErrs := lx.ScanTokens()
	if len(lexErrs) > 0 {
		result := &Result{}
		for _, e := range lexErrs {
			result.Diagnostics = append(result.Diagnostics, diagnostics.FromLexError(e))
		}
		return result
	}

	prog, parseErrs := parser.New(tokens).Parse()
	result := &Result{}
	for _, e := range parseErrs {
		result.Diagnostics = append(result.Diagnostics, diagnostics.FromParseError(e))
	}
	if prog == nil {
		return result
	}

	analyzed := analyzer.Analyze(prog)
	result.Analyzed = analyzed
	result.Diagnostics = append(result.Diagnostics, analyzed.Diagnostics...)
	return result
}
