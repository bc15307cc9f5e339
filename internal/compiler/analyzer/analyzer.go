// Package analyzer implements the ARO semantic analyzer (spec §4.G): four
// passes over a parsed Program that compute per-feature-set data flow,
// verify global dependencies, and detect circular/orphan event chains.
package analyzer

import (
	"strings"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/diagnostics"
	"github.com/aro-lang/aro/internal/compiler/symbols"
)

// exportDataVerbs additionally read their AROStatement's Result (spec §4.G
// response row): a response-role statement's Result is otherwise just a
// side-effect label, not a dependency.
var exportDataVerbs = map[string]bool{
	"store": true, "write": true, "emit": true, "save": true, "persist": true, "send": true,
}

// FeatureSetAnalysis is pass 1's output for a single feature set.
type FeatureSetAnalysis struct {
	Name          string
	Activity      string
	Scope         *symbols.Table
	Inputs        map[string]bool // every name referenced that isn't a known built-in
	Outputs       map[string]bool // symbols bound within this feature set
	SideEffects   []string        // "verb:result" records, in statement order
	EmittedEvents []string        // Result.Base of every Emit-verb statement
	UsedNames     map[string]bool // names read anywhere in the feature set (for unused-variable check)
	ExemptUnused  map[string]bool // symbols exempt from the unused-variable warning
}

// AnalyzedProgram is the Analyze entry point's return value.
type AnalyzedProgram struct {
	Program     *ast.Program
	FeatureSets []*FeatureSetAnalysis
	// Global is the published-symbol registry: written once during
	// analysis, read-only thereafter (spec §5).
	Global      *symbols.Table
	Diagnostics []diagnostics.Diagnostic
}

// Success reports whether no error-severity diagnostic was produced.
func (a *AnalyzedProgram) Success() bool {
	for _, d := range a.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			return false
		}
	}
	return true
}

// systemEvents are excluded from orphan-event detection (spec §4.G pass 4).
var systemEvents = map[string]bool{"Socket Event": true, "File Event": true}

// isKnownExternal reports whether name is one of the built-in
// always-resolvable external names: request context, runtime objects,
// service targets (suffix "-repository"), and the expression sentinel.
func isKnownExternal(name string) bool {
	switch name {
	case "request", "response", "context", "environment", "framework", "_expression_":
		return true
	}
	return strings.HasSuffix(name, "-repository") || strings.HasSuffix(name, "_repository")
}

// Analyze runs all four passes over prog and returns the analyzed program
// together with every diagnostic collected along the way.
func Analyze(prog *ast.Program) *AnalyzedProgram {
	ap := &AnalyzedProgram{Program: prog}
	globalBuilder := symbols.NewBuilder(nil)

	seenNames := map[string]bool{}
	for _, fs := range prog.FeatureSets {
		if seenNames[fs.Name] {
			ap.Diagnostics = append(ap.Diagnostics, diagnostics.NewSemantic(
				diagnostics.SeverityError, diagnostics.KindDuplicateFeatureSet,
				"duplicate feature set name '"+fs.Name+"'", fs.Sp.Start,
			))
		}
		seenNames[fs.Name] = true

		fsa, diags := analyzeFeatureSet(fs, globalBuilder)
		ap.FeatureSets = append(ap.FeatureSets, fsa)
		ap.Diagnostics = append(ap.Diagnostics, diags...)
	}

	ap.Global = globalBuilder.Build()

	ap.Diagnostics = append(ap.Diagnostics, verifyGlobalDependencies(ap)...)
	ap.Diagnostics = append(ap.Diagnostics, detectCircularEvents(ap)...)
	ap.Diagnostics = append(ap.Diagnostics, detectOrphanEvents(ap)...)

	return ap
}

// walkExprDeps recursively collects every VariableRef name reachable from
// expr into deps (spec §4.G: "Expressions contribute extra input
// dependencies extracted by recursively walking variable references").
func walkExprDeps(expr ast.ExprNode, deps map[string]bool) {
	switch e := expr.(type) {
	case nil:
		return
	case *ast.VariableRef:
		deps[e.Name] = true
	case *ast.BinaryExpr:
		walkExprDeps(e.Left, deps)
		walkExprDeps(e.Right, deps)
	case *ast.UnaryExpr:
		walkExprDeps(e.Operand, deps)
	case *ast.MemberAccessExpr:
		walkExprDeps(e.Object, deps)
	case *ast.SubscriptExpr:
		walkExprDeps(e.Object, deps)
		walkExprDeps(e.Index, deps)
	case *ast.GroupedExpr:
		walkExprDeps(e.Inner, deps)
	case *ast.ExistenceExpr:
		walkExprDeps(e.Operand, deps)
	case *ast.TypeCheckExpr:
		walkExprDeps(e.Operand, deps)
	case *ast.ArrayLiteralExpr:
		for _, el := range e.Elements {
			walkExprDeps(el, deps)
		}
	case *ast.MapLiteralExpr:
		for _, p := range e.Pairs {
			walkExprDeps(p.Key, deps)
			walkExprDeps(p.Value, deps)
		}
	case *ast.InterpolatedStringExpr:
		for _, sub := range e.Exprs {
			walkExprDeps(sub, deps)
		}
	case *ast.LiteralExpr:
		// no dependencies
	}
}
