package analyzer

import (
	"fmt"
	"strings"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/diagnostics"
	"github.com/aro-lang/aro/internal/compiler/symbols"
)

// terminatorVerbs end a feature set's control flow; any statement
// following one in the same block is unreachable (spec §4.G ancillary
// checks).
var terminatorVerbs = map[string]bool{"return": true, "throw": true}

// isLifecycleActivity exempts feature sets whose business activity names a
// lifecycle hook (e.g. "Startup Lifecycle") from the missing-terminator
// check — such feature sets run to completion by falling off the end, they
// don't return a value to a caller.
func isLifecycleActivity(activity string) bool {
	return strings.Contains(strings.ToLower(activity), "lifecycle")
}

func analyzeFeatureSet(fs *ast.FeatureSet, global *symbols.Builder) (*FeatureSetAnalysis, []diagnostics.Diagnostic) {
	fsa := &FeatureSetAnalysis{
		Name:         fs.Name,
		Activity:     fs.Activity,
		Inputs:       map[string]bool{},
		Outputs:      map[string]bool{},
		UsedNames:    map[string]bool{},
		ExemptUnused: map[string]bool{},
	}
	var diags []diagnostics.Diagnostic

	scope := symbols.NewBuilder(nil)
	if fs.Guard != nil {
		deps := map[string]bool{}
		walkExprDeps(fs.Guard, deps)
		for n := range deps {
			fsa.Inputs[n] = true
			fsa.UsedNames[n] = true
		}
	}

	for _, stmt := range fs.Statements {
		diags = append(diags, analyzeStatement(stmt, scope, global, fsa)...)
	}

	fsa.Scope = scope.Build()

	diags = append(diags, checkReachability(fs.Statements)...)
	if !isLifecycleActivity(fs.Activity) && !endsWithTerminator(fs.Statements) {
		diags = append(diags, diagnostics.NewSemantic(
			diagnostics.SeverityWarning, diagnostics.KindMissingTerminator,
			"feature set '"+fs.Name+"' has no Return/Throw terminator", fs.Sp.End,
		))
	}
	diags = append(diags, checkUnusedVariables(fsa)...)

	return fsa, diags
}

func endsWithTerminator(stmts []ast.StmtNode) bool {
	if len(stmts) == 0 {
		return false
	}
	last, ok := stmts[len(stmts)-1].(*ast.AROStatement)
	if !ok {
		return false
	}
	return terminatorVerbs[strings.ToLower(last.Action.Verb)]
}

// checkReachability walks a statement list (and recurses into match/
// forEach bodies) flagging every statement after a terminator as
// unreachable.
func checkReachability(stmts []ast.StmtNode) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	terminated := false
	for _, stmt := range stmts {
		if terminated {
			diags = append(diags, diagnostics.NewSemantic(
				diagnostics.SeverityWarning, diagnostics.KindUnreachableCode,
				"unreachable statement after a Return/Throw terminator", stmt.Span().Start,
			))
		}
		switch s := stmt.(type) {
		case *ast.AROStatement:
			if terminatorVerbs[strings.ToLower(s.Action.Verb)] {
				terminated = true
			}
		case *ast.MatchStatement:
			for _, c := range s.Cases {
				diags = append(diags, checkReachability(c.Body)...)
			}
			diags = append(diags, checkReachability(s.Otherwise)...)
		case *ast.ForEachLoop:
			diags = append(diags, checkReachability(s.Body)...)
		}
	}
	return diags
}

func checkUnusedVariables(fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	for name := range fsa.Outputs {
		if strings.HasPrefix(name, "_") || fsa.ExemptUnused[name] || fsa.UsedNames[name] {
			continue
		}
		sym, ok := fsa.Scope.Lookup(name)
		if ok && (sym.Visibility == symbols.VisibilityPublished || sym.Visibility == symbols.VisibilityAlias || sym.Visibility == symbols.VisibilityExternal) {
			continue
		}
		diags = append(diags, diagnostics.NewSemantic(
			diagnostics.SeverityWarning, diagnostics.KindUnusedVariable,
			"variable '"+name+"' is never used after being bound", ast.SourceLocation{},
		))
	}
	return diags
}

func analyzeStatement(stmt ast.StmtNode, scope *symbols.Builder, global *symbols.Builder, fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	switch s := stmt.(type) {
	case *ast.AROStatement:
		return analyzeAROStatement(s, scope, fsa)
	case *ast.PublishStatement:
		return analyzePublish(s, scope, global, fsa)
	case *ast.RequireStatement:
		return analyzeRequire(s, scope, fsa)
	case *ast.MatchStatement:
		return analyzeMatch(s, scope, global, fsa)
	case *ast.ForEachLoop:
		return analyzeForEach(s, scope, global, fsa)
	default:
		return nil
	}
}

// recordObjectAndModifierDeps collects every variable reference contributed
// by the object clause and the with/to/where/guard modifiers.
func recordObjectAndModifierDeps(s *ast.AROStatement, fsa *FeatureSetAnalysis) {
	if s.Object != nil {
		if s.Object.IsExpression {
			walkExprDeps(s.Object.Expr, fsa.Inputs)
			walkExprDeps(s.Object.Expr, fsa.UsedNames)
		} else if s.Object.Noun != nil && !isKnownExternal(s.Object.Noun.Base) {
			fsa.Inputs[s.Object.Noun.Base] = true
			fsa.UsedNames[s.Object.Noun.Base] = true
		}
	}
	for _, e := range []ast.ExprNode{s.With, s.To, s.Guard} {
		walkExprDeps(e, fsa.Inputs)
		walkExprDeps(e, fsa.UsedNames)
	}
	if s.Where != nil {
		walkExprDeps(s.Where.Value, fsa.Inputs)
		walkExprDeps(s.Where.Value, fsa.UsedNames)
	}
}

func analyzeAROStatement(s *ast.AROStatement, scope *symbols.Builder, fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	verb := strings.ToLower(s.Action.Verb)
	recordObjectAndModifierDeps(s, fsa)

	switch s.Action.Role {
	case ast.RoleRequest, ast.RoleOwn:
		name := s.Result.Base
		if !strings.HasPrefix(name, "_") {
			if _, already := scope.Get(name); already {
				diags = append(diags, diagnostics.NewSemantic(
					diagnostics.SeverityError, diagnostics.KindImmutabilityViolation,
					fmt.Sprintf("'%s' is already defined; rebinding it with <%s> violates immutability", name, s.Action.Verb),
					s.Result.Sp.Start,
				).WithHint(fmt.Sprintf("use a different name, or prefix with '_' if %s is meant to be discarded", name)))
				break
			}
		}
		scope.Define(symbols.Symbol{
			Name: name, Type: symbols.FromAnnotation(s.Result.Annotation),
			Visibility: symbols.VisibilityInternal, Source: symbols.SourceBinding,
			DefinedAt: s.Result.Sp.Start,
		})
		fsa.Outputs[name] = true

	case ast.RoleResponse:
		fsa.SideEffects = append(fsa.SideEffects, verb+":"+s.Result.Base)
		if exportDataVerbs[verb] {
			fsa.Inputs[s.Result.Base] = true
			fsa.UsedNames[s.Result.Base] = true
		} else if _, defined := scope.Get(s.Result.Base); defined {
			fsa.Inputs[s.Result.Base] = true
			fsa.UsedNames[s.Result.Base] = true
		}
		if verb == "emit" {
			fsa.EmittedEvents = append(fsa.EmittedEvents, s.Result.Base)
		}

	case ast.RoleServer:
		name := s.Result.Base
		scope.Define(symbols.Symbol{
			Name: name, Type: symbols.FromAnnotation(s.Result.Annotation),
			Visibility: symbols.VisibilityInternal, Source: symbols.SourceBinding,
			DefinedAt: s.Result.Sp.Start,
		})
		fsa.Outputs[name] = true
		fsa.ExemptUnused[name] = true
	}

	return diags
}

func analyzePublish(s *ast.PublishStatement, scope *symbols.Builder, global *symbols.Builder, fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	sym, ok := scope.Get(s.InternalName)
	if !ok {
		return []diagnostics.Diagnostic{diagnostics.NewSemantic(
			diagnostics.SeverityError, diagnostics.KindInvalidPublish,
			"Publish of undefined internal variable '"+s.InternalName+"'", s.Sp.Start,
		)}
	}
	sym.Visibility = symbols.VisibilityPublished
	scope.Define(sym)
	fsa.UsedNames[s.InternalName] = true

	global.Define(symbols.Symbol{
		Name: s.ExternalName, Type: sym.Type, Visibility: symbols.VisibilityAlias,
		Source: symbols.SourceBinding, DefinedAt: s.Sp.Start,
	})
	return nil
}

func analyzeRequire(s *ast.RequireStatement, scope *symbols.Builder, fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	scope.Define(symbols.Symbol{
		Name: s.Name, Type: symbols.Unknown, Visibility: symbols.VisibilityExternal,
		Source: symbols.SourceExtracted, ExtractedFrom: s.Source, DefinedAt: s.Sp.Start,
	})
	fsa.Outputs[s.Name] = true
	fsa.ExemptUnused[s.Name] = true
	return nil
}

func analyzeMatch(s *ast.MatchStatement, scope *symbols.Builder, global *symbols.Builder, fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	walkExprDeps(s.Subject, fsa.Inputs)
	walkExprDeps(s.Subject, fsa.UsedNames)

	introduced := map[string]bool{}
	for _, c := range s.Cases {
		branch := scope.Clone()
		if c.Guard != nil {
			walkExprDeps(c.Guard, fsa.Inputs)
			walkExprDeps(c.Guard, fsa.UsedNames)
		}
		bindPattern(c.Pattern, branch, fsa)
		before := map[string]bool{}
		for _, n := range branch.NamesSnapshot() {
			before[n] = true
		}
		for _, st := range c.Body {
			diags = append(diags, analyzeStatement(st, branch, global, fsa)...)
		}
		for _, n := range branch.NamesSnapshot() {
			if !before[n] {
				introduced[n] = true
			}
		}
	}
	if s.Otherwise != nil {
		branch := scope.Clone()
		before := map[string]bool{}
		for _, n := range branch.NamesSnapshot() {
			before[n] = true
		}
		for _, st := range s.Otherwise {
			diags = append(diags, analyzeStatement(st, branch, global, fsa)...)
		}
		for _, n := range branch.NamesSnapshot() {
			if !before[n] {
				introduced[n] = true
			}
		}
	}

	// "Potentially defined after match" union: symbols introduced in some
	// (not necessarily all) branches become visible downstream, per spec
	// §9 open question 4 — kept as specified, not rejected.
	for name := range introduced {
		if _, already := scope.Get(name); !already {
			scope.Define(symbols.Symbol{Name: name, Type: symbols.Unknown, Visibility: symbols.VisibilityInternal, Source: symbols.SourceBinding})
			fsa.Outputs[name] = true
		}
	}

	return diags
}

func bindPattern(p ast.PatternNode, scope *symbols.Builder, fsa *FeatureSetAnalysis) {
	switch pat := p.(type) {
	case *ast.VariablePattern:
		scope.Define(symbols.Symbol{Name: pat.Name, Type: symbols.Unknown, Visibility: symbols.VisibilityInternal, Source: symbols.SourceBinding, DefinedAt: pat.Sp.Start})
		fsa.Outputs[pat.Name] = true
	case *ast.WildcardPattern, *ast.LiteralPattern, *ast.RegexPattern:
		// no binding
	}
}

func analyzeForEach(s *ast.ForEachLoop, scope *symbols.Builder, global *symbols.Builder, fsa *FeatureSetAnalysis) []diagnostics.Diagnostic {
	var diags []diagnostics.Diagnostic
	walkExprDeps(s.Collection, fsa.Inputs)
	walkExprDeps(s.Collection, fsa.UsedNames)
	walkExprDeps(s.Concurrency, fsa.Inputs)
	walkExprDeps(s.Where, fsa.Inputs)
	walkExprDeps(s.Where, fsa.UsedNames)

	loopScope := scope.Clone()
	loopScope.Define(symbols.Symbol{Name: s.Item, Type: symbols.Unknown, Visibility: symbols.VisibilityInternal, Source: symbols.SourceLoopVar})
	if s.Index != "" {
		loopScope.Define(symbols.Symbol{Name: s.Index, Type: symbols.Integer, Visibility: symbols.VisibilityInternal, Source: symbols.SourceLoopVar})
	}
	fsa.ExemptUnused[s.Item] = true
	if s.Index != "" {
		fsa.ExemptUnused[s.Index] = true
	}

	for _, st := range s.Body {
		diags = append(diags, analyzeStatement(st, loopScope, global, fsa)...)
	}
	// item/index do not escape the loop (spec §4.G): loopScope is discarded,
	// only the outer scope (and fsa.Outputs bound therein) persists.
	return diags
}
