package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
)

func parseSource(t *testing.T, source string) (*ast.Program, []ParseError) {
	t.Helper()
	tokens, lexErrs := lexer.New(source).ScanTokens()
	require.Empty(t, lexErrs, "unexpected lexer errors")
	return New(tokens).Parse()
}

func TestParse_SingleFeatureSetWithExtractStatement(t *testing.T) {
	source := `(Hello: Greeting) {
  <Extract> the <name: id> from the <request>.
  Publish as <name> <name>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	require.Len(t, program.FeatureSets, 1)

	fs := program.FeatureSets[0]
	assert.Equal(t, "Hello", fs.Name)
	assert.Equal(t, "Greeting", fs.Activity)
	require.Len(t, fs.Statements, 2)

	aro, ok := fs.Statements[0].(*ast.AROStatement)
	require.True(t, ok)
	assert.Equal(t, "Extract", aro.Action.Verb)
	assert.Equal(t, ast.RoleRequest, aro.Action.Role)
	require.NotNil(t, aro.Result)
	assert.Equal(t, "name", aro.Result.Base)
	require.NotNil(t, aro.Result.Annotation)
	assert.Equal(t, ast.AnnotationSchemaRef, aro.Result.Annotation.Kind)
	assert.Equal(t, "id", aro.Result.Annotation.Name)
	require.NotNil(t, aro.Object)
	assert.Equal(t, "from", aro.Object.Preposition)
	assert.Equal(t, "request", aro.Object.Noun.Base)

	pub, ok := fs.Statements[1].(*ast.PublishStatement)
	require.True(t, ok)
	assert.Equal(t, "name", pub.InternalName)
	assert.Equal(t, "name", pub.ExternalName)
}

func TestParse_ImportsPrecedeFeatureSets(t *testing.T) {
	source := `import ./shared/types
(Setup: Bootstrap) {
  <Load> the <config> from the <environment>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	require.Len(t, program.Imports, 1)
	assert.Equal(t, "./shared/types", program.Imports[0].Path)
	require.Len(t, program.FeatureSets, 1)
}

func TestParse_ChainedFeatureSetsShareGlobalRegistry(t *testing.T) {
	source := `(First: Intake) {
  <Extract> the <x: id> from the <request>.
}
(Second: Derive) {
  <Compute> the <y> from the <x>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	require.Len(t, program.FeatureSets, 2)
	assert.Equal(t, "First", program.FeatureSets[0].Name)
	assert.Equal(t, "Second", program.FeatureSets[1].Name)
}

func TestParse_WhereClauseWithComparison(t *testing.T) {
	source := `(Filter: Screening) {
  <Filter> the <rows> from the <dataset> where total > 100.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.NotNil(t, aro.Where)
	assert.Equal(t, "total", aro.Where.Field)
	assert.Equal(t, ">", aro.Where.Operator)
	lit, ok := aro.Where.Value.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, int64(100), lit.Value)
}

func TestParse_AggregationModifier(t *testing.T) {
	source := `(Totals: Reporting) {
  <Reduce> the <total> from the <orders> with sum(amount).
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	assert.Equal(t, "sum", aro.Aggregation)
	ref, ok := aro.With.(*ast.VariableRef)
	require.True(t, ok)
	assert.Equal(t, "amount", ref.Name)
}

func TestParse_ByRegexModifier(t *testing.T) {
	source := `(Validate: Screening) {
  <Screen> the <rows> from the <dataset> by /^[A-Z]+$/.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	assert.Equal(t, "/^[A-Z]+$/", aro.ByRegex)
}

func TestParse_ExpressionTriggerPrepositionWithoutArticle(t *testing.T) {
	source := `(Compute: Derivation) {
  <Compute> the <total> to price + tax.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.NotNil(t, aro.Object)
	assert.Equal(t, "to", aro.Object.Preposition)
	assert.True(t, aro.Object.IsExpression)
	bin, ok := aro.Object.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Operator)
}

func TestParse_SinkVerbAbbreviatedForm(t *testing.T) {
	source := `(Logging: Diagnostics) {
  log "order placed" to the <console>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	assert.Equal(t, "_expression_", aro.Result.Base)
	require.NotNil(t, aro.Source)
	assert.Equal(t, ast.ValueSourceSinkExpr, aro.Source.Kind)
	lit, ok := aro.Source.Expr.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, "order placed", lit.Value)
	assert.Equal(t, "console", aro.Object.Noun.Base)
}

func TestParse_MatchStatementWithOtherwise(t *testing.T) {
	source := `(Classify: Routing) {
  match status {
    case "active" {
      <Extract> the <x: id> from the <request>.
    }
    case "pending" where retries < 3 {
      <Extract> the <y: id> from the <request>.
    }
    otherwise {
      <Extract> the <z: id> from the <request>.
    }
  }
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	m := program.FeatureSets[0].Statements[0].(*ast.MatchStatement)
	require.Len(t, m.Cases, 2)
	require.NotNil(t, m.Otherwise)

	lit, ok := m.Cases[0].Pattern.(*ast.LiteralPattern)
	require.True(t, ok)
	assert.Equal(t, "active", lit.Value)

	require.NotNil(t, m.Cases[1].Guard)
	bin, ok := m.Cases[1].Guard.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "<", bin.Operator)
}

// 'otherwise' must never be followed by another 'case' (testable property 6).
func TestParse_OtherwiseCannotBeFollowedByCase(t *testing.T) {
	source := `(Classify: Routing) {
  match status {
    otherwise {
      <Extract> the <z: id> from the <request>.
    }
    case "late" {
      <Extract> the <w: id> from the <request>.
    }
  }
}`
	_, errs := parseSource(t, source)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrInvalidStatement, errs[0].Kind)
}

func TestParse_ParallelForEachLoopWithConcurrencyAndWhere(t *testing.T) {
	source := `(Process: Batch) {
  parallel for each item at index in items with <concurrency: 8> where item.active {
    <Extract> the <x: id> from the <item>.
  }
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	loop := program.FeatureSets[0].Statements[0].(*ast.ForEachLoop)
	assert.True(t, loop.Parallel)
	assert.Equal(t, "item", loop.Item)
	assert.Equal(t, "index", loop.Index)
	require.NotNil(t, loop.Concurrency)
	lit, ok := loop.Concurrency.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, int64(8), lit.Value)
	require.NotNil(t, loop.Where)
	member, ok := loop.Where.(*ast.MemberAccessExpr)
	require.True(t, ok)
	assert.Equal(t, "active", member.Field)
	require.Len(t, loop.Body, 1)
}

func TestParse_ForEachLoopWithoutIndexOrConcurrency(t *testing.T) {
	source := `(Process: Batch) {
  for each row in rows {
    <Extract> the <x: id> from the <row>.
  }
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	loop := program.FeatureSets[0].Statements[0].(*ast.ForEachLoop)
	assert.False(t, loop.Parallel)
	assert.Equal(t, "row", loop.Item)
	assert.Empty(t, loop.Index)
	assert.Nil(t, loop.Concurrency)
}

func TestParse_RequireStatementWithSource(t *testing.T) {
	source := `(Setup: Bootstrap) {
  Require <apiKey> from environment.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	req := program.FeatureSets[0].Statements[0].(*ast.RequireStatement)
	assert.Equal(t, "apiKey", req.Name)
	assert.Equal(t, "environment", req.Source)
}

func TestParse_GuardExpressionOnFeatureSet(t *testing.T) {
	source := `(Conditional: Gate) when featureEnabled {
  <Extract> the <x: id> from the <request>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	fs := program.FeatureSets[0]
	require.NotNil(t, fs.Guard)
	ref, ok := fs.Guard.(*ast.VariableRef)
	require.True(t, ok)
	assert.Equal(t, "featureEnabled", ref.Name)
}

func TestParse_ListAndMapTypeAnnotations(t *testing.T) {
	source := `(Collections: Derivation) {
  <Compute> the <tags: List<string>> from the <request>.
  <Compute> the <index: Map<string, int>> from the <request>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)

	first := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.Equal(t, ast.AnnotationList, first.Result.Annotation.Kind)
	require.NotNil(t, first.Result.Annotation.ElementType)
	assert.Equal(t, ast.AnnotationPrimitive, first.Result.Annotation.ElementType.Kind)
	assert.Equal(t, "string", first.Result.Annotation.ElementType.Name)

	second := program.FeatureSets[0].Statements[1].(*ast.AROStatement)
	require.Equal(t, ast.AnnotationMap, second.Result.Annotation.Kind)
	assert.Equal(t, "string", second.Result.Annotation.KeyType.Name)
	assert.Equal(t, "int", second.Result.Annotation.ValueType.Name)
}

func TestParse_PickAndRangeAnnotations(t *testing.T) {
	source := `(Slices: Derivation) {
  <Compute> the <first: 0> from the <request>.
  <Compute> the <window: 0-19> from the <request>.
  <Compute> the <cols: 0,3,7> from the <request>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)

	stmts := program.FeatureSets[0].Statements
	assert.Equal(t, ast.AnnotationIndex, stmts[0].(*ast.AROStatement).Result.Annotation.Kind)

	rangeAnn := stmts[1].(*ast.AROStatement).Result.Annotation
	assert.Equal(t, ast.AnnotationRange, rangeAnn.Kind)
	assert.Equal(t, 0, rangeAnn.RangeStart)
	assert.Equal(t, 19, rangeAnn.RangeEnd)

	pickAnn := stmts[2].(*ast.AROStatement).Result.Annotation
	assert.Equal(t, ast.AnnotationPick, pickAnn.Kind)
	assert.Equal(t, []int{0, 3, 7}, pickAnn.PickIndexes)
}

func TestParse_EmptyFeatureSetReportsError(t *testing.T) {
	source := `(Empty: Nothing) {
}`
	_, errs := parseSource(t, source)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyFeatureSet, errs[0].Kind)
}

func TestParse_MissingColonReportsUnexpectedToken(t *testing.T) {
	source := `(Broken Greeting) {
  <Extract> the <x: id> from the <request>.
}`
	_, errs := parseSource(t, source)
	require.NotEmpty(t, errs)
	assert.Equal(t, ErrUnexpectedToken, errs[0].Kind)
}

// A malformed feature set must not prevent later, well-formed feature sets
// from parsing — error recovery resynchronizes at the next '(' (testable
// property 7-equivalent recovery guarantee for the statement grammar).
func TestParse_RecoversAfterMalformedFeatureSet(t *testing.T) {
	source := `(Broken Greeting) {
  <Extract> the <x: id> from the <request>.
}
(Second: Valid) {
  <Extract> the <y: id> from the <request>.
}`
	program, errs := parseSource(t, source)
	require.NotEmpty(t, errs)
	require.Len(t, program.FeatureSets, 1)
	assert.Equal(t, "Second", program.FeatureSets[0].Name)
}

func TestParse_PrecedenceOfArithmeticAndComparison(t *testing.T) {
	source := `(Compute: Derivation) {
  <Compute> the <flag> to x + y * z > w.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.NotNil(t, aro.Object)
	top, ok := aro.Object.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ">", top.Operator)

	left, ok := top.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", left.Operator)

	right, ok := left.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", right.Operator)
}

func TestParse_ExistenceAndTypeCheckPostfix(t *testing.T) {
	source := `(Validate: Screening) {
  <Compute> the <valid> to email exists and email is string.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	require.NotNil(t, aro.Object)
	and, ok := aro.Object.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "and", and.Operator)

	existence, ok := and.Left.(*ast.ExistenceExpr)
	require.True(t, ok)
	_, ok = existence.Operand.(*ast.VariableRef)
	require.True(t, ok)

	typeCheck, ok := and.Right.(*ast.TypeCheckExpr)
	require.True(t, ok)
	assert.Equal(t, "string", typeCheck.TypeName)
	assert.False(t, typeCheck.Negated)
}

func TestParse_InterpolatedStringInsideExpression(t *testing.T) {
	source := `(Logging: Diagnostics) {
  log "total: ${price + 1}!" to the <console>.
}`
	program, errs := parseSource(t, source)
	require.Empty(t, errs)
	aro := program.FeatureSets[0].Statements[0].(*ast.AROStatement)
	interp, ok := aro.Source.Expr.(*ast.InterpolatedStringExpr)
	require.True(t, ok)
	require.Equal(t, []string{"total: ", "!"}, interp.Segments)
	require.Len(t, interp.Exprs, 1)
	bin, ok := interp.Exprs[0].(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Operator)
}
