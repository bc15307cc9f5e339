package parser

import (
	"strings"

	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
)

// roleByVerb classifies an AROStatement's verb per spec §4.G. Verbs absent
// from this table default to RoleOwn.
var roleByVerb = buildRoleTable()

func buildRoleTable() map[string]ast.ActionRole {
	t := map[string]ast.ActionRole{}
	for _, v := range []string{"extract", "parse", "retrieve", "fetch", "read", "receive", "get", "load"} {
		t[v] = ast.RoleRequest
	}
	for _, v := range []string{
		"return", "throw", "send", "emit", "respond", "output", "write", "store",
		"save", "persist", "log", "print", "debug", "notify", "alert", "signal", "broadcast",
	} {
		t[v] = ast.RoleResponse
	}
	for _, v := range []string{"publish", "export", "expose", "share"} {
		t[v] = ast.RoleExport
	}
	for _, v := range []string{
		"start", "stop", "listen", "await", "connect", "close", "disconnect", "terminate",
		"wait", "keepalive", "block", "make", "touch", "mkdir", "createdirectory", "copy", "move", "rename",
	} {
		t[v] = ast.RoleServer
	}
	return t
}

// sinkVerbs admit the abbreviated `Verb expression Preposition <Object>.`
// statement form in place of the standard result-slot form.
var sinkVerbs = map[string]bool{
	"log": true, "print": true, "output": true, "debug": true,
	"write": true, "send": true, "dispatch": true,
}

func classifyRole(verb string) ast.ActionRole {
	if role, ok := roleByVerb[strings.ToLower(verb)]; ok {
		return role
	}
	return ast.RoleOwn
}

// expressionTriggerPrepositions are the prepositions that can introduce an
// expression-mode object slot instead of a qualified noun (spec §4.E).
var expressionTriggerPrepositions = map[lexer.TokenType]bool{
	lexer.TOKEN_TO: true, lexer.TOKEN_FROM: true, lexer.TOKEN_WITH: true, lexer.TOKEN_FOR: true,
}

var prepositionTokens = map[lexer.TokenType]string{
	lexer.TOKEN_FROM: "from", lexer.TOKEN_FOR: "for", lexer.TOKEN_AT_PREP: "at",
	lexer.TOKEN_AGAINST: "against", lexer.TOKEN_TO: "to", lexer.TOKEN_INTO: "into",
	lexer.TOKEN_VIA: "via", lexer.TOKEN_WITH: "with", lexer.TOKEN_ON: "on", lexer.TOKEN_BY: "by",
}

// Parser transforms a token stream into an ARO Program AST.
type Parser struct {
	tokens  []lexer.Token
	current int
	errors  []ParseError
}

// New creates a new Parser for the given token stream.
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the token stream into a Program, with diagnostics
// accumulated in the side channel returned alongside it.
func (p *Parser) Parse() (*ast.Program, []ParseError) {
	start := ast.TokenLocation(p.peek())
	program := &ast.Program{}

	for p.check(lexer.TOKEN_IMPORT) {
		if imp := p.parseImport(); imp != nil {
			program.Imports = append(program.Imports, imp)
		}
	}

	for !p.isAtEnd() {
		fs := p.parseFeatureSet()
		if fs != nil {
			program.FeatureSets = append(program.FeatureSets, fs)
		} else {
			p.synchronizeToFeatureSet()
		}
	}

	end := start
	if n := len(program.FeatureSets); n > 0 {
		end = program.FeatureSets[n-1].Span().End
	}
	program.Sp = ast.Span{Start: start, End: end}
	return program, p.errors
}

// parseImport parses `import <path>` where path is a run of
// `. / - identifier` tokens up to the first non-path token.
func (p *Parser) parseImport() *ast.ImportDeclaration {
	importTok := p.advance() // 'import'
	var sb strings.Builder
	for p.check(lexer.TOKEN_DOT) || p.check(lexer.TOKEN_SLASH) || p.check(lexer.TOKEN_HYPHEN) || p.check(lexer.TOKEN_IDENTIFIER) {
		sb.WriteString(p.advance().Lexeme)
	}
	return &ast.ImportDeclaration{Path: sb.String(), Sp: ast.TokenSpan(importTok)}
}

// parseFeatureSet parses `( name : activity ) [when expr] { statement* }`.
func (p *Parser) parseFeatureSet() *ast.FeatureSet {
	open := p.consume(lexer.TOKEN_LPAREN, "'(' to start a feature set")
	if open.Type == lexer.TOKEN_ERROR {
		return nil
	}

	nameTok := p.consumeNounName("feature set name")
	if nameTok.Type == lexer.TOKEN_ERROR {
		p.error(newParseError(ErrMissingFeatureSetName, "missing feature set name", p.peek()))
		return nil
	}

	if !p.match(lexer.TOKEN_COLON) {
		p.error(newUnexpectedTokenError("':'", p.peek()))
		return nil
	}

	activityTok := p.consumeNounName("business activity")
	if activityTok.Type == lexer.TOKEN_ERROR {
		p.error(newParseError(ErrMissingBusinessActivity, "missing business activity", p.peek()))
		return nil
	}
	activity := activityTok.Lexeme
	for p.check(lexer.TOKEN_IDENTIFIER) {
		activity += " " + p.advance().Lexeme
	}

	if !p.match(lexer.TOKEN_RPAREN) {
		p.error(newUnexpectedTokenError("')'", p.peek()))
		return nil
	}

	var guard ast.ExprNode
	if p.match(lexer.TOKEN_WHEN) {
		guard = p.parseExpression()
	}

	if !p.match(lexer.TOKEN_LBRACE) {
		p.error(newUnexpectedTokenError("'{'", p.peek()))
		return nil
	}

	fs := &ast.FeatureSet{Name: nameTok.Lexeme, Activity: activity, Guard: guard, Sp: ast.TokenSpan(open)}
	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		if stmt := p.parseStatement(); stmt != nil {
			fs.Statements = append(fs.Statements, stmt)
		} else {
			p.synchronizeToStatement()
		}
	}

	closeTok := p.consume(lexer.TOKEN_RBRACE, "'}' to close feature set")
	fs.Sp.End = ast.TokenLocation(closeTok)

	if len(fs.Statements) == 0 {
		p.error(newParseError(ErrEmptyFeatureSet, "feature set '"+fs.Name+"' has no statements", closeTok))
	}

	return fs
}

// parseStatement dispatches on the first significant token of a statement
// (spec §4.E "Statement dispatch").
func (p *Parser) parseStatement() ast.StmtNode {
	switch {
	case p.check(lexer.TOKEN_MATCH):
		return p.parseMatchStatement()
	case p.check(lexer.TOKEN_FOR) || p.check(lexer.TOKEN_PARALLEL):
		return p.parseForEachLoop()
	case p.check(lexer.TOKEN_PUBLISH):
		return p.parsePublishStatement()
	case p.check(lexer.TOKEN_REQUIRE):
		return p.parseRequireStatement()
	case p.check(lexer.TOKEN_LANGLE):
		return p.parseAROStatement()
	case p.check(lexer.TOKEN_IDENTIFIER) && sinkVerbs[strings.ToLower(p.peek().Lexeme)]:
		return p.parseSinkStatement()
	default:
		p.error(newParseError(ErrInvalidStatement, "expected a statement", p.peek()))
		return nil
	}
}

// parseAROStatement parses the core sentence form described in spec §4.E:
// `<Verb> [article] <Result [: annotation]> Preposition {expr | [article]
// <Object>} [with ...] [to ...] [where ...] [by ...] [when ...].`
func (p *Parser) parseAROStatement() ast.StmtNode {
	verbTok := p.parseBracketedVerb()
	if verbTok.Type == lexer.TOKEN_ERROR {
		return nil
	}
	action := ast.Action{Verb: verbTok.Lexeme, Role: classifyRole(verbTok.Lexeme), Sp: ast.TokenSpan(verbTok)}
	stmt := &ast.AROStatement{Action: action, Sp: ast.TokenSpan(verbTok)}

	result := p.parseQualifiedNoun()
	if result == nil {
		p.error(newParseError(ErrInvalidQualifiedNoun, "expected a result noun", p.peek()))
		return nil
	}
	stmt.Result = result

	if !p.checkPreposition() {
		p.error(newUnexpectedTokenError("a preposition", p.peek()))
		return nil
	}
	stmt.Object = p.parseObjectClause()

	p.parseTrailingModifiers(stmt)

	dot := p.consume(lexer.TOKEN_DOT, "'.' to terminate the statement")
	stmt.Sp.End = ast.TokenLocation(dot)
	return stmt
}

// parseBracketedVerb parses `<Verb>`, the bracketed action token that opens
// the standard AROStatement form.
func (p *Parser) parseBracketedVerb() lexer.Token {
	p.consume(lexer.TOKEN_LANGLE, "'<' to start an action")
	verbTok := p.consumeNounName("an action verb")
	p.consume(lexer.TOKEN_RANGLE, "'>' to close an action")
	return verbTok
}

// parseSinkStatement parses `verb expression Preposition <Object>.`, the
// abbreviated form available to bare (unbracketed) sink verbs.
func (p *Parser) parseSinkStatement() ast.StmtNode {
	verbTok := p.advance()
	action := ast.Action{Verb: verbTok.Lexeme, Role: classifyRole(verbTok.Lexeme), Sp: ast.TokenSpan(verbTok)}
	stmt := &ast.AROStatement{Action: action, Sp: ast.TokenSpan(verbTok)}

	value := p.parseExpression()
	stmt.Source = &ast.ValueSource{Kind: ast.ValueSourceSinkExpr, Expr: value}
	stmt.Result = &ast.QualifiedNoun{Base: "_expression_", Sp: stmt.Sp}

	if !p.checkPreposition() {
		p.error(newUnexpectedTokenError("a preposition", p.peek()))
		return nil
	}
	stmt.Object = p.parseObjectClause()
	p.parseTrailingModifiers(stmt)

	dot := p.consume(lexer.TOKEN_DOT, "'.' to terminate the statement")
	stmt.Sp.End = ast.TokenLocation(dot)
	return stmt
}

func (p *Parser) checkPreposition() bool {
	_, ok := prepositionTokens[p.peek().Type]
	return ok
}

// parseObjectClause parses `Preposition {expression | [article] <Object>}`.
func (p *Parser) parseObjectClause() *ast.ObjectClause {
	prepTok := p.advance()
	clause := &ast.ObjectClause{Preposition: prepositionTokens[prepTok.Type], Sp: ast.TokenSpan(prepTok)}

	if expressionTriggerPrepositions[prepTok.Type] && !p.isArticleOrNounStart() {
		clause.IsExpression = true
		clause.Expr = p.parseExpression()
		clause.Noun = &ast.QualifiedNoun{Base: "_expression_", Sp: clause.Sp}
		return clause
	}

	p.consumeOptionalArticle()
	clause.Noun = p.parseQualifiedNoun()
	return clause
}

func (p *Parser) isArticleOrNounStart() bool {
	return p.check(lexer.TOKEN_A) || p.check(lexer.TOKEN_AN) || p.check(lexer.TOKEN_THE) || p.check(lexer.TOKEN_LANGLE)
}

func (p *Parser) consumeOptionalArticle() {
	if p.check(lexer.TOKEN_A) || p.check(lexer.TOKEN_AN) || p.check(lexer.TOKEN_THE) {
		p.advance()
	}
}

// parseTrailingModifiers parses the optional with/to/where/by/when suffix
// chain shared by both the standard and sink statement forms.
func (p *Parser) parseTrailingModifiers(stmt *ast.AROStatement) {
	if p.match(lexer.TOKEN_WITH) {
		p.parseWithModifier(stmt)
	}
	if p.match(lexer.TOKEN_TO) {
		stmt.To = p.parseExpression()
	}
	if p.match(lexer.TOKEN_WHERE) {
		stmt.Where = p.parseWhereClause()
	}
	if p.match(lexer.TOKEN_BY) {
		regexTok := p.consume(lexer.TOKEN_REGEX_LITERAL, "a regex literal after 'by'")
		if regexTok.Type != lexer.TOKEN_ERROR {
			stmt.ByRegex, _ = regexTok.Literal.(string)
		}
	}
	if p.match(lexer.TOKEN_WHEN) {
		stmt.Guard = p.parseExpression()
	}
}

// parseWithModifier disambiguates `with fn(field?)` (aggregation) from
// `with <expr>` (set-operation mode, spec Open Question #2).
func (p *Parser) parseWithModifier(stmt *ast.AROStatement) {
	if p.check(lexer.TOKEN_IDENTIFIER) && isAggregationFunction(p.peek().Lexeme) && p.checkAhead(lexer.TOKEN_LPAREN, 1) {
		stmt.Aggregation = strings.ToLower(p.advance().Lexeme)
		p.advance() // '('
		if !p.check(lexer.TOKEN_RPAREN) {
			stmt.With = p.parseExpression()
		}
		p.consume(lexer.TOKEN_RPAREN, "')' to close aggregation arguments")
		return
	}
	stmt.With = p.parseExpression()
}

func isAggregationFunction(name string) bool {
	switch strings.ToLower(name) {
	case "sum", "count", "avg", "min", "max":
		return true
	default:
		return false
	}
}

// parseWhereClause parses `<field> OP value`.
func (p *Parser) parseWhereClause() *ast.WhereClause {
	fieldTok := p.consume(lexer.TOKEN_IDENTIFIER, "a field name after 'where'")
	clause := &ast.WhereClause{Field: fieldTok.Lexeme, Sp: ast.TokenSpan(fieldTok)}
	clause.Operator = p.parseWhereOperator()
	clause.Value = p.parseExpression()
	return clause
}

func (p *Parser) parseWhereOperator() string {
	switch {
	case p.match(lexer.TOKEN_IS):
		if p.match(lexer.TOKEN_NOT) {
			return "is not"
		}
		return "is"
	case p.match(lexer.TOKEN_NOT):
		if p.check(lexer.TOKEN_IN) {
			p.advance()
			return "not in"
		}
		return "not"
	case p.match(lexer.TOKEN_IN):
		return "in"
	case p.match(lexer.TOKEN_CONTAINS):
		return "contains"
	case p.match(lexer.TOKEN_MATCHES):
		return "matches"
	case p.match(lexer.TOKEN_EQUALS):
		return "="
	case p.match(lexer.TOKEN_EQ):
		return "=="
	case p.match(lexer.TOKEN_NEQ):
		return "!="
	case p.match(lexer.TOKEN_LANGLE):
		return "<"
	case p.match(lexer.TOKEN_RANGLE):
		return ">"
	case p.match(lexer.TOKEN_LTE):
		return "<="
	case p.match(lexer.TOKEN_GTE):
		return ">="
	default:
		p.error(newUnexpectedTokenError("a where-clause operator", p.peek()))
		return ""
	}
}

// parseQualifiedNoun parses `[article] <base [: annotation]>`.
func (p *Parser) parseQualifiedNoun() *ast.QualifiedNoun {
	p.consumeOptionalArticle()

	open := p.consume(lexer.TOKEN_LANGLE, "'<' to start a qualified noun")
	if open.Type == lexer.TOKEN_ERROR {
		return nil
	}

	baseTok := p.consumeNounName("a noun base name")
	noun := &ast.QualifiedNoun{Base: baseTok.Lexeme, Sp: ast.TokenSpan(open)}

	if p.match(lexer.TOKEN_COLON) {
		noun.Annotation = p.parseTypeAnnotation()
	}

	closeTok := p.consume(lexer.TOKEN_RANGLE, "'>' to close a qualified noun")
	noun.Sp.End = ast.TokenLocation(closeTok)
	return noun
}

// parseTypeAnnotation parses the suffix after `base :` inside a qualified
// noun (spec §3 "Qualified nouns").
func (p *Parser) parseTypeAnnotation() *ast.TypeAnnotation {
	start := ast.TokenLocation(p.peek())

	switch {
	case p.check(lexer.TOKEN_STRING_LITERAL):
		tok := p.advance()
		return &ast.TypeAnnotation{Kind: ast.AnnotationLiteral, Literal: &ast.LiteralExpr{Value: tok.Literal, Sp: ast.TokenSpan(tok)}, Sp: ast.TokenSpan(tok)}
	case p.check(lexer.TOKEN_HYPHEN) && p.checkAhead(lexer.TOKEN_INT_LITERAL, 1):
		p.advance()
		tok := p.advance()
		return &ast.TypeAnnotation{Kind: ast.AnnotationOffset, Name: "-" + tok.Lexeme, Sp: ast.TokenSpan(tok)}
	case p.check(lexer.TOKEN_INT_LITERAL) && p.identLexemeIsOffsetSuffix(1):
		numTok := p.advance()
		unit := p.advance()
		return &ast.TypeAnnotation{Kind: ast.AnnotationOffset, Name: numTok.Lexeme + unit.Lexeme, Sp: ast.TokenSpan(numTok)}
	case p.check(lexer.TOKEN_INT_LITERAL):
		return p.parseIndexOrRangeOrPickAnnotation(start)
	case p.check(lexer.TOKEN_IDENTIFIER) && (p.peek().Lexeme == "List" || p.peek().Lexeme == "list"):
		return p.parseListAnnotation(start)
	case p.check(lexer.TOKEN_IDENTIFIER) && (p.peek().Lexeme == "Map" || p.peek().Lexeme == "map"):
		return p.parseMapAnnotation(start)
	case p.check(lexer.TOKEN_IDENTIFIER):
		tok := p.advance()
		if isPrimitiveTypeName(tok.Lexeme) {
			return &ast.TypeAnnotation{Kind: ast.AnnotationPrimitive, Name: tok.Lexeme, Sp: ast.TokenSpan(tok)}
		}
		return &ast.TypeAnnotation{Kind: ast.AnnotationSchemaRef, Name: tok.Lexeme, Sp: ast.TokenSpan(tok)}
	default:
		p.error(newUnexpectedTokenError("a type annotation", p.peek()))
		return nil
	}
}

func (p *Parser) identLexemeIsOffsetSuffix(ahead int) bool {
	tok := p.peekAhead(ahead)
	if tok.Type != lexer.TOKEN_IDENTIFIER {
		return false
	}
	switch strings.ToLower(tok.Lexeme) {
	case "d", "h", "m", "s", "w", "days", "hours", "minutes", "seconds", "weeks":
		return true
	default:
		return false
	}
}

func isPrimitiveTypeName(name string) bool {
	switch strings.ToLower(name) {
	case "string", "int", "integer", "float", "boolean", "bool":
		return true
	default:
		return false
	}
}

// parseIndexOrRangeOrPickAnnotation disambiguates `5`, `0-19`, and
// `0,3,7` numeric qualified-noun annotations.
func (p *Parser) parseIndexOrRangeOrPickAnnotation(start ast.SourceLocation) *ast.TypeAnnotation {
	first := p.advance()
	firstVal := int(first.Literal.(int64))

	if p.check(lexer.TOKEN_HYPHEN) && p.checkAhead(lexer.TOKEN_INT_LITERAL, 1) {
		p.advance()
		endTok := p.advance()
		return &ast.TypeAnnotation{Kind: ast.AnnotationRange, RangeStart: firstVal, RangeEnd: int(endTok.Literal.(int64)), Sp: ast.Span{Start: start}}
	}

	if p.check(lexer.TOKEN_COMMA) {
		picks := []int{firstVal}
		for p.match(lexer.TOKEN_COMMA) {
			tok := p.consume(lexer.TOKEN_INT_LITERAL, "an integer in the pick list")
			if tok.Type == lexer.TOKEN_ERROR {
				break
			}
			picks = append(picks, int(tok.Literal.(int64)))
		}
		return &ast.TypeAnnotation{Kind: ast.AnnotationPick, PickIndexes: picks, Sp: ast.Span{Start: start}}
	}

	return &ast.TypeAnnotation{Kind: ast.AnnotationIndex, IndexValue: firstVal, Sp: ast.Span{Start: start}}
}

func (p *Parser) parseListAnnotation(start ast.SourceLocation) *ast.TypeAnnotation {
	p.advance() // List
	p.consume(lexer.TOKEN_LANGLE, "'<' after 'List'")
	elem := p.parseTypeAnnotation()
	p.consume(lexer.TOKEN_RANGLE, "'>' to close 'List<...>'")
	return &ast.TypeAnnotation{Kind: ast.AnnotationList, ElementType: elem, Sp: ast.Span{Start: start}}
}

func (p *Parser) parseMapAnnotation(start ast.SourceLocation) *ast.TypeAnnotation {
	p.advance() // Map
	p.consume(lexer.TOKEN_LANGLE, "'<' after 'Map'")
	key := p.parseTypeAnnotation()
	p.consume(lexer.TOKEN_COMMA, "',' between Map key and value types")
	value := p.parseTypeAnnotation()
	p.consume(lexer.TOKEN_RANGLE, "'>' to close 'Map<...>'")
	return &ast.TypeAnnotation{Kind: ast.AnnotationMap, KeyType: key, ValueType: value, Sp: ast.Span{Start: start}}
}

// parsePublishStatement parses `Publish [as <external>] <internal>.`.
func (p *Parser) parsePublishStatement() ast.StmtNode {
	kwTok := p.advance() // 'Publish'
	stmt := &ast.PublishStatement{Sp: ast.TokenSpan(kwTok)}

	if p.match(lexer.TOKEN_AS) {
		ext := p.parseQualifiedNoun()
		if ext != nil {
			stmt.ExternalName = ext.Base
		}
	}

	internal := p.parseQualifiedNoun()
	if internal == nil {
		return nil
	}
	stmt.InternalName = internal.Base
	if stmt.ExternalName == "" {
		stmt.ExternalName = internal.Base
	}

	dot := p.consume(lexer.TOKEN_DOT, "'.' to terminate 'Publish'")
	stmt.Sp.End = ast.TokenLocation(dot)
	return stmt
}

// parseRequireStatement parses `Require <name> [from <source>].`.
func (p *Parser) parseRequireStatement() ast.StmtNode {
	kwTok := p.advance() // 'Require'
	stmt := &ast.RequireStatement{Sp: ast.TokenSpan(kwTok)}

	name := p.parseQualifiedNoun()
	if name == nil {
		return nil
	}
	stmt.Name = name.Base

	if p.match(lexer.TOKEN_FROM) {
		p.consumeOptionalArticle()
		srcTok := p.consumeNounName("a require source")
		stmt.Source = srcTok.Lexeme
	}

	dot := p.consume(lexer.TOKEN_DOT, "'.' to terminate 'Require'")
	stmt.Sp.End = ast.TokenLocation(dot)
	return stmt
}

// parseMatchStatement parses `match <subject> { case* [otherwise] }`.
func (p *Parser) parseMatchStatement() ast.StmtNode {
	matchTok := p.advance() // 'match'
	subject := p.parseExpression()

	if !p.match(lexer.TOKEN_LBRACE) {
		p.error(newUnexpectedTokenError("'{'", p.peek()))
		return nil
	}

	stmt := &ast.MatchStatement{Subject: subject, Sp: ast.TokenSpan(matchTok)}
	sawOtherwise := false

	for p.check(lexer.TOKEN_CASE) || p.check(lexer.TOKEN_OTHERWISE) {
		if p.check(lexer.TOKEN_OTHERWISE) {
			p.advance()
			if sawOtherwise {
				p.error(newParseError(ErrInvalidStatement, "'otherwise' may appear at most once", p.peek()))
			}
			sawOtherwise = true
			if !p.match(lexer.TOKEN_LBRACE) {
				p.error(newUnexpectedTokenError("'{'", p.peek()))
				break
			}
			stmt.Otherwise = p.parseStatementsUntilRBrace()
			p.consume(lexer.TOKEN_RBRACE, "'}' to close 'otherwise' body")
			continue
		}

		if sawOtherwise {
			p.error(newParseError(ErrInvalidStatement, "'case' cannot follow 'otherwise'", p.peek()))
			break
		}

		caseTok := p.advance() // 'case'
		pattern := p.parsePattern()
		var guard ast.ExprNode
		if p.match(lexer.TOKEN_WHERE) {
			guard = p.parseExpression()
		}
		if !p.match(lexer.TOKEN_LBRACE) {
			p.error(newUnexpectedTokenError("'{'", p.peek()))
			break
		}
		body := p.parseStatementsUntilRBrace()
		p.consume(lexer.TOKEN_RBRACE, "'}' to close 'case' body")
		stmt.Cases = append(stmt.Cases, &ast.MatchCase{Pattern: pattern, Guard: guard, Body: body, Sp: ast.TokenSpan(caseTok)})
	}

	closeTok := p.consume(lexer.TOKEN_RBRACE, "'}' to close 'match' body")
	stmt.Sp.End = ast.TokenLocation(closeTok)
	return stmt
}

// parseForEachLoop parses `[parallel] for each <item> [at <index>] in
// <collection> [with <concurrency: N>] [where expr] { stmt* }`.
func (p *Parser) parseForEachLoop() ast.StmtNode {
	startTok := p.peek()
	loop := &ast.ForEachLoop{Sp: ast.TokenSpan(startTok)}

	if p.match(lexer.TOKEN_PARALLEL) {
		loop.Parallel = true
	}
	p.consume(lexer.TOKEN_FOR, "'for'")
	p.consume(lexer.TOKEN_EACH, "'each' after 'for'")

	itemTok := p.consumeNounName("a loop item name")
	loop.Item = itemTok.Lexeme

	if p.match(lexer.TOKEN_AT_PREP) {
		idxTok := p.consumeNounName("a loop index name")
		loop.Index = idxTok.Lexeme
	}

	p.consume(lexer.TOKEN_IN, "'in' after the loop item")
	loop.Collection = p.parseExpression()

	if p.match(lexer.TOKEN_WITH) {
		p.consumeOptionalArticle()
		p.consume(lexer.TOKEN_LANGLE, "'<' for 'concurrency: N'")
		p.consume(lexer.TOKEN_CONCURRENCY, "'concurrency'")
		p.consume(lexer.TOKEN_COLON, "':' after 'concurrency'")
		// Parsed below the comparison level so the closing '>' is not
		// taken as a greater-than operator.
		loop.Concurrency = p.parseAdditive()
		p.consume(lexer.TOKEN_RANGLE, "'>' to close the concurrency annotation")
	}

	if p.match(lexer.TOKEN_WHERE) {
		loop.Where = p.parseExpression()
	}

	if !p.match(lexer.TOKEN_LBRACE) {
		p.error(newUnexpectedTokenError("'{'", p.peek()))
		return nil
	}
	loop.Body = p.parseStatementsUntilRBrace()
	closeTok := p.consume(lexer.TOKEN_RBRACE, "'}' to close the loop body")
	loop.Sp.End = ast.TokenLocation(closeTok)
	return loop
}

func (p *Parser) parseStatementsUntilRBrace() []ast.StmtNode {
	var stmts []ast.StmtNode
	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		} else {
			p.synchronizeToStatement()
		}
	}
	return stmts
}

// consumeNounName accepts only an identifier token; a reserved word
// (article, preposition or keyword) in a noun slot is reported as an
// unexpected token.
func (p *Parser) consumeNounName(what string) lexer.Token {
	if p.check(lexer.TOKEN_IDENTIFIER) {
		return p.advance()
	}
	p.error(newUnexpectedTokenError(what, p.peek()))
	return lexer.Token{Type: lexer.TOKEN_ERROR}
}

// --- token stream navigation ---

func (p *Parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current]
}

func (p *Parser) peekAhead(n int) lexer.Token {
	idx := p.current + n
	if idx >= len(p.tokens) {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) checkAhead(tokenType lexer.TokenType, n int) bool {
	return p.peekAhead(n).Type == tokenType
}

func (p *Parser) previous() lexer.Token {
	if p.current == 0 {
		return lexer.Token{Type: lexer.TOKEN_EOF}
	}
	return p.tokens[p.current-1]
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) check(tokenType lexer.TokenType) bool {
	return p.peek().Type == tokenType
}

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(tokenType lexer.TokenType, what string) lexer.Token {
	if p.check(tokenType) {
		return p.advance()
	}
	p.error(newUnexpectedTokenError(what, p.peek()))
	return lexer.Token{Type: lexer.TOKEN_ERROR}
}

func (p *Parser) isAtEnd() bool {
	return p.current >= len(p.tokens) || p.tokens[p.current].Type == lexer.TOKEN_EOF
}

func (p *Parser) error(err ParseError) {
	p.errors = append(p.errors, err)
}

// synchronizeToStatement advances past the next '.' or stops at '}' or '<'
// (spec §4.E "Error recovery").
func (p *Parser) synchronizeToStatement() {
	for !p.isAtEnd() {
		if p.check(lexer.TOKEN_RBRACE) || p.check(lexer.TOKEN_LANGLE) {
			return
		}
		if p.previous().Type == lexer.TOKEN_DOT {
			return
		}
		p.advance()
	}
}

// synchronizeToFeatureSet advances until the next '(' (feature-set
// boundary recovery).
func (p *Parser) synchronizeToFeatureSet() {
	p.advance()
	for !p.isAtEnd() {
		if p.check(lexer.TOKEN_LPAREN) {
			return
		}
		p.advance()
	}
}
