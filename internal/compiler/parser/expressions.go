package parser

import (
	"github.com/aro-lang/aro/internal/compiler/ast"
	"github.com/aro-lang/aro/internal/compiler/lexer"
)

// Precedence climbing levels, lowest to highest (spec §3):
// or < and < equality < comparison < additive < multiplicative < unary < postfix.

// parseExpression is the entry point: the lowest-precedence level.
func (p *Parser) parseExpression() ast.ExprNode {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.ExprNode {
	left := p.parseAnd()
	for p.check(lexer.TOKEN_OR) {
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Left: left, Operator: "or", Right: right, Sp: ast.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *Parser) parseAnd() ast.ExprNode {
	left := p.parseEquality()
	for p.check(lexer.TOKEN_AND) {
		p.advance()
		right := p.parseEquality()
		left = &ast.BinaryExpr{Left: left, Operator: "and", Right: right, Sp: ast.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *Parser) parseEquality() ast.ExprNode {
	left := p.parseComparison()
	for p.check(lexer.TOKEN_EQ) || p.check(lexer.TOKEN_NEQ) {
		op := "=="
		if p.check(lexer.TOKEN_NEQ) {
			op = "!="
		}
		p.advance()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Sp: ast.Join(left.Span(), right.Span())}
	}
	return left
}

// parseComparison handles <, >, <=, >=. Spec §4.E notes these are only
// read as comparison operators when a left operand is already in hand —
// an upcoming '<' that opens a bracketed qualified noun is never reached
// from here, since qualified nouns only occur inside the statement
// grammar, never nested inside an expression being parsed by this level.
func (p *Parser) parseComparison() ast.ExprNode {
	left := p.parseAdditive()
	for {
		var op string
		switch {
		case p.check(lexer.TOKEN_LTE):
			op = "<="
		case p.check(lexer.TOKEN_GTE):
			op = ">="
		case p.check(lexer.TOKEN_LANGLE):
			op = "<"
		case p.check(lexer.TOKEN_RANGLE):
			op = ">"
		default:
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Sp: ast.Join(left.Span(), right.Span())}
	}
}

func (p *Parser) parseAdditive() ast.ExprNode {
	left := p.parseMultiplicative()
	for p.check(lexer.TOKEN_PLUS) || p.check(lexer.TOKEN_HYPHEN) {
		op := "+"
		if p.check(lexer.TOKEN_HYPHEN) {
			op = "-"
		}
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Sp: ast.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.ExprNode {
	left := p.parseUnary()
	for p.check(lexer.TOKEN_STAR) || p.check(lexer.TOKEN_SLASH) || p.check(lexer.TOKEN_PERCENT) {
		var op string
		switch {
		case p.check(lexer.TOKEN_STAR):
			op = "*"
		case p.check(lexer.TOKEN_SLASH):
			op = "/"
		default:
			op = "%"
		}
		p.advance()
		right := p.parseUnary()
		left = &ast.BinaryExpr{Left: left, Operator: op, Right: right, Sp: ast.Join(left.Span(), right.Span())}
	}
	return left
}

func (p *Parser) parseUnary() ast.ExprNode {
	if p.check(lexer.TOKEN_HYPHEN) || p.check(lexer.TOKEN_NOT) {
		opTok := p.advance()
		op := "-"
		if opTok.Type == lexer.TOKEN_NOT {
			op = "not"
		}
		operand := p.parseUnary()
		return &ast.UnaryExpr{Operator: op, Operand: operand, Sp: ast.Join(ast.TokenSpan(opTok), operand.Span())}
	}
	return p.parsePostfix()
}

// parsePostfix handles member access, subscripting, existence checks and
// type checks, all of which bind tighter than unary operators.
func (p *Parser) parsePostfix() ast.ExprNode {
	expr := p.parsePrimary()

	for {
		switch {
		case p.check(lexer.TOKEN_DOT) && p.nextIsLowercaseIdentifier():
			p.advance()
			fieldTok := p.advance()
			expr = &ast.MemberAccessExpr{Object: expr, Field: fieldTok.Lexeme, Sp: ast.Join(expr.Span(), ast.TokenSpan(fieldTok))}
		case p.check(lexer.TOKEN_LBRACKET):
			p.advance()
			index := p.parseExpression()
			closeTok := p.consume(lexer.TOKEN_RBRACKET, "']' to close a subscript")
			expr = &ast.SubscriptExpr{Object: expr, Index: index, Sp: ast.Join(expr.Span(), ast.TokenSpan(closeTok))}
		case p.check(lexer.TOKEN_EXISTS):
			tok := p.advance()
			expr = &ast.ExistenceExpr{Operand: expr, Sp: ast.Join(expr.Span(), ast.TokenSpan(tok))}
		case p.check(lexer.TOKEN_IS):
			p.advance()
			negated := p.match(lexer.TOKEN_NOT)
			typeTok := p.consume(lexer.TOKEN_IDENTIFIER, "a type name after 'is'")
			expr = &ast.TypeCheckExpr{Operand: expr, TypeName: typeTok.Lexeme, Negated: negated, Sp: ast.Join(expr.Span(), ast.TokenSpan(typeTok))}
		default:
			return expr
		}
	}
}

func (p *Parser) nextIsLowercaseIdentifier() bool {
	tok := p.peekAhead(1)
	if tok.Type != lexer.TOKEN_IDENTIFIER || tok.Lexeme == "" {
		return false
	}
	r := rune(tok.Lexeme[0])
	return r >= 'a' && r <= 'z'
}

// parsePrimary handles literals, `<var>` and bare-identifier variable
// references, array/map literals, grouped expressions and interpolated
// strings.
func (p *Parser) parsePrimary() ast.ExprNode {
	tok := p.peek()

	switch tok.Type {
	case lexer.TOKEN_INT_LITERAL, lexer.TOKEN_FLOAT_LITERAL, lexer.TOKEN_STRING_LITERAL:
		p.advance()
		return &ast.LiteralExpr{Value: tok.Literal, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_TRUE:
		p.advance()
		return &ast.LiteralExpr{Value: true, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_FALSE:
		p.advance()
		return &ast.LiteralExpr{Value: false, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_NIL, lexer.TOKEN_NULL_KW:
		p.advance()
		return &ast.LiteralExpr{Value: nil, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_STRING_SEGMENT:
		return p.parseInterpolatedString()
	case lexer.TOKEN_LANGLE:
		return p.parseVariableRef()
	case lexer.TOKEN_IDENTIFIER:
		p.advance()
		return &ast.VariableRef{Name: tok.Lexeme, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_LBRACKET:
		return p.parseArrayLiteral()
	case lexer.TOKEN_LBRACE:
		return p.parseMapLiteral()
	case lexer.TOKEN_LPAREN:
		return p.parseGrouped()
	default:
		p.error(newUnexpectedTokenError("an expression", tok))
		p.advance()
		return &ast.LiteralExpr{Value: nil, Sp: ast.TokenSpan(tok)}
	}
}

func (p *Parser) parseVariableRef() ast.ExprNode {
	open := p.advance() // '<'
	nameTok := p.consume(lexer.TOKEN_IDENTIFIER, "a variable name")
	closeTok := p.consume(lexer.TOKEN_RANGLE, "'>' to close a variable reference")
	return &ast.VariableRef{Name: nameTok.Lexeme, Sp: ast.Span{Start: ast.TokenLocation(open), End: ast.TokenLocation(closeTok)}}
}

func (p *Parser) parseArrayLiteral() ast.ExprNode {
	open := p.advance() // '['
	lit := &ast.ArrayLiteralExpr{Sp: ast.TokenSpan(open)}
	for !p.check(lexer.TOKEN_RBRACKET) && !p.isAtEnd() {
		lit.Elements = append(lit.Elements, p.parseExpression())
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
	}
	closeTok := p.consume(lexer.TOKEN_RBRACKET, "']' to close an array literal")
	lit.Sp.End = ast.TokenLocation(closeTok)
	return lit
}

func (p *Parser) parseMapLiteral() ast.ExprNode {
	open := p.advance() // '{'
	lit := &ast.MapLiteralExpr{Sp: ast.TokenSpan(open)}
	for !p.check(lexer.TOKEN_RBRACE) && !p.isAtEnd() {
		key := p.parseExpression()
		p.consume(lexer.TOKEN_COLON, "':' between a map key and its value")
		value := p.parseExpression()
		lit.Pairs = append(lit.Pairs, ast.MapPair{Key: key, Value: value})
		if !p.match(lexer.TOKEN_COMMA) {
			break
		}
	}
	closeTok := p.consume(lexer.TOKEN_RBRACE, "'}' to close a map literal")
	lit.Sp.End = ast.TokenLocation(closeTok)
	return lit
}

func (p *Parser) parseGrouped() ast.ExprNode {
	open := p.advance() // '('
	inner := p.parseExpression()
	closeTok := p.consume(lexer.TOKEN_RPAREN, "')' to close a grouped expression")
	return &ast.GroupedExpr{Inner: inner, Sp: ast.Span{Start: ast.TokenLocation(open), End: ast.TokenLocation(closeTok)}}
}

// parseInterpolatedString reassembles the flattened STRING_SEGMENT /
// INTERPOLATION_START / ... / INTERPOLATION_END token run the lexer
// produces for a `"...${expr}..."` literal back into a single node.
func (p *Parser) parseInterpolatedString() ast.ExprNode {
	firstTok := p.advance() // first STRING_SEGMENT
	lit := &ast.InterpolatedStringExpr{Sp: ast.TokenSpan(firstTok)}
	segment, _ := firstTok.Literal.(string)
	lit.Segments = append(lit.Segments, segment)

	for p.match(lexer.TOKEN_INTERPOLATION_START) {
		lit.Exprs = append(lit.Exprs, p.parseExpression())
		p.consume(lexer.TOKEN_INTERPOLATION_END, "'}' to close an interpolation")
		segTok := p.consume(lexer.TOKEN_STRING_SEGMENT, "the next string segment")
		next, _ := segTok.Literal.(string)
		lit.Segments = append(lit.Segments, next)
		lit.Sp.End = ast.TokenLocation(segTok)
	}

	return lit
}

// parsePattern parses a `match` case pattern: literal, variable binding,
// wildcard, or regex (spec §3 pattern sum).
func (p *Parser) parsePattern() ast.PatternNode {
	tok := p.peek()

	switch tok.Type {
	case lexer.TOKEN_INT_LITERAL, lexer.TOKEN_FLOAT_LITERAL, lexer.TOKEN_STRING_LITERAL:
		p.advance()
		return &ast.LiteralPattern{Value: tok.Literal, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_TRUE:
		p.advance()
		return &ast.LiteralPattern{Value: true, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_FALSE:
		p.advance()
		return &ast.LiteralPattern{Value: false, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_NIL, lexer.TOKEN_NULL_KW:
		p.advance()
		return &ast.LiteralPattern{Value: nil, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_REGEX_LITERAL:
		p.advance()
		src, _ := tok.Literal.(string)
		return &ast.RegexPattern{Source: src, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_IDENTIFIER:
		p.advance()
		if tok.Lexeme == "_" {
			return &ast.WildcardPattern{Sp: ast.TokenSpan(tok)}
		}
		return &ast.VariablePattern{Name: tok.Lexeme, Sp: ast.TokenSpan(tok)}
	case lexer.TOKEN_LANGLE:
		ref := p.parseVariableRef().(*ast.VariableRef)
		return &ast.VariablePattern{Name: ref.Name, Sp: ref.Sp}
	default:
		p.error(newUnexpectedTokenError("a match pattern", tok))
		p.advance()
		return &ast.WildcardPattern{Sp: ast.TokenSpan(tok)}
	}
}
