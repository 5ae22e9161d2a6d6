package plsql

// Operator precedence levels, loosest first.
const (
	precLowest         = 0
	precOr             = 1
	precAnd            = 2
	precNot            = 3
	precComparison     = 4
	precConcat         = 5
	precAdditive       = 6
	precMultiplicative = 7
	precUnary          = 8
)

// infixPrecedence returns the binding power of the current token as an
// infix operator, or false when it cannot continue an expression.
func infixPrecedence(t TokenType) (int, bool) {
	switch t {
	case TOKEN_OR:
		return precOr, true
	case TOKEN_AND:
		return precAnd, true
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE,
		TOKEN_IS, TOKEN_IN, TOKEN_BETWEEN, TOKEN_LIKE, TOKEN_NOT:
		return precComparison, true
	case TOKEN_DPIPE:
		return precConcat, true
	case TOKEN_PLUS, TOKEN_MINUS:
		return precAdditive, true
	case TOKEN_STAR, TOKEN_SLASH:
		return precMultiplicative, true
	}
	return 0, false
}

// parseExpression parses an expression at the lowest precedence level.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionPrec(precLowest)
}

// parseExpressionPrec implements precedence climbing.
func (p *Parser) parseExpressionPrec(minPrec int) Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		prec, ok := infixPrecedence(p.token.Type)
		if !ok || prec < minPrec {
			return left
		}
		left = p.parseInfix(left, prec)
		if left == nil {
			return nil
		}
	}
}

// parsePrefix parses a primary expression or a prefix operator.
func (p *Parser) parsePrefix() Expr {
	pos := p.token.Pos

	switch p.token.Type {
	case TOKEN_NUMBER:
		lit := &Literal{NodeInfo: NodeInfo{Position: pos}, Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_STRING:
		lit := &Literal{NodeInfo: NodeInfo{Position: pos}, Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_NULL:
		lit := &Literal{NodeInfo: NodeInfo{Position: pos}, Type: LiteralNull, Value: "NULL"}
		p.nextToken()
		return lit

	case TOKEN_MINUS, TOKEN_PLUS:
		op := p.token.Type
		p.nextToken()
		operand := p.parseExpressionPrec(precUnary)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{NodeInfo: NodeInfo{Position: pos}, Op: op, Operand: operand}

	case TOKEN_NOT:
		p.nextToken()
		operand := p.parseExpressionPrec(precNot)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{NodeInfo: NodeInfo{Position: pos}, Op: TOKEN_NOT, Operand: operand}

	case TOKEN_CASE:
		return p.parseCase()

	case TOKEN_EXISTS:
		// EXISTS ( subquery ); EXISTS followed by a dot is a collection
		// method reference handled by the identifier path below.
		if p.checkPeek(TOKEN_LPAREN) && p.peek2.Type == TOKEN_SELECT {
			p.nextToken()
			sub := p.parseSubquery()
			if sub == nil {
				return nil
			}
			return &ExistsExpr{NodeInfo: NodeInfo{Position: pos}, Subquery: sub}
		}
		return p.parseIdentExpr()

	case TOKEN_LPAREN:
		if p.checkPeek(TOKEN_SELECT) {
			return p.parseSubquery()
		}
		p.nextToken()
		inner := p.parseExpression()
		if inner == nil {
			return nil
		}
		p.expect(TOKEN_RPAREN)
		return &ParenExpr{NodeInfo: NodeInfo{Position: pos}, Inner: inner}

	default:
		if identLike(p.token) {
			return p.parseIdentExpr()
		}
		p.addError(errExpectedExpression + ", got " + p.token.Type.String())
		return nil
	}
}

// parseIdentExpr parses a dotted identifier path and decides whether it is a
// column reference, an outer-join-marked reference, or a call.
func (p *Parser) parseIdentExpr() Expr {
	pos := p.token.Pos
	path, ok := p.parsePath()
	if !ok {
		return nil
	}

	if p.check(TOKEN_LPAREN) {
		return p.parseCallArgs(pos, path)
	}

	ref := &ColumnRef{NodeInfo: NodeInfo{Position: pos}, Path: path}
	if p.check(TOKEN_JOINMARK) {
		ref.OuterJoin = true
		p.nextToken()
	}
	return ref
}

// parseCallArgs parses the argument list of a call whose name is already read.
func (p *Parser) parseCallArgs(pos Position, path []string) Expr {
	call := &FuncCall{NodeInfo: NodeInfo{Position: pos}, Path: path}
	p.expect(TOKEN_LPAREN)

	if p.check(TOKEN_STAR) {
		call.Star = true
		p.nextToken()
		p.expect(TOKEN_RPAREN)
		return call
	}

	if !p.check(TOKEN_RPAREN) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}
	p.expect(TOKEN_RPAREN)
	return call
}

// parseCase parses simple and searched CASE expressions.
func (p *Parser) parseCase() Expr {
	expr := &CaseExpr{NodeInfo: NodeInfo{Position: p.token.Pos}}
	p.expect(TOKEN_CASE)

	if !p.check(TOKEN_WHEN) {
		expr.Operand = p.parseExpression()
		if expr.Operand == nil {
			return nil
		}
	}

	for p.check(TOKEN_WHEN) {
		p.nextToken()
		cond := p.parseExpression()
		if cond == nil {
			return nil
		}
		p.expect(TOKEN_THEN)
		result := p.parseExpression()
		if result == nil {
			return nil
		}
		expr.Whens = append(expr.Whens, WhenClause{Cond: cond, Result: result})
	}

	if p.match(TOKEN_ELSE) {
		expr.Else = p.parseExpression()
		if expr.Else == nil {
			return nil
		}
	}

	p.expect(TOKEN_END)
	return expr
}

// parseSubquery parses ( SELECT ... ).
func (p *Parser) parseSubquery() *SubqueryExpr {
	pos := p.token.Pos
	p.expect(TOKEN_LPAREN)
	sel := p.parseSelect()
	if sel == nil {
		return nil
	}
	p.expect(TOKEN_RPAREN)
	return &SubqueryExpr{NodeInfo: NodeInfo{Position: pos}, Select: sel}
}

// parseInfix parses an infix construct given its left operand.
func (p *Parser) parseInfix(left Expr, prec int) Expr {
	pos := p.token.Pos

	switch p.token.Type {
	case TOKEN_IS:
		// IS [NOT] NULL
		p.nextToken()
		not := p.match(TOKEN_NOT)
		if !p.expect(TOKEN_NULL) {
			return nil
		}
		return &IsNullExpr{NodeInfo: NodeInfo{Position: pos}, Operand: left, Not: not}

	case TOKEN_NOT:
		// NOT continuing an expression must introduce IN, LIKE or BETWEEN.
		switch p.peek.Type {
		case TOKEN_IN, TOKEN_LIKE, TOKEN_BETWEEN:
			p.nextToken()
			return p.parseNegatable(left, true)
		}
		p.addError("expected IN, LIKE or BETWEEN after NOT")
		return nil

	case TOKEN_IN, TOKEN_LIKE, TOKEN_BETWEEN:
		return p.parseNegatable(left, false)

	default:
		op := p.token.Type
		p.nextToken()
		// Left-associative: the right side binds one level tighter.
		right := p.parseExpressionPrec(prec + 1)
		if right == nil {
			return nil
		}
		return &BinaryExpr{NodeInfo: NodeInfo{Position: pos}, Left: left, Op: op, Right: right}
	}
}

// parseNegatable parses IN, LIKE and BETWEEN with an optional preceding NOT.
func (p *Parser) parseNegatable(left Expr, not bool) Expr {
	pos := p.token.Pos

	switch p.token.Type {
	case TOKEN_IN:
		p.nextToken()
		in := &InExpr{NodeInfo: NodeInfo{Position: pos}, Operand: left, Not: not}
		if p.check(TOKEN_LPAREN) && p.checkPeek(TOKEN_SELECT) {
			in.Subquery = p.parseSubquery()
			if in.Subquery == nil {
				return nil
			}
			return in
		}
		p.expect(TOKEN_LPAREN)
		for {
			item := p.parseExpression()
			if item == nil {
				return nil
			}
			in.List = append(in.List, item)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		p.expect(TOKEN_RPAREN)
		return in

	case TOKEN_LIKE:
		p.nextToken()
		pattern := p.parseExpressionPrec(precConcat)
		if pattern == nil {
			return nil
		}
		return &LikeExpr{NodeInfo: NodeInfo{Position: pos}, Operand: left, Not: not, Pattern: pattern}

	case TOKEN_BETWEEN:
		p.nextToken()
		// Bounds parse at additive precedence so AND is not captured.
		low := p.parseExpressionPrec(precConcat)
		if low == nil {
			return nil
		}
		if !p.expect(TOKEN_AND) {
			return nil
		}
		high := p.parseExpressionPrec(precConcat)
		if high == nil {
			return nil
		}
		return &BetweenExpr{NodeInfo: NodeInfo{Position: pos}, Operand: left, Not: not, Low: low, High: high}

	default:
		p.addError("expected IN, LIKE or BETWEEN")
		return nil
	}
}
