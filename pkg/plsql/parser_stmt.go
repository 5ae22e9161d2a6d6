package plsql

import (
	"strconv"
	"strings"
)

// =============================================================================
// SELECT
// =============================================================================

// parseSelect parses a SELECT statement.
func (p *Parser) parseSelect() *SelectStmt {
	stmt := &SelectStmt{NodeInfo: NodeInfo{Position: p.token.Pos}}
	if !p.expect(TOKEN_SELECT) {
		return nil
	}

	if p.match(TOKEN_DISTINCT) {
		stmt.Distinct = true
	}

	for {
		item, ok := p.parseSelectItem()
		if !ok {
			return nil
		}
		stmt.Columns = append(stmt.Columns, item)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	if p.match(TOKEN_INTO) {
		for {
			target := p.parseExpression()
			if target == nil {
				return nil
			}
			stmt.Into = append(stmt.Into, target)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}

	if !p.expect(TOKEN_FROM) {
		return nil
	}
	for {
		item, ok := p.parseTableItem()
		if !ok {
			return nil
		}
		stmt.From = append(stmt.From, item)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	if p.match(TOKEN_WHERE) {
		stmt.Where = p.parseExpression()
		if stmt.Where == nil {
			return nil
		}
	}

	if p.check(TOKEN_GROUP) {
		p.nextToken()
		if !p.expect(TOKEN_BY) {
			return nil
		}
		for {
			expr := p.parseExpression()
			if expr == nil {
				return nil
			}
			stmt.GroupBy = append(stmt.GroupBy, expr)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}

	if p.match(TOKEN_HAVING) {
		stmt.Having = p.parseExpression()
		if stmt.Having == nil {
			return nil
		}
	}

	if p.check(TOKEN_ORDER) {
		p.nextToken()
		if !p.expect(TOKEN_BY) {
			return nil
		}
		for {
			expr := p.parseExpression()
			if expr == nil {
				return nil
			}
			item := OrderItem{Expr: expr}
			if p.match(TOKEN_DESC) {
				item.Desc = true
			} else {
				p.match(TOKEN_ASC)
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}

	return stmt
}

// parseSelectItem parses one projection entry.
func (p *Parser) parseSelectItem() (SelectItem, bool) {
	if p.check(TOKEN_STAR) {
		p.nextToken()
		return SelectItem{Star: true}, true
	}

	expr := p.parseExpression()
	if expr == nil {
		return SelectItem{}, false
	}
	item := SelectItem{Expr: expr}

	if p.match(TOKEN_AS) {
		alias, ok := p.parseIdent()
		if !ok {
			return SelectItem{}, false
		}
		item.Alias = alias
	} else if p.check(TOKEN_IDENT) {
		item.Alias = p.token.Literal
		p.nextToken()
	}
	return item, true
}

// parseTableItem parses one FROM entry: [schema.]table [alias].
func (p *Parser) parseTableItem() (TableItem, bool) {
	pos := p.token.Pos
	path, ok := p.parsePath()
	if !ok {
		return TableItem{}, false
	}
	item := TableItem{NodeInfo: NodeInfo{Position: pos}}
	switch len(path) {
	case 1:
		item.Name = path[0]
	case 2:
		item.Schema = path[0]
		item.Name = path[1]
	default:
		p.addError("table reference has too many qualifiers: " + strings.Join(path, "."))
		return TableItem{}, false
	}

	if p.check(TOKEN_IDENT) {
		item.Alias = p.token.Literal
		p.nextToken()
	}
	return item, true
}

// =============================================================================
// PL/SQL blocks
// =============================================================================

// parseBlock parses [DECLARE decls] BEGIN stmts [EXCEPTION handlers] END.
func (p *Parser) parseBlock() *Block {
	block := &Block{NodeInfo: NodeInfo{Position: p.token.Pos}}

	if p.match(TOKEN_DECLARE) {
		for !p.check(TOKEN_BEGIN) && !p.check(TOKEN_EOF) {
			decl := p.parseDecl()
			if decl == nil {
				return nil
			}
			block.Decls = append(block.Decls, decl)
		}
	}

	if !p.expect(TOKEN_BEGIN) {
		return nil
	}

	for !p.check(TOKEN_END) && !p.check(TOKEN_EXCEPTION) && !p.check(TOKEN_EOF) {
		stmt := p.parseBodyStatement()
		if stmt == nil {
			return nil
		}
		block.Stmts = append(block.Stmts, stmt)
	}

	if p.match(TOKEN_EXCEPTION) {
		for p.check(TOKEN_WHEN) {
			p.nextToken()
			name, ok := p.parseIdent()
			if !ok {
				return nil
			}
			if !p.expect(TOKEN_THEN) {
				return nil
			}
			h := Handler{Name: name}
			for !p.check(TOKEN_WHEN) && !p.check(TOKEN_END) && !p.check(TOKEN_EOF) {
				stmt := p.parseBodyStatement()
				if stmt == nil {
					return nil
				}
				h.Stmts = append(h.Stmts, stmt)
			}
			block.Handlers = append(block.Handlers, h)
		}
	}

	if !p.expect(TOKEN_END) {
		return nil
	}
	p.match(TOKEN_SEMICOLON)
	return block
}

// parseDecl parses one DECLARE-section entry.
func (p *Parser) parseDecl() Decl {
	if p.check(TOKEN_TYPE) && p.checkPeek(TOKEN_IDENT) {
		return p.parseTypeDecl()
	}
	return p.parseVarDecl()
}

// parseTypeDecl parses TYPE name IS TABLE OF ... / VARRAY(n) OF ... /
// RECORD (...).
func (p *Parser) parseTypeDecl() Decl {
	decl := &TypeDecl{NodeInfo: NodeInfo{Position: p.token.Pos}}
	p.expect(TOKEN_TYPE)

	name, ok := p.parseIdent()
	if !ok {
		return nil
	}
	decl.Name = name
	if !p.expect(TOKEN_IS) {
		return nil
	}

	switch p.token.Type {
	case TOKEN_TABLE:
		p.nextToken()
		if !p.expect(TOKEN_OF) {
			return nil
		}
		elem, ok := p.parseTypeRef()
		if !ok {
			return nil
		}
		decl.Kind = TypeTableOf
		decl.Elem = elem
		if p.check(TOKEN_INDEX) {
			p.nextToken()
			if !p.expect(TOKEN_BY) {
				return nil
			}
			idx, ok := p.parseTypeRef()
			if !ok {
				return nil
			}
			decl.Kind = TypeIndexBy
			decl.IndexBy = idx.Name
		}

	case TOKEN_VARRAY:
		p.nextToken()
		if !p.expect(TOKEN_LPAREN) {
			return nil
		}
		if !p.check(TOKEN_NUMBER) {
			p.addError("expected VARRAY bound")
			return nil
		}
		limit, err := strconv.Atoi(p.token.Literal)
		if err != nil {
			p.addError("invalid VARRAY bound " + p.token.Literal)
			return nil
		}
		decl.Limit = limit
		p.nextToken()
		if !p.expect(TOKEN_RPAREN) {
			return nil
		}
		if !p.expect(TOKEN_OF) {
			return nil
		}
		elem, ok := p.parseTypeRef()
		if !ok {
			return nil
		}
		decl.Kind = TypeVarray
		decl.Elem = elem

	case TOKEN_RECORD:
		p.nextToken()
		if !p.expect(TOKEN_LPAREN) {
			return nil
		}
		decl.Kind = TypeRecord
		for {
			fname, ok := p.parseIdent()
			if !ok {
				return nil
			}
			ftype, ok := p.parseTypeRef()
			if !ok {
				return nil
			}
			decl.Fields = append(decl.Fields, FieldDecl{Name: fname, Type: ftype})
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		if !p.expect(TOKEN_RPAREN) {
			return nil
		}

	default:
		p.addError("expected TABLE, VARRAY or RECORD, got " + p.token.Type.String())
		return nil
	}

	if !p.expect(TOKEN_SEMICOLON) {
		return nil
	}
	return decl
}

// parseVarDecl parses name [CONSTANT] type [:= expr | DEFAULT expr] ;
func (p *Parser) parseVarDecl() Decl {
	decl := &VarDecl{NodeInfo: NodeInfo{Position: p.token.Pos}}

	name, ok := p.parseIdent()
	if !ok {
		return nil
	}
	decl.Name = name

	if p.match(TOKEN_CONSTANT) {
		decl.Constant = true
	}

	ref, ok := p.parseTypeRef()
	if !ok {
		return nil
	}
	decl.Type = ref

	if p.match(TOKEN_ASSIGN) || p.match(TOKEN_DEFAULT) {
		decl.Default = p.parseExpression()
		if decl.Default == nil {
			return nil
		}
	}

	if !p.expect(TOKEN_SEMICOLON) {
		return nil
	}
	return decl
}

// parseTypeRef parses a type reference: name, name(n[,m]), path%TYPE or
// path%ROWTYPE.
func (p *Parser) parseTypeRef() (TypeRef, bool) {
	path, ok := p.parsePath()
	if !ok {
		return TypeRef{}, false
	}
	ref := TypeRef{Name: strings.Join(path, ".")}

	if p.check(TOKEN_LPAREN) {
		// Size specification: VARCHAR2(30), NUMBER(10,2).
		p.nextToken()
		var parts []string
		for p.check(TOKEN_NUMBER) || p.check(TOKEN_IDENT) {
			parts = append(parts, p.token.Literal)
			p.nextToken()
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
		if !p.expect(TOKEN_RPAREN) {
			return TypeRef{}, false
		}
		ref.Name += "(" + strings.Join(parts, ",") + ")"
	}

	if p.check(TOKEN_PERCENT) {
		p.nextToken()
		switch {
		case p.check(TOKEN_TYPE):
			ref.ColType = true
			p.nextToken()
		case p.check(TOKEN_IDENT) && strings.EqualFold(p.token.Literal, "rowtype"):
			ref.RowType = true
			p.nextToken()
		default:
			p.addError("expected TYPE or ROWTYPE after %")
			return TypeRef{}, false
		}
	}
	return ref, true
}

// parseBodyStatement parses one statement inside BEGIN ... END.
func (p *Parser) parseBodyStatement() Statement {
	switch p.token.Type {
	case TOKEN_SELECT:
		stmt := p.parseSelect()
		if stmt == nil {
			return nil
		}
		p.expect(TOKEN_SEMICOLON)
		return stmt

	case TOKEN_DECLARE, TOKEN_BEGIN:
		return p.parseBlock()

	case TOKEN_IF:
		return p.parseIf()

	case TOKEN_LOOP, TOKEN_WHILE, TOKEN_FOR:
		return p.parseLoop()

	case TOKEN_EXIT:
		stmt := &ExitStmt{NodeInfo: NodeInfo{Position: p.token.Pos}}
		p.nextToken()
		if p.check(TOKEN_WHEN) {
			p.nextToken()
			stmt.When = p.parseExpression()
			if stmt.When == nil {
				return nil
			}
		}
		p.expect(TOKEN_SEMICOLON)
		return stmt

	case TOKEN_RETURN:
		stmt := &ReturnStmt{NodeInfo: NodeInfo{Position: p.token.Pos}}
		p.nextToken()
		if !p.check(TOKEN_SEMICOLON) {
			stmt.Value = p.parseExpression()
			if stmt.Value == nil {
				return nil
			}
		}
		p.expect(TOKEN_SEMICOLON)
		return stmt

	case TOKEN_NULL:
		stmt := &NullStmt{NodeInfo: NodeInfo{Position: p.token.Pos}}
		p.nextToken()
		p.expect(TOKEN_SEMICOLON)
		return stmt

	default:
		return p.parseAssignOrCall()
	}
}

// parseAssignOrCall parses an assignment or a bare procedure call.
func (p *Parser) parseAssignOrCall() Statement {
	pos := p.token.Pos
	target := p.parseIdentExpr()
	if target == nil {
		return nil
	}

	if p.check(TOKEN_ASSIGN) {
		p.nextToken()
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		p.expect(TOKEN_SEMICOLON)
		return &Assignment{NodeInfo: NodeInfo{Position: pos}, Target: target, Value: value}
	}

	if call, ok := target.(*FuncCall); ok {
		p.expect(TOKEN_SEMICOLON)
		return &CallStmt{NodeInfo: NodeInfo{Position: pos}, Call: call}
	}

	// A bare path is a parameterless procedure call.
	if ref, ok := target.(*ColumnRef); ok && !ref.OuterJoin {
		p.expect(TOKEN_SEMICOLON)
		call := &FuncCall{NodeInfo: NodeInfo{Position: pos}, Path: ref.Path}
		return &CallStmt{NodeInfo: NodeInfo{Position: pos}, Call: call}
	}

	p.addError("expected assignment or call")
	return nil
}

// parseIf parses IF ... THEN ... [ELSIF ...] [ELSE ...] END IF ;
func (p *Parser) parseIf() Statement {
	stmt := &IfStmt{NodeInfo: NodeInfo{Position: p.token.Pos}}
	p.expect(TOKEN_IF)

	stmt.Cond = p.parseExpression()
	if stmt.Cond == nil {
		return nil
	}
	if !p.expect(TOKEN_THEN) {
		return nil
	}

	for !p.check(TOKEN_ELSIF) && !p.check(TOKEN_ELSE) && !p.check(TOKEN_END) && !p.check(TOKEN_EOF) {
		s := p.parseBodyStatement()
		if s == nil {
			return nil
		}
		stmt.Then = append(stmt.Then, s)
	}

	for p.check(TOKEN_ELSIF) {
		p.nextToken()
		cond := p.parseExpression()
		if cond == nil {
			return nil
		}
		if !p.expect(TOKEN_THEN) {
			return nil
		}
		branch := ElsifBranch{Cond: cond}
		for !p.check(TOKEN_ELSIF) && !p.check(TOKEN_ELSE) && !p.check(TOKEN_END) && !p.check(TOKEN_EOF) {
			s := p.parseBodyStatement()
			if s == nil {
				return nil
			}
			branch.Then = append(branch.Then, s)
		}
		stmt.Elsifs = append(stmt.Elsifs, branch)
	}

	if p.match(TOKEN_ELSE) {
		for !p.check(TOKEN_END) && !p.check(TOKEN_EOF) {
			s := p.parseBodyStatement()
			if s == nil {
				return nil
			}
			stmt.Else = append(stmt.Else, s)
		}
	}

	if !p.expect(TOKEN_END) {
		return nil
	}
	if !p.expect(TOKEN_IF) {
		return nil
	}
	p.expect(TOKEN_SEMICOLON)
	return stmt
}

// parseLoop parses LOOP, WHILE ... LOOP and FOR i IN [REVERSE] a..b LOOP.
func (p *Parser) parseLoop() Statement {
	stmt := &LoopStmt{NodeInfo: NodeInfo{Position: p.token.Pos}}

	switch p.token.Type {
	case TOKEN_WHILE:
		p.nextToken()
		stmt.Kind = LoopWhile
		stmt.Cond = p.parseExpression()
		if stmt.Cond == nil {
			return nil
		}

	case TOKEN_FOR:
		p.nextToken()
		stmt.Kind = LoopForRange
		name, ok := p.parseIdent()
		if !ok {
			return nil
		}
		stmt.Var = name
		if !p.expect(TOKEN_IN) {
			return nil
		}
		if p.check(TOKEN_IDENT) && strings.EqualFold(p.token.Literal, "reverse") {
			stmt.Reverse = true
			p.nextToken()
		}
		stmt.Lower = p.parseExpressionPrec(precConcat)
		if stmt.Lower == nil {
			return nil
		}
		if !p.expect(TOKEN_DOTDOT) {
			return nil
		}
		stmt.Upper = p.parseExpressionPrec(precConcat)
		if stmt.Upper == nil {
			return nil
		}
	}

	if !p.expect(TOKEN_LOOP) {
		return nil
	}
	for !p.check(TOKEN_END) && !p.check(TOKEN_EOF) {
		s := p.parseBodyStatement()
		if s == nil {
			return nil
		}
		stmt.Body = append(stmt.Body, s)
	}
	if !p.expect(TOKEN_END) {
		return nil
	}
	if !p.expect(TOKEN_LOOP) {
		return nil
	}
	p.expect(TOKEN_SEMICOLON)
	return stmt
}

// =============================================================================
// Package specifications
// =============================================================================

// parsePackageSpec parses CREATE OR REPLACE PACKAGE [schema.]name IS|AS
// <declarations> END [name] ;
func (p *Parser) parsePackageSpec() Statement {
	spec := &PackageSpec{NodeInfo: NodeInfo{Position: p.token.Pos}}
	p.expect(TOKEN_CREATE)
	if p.match(TOKEN_OR) {
		if !p.expect(TOKEN_REPLACE) {
			return nil
		}
	}
	if !p.expect(TOKEN_PACKAGE) {
		return nil
	}

	path, ok := p.parsePath()
	if !ok {
		return nil
	}
	switch len(path) {
	case 1:
		spec.Name = path[0]
	case 2:
		spec.Schema = path[0]
		spec.Name = path[1]
	default:
		p.addError("package name has too many qualifiers")
		return nil
	}

	// IS or AS
	if !p.match(TOKEN_IS) && !p.match(TOKEN_AS) {
		p.addError("expected IS or AS, got " + p.token.Type.String())
		return nil
	}

	for !p.check(TOKEN_END) && !p.check(TOKEN_EOF) {
		decl := p.parseDecl()
		if decl == nil {
			return nil
		}
		spec.Decls = append(spec.Decls, decl)
	}

	if !p.expect(TOKEN_END) {
		return nil
	}
	if identLike(p.token) {
		p.nextToken() // trailing package name
	}
	p.match(TOKEN_SEMICOLON)
	return spec
}
