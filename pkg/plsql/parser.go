package plsql

// Parser parses Oracle SQL and PL/SQL source into an AST. It is a
// recursive-descent parser with Pratt-style expression parsing and two
// tokens of lookahead.
type Parser struct {
	lexer *Lexer

	token Token // current token
	peek  Token // next token
	peek2 Token // token after next

	errors []error
}

// NewParser creates a parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	// Read three tokens to fill token, peek and peek2.
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single statement: a SELECT, an anonymous PL/SQL block, or
// a CREATE OR REPLACE PACKAGE specification.
func Parse(input string) (Statement, error) {
	p := NewParser(input)
	stmt := p.parseStatementTop()
	if err := p.err(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// ParseSelect parses input that must be a SELECT statement.
func ParseSelect(input string) (*SelectStmt, error) {
	p := NewParser(input)
	stmt := p.parseSelect()
	if err := p.err(); err != nil {
		return nil, err
	}
	return stmt, nil
}

// err returns the first error of the parse. Lexing errors win over the
// parse errors an ILLEGAL token causes downstream.
func (p *Parser) err() error {
	if err := p.lexer.Err(); err != nil {
		return err
	}
	if len(p.errors) > 0 {
		return p.errors[0]
	}
	return nil
}

func (p *Parser) parseStatementTop() Statement {
	switch p.token.Type {
	case TOKEN_SELECT:
		return p.parseSelect()
	case TOKEN_DECLARE, TOKEN_BEGIN:
		return p.parseBlock()
	case TOKEN_CREATE:
		return p.parsePackageSpec()
	default:
		p.addError("expected SELECT, DECLARE, BEGIN or CREATE, got " + p.token.Type.String())
		return nil
	}
}

// nextToken advances the token window.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the next token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it is of the given type.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError("expected " + t.String() + ", got " + p.token.Type.String())
	return false
}

// addError records a parse error at the current position.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{Msg: msg, Pos: p.token.Pos})
}

// identLike reports whether tok can serve as an identifier. Unreserved
// keywords double as identifiers in Oracle; the parser accepts any keyword
// in identifier position and lets name resolution sort it out.
func identLike(tok Token) bool {
	if tok.Type == TOKEN_IDENT {
		return true
	}
	// A keyword immediately used as a name: REPLACE(...), TYPE column, etc.
	switch tok.Type {
	case TOKEN_REPLACE, TOKEN_EXISTS, TOKEN_TYPE, TOKEN_TABLE, TOKEN_INDEX, TOKEN_RECORD:
		return true
	}
	return false
}

// parseIdent consumes an identifier-like token and returns its literal.
func (p *Parser) parseIdent() (string, bool) {
	if !identLike(p.token) {
		p.addError(errExpectedIdentifier + ", got " + p.token.Type.String())
		return "", false
	}
	name := p.token.Literal
	p.nextToken()
	return name, true
}

// parsePath consumes a dotted identifier chain.
func (p *Parser) parsePath() ([]string, bool) {
	name, ok := p.parseIdent()
	if !ok {
		return nil, false
	}
	path := []string{name}
	for p.check(TOKEN_DOT) {
		p.nextToken()
		name, ok = p.parseIdent()
		if !ok {
			return nil, false
		}
		path = append(path, name)
	}
	return path, true
}
