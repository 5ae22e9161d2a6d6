package plsql

import (
	"fmt"
	"strings"
	"unicode"
)

// Lexer tokenizes Oracle SQL / PL/SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	errs []error
}

// Err returns the first lexing error encountered so far, nil when the input
// read up to this point was clean.
func (l *Lexer) Err() error {
	if len(l.errs) > 0 {
		return l.errs[0]
	}
	return nil
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// peekChar2 returns the character after the next without advancing.
func (l *Lexer) peekChar2() byte {
	if l.readPos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+1]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()

	var tok Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = TOKEN_EOF
		tok.Literal = ""
	case '+':
		tok = l.newToken(TOKEN_PLUS, "+")
	case '-':
		tok = l.newToken(TOKEN_MINUS, "-")
	case '*':
		tok = l.newToken(TOKEN_STAR, "*")
	case '/':
		tok = l.newToken(TOKEN_SLASH, "/")
	case '%':
		tok = l.newToken(TOKEN_PERCENT, "%")
	case '=':
		if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: TOKEN_ARROW, Literal: "=>", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_EQ, "=")
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<=", Pos: pos}
		} else if l.peekChar() == '>' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.illegalToken()
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = Token{Type: TOKEN_DPIPE, Literal: "||", Pos: pos}
		} else {
			tok = l.illegalToken()
		}
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_ASSIGN, Literal: ":=", Pos: pos}
		} else {
			tok = l.illegalToken()
		}
	case '.':
		if l.peekChar() == '.' {
			l.readChar()
			tok = Token{Type: TOKEN_DOTDOT, Literal: "..", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_DOT, ".")
		}
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case ';':
		tok = l.newToken(TOKEN_SEMICOLON, ";")
	case '(':
		// The Oracle outer-join marker (+) is lexed as one token.
		if l.peekChar() == '+' && l.peekChar2() == ')' {
			l.readChar()
			l.readChar()
			tok = Token{Type: TOKEN_JOINMARK, Literal: "(+)", Pos: pos}
		} else {
			tok = l.newToken(TOKEN_LPAREN, "(")
		}
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case '\'':
		lit, terminated := l.readString()
		if !terminated {
			l.errs = append(l.errs, &LexError{Msg: errUnterminatedString, Pos: pos})
		}
		tok.Type = TOKEN_STRING
		tok.Literal = lit
		tok.Pos = pos
		return tok
	case '"':
		tok.Type = TOKEN_IDENT
		tok.Literal = l.readQuotedIdentifier()
		tok.Pos = pos
		return tok
	default:
		if isLetter(l.ch) || l.ch == '_' {
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(strings.ToLower(tok.Literal))
			tok.Pos = pos
			return tok
		} else if isDigit(l.ch) {
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			tok.Pos = pos
			return tok
		}
		tok = l.illegalToken()
	}

	l.readChar()
	return tok
}

// newToken creates a new token.
func (l *Lexer) newToken(tokenType TokenType, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// illegalToken records a lexing error for the current character and returns
// the ILLEGAL token carrying it.
func (l *Lexer) illegalToken() Token {
	tok := l.newToken(TOKEN_ILLEGAL, string(l.ch))
	l.errs = append(l.errs, &LexError{
		Msg: fmt.Sprintf("unexpected character %q", string(l.ch)),
		Pos: tok.Pos,
	})
	return tok
}

// skipWhitespaceAndComments skips whitespace and comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		// Line comment (-- ...)
		if l.ch == '-' && l.peekChar() == '-' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		// Block comment (/* ... */)
		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

// skipBlockComment skips a block comment.
func (l *Lexer) skipBlockComment() {
	l.readChar() // skip '/'
	l.readChar() // skip '*'

	for {
		if l.ch == 0 {
			return // unterminated block comment
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // skip '*'
			l.readChar() // skip '/'
			return
		}
		l.readChar()
	}
}

// readString reads a single-quoted string literal, reporting whether the
// closing quote was found. Doubled single quotes escape a quote:
// 'it''s' -> it's
func (l *Lexer) readString() (string, bool) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		if l.ch == 0 {
			return result.String(), false
		}
		if l.ch == '\'' {
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String(), true
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
}

// readQuotedIdentifier reads a double-quoted identifier.
func (l *Lexer) readQuotedIdentifier() string {
	l.readChar() // skip opening quote

	start := l.pos
	for l.ch != '"' && l.ch != 0 {
		l.readChar()
	}
	ident := l.input[start:l.pos]
	if l.ch == '"' {
		l.readChar() // skip closing quote
	}
	return ident
}

// readIdentifier reads an unquoted identifier. Oracle identifiers may
// contain $ and #.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$' || l.ch == '#' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads an integer or decimal number.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	// Avoid consuming the .. of a FOR range as a decimal point.
	if l.ch == '.' && l.peekChar() != '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.pos]
}

func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
