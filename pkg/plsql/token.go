// Package plsql provides lexing and parsing for the Oracle SQL and PL/SQL
// subset the transformation engine consumes. The package is self-contained:
// it defines its own token set, lexer, and recursive-descent parser.
package plsql

// TokenType identifies the type of a lexical token.
type TokenType int

// Token types.
const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	// Identifiers and literals
	TOKEN_IDENT  // table_name, column_name
	TOKEN_NUMBER // 123, 45.67
	TOKEN_STRING // 'hello'

	// Operators
	TOKEN_PLUS     // +
	TOKEN_MINUS    // -
	TOKEN_STAR     // *
	TOKEN_SLASH    // /
	TOKEN_EQ       // =
	TOKEN_NE       // <> or !=
	TOKEN_LT       // <
	TOKEN_GT       // >
	TOKEN_LE       // <=
	TOKEN_GE       // >=
	TOKEN_DPIPE    // ||
	TOKEN_ASSIGN   // :=
	TOKEN_ARROW    // =>
	TOKEN_PERCENT  // %
	TOKEN_JOINMARK // (+)

	// Delimiters
	TOKEN_DOT       // .
	TOKEN_DOTDOT    // ..
	TOKEN_COMMA     // ,
	TOKEN_SEMICOLON // ;
	TOKEN_LPAREN    // (
	TOKEN_RPAREN    // )

	// Keywords
	TOKEN_SELECT
	TOKEN_DISTINCT
	TOKEN_FROM
	TOKEN_WHERE
	TOKEN_GROUP
	TOKEN_ORDER
	TOKEN_BY
	TOKEN_HAVING
	TOKEN_AS
	TOKEN_AND
	TOKEN_OR
	TOKEN_NOT
	TOKEN_NULL
	TOKEN_IS
	TOKEN_IN
	TOKEN_BETWEEN
	TOKEN_LIKE
	TOKEN_EXISTS
	TOKEN_CASE
	TOKEN_WHEN
	TOKEN_THEN
	TOKEN_ELSE
	TOKEN_END
	TOKEN_ASC
	TOKEN_DESC
	TOKEN_INTO

	// PL/SQL keywords
	TOKEN_DECLARE
	TOKEN_BEGIN
	TOKEN_EXCEPTION
	TOKEN_IF
	TOKEN_ELSIF
	TOKEN_LOOP
	TOKEN_WHILE
	TOKEN_FOR
	TOKEN_EXIT
	TOKEN_RETURN
	TOKEN_TYPE
	TOKEN_TABLE
	TOKEN_OF
	TOKEN_VARRAY
	TOKEN_INDEX
	TOKEN_RECORD
	TOKEN_CONSTANT
	TOKEN_DEFAULT
	TOKEN_CREATE
	TOKEN_REPLACE
	TOKEN_PACKAGE
)

// Position represents a position in the source text.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// Token is a lexical token with its type, literal text, and position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

// tokenNames maps token types to readable names for error messages.
var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:   "ILLEGAL",
	TOKEN_EOF:       "EOF",
	TOKEN_IDENT:     "IDENT",
	TOKEN_NUMBER:    "NUMBER",
	TOKEN_STRING:    "STRING",
	TOKEN_PLUS:      "+",
	TOKEN_MINUS:     "-",
	TOKEN_STAR:      "*",
	TOKEN_SLASH:     "/",
	TOKEN_EQ:        "=",
	TOKEN_NE:        "<>",
	TOKEN_LT:        "<",
	TOKEN_GT:        ">",
	TOKEN_LE:        "<=",
	TOKEN_GE:        ">=",
	TOKEN_DPIPE:     "||",
	TOKEN_ASSIGN:    ":=",
	TOKEN_ARROW:     "=>",
	TOKEN_PERCENT:   "%",
	TOKEN_JOINMARK:  "(+)",
	TOKEN_DOT:       ".",
	TOKEN_DOTDOT:    "..",
	TOKEN_COMMA:     ",",
	TOKEN_SEMICOLON: ";",
	TOKEN_LPAREN:    "(",
	TOKEN_RPAREN:    ")",
	TOKEN_SELECT:    "SELECT",
	TOKEN_DISTINCT:  "DISTINCT",
	TOKEN_FROM:      "FROM",
	TOKEN_WHERE:     "WHERE",
	TOKEN_GROUP:     "GROUP",
	TOKEN_ORDER:     "ORDER",
	TOKEN_BY:        "BY",
	TOKEN_HAVING:    "HAVING",
	TOKEN_AS:        "AS",
	TOKEN_AND:       "AND",
	TOKEN_OR:        "OR",
	TOKEN_NOT:       "NOT",
	TOKEN_NULL:      "NULL",
	TOKEN_IS:        "IS",
	TOKEN_IN:        "IN",
	TOKEN_BETWEEN:   "BETWEEN",
	TOKEN_LIKE:      "LIKE",
	TOKEN_EXISTS:    "EXISTS",
	TOKEN_CASE:      "CASE",
	TOKEN_WHEN:      "WHEN",
	TOKEN_THEN:      "THEN",
	TOKEN_ELSE:      "ELSE",
	TOKEN_END:       "END",
	TOKEN_ASC:       "ASC",
	TOKEN_DESC:      "DESC",
	TOKEN_INTO:      "INTO",
	TOKEN_DECLARE:   "DECLARE",
	TOKEN_BEGIN:     "BEGIN",
	TOKEN_EXCEPTION: "EXCEPTION",
	TOKEN_IF:        "IF",
	TOKEN_ELSIF:     "ELSIF",
	TOKEN_LOOP:      "LOOP",
	TOKEN_WHILE:     "WHILE",
	TOKEN_FOR:       "FOR",
	TOKEN_EXIT:      "EXIT",
	TOKEN_RETURN:    "RETURN",
	TOKEN_TYPE:      "TYPE",
	TOKEN_TABLE:     "TABLE",
	TOKEN_OF:        "OF",
	TOKEN_VARRAY:    "VARRAY",
	TOKEN_INDEX:     "INDEX",
	TOKEN_RECORD:    "RECORD",
	TOKEN_CONSTANT:  "CONSTANT",
	TOKEN_DEFAULT:   "DEFAULT",
	TOKEN_CREATE:    "CREATE",
	TOKEN_REPLACE:   "REPLACE",
	TOKEN_PACKAGE:   "PACKAGE",
}

// String returns a readable name for the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"select":    TOKEN_SELECT,
	"distinct":  TOKEN_DISTINCT,
	"from":      TOKEN_FROM,
	"where":     TOKEN_WHERE,
	"group":     TOKEN_GROUP,
	"order":     TOKEN_ORDER,
	"by":        TOKEN_BY,
	"having":    TOKEN_HAVING,
	"as":        TOKEN_AS,
	"and":       TOKEN_AND,
	"or":        TOKEN_OR,
	"not":       TOKEN_NOT,
	"null":      TOKEN_NULL,
	"is":        TOKEN_IS,
	"in":        TOKEN_IN,
	"between":   TOKEN_BETWEEN,
	"like":      TOKEN_LIKE,
	"exists":    TOKEN_EXISTS,
	"case":      TOKEN_CASE,
	"when":      TOKEN_WHEN,
	"then":      TOKEN_THEN,
	"else":      TOKEN_ELSE,
	"end":       TOKEN_END,
	"asc":       TOKEN_ASC,
	"desc":      TOKEN_DESC,
	"into":      TOKEN_INTO,
	"declare":   TOKEN_DECLARE,
	"begin":     TOKEN_BEGIN,
	"exception": TOKEN_EXCEPTION,
	"if":        TOKEN_IF,
	"elsif":     TOKEN_ELSIF,
	"loop":      TOKEN_LOOP,
	"while":     TOKEN_WHILE,
	"for":       TOKEN_FOR,
	"exit":      TOKEN_EXIT,
	"return":    TOKEN_RETURN,
	"type":      TOKEN_TYPE,
	"table":     TOKEN_TABLE,
	"of":        TOKEN_OF,
	"varray":    TOKEN_VARRAY,
	"index":     TOKEN_INDEX,
	"record":    TOKEN_RECORD,
	"constant":  TOKEN_CONSTANT,
	"default":   TOKEN_DEFAULT,
	"create":    TOKEN_CREATE,
	"replace":   TOKEN_REPLACE,
	"package":   TOKEN_PACKAGE,
}

// LookupIdent checks if the given (lowercase) identifier is a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TOKEN_IDENT
}
