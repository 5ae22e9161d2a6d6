package plsql

import "fmt"

// Error message constants for recurring parse failures.
const (
	errExpectedExpression = "expected expression"
	errExpectedIdentifier = "expected identifier"
	errUnterminatedString = "unterminated string literal"
)

// ParseError describes a syntax error with its source position.
type ParseError struct {
	Msg string
	Pos Position
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// LexError describes invalid input encountered during lexing.
type LexError struct {
	Msg string
	Pos Position
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}
