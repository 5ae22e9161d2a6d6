// Package transform generates PostgreSQL-compatible SQL from the parsed
// Oracle subset: outer-join rewriting, date arithmetic, collection-to-jsonb
// mapping, builtin function rewrites, and package-variable emulation.
package transform

import (
	"bytes"
	"strings"
)

const indentSize = 2

// printer accumulates generated SQL with indentation tracking.
type printer struct {
	output      *bytes.Buffer
	depth       int
	atLineStart bool
}

func newPrinter() *printer {
	return &printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the generated text without a trailing newline.
func (p *printer) String() string {
	return strings.TrimRight(p.output.String(), "\n")
}

func (p *printer) write(s string) {
	if p.atLineStart && len(s) > 0 && s[0] != '\n' {
		p.writeIndent()
	}
	p.output.WriteString(s)
	p.atLineStart = false
}

func (p *printer) writeln(parts ...string) {
	for _, s := range parts {
		p.write(s)
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *printer) writeIndent() {
	for i := 0; i < p.depth*indentSize; i++ {
		p.output.WriteByte(' ')
	}
	p.atLineStart = false
}

func (p *printer) keyword(s string) {
	p.write(strings.ToUpper(s))
}

func (p *printer) space() {
	p.output.WriteByte(' ')
}

func (p *printer) indent() {
	p.depth++
}

func (p *printer) dedent() {
	if p.depth > 0 {
		p.depth--
	}
}

// list prints count items through format with sep between them.
func (p *printer) list(count int, format func(i int), sep string) {
	for i := 0; i < count; i++ {
		format(i)
		if i < count-1 {
			p.write(sep)
		}
	}
}

// quoteLiteral returns s as a PostgreSQL string literal with quotes doubled.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
