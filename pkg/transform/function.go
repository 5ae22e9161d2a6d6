package transform

import (
	"strings"

	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

// passthroughFunctions exist in PostgreSQL under the same name with
// compatible semantics. They render uppercase with their arguments intact.
var passthroughFunctions = map[string]bool{
	"abs": true, "avg": true, "ceil": true, "chr": true, "coalesce": true,
	"concat": true, "count": true, "extract": true, "floor": true,
	"greatest": true, "initcap": true, "least": true, "length": true,
	"lower": true, "lpad": true, "ltrim": true, "max": true, "min": true,
	"mod": true, "now": true, "nullif": true, "power": true, "replace": true,
	"round": true, "rpad": true, "rtrim": true, "sign": true, "sqrt": true,
	"sum": true, "to_char": true, "to_date": true, "to_number": true,
	"to_timestamp": true, "trim": true, "upper": true,
}

// functionRewrites maps Oracle builtins with no direct PostgreSQL
// counterpart to their rewrite. Each handler owns its full output. The map
// is filled in init: handlers recurse through emitExpr back into the map,
// which a composite literal initializer cannot reference.
var functionRewrites map[string]func(r *run, call *plsql.FuncCall)

func init() {
	functionRewrites = map[string]func(r *run, call *plsql.FuncCall){
		"nvl":            rewriteNVL,
		"nvl2":           rewriteNVL2,
		"decode":         rewriteDecode,
		"substr":         rewriteSubstr,
		"instr":          rewriteInstr,
		"regexp_replace": rewriteRegexpReplace,
		"regexp_substr":  rewriteRegexpSubstr,
		"regexp_instr":   rewriteRegexpInstr,
		"add_months":     rewriteAddMonths,
		"months_between": rewriteMonthsBetween,
		"last_day":       rewriteLastDay,
		"trunc":          rewriteTrunc,
	}
}

func (r *run) emitFuncCall(call *plsql.FuncCall) {
	if call.Star {
		r.p.write(strings.ToUpper(call.Name()) + "(*)")
		return
	}

	if len(call.Path) >= 2 {
		r.emitQualifiedCall(call)
		return
	}

	name := call.Name()

	// A call-shaped reference to a collection variable is an element read.
	if _, ok := r.collectionVar(name); ok && len(call.Args) == 1 {
		r.p.write(name + " -> ")
		r.emitZeroBasedIndex(call.Args[0])
		return
	}

	// Constructor calls become jsonb values.
	if def, ok := r.resolveConstructor(name); ok {
		r.emitConstructor(call, def)
		return
	}

	if rewrite, ok := functionRewrites[name]; ok {
		rewrite(r, call)
		return
	}

	if passthroughFunctions[name] {
		r.p.write(strings.ToUpper(name))
		r.emitArgs(call.Args)
		return
	}

	// Anything else is assumed to be a migrated user function living in the
	// default schema.
	r.p.write(r.g.cat.DefaultSchema() + "." + name)
	r.emitArgs(call.Args)
}

func (r *run) emitQualifiedCall(call *plsql.FuncCall) {
	head := strings.ToLower(call.Path[0])

	if len(call.Path) == 2 {
		if _, ok := r.collectionVar(head); ok {
			if r.emitCollectionMethod(head, call.Name(), call.Args, call.Pos()) {
				return
			}
			r.errorf(KindUnsupportedConstruct, call.Pos(), "collection method %s.%s is not supported in an expression", call.Path[0], call.Name())
			return
		}
		if f, ok := r.g.cat.PackageFunction(head, call.Name()); ok {
			r.p.write(r.g.cat.DefaultSchema() + "." + strings.ToLower(f.Package) + "__" + strings.ToLower(f.Name))
			r.emitArgs(call.Args)
			return
		}
	}

	r.p.write(strings.ToLower(strings.Join(call.Path, ".")))
	r.emitArgs(call.Args)
}

// resolveConstructor finds the collection type a constructor call refers to.
func (r *run) resolveConstructor(name string) (*types.InlineTypeDefinition, bool) {
	if def, ok := r.reg.ResolveType(name); ok && def != nil && def.Kind != types.KindRecord {
		return def, true
	}
	if def, ok := r.g.cat.TypeDefinition(name); ok && def.Kind != types.KindRecord {
		return def, true
	}
	return nil, false
}

func (r *run) emitArgs(args []plsql.Expr) {
	r.p.write("(")
	r.p.list(len(args), func(i int) {
		r.emitExpr(args[i])
	}, ", ")
	r.p.write(")")
}

// =============================================================================
// Rewrites
// =============================================================================

func rewriteNVL(r *run, call *plsql.FuncCall) {
	r.p.keyword("COALESCE")
	r.emitArgs(call.Args)
}

func rewriteNVL2(r *run, call *plsql.FuncCall) {
	if len(call.Args) != 3 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "NVL2 expects three arguments, got %d", len(call.Args))
		return
	}
	r.p.keyword("CASE WHEN ")
	r.emitExpr(call.Args[0])
	r.p.keyword(" IS NOT NULL THEN ")
	r.emitExpr(call.Args[1])
	r.p.keyword(" ELSE ")
	r.emitExpr(call.Args[2])
	r.p.keyword(" END")
}

// rewriteDecode expands DECODE into a simple CASE. An odd trailing argument
// is the default; without one the CASE has no ELSE and falls through to NULL,
// matching Oracle.
func rewriteDecode(r *run, call *plsql.FuncCall) {
	if len(call.Args) < 3 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "DECODE expects at least three arguments, got %d", len(call.Args))
		return
	}
	r.p.keyword("CASE ")
	r.emitExpr(call.Args[0])
	rest := call.Args[1:]
	for len(rest) >= 2 {
		r.p.keyword(" WHEN ")
		r.emitExpr(rest[0])
		r.p.keyword(" THEN ")
		r.emitExpr(rest[1])
		rest = rest[2:]
	}
	if len(rest) == 1 {
		r.p.keyword(" ELSE ")
		r.emitExpr(rest[0])
	}
	r.p.keyword(" END")
}

func rewriteSubstr(r *run, call *plsql.FuncCall) {
	if len(call.Args) < 2 || len(call.Args) > 3 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "SUBSTR expects two or three arguments, got %d", len(call.Args))
		return
	}
	if isNegativeNumber(call.Args[1]) {
		r.warnf(KindManualReview, call.Pos(), "SUBSTR with a negative position counts from the end in Oracle; SUBSTRING does not")
	}
	r.p.keyword("SUBSTRING(")
	r.emitExpr(call.Args[0])
	r.p.keyword(" FROM ")
	r.emitExpr(call.Args[1])
	if len(call.Args) == 3 {
		r.p.keyword(" FOR ")
		r.emitExpr(call.Args[2])
	}
	r.p.write(")")
}

// rewriteInstr maps INSTR onto POSITION. The three-argument form searches a
// suffix, so the found offset shifts back by the start position; a zero
// result must stay zero, hence the CASE. An occurrence argument is only
// expressible when it is literally 1, where it changes nothing.
func rewriteInstr(r *run, call *plsql.FuncCall) {
	args := call.Args
	if len(args) == 4 {
		occ, ok := literalNumber(args[3])
		if !ok || occ != "1" {
			r.errorf(KindUnsupportedConstruct, call.Pos(), "INSTR with an occurrence other than 1 has no PostgreSQL equivalent")
			return
		}
		args = args[:3]
	}

	plain := func() {
		r.p.keyword("POSITION(")
		r.emitExpr(args[1])
		r.p.keyword(" IN ")
		r.emitExpr(args[0])
		r.p.write(")")
	}

	switch len(args) {
	case 2:
		plain()
	case 3:
		if start, ok := literalNumber(args[2]); ok && start == "1" {
			plain()
			return
		}
		position := func() {
			r.p.keyword("POSITION(")
			r.emitExpr(args[1])
			r.p.keyword(" IN SUBSTRING(")
			r.emitExpr(args[0])
			r.p.keyword(" FROM ")
			r.emitExpr(args[2])
			r.p.write("))")
		}
		r.p.keyword("CASE WHEN ")
		position()
		r.p.write(" = 0 THEN 0")
		r.p.keyword(" ELSE ")
		position()
		r.p.write(" + ")
		r.emitExpr(args[2])
		r.p.write(" - 1")
		r.p.keyword(" END")
	default:
		r.errorf(KindUnsupportedConstruct, call.Pos(), "INSTR expects two to four arguments, got %d", len(call.Args))
	}
}

// isNegativeNumber reports whether expr is a negated numeric literal.
func isNegativeNumber(expr plsql.Expr) bool {
	u, ok := expr.(*plsql.UnaryExpr)
	if !ok || u.Op != plsql.TOKEN_MINUS {
		return false
	}
	lit, ok := u.Operand.(*plsql.Literal)
	return ok && lit.Type == plsql.LiteralNumber
}

// literalNumber extracts a numeric literal's text, unwrapping one level of
// parentheses.
func literalNumber(expr plsql.Expr) (string, bool) {
	if p, ok := expr.(*plsql.ParenExpr); ok {
		expr = p.Inner
	}
	lit, ok := expr.(*plsql.Literal)
	if !ok || lit.Type != plsql.LiteralNumber {
		return "", false
	}
	return lit.Value, true
}

// regexpFlags works out the PostgreSQL flag string for a regexp rewrite.
// Oracle's occurrence 0 means every occurrence, which PostgreSQL spells 'g'.
// Anything other than occurrence 0 or 1, or a start position past 1, cannot
// be expressed and fails the transform.
func regexpFlags(r *run, call *plsql.FuncCall, posIdx, occIdx, matchIdx int, defaultAll bool) (string, bool) {
	global := defaultAll

	if len(call.Args) > posIdx {
		v, ok := literalNumber(call.Args[posIdx])
		if !ok || v != "1" {
			r.errorf(KindUnsupportedConstruct, call.Pos(), "%s with a start position other than 1 has no PostgreSQL equivalent", strings.ToUpper(call.Name()))
			return "", false
		}
	}
	if len(call.Args) > occIdx {
		v, ok := literalNumber(call.Args[occIdx])
		if !ok {
			r.errorf(KindUnsupportedConstruct, call.Pos(), "%s requires a literal occurrence argument", strings.ToUpper(call.Name()))
			return "", false
		}
		switch v {
		case "0":
			global = true
		case "1":
			global = false
		default:
			r.errorf(KindUnsupportedConstruct, call.Pos(), "%s with occurrence %s has no PostgreSQL equivalent", strings.ToUpper(call.Name()), v)
			return "", false
		}
	}

	flags := ""
	if len(call.Args) > matchIdx {
		lit, ok := call.Args[matchIdx].(*plsql.Literal)
		if !ok || lit.Type != plsql.LiteralString {
			r.errorf(KindUnsupportedConstruct, call.Pos(), "%s requires a literal match parameter", strings.ToUpper(call.Name()))
			return "", false
		}
		for _, c := range strings.ToLower(lit.Value) {
			switch c {
			case 'i', 'n', 'm', 'x':
				flags += string(c)
			case 'c':
				// case sensitivity is already the default
			default:
				r.warnf(KindManualReview, call.Pos(), "match parameter %q is ignored", string(c))
			}
		}
	}
	if global {
		flags += "g"
	}
	return flags, true
}

// rewriteRegexpReplace emits REGEXP_REPLACE with PostgreSQL flags. Oracle
// replaces every occurrence by default where PostgreSQL replaces the first,
// so the default adds 'g'.
func rewriteRegexpReplace(r *run, call *plsql.FuncCall) {
	if len(call.Args) < 2 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "REGEXP_REPLACE expects at least two arguments, got %d", len(call.Args))
		return
	}
	flags, ok := regexpFlags(r, call, 3, 4, 5, true)
	if !ok {
		return
	}
	r.p.keyword("REGEXP_REPLACE(")
	r.emitExpr(call.Args[0])
	r.p.write(", ")
	r.emitExpr(call.Args[1])
	r.p.write(", ")
	if len(call.Args) >= 3 {
		r.emitExpr(call.Args[2])
	} else {
		r.p.write("''")
	}
	if flags != "" {
		r.p.write(", " + quoteLiteral(flags))
	}
	r.p.write(")")
}

// rewriteRegexpSubstr renders the first capture of REGEXP_MATCH, which is
// how PostgreSQL extracts a matching substring.
func rewriteRegexpSubstr(r *run, call *plsql.FuncCall) {
	if len(call.Args) < 2 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "REGEXP_SUBSTR expects at least two arguments, got %d", len(call.Args))
		return
	}
	flags, ok := regexpFlags(r, call, 2, 3, 4, false)
	if !ok {
		return
	}
	r.p.keyword("(REGEXP_MATCH(")
	r.emitExpr(call.Args[0])
	r.p.write(", ")
	r.emitExpr(call.Args[1])
	if flags != "" {
		r.p.write(", " + quoteLiteral(flags))
	}
	r.p.write("))[1]")
}

func rewriteRegexpInstr(r *run, call *plsql.FuncCall) {
	r.errorf(KindUnsupportedConstruct, call.Pos(), "REGEXP_INSTR has no PostgreSQL equivalent; rewrite the expression manually")
}

func rewriteAddMonths(r *run, call *plsql.FuncCall) {
	if len(call.Args) != 2 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "ADD_MONTHS expects two arguments, got %d", len(call.Args))
		return
	}
	r.emitExpr(call.Args[0])
	r.p.write(" + (")
	if _, ok := call.Args[1].(*plsql.BinaryExpr); ok {
		r.p.write("(")
		r.emitExpr(call.Args[1])
		r.p.write(")")
	} else {
		r.emitExpr(call.Args[1])
	}
	r.p.write(" * INTERVAL '1 month')")
}

// rewriteMonthsBetween counts whole months via AGE. Oracle returns a
// fractional month for partial spans; that part does not carry over.
func rewriteMonthsBetween(r *run, call *plsql.FuncCall) {
	if len(call.Args) != 2 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "MONTHS_BETWEEN expects two arguments, got %d", len(call.Args))
		return
	}
	age := func() {
		r.p.keyword("AGE(")
		r.emitExpr(call.Args[0])
		r.p.write(", ")
		r.emitExpr(call.Args[1])
		r.p.write(")")
	}
	r.p.keyword("(EXTRACT(YEAR FROM ")
	age()
	r.p.write(") * 12 + ")
	r.p.keyword("EXTRACT(MONTH FROM ")
	age()
	r.p.write("))")
	r.warnf(KindManualReview, call.Pos(), "MONTHS_BETWEEN maps to whole months; Oracle's fractional part is lost")
}

func rewriteLastDay(r *run, call *plsql.FuncCall) {
	if len(call.Args) != 1 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "LAST_DAY expects one argument, got %d", len(call.Args))
		return
	}
	r.p.keyword("(DATE_TRUNC('month', ")
	r.emitExpr(call.Args[0])
	r.p.keyword(") + INTERVAL '1 month' - INTERVAL '1 day')")
}

// truncDateFields maps Oracle TRUNC format models onto DATE_TRUNC fields.
var truncDateFields = map[string]string{
	"dd": "day", "dy": "day", "day": "day", "j": "day",
	"mm": "month", "mon": "month", "month": "month",
	"yy": "year", "yyyy": "year", "year": "year", "y": "year",
	"q": "quarter",
	"hh": "hour", "hh12": "hour", "hh24": "hour",
	"mi": "minute",
}

// rewriteTrunc keeps numeric TRUNC as-is and maps date TRUNC to DATE_TRUNC.
func rewriteTrunc(r *run, call *plsql.FuncCall) {
	if len(call.Args) == 0 || len(call.Args) > 2 {
		r.errorf(KindUnsupportedConstruct, call.Pos(), "TRUNC expects one or two arguments, got %d", len(call.Args))
		return
	}
	if r.typeOf(call.Args[0]).Category != types.Date {
		r.p.keyword("TRUNC")
		r.emitArgs(call.Args)
		return
	}

	field := "day"
	if len(call.Args) == 2 {
		lit, ok := call.Args[1].(*plsql.Literal)
		if !ok || lit.Type != plsql.LiteralString {
			r.errorf(KindUnsupportedConstruct, call.Pos(), "TRUNC on a date requires a literal format model")
			return
		}
		field, ok = truncDateFields[strings.ToLower(lit.Value)]
		if !ok {
			r.errorf(KindUnsupportedConstruct, call.Pos(), "TRUNC format model %q has no DATE_TRUNC field", lit.Value)
			return
		}
	}
	r.p.keyword("DATE_TRUNC(" + quoteLiteral(field) + ", ")
	r.emitExpr(call.Args[0])
	r.p.write(")")
}
