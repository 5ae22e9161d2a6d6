package transform

import (
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

// emitBinary renders a binary expression. Additive arithmetic involving a
// date operand rewrites the numeric side into a day interval, since
// PostgreSQL timestamps do not add bare numbers. Subtracting two dates stays
// untouched; it already yields an interval difference.
func (r *run) emitBinary(x *plsql.BinaryExpr) {
	if x.Op == plsql.TOKEN_PLUS || x.Op == plsql.TOKEN_MINUS {
		if r.emitDateArithmetic(x) {
			return
		}
	}

	op, ok := operatorText[x.Op]
	if !ok {
		r.errorf(KindUnsupportedConstruct, x.Pos(), "operator %s is not supported", x.Op)
		return
	}
	r.emitExpr(x.Left)
	r.p.write(" " + op + " ")
	r.emitExpr(x.Right)
}

// emitDateArithmetic handles date +/- numeric. An operand of unknown type
// opposite a known date counts as the numeric side; the rewrite still
// applies. A known non-numeric counterpart passes through unchanged.
// Returns false when neither side is a date.
func (r *run) emitDateArithmetic(x *plsql.BinaryExpr) bool {
	lt := r.typeOf(x.Left)
	rt := r.typeOf(x.Right)

	leftDate := lt.Category == types.Date
	rightDate := rt.Category == types.Date

	switch {
	case leftDate && rightDate:
		// date - date is a difference, date + date never typechecks in
		// Oracle either; both pass through unchanged.
		return false
	case leftDate:
		if !dayCountable(rt) {
			r.warnf(KindManualReview, x.Pos(), "date arithmetic with a non-numeric operand passes through unchanged")
			return false
		}
		r.emitExpr(x.Left)
		r.p.write(" " + operatorText[x.Op] + " ")
		r.emitDayInterval(x.Right)
		return true
	case rightDate && x.Op == plsql.TOKEN_PLUS:
		if !dayCountable(lt) {
			r.warnf(KindManualReview, x.Pos(), "date arithmetic with a non-numeric operand passes through unchanged")
			return false
		}
		// n + date flips so the date leads; interval addition commutes.
		r.emitExpr(x.Right)
		r.p.write(" + ")
		r.emitDayInterval(x.Left)
		return true
	case rightDate:
		r.warnf(KindManualReview, x.Pos(), "subtracting a date from a non-date operand passes through unchanged")
		return false
	default:
		return false
	}
}

// dayCountable reports whether a type can stand as the day count opposite a
// date operand. Unknown counts as numeric.
func dayCountable(t types.InferredType) bool {
	return t.Category == types.Numeric || t.Category == types.Unknown
}

// emitDayInterval prints the numeric side of a date addition as a day
// interval: (n * INTERVAL '1 day').
func (r *run) emitDayInterval(count plsql.Expr) {
	r.p.write("(")
	if _, ok := count.(*plsql.BinaryExpr); ok {
		r.p.write("(")
		r.emitExpr(count)
		r.p.write(")")
	} else {
		r.emitExpr(count)
	}
	r.p.write(" * INTERVAL '1 day')")
}
