package transform

import (
	"strings"

	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

// TransformView generates a CREATE OR REPLACE VIEW statement for a view's
// defining query. Projections whose inferred type disagrees with the view's
// declared column type get wrapped in a CAST so the PostgreSQL view keeps
// the column types the Oracle definition promised.
func (g *Generator) TransformView(schema, view string, sel *plsql.SelectStmt) *Result {
	r := g.newRun(sel)

	if schema == "" {
		schema = g.cat.DefaultSchema()
	}
	cols, _ := g.cat.ViewColumns(schema, view)

	if len(cols) > 0 && len(cols) != len(sel.Columns) {
		r.warnf(KindManualReview, sel.Pos(), "view %s declares %d columns but its query projects %d", view, len(cols), len(sel.Columns))
		cols = nil
	}

	r.p.keyword("CREATE OR REPLACE VIEW ")
	r.p.write(strings.ToLower(schema) + "." + strings.ToLower(view))
	r.p.keyword(" AS")
	r.p.writeln()
	r.emitViewSelect(sel, cols)
	if !r.failed {
		r.p.write(";")
	}

	res := newResult(r.p.String(), r.diags)
	g.logger.Debug("view transform finished", "run_id", res.RunID, "view", view, "failed", res.HasErrors())
	return res
}

// emitViewSelect is emitSelect with per-projection cast wrapping driven by
// the declared view columns.
func (r *run) emitViewSelect(sel *plsql.SelectStmt, cols []catalog.ViewColumn) {
	plan := r.analyzeOuterJoins(sel)
	if r.failed {
		return
	}

	r.p.keyword("SELECT ")
	if sel.Distinct {
		r.p.keyword("DISTINCT ")
	}
	r.p.list(len(sel.Columns), func(i int) {
		if len(cols) == len(sel.Columns) {
			r.emitViewItem(sel.Columns[i], cols[i])
			return
		}
		r.emitSelectItem(sel.Columns[i])
	}, ", ")

	r.p.keyword(" FROM ")
	r.emitFrom(sel, plan)

	if where := plan.remainingWhere(sel.Where); where != nil {
		r.p.keyword(" WHERE ")
		r.emitConjuncts(where)
	}

	if len(sel.GroupBy) > 0 {
		r.p.keyword(" GROUP BY ")
		r.p.list(len(sel.GroupBy), func(i int) {
			r.emitExpr(sel.GroupBy[i])
		}, ", ")
	}

	if sel.Having != nil {
		r.p.keyword(" HAVING ")
		r.emitExpr(sel.Having)
	}

	if len(sel.OrderBy) > 0 {
		r.p.keyword(" ORDER BY ")
		r.p.list(len(sel.OrderBy), func(i int) {
			r.emitExpr(sel.OrderBy[i].Expr)
			if sel.OrderBy[i].Desc {
				r.p.keyword(" DESC")
			}
		}, ", ")
	}
}

// emitViewItem renders one projection, casting when the inferred type
// disagrees with the declared column. Star projections cannot be checked.
func (r *run) emitViewItem(item plsql.SelectItem, col catalog.ViewColumn) {
	if item.Star {
		r.p.write("*")
		return
	}

	inferred := r.typeOf(item.Expr)
	needCast := col.PostgresType != "" &&
		col.Category != types.Unknown &&
		inferred.Category != types.Unknown &&
		inferred.Category != col.Category

	if needCast {
		r.p.keyword("CAST(")
	}
	r.emitExpr(item.Expr)
	if needCast {
		r.p.keyword(" AS ")
		r.p.write(strings.ToLower(col.PostgresType))
		r.p.write(")")
	}

	alias := item.Alias
	if alias == "" && needCast {
		alias = col.Name
	}
	if alias != "" {
		r.p.keyword(" AS ")
		r.p.write(strings.ToLower(alias))
	}
}
