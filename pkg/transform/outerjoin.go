package transform

import (
	"github.com/sayiza/orapgsync/pkg/plsql"
)

// joinGroup is the set of (+)-marked equality predicates joining one pair of
// tables. paddedKey names the null-padded side: the table whose columns
// carried the marker.
type joinGroup struct {
	aKey, bKey string
	paddedKey  string
	conds      []*plsql.BinaryExpr
}

func (g *joinGroup) involves(key string) bool {
	return g.aKey == key || g.bKey == key
}

func (g *joinGroup) other(key string) string {
	if g.aKey == key {
		return g.bKey
	}
	return g.aKey
}

// joinPlan is the outcome of outer-join analysis for one SELECT. When no
// markers occur the plan is inactive and the FROM list passes through as a
// comma join.
type joinPlan struct {
	active   bool
	groups   []*joinGroup
	consumed map[plsql.Expr]bool
}

// analyzeOuterJoins scans the WHERE clause for (+) markers and groups the
// marked equality predicates per table pair. Markers on anything but a
// top-level equality between two column references abort the run.
func (r *run) analyzeOuterJoins(sel *plsql.SelectStmt) *joinPlan {
	plan := &joinPlan{consumed: make(map[plsql.Expr]bool)}
	if sel.Where == nil {
		return plan
	}

	for _, conjunct := range splitConjuncts(sel.Where) {
		if !exprHasMark(conjunct) {
			continue
		}
		plan.active = true

		cmp, ok := conjunct.(*plsql.BinaryExpr)
		if !ok || cmp.Op != plsql.TOKEN_EQ {
			r.errorf(KindUnsupportedConstruct, conjunct.Pos(),
				"outer-join marker on a non-equality predicate")
			return plan
		}
		left, lok := cmp.Left.(*plsql.ColumnRef)
		right, rok := cmp.Right.(*plsql.ColumnRef)
		if !lok || !rok {
			r.errorf(KindUnsupportedConstruct, conjunct.Pos(),
				"outer-join marker requires column references on both sides")
			return plan
		}
		if left.OuterJoin && right.OuterJoin {
			r.errorf(KindUnsupportedConstruct, conjunct.Pos(),
				"outer-join marker on both sides of %s = %s", left.String(), right.String())
			return plan
		}

		leftKey, ok := r.resolveTableKey(left, sel)
		if !ok {
			r.errorf(KindUnresolvableReference, left.Pos(),
				"cannot resolve %s to a table in the FROM list", left.String())
			return plan
		}
		rightKey, ok := r.resolveTableKey(right, sel)
		if !ok {
			r.errorf(KindUnresolvableReference, right.Pos(),
				"cannot resolve %s to a table in the FROM list", right.String())
			return plan
		}
		if leftKey == rightKey {
			r.errorf(KindUnsupportedConstruct, conjunct.Pos(),
				"outer-join marker within a single table reference")
			return plan
		}

		padded := rightKey
		if left.OuterJoin {
			padded = leftKey
		}

		group := plan.findGroup(leftKey, rightKey)
		if group == nil {
			group = &joinGroup{aKey: leftKey, bKey: rightKey, paddedKey: padded}
			plan.groups = append(plan.groups, group)
		} else if group.paddedKey != padded {
			r.errorf(KindUnsupportedConstruct, conjunct.Pos(),
				"conflicting outer-join directions between %s and %s", leftKey, rightKey)
			return plan
		}
		group.conds = append(group.conds, cmp)
		plan.consumed[conjunct] = true
	}

	return plan
}

func (p *joinPlan) findGroup(a, b string) *joinGroup {
	for _, g := range p.groups {
		if (g.aKey == a && g.bKey == b) || (g.aKey == b && g.bKey == a) {
			return g
		}
	}
	return nil
}

// remainingWhere returns the conjuncts that were not folded into ON clauses,
// in document order. With an inactive plan the whole predicate remains.
func (p *joinPlan) remainingWhere(where plsql.Expr) []plsql.Expr {
	if where == nil {
		return nil
	}
	if !p.active {
		return []plsql.Expr{where}
	}
	var rest []plsql.Expr
	for _, c := range splitConjuncts(where) {
		if !p.consumed[c] {
			rest = append(rest, c)
		}
	}
	return rest
}

// emitFrom renders the FROM clause: a comma list when no markers were found,
// otherwise ANSI joins in the original table order.
func (r *run) emitFrom(sel *plsql.SelectStmt, plan *joinPlan) {
	if !plan.active {
		r.p.list(len(sel.From), func(i int) {
			r.emitTableItem(sel.From[i])
		}, ", ")
		return
	}

	included := map[string]bool{}
	for i, item := range sel.From {
		if i == 0 {
			r.emitTableItem(item)
			included[item.Key()] = true
			continue
		}

		group := plan.groupFor(item.Key(), included)
		if group == nil {
			r.p.keyword(" CROSS JOIN ")
			r.emitTableItem(item)
			included[item.Key()] = true
			continue
		}

		if group.paddedKey == item.Key() {
			r.p.keyword(" LEFT JOIN ")
		} else {
			r.p.keyword(" RIGHT JOIN ")
		}
		r.emitTableItem(item)
		r.p.keyword(" ON ")
		r.p.list(len(group.conds), func(i int) {
			r.emitExpr(group.conds[i].Left)
			r.p.write(" = ")
			r.emitExpr(group.conds[i].Right)
		}, " AND ")
		included[item.Key()] = true
	}
}

// groupFor finds the join group connecting key to an already-included table.
func (p *joinPlan) groupFor(key string, included map[string]bool) *joinGroup {
	for _, g := range p.groups {
		if g.involves(key) && included[g.other(key)] {
			return g
		}
	}
	return nil
}

// emitConjuncts joins the remaining WHERE conjuncts with AND.
func (r *run) emitConjuncts(conds []plsql.Expr) {
	r.p.list(len(conds), func(i int) {
		r.emitExpr(conds[i])
	}, " AND ")
}

// splitConjuncts flattens top-level AND chains, unwrapping grouping parens.
func splitConjuncts(expr plsql.Expr) []plsql.Expr {
	switch x := expr.(type) {
	case *plsql.BinaryExpr:
		if x.Op == plsql.TOKEN_AND {
			return append(splitConjuncts(x.Left), splitConjuncts(x.Right)...)
		}
	case *plsql.ParenExpr:
		return splitConjuncts(x.Inner)
	}
	return []plsql.Expr{expr}
}

// exprHasMark reports whether any column reference under expr carries (+).
func exprHasMark(expr plsql.Expr) bool {
	switch x := expr.(type) {
	case *plsql.ColumnRef:
		return x.OuterJoin
	case *plsql.BinaryExpr:
		return exprHasMark(x.Left) || exprHasMark(x.Right)
	case *plsql.UnaryExpr:
		return exprHasMark(x.Operand)
	case *plsql.ParenExpr:
		return exprHasMark(x.Inner)
	case *plsql.FuncCall:
		for _, a := range x.Args {
			if exprHasMark(a) {
				return true
			}
		}
	case *plsql.CaseExpr:
		if exprHasMark(x.Operand) || exprHasMark(x.Else) {
			return true
		}
		for _, w := range x.Whens {
			if exprHasMark(w.Cond) || exprHasMark(w.Result) {
				return true
			}
		}
	case *plsql.InExpr:
		if exprHasMark(x.Operand) {
			return true
		}
		for _, e := range x.List {
			if exprHasMark(e) {
				return true
			}
		}
	case *plsql.BetweenExpr:
		return exprHasMark(x.Operand) || exprHasMark(x.Low) || exprHasMark(x.High)
	case *plsql.LikeExpr:
		return exprHasMark(x.Operand) || exprHasMark(x.Pattern)
	case *plsql.IsNullExpr:
		return exprHasMark(x.Operand)
	case nil:
		return false
	}
	return false
}

// resolveTableKey maps a column reference to the FROM entry it belongs to:
// by qualifier when present, otherwise by probing the catalog columns of
// every FROM table.
func (r *run) resolveTableKey(ref *plsql.ColumnRef, sel *plsql.SelectStmt) (string, bool) {
	if q := ref.Qualifier(); q != "" {
		for _, item := range sel.From {
			if item.Key() == q {
				return q, true
			}
		}
		return "", false
	}
	for _, item := range sel.From {
		if t, ok := r.g.cat.Table(item.Schema, item.Name); ok {
			if _, ok := t.Column(ref.Column()); ok {
				return item.Key(), true
			}
		}
	}
	return "", false
}
