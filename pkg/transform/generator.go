package transform

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/registry"
	"github.com/sayiza/orapgsync/pkg/types"
)

// Generator turns parsed Oracle statements into PostgreSQL text. It is
// stateless across runs; per-run state lives on the run type.
type Generator struct {
	cat    *catalog.Metadata
	eval   infer.Evaluator
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a Generator over the given catalog and evaluator.
func New(cat *catalog.Metadata, eval infer.Evaluator, opts ...Option) *Generator {
	g := &Generator{
		cat:    cat,
		eval:   eval,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Transform generates PostgreSQL text for one statement. The result carries
// the output and all diagnostics; on an error diagnostic the output is empty.
func (g *Generator) Transform(stmt plsql.Statement) *Result {
	r := g.newRun(stmt)
	r.emitStatement(stmt)
	res := newResult(r.p.String(), r.diags)
	g.logger.Debug("transform finished", "run_id", res.RunID, "failed", res.HasErrors(), "diagnostics", len(res.Diagnostics))
	return res
}

// run is the per-invocation state: output, diagnostics, the evaluator
// answering type questions for this statement, and the symbol registry
// tracking the declarations of the statement being generated.
type run struct {
	g     *Generator
	p     *printer
	reg   *registry.Registry
	eval  infer.Evaluator
	diags []Diagnostic
	// failed stops emission after the first error diagnostic.
	failed bool
}

// newRun prepares the per-invocation state. With catalog metadata present
// the inference pass pre-types the whole statement and the resulting cache
// answers all type questions; an empty catalog leaves typing to the
// configured evaluator.
func (g *Generator) newRun(stmt plsql.Statement) *run {
	eval := g.eval
	if stmt != nil && g.cat != nil && !g.cat.IsEmpty() {
		cache := infer.NewPass(registry.New(), g.cat, infer.WithPassLogger(g.logger)).Run(stmt)
		eval = infer.NewCacheEvaluator(cache)
	}
	return &run{
		g:    g,
		p:    newPrinter(),
		reg:  registry.New(),
		eval: eval,
	}
}

func (r *run) errorf(kind DiagnosticKind, pos plsql.Position, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Severity: SeverityError,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
	r.failed = true
}

func (r *run) warnf(kind DiagnosticKind, pos plsql.Position, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Severity: SeverityWarning,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// typeOf asks the run's evaluator for an expression's type.
func (r *run) typeOf(expr plsql.Expr) types.InferredType {
	if r.eval == nil {
		return types.UnknownType
	}
	return r.eval.Evaluate(expr)
}

// =============================================================================
// Statements
// =============================================================================

func (r *run) emitStatement(stmt plsql.Statement) {
	if r.failed {
		return
	}
	switch s := stmt.(type) {
	case *plsql.SelectStmt:
		r.emitSelect(s)
	case *plsql.Block:
		r.emitBlock(s)
	case *plsql.Assignment:
		r.emitAssignment(s)
	case *plsql.IfStmt:
		r.emitIf(s)
	case *plsql.LoopStmt:
		r.emitLoop(s)
	case *plsql.ExitStmt:
		r.p.keyword("EXIT")
		if s.When != nil {
			r.p.write(" WHEN ")
			r.emitExpr(s.When)
		}
		r.p.write(";")
	case *plsql.ReturnStmt:
		r.p.keyword("RETURN")
		if s.Value != nil {
			r.p.space()
			r.emitExpr(s.Value)
		}
		r.p.write(";")
	case *plsql.NullStmt:
		r.p.write("NULL;")
	case *plsql.CallStmt:
		r.emitCall(s)
	case *plsql.PackageSpec:
		r.emitPackageHelpers(s)
	default:
		r.errorf(KindUnsupportedConstruct, stmt.Pos(), "statement type %T is not supported", stmt)
	}
}

func (r *run) emitStatements(stmts []plsql.Statement) {
	for _, s := range stmts {
		if r.failed {
			return
		}
		r.emitStatement(s)
		r.p.writeln()
	}
}

// emitBlock generates a PL/pgSQL block. Declarations register into the run's
// registry so collection and record rewrites can resolve the names they need.
func (r *run) emitBlock(b *plsql.Block) {
	r.reg.PushBlock()
	defer r.reg.PopBlock()

	if len(b.Decls) > 0 {
		r.p.keyword("DECLARE")
		r.p.writeln()
		r.p.indent()
		for _, d := range b.Decls {
			if r.failed {
				return
			}
			r.emitDecl(d)
			r.p.writeln()
		}
		r.p.dedent()
	}

	r.p.keyword("BEGIN")
	r.p.writeln()
	r.p.indent()
	r.emitStatements(b.Stmts)
	r.p.dedent()

	if len(b.Handlers) > 0 {
		r.p.keyword("EXCEPTION")
		r.p.writeln()
		r.p.indent()
		for _, h := range b.Handlers {
			r.p.write("WHEN " + strings.ToUpper(h.Name) + " THEN")
			r.p.writeln()
			r.p.indent()
			r.emitStatements(h.Stmts)
			r.p.dedent()
		}
		r.p.dedent()
	}

	r.p.write("END;")
}

func (r *run) emitDecl(d plsql.Decl) {
	switch decl := d.(type) {
	case *plsql.TypeDecl:
		// Inline types have no DDL counterpart: the definition only feeds
		// the registry, collections become jsonb at their use sites.
		def := infer.DefinitionFromDecl(r.reg, r.g.cat, decl)
		r.reg.RegisterType(decl.Name, def)
		r.p.write("-- type " + strings.ToLower(decl.Name) + " is mapped to jsonb")
	case *plsql.VarDecl:
		r.emitVarDecl(decl)
	}
}

func (r *run) emitAssignment(a *plsql.Assignment) {
	// Writes into collections and records go through jsonb_set.
	if r.emitDocumentAssignment(a) {
		return
	}
	r.emitExpr(a.Target)
	r.p.write(" := ")
	r.emitExpr(a.Value)
	r.p.write(";")
}

func (r *run) emitIf(s *plsql.IfStmt) {
	r.p.keyword("IF ")
	r.emitExpr(s.Cond)
	r.p.keyword(" THEN")
	r.p.writeln()
	r.p.indent()
	r.emitStatements(s.Then)
	r.p.dedent()

	for _, b := range s.Elsifs {
		r.p.keyword("ELSIF ")
		r.emitExpr(b.Cond)
		r.p.keyword(" THEN")
		r.p.writeln()
		r.p.indent()
		r.emitStatements(b.Then)
		r.p.dedent()
	}

	if len(s.Else) > 0 {
		r.p.keyword("ELSE")
		r.p.writeln()
		r.p.indent()
		r.emitStatements(s.Else)
		r.p.dedent()
	}
	r.p.write("END IF;")
}

func (r *run) emitLoop(s *plsql.LoopStmt) {
	switch s.Kind {
	case plsql.LoopWhile:
		r.p.keyword("WHILE ")
		r.emitExpr(s.Cond)
		r.p.space()
	case plsql.LoopForRange:
		r.p.keyword("FOR ")
		r.p.write(strings.ToLower(s.Var))
		r.p.keyword(" IN ")
		if s.Reverse {
			r.p.keyword("REVERSE ")
		}
		r.emitExpr(s.Lower)
		r.p.write("..")
		r.emitExpr(s.Upper)
		r.p.space()
		r.reg.RegisterVariable(s.Var, types.InferredType{Category: types.Numeric})
	}
	r.p.keyword("LOOP")
	r.p.writeln()
	r.p.indent()
	r.emitStatements(s.Body)
	r.p.dedent()
	r.p.write("END LOOP;")
}

func (r *run) emitCall(s *plsql.CallStmt) {
	// Collection mutators are calls in Oracle but assignments on jsonb.
	if r.emitCollectionMutation(s) {
		return
	}
	r.p.keyword("PERFORM ")
	r.emitExpr(s.Call)
	r.p.write(";")
}

// =============================================================================
// SELECT
// =============================================================================

func (r *run) emitSelect(sel *plsql.SelectStmt) {
	plan := r.analyzeOuterJoins(sel)
	if r.failed {
		return
	}

	r.p.keyword("SELECT ")
	if sel.Distinct {
		r.p.keyword("DISTINCT ")
	}
	r.p.list(len(sel.Columns), func(i int) {
		r.emitSelectItem(sel.Columns[i])
	}, ", ")

	if len(sel.Into) > 0 {
		r.p.keyword(" INTO ")
		r.p.list(len(sel.Into), func(i int) {
			r.emitExpr(sel.Into[i])
		}, ", ")
	}

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

	if len(sel.Into) > 0 {
		r.p.write(";")
	}
}

func (r *run) emitSelectItem(item plsql.SelectItem) {
	if item.Star {
		r.p.write("*")
		return
	}
	r.emitExpr(item.Expr)
	if item.Alias != "" {
		r.p.keyword(" AS ")
		r.p.write(strings.ToLower(item.Alias))
	}
}

func (r *run) emitTableItem(item plsql.TableItem) {
	if item.Schema != "" {
		r.p.write(strings.ToLower(item.Schema) + ".")
	}
	r.p.write(strings.ToLower(item.Name))
	if item.Alias != "" {
		r.p.space()
		r.p.write(strings.ToLower(item.Alias))
	}
}

// =============================================================================
// Expressions
// =============================================================================

// operatorText maps binary operator tokens to their output form.
var operatorText = map[plsql.TokenType]string{
	plsql.TOKEN_PLUS:  "+",
	plsql.TOKEN_MINUS: "-",
	plsql.TOKEN_STAR:  "*",
	plsql.TOKEN_SLASH: "/",
	plsql.TOKEN_EQ:    "=",
	plsql.TOKEN_NE:    "<>",
	plsql.TOKEN_LT:    "<",
	plsql.TOKEN_GT:    ">",
	plsql.TOKEN_LE:    "<=",
	plsql.TOKEN_GE:    ">=",
	plsql.TOKEN_DPIPE: "||",
	plsql.TOKEN_AND:   "AND",
	plsql.TOKEN_OR:    "OR",
}

func (r *run) emitExpr(expr plsql.Expr) {
	if r.failed || expr == nil {
		return
	}
	switch x := expr.(type) {
	case *plsql.Literal:
		r.emitLiteral(x)
	case *plsql.ColumnRef:
		r.emitColumnRef(x)
	case *plsql.BinaryExpr:
		r.emitBinary(x)
	case *plsql.UnaryExpr:
		if x.Op == plsql.TOKEN_NOT {
			r.p.keyword("NOT ")
			r.emitExpr(x.Operand)
			return
		}
		r.p.write(operatorText[x.Op])
		r.emitExpr(x.Operand)
	case *plsql.FuncCall:
		r.emitFuncCall(x)
	case *plsql.CaseExpr:
		r.emitCase(x)
	case *plsql.ParenExpr:
		r.p.write("(")
		r.emitExpr(x.Inner)
		r.p.write(")")
	case *plsql.SubqueryExpr:
		r.p.write("(")
		r.emitSelect(x.Select)
		r.p.write(")")
	case *plsql.ExistsExpr:
		r.p.keyword("EXISTS ")
		r.emitExpr(x.Subquery)
	case *plsql.InExpr:
		r.emitExpr(x.Operand)
		if x.Not {
			r.p.keyword(" NOT")
		}
		r.p.keyword(" IN ")
		if x.Subquery != nil {
			r.emitExpr(x.Subquery)
			return
		}
		r.p.write("(")
		r.p.list(len(x.List), func(i int) {
			r.emitExpr(x.List[i])
		}, ", ")
		r.p.write(")")
	case *plsql.BetweenExpr:
		r.emitExpr(x.Operand)
		if x.Not {
			r.p.keyword(" NOT")
		}
		r.p.keyword(" BETWEEN ")
		r.emitExpr(x.Low)
		r.p.keyword(" AND ")
		r.emitExpr(x.High)
	case *plsql.LikeExpr:
		r.emitExpr(x.Operand)
		if x.Not {
			r.p.keyword(" NOT")
		}
		r.p.keyword(" LIKE ")
		r.emitExpr(x.Pattern)
	case *plsql.IsNullExpr:
		r.emitExpr(x.Operand)
		r.p.keyword(" IS ")
		if x.Not {
			r.p.keyword("NOT ")
		}
		r.p.keyword("NULL")
	default:
		r.errorf(KindUnsupportedConstruct, expr.Pos(), "expression type %T is not supported", expr)
	}
}

func (r *run) emitLiteral(lit *plsql.Literal) {
	switch lit.Type {
	case plsql.LiteralNumber:
		r.p.write(lit.Value)
	case plsql.LiteralString:
		r.p.write(quoteLiteral(lit.Value))
	default:
		r.p.keyword("NULL")
	}
}

func (r *run) emitCase(x *plsql.CaseExpr) {
	r.p.keyword("CASE")
	if x.Operand != nil {
		r.p.space()
		r.emitExpr(x.Operand)
	}
	for _, w := range x.Whens {
		r.p.keyword(" WHEN ")
		r.emitExpr(w.Cond)
		r.p.keyword(" THEN ")
		r.emitExpr(w.Result)
	}
	if x.Else != nil {
		r.p.keyword(" ELSE ")
		r.emitExpr(x.Else)
	}
	r.p.keyword(" END")
}
