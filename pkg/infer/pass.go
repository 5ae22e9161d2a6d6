package infer

import (
	"log/slog"
	"strings"

	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/registry"
	"github.com/sayiza/orapgsync/pkg/types"
)

// Pass walks a statement and fills a TypeCache with the inferred type of
// every expression it can classify against the registry and catalog.
// Expressions it cannot classify are cached as Unknown; the pass never fails.
type Pass struct {
	reg    *registry.Registry
	cat    *catalog.Metadata
	logger *slog.Logger
	cache  *TypeCache
}

// PassOption configures a Pass.
type PassOption func(*Pass)

// WithPassLogger sets the logger used for resolution traces.
func WithPassLogger(l *slog.Logger) PassOption {
	return func(p *Pass) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPass creates an inference pass over the given registry and catalog.
func NewPass(reg *registry.Registry, cat *catalog.Metadata, opts ...PassOption) *Pass {
	p := &Pass{
		reg:    reg,
		cat:    cat,
		logger: slog.New(slog.DiscardHandler),
		cache:  NewTypeCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run infers types for the whole statement and returns the filled cache.
func (p *Pass) Run(stmt plsql.Statement) *TypeCache {
	p.runStatement(stmt, nil)
	return p.cache
}

// scopedTable is one resolved FROM entry.
type scopedTable struct {
	key   string // alias or table name, lowercase
	table *catalog.Table
}

// selScope chains the FROM entries visible to an expression; nested
// subqueries fall back to the enclosing scope for correlated references.
type selScope struct {
	parent *selScope
	tables []scopedTable
}

func (s *selScope) lookup(qualifier string) (*catalog.Table, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		for _, t := range sc.tables {
			if t.key == qualifier {
				return t.table, true
			}
		}
	}
	return nil, false
}

// column resolves an unqualified column against every visible table.
func (s *selScope) column(name string) (catalog.Column, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		for _, t := range sc.tables {
			if t.table == nil {
				continue
			}
			if c, ok := t.table.Column(name); ok {
				return c, true
			}
		}
	}
	return catalog.Column{}, false
}

func (p *Pass) runStatement(stmt plsql.Statement, scope *selScope) {
	switch s := stmt.(type) {
	case *plsql.SelectStmt:
		p.runSelect(s, scope)
	case *plsql.Block:
		p.runBlock(s, scope)
	case *plsql.Assignment:
		p.typeExpr(s.Target, scope)
		p.typeExpr(s.Value, scope)
	case *plsql.IfStmt:
		p.typeExpr(s.Cond, scope)
		p.runStatements(s.Then, scope)
		for _, b := range s.Elsifs {
			p.typeExpr(b.Cond, scope)
			p.runStatements(b.Then, scope)
		}
		p.runStatements(s.Else, scope)
	case *plsql.LoopStmt:
		p.reg.PushBlock()
		if s.Var != "" {
			p.reg.RegisterVariable(s.Var, types.InferredType{Category: types.Numeric})
		}
		p.typeExpr(s.Cond, scope)
		p.typeExpr(s.Lower, scope)
		p.typeExpr(s.Upper, scope)
		p.runStatements(s.Body, scope)
		p.reg.PopBlock()
	case *plsql.ExitStmt:
		p.typeExpr(s.When, scope)
	case *plsql.ReturnStmt:
		p.typeExpr(s.Value, scope)
	case *plsql.CallStmt:
		p.typeExpr(s.Call, scope)
	case *plsql.PackageSpec:
		p.reg.PushBlock()
		p.runDecls(s.Decls, scope)
		p.reg.PopBlock()
	}
}

func (p *Pass) runStatements(stmts []plsql.Statement, scope *selScope) {
	for _, s := range stmts {
		p.runStatement(s, scope)
	}
}

func (p *Pass) runBlock(b *plsql.Block, scope *selScope) {
	p.reg.PushBlock()
	defer p.reg.PopBlock()

	p.runDecls(b.Decls, scope)
	p.runStatements(b.Stmts, scope)
	for _, h := range b.Handlers {
		p.runStatements(h.Stmts, scope)
	}
}

func (p *Pass) runDecls(decls []plsql.Decl, scope *selScope) {
	for _, d := range decls {
		switch decl := d.(type) {
		case *plsql.TypeDecl:
			p.reg.RegisterType(decl.Name, p.typeDefinition(decl))
		case *plsql.VarDecl:
			t := p.resolveTypeRef(decl.Type)
			p.reg.RegisterVariable(decl.Name, t)
			if decl.Default != nil {
				p.typeExpr(decl.Default, scope)
			}
		}
	}
}

// typeDefinition converts a syntactic TYPE declaration into a definition.
func (p *Pass) typeDefinition(decl *plsql.TypeDecl) *types.InlineTypeDefinition {
	return DefinitionFromDecl(p.reg, p.cat, decl)
}

// resolveTypeRef resolves a declaration type reference to an inferred type.
func (p *Pass) resolveTypeRef(ref plsql.TypeRef) types.InferredType {
	return ResolveTypeRef(p.reg, p.cat, ref)
}

// DefinitionFromDecl converts a syntactic TYPE declaration into an inline
// type definition, resolving element and field types along the way.
func DefinitionFromDecl(reg *registry.Registry, cat *catalog.Metadata, decl *plsql.TypeDecl) *types.InlineTypeDefinition {
	def := &types.InlineTypeDefinition{
		Name:  strings.ToLower(decl.Name),
		Limit: decl.Limit,
	}
	switch decl.Kind {
	case plsql.TypeTableOf:
		def.Kind = types.KindTableOf
	case plsql.TypeVarray:
		def.Kind = types.KindVarray
	case plsql.TypeIndexBy:
		def.Kind = types.KindIndexBy
		def.IndexType = strings.ToLower(decl.IndexBy)
	case plsql.TypeRecord:
		def.Kind = types.KindRecord
	}
	if decl.Kind == plsql.TypeRecord {
		for _, f := range decl.Fields {
			ft := ResolveTypeRef(reg, cat, f.Type)
			def.Fields = append(def.Fields, types.RecordField{
				Name:       strings.ToLower(f.Name),
				OracleType: strings.ToLower(f.Type.Name),
				Category:   ft.Category,
			})
		}
	} else {
		def.ElementType = strings.ToLower(decl.Elem.Name)
		def.ElementCategory = ResolveTypeRef(reg, cat, decl.Elem).Category
	}
	return def
}

// ResolveTypeRef resolves a declaration type reference to an inferred type:
// scalar names map by category, %ROWTYPE goes through the catalog, %TYPE
// follows the referenced column, and bare names may hit a registered
// collection or record type.
func ResolveTypeRef(reg *registry.Registry, cat *catalog.Metadata, ref plsql.TypeRef) types.InferredType {
	name := strings.ToLower(ref.Name)

	if ref.RowType {
		if def, ok := cat.RowType(splitQualified(name)); ok {
			return def.Type()
		}
		return types.InferredType{Category: types.Record, OracleName: name}
	}

	if ref.ColType {
		parts := strings.Split(name, ".")
		if len(parts) >= 2 {
			table := strings.Join(parts[:len(parts)-1], ".")
			schema, tbl := splitQualified(table)
			if t, ok := cat.ColumnType(schema, tbl, parts[len(parts)-1]); ok {
				return t
			}
		}
		return types.UnknownType
	}

	if def, ok := reg.ResolveType(name); ok {
		return def.Type()
	}
	if def, ok := cat.TypeDefinition(name); ok {
		return def.Type()
	}
	if c := types.CategoryOfOracleType(name); c.IsKnown() {
		return types.InferredType{Category: c, OracleName: baseTypeName(name)}
	}
	return types.UnknownType
}

func splitQualified(name string) (schema, object string) {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

func baseTypeName(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}

// runSelect resolves the FROM list into a scope, types every expression in
// the statement, and returns the type of the first projection (the type of
// the SELECT when used as a scalar subquery).
func (p *Pass) runSelect(sel *plsql.SelectStmt, parent *selScope) types.InferredType {
	scope := &selScope{parent: parent}
	for _, item := range sel.From {
		t, ok := p.cat.Table(item.Schema, item.Name)
		if !ok {
			p.logger.Debug("table unresolved", "table", item.Name)
		}
		scope.tables = append(scope.tables, scopedTable{key: item.Key(), table: t})
	}

	first := types.UnknownType
	for i, item := range sel.Columns {
		if item.Star {
			continue
		}
		t := p.typeExpr(item.Expr, scope)
		if i == 0 {
			first = t
		}
	}
	for _, into := range sel.Into {
		p.typeExpr(into, scope)
	}
	p.typeExpr(sel.Where, scope)
	for _, g := range sel.GroupBy {
		p.typeExpr(g, scope)
	}
	p.typeExpr(sel.Having, scope)
	for _, o := range sel.OrderBy {
		p.typeExpr(o.Expr, scope)
	}
	return first
}

// typeExpr computes, caches and returns the type of an expression.
func (p *Pass) typeExpr(expr plsql.Expr, scope *selScope) types.InferredType {
	if expr == nil {
		return types.UnknownType
	}
	t := p.computeType(expr, scope)
	p.cache.Put(expr, t)
	return t
}

func (p *Pass) computeType(expr plsql.Expr, scope *selScope) types.InferredType {
	switch x := expr.(type) {
	case *plsql.Literal:
		switch x.Type {
		case plsql.LiteralNumber:
			return types.InferredType{Category: types.Numeric}
		case plsql.LiteralString:
			return types.InferredType{Category: types.Text}
		default:
			return types.UnknownType
		}

	case *plsql.ColumnRef:
		return p.typeColumnRef(x, scope)

	case *plsql.FuncCall:
		return p.typeFuncCall(x, scope)

	case *plsql.BinaryExpr:
		return p.typeBinary(x, scope)

	case *plsql.UnaryExpr:
		if x.Op == plsql.TOKEN_NOT {
			p.typeExpr(x.Operand, scope)
			return types.InferredType{Category: types.Boolean}
		}
		return p.typeExpr(x.Operand, scope)

	case *plsql.CaseExpr:
		p.typeExpr(x.Operand, scope)
		result := types.UnknownType
		for _, w := range x.Whens {
			p.typeExpr(w.Cond, scope)
			result = merge(result, p.typeExpr(w.Result, scope))
		}
		if x.Else != nil {
			result = merge(result, p.typeExpr(x.Else, scope))
		}
		return result

	case *plsql.ParenExpr:
		return p.typeExpr(x.Inner, scope)

	case *plsql.SubqueryExpr:
		return p.runSelect(x.Select, scope)

	case *plsql.ExistsExpr:
		if x.Subquery != nil {
			p.runSelect(x.Subquery.Select, scope)
		}
		return types.InferredType{Category: types.Boolean}

	case *plsql.InExpr:
		p.typeExpr(x.Operand, scope)
		for _, e := range x.List {
			p.typeExpr(e, scope)
		}
		if x.Subquery != nil {
			p.runSelect(x.Subquery.Select, scope)
		}
		return types.InferredType{Category: types.Boolean}

	case *plsql.BetweenExpr:
		p.typeExpr(x.Operand, scope)
		p.typeExpr(x.Low, scope)
		p.typeExpr(x.High, scope)
		return types.InferredType{Category: types.Boolean}

	case *plsql.LikeExpr:
		p.typeExpr(x.Operand, scope)
		p.typeExpr(x.Pattern, scope)
		return types.InferredType{Category: types.Boolean}

	case *plsql.IsNullExpr:
		p.typeExpr(x.Operand, scope)
		return types.InferredType{Category: types.Boolean}
	}

	return types.UnknownType
}

func (p *Pass) typeColumnRef(ref *plsql.ColumnRef, scope *selScope) types.InferredType {
	name := ref.Column()

	if len(ref.Path) == 1 {
		if dateFunctions[name] {
			return types.InferredType{Category: types.Date}
		}
		if scope != nil {
			if c, ok := scope.column(name); ok {
				return types.InferredType{Category: c.Category, OracleName: strings.ToLower(c.OracleType)}
			}
		}
		if t, ok := p.reg.ResolveVariable(name); ok {
			return t
		}
		return types.UnknownType
	}

	qualifier := ref.Qualifier()

	// alias.column against the FROM scope
	if scope != nil {
		if t, ok := scope.lookup(qualifier); ok && t != nil {
			if c, ok := t.Column(name); ok {
				return types.InferredType{Category: c.Category, OracleName: strings.ToLower(c.OracleType)}
			}
		}
	}

	// record_variable.field through the registry
	if vt, ok := p.reg.ResolveVariable(qualifier); ok && vt.Definition != nil {
		if f, ok := vt.Definition.Field(name); ok {
			return types.InferredType{Category: f.Category, OracleName: f.OracleType}
		}
	}

	// schema.table.column straight from the catalog
	if len(ref.Path) == 3 {
		if t, ok := p.cat.ColumnType(strings.ToLower(ref.Path[0]), strings.ToLower(ref.Path[1]), name); ok {
			return t
		}
	}
	if t, ok := p.cat.ColumnType("", qualifier, name); ok {
		return t
	}

	return types.UnknownType
}

func (p *Pass) typeFuncCall(call *plsql.FuncCall, scope *selScope) types.InferredType {
	for _, arg := range call.Args {
		p.typeExpr(arg, scope)
	}

	name := call.Name()

	if q := call.Qualifier(); q != "" {
		// collection methods on a registered variable
		if vt, ok := p.reg.ResolveVariable(q); ok && vt.Category == types.Collection {
			switch name {
			case "count", "first", "last":
				return types.InferredType{Category: types.Numeric}
			case "exists":
				return types.InferredType{Category: types.Boolean}
			}
		}
		if f, ok := p.cat.PackageFunction(q, name); ok {
			return types.InferredType{Category: f.Category, OracleName: strings.ToLower(f.ReturnType)}
		}
	}

	// collection constructor: a registered type name used as a call
	if def, ok := p.reg.ResolveType(name); ok {
		return def.Type()
	}
	if def, ok := p.cat.TypeDefinition(name); ok {
		return def.Type()
	}

	switch {
	case dateFunctions[name]:
		return types.InferredType{Category: types.Date}
	case numericFunctions[name]:
		return types.InferredType{Category: types.Numeric}
	case textFunctions[name]:
		return types.InferredType{Category: types.Text}
	case name == "nvl" || name == "coalesce" || name == "decode":
		if len(call.Args) > 1 && name == "decode" {
			// the result type comes from the THEN positions
			result := types.UnknownType
			for i := 2; i < len(call.Args); i += 2 {
				result = merge(result, p.cache.Get(call.Args[i]))
			}
			return result
		}
		if len(call.Args) > 0 {
			return p.cache.Get(call.Args[0])
		}
	}

	return types.UnknownType
}

func (p *Pass) typeBinary(x *plsql.BinaryExpr, scope *selScope) types.InferredType {
	left := p.typeExpr(x.Left, scope)
	right := p.typeExpr(x.Right, scope)

	switch x.Op {
	case plsql.TOKEN_DPIPE:
		return types.InferredType{Category: types.Text}
	case plsql.TOKEN_PLUS, plsql.TOKEN_MINUS, plsql.TOKEN_STAR, plsql.TOKEN_SLASH:
		if left.Category == types.Date || right.Category == types.Date {
			if x.Op == plsql.TOKEN_MINUS && left.Category == types.Date && right.Category == types.Date {
				return types.InferredType{Category: types.Numeric}
			}
			return types.InferredType{Category: types.Date}
		}
		if left.Category == types.Numeric && right.Category == types.Numeric {
			return types.InferredType{Category: types.Numeric}
		}
		return types.UnknownType
	default:
		return types.InferredType{Category: types.Boolean}
	}
}
