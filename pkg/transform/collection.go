package transform

import (
	"strconv"
	"strings"

	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

// emptyDocument returns the jsonb literal a fresh value of the given kind
// starts from: an array for ordered collections, an object for keyed
// collections and records.
func emptyDocument(kind types.CollectionKind) string {
	if kind.IsOrdered() {
		return "'[]'::jsonb"
	}
	return "'{}'::jsonb"
}

// emitVarDecl renders one variable declaration. Collection and record
// variables become jsonb; scalars map onto PostgreSQL types.
func (r *run) emitVarDecl(decl *plsql.VarDecl) {
	t := infer.ResolveTypeRef(r.reg, r.g.cat, decl.Type)
	r.reg.RegisterVariable(decl.Name, t)

	r.p.write(strings.ToLower(decl.Name))
	if decl.Constant {
		r.p.keyword(" CONSTANT")
	}

	if t.Definition != nil {
		r.p.write(" jsonb := ")
		if decl.Default != nil {
			r.emitExpr(decl.Default)
		} else {
			r.p.write(emptyDocument(t.Definition.Kind))
		}
		r.p.write(";")
		return
	}

	r.p.space()
	r.p.write(pgScalarType(t, decl.Type.Name))
	if decl.Default != nil {
		r.p.write(" := ")
		r.emitExpr(decl.Default)
	}
	r.p.write(";")
}

// pgScalarType maps a resolved scalar type onto its PostgreSQL counterpart.
// Unclassified types keep their written name, lowercased.
func pgScalarType(t types.InferredType, written string) string {
	switch t.Category {
	case types.Numeric:
		switch t.OracleName {
		case "pls_integer", "binary_integer", "integer", "int", "smallint", "natural", "positive":
			return "integer"
		default:
			return "numeric"
		}
	case types.Text:
		return "text"
	case types.Date:
		return "timestamp"
	case types.Boolean:
		return "boolean"
	default:
		return strings.ToLower(written)
	}
}

// collectionVar resolves a name to a collection-typed variable definition.
func (r *run) collectionVar(name string) (*types.InlineTypeDefinition, bool) {
	t, ok := r.reg.ResolveVariable(name)
	if !ok || t.Definition == nil || t.Category != types.Collection {
		return nil, false
	}
	return t.Definition, true
}

// recordVar resolves a name to a record-typed variable definition.
func (r *run) recordVar(name string) (*types.InlineTypeDefinition, bool) {
	t, ok := r.reg.ResolveVariable(name)
	if !ok || t.Definition == nil || t.Category != types.Record {
		return nil, false
	}
	return t.Definition, true
}

// emitColumnRef renders a dotted reference: niladic date builtins, collection
// pseudo-methods, record field reads, package-variable getters, or a plain
// lowered path.
func (r *run) emitColumnRef(ref *plsql.ColumnRef) {
	if len(ref.Path) == 1 {
		switch ref.Column() {
		case "sysdate", "systimestamp":
			r.p.keyword("CURRENT_TIMESTAMP")
		case "current_date":
			r.p.keyword("CURRENT_DATE")
		case "current_timestamp":
			r.p.keyword("CURRENT_TIMESTAMP")
		default:
			r.p.write(ref.Column())
		}
		return
	}

	head := strings.ToLower(ref.Path[0])

	// Collection pseudo-methods without parentheses: v.COUNT, v.FIRST, v.LAST.
	if len(ref.Path) == 2 {
		if _, ok := r.collectionVar(head); ok {
			if r.emitCollectionMethod(head, ref.Column(), nil, ref.Pos()) {
				return
			}
		}
	}

	// Record field reads chain -> with a final ->>.
	if def, ok := r.recordVar(head); ok {
		r.emitFieldRead(head, ref.Path[1:], def)
		return
	}

	// Package variables are read through their emulation getter.
	if len(ref.Path) == 2 {
		if v, ok := r.g.cat.PackageVariable(head, ref.Column()); ok {
			r.p.write(r.g.cat.DefaultSchema() + "." + strings.ToLower(v.Package) + "__get_" + strings.ToLower(v.Name) + "()")
			return
		}
	}

	r.p.write(strings.ToLower(ref.String()))
}

// emitFieldRead renders record field access: intermediate hops use ->, the
// final hop ->> so the value comes out as text.
func (r *run) emitFieldRead(varName string, fields []string, def *types.InlineTypeDefinition) {
	if def != nil {
		if _, ok := def.Field(fields[0]); !ok {
			r.warnf(KindManualReview, plsql.Position{}, "field %s is not part of record %s", fields[0], varName)
		}
	}
	r.p.write(strings.ToLower(varName))
	for i, f := range fields {
		if i == len(fields)-1 {
			r.p.write(" ->> ")
		} else {
			r.p.write(" -> ")
		}
		r.p.write(quoteLiteral(strings.ToLower(f)))
	}
}

// emitCollectionMethod renders v.COUNT and friends on a jsonb array. Index
// arguments shift from Oracle's 1-based positions to 0-based jsonb offsets.
func (r *run) emitCollectionMethod(varName, method string, args []plsql.Expr, pos plsql.Position) bool {
	name := strings.ToLower(varName)
	switch method {
	case "count":
		r.p.write("jsonb_array_length(" + name + ")")
	case "first":
		r.p.write("1")
	case "last":
		r.p.write("jsonb_array_length(" + name + ")")
	case "exists":
		if len(args) != 1 {
			r.errorf(KindUnsupportedConstruct, pos, "%s.EXISTS expects one index argument", varName)
			return true
		}
		r.p.write("jsonb_typeof(" + name + " -> ")
		r.emitZeroBasedIndex(args[0])
		r.p.write(") IS NOT NULL")
	default:
		return false
	}
	return true
}

// emitZeroBasedIndex prints an Oracle collection index shifted down by one:
// constant indexes fold, anything else gets the explicit arithmetic.
func (r *run) emitZeroBasedIndex(idx plsql.Expr) {
	if lit, ok := idx.(*plsql.Literal); ok && lit.Type == plsql.LiteralNumber {
		if n, err := strconv.Atoi(lit.Value); err == nil {
			r.p.write(strconv.Itoa(n - 1))
			return
		}
	}
	r.p.write("(")
	r.emitExpr(idx)
	r.p.write(" - 1)::int")
}

// emitConstructor renders a collection constructor call as a jsonb value:
// a literal when every element is a literal, jsonb_build_array otherwise.
func (r *run) emitConstructor(call *plsql.FuncCall, def *types.InlineTypeDefinition) {
	if len(call.Args) == 0 {
		r.p.write(emptyDocument(def.Kind))
		return
	}

	if parts, ok := literalJSONParts(call.Args); ok {
		r.p.write(quoteLiteral("["+strings.Join(parts, ", ")+"]") + "::jsonb")
		return
	}

	r.p.write("jsonb_build_array(")
	r.p.list(len(call.Args), func(i int) {
		r.emitExpr(call.Args[i])
	}, ", ")
	r.p.write(")")
}

// literalJSONParts converts constructor arguments into JSON fragments when
// all of them are literals.
func literalJSONParts(args []plsql.Expr) ([]string, bool) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		lit, ok := a.(*plsql.Literal)
		if !ok {
			return nil, false
		}
		switch lit.Type {
		case plsql.LiteralNumber:
			parts = append(parts, lit.Value)
		case plsql.LiteralString:
			parts = append(parts, strconv.Quote(lit.Value))
		default:
			parts = append(parts, "null")
		}
	}
	return parts, true
}

// emitDocumentAssignment rewrites writes into records and collection
// elements as jsonb_set on the containing variable. Returns false when the
// target is an ordinary variable.
func (r *run) emitDocumentAssignment(a *plsql.Assignment) bool {
	switch target := a.Target.(type) {
	case *plsql.ColumnRef:
		if len(target.Path) < 2 {
			return false
		}
		head := strings.ToLower(target.Path[0])
		def, ok := r.recordVar(head)
		if !ok {
			return false
		}
		if _, ok := def.Field(target.Path[1]); !ok {
			r.warnf(KindManualReview, target.Pos(), "field %s is not part of record %s", target.Path[1], head)
		}
		path := make([]string, 0, len(target.Path)-1)
		for _, f := range target.Path[1:] {
			path = append(path, strings.ToLower(f))
		}
		r.p.write(head + " := jsonb_set(" + head + ", '{" + strings.Join(path, ",") + "}', ")
		r.emitToJSONB(a.Value)
		r.p.write(");")
		return true

	case *plsql.FuncCall:
		if len(target.Path) != 1 || len(target.Args) != 1 {
			return false
		}
		head := strings.ToLower(target.Path[0])
		if _, ok := r.collectionVar(head); !ok {
			return false
		}
		r.p.write(head + " := jsonb_set(" + head + ", ARRAY[")
		r.emitIndexAsText(target.Args[0])
		r.p.write("], ")
		r.emitToJSONB(a.Value)
		r.p.write(");")
		return true
	}
	return false
}

// emitIndexAsText prints a zero-based index as the text element of a
// jsonb_set path array.
func (r *run) emitIndexAsText(idx plsql.Expr) {
	if lit, ok := idx.(*plsql.Literal); ok && lit.Type == plsql.LiteralNumber {
		if n, err := strconv.Atoi(lit.Value); err == nil {
			r.p.write(quoteLiteral(strconv.Itoa(n - 1)))
			return
		}
	}
	r.p.write("(")
	r.emitExpr(idx)
	r.p.write(" - 1)::text")
}

// emitToJSONB wraps the assigned value for jsonb_set. String literals cast
// to text so to_jsonb produces a JSON string rather than failing to pick an
// overload.
func (r *run) emitToJSONB(value plsql.Expr) {
	r.p.write("to_jsonb(")
	if lit, ok := value.(*plsql.Literal); ok && lit.Type == plsql.LiteralString {
		r.p.write(quoteLiteral(lit.Value) + "::text")
	} else {
		r.emitExpr(value)
	}
	r.p.write(")")
}

// emitCollectionMutation rewrites mutating collection method calls, which
// are statements in Oracle, into jsonb assignments. Returns false when the
// call is not a collection mutation.
func (r *run) emitCollectionMutation(s *plsql.CallStmt) bool {
	call := s.Call
	if len(call.Path) != 2 {
		return false
	}
	head := strings.ToLower(call.Path[0])
	def, ok := r.collectionVar(head)
	if !ok {
		return false
	}

	switch call.Name() {
	case "delete":
		if len(call.Args) == 0 {
			r.p.write(head + " := " + emptyDocument(def.Kind) + ";")
			return true
		}
		r.p.write(head + " := " + head + " - ")
		r.emitZeroBasedIndex(call.Args[0])
		r.p.write(";")
		return true
	case "extend":
		// EXTEND appends an empty slot; jsonb arrays grow on write instead.
		r.p.write(head + " := " + head + " || 'null'::jsonb;")
		r.warnf(KindManualReview, s.Pos(), "%s.EXTEND mapped to a null append; verify element writes cover the new slot", call.Path[0])
		return true
	default:
		r.errorf(KindUnsupportedConstruct, s.Pos(), "collection method %s.%s is not supported as a statement", call.Path[0], call.Name())
		return true
	}
}
