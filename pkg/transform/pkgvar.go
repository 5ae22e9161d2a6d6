package transform

import (
	"strings"

	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/plsql"
)

// packageVar is the emission view of one package-level variable.
type packageVar struct {
	name        string
	pgType      string
	defaultText string
	constant    bool
}

// emitPackageHelpers turns a package specification into its session-state
// emulation: package variables live in custom settings managed through
// set_config and current_setting, fronted by generated initialize, getter
// and setter functions named <pkg>__<op>.
func (r *run) emitPackageHelpers(spec *plsql.PackageSpec) {
	schema := strings.ToLower(spec.Schema)
	if schema == "" {
		schema = r.g.cat.DefaultSchema()
	}
	pkg := strings.ToLower(spec.Name)
	prefix := schema + "." + pkg

	var vars []packageVar
	for _, d := range spec.Decls {
		switch decl := d.(type) {
		case *plsql.TypeDecl:
			def := infer.DefinitionFromDecl(r.reg, r.g.cat, decl)
			r.reg.RegisterPackageType(decl.Name, def)
		case *plsql.VarDecl:
			t := infer.ResolveTypeRef(r.reg, r.g.cat, decl.Type)
			r.reg.RegisterPackageVariable(decl.Name, t)

			v := packageVar{
				name:     strings.ToLower(decl.Name),
				constant: decl.Constant,
			}
			if t.Definition != nil {
				v.pgType = "jsonb"
				v.defaultText = emptyDocument(t.Definition.Kind)
			} else {
				v.pgType = pgScalarType(t, decl.Type.Name)
				v.defaultText = "NULL"
			}
			if decl.Default != nil {
				v.defaultText = r.renderExpr(decl.Default)
			}
			vars = append(vars, v)
		}
	}

	if r.failed {
		return
	}

	r.emitInitializer(prefix, vars)
	for _, v := range vars {
		r.p.writeln()
		r.p.writeln()
		r.emitGetter(prefix, v)
		if !v.constant {
			r.p.writeln()
			r.p.writeln()
			r.emitSetter(prefix, v)
		}
	}
}

// renderExpr evaluates an expression into a string on a side printer.
func (r *run) renderExpr(expr plsql.Expr) string {
	saved := r.p
	r.p = newPrinter()
	r.emitExpr(expr)
	out := r.p.String()
	r.p = saved
	return out
}

func (r *run) emitFunctionHead(name, params, returns string) {
	r.p.writeln("CREATE OR REPLACE FUNCTION " + name + "(" + params + ")")
	r.p.writeln("RETURNS " + returns)
	r.p.writeln("LANGUAGE plpgsql")
	r.p.writeln("AS $$")
	r.p.writeln("BEGIN")
}

// emitInitializer writes every variable's default into session settings. The
// __initialized sentinel keeps repeat calls cheap, so getters can invoke it
// unconditionally.
func (r *run) emitInitializer(prefix string, vars []packageVar) {
	r.emitFunctionHead(prefix+"__initialize", "", "void")
	r.p.indent()
	r.p.writeln("IF COALESCE(current_setting(" + quoteLiteral(prefix+".__initialized") + ", true), 'false') = 'true' THEN")
	r.p.indent()
	r.p.writeln("RETURN;")
	r.p.dedent()
	r.p.writeln("END IF;")
	for _, v := range vars {
		key := quoteLiteral(prefix + "." + v.name)
		if v.defaultText == "NULL" {
			r.p.writeln("PERFORM set_config(" + key + ", NULL, false);")
			continue
		}
		r.p.writeln("PERFORM set_config(" + key + ", (" + v.defaultText + ")::text, false);")
	}
	r.p.writeln("PERFORM set_config(" + quoteLiteral(prefix+".__initialized") + ", 'true', false);")
	r.p.dedent()
	r.p.writeln("END;")
	r.p.write("$$;")
}

func (r *run) emitGetter(prefix string, v packageVar) {
	key := quoteLiteral(prefix + "." + v.name)
	r.emitFunctionHead(prefix+"__get_"+v.name, "", v.pgType)
	r.p.indent()
	r.p.writeln("PERFORM " + prefix + "__initialize();")
	if v.defaultText == "NULL" {
		r.p.writeln("RETURN current_setting(" + key + ", true)::" + v.pgType + ";")
	} else {
		r.p.writeln("RETURN COALESCE(current_setting(" + key + ", true)::" + v.pgType + ", " + v.defaultText + ");")
	}
	r.p.dedent()
	r.p.writeln("EXCEPTION")
	r.p.indent()
	r.p.writeln("WHEN OTHERS THEN")
	r.p.indent()
	if v.defaultText == "NULL" {
		r.p.writeln("RETURN NULL;")
	} else {
		r.p.writeln("RETURN " + v.defaultText + ";")
	}
	r.p.dedent()
	r.p.dedent()
	r.p.writeln("END;")
	r.p.write("$$;")
}

func (r *run) emitSetter(prefix string, v packageVar) {
	key := quoteLiteral(prefix + "." + v.name)
	r.emitFunctionHead(prefix+"__set_"+v.name, "p_value "+v.pgType, "void")
	r.p.indent()
	r.p.writeln("PERFORM " + prefix + "__initialize();")
	r.p.writeln("PERFORM set_config(" + key + ", p_value::text, false);")
	r.p.dedent()
	r.p.writeln("END;")
	r.p.write("$$;")
}
