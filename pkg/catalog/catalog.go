// Package catalog holds the semantic metadata the engine resolves names
// against: table and view columns, schema-level type definitions, package
// functions, and synonyms. All lookups are case-insensitive; keys are
// normalized to lowercase on the way in.
package catalog

import (
	"sort"
	"strings"

	"github.com/sayiza/orapgsync/pkg/types"
)

// Column describes one column of a table or view.
type Column struct {
	Name       string
	OracleType string
	Category   types.Category
}

// Table describes a table or view with its columns in position order.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
}

// Column returns the named column, case-insensitively.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// ViewColumn is a declared output column of a view being generated. The
// PostgresType drives cast wrapping when the projected expression's inferred
// type disagrees with the declared one.
type ViewColumn struct {
	Name         string
	PostgresType string
	Category     types.Category
}

// PackageFunction is a function or procedure exposed by a package spec.
type PackageFunction struct {
	Package    string
	Name       string
	ReturnType string
	Category   types.Category
}

// PackageVariable is a package-level variable or constant. References to it
// are rewritten to emulation getter calls during generation.
type PackageVariable struct {
	Package    string
	Name       string
	OracleType string
	Category   types.Category
	Constant   bool
	Default    string // default value expression as written, may be empty
}

// Metadata is the resolved database catalog a transformation runs against.
// The zero value is not usable; construct through Empty or the loader.
type Metadata struct {
	tables    map[string]*Table
	viewCols  map[string][]ViewColumn
	funcs     map[string]PackageFunction
	vars      map[string]PackageVariable
	synonyms  map[string]string
	typeDefs  map[string]*types.InlineTypeDefinition
	defSchema string
}

// Empty returns a catalog with no objects and the given default schema.
func Empty(defaultSchema string) *Metadata {
	return &Metadata{
		tables:    make(map[string]*Table),
		viewCols:  make(map[string][]ViewColumn),
		funcs:     make(map[string]PackageFunction),
		vars:      make(map[string]PackageVariable),
		synonyms:  make(map[string]string),
		typeDefs:  make(map[string]*types.InlineTypeDefinition),
		defSchema: strings.ToLower(defaultSchema),
	}
}

// DefaultSchema returns the schema unqualified object names resolve in.
func (m *Metadata) DefaultSchema() string {
	return m.defSchema
}

// IsEmpty reports whether the metadata holds no objects at all. With an
// empty catalog, type answers can only come from heuristics.
func (m *Metadata) IsEmpty() bool {
	return len(m.tables) == 0 && len(m.viewCols) == 0 && len(m.synonyms) == 0 &&
		len(m.funcs) == 0 && len(m.vars) == 0 && len(m.typeDefs) == 0
}

func (m *Metadata) key(schema, name string) string {
	if schema == "" {
		schema = m.defSchema
	}
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}

// AddTable registers a table or view.
func (m *Metadata) AddTable(t *Table) {
	if t == nil || t.Name == "" {
		return
	}
	m.tables[m.key(t.Schema, t.Name)] = t
}

// Table resolves a table by schema and name, following one synonym hop.
func (m *Metadata) Table(schema, name string) (*Table, bool) {
	k := m.key(schema, name)
	if t, ok := m.tables[k]; ok {
		return t, true
	}
	if target, ok := m.synonyms[k]; ok {
		if t, ok := m.tables[target]; ok {
			return t, true
		}
	}
	return nil, false
}

// ColumnType resolves a column's type on a table or view.
func (m *Metadata) ColumnType(schema, table, column string) (types.InferredType, bool) {
	t, ok := m.Table(schema, table)
	if !ok {
		return types.UnknownType, false
	}
	c, ok := t.Column(column)
	if !ok {
		return types.UnknownType, false
	}
	return types.InferredType{Category: c.Category, OracleName: strings.ToLower(c.OracleType)}, true
}

// AddSynonym maps a synonym to its target object.
func (m *Metadata) AddSynonym(schema, name, targetSchema, targetName string) {
	if name == "" || targetName == "" {
		return
	}
	m.synonyms[m.key(schema, name)] = m.key(targetSchema, targetName)
}

// AddViewColumns declares the output columns of a view under generation.
func (m *Metadata) AddViewColumns(schema, view string, cols []ViewColumn) {
	if view == "" {
		return
	}
	m.viewCols[m.key(schema, view)] = cols
}

// ViewColumns returns the declared output columns of a view, in order.
func (m *Metadata) ViewColumns(schema, view string) ([]ViewColumn, bool) {
	cols, ok := m.viewCols[m.key(schema, view)]
	return cols, ok
}

// AddPackageFunction registers a package-level function or procedure.
func (m *Metadata) AddPackageFunction(f PackageFunction) {
	if f.Name == "" {
		return
	}
	m.funcs[strings.ToLower(f.Package)+"."+strings.ToLower(f.Name)] = f
}

// PackageFunction resolves a function by package and name.
func (m *Metadata) PackageFunction(pkg, name string) (PackageFunction, bool) {
	f, ok := m.funcs[strings.ToLower(pkg)+"."+strings.ToLower(name)]
	return f, ok
}

// AddPackageVariable registers a package-level variable.
func (m *Metadata) AddPackageVariable(v PackageVariable) {
	if v.Name == "" {
		return
	}
	m.vars[strings.ToLower(v.Package)+"."+strings.ToLower(v.Name)] = v
}

// PackageVariable resolves a package variable by package and name.
func (m *Metadata) PackageVariable(pkg, name string) (PackageVariable, bool) {
	v, ok := m.vars[strings.ToLower(pkg)+"."+strings.ToLower(name)]
	return v, ok
}

// AddTypeDefinition registers a schema-level collection or record type.
func (m *Metadata) AddTypeDefinition(def *types.InlineTypeDefinition) {
	if def == nil || def.Name == "" {
		return
	}
	m.typeDefs[strings.ToLower(def.Name)] = def
}

// TypeDefinition resolves a schema-level type by name.
func (m *Metadata) TypeDefinition(name string) (*types.InlineTypeDefinition, bool) {
	def, ok := m.typeDefs[strings.ToLower(name)]
	return def, ok
}

// Tables returns every registered table, sorted by schema and name.
func (m *Metadata) Tables() []*Table {
	keys := make([]string, 0, len(m.tables))
	for k := range m.tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Table, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.tables[k])
	}
	return out
}

// Synonyms returns the synonym map: "schema.name" keys to "schema.name"
// targets, both lowercase.
func (m *Metadata) Synonyms() map[string]string {
	out := make(map[string]string, len(m.synonyms))
	for k, v := range m.synonyms {
		out[k] = v
	}
	return out
}

// PackageFunctions returns every registered package function, sorted.
func (m *Metadata) PackageFunctions() []PackageFunction {
	keys := make([]string, 0, len(m.funcs))
	for k := range m.funcs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]PackageFunction, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.funcs[k])
	}
	return out
}

// PackageVariables returns every registered package variable, sorted.
func (m *Metadata) PackageVariables() []PackageVariable {
	keys := make([]string, 0, len(m.vars))
	for k := range m.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]PackageVariable, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.vars[k])
	}
	return out
}

// RowType builds a rowtype definition from a table's columns.
func (m *Metadata) RowType(schema, table string) (*types.InlineTypeDefinition, bool) {
	t, ok := m.Table(schema, table)
	if !ok {
		return nil, false
	}
	def := &types.InlineTypeDefinition{
		Name:        strings.ToLower(t.Name) + "%rowtype",
		Kind:        types.KindRowType,
		SourceTable: strings.ToLower(t.Name),
	}
	for _, c := range t.Columns {
		def.Fields = append(def.Fields, types.RecordField{
			Name:       strings.ToLower(c.Name),
			OracleType: strings.ToLower(c.OracleType),
			Category:   c.Category,
		})
	}
	return def, true
}
