// Package types defines the type model shared by the inference and
// generation layers: the coarse type categories used for rewrite decisions
// and the definitions of PL/SQL inline types (collections and records).
package types

import "strings"

// Category is the coarse type classification used by the rewrite passes.
// It is deliberately narrow: the generator only needs to know whether an
// expression is date-valued, numeric, textual, boolean, or a
// collection/record it must map to a document value.
type Category int

const (
	// Unknown means no evaluator could classify the expression.
	Unknown Category = iota
	// Numeric covers NUMBER, INTEGER, BINARY_*, PLS_INTEGER and friends.
	Numeric
	// Text covers VARCHAR2, CHAR, CLOB, NVARCHAR2 and friends.
	Text
	// Date covers DATE and the TIMESTAMP family.
	Date
	// Boolean covers PL/SQL BOOLEAN.
	Boolean
	// Collection covers TABLE OF, VARRAY and INDEX BY types.
	Collection
	// Record covers RECORD types and %ROWTYPE references.
	Record
)

// String returns the lowercase name of the category.
func (c Category) String() string {
	switch c {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Date:
		return "date"
	case Boolean:
		return "boolean"
	case Collection:
		return "collection"
	case Record:
		return "record"
	default:
		return "unknown"
	}
}

// IsKnown reports whether the category carries usable information.
func (c Category) IsKnown() bool {
	return c != Unknown
}

// InferredType is the result of evaluating an expression's type. Besides the
// category it carries the resolved Oracle type name (when one is known) and,
// for collections and records, the inline definition the name resolved to.
type InferredType struct {
	Category Category
	// OracleName is the declared Oracle type name, lowercase, when the
	// category came from a catalog or declaration lookup ("varchar2",
	// "number", "date"). Empty for purely syntactic classifications.
	OracleName string
	// Definition is set when the type is a collection or record.
	Definition *InlineTypeDefinition
}

// UnknownType is the zero value returned whenever classification fails.
// Absence of information is always represented by it, never by nil.
var UnknownType = InferredType{Category: Unknown}

// CategoryOfOracleType maps a declared Oracle scalar type name to a category.
// Unrecognized names map to Unknown.
func CategoryOfOracleType(name string) Category {
	base := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "number", "integer", "int", "smallint", "decimal", "numeric",
		"float", "real", "binary_float", "binary_double", "binary_integer",
		"pls_integer", "natural", "positive":
		return Numeric
	case "varchar2", "varchar", "char", "nchar", "nvarchar2", "clob",
		"nclob", "long", "string", "rowid", "urowid":
		return Text
	case "date", "timestamp":
		return Date
	case "boolean":
		return Boolean
	default:
		if strings.HasPrefix(base, "timestamp") || strings.HasPrefix(base, "interval") {
			return Date
		}
		return Unknown
	}
}

// CollectionKind distinguishes the PL/SQL composite type forms.
type CollectionKind int

const (
	// KindTableOf is a nested table: TYPE t IS TABLE OF elem.
	KindTableOf CollectionKind = iota
	// KindVarray is a bounded array: TYPE t IS VARRAY(n) OF elem.
	KindVarray
	// KindIndexBy is an associative array: TABLE OF elem INDEX BY key.
	KindIndexBy
	// KindRecord is an explicit record: TYPE t IS RECORD (fields).
	KindRecord
	// KindRowType is an implicit record from table%ROWTYPE.
	KindRowType
)

// String returns the keyword-ish name of the kind.
func (k CollectionKind) String() string {
	switch k {
	case KindTableOf:
		return "table of"
	case KindVarray:
		return "varray"
	case KindIndexBy:
		return "index by"
	case KindRecord:
		return "record"
	case KindRowType:
		return "rowtype"
	default:
		return "unknown"
	}
}

// IsOrdered reports whether values of this kind keep positional order and
// therefore map to a JSON array rather than a JSON object.
func (k CollectionKind) IsOrdered() bool {
	return k == KindTableOf || k == KindVarray
}

// RecordField is one field of a record or rowtype definition.
type RecordField struct {
	Name       string
	OracleType string
	Category   Category
}

// InlineTypeDefinition describes a composite type declared in a DECLARE
// section, a package spec, or recovered from a %ROWTYPE reference. Names are
// stored lowercase; lookup through the registry is case-insensitive.
type InlineTypeDefinition struct {
	Name string
	Kind CollectionKind
	// ElementType is the Oracle element type name for collection kinds.
	ElementType string
	// ElementCategory is the classified category of ElementType.
	ElementCategory Category
	// Limit is the VARRAY bound, zero otherwise.
	Limit int
	// IndexType is the INDEX BY key type, empty otherwise.
	IndexType string
	// Fields holds record/rowtype fields in declaration order.
	Fields []RecordField
	// SourceTable is the referenced table for rowtype definitions.
	SourceTable string
}

// Field returns the named field of a record definition, case-insensitively.
func (d *InlineTypeDefinition) Field(name string) (RecordField, bool) {
	for _, f := range d.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return RecordField{}, false
}

// Type returns the inferred type a variable declared with this definition has.
func (d *InlineTypeDefinition) Type() InferredType {
	cat := Collection
	if d.Kind == KindRecord || d.Kind == KindRowType {
		cat = Record
	}
	return InferredType{Category: cat, OracleName: d.Name, Definition: d}
}
