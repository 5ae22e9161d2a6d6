package plsql

import "strings"

// Node is implemented by every AST node.
type Node interface {
	// Pos returns the position of the first token of the node.
	Pos() Position
}

// NodeInfo provides the common position implementation embedded by all nodes.
type NodeInfo struct {
	Position Position
}

// Pos returns the node's source position.
func (n NodeInfo) Pos() Position { return n.Position }

// =============================================================================
// Statements
// =============================================================================

// Statement is implemented by all statement nodes.
type Statement interface {
	Node
	stmtNode()
}

// SelectStmt is a SELECT statement, optionally with an INTO list when it
// appears inside a PL/SQL body.
type SelectStmt struct {
	NodeInfo
	Distinct bool
	Columns  []SelectItem
	Into     []Expr
	From     []TableItem
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderItem
}

func (s *SelectStmt) stmtNode() {}

// SelectItem is one projected expression with an optional alias.
type SelectItem struct {
	Expr  Expr
	Alias string
	Star  bool // bare * projection
}

// TableItem is one entry of a comma-separated FROM list.
type TableItem struct {
	NodeInfo
	Schema string
	Name   string
	Alias  string
}

// Key returns the name the table is referenced by in predicates: the alias
// when present, the table name otherwise. Lowercase.
func (t TableItem) Key() string {
	if t.Alias != "" {
		return strings.ToLower(t.Alias)
	}
	return strings.ToLower(t.Name)
}

// OrderItem is one ORDER BY entry.
type OrderItem struct {
	Expr Expr
	Desc bool
}

// Block is an anonymous PL/SQL block: DECLARE ... BEGIN ... END.
type Block struct {
	NodeInfo
	Decls    []Decl
	Stmts    []Statement
	Handlers []Handler
}

func (b *Block) stmtNode() {}

// Handler is one EXCEPTION WHEN name THEN ... arm.
type Handler struct {
	Name  string // exception name, OTHERS included
	Stmts []Statement
}

// Assignment is target := value.
type Assignment struct {
	NodeInfo
	Target Expr
	Value  Expr
}

func (a *Assignment) stmtNode() {}

// IfStmt is IF ... THEN ... [ELSIF ...] [ELSE ...] END IF.
type IfStmt struct {
	NodeInfo
	Cond   Expr
	Then   []Statement
	Elsifs []ElsifBranch
	Else   []Statement
}

func (i *IfStmt) stmtNode() {}

// ElsifBranch is one ELSIF arm of an IfStmt.
type ElsifBranch struct {
	Cond Expr
	Then []Statement
}

// LoopKind distinguishes the loop statement forms.
type LoopKind int

// Loop kinds.
const (
	LoopBasic LoopKind = iota
	LoopWhile
	LoopForRange
)

// LoopStmt covers LOOP, WHILE ... LOOP and FOR i IN a..b LOOP.
type LoopStmt struct {
	NodeInfo
	Kind    LoopKind
	Cond    Expr   // WHILE condition
	Var     string // FOR loop variable
	Reverse bool
	Lower   Expr
	Upper   Expr
	Body    []Statement
}

func (l *LoopStmt) stmtNode() {}

// ExitStmt is EXIT [WHEN cond].
type ExitStmt struct {
	NodeInfo
	When Expr
}

func (e *ExitStmt) stmtNode() {}

// ReturnStmt is RETURN [expr].
type ReturnStmt struct {
	NodeInfo
	Value Expr
}

func (r *ReturnStmt) stmtNode() {}

// NullStmt is the PL/SQL no-op statement.
type NullStmt struct {
	NodeInfo
}

func (n *NullStmt) stmtNode() {}

// CallStmt is a bare procedure call statement.
type CallStmt struct {
	NodeInfo
	Call *FuncCall
}

func (c *CallStmt) stmtNode() {}

// PackageSpec is CREATE OR REPLACE PACKAGE name IS <decls> END.
type PackageSpec struct {
	NodeInfo
	Schema string
	Name   string
	Decls  []Decl
}

func (p *PackageSpec) stmtNode() {}

// =============================================================================
// Declarations
// =============================================================================

// Decl is implemented by DECLARE-section entries.
type Decl interface {
	Node
	declNode()
}

// TypeRef is a syntactic reference to a type in a declaration: a plain name,
// a name%TYPE, or a table%ROWTYPE.
type TypeRef struct {
	// Name is the written type name or, for attribute references, the
	// referenced object path joined with dots.
	Name string
	// RowType is set for table%ROWTYPE.
	RowType bool
	// ColType is set for table.column%TYPE.
	ColType bool
}

// VarDecl is a variable or constant declaration.
type VarDecl struct {
	NodeInfo
	Name     string
	Type     TypeRef
	Constant bool
	Default  Expr
}

func (v *VarDecl) declNode() {}

// TypeKind distinguishes the inline TYPE declaration forms.
type TypeKind int

// Type declaration kinds.
const (
	TypeTableOf TypeKind = iota
	TypeVarray
	TypeIndexBy
	TypeRecord
)

// FieldDecl is one field of a RECORD type declaration.
type FieldDecl struct {
	Name string
	Type TypeRef
}

// TypeDecl is an inline TYPE declaration in a DECLARE section or package.
type TypeDecl struct {
	NodeInfo
	Name    string
	Kind    TypeKind
	Elem    TypeRef // element type for collection kinds
	Limit   int     // VARRAY bound
	IndexBy string  // INDEX BY key type
	Fields  []FieldDecl
}

func (t *TypeDecl) declNode() {}

// =============================================================================
// Expressions
// =============================================================================

// Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// ColumnRef is a dotted identifier chain: column, alias.column,
// schema.table.column, or a variable/record-field path. An Oracle outer-join
// marker (+) following the reference sets OuterJoin.
type ColumnRef struct {
	NodeInfo
	Path      []string
	OuterJoin bool
}

func (c *ColumnRef) exprNode() {}

// Column returns the last path element, lowercase.
func (c *ColumnRef) Column() string {
	return strings.ToLower(c.Path[len(c.Path)-1])
}

// Qualifier returns the path element before the column, lowercase, or "".
func (c *ColumnRef) Qualifier() string {
	if len(c.Path) < 2 {
		return ""
	}
	return strings.ToLower(c.Path[len(c.Path)-2])
}

// String returns the path as written, joined with dots.
func (c *ColumnRef) String() string {
	return strings.Join(c.Path, ".")
}

// LiteralType identifies the kind of a literal.
type LiteralType int

// Literal kinds.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralNull
)

// Literal is a number, string, or NULL literal. Value holds the raw text
// without quotes for strings.
type Literal struct {
	NodeInfo
	Type  LiteralType
	Value string
}

func (l *Literal) exprNode() {}

// BinaryExpr is a binary operation. Op is the operator token type.
type BinaryExpr struct {
	NodeInfo
	Left  Expr
	Op    TokenType
	Right Expr
}

func (b *BinaryExpr) exprNode() {}

// UnaryExpr is NOT expr, -expr or +expr.
type UnaryExpr struct {
	NodeInfo
	Op      TokenType
	Operand Expr
}

func (u *UnaryExpr) exprNode() {}

// FuncCall is a function, method, or constructor invocation. Path holds the
// dotted name as written: NVL, pkg.fn, v_nums.EXISTS.
type FuncCall struct {
	NodeInfo
	Path []string
	Args []Expr
	Star bool // COUNT(*)
}

func (f *FuncCall) exprNode() {}

// Name returns the last path element, lowercase.
func (f *FuncCall) Name() string {
	return strings.ToLower(f.Path[len(f.Path)-1])
}

// Qualifier returns the path before the name, lowercase, or "".
func (f *FuncCall) Qualifier() string {
	if len(f.Path) < 2 {
		return ""
	}
	return strings.ToLower(strings.Join(f.Path[:len(f.Path)-1], "."))
}

// WhenClause is one WHEN ... THEN ... arm of a CASE expression.
type WhenClause struct {
	Cond   Expr
	Result Expr
}

// CaseExpr is a simple (Operand set) or searched CASE expression.
type CaseExpr struct {
	NodeInfo
	Operand Expr
	Whens   []WhenClause
	Else    Expr
}

func (c *CaseExpr) exprNode() {}

// ParenExpr preserves explicit grouping parentheses.
type ParenExpr struct {
	NodeInfo
	Inner Expr
}

func (p *ParenExpr) exprNode() {}

// SubqueryExpr is a parenthesized scalar subquery or the operand of EXISTS/IN.
type SubqueryExpr struct {
	NodeInfo
	Select *SelectStmt
}

func (s *SubqueryExpr) exprNode() {}

// ExistsExpr is EXISTS (subquery).
type ExistsExpr struct {
	NodeInfo
	Subquery *SubqueryExpr
}

func (e *ExistsExpr) exprNode() {}

// InExpr is expr [NOT] IN (list | subquery).
type InExpr struct {
	NodeInfo
	Operand  Expr
	Not      bool
	List     []Expr
	Subquery *SubqueryExpr
}

func (i *InExpr) exprNode() {}

// BetweenExpr is expr [NOT] BETWEEN low AND high.
type BetweenExpr struct {
	NodeInfo
	Operand Expr
	Not     bool
	Low     Expr
	High    Expr
}

func (b *BetweenExpr) exprNode() {}

// LikeExpr is expr [NOT] LIKE pattern.
type LikeExpr struct {
	NodeInfo
	Operand Expr
	Not     bool
	Pattern Expr
}

func (l *LikeExpr) exprNode() {}

// IsNullExpr is expr IS [NOT] NULL.
type IsNullExpr struct {
	NodeInfo
	Operand Expr
	Not     bool
}

func (i *IsNullExpr) exprNode() {}
