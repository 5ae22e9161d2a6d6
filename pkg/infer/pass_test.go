package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/internal/testutil"
	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/registry"
	"github.com/sayiza/orapgsync/pkg/types"
)

func hrCatalog() *catalog.Metadata {
	m := catalog.Empty("hr")
	m.AddTable(&catalog.Table{
		Schema: "hr",
		Name:   "emp",
		Columns: []catalog.Column{
			{Name: "empno", OracleType: "NUMBER", Category: types.Numeric},
			{Name: "ename", OracleType: "VARCHAR2(30)", Category: types.Text},
			{Name: "sal", OracleType: "NUMBER", Category: types.Numeric},
			{Name: "hiredate", OracleType: "DATE", Category: types.Date},
			{Name: "deptno", OracleType: "NUMBER", Category: types.Numeric},
		},
	})
	m.AddTable(&catalog.Table{
		Schema: "hr",
		Name:   "dept",
		Columns: []catalog.Column{
			{Name: "deptno", OracleType: "NUMBER", Category: types.Numeric},
			{Name: "dname", OracleType: "VARCHAR2(20)", Category: types.Text},
		},
	})
	return m
}

func runOn(t *testing.T, input string) (*TypeCache, plsql.Statement) {
	t.Helper()
	stmt, err := plsql.Parse(input)
	require.NoError(t, err)
	pass := NewPass(registry.New(), hrCatalog(), WithPassLogger(testutil.NewTestLogger(t)))
	return pass.Run(stmt), stmt
}

func TestPassResolvesAliasedColumns(t *testing.T) {
	cache, stmt := runOn(t, "SELECT e.ename, e.sal, e.hiredate FROM emp e")
	sel := stmt.(*plsql.SelectStmt)

	assert.Equal(t, types.Text, cache.Get(sel.Columns[0].Expr).Category)
	assert.Equal(t, types.Numeric, cache.Get(sel.Columns[1].Expr).Category)
	assert.Equal(t, types.Date, cache.Get(sel.Columns[2].Expr).Category)
}

func TestPassResolvesUnqualifiedColumns(t *testing.T) {
	cache, stmt := runOn(t, "SELECT ename, dname FROM emp, dept")
	sel := stmt.(*plsql.SelectStmt)

	assert.Equal(t, types.Text, cache.Get(sel.Columns[0].Expr).Category)
	assert.Equal(t, types.Text, cache.Get(sel.Columns[1].Expr).Category)
}

func TestPassAbsenceMeansUnknown(t *testing.T) {
	cache, stmt := runOn(t, "SELECT nosuch FROM emp")
	sel := stmt.(*plsql.SelectStmt)

	assert.Equal(t, types.Unknown, cache.Get(sel.Columns[0].Expr).Category)
	// a node the pass never saw is also Unknown
	assert.Equal(t, types.Unknown, cache.Get(&plsql.Literal{}).Category)
}

func TestPassScalarSubqueryType(t *testing.T) {
	cache, stmt := runOn(t, "SELECT (SELECT MAX(sal) FROM emp) FROM dept")
	sel := stmt.(*plsql.SelectStmt)

	assert.Equal(t, types.Numeric, cache.Get(sel.Columns[0].Expr).Category)
}

func TestPassCorrelatedSubqueryScope(t *testing.T) {
	cache, stmt := runOn(t, "SELECT (SELECT d.dname FROM dept d WHERE d.deptno = e.deptno) FROM emp e")
	sel := stmt.(*plsql.SelectStmt)

	assert.Equal(t, types.Text, cache.Get(sel.Columns[0].Expr).Category)
}

func TestPassCaseConflictIsUnknown(t *testing.T) {
	cache, stmt := runOn(t, "SELECT CASE WHEN sal > 0 THEN sal ELSE hiredate END FROM emp")
	sel := stmt.(*plsql.SelectStmt)

	assert.Equal(t, types.Unknown, cache.Get(sel.Columns[0].Expr).Category)
}

func TestPassBlockDeclarations(t *testing.T) {
	input := `DECLARE
  TYPE num_list_t IS TABLE OF NUMBER;
  v_nums num_list_t;
  v_row emp%ROWTYPE;
  v_name emp.ename%TYPE;
BEGIN
  v_total := v_nums.COUNT;
  v_first := v_row.ename;
END;`
	stmt, err := plsql.Parse(input)
	require.NoError(t, err)

	pass := NewPass(registry.New(), hrCatalog())
	cache := pass.Run(stmt)

	block := stmt.(*plsql.Block)
	countAsn := block.Stmts[0].(*plsql.Assignment)
	fieldAsn := block.Stmts[1].(*plsql.Assignment)

	// v_nums.COUNT parses as a dotted reference; the collection method
	// itself is classified during generation, the variable by the pass.
	_ = countAsn
	assert.Equal(t, types.Text, cache.Get(fieldAsn.Value).Category)
}

func TestPassPackageFunctionReturnType(t *testing.T) {
	cat := hrCatalog()
	cat.AddPackageFunction(catalog.PackageFunction{Package: "emp_pkg", Name: "bonus", ReturnType: "NUMBER", Category: types.Numeric})

	stmt, err := plsql.Parse("SELECT emp_pkg.bonus(empno) FROM emp")
	require.NoError(t, err)
	cache := NewPass(registry.New(), cat).Run(stmt)

	sel := stmt.(*plsql.SelectStmt)
	assert.Equal(t, types.Numeric, cache.Get(sel.Columns[0].Expr).Category)
}

func TestCacheEvaluatorAnswersFromCache(t *testing.T) {
	cache, stmt := runOn(t, "SELECT e.hiredate FROM emp e")
	sel := stmt.(*plsql.SelectStmt)

	eval := NewCacheEvaluator(cache)
	assert.Equal(t, types.Date, eval.Evaluate(sel.Columns[0].Expr).Category)
	assert.Equal(t, types.Unknown, eval.Evaluate(&plsql.Literal{}).Category)
}
