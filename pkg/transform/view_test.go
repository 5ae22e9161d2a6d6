package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/internal/testutil"
	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

func transformView(t *testing.T, cat *catalog.Metadata, view, src string) *Result {
	t.Helper()
	sel, err := plsql.ParseSelect(src)
	require.NoError(t, err)
	g := New(cat, infer.NewHeuristicEvaluator(), WithLogger(testutil.NewTestLogger(t)))
	return g.TransformView("", view, sel)
}

func TestViewCastsOnTypeDisagreement(t *testing.T) {
	cat := empCatalog()
	cat.AddViewColumns("hr", "v_codes", []catalog.ViewColumn{
		{Name: "code", PostgresType: "numeric", Category: types.Numeric},
	})

	res := transformView(t, cat, "v_codes", "SELECT SUBSTR(ename, 1, 5) FROM emp")
	require.NoError(t, res.Err())
	want := "CREATE OR REPLACE VIEW hr.v_codes AS\n" +
		"SELECT CAST(SUBSTRING(ename FROM 1 FOR 5) AS numeric) AS code FROM emp;"
	assert.Equal(t, want, res.SQL)
}

func TestViewNoCastWhenTypesAgree(t *testing.T) {
	cat := empCatalog()
	cat.AddViewColumns("hr", "v_names", []catalog.ViewColumn{
		{Name: "ename", PostgresType: "text", Category: types.Text},
	})

	res := transformView(t, cat, "v_names", "SELECT UPPER(ename) FROM emp")
	require.NoError(t, res.Err())
	assert.Equal(t, "CREATE OR REPLACE VIEW hr.v_names AS\nSELECT UPPER(ename) FROM emp;", res.SQL)
}

func TestViewNoCastWhenInferenceIsUnknown(t *testing.T) {
	cat := empCatalog()
	cat.AddViewColumns("hr", "v_sal", []catalog.ViewColumn{
		{Name: "sal", PostgresType: "numeric", Category: types.Numeric},
	})

	res := transformView(t, cat, "v_sal", "SELECT sal FROM emp")
	require.NoError(t, res.Err())
	assert.Equal(t, "CREATE OR REPLACE VIEW hr.v_sal AS\nSELECT sal FROM emp;", res.SQL)
}

func TestViewColumnCountMismatchWarns(t *testing.T) {
	cat := empCatalog()
	cat.AddViewColumns("hr", "v_two", []catalog.ViewColumn{
		{Name: "a", PostgresType: "text", Category: types.Text},
		{Name: "b", PostgresType: "text", Category: types.Text},
	})

	res := transformView(t, cat, "v_two", "SELECT ename FROM emp")
	require.NoError(t, res.Err())
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, KindManualReview, res.Diagnostics[0].Kind)
	assert.Equal(t, "CREATE OR REPLACE VIEW hr.v_two AS\nSELECT ename FROM emp;", res.SQL)
}

func TestViewWithoutDeclaredColumns(t *testing.T) {
	res := transformView(t, empCatalog(), "v_all", "SELECT ename, sal FROM emp WHERE sal > 0")
	require.NoError(t, res.Err())
	assert.Equal(t, "CREATE OR REPLACE VIEW hr.v_all AS\nSELECT ename, sal FROM emp WHERE sal > 0;", res.SQL)
}

func TestViewRewritesOuterJoins(t *testing.T) {
	res := transformView(t, empCatalog(), "v_emp_dept",
		"SELECT e.ename, d.dname FROM emp e, dept d WHERE e.deptno = d.deptno (+)")
	require.NoError(t, res.Err())
	assert.Equal(t,
		"CREATE OR REPLACE VIEW hr.v_emp_dept AS\n"+
			"SELECT e.ename, d.dname FROM emp e LEFT JOIN dept d ON e.deptno = d.deptno;",
		res.SQL)
}
