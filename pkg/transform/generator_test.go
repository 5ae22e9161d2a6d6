package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/internal/testutil"
	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

func empCatalog() *catalog.Metadata {
	m := catalog.Empty("hr")
	m.AddTable(&catalog.Table{
		Schema: "hr",
		Name:   "emp",
		Columns: []catalog.Column{
			{Name: "empno", OracleType: "number", Category: types.Numeric},
			{Name: "ename", OracleType: "varchar2(50)", Category: types.Text},
			{Name: "hire_date", OracleType: "date", Category: types.Date},
			{Name: "sal", OracleType: "number", Category: types.Numeric},
			{Name: "deptno", OracleType: "number", Category: types.Numeric},
		},
	})
	m.AddTable(&catalog.Table{
		Schema: "hr",
		Name:   "dept",
		Columns: []catalog.Column{
			{Name: "deptno", OracleType: "number", Category: types.Numeric},
			{Name: "dname", OracleType: "varchar2(30)", Category: types.Text},
		},
	})
	m.AddPackageFunction(catalog.PackageFunction{
		Package: "emp_pkg", Name: "get_sal", ReturnType: "number", Category: types.Numeric,
	})
	return m
}

func transformSource(t *testing.T, cat *catalog.Metadata, src string) *Result {
	t.Helper()
	stmt, err := plsql.Parse(src)
	require.NoError(t, err)
	g := New(cat, infer.NewHeuristicEvaluator(), WithLogger(testutil.NewTestLogger(t)))
	return g.Transform(stmt)
}

func sql(t *testing.T, src string) string {
	t.Helper()
	res := transformSource(t, empCatalog(), src)
	require.NoError(t, res.Err(), "diagnostics: %v", res.Diagnostics)
	return res.SQL
}

func TestTransformPassThroughSelect(t *testing.T) {
	got := sql(t, "SELECT e.ename, e.sal FROM emp e WHERE e.sal > 1000 ORDER BY e.ename")
	assert.Equal(t, "SELECT e.ename, e.sal FROM emp e WHERE e.sal > 1000 ORDER BY e.ename", got)
}

func TestTransformSelectIsIdempotent(t *testing.T) {
	src := "SELECT e.ename FROM emp e WHERE e.deptno = 10"
	first := sql(t, src)
	assert.Equal(t, first, sql(t, first))
}

func TestTransformSelectClauses(t *testing.T) {
	got := sql(t, "SELECT DISTINCT deptno, COUNT(*) FROM emp GROUP BY deptno HAVING COUNT(*) > 2 ORDER BY deptno DESC")
	assert.Equal(t, "SELECT DISTINCT deptno, COUNT(*) FROM emp GROUP BY deptno HAVING COUNT(*) > 2 ORDER BY deptno DESC", got)
}

func TestTransformSelectInto(t *testing.T) {
	got := sql(t, "SELECT ename INTO v_name FROM emp WHERE empno = 7839")
	assert.Equal(t, "SELECT ename INTO v_name FROM emp WHERE empno = 7839;", got)
}

func TestTransformSelectItemAlias(t *testing.T) {
	got := sql(t, "SELECT e.sal * 12 AS annual FROM emp e")
	assert.Equal(t, "SELECT e.sal * 12 AS annual FROM emp e", got)
}

func TestTransformRunIDAssigned(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT ename FROM emp")
	assert.NotEmpty(t, res.RunID)
}

// =============================================================================
// Outer joins
// =============================================================================

func TestOuterJoinLeft(t *testing.T) {
	got := sql(t, "SELECT a.f1 FROM a, b WHERE a.f1 = b.f1 (+)")
	assert.Equal(t, "SELECT a.f1 FROM a LEFT JOIN b ON a.f1 = b.f1", got)
}

func TestOuterJoinRight(t *testing.T) {
	got := sql(t, "SELECT d.dname FROM emp e, dept d WHERE e.deptno (+) = d.deptno")
	assert.Equal(t, "SELECT d.dname FROM emp e RIGHT JOIN dept d ON e.deptno = d.deptno", got)
}

func TestOuterJoinKeepsRemainingWhere(t *testing.T) {
	got := sql(t, "SELECT e.ename FROM emp e, dept d WHERE e.deptno = d.deptno (+) AND e.sal > 1000")
	assert.Equal(t, "SELECT e.ename FROM emp e LEFT JOIN dept d ON e.deptno = d.deptno WHERE e.sal > 1000", got)
}

func TestOuterJoinMultipleConditionsSameGroup(t *testing.T) {
	got := sql(t, "SELECT a.f1 FROM a, b WHERE a.f1 = b.f1 (+) AND a.f2 = b.f2 (+)")
	assert.Equal(t, "SELECT a.f1 FROM a LEFT JOIN b ON a.f1 = b.f1 AND a.f2 = b.f2", got)
}

func TestOuterJoinUnrelatedTableCrossJoins(t *testing.T) {
	got := sql(t, "SELECT a.f1 FROM a, b, c WHERE a.f1 = b.f1 (+)")
	assert.Equal(t, "SELECT a.f1 FROM a LEFT JOIN b ON a.f1 = b.f1 CROSS JOIN c", got)
}

func TestOuterJoinBothSidesMarkedFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT a.f1 FROM a, b WHERE a.f1 (+) = b.f1 (+)")
	require.True(t, res.HasErrors())
	assert.Empty(t, res.SQL)
}

func TestOuterJoinNonEqualityFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT a.f1 FROM a, b WHERE a.f1 (+) > b.f1")
	require.True(t, res.HasErrors())
	assert.Empty(t, res.SQL)
	assert.Equal(t, KindUnsupportedConstruct, res.Diagnostics[0].Kind)
}

func TestOuterJoinUnresolvableQualifierFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT a.f1 FROM a, b WHERE x.f1 = b.f1 (+)")
	require.True(t, res.HasErrors())
	assert.Equal(t, KindUnresolvableReference, res.Diagnostics[0].Kind)
}

func TestFailedRunProducesNoPartialOutput(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT REGEXP_INSTR(ename, 'a') FROM emp")
	require.True(t, res.HasErrors())
	assert.Empty(t, res.SQL)
	assert.Error(t, res.Err())
}

// =============================================================================
// Date arithmetic
// =============================================================================

func TestDateArithmeticAddDays(t *testing.T) {
	got := sql(t, "SELECT hire_date + 30 FROM emp")
	assert.Equal(t, "SELECT hire_date + (30 * INTERVAL '1 day') FROM emp", got)
}

func TestDateArithmeticSubtractDays(t *testing.T) {
	got := sql(t, "SELECT hire_date - 7 FROM emp")
	assert.Equal(t, "SELECT hire_date - (7 * INTERVAL '1 day') FROM emp", got)
}

func TestDateArithmeticNumberFirstReorders(t *testing.T) {
	got := sql(t, "SELECT 30 + hire_date FROM emp")
	assert.Equal(t, "SELECT hire_date + (30 * INTERVAL '1 day') FROM emp", got)
}

func TestDateArithmeticCompoundCount(t *testing.T) {
	got := sql(t, "SELECT hire_date + v_days * 2 FROM emp")
	assert.Equal(t, "SELECT hire_date + ((v_days * 2) * INTERVAL '1 day') FROM emp", got)
}

func TestDateMinusDatePassesThrough(t *testing.T) {
	got := sql(t, "SELECT end_date - start_date FROM projects")
	assert.Equal(t, "SELECT end_date - start_date FROM projects", got)
}

func TestPlainNumericArithmeticUntouched(t *testing.T) {
	got := sql(t, "SELECT sal + 100 FROM emp")
	assert.Equal(t, "SELECT sal + 100 FROM emp", got)
}

func TestSysdateBecomesCurrentTimestamp(t *testing.T) {
	got := sql(t, "SELECT SYSDATE FROM dual")
	assert.Equal(t, "SELECT CURRENT_TIMESTAMP FROM dual", got)
}

// =============================================================================
// Diagnostics order
// =============================================================================

func TestDiagnosticsKeepDocumentOrder(t *testing.T) {
	res := transformSource(t, empCatalog(),
		"SELECT MONTHS_BETWEEN(end_date, hire_date), SUBSTR(ename, -3) FROM emp")
	require.False(t, res.HasErrors())
	require.Len(t, res.Diagnostics, 2)
	assert.Contains(t, res.Diagnostics[0].Message, "MONTHS_BETWEEN")
	assert.Contains(t, res.Diagnostics[1].Message, "SUBSTR")
}

func TestDiagnosticStringFormat(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		Kind:     KindUnsupportedConstruct,
		Message:  "no can do",
		Pos:      plsql.Position{Line: 3, Column: 7},
	}
	assert.Equal(t, "3:7: error: unsupported-construct: no can do", d.String())
}

func TestSeverityStrings(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "info", SeverityInfo.String())
}

// =============================================================================
// Control flow
// =============================================================================

func TestTransformBlockControlFlow(t *testing.T) {
	src := strings.Join([]string{
		"BEGIN",
		"  IF v_total > 10 THEN",
		"    v_total := 0;",
		"  ELSIF v_total > 5 THEN",
		"    v_total := 1;",
		"  ELSE",
		"    NULL;",
		"  END IF;",
		"  FOR i IN 1..5 LOOP",
		"    v_total := v_total + i;",
		"  END LOOP;",
		"END;",
	}, "\n")

	want := strings.Join([]string{
		"BEGIN",
		"  IF v_total > 10 THEN",
		"    v_total := 0;",
		"  ELSIF v_total > 5 THEN",
		"    v_total := 1;",
		"  ELSE",
		"    NULL;",
		"  END IF;",
		"  FOR i IN 1..5 LOOP",
		"    v_total := v_total + i;",
		"  END LOOP;",
		"END;",
	}, "\n")

	assert.Equal(t, want, sql(t, src))
}

func TestTransformExceptionHandlers(t *testing.T) {
	src := strings.Join([]string{
		"BEGIN",
		"  NULL;",
		"EXCEPTION",
		"  WHEN no_data_found THEN",
		"    NULL;",
		"END;",
	}, "\n")

	want := strings.Join([]string{
		"BEGIN",
		"  NULL;",
		"EXCEPTION",
		"  WHEN NO_DATA_FOUND THEN",
		"    NULL;",
		"END;",
	}, "\n")

	assert.Equal(t, want, sql(t, src))
}

func TestTransformWhileLoopAndExit(t *testing.T) {
	src := strings.Join([]string{
		"BEGIN",
		"  WHILE v_i < 10 LOOP",
		"    v_i := v_i + 1;",
		"    EXIT WHEN v_i = 5;",
		"  END LOOP;",
		"END;",
	}, "\n")

	want := strings.Join([]string{
		"BEGIN",
		"  WHILE v_i < 10 LOOP",
		"    v_i := v_i + 1;",
		"    EXIT WHEN v_i = 5;",
		"  END LOOP;",
		"END;",
	}, "\n")

	assert.Equal(t, want, sql(t, src))
}

func TestTransformProcedureCallBecomesPerform(t *testing.T) {
	src := "BEGIN\n  log_event('hello');\nEND;"
	want := "BEGIN\n  PERFORM hr.log_event('hello');\nEND;"
	assert.Equal(t, want, sql(t, src))
}

// =============================================================================
// Catalog-driven inference
// =============================================================================

func TestCatalogDateColumnDrivesInterval(t *testing.T) {
	cat := catalog.Empty("hr")
	cat.AddTable(&catalog.Table{
		Schema: "hr",
		Name:   "accounts",
		Columns: []catalog.Column{
			{Name: "valid_until", OracleType: "date", Category: types.Date},
			{Name: "balance", OracleType: "number", Category: types.Numeric},
		},
	})

	res := transformSource(t, cat, "SELECT valid_until + 30 FROM accounts")
	require.NoError(t, res.Err())
	assert.Equal(t, "SELECT valid_until + (30 * INTERVAL '1 day') FROM accounts", res.SQL)
}

func TestCatalogNumericColumnWithDatedNameUntouched(t *testing.T) {
	cat := catalog.Empty("hr")
	cat.AddTable(&catalog.Table{
		Schema: "hr",
		Name:   "accounts",
		Columns: []catalog.Column{
			{Name: "start_count", OracleType: "number", Category: types.Numeric},
		},
	})

	res := transformSource(t, cat, "SELECT start_count + 1 FROM accounts")
	require.NoError(t, res.Err())
	assert.Equal(t, "SELECT start_count + 1 FROM accounts", res.SQL)
}

func TestEmptyCatalogFallsBackToHeuristics(t *testing.T) {
	res := transformSource(t, catalog.Empty("hr"), "SELECT hire_date + 7 FROM emp")
	require.NoError(t, res.Err())
	assert.Equal(t, "SELECT hire_date + (7 * INTERVAL '1 day') FROM emp", res.SQL)
}

func TestDateArithmeticTextOperandPassesThrough(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT hire_date + ename FROM emp")
	require.False(t, res.HasErrors())
	assert.Equal(t, "SELECT hire_date + ename FROM emp", res.SQL)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, KindManualReview, res.Diagnostics[0].Kind)
}
