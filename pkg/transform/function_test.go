package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNVLBecomesCoalesce(t *testing.T) {
	got := sql(t, "SELECT NVL(sal, 0) FROM emp")
	assert.Equal(t, "SELECT COALESCE(sal, 0) FROM emp", got)
}

func TestNVL2BecomesCase(t *testing.T) {
	got := sql(t, "SELECT NVL2(sal, 'paid', 'unpaid') FROM emp")
	assert.Equal(t, "SELECT CASE WHEN sal IS NOT NULL THEN 'paid' ELSE 'unpaid' END FROM emp", got)
}

func TestDecodeWithoutDefaultHasNoElse(t *testing.T) {
	got := sql(t, "SELECT DECODE(deptno, 10, 'ACCOUNTING', 20, 'RESEARCH') FROM emp")
	assert.Equal(t, "SELECT CASE deptno WHEN 10 THEN 'ACCOUNTING' WHEN 20 THEN 'RESEARCH' END FROM emp", got)
}

func TestDecodeWithDefault(t *testing.T) {
	got := sql(t, "SELECT DECODE(deptno, 10, 'ACCOUNTING', 'OTHER') FROM emp")
	assert.Equal(t, "SELECT CASE deptno WHEN 10 THEN 'ACCOUNTING' ELSE 'OTHER' END FROM emp", got)
}

func TestDecodeTooFewArgumentsFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT DECODE(deptno, 10) FROM emp")
	assert.True(t, res.HasErrors())
}

func TestSubstrTwoArguments(t *testing.T) {
	got := sql(t, "SELECT SUBSTR(ename, 2) FROM emp")
	assert.Equal(t, "SELECT SUBSTRING(ename FROM 2) FROM emp", got)
}

func TestSubstrThreeArguments(t *testing.T) {
	got := sql(t, "SELECT SUBSTR(ename, 2, 3) FROM emp")
	assert.Equal(t, "SELECT SUBSTRING(ename FROM 2 FOR 3) FROM emp", got)
}

func TestSubstrNegativePositionWarns(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT SUBSTR(ename, -3) FROM emp")
	require.False(t, res.HasErrors())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SeverityWarning, res.Diagnostics[0].Severity)
	assert.Equal(t, "SELECT SUBSTRING(ename FROM -3) FROM emp", res.SQL)
}

func TestInstrTwoArguments(t *testing.T) {
	got := sql(t, "SELECT INSTR(ename, 'A') FROM emp")
	assert.Equal(t, "SELECT POSITION('A' IN ename) FROM emp", got)
}

func TestInstrThreeArgumentsShiftsOffset(t *testing.T) {
	got := sql(t, "SELECT INSTR(ename, 'A', 3) FROM emp")
	want := "SELECT CASE WHEN POSITION('A' IN SUBSTRING(ename FROM 3)) = 0 THEN 0" +
		" ELSE POSITION('A' IN SUBSTRING(ename FROM 3)) + 3 - 1 END FROM emp"
	assert.Equal(t, want, got)
}

func TestInstrWithOccurrenceFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT INSTR(ename, 'A', 1, 2) FROM emp")
	assert.True(t, res.HasErrors())
}

func TestRegexpReplaceDefaultsToGlobal(t *testing.T) {
	got := sql(t, "SELECT REGEXP_REPLACE(ename, 'a+', 'b') FROM emp")
	assert.Equal(t, "SELECT REGEXP_REPLACE(ename, 'a+', 'b', 'g') FROM emp", got)
}

func TestRegexpReplaceTwoArgumentsStripsMatches(t *testing.T) {
	got := sql(t, "SELECT REGEXP_REPLACE(ename, 'a+') FROM emp")
	assert.Equal(t, "SELECT REGEXP_REPLACE(ename, 'a+', '', 'g') FROM emp", got)
}

func TestRegexpReplaceFirstOccurrenceOnly(t *testing.T) {
	got := sql(t, "SELECT REGEXP_REPLACE(ename, 'a+', 'b', 1, 1) FROM emp")
	assert.Equal(t, "SELECT REGEXP_REPLACE(ename, 'a+', 'b') FROM emp", got)
}

func TestRegexpReplaceMergesCaseFlag(t *testing.T) {
	got := sql(t, "SELECT REGEXP_REPLACE(ename, 'a+', 'b', 1, 0, 'i') FROM emp")
	assert.Equal(t, "SELECT REGEXP_REPLACE(ename, 'a+', 'b', 'ig') FROM emp", got)
}

func TestRegexpReplaceUnsupportedOccurrenceFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT REGEXP_REPLACE(ename, 'a+', 'b', 1, 3) FROM emp")
	assert.True(t, res.HasErrors())
}

func TestRegexpReplaceUnsupportedPositionFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT REGEXP_REPLACE(ename, 'a+', 'b', 5) FROM emp")
	assert.True(t, res.HasErrors())
}

func TestRegexpSubstrBecomesRegexpMatch(t *testing.T) {
	got := sql(t, "SELECT REGEXP_SUBSTR(ename, '[0-9]+') FROM emp")
	assert.Equal(t, "SELECT (REGEXP_MATCH(ename, '[0-9]+'))[1] FROM emp", got)
}

func TestRegexpInstrAlwaysFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT REGEXP_INSTR(ename, '[0-9]') FROM emp")
	require.True(t, res.HasErrors())
	assert.Equal(t, KindUnsupportedConstruct, res.Diagnostics[0].Kind)
}

func TestAddMonths(t *testing.T) {
	got := sql(t, "SELECT ADD_MONTHS(hire_date, 3) FROM emp")
	assert.Equal(t, "SELECT hire_date + (3 * INTERVAL '1 month') FROM emp", got)
}

func TestLastDay(t *testing.T) {
	got := sql(t, "SELECT LAST_DAY(hire_date) FROM emp")
	assert.Equal(t, "SELECT (DATE_TRUNC('month', hire_date) + INTERVAL '1 month' - INTERVAL '1 day') FROM emp", got)
}

func TestMonthsBetweenWarnsAboutFraction(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT MONTHS_BETWEEN(end_date, hire_date) FROM emp")
	require.False(t, res.HasErrors())
	assert.Contains(t, res.SQL, "EXTRACT(YEAR FROM AGE(end_date, hire_date)) * 12")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, SeverityWarning, res.Diagnostics[0].Severity)
}

func TestTruncOnDateBecomesDateTrunc(t *testing.T) {
	got := sql(t, "SELECT TRUNC(hire_date) FROM emp")
	assert.Equal(t, "SELECT DATE_TRUNC('day', hire_date) FROM emp", got)
}

func TestTruncWithFormatModel(t *testing.T) {
	got := sql(t, "SELECT TRUNC(hire_date, 'MM') FROM emp")
	assert.Equal(t, "SELECT DATE_TRUNC('month', hire_date) FROM emp", got)
}

func TestTruncOnNumberPassesThrough(t *testing.T) {
	got := sql(t, "SELECT TRUNC(sal, 2) FROM emp")
	assert.Equal(t, "SELECT TRUNC(sal, 2) FROM emp", got)
}

func TestPassThroughBuiltinUppercased(t *testing.T) {
	got := sql(t, "SELECT UPPER(ename), LENGTH(ename) FROM emp")
	assert.Equal(t, "SELECT UPPER(ename), LENGTH(ename) FROM emp", got)
}

func TestUnknownFunctionGetsSchemaQualified(t *testing.T) {
	got := sql(t, "SELECT calc_bonus(sal, 2) FROM emp")
	assert.Equal(t, "SELECT hr.calc_bonus(sal, 2) FROM emp", got)
}

func TestPackageFunctionFlattens(t *testing.T) {
	got := sql(t, "SELECT emp_pkg.get_sal(7839) FROM dual")
	assert.Equal(t, "SELECT hr.emp_pkg__get_sal(7839) FROM dual", got)
}

func TestUnknownQualifiedCallLowercases(t *testing.T) {
	got := sql(t, "SELECT other_schema.fn(1) FROM dual")
	assert.Equal(t, "SELECT other_schema.fn(1) FROM dual", got)
}

func TestCaseExpressionPassesThrough(t *testing.T) {
	got := sql(t, "SELECT CASE WHEN sal > 1000 THEN 'high' ELSE 'low' END FROM emp")
	assert.Equal(t, "SELECT CASE WHEN sal > 1000 THEN 'high' ELSE 'low' END FROM emp", got)
}

func TestInstrOccurrenceOneShiftsOffset(t *testing.T) {
	got := sql(t, "SELECT INSTR(ename, 'A', 3, 1) FROM emp")
	want := "SELECT CASE WHEN POSITION('A' IN SUBSTRING(ename FROM 3)) = 0 THEN 0" +
		" ELSE POSITION('A' IN SUBSTRING(ename FROM 3)) + 3 - 1 END FROM emp"
	assert.Equal(t, want, got)
}

func TestInstrFromStartWithOccurrenceOneIsPlainPosition(t *testing.T) {
	got := sql(t, "SELECT INSTR(ename, 'A', 1, 1) FROM emp")
	assert.Equal(t, "SELECT POSITION('A' IN ename) FROM emp", got)
}

func TestInstrNonLiteralOccurrenceFails(t *testing.T) {
	res := transformSource(t, empCatalog(), "SELECT INSTR(ename, 'A', 1, empno) FROM emp")
	assert.True(t, res.HasErrors())
}

func TestNestedRewritesRecurse(t *testing.T) {
	got := sql(t, "SELECT NVL(SUBSTR(ename, 1, 3), 'x') FROM emp")
	assert.Equal(t, "SELECT COALESCE(SUBSTRING(ename FROM 1 FOR 3), 'x') FROM emp", got)
}
