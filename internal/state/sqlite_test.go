package state

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/transform"
	"github.com/sayiza/orapgsync/pkg/types"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db, nil), mock
}

func TestRecordRunInsertsRunAndDiagnostics(t *testing.T) {
	s, mock := newMockStore(t)
	res := &transform.Result{
		RunID: "run-1",
		SQL:   "SELECT 1",
		Diagnostics: []transform.Diagnostic{
			{
				Severity: transform.SeverityWarning,
				Kind:     transform.KindManualReview,
				Message:  "check this",
				Pos:      plsql.Position{Line: 2, Column: 5},
			},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", "proc.sql", StatusOK, "SELECT 1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO run_diagnostics").
		WithArgs("run-1", 0, "warning", "manual-review", "check this", 2, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RecordRun(context.Background(), "proc.sql", res)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunFailedStatus(t *testing.T) {
	s, mock := newMockStore(t)
	res := &transform.Result{
		RunID: "run-2",
		Diagnostics: []transform.Diagnostic{
			{Severity: transform.SeverityError, Kind: transform.KindUnsupportedConstruct, Message: "nope"},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-2", "proc.sql", StatusFailed, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO run_diagnostics").
		WithArgs("run-2", 0, "error", "unsupported-construct", "nope", 0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RecordRun(context.Background(), "proc.sql", res)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunRollsBackOnInsertError(t *testing.T) {
	s, mock := newMockStore(t)
	res := &transform.Result{RunID: "run-3", SQL: "SELECT 1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.RecordRun(context.Background(), "proc.sql", res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRuns(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, source, status, output_sql, created_at").
		WithArgs("proc.sql").
		WillReturnRows(sqlmock.NewRows([]string{"id", "source", "status", "output_sql", "created_at"}).
			AddRow("run-2", "proc.sql", StatusFailed, "", created).
			AddRow("run-1", "proc.sql", StatusOK, "SELECT 1", created.Add(-time.Hour)))

	runs, err := s.ListRuns(context.Background(), "proc.sql")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "SELECT 1", runs[1].SQL)
}

func TestGetRunRestoresDiagnostics(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, source, status, output_sql, created_at FROM runs").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "source", "status", "output_sql", "created_at"}).
			AddRow("run-1", "proc.sql", StatusOK, "SELECT 1", created))
	mock.ExpectQuery("SELECT severity, kind, message, line, col").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"severity", "kind", "message", "line", "col"}).
			AddRow("warning", "manual-review", "check this", 2, 5))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "proc.sql", run.Source)
	require.Len(t, run.Diagnostics, 1)
	d := run.Diagnostics[0]
	assert.Equal(t, transform.SeverityWarning, d.Severity)
	assert.Equal(t, transform.KindManualReview, d.Kind)
	assert.Equal(t, 2, d.Pos.Line)
	assert.Equal(t, 5, d.Pos.Column)
}

func TestGetRunNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, source, status, output_sql, created_at FROM runs").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "source", "status", "output_sql", "created_at"}))

	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveCatalogWritesAllSections(t *testing.T) {
	s, mock := newMockStore(t)

	cat := catalog.Empty("hr")
	cat.AddTable(&catalog.Table{Schema: "hr", Name: "emp", Columns: []catalog.Column{
		{Name: "empno", OracleType: "number", Category: types.Numeric},
		{Name: "ename", OracleType: "varchar2(30)", Category: types.Text},
	}})
	cat.AddSynonym("hr", "employees", "hr", "emp")
	cat.AddPackageFunction(catalog.PackageFunction{Package: "emp_pkg", Name: "get_sal", ReturnType: "number", Category: types.Numeric})
	cat.AddPackageVariable(catalog.PackageVariable{Package: "emp_pkg", Name: "g_rate", OracleType: "number", Category: types.Numeric, Constant: true, Default: "0.2"})

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM catalog_columns").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM catalog_synonyms").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM catalog_package_functions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM catalog_package_variables").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO meta").WithArgs("hr").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO catalog_columns").
		WithArgs("hr", "emp", "empno", "number", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO catalog_columns").
		WithArgs("hr", "emp", "ename", "varchar2(30)", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO catalog_synonyms").
		WithArgs("hr", "employees", "hr", "emp").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO catalog_package_functions").
		WithArgs("emp_pkg", "get_sal", "number").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO catalog_package_variables").
		WithArgs("emp_pkg", "g_rate", "number", 1, "0.2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.SaveCatalog(context.Background(), cat)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCatalogRebuildsMetadata(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM meta").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("hr"))
	mock.ExpectQuery("SELECT schema_name, table_name, column_name, oracle_type").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name", "table_name", "column_name", "oracle_type"}).
			AddRow("hr", "emp", "empno", "number").
			AddRow("hr", "emp", "hire_date", "date"))
	mock.ExpectQuery("SELECT schema_name, synonym_name, target_schema, target_name").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name", "synonym_name", "target_schema", "target_name"}).
			AddRow("hr", "employees", "hr", "emp"))
	mock.ExpectQuery("SELECT package_name, function_name, return_type").
		WillReturnRows(sqlmock.NewRows([]string{"package_name", "function_name", "return_type"}).
			AddRow("emp_pkg", "get_sal", "number"))
	mock.ExpectQuery("SELECT package_name, variable_name, oracle_type, is_constant, default_value").
		WillReturnRows(sqlmock.NewRows([]string{"package_name", "variable_name", "oracle_type", "is_constant", "default_value"}).
			AddRow("emp_pkg", "g_rate", "number", 1, "0.2"))

	cat, err := s.LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hr", cat.DefaultSchema())

	it, ok := cat.ColumnType("", "emp", "hire_date")
	require.True(t, ok)
	assert.Equal(t, types.Date, it.Category)

	// Synonym hop resolves to the real table.
	tbl, ok := cat.Table("", "employees")
	require.True(t, ok)
	assert.Equal(t, "emp", tbl.Name)

	fn, ok := cat.PackageFunction("emp_pkg", "get_sal")
	require.True(t, ok)
	assert.Equal(t, types.Numeric, fn.Category)

	v, ok := cat.PackageVariable("emp_pkg", "g_rate")
	require.True(t, ok)
	assert.True(t, v.Constant)
	assert.Equal(t, "0.2", v.Default)
}

func TestLoadCatalogWithoutSnapshotFails(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT value FROM meta").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, err := s.LoadCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no snapshot")
}
