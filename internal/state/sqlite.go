// Package state persists snapshots of the resolved catalog and the history
// of transformation runs in a local SQLite database. The snapshot lets the
// CLI transform sources without re-reading the catalog file on every
// invocation and gives reviewers a queryable record of past runs.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/transform"
	"github.com/sayiza/orapgsync/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the snapshot database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the snapshot database at path and applies the
// schema. The caller owns the returned store and must Close it.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	// modernc.org/sqlite serializes access itself; a single connection
	// avoids SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)
	s := NewWithDB(db, logger)
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already-open database. Used by tests.
func NewWithDB(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// InitSchema creates the snapshot tables when they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply snapshot schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCatalog replaces the stored catalog snapshot with the given metadata.
func (s *Store) SaveCatalog(ctx context.Context, cat *catalog.Metadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"catalog_columns", "catalog_synonyms", "catalog_package_functions", "catalog_package_variables"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('default_schema', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		cat.DefaultSchema()); err != nil {
		return fmt.Errorf("save default schema: %w", err)
	}

	for _, t := range cat.Tables() {
		schema := t.Schema
		if schema == "" {
			schema = cat.DefaultSchema()
		}
		for i, c := range t.Columns {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO catalog_columns (schema_name, table_name, column_name, oracle_type, position)
				 VALUES (?, ?, ?, ?, ?)`,
				strings.ToLower(schema), strings.ToLower(t.Name), strings.ToLower(c.Name), strings.ToLower(c.OracleType), i); err != nil {
				return fmt.Errorf("save column %s.%s.%s: %w", schema, t.Name, c.Name, err)
			}
		}
	}

	for key, target := range cat.Synonyms() {
		ks, kn, ok := splitQualified(key)
		if !ok {
			continue
		}
		ts, tn, ok := splitQualified(target)
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_synonyms (schema_name, synonym_name, target_schema, target_name)
			 VALUES (?, ?, ?, ?)`, ks, kn, ts, tn); err != nil {
			return fmt.Errorf("save synonym %s: %w", key, err)
		}
	}

	for _, f := range cat.PackageFunctions() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_package_functions (package_name, function_name, return_type)
			 VALUES (?, ?, ?)`,
			strings.ToLower(f.Package), strings.ToLower(f.Name), strings.ToLower(f.ReturnType)); err != nil {
			return fmt.Errorf("save package function %s.%s: %w", f.Package, f.Name, err)
		}
	}

	for _, v := range cat.PackageVariables() {
		constant := 0
		if v.Constant {
			constant = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO catalog_package_variables (package_name, variable_name, oracle_type, is_constant, default_value)
			 VALUES (?, ?, ?, ?, ?)`,
			strings.ToLower(v.Package), strings.ToLower(v.Name), strings.ToLower(v.OracleType), constant, v.Default); err != nil {
			return fmt.Errorf("save package variable %s.%s: %w", v.Package, v.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	s.logger.Debug("catalog snapshot saved", "default_schema", cat.DefaultSchema())
	return nil
}

// LoadCatalog rebuilds catalog metadata from the stored snapshot.
func (s *Store) LoadCatalog(ctx context.Context) (*catalog.Metadata, error) {
	var defSchema string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'default_schema'`).Scan(&defSchema)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("load catalog: no snapshot stored")
	}
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	cat := catalog.Empty(defSchema)

	if err := s.loadColumns(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadSynonyms(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadPackageFunctions(ctx, cat); err != nil {
		return nil, err
	}
	if err := s.loadPackageVariables(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *Store) loadColumns(ctx context.Context, cat *catalog.Metadata) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT schema_name, table_name, column_name, oracle_type
		 FROM catalog_columns ORDER BY schema_name, table_name, position`)
	if err != nil {
		return fmt.Errorf("load columns: %w", err)
	}
	defer rows.Close()

	var current *catalog.Table
	for rows.Next() {
		var schema, table, column, oracleType string
		if err := rows.Scan(&schema, &table, &column, &oracleType); err != nil {
			return fmt.Errorf("load columns: %w", err)
		}
		if current == nil || current.Schema != schema || current.Name != table {
			if current != nil {
				cat.AddTable(current)
			}
			current = &catalog.Table{Schema: schema, Name: table}
		}
		current.Columns = append(current.Columns, catalog.Column{
			Name:       column,
			OracleType: oracleType,
			Category:   types.CategoryOfOracleType(oracleType),
		})
	}
	if current != nil {
		cat.AddTable(current)
	}
	return rows.Err()
}

func (s *Store) loadSynonyms(ctx context.Context, cat *catalog.Metadata) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT schema_name, synonym_name, target_schema, target_name FROM catalog_synonyms`)
	if err != nil {
		return fmt.Errorf("load synonyms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var schema, name, targetSchema, targetName string
		if err := rows.Scan(&schema, &name, &targetSchema, &targetName); err != nil {
			return fmt.Errorf("load synonyms: %w", err)
		}
		cat.AddSynonym(schema, name, targetSchema, targetName)
	}
	return rows.Err()
}

func (s *Store) loadPackageFunctions(ctx context.Context, cat *catalog.Metadata) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT package_name, function_name, return_type FROM catalog_package_functions`)
	if err != nil {
		return fmt.Errorf("load package functions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pkg, name, returnType string
		if err := rows.Scan(&pkg, &name, &returnType); err != nil {
			return fmt.Errorf("load package functions: %w", err)
		}
		cat.AddPackageFunction(catalog.PackageFunction{
			Package:    pkg,
			Name:       name,
			ReturnType: returnType,
			Category:   types.CategoryOfOracleType(returnType),
		})
	}
	return rows.Err()
}

func (s *Store) loadPackageVariables(ctx context.Context, cat *catalog.Metadata) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT package_name, variable_name, oracle_type, is_constant, default_value
		 FROM catalog_package_variables`)
	if err != nil {
		return fmt.Errorf("load package variables: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pkg, name, oracleType, defaultValue string
		var constant int
		if err := rows.Scan(&pkg, &name, &oracleType, &constant, &defaultValue); err != nil {
			return fmt.Errorf("load package variables: %w", err)
		}
		cat.AddPackageVariable(catalog.PackageVariable{
			Package:    pkg,
			Name:       name,
			OracleType: oracleType,
			Category:   types.CategoryOfOracleType(oracleType),
			Constant:   constant != 0,
			Default:    defaultValue,
		})
	}
	return rows.Err()
}

// RunRecord is one stored transformation run.
type RunRecord struct {
	ID          string
	Source      string
	Status      string
	SQL         string
	CreatedAt   time.Time
	Diagnostics []transform.Diagnostic
}

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// RecordRun stores a finished transformation result under the given source
// label, usually the input file path.
func (s *Store) RecordRun(ctx context.Context, source string, res *transform.Result) error {
	status := StatusOK
	if res.HasErrors() {
		status = StatusFailed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, output_sql, created_at) VALUES (?, ?, ?, ?, ?)`,
		res.RunID, source, status, res.SQL, time.Now().UTC()); err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	for i, d := range res.Diagnostics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_diagnostics (run_id, position, severity, kind, message, line, col)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, i, d.Severity.String(), string(d.Kind), d.Message, d.Pos.Line, d.Pos.Column); err != nil {
			return fmt.Errorf("record diagnostic %d of run %s: %w", i, res.RunID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	s.logger.Debug("run recorded", "run_id", res.RunID, "source", source, "status", status)
	return nil
}

// ListRuns returns the stored runs for a source, newest first, without
// diagnostics.
func (s *Store) ListRuns(ctx context.Context, source string) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, output_sql, created_at
		 FROM runs WHERE source = ? ORDER BY created_at DESC`, source)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Source, &r.Status, &r.SQL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one stored run with its diagnostics in recorded order.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var r RunRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, status, output_sql, created_at FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Source, &r.Status, &r.SQL, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s: not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT severity, kind, message, line, col
		 FROM run_diagnostics WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s diagnostics: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var severity, kind string
		var d transform.Diagnostic
		if err := rows.Scan(&severity, &kind, &d.Message, &d.Pos.Line, &d.Pos.Column); err != nil {
			return nil, fmt.Errorf("get run %s diagnostics: %w", id, err)
		}
		d.Severity = parseSeverity(severity)
		d.Kind = transform.DiagnosticKind(kind)
		r.Diagnostics = append(r.Diagnostics, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run %s diagnostics: %w", id, err)
	}
	return &r, nil
}

func parseSeverity(s string) transform.Severity {
	switch s {
	case "error":
		return transform.SeverityError
	case "warning":
		return transform.SeverityWarning
	default:
		return transform.SeverityInfo
	}
}

func splitQualified(s string) (schema, name string, ok bool) {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
