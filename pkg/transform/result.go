package transform

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sayiza/orapgsync/pkg/plsql"
)

// Severity grades a diagnostic.
type Severity int

// Diagnostic severities.
const (
	// SeverityError marks a construct the engine refused to transform.
	SeverityError Severity = iota
	// SeverityWarning marks generated output that needs human review.
	SeverityWarning
	// SeverityInfo marks notable but harmless rewrite decisions.
	SeverityInfo
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// DiagnosticKind classifies what went wrong or what a reviewer should check.
type DiagnosticKind string

// Diagnostic kinds.
const (
	// KindUnsupportedConstruct aborts generation: no output is produced.
	KindUnsupportedConstruct DiagnosticKind = "unsupported-construct"
	// KindUnresolvableReference aborts generation: a name could not be
	// resolved against the registry or catalog.
	KindUnresolvableReference DiagnosticKind = "unresolvable-reference"
	// KindManualReview flags output that was generated but needs a human look.
	KindManualReview DiagnosticKind = "manual-review"
)

// Diagnostic is one finding produced during generation. Diagnostics keep
// document order; they are never sorted.
type Diagnostic struct {
	Severity Severity
	Kind     DiagnosticKind
	Message  string
	Pos      plsql.Position
}

// String renders the diagnostic in file:line:col style.
func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d: %s: %s: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Kind, d.Message)
}

// Result is the outcome of one transformation run: the generated SQL and the
// diagnostics gathered along the way. When any error-severity diagnostic was
// raised, SQL is empty; the engine never emits partial output.
type Result struct {
	// RunID correlates the result with log lines from the same run.
	RunID       string
	SQL         string
	Diagnostics []Diagnostic
}

// newResult assembles a Result from a finished run. Output is suppressed
// entirely when the run recorded an error.
func newResult(sql string, diags []Diagnostic) *Result {
	r := &Result{RunID: uuid.NewString(), Diagnostics: diags}
	if !r.HasErrors() {
		r.SQL = sql
	}
	return r
}

// HasErrors reports whether any diagnostic is error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err returns a TransformError when the run failed, nil otherwise.
func (r *Result) Err() error {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return &TransformError{Diagnostic: d}
		}
	}
	return nil
}

// TransformError wraps the first error-severity diagnostic of a failed run.
type TransformError struct {
	Diagnostic Diagnostic
}

// Error implements the error interface.
func (e *TransformError) Error() string {
	return e.Diagnostic.String()
}
