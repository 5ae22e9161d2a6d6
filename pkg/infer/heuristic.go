package infer

import (
	"strings"

	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/types"
)

// dateFunctions are builtins whose result is date-valued.
var dateFunctions = map[string]bool{
	"sysdate":           true,
	"current_date":      true,
	"current_timestamp": true,
	"systimestamp":      true,
	"to_date":           true,
	"to_timestamp":      true,
	"add_months":        true,
	"last_day":          true,
	"next_day":          true,
	"trunc":             true,
}

// numericFunctions are builtins whose result is numeric.
var numericFunctions = map[string]bool{
	"abs":            true,
	"ceil":           true,
	"floor":          true,
	"round":          true,
	"mod":            true,
	"power":          true,
	"sqrt":           true,
	"sign":           true,
	"length":         true,
	"instr":          true,
	"to_number":      true,
	"months_between": true,
	"count":          true,
	"avg":            true,
	"sum":            true,
	"min":            true,
	"max":            true,
}

// textFunctions are builtins whose result is textual.
var textFunctions = map[string]bool{
	"substr":         true,
	"upper":          true,
	"lower":          true,
	"trim":           true,
	"ltrim":          true,
	"rtrim":          true,
	"lpad":           true,
	"rpad":           true,
	"replace":        true,
	"to_char":        true,
	"chr":            true,
	"initcap":        true,
	"concat":         true,
	"regexp_replace": true,
	"regexp_substr":  true,
}

// DefaultDateNameFragments are the column-name substrings the heuristic
// evaluator treats as evidence of a date-valued column.
var DefaultDateNameFragments = []string{
	"date", "time", "created", "modified", "updated", "birth", "hire", "start", "end",
}

// HeuristicEvaluator classifies expressions from syntax alone, with no
// catalog access. It is the evaluator of choice when no metadata has been
// extracted yet; its date answers rest on builtin names and on column-name
// fragments.
type HeuristicEvaluator struct {
	fragments []string
}

// NewHeuristicEvaluator returns a heuristic evaluator. With no fragments
// given, DefaultDateNameFragments apply.
func NewHeuristicEvaluator(dateNameFragments ...string) *HeuristicEvaluator {
	if len(dateNameFragments) == 0 {
		dateNameFragments = DefaultDateNameFragments
	}
	return &HeuristicEvaluator{fragments: dateNameFragments}
}

// Evaluate implements Evaluator.
func (e *HeuristicEvaluator) Evaluate(expr plsql.Expr) types.InferredType {
	switch x := expr.(type) {
	case *plsql.Literal:
		switch x.Type {
		case plsql.LiteralNumber:
			return types.InferredType{Category: types.Numeric}
		case plsql.LiteralString:
			return types.InferredType{Category: types.Text}
		default:
			return types.UnknownType
		}

	case *plsql.ColumnRef:
		name := x.Column()
		if dateFunctions[name] {
			// SYSDATE and friends parse as bare references.
			return types.InferredType{Category: types.Date}
		}
		if e.nameLooksDated(name) {
			return types.InferredType{Category: types.Date}
		}
		return types.UnknownType

	case *plsql.FuncCall:
		switch {
		case dateFunctions[x.Name()]:
			return types.InferredType{Category: types.Date}
		case numericFunctions[x.Name()]:
			return types.InferredType{Category: types.Numeric}
		case textFunctions[x.Name()]:
			return types.InferredType{Category: types.Text}
		case x.Name() == "nvl" || x.Name() == "coalesce":
			if len(x.Args) > 0 {
				return e.Evaluate(x.Args[0])
			}
		}
		return types.UnknownType

	case *plsql.BinaryExpr:
		return e.evaluateBinary(x)

	case *plsql.CaseExpr:
		result := types.UnknownType
		for _, w := range x.Whens {
			result = merge(result, e.Evaluate(w.Result))
		}
		if x.Else != nil {
			result = merge(result, e.Evaluate(x.Else))
		}
		return result

	case *plsql.ParenExpr:
		return e.Evaluate(x.Inner)

	case *plsql.UnaryExpr:
		if x.Op == plsql.TOKEN_NOT {
			return types.InferredType{Category: types.Boolean}
		}
		return e.Evaluate(x.Operand)

	case *plsql.IsNullExpr, *plsql.LikeExpr, *plsql.InExpr, *plsql.BetweenExpr, *plsql.ExistsExpr:
		return types.InferredType{Category: types.Boolean}
	}

	return types.UnknownType
}

func (e *HeuristicEvaluator) evaluateBinary(x *plsql.BinaryExpr) types.InferredType {
	switch x.Op {
	case plsql.TOKEN_DPIPE:
		return types.InferredType{Category: types.Text}
	case plsql.TOKEN_PLUS, plsql.TOKEN_MINUS, plsql.TOKEN_STAR, plsql.TOKEN_SLASH:
		left := e.Evaluate(x.Left)
		right := e.Evaluate(x.Right)
		if left.Category == types.Date || right.Category == types.Date {
			if x.Op == plsql.TOKEN_MINUS && left.Category == types.Date && right.Category == types.Date {
				// DATE - DATE is a day count.
				return types.InferredType{Category: types.Numeric}
			}
			return types.InferredType{Category: types.Date}
		}
		if left.Category == types.Numeric && right.Category == types.Numeric {
			return types.InferredType{Category: types.Numeric}
		}
		return types.UnknownType
	default:
		return types.InferredType{Category: types.Boolean}
	}
}

func (e *HeuristicEvaluator) nameLooksDated(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range e.fragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
