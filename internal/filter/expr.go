package filter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// ExprMatcher compiles and evaluates expr-lang expressions against records.
//
// Example: status == "active" && fields.target_price > 100
type ExprMatcher struct {
	program *vm.Program
}

// NewExprMatcher creates a new ExprMatcher for the given expression.
func NewExprMatcher(expression string) (*ExprMatcher, error) {
	program, err := expr.Compile(expression,
		expr.Env(sampleEnv()),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &ExprMatcher{program: program}, nil
}

// Match evaluates the expression against a record. Evaluation errors count
// as a non-match so one odd record cannot fail the whole pass.
func (m *ExprMatcher) Match(rec *models.Record) bool {
	result, err := expr.Run(m.program, envFromRecord(rec))
	if err != nil {
		return false
	}
	matched, _ := result.(bool)
	return matched
}

func sampleEnv() map[string]any {
	return map[string]any{
		"id":        "",
		"category":  "",
		"status":    "",
		"timestamp": int64(0),
		"has_time":  false,
		"fields":    map[string]any{},
	}
}

func envFromRecord(rec *models.Record) map[string]any {
	fields := rec.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	var ts int64
	if rec.HasTime() {
		ts = rec.Time().UnixMilli()
	}
	return map[string]any{
		"id":        rec.ID,
		"category":  rec.Category,
		"status":    rec.Status,
		"timestamp": ts,
		"has_time":  rec.HasTime(),
		"fields":    fields,
	}
}
