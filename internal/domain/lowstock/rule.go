// Package lowstock compares balances with item minimums when a document
// asks for it and raises each shortfall at most once per suppression window.
package lowstock

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"konditer/internal/core/apperror"
)

// DefaultRule flags balances below the item minimum.
const DefaultRule = "quantity < min_stock"

// Rule is a compiled CEL predicate over quantity, min_stock (doubles) and
// kind (string).
type Rule struct {
	expr string
	prg  cel.Program
}

// NewRule compiles expr. The expression must evaluate to a bool.
func NewRule(expr string) (*Rule, error) {
	env, err := cel.NewEnv(
		cel.Variable("quantity", cel.DoubleType),
		cel.Variable("min_stock", cel.DoubleType),
		cel.Variable("kind", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, apperror.NewValidation("invalid low-stock rule").
			WithDetail("rule", expr).
			WithCause(iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperror.NewValidation("low-stock rule must return bool").WithDetail("rule", expr)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}
	return &Rule{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (r *Rule) String() string { return r.expr }

// Matches evaluates the rule for one balance.
func (r *Rule) Matches(quantity, minStock float64, kind string) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"quantity":  quantity,
		"min_stock": minStock,
		"kind":      kind,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate low-stock rule: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("low-stock rule returned %T", out.Value())
	}
	return matched, nil
}
