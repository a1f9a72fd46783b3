// Package expressions compiles and evaluates the expression languages a
// process document embeds: CEL transition conditions, expr application
// expressions, jq queries over snapshots, and timer schedules.
package expressions

import "context"

// Engine evaluates expressions of one language.
// Three implementations: CEL (conditions), Expr (application calls), GoJQ (queries).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
	// Check compiles expression without evaluating it.
	Check(expression string) error
}

// Set bundles one engine per language. Engines are safe for concurrent
// use, so a single Set is shared by the editor, validator and agent surface.
type Set struct {
	CEL  *CELEngine
	Expr *ExprEngine
	JQ   *GoJQEngine
}

// NewSet creates all engines.
func NewSet() (*Set, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Set{CEL: celEngine, Expr: NewExprEngine(), JQ: NewGoJQEngine()}, nil
}

// Get returns the engine registered under name, or nil.
func (s *Set) Get(name string) Engine {
	switch name {
	case "cel":
		return s.CEL
	case "expr":
		return s.Expr
	case "jq":
		return s.JQ
	}
	return nil
}
