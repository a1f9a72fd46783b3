package expressions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/rendis/flowedit/pkg/schema"
)

// celVariables are the top-level maps a transition condition can reference.
var celVariables = []string{"process", "activity", "data"}

// CELEngine evaluates transition conditions with Google's Common Expression
// Language. Compiled programs are cached and reused across goroutines.
type CELEngine struct {
	env *cel.Env

	mu    sync.RWMutex
	cache map[string]celEntry
}

// NewCELEngine creates a CEL engine whose environment declares:
//   - process:  map(string, dyn), the process detail (xpdl_id, title)
//   - activity: map(string, dyn), the source activity of the transition
//   - data:     map(string, dyn), runtime case data
func NewCELEngine() (*CELEngine, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	opts := make([]cel.EnvOption, 0, len(celVariables))
	for _, name := range celVariables {
		opts = append(opts, cel.Variable(name, mapType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &CELEngine{
		env:   env,
		cache: make(map[string]celEntry),
	}, nil
}

// Name returns the engine identifier.
func (e *CELEngine) Name() string {
	return "cel"
}

// Evaluate compiles (or retrieves from cache) a CEL expression and evaluates
// it. Missing variables default to empty maps.
func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty CEL expression")
	}

	prg, _, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, buildActivation(data))
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL evaluation failed for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	return out.Value(), nil
}

// Check compiles expression and requires a boolean (or dynamic) result,
// since conditions guard transitions.
func (e *CELEngine) Check(expression string) error {
	if expression == "" {
		return schema.NewError(schema.ErrCodeExpression, "empty CEL expression")
	}
	_, out, err := e.getOrCompile(expression)
	if err != nil {
		return err
	}
	switch out.Kind() {
	case types.BoolKind, types.DynKind, types.AnyKind:
		return nil
	}
	return schema.NewErrorf(schema.ErrCodeExpression,
		"condition %q yields %s, want bool", expression, out.String()).
		WithDetails(map[string]any{"expression": expression})
}

// celEntry is a compiled condition together with its checked result type.
type celEntry struct {
	prg cel.Program
	out *cel.Type
}

// getOrCompile returns a cached compiled program or compiles and caches a new one.
func (e *CELEngine) getOrCompile(expression string) (cel.Program, *cel.Type, error) {
	e.mu.RLock()
	if entry, ok := e.cache[expression]; ok {
		e.mu.RUnlock()
		return entry.prg, entry.out, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	// Double-check after acquiring write lock.
	if entry, ok := e.cache[expression]; ok {
		return entry.prg, entry.out, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL compile error in %q: %s", expression, issues.Err().Error()).
			WithCause(issues.Err()).
			WithDetails(map[string]any{"expression": expression})
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, nil, schema.NewErrorf(schema.ErrCodeExpression,
			"CEL program error for %q: %s", expression, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expression})
	}

	entry := celEntry{prg: prg, out: ast.OutputType()}
	e.cache[expression] = entry
	return entry.prg, entry.out, nil
}

func buildActivation(data map[string]any) map[string]any {
	activation := make(map[string]any, len(celVariables))
	for _, key := range celVariables {
		if v, ok := data[key]; ok && v != nil {
			activation[key] = v
		} else {
			activation[key] = map[string]any{}
		}
	}
	return activation
}
