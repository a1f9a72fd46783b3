package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func snapshotData() map[string]any {
	return map[string]any{
		"xpdl_id": "pkg",
		"processes": []any{
			map[string]any{"detail": map[string]any{"xpdl_id": "wp1"}, "nodes": []any{
				map[string]any{"id": 1.0, "kind": "start"},
				map[string]any{"id": 2.0, "kind": "activity"},
			}},
			map[string]any{"detail": map[string]any{"xpdl_id": "wp2"}, "nodes": []any{}},
		},
	}
}

func TestGoJQ_Queries(t *testing.T) {
	e := NewGoJQEngine()
	assert.Equal(t, "jq", e.Name())
	ctx := context.Background()

	out, err := e.Evaluate(ctx, `.processes | length`, snapshotData())
	require.NoError(t, err)
	assert.Equal(t, 2, out)

	out, err = e.Evaluate(ctx, `.processes[].detail.xpdl_id`, snapshotData())
	require.NoError(t, err)
	assert.Equal(t, []any{"wp1", "wp2"}, out)

	out, err = e.Evaluate(ctx, `.processes[] | select(.nodes | length > 5)`, snapshotData())
	require.NoError(t, err)
	assert.Nil(t, out)

	all, err := e.EvaluateAll(ctx, `[.processes[0].nodes[] | select(.kind == "activity") | .id]`, snapshotData())
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{2.0}}, all)
}

func TestGoJQ_Errors(t *testing.T) {
	e := NewGoJQEngine()
	ctx := context.Background()

	_, err := e.Evaluate(ctx, `.processes[`, snapshotData())
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))

	_, err = e.Evaluate(ctx, `.xpdl_id | tonumber`, snapshotData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jq evaluation failed")

	out, err := e.Evaluate(ctx, `$ENV | length`, snapshotData())
	require.NoError(t, err)
	assert.Equal(t, 0, out, "environment is not exposed")

	assert.Error(t, e.Check(""))
	assert.NoError(t, e.Check(`.processes | map(.detail)`))
}

func TestSet_Get(t *testing.T) {
	set, err := NewSet()
	require.NoError(t, err)

	for _, name := range []string{"cel", "expr", "jq"} {
		eng := set.Get(name)
		require.NotNil(t, eng, name)
		assert.Equal(t, name, eng.Name())
	}
	assert.Nil(t, set.Get("lua"))
}
