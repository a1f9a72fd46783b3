package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func snapshotOf(t *testing.T, p *schema.Project) map[string]any {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestSnapshotValidator_Valid(t *testing.T) {
	v, err := NewSnapshotValidator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(sampleProject()))
	assert.NoError(t, v.Validate(snapshotOf(t, sampleProject())))
}

func TestSnapshotValidator_Invalid(t *testing.T) {
	v, err := NewSnapshotValidator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
	}{
		{"missing processes", func(doc map[string]any) { delete(doc, "processes") }},
		{"empty processes", func(doc map[string]any) { doc["processes"] = []any{} }},
		{"unknown top-level key", func(doc map[string]any) { doc["layout"] = "grid" }},
		{"bad node kind", func(doc map[string]any) {
			nodes := doc["processes"].([]any)[0].(map[string]any)["nodes"].([]any)
			nodes[0].(map[string]any)["kind"] = "gateway"
		}},
		{"zero width", func(doc map[string]any) {
			nodes := doc["processes"].([]any)[0].(map[string]any)["nodes"].([]any)
			nodes[1].(map[string]any)["width"] = 0
		}},
		{"bad gate mode", func(doc map[string]any) {
			nodes := doc["processes"].([]any)[0].(map[string]any)["nodes"].([]any)
			nodes[1].(map[string]any)["activity"].(map[string]any)["join_mode"] = "or"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := snapshotOf(t, sampleProject())
			tc.mutate(doc)
			err := v.Validate(doc)
			require.Error(t, err)
			assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

			var fe *schema.FlowError
			require.ErrorAs(t, err, &fe)
			assert.NotEmpty(t, fe.Details["violations"])
		})
	}
}

func TestSnapshotValidator_Nil(t *testing.T) {
	v, err := NewSnapshotValidator()
	require.NoError(t, err)
	assert.True(t, schema.IsCode(v.Validate(nil), schema.ErrCodeValidation))
}
