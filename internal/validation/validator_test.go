package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/pkg/schema"
)

func newTestValidator(t *testing.T) *ProjectValidator {
	t.Helper()
	exprs, err := expressions.NewSet()
	require.NoError(t, err)
	return NewProjectValidator(exprs)
}

func warningPaths(r *schema.ValidationResult) []string {
	out := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		out[i] = w.Path
	}
	return out
}

func TestValidateProject_Clean(t *testing.T) {
	v := newTestValidator(t)
	result := v.ValidateProject(sampleProject())
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateProject_StructuralShortCircuits(t *testing.T) {
	v := newTestValidator(t)
	p := sampleProject()
	p.Processes[0].Edges[1].From = 77
	p.Processes[0].Nodes[1].Activity.ActorID = 0 // would warn

	result := v.ValidateProject(p)
	assert.False(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateProject_Warnings(t *testing.T) {
	v := newTestValidator(t)
	p := sampleProject()
	proc := p.Processes[0]

	orphan := schema.NewActivity(6)
	orphan.XpdlID = "orphan"
	orphan.Type = schema.ActivityAutoTimer
	orphan.Expression = "every tuesday"
	proc.Nodes = append(proc.Nodes, &schema.Node{ID: 6, Kind: schema.NodeActivity, Width: 100, Height: 100, Activity: orphan})

	proc.Nodes[1].Activity.ActorID = 0
	proc.Nodes[2].Activity.Applications[0].Expression = `data.to !=`
	proc.Edges[1].Transition.Condition = `1 + 1`
	p.Processes[1].Nodes = p.Processes[1].Nodes[:1] // drop the end node

	result := v.ValidateProject(p)
	require.True(t, result.Valid(), "%v", result.Errors)
	assert.ElementsMatch(t, []string{
		"processes[0].nodes[5]",
		"processes[0].nodes[1].activity.actor_id",
		"processes[0].nodes[2].activity.applications[0].expression",
		"processes[0].nodes[5].activity.expression",
		"processes[0].edges[1].transition.condition",
		"processes[1]",
	}, warningPaths(result))
}

func TestValidateProject_NoExpressionLintWithoutEngines(t *testing.T) {
	p := sampleProject()
	p.Processes[0].Edges[1].Transition.Condition = `))`
	result := NewProjectValidator(nil).ValidateProject(p)
	assert.Empty(t, result.Warnings)
}

func TestValidateProcessDetail(t *testing.T) {
	p := sampleProject()

	tests := []struct {
		name   string
		id     int
		detail schema.ProcessDetail
		code   string
	}{
		{"rename", 2, schema.ProcessDetail{XpdlID: "refunds-v2", Title: "Refunds"}, ""},
		{"keep own id", 1, schema.ProcessDetail{XpdlID: "invoices", Applications: []schema.Application{{XpdlID: "mailer"}}}, ""},
		{"missing process", 9, schema.ProcessDetail{XpdlID: "x"}, schema.ErrCodeNotFound},
		{"empty id", 2, schema.ProcessDetail{}, schema.ErrCodeValidation},
		{"taken id", 2, schema.ProcessDetail{XpdlID: "invoices"}, schema.ErrCodeIDExists},
		{"duplicate application", 2, schema.ProcessDetail{XpdlID: "refunds",
			Applications: []schema.Application{{XpdlID: "a"}, {XpdlID: "a"}}}, schema.ErrCodeDuplicateApplication},
		{"application still in use", 1, schema.ProcessDetail{XpdlID: "invoices"}, schema.ErrCodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateProcessDetail(p, tc.id, tc.detail)
			if tc.code == "" {
				assert.Nil(t, err)
			} else {
				require.NotNil(t, err)
				assert.Equal(t, tc.code, err.Code)
			}
			assert.Equal(t, sampleProject(), p, "validation never mutates the project")
		})
	}
}
