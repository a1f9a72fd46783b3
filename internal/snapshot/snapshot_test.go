package snapshot

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/pkg/schema"
)

func sampleProject() *schema.Project {
	a1 := schema.NewActivity(2)
	a1.Type = schema.ActivityAuto
	a1.Applications = []schema.ApplicationCall{{ApplicationID: "mailer", Expression: "data.to"}}
	a2 := schema.NewActivity(3)
	a2.Type = schema.ActivityManualTimer
	a2.Expression = "90m"
	a2.ActorID = 4

	proc := &schema.Process{
		ID: 1,
		Detail: schema.ProcessDetail{
			XpdlID:       "newpkg_wp1",
			Title:        "Orders",
			Applications: []schema.Application{{XpdlID: "mailer"}},
		},
		Actors: []schema.Actor{{ID: 4, XpdlID: "newpkg_wp1_par4", Name: "Clerk"}},
		Nodes: []*schema.Node{
			{ID: 1, Kind: schema.NodeStart, Width: 40, Height: 40},
			{ID: 2, Kind: schema.NodeActivity, X: 100.5, Width: 100, Height: 100, Activity: a1},
			{ID: 3, Kind: schema.NodeActivity, X: 300, Width: 180, Height: 100, Activity: a2},
			{ID: 4, Kind: schema.NodeComment, Y: 150, Width: 140, Height: 80, Comment: "note: check"},
		},
		Edges: []*schema.Edge{
			{ID: 1, Kind: schema.EdgeExtend, From: 1, To: 2},
			{ID: 2, Kind: schema.EdgeTransition, From: 2, To: 3,
				Transition: &schema.Transition{XpdlID: "newpkg_wp1_tra2", Condition: "data.ok"}},
		},
	}
	graph.RecomputeAll(proc.Nodes, proc.Edges)
	empty := &schema.Process{ID: 2, Detail: schema.ProcessDetail{XpdlID: "newpkg_wp2"}}
	return &schema.Project{XpdlID: "newpkg", Processes: []*schema.Process{proc, empty}}
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatXPDL, FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			want := sampleProject()
			data, err := Marshal(want, format)
			require.NoError(t, err)

			got, err := Unmarshal(data, format)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestUnmarshal_RecomputesTopology(t *testing.T) {
	doc := `
xpdl_id: pkg
processes:
  - id: 1
    detail: {xpdl_id: wp}
    nodes:
      - {id: 1, kind: activity, x: 0, y: 0, width: 100, height: 100, activity: {xpdl_id: a, type: manual, join: many, split: many}}
      - {id: 2, kind: activity, x: 300, y: 0, width: 100, height: 100, activity: {xpdl_id: b, type: manual}}
    edges:
      - {id: 1, kind: transition, from: 1, to: 2}
`
	p, err := Unmarshal([]byte(doc), FormatYAML)
	require.NoError(t, err)

	a := p.Processes[0].Node(1).Activity
	b := p.Processes[0].Node(2).Activity
	assert.Equal(t, schema.MultiplicityNone, a.Join)
	assert.Equal(t, schema.MultiplicityOne, a.Split)
	assert.Equal(t, schema.MultiplicityOne, b.Join)
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		doc    string
	}{
		{"bad json", FormatJSON, `{"processes": [`},
		{"bad yaml", FormatYAML, "processes: [\n  - id: 1\n bad"},
		{"json null", FormatJSON, `null`},
		{"no processes", FormatJSON, `{"xpdl_id": "pkg", "processes": []}`},
		{"schema violation", FormatJSON,
			`{"processes": [{"id": 1, "detail": {"xpdl_id": "wp"}, "nodes": [{"id": 1, "kind": "gateway", "x": 0, "y": 0, "width": 1, "height": 1}]}]}`},
		{"dangling edge", FormatYAML, `
processes:
  - id: 1
    detail: {xpdl_id: wp}
    nodes:
      - {id: 1, kind: start, x: 0, y: 0, width: 40, height: 40}
    edges:
      - {id: 1, kind: extend, from: 1, to: 2}
`},
		{"unknown format", Format("toml"), `a = 1`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Unmarshal([]byte(tc.doc), tc.format)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, schema.IsCode(err, schema.ErrCodeImport), "got %v", err)
		})
	}
}

func TestMarshal_YAMLShape(t *testing.T) {
	data, err := Marshal(sampleProject(), FormatYAML)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "xpdl_id: newpkg\n")
	assert.Contains(t, text, "    kind: transition\n")
	assert.NotContains(t, text, "selected")
}

func TestFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("out/flow.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("flow.yml"))
	assert.Equal(t, FormatXPDL, FormatFromPath("flow.xml"))
	assert.Equal(t, FormatXPDL, FormatFromPath("flow"))

	_, err := ParseFormat("toml")
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}

func TestQuery(t *testing.T) {
	jq := expressions.NewGoJQEngine()
	p := sampleProject()

	out, err := Query(context.Background(), jq, p,
		`.processes[0].nodes[] | select(.kind == "activity") | .activity.xpdl_id`)
	require.NoError(t, err)
	assert.Equal(t, []any{"newpkg_wp1_act2", "newpkg_wp1_act3"}, out)

	out, err = Query(context.Background(), jq, p, `[.processes[].edges | length] | add`)
	require.NoError(t, err)
	assert.Equal(t, []any{2}, out)

	_, err = Query(context.Background(), jq, p, `.processes[`)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

func TestToMap(t *testing.T) {
	m, err := ToMap(sampleProject())
	require.NoError(t, err)
	procs := m["processes"].([]any)
	require.Len(t, procs, 2)
	first := procs[0].(map[string]any)
	assert.Equal(t, float64(1), first["id"])
	assert.True(t, strings.HasPrefix(first["detail"].(map[string]any)["xpdl_id"].(string), "newpkg"))
}
