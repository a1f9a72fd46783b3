package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/geometry"
	"github.com/rendis/flowedit/pkg/schema"
)

type recorder struct {
	changes []Change
}

func (r *recorder) GraphChanged(c Change) { r.changes = append(r.changes, c) }

func (r *recorder) types() []string {
	out := make([]string, len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Type
	}
	return out
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(0)
}

func TestAddNode_AssignsIDsAndDefaults(t *testing.T) {
	s := newTestStore(t)

	a := s.AddNode(schema.NodeActivity, 10, 20)
	b := s.AddNode(schema.NodeStart, 0, 0)
	c := s.AddNode(schema.NodeComment, 5, 5)

	assert.Equal(t, []int{1, 2, 3}, []int{a, b, c})

	act := s.Node(a)
	require.NotNil(t, act.Activity)
	assert.Equal(t, "newpkg_wp1_act1", act.Activity.XpdlID)
	assert.Equal(t, schema.ActivityManual, act.Activity.Type)
	assert.Equal(t, schema.MultiplicityNone, act.Activity.Join)
	assert.Equal(t, 100.0, act.Width)
	assert.Equal(t, 100.0, act.Height)

	assert.Nil(t, s.Node(b).Activity)
	assert.Equal(t, schema.DefaultMarkerSize, s.Node(b).Width)

	assert.Zero(t, s.AddNode(schema.NodeKind("bogus"), 0, 0))
	assert.Len(t, s.Nodes(), 3)
}

func TestAddNode_NextUnusedIDAfterLoad(t *testing.T) {
	s := newTestStore(t)
	s.Load(&schema.Process{Nodes: []*schema.Node{activity(4), activity(9)}})

	assert.Equal(t, 10, s.AddNode(schema.NodeActivity, 0, 0))
}

// Two activities side by side, connected N1 -> N2, then N3 -> N2.
func TestConnectScenario_JoinBecomesMany(t *testing.T) {
	s := newTestStore(t)
	n1 := s.AddNode(schema.NodeActivity, 0, 0)
	n2 := s.AddNode(schema.NodeActivity, 300, 0)
	n3 := s.AddNode(schema.NodeActivity, 0, 300)

	_, ok := s.AddEdge(schema.EdgeTransition, n1, n2)
	require.True(t, ok)
	assert.Len(t, s.Edges(), 1)
	assert.Equal(t, schema.MultiplicityOne, s.Node(n2).Activity.Join)
	assert.Equal(t, schema.MultiplicityOne, s.Node(n1).Activity.Split)

	_, ok = s.AddEdge(schema.EdgeTransition, n3, n2)
	require.True(t, ok)
	assert.Equal(t, schema.MultiplicityMany, s.Node(n2).Activity.Join)
}

func TestAddEdge_Rejections(t *testing.T) {
	s := newTestStore(t)
	start := s.AddNode(schema.NodeStart, 0, 0)
	a := s.AddNode(schema.NodeActivity, 100, 0)
	b := s.AddNode(schema.NodeActivity, 300, 0)
	end := s.AddNode(schema.NodeEnd, 500, 0)
	note := s.AddNode(schema.NodeComment, 0, 300)

	_, ok := s.AddEdge(schema.EdgeTransition, a, b)
	require.True(t, ok)

	tests := []struct {
		name     string
		kind     schema.EdgeKind
		from, to int
	}{
		{"self loop", schema.EdgeTransition, a, a},
		{"duplicate", schema.EdgeTransition, a, b},
		{"missing endpoint", schema.EdgeTransition, a, 99},
		{"transition to end", schema.EdgeTransition, a, end},
		{"transition from start", schema.EdgeTransition, start, a},
		{"extend between activities", schema.EdgeExtend, a, b},
		{"extend into start", schema.EdgeExtend, a, start},
		{"comment", schema.EdgeTransition, note, a},
		{"unknown kind", schema.EdgeKind("x"), a, b},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := len(s.Edges())
			id, ok := s.AddEdge(tc.kind, tc.from, tc.to)
			assert.False(t, ok)
			assert.Zero(t, id)
			assert.Len(t, s.Edges(), before)
		})
	}

	_, ok = s.AddEdge(schema.EdgeTransition, b, a)
	assert.True(t, ok, "reverse direction is a different ordered pair")
	_, ok = s.AddEdge(schema.EdgeExtend, start, a)
	assert.True(t, ok)
	_, ok = s.AddEdge(schema.EdgeExtend, b, end)
	assert.True(t, ok)
}

func TestRemoveNode_CascadesAndReclassifies(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	c := s.AddNode(schema.NodeActivity, 400, 0)
	end := s.AddNode(schema.NodeEnd, 600, 0)
	s.AddEdge(schema.EdgeTransition, a, b)
	s.AddEdge(schema.EdgeTransition, c, b)
	s.AddEdge(schema.EdgeTransition, b, c)
	s.AddEdge(schema.EdgeExtend, b, end)
	require.Equal(t, schema.MultiplicityMany, s.Node(b).Activity.Join)

	require.True(t, s.RemoveNode(b))

	assert.Nil(t, s.Node(b))
	for _, e := range s.Edges() {
		assert.NotEqual(t, b, e.From)
		assert.NotEqual(t, b, e.To)
	}
	assert.Empty(t, s.Edges())
	assert.Equal(t, schema.MultiplicityNone, s.Node(a).Activity.Split)
	assert.Equal(t, schema.MultiplicityNone, s.Node(c).Activity.Join)
	assert.Equal(t, schema.MultiplicityNone, s.Node(c).Activity.Split)

	assert.False(t, s.RemoveNode(b), "second removal is a no-op")
}

func TestRemoveEdge_Reclassifies(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	id, _ := s.AddEdge(schema.EdgeTransition, a, b)

	require.True(t, s.RemoveEdge(id))
	assert.Equal(t, schema.MultiplicityNone, s.Node(b).Activity.Join)
	assert.False(t, s.RemoveEdge(id))
}

func TestRemoveSelected(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	c := s.AddNode(schema.NodeActivity, 400, 0)
	e1, _ := s.AddEdge(schema.EdgeTransition, a, b)
	s.AddEdge(schema.EdgeTransition, b, c)

	s.SetSelection(
		func(n *schema.Node) bool { return n.ID == c },
		func(e *schema.Edge) bool { return e.ID == e1 },
	)
	nodes, edges := s.RemoveSelected()

	assert.Equal(t, 1, nodes)
	assert.Equal(t, 1, edges)
	assert.Empty(t, s.Edges(), "edge to c went with c")
	assert.Len(t, s.Nodes(), 2)
}

func TestMoveSelected(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	s.SelectOnly(a)

	assert.Equal(t, 1, s.MoveSelected(5, -3))
	assert.Equal(t, geometry.Rect{X: 5, Y: -3, Width: 100, Height: 100}, Bounds(s.Node(a)))
	assert.Equal(t, 200.0, s.Node(b).X)
	assert.Zero(t, s.MoveSelected(0, 0))
}

func TestResize_Formulas(t *testing.T) {
	s := newTestStore(t)
	id := s.AddNode(schema.NodeActivity, 100, 0)
	s.SelectOnly(id)

	require.Equal(t, 1, s.ResizeSelected(SideRight, 20))
	n := s.Node(id)
	assert.Equal(t, 110.0, n.X)
	assert.Equal(t, 120.0, n.Width)

	require.Equal(t, 1, s.ResizeSelected(SideLeft, 10))
	assert.Equal(t, 115.0, n.X)
	assert.Equal(t, 110.0, n.Width)
}

func TestResize_FloorIsPerNode(t *testing.T) {
	s := newTestStore(t)
	narrow := s.AddNode(schema.NodeActivity, 0, 0)
	wide := s.AddNode(schema.NodeActivity, 300, 0)
	require.True(t, s.ResizeNode(wide, SideRight, 50))
	s.SetSelection(func(*schema.Node) bool { return true }, nil)

	resized := s.ResizeSelected(SideRight, -30)

	assert.Equal(t, 1, resized)
	assert.Equal(t, 100.0, s.Node(narrow).Width, "would drop below 100, unchanged")
	assert.Equal(t, 0.0, s.Node(narrow).X)
	assert.Equal(t, 120.0, s.Node(wide).Width)

	assert.Zero(t, s.ResizeSelected(SideLeft, 30), "neither node can lose another 30 units")
	for _, n := range s.Nodes() {
		assert.GreaterOrEqual(t, n.Width, s.MinWidth())
	}
}

func TestResize_SkipsFixedSizeNodes(t *testing.T) {
	s := newTestStore(t)
	start := s.AddNode(schema.NodeStart, 0, 0)
	s.SelectOnly(start)

	assert.Zero(t, s.ResizeSelected(SideRight, 50))
	assert.Equal(t, schema.DefaultMarkerSize, s.Node(start).Width)
}

func TestSetSelection_NilPredicateKeepsCollection(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	e, _ := s.AddEdge(schema.EdgeTransition, a, b)
	s.SelectEdge(e)

	s.SetSelection(func(n *schema.Node) bool { return n.ID == b }, nil)

	assert.True(t, s.Edge(e).Selected)
	assert.True(t, s.Node(b).Selected)
	assert.False(t, s.Node(a).Selected)

	s.ToggleNode(a)
	assert.Len(t, s.SelectedNodes(), 2)
	s.ClearSelection()
	assert.Empty(t, s.SelectedNodes())
	assert.Empty(t, s.SelectedEdges())
}

func TestListener_ReceivesChanges(t *testing.T) {
	s := newTestStore(t)
	rec := &recorder{}
	s.SetListener(rec)

	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	s.AddEdge(schema.EdgeTransition, a, b)
	s.SelectOnly(a)
	s.SelectOnly(a) // no change, no event

	assert.Equal(t, []string{
		schema.EventNodeAdded,
		schema.EventNodeAdded,
		schema.EventEdgeAdded,
		schema.EventTopologyChanged,
		schema.EventTopologyChanged,
		schema.EventSelectionChanged,
	}, rec.types())
}

func TestListener_CascadedEdgesNameRemovedNode(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 200, 0)
	c := s.AddNode(schema.NodeActivity, 400, 0)
	in, _ := s.AddEdge(schema.EdgeTransition, a, b)
	out, _ := s.AddEdge(schema.EdgeTransition, b, c)

	rec := &recorder{}
	s.SetListener(rec)
	require.True(t, s.RemoveNode(b))

	var removed []Change
	for _, ch := range rec.changes {
		if ch.Type == schema.EventEdgeRemoved {
			removed = append(removed, ch)
		}
	}
	assert.ElementsMatch(t, []Change{
		{Type: schema.EventEdgeRemoved, NodeID: b, EdgeID: in},
		{Type: schema.EventEdgeRemoved, NodeID: b, EdgeID: out},
	}, removed)
}

func TestLoadSave_DeepCopies(t *testing.T) {
	p := &schema.Process{
		ID:     1,
		Actors: []schema.Actor{{ID: 1, XpdlID: "p1", Name: "clerk"}},
		Nodes:  []*schema.Node{activity(1), activity(2)},
		Edges:  []*schema.Edge{transition(1, 1, 2)},
	}
	p.Nodes[0].Selected = true

	s := newTestStore(t)
	s.Load(p)

	assert.False(t, s.Node(1).Selected, "load clears selection")
	assert.Equal(t, schema.MultiplicityOne, s.Node(2).Activity.Join, "load recomputes topology")

	s.MoveSelected(1, 1)
	s.Node(1).X = 42
	assert.Equal(t, 0.0, p.Nodes[0].X, "store does not alias the loaded process")

	out := &schema.Process{ID: 1}
	s.Save(out)
	require.Len(t, out.Nodes, 2)
	assert.Equal(t, 42.0, out.Nodes[0].X)
	s.Node(1).X = 7
	assert.Equal(t, 42.0, out.Nodes[0].X, "saved copy does not alias the store")
	assert.Equal(t, p.Actors, out.Actors)
}

func TestBringToFront(t *testing.T) {
	s := newTestStore(t)
	a := s.AddNode(schema.NodeActivity, 0, 0)
	b := s.AddNode(schema.NodeActivity, 50, 50)

	p := geometry.Point{X: 60, Y: 60}
	assert.Equal(t, b, s.NodeAt(p).ID)

	s.BringToFront(a)
	assert.Equal(t, a, s.NodeAt(p).ID)
	assert.Nil(t, s.NodeAt(geometry.Point{X: 1000, Y: 1000}))
}
