package drag

import (
	"github.com/rendis/flowedit/internal/geometry"
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/pkg/schema"
)

// strategy carries the per-gesture state of one interaction mode.
type strategy interface {
	state() State
	// begin runs once the engine has entered state().
	begin(g *graph.Store, p geometry.Point)
	// move receives the current diagram point and the point of the previous move.
	move(g *graph.Store, p, last geometry.Point)
	// release ends the gesture at p. commit is false when the gesture is
	// flushed rather than released by the pointer.
	release(g *graph.Store, p geometry.Point, commit bool)
	autoScroll() bool
}

// --- select ---

type selectStrategy struct {
	anchor  geometry.Point
	current geometry.Point
}

func (s *selectStrategy) state() State     { return Selecting }
func (s *selectStrategy) autoScroll() bool { return true }

func (s *selectStrategy) rect() geometry.Rect {
	return geometry.RectFromPoints(s.anchor, s.current)
}

func (s *selectStrategy) begin(g *graph.Store, p geometry.Point) {
	s.current = p
	s.apply(g)
}

func (s *selectStrategy) move(g *graph.Store, p, _ geometry.Point) {
	s.current = p
	s.apply(g)
}

func (s *selectStrategy) release(g *graph.Store, p geometry.Point, commit bool) {
	if commit {
		s.current = p
	}
	s.apply(g)
}

// apply selects exactly the nodes intersecting the rectangle and clears
// edge selection.
func (s *selectStrategy) apply(g *graph.Store) {
	r := s.rect()
	g.SetSelection(
		func(n *schema.Node) bool { return graph.Bounds(n).Intersects(r) },
		func(*schema.Edge) bool { return false },
	)
}

// --- move ---

type moveStrategy struct {
	node int
}

func (s *moveStrategy) state() State     { return Moving }
func (s *moveStrategy) autoScroll() bool { return true }

func (s *moveStrategy) begin(g *graph.Store, _ geometry.Point) {
	n := g.Node(s.node)
	if n == nil {
		return
	}
	if !n.Selected {
		g.SelectOnly(s.node)
		g.BringToFront(s.node)
	}
}

func (s *moveStrategy) move(g *graph.Store, p, last geometry.Point) {
	d := p.Sub(last)
	g.MoveSelected(d.X, d.Y)
}

func (s *moveStrategy) release(*graph.Store, geometry.Point, bool) {}

// --- resize ---

type resizeStrategy struct {
	node int
	side graph.Side
}

func (s *resizeStrategy) state() State     { return Resizing }
func (s *resizeStrategy) autoScroll() bool { return true }

func (s *resizeStrategy) begin(*graph.Store, geometry.Point) {}

func (s *resizeStrategy) move(g *graph.Store, p, last geometry.Point) {
	g.ResizeNode(s.node, s.side, p.X-last.X)
}

func (s *resizeStrategy) release(*graph.Store, geometry.Point, bool) {}

// --- connect ---

type connectStrategy struct {
	source int
	from   geometry.Point
	to     geometry.Point
	edgeID int // set when release created an edge
}

func (s *connectStrategy) state() State     { return Connecting }
func (s *connectStrategy) autoScroll() bool { return false }

func (s *connectStrategy) begin(g *graph.Store, p geometry.Point) {
	s.to = p
	g.SelectOnly(s.source)
}

func (s *connectStrategy) move(_ *graph.Store, p, _ geometry.Point) {
	s.to = p
}

// release resolves the node under p and creates the matching edge kind.
// Targets that do not fit the source are abandoned without mutation.
func (s *connectStrategy) release(g *graph.Store, p geometry.Point, commit bool) {
	if !commit {
		return
	}
	src := g.Node(s.source)
	dst := g.NodeAt(p)
	if src == nil || dst == nil {
		return
	}
	kind, ok := connectKind(src.Kind, dst.Kind)
	if !ok {
		return
	}
	if e := g.FindEdge(kind, src.ID, dst.ID); e != nil {
		s.edgeID = e.ID
		return
	}
	if id, ok := g.AddEdge(kind, src.ID, dst.ID); ok {
		s.edgeID = id
	}
}

// connectKind picks the edge kind a connect gesture creates between a
// source and target of the given kinds.
func connectKind(from, to schema.NodeKind) (schema.EdgeKind, bool) {
	switch {
	case from == schema.NodeActivity && to == schema.NodeActivity:
		return schema.EdgeTransition, true
	case from == schema.NodeActivity && to == schema.NodeEnd:
		return schema.EdgeExtend, true
	case from == schema.NodeStart && to == schema.NodeActivity:
		return schema.EdgeExtend, true
	}
	return "", false
}
