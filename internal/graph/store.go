// Package graph holds the node and edge collections of the active process
// and keeps the derived join/split topology consistent under mutation.
package graph

import (
	"fmt"

	"github.com/rendis/flowedit/internal/geometry"
	"github.com/rendis/flowedit/pkg/schema"
)

// Side selects which vertical edge of a node a resize acts on.
type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Change describes one mutation, delivered to the store's Listener.
type Change struct {
	Type   string // one of the schema.Event* constants
	NodeID int
	EdgeID int
}

// Listener receives change notifications synchronously after each mutation.
type Listener interface {
	GraphChanged(c Change)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(c Change)

func (f ListenerFunc) GraphChanged(c Change) { f(c) }

// Store is the authoritative node/edge/actor collection of the active process.
// Every mutation is synchronous and leaves the collections consistent:
// no dangling edges, no self loops, at most one edge of a kind per ordered
// pair, and join/split classifications matching the transition edges.
//
// Store is not safe for concurrent use; the editor drives it from a single
// input goroutine.
type Store struct {
	nodes        []*schema.Node // z-order, last is topmost
	edges        []*schema.Edge
	actors       []schema.Actor
	applications []schema.Application

	minWidth float64
	listener Listener
}

// NewStore creates an empty store. minWidth <= 0 uses schema.MinNodeWidth.
func NewStore(minWidth float64) *Store {
	if minWidth <= 0 {
		minWidth = schema.MinNodeWidth
	}
	return &Store{minWidth: minWidth}
}

// SetListener installs the change listener. nil disables notifications.
func (s *Store) SetListener(l Listener) {
	s.listener = l
}

// MinWidth returns the resize floor.
func (s *Store) MinWidth() float64 { return s.minWidth }

func (s *Store) notify(typ string, nodeID, edgeID int) {
	if s.listener != nil {
		s.listener.GraphChanged(Change{Type: typ, NodeID: nodeID, EdgeID: edgeID})
	}
}

// --- Load / Save ---

// Load replaces the store contents with a deep copy of p's collections.
// Selection is cleared and the topology recomputed.
func (s *Store) Load(p *schema.Process) {
	s.nodes = make([]*schema.Node, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		c := n.Clone()
		c.Selected = false
		s.nodes = append(s.nodes, c)
	}
	s.edges = make([]*schema.Edge, 0, len(p.Edges))
	for _, e := range p.Edges {
		c := e.Clone()
		c.Selected = false
		s.edges = append(s.edges, c)
	}
	s.actors = append([]schema.Actor(nil), p.Actors...)
	s.applications = append([]schema.Application(nil), p.Detail.Applications...)
	RecomputeAll(s.nodes, s.edges)
}

// Save writes a deep copy of the store contents into p. Empty collections
// are written as nil.
func (s *Store) Save(p *schema.Process) {
	p.Nodes, p.Edges = nil, nil
	for _, n := range s.nodes {
		p.Nodes = append(p.Nodes, n.Clone())
	}
	for _, e := range s.edges {
		p.Edges = append(p.Edges, e.Clone())
	}
	p.Actors = append([]schema.Actor(nil), s.actors...)
}

// SetApplications refreshes the application list activities may reference.
func (s *Store) SetApplications(apps []schema.Application) {
	s.applications = append([]schema.Application(nil), apps...)
}

// --- Queries ---

// Nodes returns the nodes in z-order. The slice is a copy; the nodes are not.
func (s *Store) Nodes() []*schema.Node {
	return append([]*schema.Node(nil), s.nodes...)
}

// Edges returns the edges. The slice is a copy; the edges are not.
func (s *Store) Edges() []*schema.Edge {
	return append([]*schema.Edge(nil), s.edges...)
}

// Actors returns a copy of the actor list.
func (s *Store) Actors() []schema.Actor {
	return append([]schema.Actor(nil), s.actors...)
}

// Node returns the node with the given id, or nil.
func (s *Store) Node(id int) *schema.Node {
	return findNode(s.nodes, id)
}

// Edge returns the edge with the given id, or nil.
func (s *Store) Edge(id int) *schema.Edge {
	for _, e := range s.edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// SelectedNodes returns the currently selected nodes in z-order.
func (s *Store) SelectedNodes() []*schema.Node {
	var out []*schema.Node
	for _, n := range s.nodes {
		if n.Selected {
			out = append(out, n)
		}
	}
	return out
}

// SelectedEdges returns the currently selected edges.
func (s *Store) SelectedEdges() []*schema.Edge {
	var out []*schema.Edge
	for _, e := range s.edges {
		if e.Selected {
			out = append(out, e)
		}
	}
	return out
}

// FindEdge returns the edge of the given kind from -> to, or nil.
func (s *Store) FindEdge(kind schema.EdgeKind, from, to int) *schema.Edge {
	for _, e := range s.edges {
		if e.Kind == kind && e.From == from && e.To == to {
			return e
		}
	}
	return nil
}

// Bounds returns the diagram-space rectangle of a node.
func Bounds(n *schema.Node) geometry.Rect {
	return geometry.Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// NodeAt returns the topmost node whose bounds contain p, or nil.
func (s *Store) NodeAt(p geometry.Point) *schema.Node {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		if Bounds(s.nodes[i]).Contains(p) {
			return s.nodes[i]
		}
	}
	return nil
}

// --- Node mutations ---

// AddNode creates a node of the given kind with its top-left corner at
// (x, y) and default size, and returns its id. Unknown kinds return 0.
func (s *Store) AddNode(kind schema.NodeKind, x, y float64) int {
	if !kind.Valid() {
		return 0
	}
	w, h := schema.DefaultSize(kind)
	n := &schema.Node{ID: s.nextNodeID(), Kind: kind, X: x, Y: y, Width: w, Height: h}
	if kind == schema.NodeActivity {
		n.Activity = schema.NewActivity(n.ID)
		n.Activity.XpdlID = s.uniqueActivityXpdlID(n.ID)
	}
	s.nodes = append(s.nodes, n)
	s.notify(schema.EventNodeAdded, n.ID, 0)
	return n.ID
}

// RemoveNode deletes a node and every edge incident to it, then reclassifies
// the surviving endpoints. Returns false if the node does not exist.
func (s *Store) RemoveNode(id int) bool {
	idx := s.nodeIndex(id)
	if idx < 0 {
		return false
	}
	s.nodes = append(s.nodes[:idx], s.nodes[idx+1:]...)

	var removed []*schema.Edge
	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.From == id || e.To == id {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept

	s.notify(schema.EventNodeRemoved, id, 0)
	for _, e := range removed {
		s.notify(schema.EventEdgeRemoved, id, e.ID)
		if e.Kind == schema.EdgeTransition {
			s.recompute(e.From, e.To)
		}
	}
	return true
}

// RemoveSelected deletes every selected edge and node. Returns the number of
// nodes and edges removed.
func (s *Store) RemoveSelected() (nodes, edges int) {
	for _, e := range s.SelectedEdges() {
		if s.RemoveEdge(e.ID) {
			edges++
		}
	}
	for _, n := range s.SelectedNodes() {
		if s.RemoveNode(n.ID) {
			nodes++
		}
	}
	return nodes, edges
}

// BringToFront moves a node to the top of the z-order.
func (s *Store) BringToFront(id int) {
	idx := s.nodeIndex(id)
	if idx < 0 || idx == len(s.nodes)-1 {
		return
	}
	n := s.nodes[idx]
	s.nodes = append(append(s.nodes[:idx], s.nodes[idx+1:]...), n)
}

// MoveSelected translates every selected node by (dx, dy). Returns the
// number of nodes moved.
func (s *Store) MoveSelected(dx, dy float64) int {
	if dx == 0 && dy == 0 {
		return 0
	}
	moved := 0
	for _, n := range s.nodes {
		if !n.Selected {
			continue
		}
		n.X += dx
		n.Y += dy
		moved++
		s.notify(schema.EventNodeMoved, n.ID, 0)
	}
	return moved
}

// ResizeSelected applies a horizontal resize to every selected resizable
// node. Each node is checked against the width floor independently; a node
// that would end up narrower than the floor is left as it is.
// Returns the number of nodes resized.
func (s *Store) ResizeSelected(side Side, delta float64) int {
	resized := 0
	for _, n := range s.nodes {
		if n.Selected && s.resize(n, side, delta) {
			resized++
		}
	}
	return resized
}

// ResizeNode applies a horizontal resize to a single node.
func (s *Store) ResizeNode(id int, side Side, delta float64) bool {
	n := s.Node(id)
	if n == nil {
		return false
	}
	return s.resize(n, side, delta)
}

func (s *Store) resize(n *schema.Node, side Side, delta float64) bool {
	if !n.Kind.Resizable() || delta == 0 {
		return false
	}
	width := n.Width + delta
	if side == SideLeft {
		width = n.Width - delta
	}
	if width < s.minWidth {
		return false
	}
	n.X += delta / 2
	n.Width = width
	s.notify(schema.EventNodeResized, n.ID, 0)
	return true
}

// --- Edge mutations ---

// AddEdge connects from -> to. It returns (0, false) without mutating
// anything when the endpoints are identical or missing, the kinds of the
// endpoints do not fit the edge kind, or an edge of this kind already
// connects the pair. Transition edges reclassify both endpoints.
func (s *Store) AddEdge(kind schema.EdgeKind, from, to int) (int, bool) {
	if from == to {
		return 0, false
	}
	src, dst := s.Node(from), s.Node(to)
	if src == nil || dst == nil || !Connectable(kind, src.Kind, dst.Kind) {
		return 0, false
	}
	if s.FindEdge(kind, from, to) != nil {
		return 0, false
	}

	e := &schema.Edge{ID: s.nextEdgeID(), Kind: kind, From: from, To: to}
	if kind == schema.EdgeTransition {
		e.Transition = &schema.Transition{XpdlID: s.uniqueTransitionXpdlID(e.ID)}
	}
	s.edges = append(s.edges, e)
	s.notify(schema.EventEdgeAdded, from, e.ID)
	if kind == schema.EdgeTransition {
		s.recompute(from, to)
	}
	return e.ID, true
}

// RemoveEdge deletes an edge and reclassifies its endpoints.
func (s *Store) RemoveEdge(id int) bool {
	for i, e := range s.edges {
		if e.ID != id {
			continue
		}
		s.edges = append(s.edges[:i], s.edges[i+1:]...)
		s.notify(schema.EventEdgeRemoved, e.From, e.ID)
		if e.Kind == schema.EdgeTransition {
			s.recompute(e.From, e.To)
		}
		return true
	}
	return false
}

// Connectable reports whether an edge of kind may run between nodes of the
// given kinds.
func Connectable(kind schema.EdgeKind, from, to schema.NodeKind) bool {
	switch kind {
	case schema.EdgeTransition:
		return from == schema.NodeActivity && to == schema.NodeActivity
	case schema.EdgeExtend:
		return (from == schema.NodeStart && to == schema.NodeActivity) ||
			(from == schema.NodeActivity && to == schema.NodeEnd)
	}
	return false
}

func (s *Store) recompute(ids ...int) {
	for _, id := range ids {
		if Recompute(s.nodes, s.edges, id) {
			s.notify(schema.EventTopologyChanged, id, 0)
		}
	}
}

// --- Selection ---

// SetSelection sets each node's selected flag to nodePred(node) and each
// edge's to edgePred(edge). A nil predicate leaves that collection alone.
func (s *Store) SetSelection(nodePred func(*schema.Node) bool, edgePred func(*schema.Edge) bool) {
	changed := false
	if nodePred != nil {
		for _, n := range s.nodes {
			if sel := nodePred(n); sel != n.Selected {
				n.Selected = sel
				changed = true
			}
		}
	}
	if edgePred != nil {
		for _, e := range s.edges {
			if sel := edgePred(e); sel != e.Selected {
				e.Selected = sel
				changed = true
			}
		}
	}
	if changed {
		s.notify(schema.EventSelectionChanged, 0, 0)
	}
}

// SelectOnly makes node id the sole selection and clears edge selection.
func (s *Store) SelectOnly(id int) {
	s.SetSelection(
		func(n *schema.Node) bool { return n.ID == id },
		func(*schema.Edge) bool { return false },
	)
}

// SelectEdge makes edge id the sole selection and clears node selection.
func (s *Store) SelectEdge(id int) {
	s.SetSelection(
		func(*schema.Node) bool { return false },
		func(e *schema.Edge) bool { return e.ID == id },
	)
}

// ToggleNode flips a single node's selected flag.
func (s *Store) ToggleNode(id int) {
	s.SetSelection(func(n *schema.Node) bool {
		if n.ID == id {
			return !n.Selected
		}
		return n.Selected
	}, nil)
}

// ClearSelection deselects everything.
func (s *Store) ClearSelection() {
	none := func(*schema.Node) bool { return false }
	s.SetSelection(none, func(*schema.Edge) bool { return false })
}

// --- helpers ---

func (s *Store) nodeIndex(id int) int {
	for i, n := range s.nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nextNodeID() int {
	next := 1
	for _, n := range s.nodes {
		if n.ID >= next {
			next = n.ID + 1
		}
	}
	return next
}

func (s *Store) nextEdgeID() int {
	next := 1
	for _, e := range s.edges {
		if e.ID >= next {
			next = e.ID + 1
		}
	}
	return next
}

func (s *Store) uniqueActivityXpdlID(n int) string {
	for ; ; n++ {
		id := schema.ActivityXpdlID(n)
		if !s.activityXpdlIDTaken(id, 0) {
			return id
		}
	}
}

func (s *Store) activityXpdlIDTaken(xpdlID string, except int) bool {
	for _, n := range s.nodes {
		if n.ID != except && n.Activity != nil && n.Activity.XpdlID == xpdlID {
			return true
		}
	}
	return false
}

func (s *Store) uniqueTransitionXpdlID(n int) string {
	for ; ; n++ {
		id := fmt.Sprintf("newpkg_wp1_tra%d", n)
		if !s.transitionXpdlIDTaken(id, 0) {
			return id
		}
	}
}

func (s *Store) transitionXpdlIDTaken(xpdlID string, except int) bool {
	for _, e := range s.edges {
		if e.ID != except && e.Transition != nil && e.Transition.XpdlID == xpdlID {
			return true
		}
	}
	return false
}
