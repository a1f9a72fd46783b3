package graph

import (
	"github.com/rendis/flowedit/internal/geometry"
	"github.com/rendis/flowedit/pkg/schema"
)

// HitKind classifies what lies under a diagram point.
type HitKind int

const (
	HitCanvas HitKind = iota
	HitNode
	HitLeftHandle
	HitRightHandle
	HitAnchor
)

func (k HitKind) String() string {
	switch k {
	case HitNode:
		return "node"
	case HitLeftHandle:
		return "left-handle"
	case HitRightHandle:
		return "right-handle"
	case HitAnchor:
		return "anchor"
	default:
		return "canvas"
	}
}

// Hit is the result of a hit test.
type Hit struct {
	Kind   HitKind
	NodeID int
}

// AnchorPoint returns the point outgoing connections of n start from:
// the middle of its right edge.
func AnchorPoint(n *schema.Node) geometry.Point {
	return Bounds(n).RightMiddle()
}

// HasAnchor reports whether a connection gesture can start from n.
func HasAnchor(n *schema.Node) bool {
	return n.Kind == schema.NodeActivity || n.Kind == schema.NodeStart
}

// HitTest resolves the target of a pointer-down at p. Nodes are visited
// from the top of the z-order down. A node's output anchor is checked
// before its bounds since it may poke outside them; the first node that
// contains p then decides between its resize handles, which are handle
// units wide, and its body, and occludes everything below it.
func (s *Store) HitTest(p geometry.Point, handle, anchorRadius float64) Hit {
	for i := len(s.nodes) - 1; i >= 0; i-- {
		n := s.nodes[i]
		if HasAnchor(n) && geometry.Distance(p, AnchorPoint(n)) <= anchorRadius {
			return Hit{Kind: HitAnchor, NodeID: n.ID}
		}
		if Bounds(n).Contains(p) {
			return bodyHit(n, p, handle)
		}
	}
	return Hit{Kind: HitCanvas}
}

func bodyHit(n *schema.Node, p geometry.Point, handle float64) Hit {
	if n.Kind.Resizable() && handle > 0 {
		if p.X-n.X <= handle {
			return Hit{Kind: HitLeftHandle, NodeID: n.ID}
		}
		if n.X+n.Width-p.X <= handle {
			return Hit{Kind: HitRightHandle, NodeID: n.ID}
		}
	}
	return Hit{Kind: HitNode, NodeID: n.ID}
}
