package mcp

import (
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/pkg/schema"
)

// EditOp is one flowedit.edit operation. Which fields apply depends on Op.
type EditOp struct {
	Op     string  `json:"op"`
	Kind   string  `json:"kind,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	NodeID int     `json:"node_id,omitempty"`
	EdgeID int     `json:"edge_id,omitempty"`
	From   int     `json:"from,omitempty"`
	To     int     `json:"to,omitempty"`
	DX     float64 `json:"dx,omitempty"`
	DY     float64 `json:"dy,omitempty"`
	Side   string  `json:"side,omitempty"`
	Delta  float64 `json:"delta,omitempty"`
}

// applyEdits runs ops against g in order and stops at the first failure.
// Each successful op contributes one result entry.
func applyEdits(g *graph.Store, ops []EditOp) ([]map[string]any, error) {
	results := make([]map[string]any, 0, len(ops))
	for i, op := range ops {
		res, err := applyEdit(g, op)
		if err != nil {
			return nil, err.WithDetails(map[string]any{"index": i, "op": op.Op})
		}
		res["op"] = op.Op
		results = append(results, res)
	}
	return results, nil
}

func applyEdit(g *graph.Store, op EditOp) (map[string]any, *schema.FlowError) {
	switch op.Op {
	case "add_node":
		id := g.AddNode(schema.NodeKind(op.Kind), op.X, op.Y)
		if id == 0 {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown node kind %q", op.Kind)
		}
		return map[string]any{"node_id": id}, nil

	case "add_edge":
		kind := schema.EdgeKind(op.Kind)
		if op.Kind == "" {
			kind = schema.EdgeTransition
		}
		id, ok := g.AddEdge(kind, op.From, op.To)
		if !ok {
			return nil, schema.NewErrorf(schema.ErrCodeValidation,
				"cannot add %s edge %d -> %d", kind, op.From, op.To)
		}
		return map[string]any{"edge_id": id}, nil

	case "remove_node":
		if !g.RemoveNode(op.NodeID) {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %d not found", op.NodeID)
		}
		return map[string]any{"node_id": op.NodeID}, nil

	case "remove_edge":
		if !g.RemoveEdge(op.EdgeID) {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "edge %d not found", op.EdgeID)
		}
		return map[string]any{"edge_id": op.EdgeID}, nil

	case "move":
		if g.Node(op.NodeID) == nil {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %d not found", op.NodeID)
		}
		g.SelectOnly(op.NodeID)
		g.MoveSelected(op.DX, op.DY)
		g.ClearSelection()
		n := g.Node(op.NodeID)
		return map[string]any{"node_id": n.ID, "x": n.X, "y": n.Y}, nil

	case "resize":
		n := g.Node(op.NodeID)
		if n == nil {
			return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %d not found", op.NodeID)
		}
		var side graph.Side
		switch op.Side {
		case "left":
			side = graph.SideLeft
		case "right", "":
			side = graph.SideRight
		default:
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown side %q", op.Side)
		}
		resized := g.ResizeNode(op.NodeID, side, op.Delta)
		return map[string]any{"node_id": n.ID, "x": n.X, "width": n.Width, "resized": resized}, nil
	}
	return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown operation %q", op.Op)
}
