package graph

import "github.com/rendis/flowedit/pkg/schema"

// Classify buckets a transition count: 0 -> none, 1 -> one, 2+ -> many.
func Classify(count int) schema.Multiplicity {
	switch {
	case count <= 0:
		return schema.MultiplicityNone
	case count == 1:
		return schema.MultiplicityOne
	default:
		return schema.MultiplicityMany
	}
}

// Incoming counts transition edges ending at id.
func Incoming(edges []*schema.Edge, id int) int {
	n := 0
	for _, e := range edges {
		if e.Kind == schema.EdgeTransition && e.To == id {
			n++
		}
	}
	return n
}

// Outgoing counts transition edges starting at id.
func Outgoing(edges []*schema.Edge, id int) int {
	n := 0
	for _, e := range edges {
		if e.Kind == schema.EdgeTransition && e.From == id {
			n++
		}
	}
	return n
}

// Recompute writes the derived join and split classification of node id.
// Only activity nodes carry them; other kinds are left alone. Reports whether
// either field changed.
func Recompute(nodes []*schema.Node, edges []*schema.Edge, id int) bool {
	n := findNode(nodes, id)
	if n == nil || n.Kind != schema.NodeActivity || n.Activity == nil {
		return false
	}
	return apply(n.Activity, Incoming(edges, id), Outgoing(edges, id))
}

// RecomputeAll reclassifies every activity in one pass over the edges.
// Returns the ids of the nodes whose classification changed.
func RecomputeAll(nodes []*schema.Node, edges []*schema.Edge) []int {
	in := make(map[int]int, len(nodes))
	out := make(map[int]int, len(nodes))
	for _, e := range edges {
		if e.Kind != schema.EdgeTransition {
			continue
		}
		out[e.From]++
		in[e.To]++
	}

	var changed []int
	for _, n := range nodes {
		if n.Kind != schema.NodeActivity || n.Activity == nil {
			continue
		}
		if apply(n.Activity, in[n.ID], out[n.ID]) {
			changed = append(changed, n.ID)
		}
	}
	return changed
}

func apply(a *schema.Activity, in, out int) bool {
	join, split := Classify(in), Classify(out)
	if a.Join == join && a.Split == split {
		return false
	}
	a.Join, a.Split = join, split
	return true
}

func findNode(nodes []*schema.Node, id int) *schema.Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
