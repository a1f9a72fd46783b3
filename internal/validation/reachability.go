package validation

import (
	"fmt"

	"github.com/rendis/flowedit/pkg/schema"
)

// checkReachability warns about activities no start node leads to, walking
// extend and transition edges breadth-first from every start node.
// Processes without a start node are reported by checkMarkers instead.
func checkReachability(proc *schema.Process, path string) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	next := make(map[int][]int, len(proc.Nodes))
	for _, e := range proc.Edges {
		next[e.From] = append(next[e.From], e.To)
	}

	var queue []int
	reachable := make(map[int]bool, len(proc.Nodes))
	for _, n := range proc.Nodes {
		if n.Kind == schema.NodeStart {
			queue = append(queue, n.ID)
			reachable[n.ID] = true
		}
	}
	if len(queue) == 0 {
		return result
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, to := range next[id] {
			if !reachable[to] {
				reachable[to] = true
				queue = append(queue, to)
			}
		}
	}

	for i, n := range proc.Nodes {
		if n.Kind == schema.NodeActivity && !reachable[n.ID] {
			result.AddWarning(fmt.Sprintf("%s.nodes[%d]", path, i), schema.ErrCodeValidation,
				fmt.Sprintf("activity %q is unreachable from any start node", n.Activity.XpdlID))
		}
	}
	return result
}

// checkMarkers warns when a process lacks a start or an end node.
func checkMarkers(proc *schema.Process, path string) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	var starts, ends int
	for _, n := range proc.Nodes {
		switch n.Kind {
		case schema.NodeStart:
			starts++
		case schema.NodeEnd:
			ends++
		}
	}
	if starts == 0 {
		result.AddWarning(path, schema.ErrCodeValidation,
			fmt.Sprintf("process %q has no start node", proc.Detail.XpdlID))
	}
	if ends == 0 {
		result.AddWarning(path, schema.ErrCodeValidation,
			fmt.Sprintf("process %q has no end node", proc.Detail.XpdlID))
	}
	return result
}
