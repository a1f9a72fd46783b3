package validation

import (
	"fmt"

	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/pkg/schema"
)

// CheckStructure reports every referential or uniqueness problem that would
// leave a project violating the graph invariants: dangling references,
// duplicate ids, self loops, duplicate edges, edges whose kind does not fit
// their endpoints, and a project without processes. Documents failing these
// checks must not be loaded.
func CheckStructure(p *schema.Project) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if p == nil {
		result.AddError("/", schema.ErrCodeValidation, "project is nil")
		return result
	}
	if len(p.Processes) == 0 {
		result.AddError("processes", schema.ErrCodeValidation, "project has no process")
		return result
	}

	ids := make(map[int]bool, len(p.Processes))
	xpdlIDs := make(map[string]bool, len(p.Processes))
	for i, proc := range p.Processes {
		path := fmt.Sprintf("processes[%d]", i)
		if proc == nil {
			result.AddError(path, schema.ErrCodeValidation, "process is nil")
			continue
		}
		if proc.ID <= 0 {
			result.AddError(path+".id", schema.ErrCodeValidation, fmt.Sprintf("invalid process id %d", proc.ID))
		} else if ids[proc.ID] {
			result.AddError(path+".id", schema.ErrCodeValidation, fmt.Sprintf("duplicate process id %d", proc.ID))
		}
		ids[proc.ID] = true

		switch {
		case proc.Detail.XpdlID == "":
			result.AddError(path+".detail.xpdl_id", schema.ErrCodeValidation, "process id must not be empty")
		case xpdlIDs[proc.Detail.XpdlID]:
			result.AddError(path+".detail.xpdl_id", schema.ErrCodeIDExists,
				fmt.Sprintf("process id %q already exists", proc.Detail.XpdlID))
		}
		xpdlIDs[proc.Detail.XpdlID] = true

		checkProcess(proc, path, result)
	}
	return result
}

func checkProcess(proc *schema.Process, path string, result *schema.ValidationResult) {
	apps := make(map[string]bool, len(proc.Detail.Applications))
	for j, app := range proc.Detail.Applications {
		p := fmt.Sprintf("%s.detail.applications[%d]", path, j)
		switch {
		case app.XpdlID == "":
			result.AddError(p, schema.ErrCodeValidation, "application id must not be empty")
		case apps[app.XpdlID]:
			result.AddError(p, schema.ErrCodeDuplicateApplication,
				fmt.Sprintf("application id %q already exists", app.XpdlID))
		}
		apps[app.XpdlID] = true
	}

	actors := make(map[int]bool, len(proc.Actors))
	actorXpdl := make(map[string]bool, len(proc.Actors))
	for j, a := range proc.Actors {
		p := fmt.Sprintf("%s.actors[%d]", path, j)
		if a.ID <= 0 || actors[a.ID] {
			result.AddError(p+".id", schema.ErrCodeValidation, fmt.Sprintf("invalid or duplicate actor id %d", a.ID))
		}
		actors[a.ID] = true
		switch {
		case a.XpdlID == "":
			result.AddError(p+".xpdl_id", schema.ErrCodeValidation, "actor id must not be empty")
		case actorXpdl[a.XpdlID]:
			result.AddError(p+".xpdl_id", schema.ErrCodeIDExists, fmt.Sprintf("actor id %q already exists", a.XpdlID))
		}
		actorXpdl[a.XpdlID] = true
	}

	nodes := make(map[int]schema.NodeKind, len(proc.Nodes))
	activityIDs := make(map[string]bool)
	for j, n := range proc.Nodes {
		p := fmt.Sprintf("%s.nodes[%d]", path, j)
		if n == nil {
			result.AddError(p, schema.ErrCodeValidation, "node is nil")
			continue
		}
		if n.ID <= 0 {
			result.AddError(p+".id", schema.ErrCodeValidation, fmt.Sprintf("invalid node id %d", n.ID))
		} else if _, dup := nodes[n.ID]; dup {
			result.AddError(p+".id", schema.ErrCodeValidation, fmt.Sprintf("duplicate node id %d", n.ID))
		}
		nodes[n.ID] = n.Kind

		if !n.Kind.Valid() {
			result.AddError(p+".kind", schema.ErrCodeValidation, fmt.Sprintf("unknown node kind %q", n.Kind))
			continue
		}
		if n.Width <= 0 || n.Height <= 0 {
			result.AddError(p, schema.ErrCodeValidation,
				fmt.Sprintf("node %d has non-positive size %gx%g", n.ID, n.Width, n.Height))
		}
		if n.Kind != schema.NodeActivity {
			if n.Activity != nil {
				result.AddError(p+".activity", schema.ErrCodeValidation,
					fmt.Sprintf("%s node %d carries activity fields", n.Kind, n.ID))
			}
			continue
		}
		checkActivity(n, p, apps, actors, activityIDs, result)
	}

	edgeIDs := make(map[int]bool, len(proc.Edges))
	type pairKey struct {
		kind     schema.EdgeKind
		from, to int
	}
	pairs := make(map[pairKey]bool, len(proc.Edges))
	transitionIDs := make(map[string]bool)
	for j, e := range proc.Edges {
		p := fmt.Sprintf("%s.edges[%d]", path, j)
		if e == nil {
			result.AddError(p, schema.ErrCodeValidation, "edge is nil")
			continue
		}
		if e.ID <= 0 || edgeIDs[e.ID] {
			result.AddError(p+".id", schema.ErrCodeValidation, fmt.Sprintf("invalid or duplicate edge id %d", e.ID))
		}
		edgeIDs[e.ID] = true

		if !e.Kind.Valid() {
			result.AddError(p+".kind", schema.ErrCodeValidation, fmt.Sprintf("unknown edge kind %q", e.Kind))
			continue
		}
		fromKind, fromOK := nodes[e.From]
		toKind, toOK := nodes[e.To]
		if !fromOK {
			result.AddError(p+".from", schema.ErrCodeNotFound, fmt.Sprintf("edge %d references missing node %d", e.ID, e.From))
		}
		if !toOK {
			result.AddError(p+".to", schema.ErrCodeNotFound, fmt.Sprintf("edge %d references missing node %d", e.ID, e.To))
		}
		if e.From == e.To {
			result.AddError(p, schema.ErrCodeValidation, fmt.Sprintf("edge %d is a self loop", e.ID))
		}
		key := pairKey{e.Kind, e.From, e.To}
		if pairs[key] {
			result.AddError(p, schema.ErrCodeValidation,
				fmt.Sprintf("duplicate %s edge %d -> %d", e.Kind, e.From, e.To))
		}
		pairs[key] = true
		if fromOK && toOK && !graph.Connectable(e.Kind, fromKind, toKind) {
			result.AddError(p+".kind", schema.ErrCodeValidation,
				fmt.Sprintf("%s edge cannot connect %s to %s", e.Kind, fromKind, toKind))
		}

		if e.Kind == schema.EdgeTransition && e.Transition != nil && e.Transition.XpdlID != "" {
			if transitionIDs[e.Transition.XpdlID] {
				result.AddError(p+".transition.xpdl_id", schema.ErrCodeIDExists,
					fmt.Sprintf("transition id %q already exists", e.Transition.XpdlID))
			}
			transitionIDs[e.Transition.XpdlID] = true
		}
	}
}

func checkActivity(n *schema.Node, path string, apps map[string]bool, actors map[int]bool,
	seen map[string]bool, result *schema.ValidationResult) {
	a := n.Activity
	if a == nil {
		result.AddError(path+".activity", schema.ErrCodeValidation, fmt.Sprintf("activity node %d has no activity fields", n.ID))
		return
	}
	if !a.Type.Valid() {
		result.AddError(path+".activity.type", schema.ErrCodeValidation, fmt.Sprintf("unknown activity type %q", a.Type))
	}
	switch {
	case a.XpdlID == "":
		result.AddError(path+".activity.xpdl_id", schema.ErrCodeValidation, "activity id must not be empty")
	case seen[a.XpdlID]:
		result.AddError(path+".activity.xpdl_id", schema.ErrCodeIDExists,
			fmt.Sprintf("activity id %q already exists", a.XpdlID))
	}
	seen[a.XpdlID] = true

	if a.ActorID != 0 && !actors[a.ActorID] {
		result.AddError(path+".activity.actor_id", schema.ErrCodeNotFound,
			fmt.Sprintf("activity %q references missing actor %d", a.XpdlID, a.ActorID))
	}

	bound := make(map[string]bool, len(a.Applications))
	for k, call := range a.Applications {
		p := fmt.Sprintf("%s.activity.applications[%d]", path, k)
		if !apps[call.ApplicationID] {
			result.AddError(p, schema.ErrCodeNotFound,
				fmt.Sprintf("activity %q references missing application %q", a.XpdlID, call.ApplicationID))
		}
		if bound[call.ApplicationID] {
			result.AddError(p, schema.ErrCodeDuplicateApplication,
				fmt.Sprintf("activity %q binds application %q twice", a.XpdlID, call.ApplicationID))
		}
		bound[call.ApplicationID] = true
	}

	for field, mode := range map[string]schema.GateMode{"join_mode": a.JoinMode, "split_mode": a.SplitMode} {
		if mode != "" && !mode.Valid() {
			result.AddError(path+".activity."+field, schema.ErrCodeValidation, fmt.Sprintf("unknown gate mode %q", mode))
		}
	}
}
