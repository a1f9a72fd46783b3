package graph

import (
	"fmt"

	"github.com/rendis/flowedit/pkg/schema"
)

// UpdateActivity replaces the user-editable fields of an activity node.
// The derived join/split classification is never taken from the input.
// Fields that do not apply to the chosen type are dropped: applications
// survive only on auto activities (and only with a non-empty expression),
// the timer expression only on timer activities.
func (s *Store) UpdateActivity(id int, in schema.Activity) *schema.FlowError {
	n := s.Node(id)
	if n == nil || n.Kind != schema.NodeActivity || n.Activity == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "activity %d not found", id)
	}
	if !in.Type.Valid() {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown activity type %q", in.Type)
	}
	if in.XpdlID == "" {
		return schema.NewError(schema.ErrCodeValidation, "activity id must not be empty")
	}
	if s.activityXpdlIDTaken(in.XpdlID, id) {
		return schema.NewErrorf(schema.ErrCodeIDExists, "activity id %q already exists", in.XpdlID).
			WithDetails(map[string]any{"node_id": id, "xpdl_id": in.XpdlID})
	}
	if in.ActorID != 0 && s.actor(in.ActorID) == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "actor %d not found", in.ActorID)
	}

	var apps []schema.ApplicationCall
	if in.Type == schema.ActivityAuto {
		seen := make(map[string]bool, len(in.Applications))
		for _, call := range in.Applications {
			if call.Expression == "" {
				continue
			}
			if seen[call.ApplicationID] {
				return schema.NewErrorf(schema.ErrCodeDuplicateApplication,
					"application %q bound twice", call.ApplicationID)
			}
			if !s.hasApplication(call.ApplicationID) {
				return schema.NewErrorf(schema.ErrCodeNotFound, "application %q not found", call.ApplicationID)
			}
			seen[call.ApplicationID] = true
			apps = append(apps, call)
		}
	}

	a := n.Activity
	a.XpdlID = in.XpdlID
	a.Type = in.Type
	a.ActorID = in.ActorID
	a.Title = in.Title
	a.Applications = apps
	a.Expression = ""
	if in.Type.IsTimer() {
		a.Expression = in.Expression
	}
	a.JoinMode = gateOrDefault(in.JoinMode)
	a.SplitMode = gateOrDefault(in.SplitMode)

	s.notify(schema.EventNodeUpdated, id, 0)
	return nil
}

// UpdateComment replaces the text of a comment node.
func (s *Store) UpdateComment(id int, text string) bool {
	n := s.Node(id)
	if n == nil || n.Kind != schema.NodeComment {
		return false
	}
	n.Comment = text
	s.notify(schema.EventNodeUpdated, id, 0)
	return true
}

// UpdateTransition replaces the editable fields of a transition edge.
func (s *Store) UpdateTransition(id int, in schema.Transition) *schema.FlowError {
	e := s.Edge(id)
	if e == nil || e.Kind != schema.EdgeTransition {
		return schema.NewErrorf(schema.ErrCodeNotFound, "transition %d not found", id)
	}
	if in.XpdlID != "" && s.transitionXpdlIDTaken(in.XpdlID, id) {
		return schema.NewErrorf(schema.ErrCodeIDExists, "transition id %q already exists", in.XpdlID)
	}
	t := in
	e.Transition = &t
	s.notify(schema.EventEdgeUpdated, e.From, id)
	return nil
}

// --- Actors ---

// AddActor appends an actor and returns its id.
func (s *Store) AddActor(name string) int {
	id := 1
	for _, a := range s.actors {
		if a.ID >= id {
			id = a.ID + 1
		}
	}
	xpdlID := fmt.Sprintf("newpkg_wp1_par%d", id)
	for n := id + 1; s.actorXpdlIDTaken(xpdlID, 0); n++ {
		xpdlID = fmt.Sprintf("newpkg_wp1_par%d", n)
	}
	s.actors = append(s.actors, schema.Actor{ID: id, XpdlID: xpdlID, Name: name})
	s.notify(schema.EventActorAdded, 0, 0)
	return id
}

// UpdateActor replaces the name and external id of an existing actor.
func (s *Store) UpdateActor(in schema.Actor) *schema.FlowError {
	a := s.actor(in.ID)
	if a == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "actor %d not found", in.ID)
	}
	if in.XpdlID == "" {
		return schema.NewError(schema.ErrCodeValidation, "actor id must not be empty")
	}
	if s.actorXpdlIDTaken(in.XpdlID, in.ID) {
		return schema.NewErrorf(schema.ErrCodeIDExists, "actor id %q already exists", in.XpdlID)
	}
	*a = in
	s.notify(schema.EventActorUpdated, 0, 0)
	return nil
}

// RemoveActor deletes an actor and unassigns it from every activity.
func (s *Store) RemoveActor(id int) bool {
	for i, a := range s.actors {
		if a.ID != id {
			continue
		}
		s.actors = append(s.actors[:i], s.actors[i+1:]...)
		for _, n := range s.nodes {
			if n.Activity != nil && n.Activity.ActorID == id {
				n.Activity.ActorID = 0
				s.notify(schema.EventNodeUpdated, n.ID, 0)
			}
		}
		s.notify(schema.EventActorRemoved, 0, 0)
		return true
	}
	return false
}

func (s *Store) actor(id int) *schema.Actor {
	for i := range s.actors {
		if s.actors[i].ID == id {
			return &s.actors[i]
		}
	}
	return nil
}

func (s *Store) actorXpdlIDTaken(xpdlID string, except int) bool {
	for _, a := range s.actors {
		if a.ID != except && a.XpdlID == xpdlID {
			return true
		}
	}
	return false
}

func (s *Store) hasApplication(xpdlID string) bool {
	for _, a := range s.applications {
		if a.XpdlID == xpdlID {
			return true
		}
	}
	return false
}

func gateOrDefault(m schema.GateMode) schema.GateMode {
	if m.Valid() {
		return m
	}
	return schema.GateXOR
}
