package xpdl

import (
	"encoding/xml"
	"fmt"

	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/schema"
)

// Export encodes p as an XPDL document.
func Export(p *schema.Project) (string, error) {
	b, err := Encode(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Import decodes an XPDL document. It is all-or-nothing: on error no
// project is returned.
func Import(text string) (*schema.Project, error) {
	return Decode([]byte(text))
}

// Encode writes p as an indented XPDL document. Projects that fail the
// structural checks are rejected with a VALIDATION_ERROR, since their
// references could not be written.
func Encode(p *schema.Project) ([]byte, error) {
	if err := validation.CheckStructure(p).ToError(); err != nil {
		return nil, err
	}

	doc := xmlPackage{
		ID:     p.XpdlID,
		Name:   p.Name,
		Header: xmlHeader{XPDLVersion: Version, Vendor: Vendor},
	}
	for _, proc := range p.Processes {
		doc.Processes = append(doc.Processes, encodeProcess(proc))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "failed to encode document").WithCause(err)
	}
	buf := make([]byte, 0, len(xml.Header)+len(out)+1)
	buf = append(buf, xml.Header...)
	buf = append(buf, out...)
	return append(buf, '\n'), nil
}

func encodeProcess(proc *schema.Process) xmlProcess {
	xp := xmlProcess{
		ID:   proc.Detail.XpdlID,
		Name: proc.Detail.Title,
		Key:  proc.ID,
	}

	performers := make(map[int]string, len(proc.Actors))
	for _, a := range proc.Actors {
		performers[a.ID] = a.XpdlID
		xp.Participants = append(xp.Participants, xmlParticipant{ID: a.XpdlID, Key: a.ID, Name: a.Name})
	}
	for _, app := range proc.Detail.Applications {
		xp.Applications = append(xp.Applications, xmlApplication{
			ID: app.XpdlID, Name: app.Name, Description: app.Description,
		})
	}

	for _, n := range proc.Nodes {
		xa := xmlActivity{
			Key:      n.ID,
			Kind:     string(n.Kind),
			Graphics: xmlGraphics{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height},
		}
		switch n.Kind {
		case schema.NodeActivity:
			a := n.Activity
			xa.ID = a.XpdlID
			xa.Name = a.Title
			xa.Type = string(a.Type)
			xa.Performer = performers[a.ActorID]
			xa.Restrictions = &xmlRestriction{
				Join:  encodeGate(a.Join, a.JoinMode),
				Split: encodeGate(a.Split, a.SplitMode),
			}
			for _, call := range a.Applications {
				xa.Tools = append(xa.Tools, xmlTool{ID: call.ApplicationID, Expression: call.Expression})
			}
			if a.Expression != "" {
				xa.Timer = &xmlTimer{Expression: a.Expression}
			}
		case schema.NodeComment:
			text := n.Comment
			xa.Comment = &text
		}
		xp.Activities = append(xp.Activities, xa)
	}

	for _, e := range proc.Edges {
		xt := xmlTransition{Key: e.ID, Kind: string(e.Kind), From: e.From, To: e.To}
		if e.Kind == schema.EdgeTransition && e.Transition != nil {
			xt.ID = e.Transition.XpdlID
			xt.Condition = e.Transition.Condition
		}
		xp.Transitions = append(xp.Transitions, xt)
	}
	return xp
}

func encodeGate(m schema.Multiplicity, mode schema.GateMode) xmlGate {
	g := xmlGate{Type: gateType(m, mode)}
	if g.Type != gateXOR && g.Type != gateAND {
		g.Mode = string(mode)
	}
	return g
}

// Decode parses an XPDL document into a project. Any malformed or
// inconsistent content fails the whole document with IMPORT_ERROR. Derived
// join/split fields are recomputed from the transitions rather than trusted.
func Decode(data []byte) (*schema.Project, error) {
	var doc xmlPackage
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeImport, "document is not well-formed").WithCause(err)
	}

	p := &schema.Project{XpdlID: doc.ID, Name: doc.Name}
	for i, xp := range doc.Processes {
		proc, err := decodeProcess(xp)
		if err != nil {
			return nil, err.WithDetails(map[string]any{"path": fmt.Sprintf("processes[%d]", i)})
		}
		p.Processes = append(p.Processes, proc)
	}

	if err := validation.CheckStructure(p).ToErrorCode(schema.ErrCodeImport); err != nil {
		return nil, err
	}
	for _, proc := range p.Processes {
		graph.RecomputeAll(proc.Nodes, proc.Edges)
	}
	return p, nil
}

func decodeProcess(xp xmlProcess) (*schema.Process, *schema.FlowError) {
	proc := &schema.Process{
		ID:     xp.Key,
		Detail: schema.ProcessDetail{XpdlID: xp.ID, Title: xp.Name},
	}

	actors := make(map[string]int, len(xp.Participants))
	for _, xa := range xp.Participants {
		if _, ok := actors[xa.ID]; !ok {
			actors[xa.ID] = xa.Key
		}
		proc.Actors = append(proc.Actors, schema.Actor{ID: xa.Key, XpdlID: xa.ID, Name: xa.Name})
	}
	for _, app := range xp.Applications {
		proc.Detail.Applications = append(proc.Detail.Applications, schema.Application{
			XpdlID: app.ID, Name: app.Name, Description: app.Description,
		})
	}

	for _, xa := range xp.Activities {
		n, err := decodeNode(xa, actors)
		if err != nil {
			return nil, err.WithProcess(xp.Key)
		}
		proc.Nodes = append(proc.Nodes, n)
	}

	for _, xt := range xp.Transitions {
		kind := schema.EdgeKind(xt.Kind)
		if !kind.Valid() {
			return nil, schema.NewErrorf(schema.ErrCodeImport, "transition %d has unknown kind %q", xt.Key, xt.Kind).
				WithProcess(xp.Key)
		}
		e := &schema.Edge{ID: xt.Key, Kind: kind, From: xt.From, To: xt.To}
		if kind == schema.EdgeTransition {
			e.Transition = &schema.Transition{XpdlID: xt.ID, Condition: xt.Condition}
		}
		proc.Edges = append(proc.Edges, e)
	}
	return proc, nil
}

func decodeNode(xa xmlActivity, actors map[string]int) (*schema.Node, *schema.FlowError) {
	kind := schema.NodeKind(xa.Kind)
	if !kind.Valid() {
		return nil, schema.NewErrorf(schema.ErrCodeImport, "activity %d has unknown kind %q", xa.Key, xa.Kind)
	}
	n := &schema.Node{
		ID:     xa.Key,
		Kind:   kind,
		X:      xa.Graphics.X,
		Y:      xa.Graphics.Y,
		Width:  xa.Graphics.Width,
		Height: xa.Graphics.Height,
	}

	switch kind {
	case schema.NodeActivity:
		a := &schema.Activity{
			XpdlID:    xa.ID,
			Type:      schema.ActivityType(xa.Type),
			Title:     xa.Name,
			Join:      schema.MultiplicityNone,
			Split:     schema.MultiplicityNone,
			JoinMode:  schema.GateXOR,
			SplitMode: schema.GateXOR,
		}
		if !a.Type.Valid() {
			return nil, schema.NewErrorf(schema.ErrCodeImport, "activity %q has unknown type %q", xa.ID, xa.Type)
		}
		if xa.Performer != "" {
			id, ok := actors[xa.Performer]
			if !ok {
				return nil, schema.NewErrorf(schema.ErrCodeImport,
					"activity %q references unknown participant %q", xa.ID, xa.Performer)
			}
			a.ActorID = id
		}
		if r := xa.Restrictions; r != nil {
			var ok bool
			if a.JoinMode, ok = parseGate(r.Join); !ok {
				return nil, schema.NewErrorf(schema.ErrCodeImport, "activity %q has invalid join %q", xa.ID, r.Join.Type)
			}
			if a.SplitMode, ok = parseGate(r.Split); !ok {
				return nil, schema.NewErrorf(schema.ErrCodeImport, "activity %q has invalid split %q", xa.ID, r.Split.Type)
			}
		}
		for _, t := range xa.Tools {
			a.Applications = append(a.Applications, schema.ApplicationCall{ApplicationID: t.ID, Expression: t.Expression})
		}
		if xa.Timer != nil {
			a.Expression = xa.Timer.Expression
		}
		n.Activity = a
	case schema.NodeComment:
		if xa.Comment != nil {
			n.Comment = *xa.Comment
		}
	}
	return n, nil
}
