package schema

import "fmt"

// NodeKind discriminates the node variants of a process diagram.
type NodeKind string

const (
	NodeStart    NodeKind = "start"
	NodeEnd      NodeKind = "end"
	NodeActivity NodeKind = "activity"
	NodeComment  NodeKind = "comment"
)

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case NodeStart, NodeEnd, NodeActivity, NodeComment:
		return true
	}
	return false
}

// Resizable reports whether nodes of this kind accept width changes.
func (k NodeKind) Resizable() bool {
	switch k {
	case NodeActivity, NodeComment:
		return true
	case NodeStart, NodeEnd:
		return false
	}
	return false
}

// EdgeKind discriminates the edge variants of a process diagram.
type EdgeKind string

const (
	EdgeTransition EdgeKind = "transition" // activity -> activity
	EdgeExtend     EdgeKind = "extend"     // start -> activity, activity -> end
)

// Valid reports whether k is one of the known edge kinds.
func (k EdgeKind) Valid() bool {
	return k == EdgeTransition || k == EdgeExtend
}

// ActivityType enumerates the kinds of work an activity node represents.
type ActivityType string

const (
	ActivityManual      ActivityType = "manual"
	ActivityAuto        ActivityType = "auto"
	ActivityManualTimer ActivityType = "manualTimer"
	ActivityAutoTimer   ActivityType = "autoTimer"
	ActivityUser        ActivityType = "user"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityManual, ActivityAuto, ActivityManualTimer, ActivityAutoTimer, ActivityUser:
		return true
	}
	return false
}

// IsTimer reports whether the activity fires on a timer expression.
func (t ActivityType) IsTimer() bool {
	return t == ActivityManualTimer || t == ActivityAutoTimer
}

// Multiplicity is the bucketed count of incoming or outgoing transitions.
type Multiplicity string

const (
	MultiplicityNone Multiplicity = "none"
	MultiplicityOne  Multiplicity = "one"
	MultiplicityMany Multiplicity = "many"
)

// GateMode selects how a many-way join or split behaves.
type GateMode string

const (
	GateXOR GateMode = "xor"
	GateAND GateMode = "and"
)

// Valid reports whether m is a known gate mode.
func (m GateMode) Valid() bool {
	return m == GateXOR || m == GateAND
}

// Default sizes in diagram units.
const (
	DefaultActivityWidth  = 100.0
	DefaultActivityHeight = 100.0
	DefaultMarkerSize     = 40.0 // start and end nodes
	DefaultCommentWidth   = 140.0
	DefaultCommentHeight  = 80.0
	MinNodeWidth          = 100.0
)

// DefaultSize returns the width and height a new node of kind k is created with.
func DefaultSize(k NodeKind) (float64, float64) {
	switch k {
	case NodeActivity:
		return DefaultActivityWidth, DefaultActivityHeight
	case NodeStart, NodeEnd:
		return DefaultMarkerSize, DefaultMarkerSize
	case NodeComment:
		return DefaultCommentWidth, DefaultCommentHeight
	}
	return 0, 0
}

// Node is a single element of a process diagram. Exactly one of the
// kind-specific payloads is meaningful, selected by Kind.
type Node struct {
	ID       int       `json:"id" yaml:"id"`
	Kind     NodeKind  `json:"kind" yaml:"kind"`
	X        float64   `json:"x" yaml:"x"`
	Y        float64   `json:"y" yaml:"y"`
	Width    float64   `json:"width" yaml:"width"`
	Height   float64   `json:"height" yaml:"height"`
	Activity *Activity `json:"activity,omitempty" yaml:"activity,omitempty"` // kind == activity
	Comment  string    `json:"comment,omitempty" yaml:"comment,omitempty"`   // kind == comment
	Selected bool      `json:"-" yaml:"-"`
}

// Activity holds the activity-only fields of a Node.
type Activity struct {
	XpdlID       string            `json:"xpdl_id" yaml:"xpdl_id"`
	Type         ActivityType      `json:"type" yaml:"type"`
	ActorID      int               `json:"actor_id,omitempty" yaml:"actor_id,omitempty"` // 0 = unassigned
	Title        string            `json:"title,omitempty" yaml:"title,omitempty"`
	Applications []ApplicationCall `json:"applications,omitempty" yaml:"applications,omitempty"` // auto only
	Expression   string            `json:"expression,omitempty" yaml:"expression,omitempty"`     // timer types only
	Join         Multiplicity      `json:"join" yaml:"join"`                                     // derived
	Split        Multiplicity      `json:"split" yaml:"split"`                                   // derived
	JoinMode     GateMode          `json:"join_mode" yaml:"join_mode"`
	SplitMode    GateMode          `json:"split_mode" yaml:"split_mode"`
}

// ApplicationCall binds an activity to a process application with an expression.
type ApplicationCall struct {
	ApplicationID string `json:"application_id" yaml:"application_id"`
	Expression    string `json:"expression" yaml:"expression"`
}

// Edge connects two nodes of the same process.
type Edge struct {
	ID         int         `json:"id" yaml:"id"`
	Kind       EdgeKind    `json:"kind" yaml:"kind"`
	From       int         `json:"from" yaml:"from"`
	To         int         `json:"to" yaml:"to"`
	Transition *Transition `json:"transition,omitempty" yaml:"transition,omitempty"` // kind == transition
	Selected   bool        `json:"-" yaml:"-"`
}

// Transition holds the transition-only fields of an Edge.
type Transition struct {
	XpdlID    string `json:"xpdl_id,omitempty" yaml:"xpdl_id,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"` // CEL guard
}

// Actor is a participant that can be assigned to activities.
type Actor struct {
	ID     int    `json:"id" yaml:"id"`
	XpdlID string `json:"xpdl_id" yaml:"xpdl_id"`
	Name   string `json:"name" yaml:"name"`
}

// Application is an external tool an auto activity may invoke.
type Application struct {
	XpdlID      string `json:"xpdl_id" yaml:"xpdl_id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ProcessDetail is the user-editable metadata of a process.
type ProcessDetail struct {
	XpdlID       string        `json:"xpdl_id" yaml:"xpdl_id"` // external id, unique within a project
	Title        string        `json:"title,omitempty" yaml:"title,omitempty"`
	Applications []Application `json:"applications,omitempty" yaml:"applications,omitempty"`
}

// Process is one workflow diagram of a project.
type Process struct {
	ID     int           `json:"id" yaml:"id"`
	Detail ProcessDetail `json:"detail" yaml:"detail"`
	Actors []Actor       `json:"actors,omitempty" yaml:"actors,omitempty"`
	Nodes  []*Node       `json:"nodes" yaml:"nodes"`
	Edges  []*Edge       `json:"edges" yaml:"edges"`
}

// Project is an ordered list of processes. A valid project has at least one.
type Project struct {
	XpdlID    string     `json:"xpdl_id" yaml:"xpdl_id"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Processes []*Process `json:"processes" yaml:"processes"`
}

// ActivityXpdlID returns the default external id of the n-th activity.
func ActivityXpdlID(n int) string {
	return fmt.Sprintf("newpkg_wp1_act%d", n)
}

// ProcessXpdlID returns the default external id of the n-th process.
func ProcessXpdlID(n int) string {
	return fmt.Sprintf("newpkg_wp%d", n)
}

// NewActivity returns activity fields with the defaults a freshly placed node gets.
func NewActivity(n int) *Activity {
	return &Activity{
		XpdlID:    ActivityXpdlID(n),
		Type:      ActivityManual,
		Join:      MultiplicityNone,
		Split:     MultiplicityNone,
		JoinMode:  GateXOR,
		SplitMode: GateXOR,
	}
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Activity != nil {
		a := *n.Activity
		a.Applications = append([]ApplicationCall(nil), n.Activity.Applications...)
		c.Activity = &a
	}
	return &c
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	c := *e
	if e.Transition != nil {
		t := *e.Transition
		c.Transition = &t
	}
	return &c
}

// Clone returns a deep copy of the process.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	c := &Process{
		ID: p.ID,
		Detail: ProcessDetail{
			XpdlID:       p.Detail.XpdlID,
			Title:        p.Detail.Title,
			Applications: append([]Application(nil), p.Detail.Applications...),
		},
		Actors: append([]Actor(nil), p.Actors...),
		Nodes:  make([]*Node, len(p.Nodes)),
		Edges:  make([]*Edge, len(p.Edges)),
	}
	for i, n := range p.Nodes {
		c.Nodes[i] = n.Clone()
	}
	for i, e := range p.Edges {
		c.Edges[i] = e.Clone()
	}
	return c
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := &Project{XpdlID: p.XpdlID, Name: p.Name, Processes: make([]*Process, len(p.Processes))}
	for i, proc := range p.Processes {
		c.Processes[i] = proc.Clone()
	}
	return c
}

// Process returns the process with the given id, or nil.
func (p *Project) Process(id int) *Process {
	for _, proc := range p.Processes {
		if proc.ID == id {
			return proc
		}
	}
	return nil
}

// Node returns the node with the given id, or nil.
func (p *Process) Node(id int) *Node {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Actor returns the actor with the given id, or nil.
func (p *Process) Actor(id int) *Actor {
	for i := range p.Actors {
		if p.Actors[i].ID == id {
			return &p.Actors[i]
		}
	}
	return nil
}

// HasApplication reports whether the process declares an application with the given id.
func (p *Process) HasApplication(xpdlID string) bool {
	for _, a := range p.Detail.Applications {
		if a.XpdlID == xpdlID {
			return true
		}
	}
	return false
}
