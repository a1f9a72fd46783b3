package editor

import (
	"context"

	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/pkg/schema"
)

// Flusher ends an in-flight gesture before the graph is swapped out.
type Flusher interface {
	Flush(ctx context.Context) error
}

// ProjectModel owns the open project and which process the graph store is
// editing. Processes other than the selected one are kept in their saved
// form; the selected one lives in the graph store until it is synced back.
type ProjectModel struct {
	graph    *graph.Store
	gestures Flusher
	publish  func(ctx context.Context, eventType string, processID int)

	project  *schema.Project
	selected int
}

// NewProjectModel creates a model holding DefaultProject.
func NewProjectModel(g *graph.Store, gestures Flusher) *ProjectModel {
	m := &ProjectModel{graph: g, gestures: gestures}
	m.project = DefaultProject()
	m.selected = m.project.Processes[0].ID
	g.Load(m.project.Processes[0])
	return m
}

// DefaultProject returns the project a new editor starts with: one process
// holding a start and an end node.
func DefaultProject() *schema.Project {
	return &schema.Project{
		XpdlID:    "newpkg",
		Processes: []*schema.Process{newProcess(1, schema.ProcessXpdlID(1))},
	}
}

func newProcess(id int, xpdlID string) *schema.Process {
	sw, sh := schema.DefaultSize(schema.NodeStart)
	ew, eh := schema.DefaultSize(schema.NodeEnd)
	return &schema.Process{
		ID:     id,
		Detail: schema.ProcessDetail{XpdlID: xpdlID},
		Nodes: []*schema.Node{
			{ID: 1, Kind: schema.NodeStart, X: 40, Y: 40, Width: sw, Height: sh},
			{ID: 2, Kind: schema.NodeEnd, X: 440, Y: 40, Width: ew, Height: eh},
		},
	}
}

// SetPublisher installs the callback used for process.* events.
func (m *ProjectModel) SetPublisher(fn func(ctx context.Context, eventType string, processID int)) {
	m.publish = fn
}

func (m *ProjectModel) notify(ctx context.Context, eventType string, processID int) {
	if m.publish != nil {
		m.publish(ctx, eventType, processID)
	}
}

// Load replaces the open project with a deep copy of p and selects its
// first process.
func (m *ProjectModel) Load(ctx context.Context, p *schema.Project) error {
	if p == nil || len(p.Processes) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "project has no process")
	}
	if err := m.flush(ctx); err != nil {
		return err
	}
	m.project = p.Clone()
	first := m.project.Processes[0]
	m.selected = first.ID
	m.graph.Load(first)
	m.notify(ctx, schema.EventProcessChanged, first.ID)
	return nil
}

// Save syncs the graph into the selected process and returns a deep copy of
// the whole project.
func (m *ProjectModel) Save() *schema.Project {
	m.sync()
	return m.project.Clone()
}

func (m *ProjectModel) sync() {
	if proc := m.project.Process(m.selected); proc != nil {
		m.graph.Save(proc)
	}
}

func (m *ProjectModel) flush(ctx context.Context) error {
	if m.gestures == nil {
		return nil
	}
	return m.gestures.Flush(ctx)
}

// Selected returns the id of the process being edited.
func (m *ProjectModel) Selected() int {
	return m.selected
}

// Processes returns deep copies of every process, the selected one synced
// from the graph.
func (m *ProjectModel) Processes() []*schema.Process {
	return m.Save().Processes
}

// ChangeProcess flushes the active gesture, saves the graph into the current
// process and loads process id. Selection starts empty.
func (m *ProjectModel) ChangeProcess(ctx context.Context, id int) error {
	target := m.project.Process(id)
	if target == nil {
		return schema.NewErrorf(schema.ErrCodeNotFound, "process %d not found", id)
	}
	// A hook error still leaves the gesture ended, so the switch proceeds.
	flushErr := m.flush(ctx)
	m.sync()
	m.selected = id
	m.graph.Load(target)
	m.notify(ctx, schema.EventProcessChanged, id)
	return flushErr
}

// AddProcess appends a process with a start and an end node, switches to
// it and returns its id.
func (m *ProjectModel) AddProcess(ctx context.Context) (int, error) {
	id := 1
	taken := make(map[string]bool, len(m.project.Processes))
	for _, proc := range m.project.Processes {
		id = max(id, proc.ID+1)
		taken[proc.Detail.XpdlID] = true
	}
	n := len(m.project.Processes) + 1
	for taken[schema.ProcessXpdlID(n)] {
		n++
	}

	m.project.Processes = append(m.project.Processes, newProcess(id, schema.ProcessXpdlID(n)))
	m.notify(ctx, schema.EventProcessAdded, id)
	return id, m.ChangeProcess(ctx, id)
}

// RemoveProcess deletes process id and switches to the process now at
// min(index, len-2). The last remaining process cannot be removed.
func (m *ProjectModel) RemoveProcess(ctx context.Context, id int) error {
	idx := -1
	for i, proc := range m.project.Processes {
		if proc.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return schema.NewErrorf(schema.ErrCodeNotFound, "process %d not found", id)
	}
	if len(m.project.Processes) <= 1 {
		return schema.NewError(schema.ErrCodeLastProcess, "cannot remove the last process").WithProcess(id)
	}

	flushErr := m.flush(ctx)
	if id != m.selected {
		m.sync()
	}
	next := min(idx, len(m.project.Processes)-2)
	m.project.Processes = append(m.project.Processes[:idx:idx], m.project.Processes[idx+1:]...)
	m.notify(ctx, schema.EventProcessRemoved, id)

	target := m.project.Processes[next]
	m.selected = target.ID
	m.graph.Load(target)
	m.notify(ctx, schema.EventProcessChanged, target.ID)
	return flushErr
}

// UpdateProcessDetail replaces the detail of process id. Conflicts are
// returned as values (ID_EXISTS, DUPLICATE_APPLICATION_ID) and leave the
// project unchanged.
func (m *ProjectModel) UpdateProcessDetail(ctx context.Context, id int, detail schema.ProcessDetail) *schema.FlowError {
	m.sync()
	if err := validation.ValidateProcessDetail(m.project, id, detail); err != nil {
		return err
	}
	proc := m.project.Process(id)
	proc.Detail = schema.ProcessDetail{
		XpdlID:       detail.XpdlID,
		Title:        detail.Title,
		Applications: append([]schema.Application(nil), detail.Applications...),
	}
	if id == m.selected {
		m.graph.SetApplications(proc.Detail.Applications)
	}
	m.notify(ctx, schema.EventProcessUpdated, id)
	return nil
}

// UpdateProject sets the package-level id and name.
func (m *ProjectModel) UpdateProject(xpdlID, name string) error {
	if xpdlID == "" {
		return schema.NewError(schema.ErrCodeValidation, "project id must not be empty")
	}
	m.project.XpdlID = xpdlID
	m.project.Name = name
	return nil
}
