// Package editor assembles the diagram core into one application state:
// the open project, the graph store of the selected process, the viewport,
// the drag engine and the change hub. All mutation happens on the goroutine
// running App.Run (or on the caller's goroutine when no loop is used).
package editor

import (
	"context"
	"log/slog"
	"time"

	"github.com/rendis/flowedit/internal/drag"
	"github.com/rendis/flowedit/internal/expressions"
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/store"
	"github.com/rendis/flowedit/internal/streaming"
	"github.com/rendis/flowedit/internal/validation"
	"github.com/rendis/flowedit/internal/viewport"
	"github.com/rendis/flowedit/internal/xpdl"
	"github.com/rendis/flowedit/pkg/schema"
)

// Options configures an App.
type Options struct {
	MinNodeWidth float64
	ZoomMin      float64
	ZoomMax      float64
	DoubleClick  time.Duration
	ScrollTick   time.Duration // auto-scroll ticker period
	Drag         drag.Options
}

// DefaultOptions returns the stock editor settings.
func DefaultOptions() Options {
	return Options{
		MinNodeWidth: schema.MinNodeWidth,
		ZoomMin:      viewport.DefaultZoomMin,
		ZoomMax:      viewport.DefaultZoomMax,
		DoubleClick:  DefaultDoubleClick,
		ScrollTick:   16 * time.Millisecond,
		Drag:         drag.DefaultOptions(),
	}
}

// App is the editor's application state. It is passed by reference and is
// not safe for concurrent use.
type App struct {
	Project   *ProjectModel
	Graph     *graph.Store
	Viewport  *viewport.Viewport
	Drag      *drag.Engine
	Validator *validation.ProjectValidator
	Hub       streaming.EventHub
	Logger    *slog.Logger
	Options   Options

	clicks     *ClickDetector
	documentID string
	ticker     *time.Ticker
}

// New wires an App. hub may be nil to drop change events.
func New(opts Options, hub streaming.EventHub, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ScrollTick <= 0 {
		opts.ScrollTick = DefaultOptions().ScrollTick
	}
	exprs, err := expressions.NewSet()
	if err != nil {
		return nil, err
	}

	g := graph.NewStore(opts.MinNodeWidth)
	v := viewport.New(opts.ZoomMin, opts.ZoomMax)
	d := drag.New(g, v, opts.Drag, logger)

	a := &App{
		Graph:     g,
		Viewport:  v,
		Drag:      d,
		Validator: validation.NewProjectValidator(exprs),
		Hub:       hub,
		Logger:    logger,
		Options:   opts,
		clicks:    NewClickDetector(opts.DoubleClick),
	}
	a.Project = NewProjectModel(g, d)
	a.Project.SetPublisher(func(ctx context.Context, eventType string, processID int) {
		a.publish(ctx, streaming.EditorEvent{EventType: eventType, ProcessID: processID})
	})
	g.SetListener(graph.ListenerFunc(func(c graph.Change) {
		a.publish(context.Background(), streaming.EditorEvent{
			EventType: c.Type,
			NodeID:    c.NodeID,
			EdgeID:    c.EdgeID,
		})
	}))
	d.SetNotifier(drag.NotifierFunc(func(ctx context.Context, eventType string, gs drag.Gesture) {
		a.publish(ctx, streaming.EditorEvent{
			EventType: eventType,
			NodeID:    gs.NodeID,
			EdgeID:    gs.EdgeID,
			Payload:   map[string]any{"gesture_id": gs.ID, "state": string(gs.State)},
		})
	}))
	return a, nil
}

// DocumentID returns the id of the stored document the project was opened
// from or last saved to, or "".
func (a *App) DocumentID() string {
	return a.documentID
}

// Context returns ctx annotated with the open document and process.
func (a *App) Context(ctx context.Context) context.Context {
	ctx = logging.WithProcessID(ctx, a.Project.Selected())
	if a.documentID != "" {
		ctx = logging.WithDocumentID(ctx, a.documentID)
	}
	return ctx
}

func (a *App) publish(ctx context.Context, ev streaming.EditorEvent) {
	if a.Hub == nil {
		return
	}
	ev.DocumentID = a.documentID
	if ev.ProcessID == 0 {
		ev.ProcessID = a.Project.Selected()
	}
	if err := a.Hub.Publish(ctx, ev); err != nil {
		a.Logger.DebugContext(a.Context(ctx), "event dropped",
			slog.String("event", ev.EventType), slog.String("error", err.Error()))
	}
}

// Import replaces the project with the decoded XPDL document. Nothing
// changes when the document is rejected.
func (a *App) Import(ctx context.Context, text string) error {
	p, err := xpdl.Import(text)
	if err != nil {
		a.Logger.WarnContext(a.Context(ctx), "import rejected", slog.String("error", err.Error()))
		return err
	}
	if err := a.Project.Load(ctx, p); err != nil {
		return err
	}
	a.documentID = ""
	a.publish(ctx, streaming.EditorEvent{EventType: schema.EventDocumentImported})
	a.Logger.InfoContext(a.Context(ctx), "document imported", slog.Int("processes", len(p.Processes)))
	return nil
}

// Export ends any gesture in progress and encodes the project as XPDL.
func (a *App) Export(ctx context.Context) (string, error) {
	if err := a.Drag.Flush(ctx); err != nil {
		a.Logger.WarnContext(a.Context(ctx), "flush before export", slog.String("error", err.Error()))
	}
	return xpdl.Export(a.Project.Save())
}

// Validate runs the full project validation over the current state.
func (a *App) Validate() *schema.ValidationResult {
	return a.Validator.ValidateProject(a.Project.Save())
}

// Open loads a stored document.
func (a *App) Open(ctx context.Context, st store.Store, documentID string) error {
	doc, err := st.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	p, err := xpdl.Import(doc.Content)
	if err != nil {
		return err
	}
	if err := a.Project.Load(ctx, p); err != nil {
		return err
	}
	a.documentID = doc.ID
	a.publish(ctx, streaming.EditorEvent{EventType: schema.EventDocumentLoaded})
	a.Logger.InfoContext(a.Context(ctx), "document opened", slog.Int64("revision", doc.Revision))
	return nil
}

// Persist exports the project and saves it as a new revision of the open
// document, creating the document on first save.
func (a *App) Persist(ctx context.Context, st store.Store, name, message string) (*store.Revision, error) {
	text, err := a.Export(ctx)
	if err != nil {
		return nil, err
	}
	doc := &store.Document{
		ID:           a.documentID,
		Name:         name,
		Content:      text,
		ProcessCount: len(a.Project.project.Processes),
		Message:      message,
	}
	if name == "" {
		doc.Name = a.Project.project.Name
		if a.documentID != "" {
			if existing, err := st.GetDocument(ctx, a.documentID); err == nil {
				doc.Name = existing.Name
			}
		}
	}
	rev, err := st.SaveDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	a.documentID = doc.ID
	a.publish(ctx, streaming.EditorEvent{
		EventType: schema.EventDocumentSaved,
		Payload:   map[string]any{"revision": rev.Sequence},
	})
	a.Logger.InfoContext(a.Context(ctx), "document saved", slog.Int64("revision", rev.Sequence))
	return rev, nil
}

// Activate feeds an activation (click or tap) of target to the double
// activation detector. A double activation of an existing element publishes
// properties.requested so a property editor can open.
func (a *App) Activate(ctx context.Context, target Target, at time.Time) Activation {
	act := a.clicks.Activate(target, at)
	if act != Double || !a.exists(target) {
		return act
	}
	ev := streaming.EditorEvent{EventType: schema.EventPropertiesRequested, Payload: target}
	switch target.Kind {
	case TargetNode:
		ev.NodeID = target.ID
	case TargetEdge:
		ev.EdgeID = target.ID
	case TargetProcess:
		ev.ProcessID = target.ID
	}
	a.publish(ctx, ev)
	return act
}

func (a *App) exists(t Target) bool {
	switch t.Kind {
	case TargetNode:
		return a.Graph.Node(t.ID) != nil
	case TargetEdge:
		return a.Graph.Edge(t.ID) != nil
	case TargetActor:
		for _, actor := range a.Graph.Actors() {
			if actor.ID == t.ID {
				return true
			}
		}
	case TargetProcess:
		return a.Project.project.Process(t.ID) != nil
	}
	return false
}
