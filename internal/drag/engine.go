// Package drag turns pointer input into graph mutations. One gesture is
// active at a time; its mode (select, move, resize, connect) is chosen on
// pointer-down by hit-testing the graph and lasts until pointer-up, cancel
// or flush.
package drag

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rendis/flowedit/internal/geometry"
	"github.com/rendis/flowedit/internal/graph"
	"github.com/rendis/flowedit/internal/logging"
	"github.com/rendis/flowedit/internal/viewport"
	"github.com/rendis/flowedit/pkg/schema"
)

// Options tunes hit-testing and auto-scroll. Sizes are in screen pixels.
type Options struct {
	HandleSize   float64 // width of the left/right resize handles
	AnchorRadius float64 // pick radius of the connection anchor
	ScrollMargin float64 // distance from the viewport edge that arms auto-scroll
	ScrollStep   float64 // pixels panned per tick
}

// DefaultOptions returns the stock hit-test and auto-scroll settings.
func DefaultOptions() Options {
	return Options{HandleSize: 8, AnchorRadius: 8, ScrollMargin: 24, ScrollStep: 10}
}

// PointerEvent is one pointer sample in screen coordinates.
type PointerEvent struct {
	PointerID int
	ScreenX   float64
	ScreenY   float64
}

func (ev PointerEvent) point() geometry.Point {
	return geometry.Point{X: ev.ScreenX, Y: ev.ScreenY}
}

// Gesture describes the active or just-finished gesture.
type Gesture struct {
	ID        string
	PointerID int
	State     State
	NodeID    int // target of move, resize and connect gestures
	EdgeID    int // edge created or confirmed by a connect gesture
}

// Notifier receives gesture lifecycle events (schema.EventGesture*).
type Notifier interface {
	GestureChanged(ctx context.Context, eventType string, g Gesture)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, eventType string, g Gesture)

func (f NotifierFunc) GestureChanged(ctx context.Context, eventType string, g Gesture) {
	f(ctx, eventType, g)
}

// Engine is the drag state machine. It is not safe for concurrent use.
type Engine struct {
	graph    *graph.Store
	view     *viewport.Viewport
	opts     Options
	logger   *slog.Logger
	notifier Notifier
	fsm      *machine

	pointers map[int]geometry.Point // last screen position of every pressed pointer

	gesture    Gesture
	strat      strategy
	last       geometry.Point // diagram point of the previous sample
	lastScreen geometry.Point
	scrollX    int
	scrollY    int
}

// New creates an idle engine over the given graph and viewport.
func New(g *graph.Store, v *viewport.Viewport, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		graph:    g,
		view:     v,
		opts:     opts,
		logger:   logger,
		fsm:      newMachine(),
		pointers: make(map[int]geometry.Point),
	}
}

// SetNotifier installs the gesture event sink. nil disables events.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// OnBefore registers a hook called before a state transition.
func (e *Engine) OnBefore(from, to State, hook TransitionHook) {
	e.fsm.onBefore(from, to, hook)
}

// OnAfter registers a hook called after a state transition.
func (e *Engine) OnAfter(from, to State, hook TransitionHook) {
	e.fsm.onAfter(from, to, hook)
}

// State returns the current interaction mode.
func (e *Engine) State() State {
	return e.fsm.state
}

// Active returns the gesture in progress, if any.
func (e *Engine) Active() (Gesture, bool) {
	if e.fsm.state == Idle {
		return Gesture{}, false
	}
	return e.gesture, true
}

// Pointers returns how many pointers are currently pressed.
func (e *Engine) Pointers() int {
	return len(e.pointers)
}

// SelectBox returns the selection rectangle while Selecting.
func (e *Engine) SelectBox() (geometry.Rect, bool) {
	s, ok := e.strat.(*selectStrategy)
	if !ok || e.fsm.state != Selecting {
		return geometry.Rect{}, false
	}
	return s.rect(), true
}

// RubberBand returns the pending connection line while Connecting.
func (e *Engine) RubberBand() (from, to geometry.Point, ok bool) {
	s, isConnect := e.strat.(*connectStrategy)
	if !isConnect || e.fsm.state != Connecting {
		return geometry.Point{}, geometry.Point{}, false
	}
	return s.from, s.to, true
}

// PointerDown starts a gesture unless one is already active. The gesture
// mode depends on what lies under the pointer.
func (e *Engine) PointerDown(ctx context.Context, ev PointerEvent) error {
	e.pointers[ev.PointerID] = ev.point()
	if e.fsm.state != Idle {
		e.logger.DebugContext(e.ctx(ctx), "pointer down ignored, gesture active",
			slog.Int("pointer_id", ev.PointerID))
		return nil
	}

	p := e.view.NormalizePoint(ev.ScreenX, ev.ScreenY)
	hit := e.graph.HitTest(p, e.opts.HandleSize/e.view.Zoom(), e.opts.AnchorRadius/e.view.Zoom())

	var s strategy
	start := p
	switch hit.Kind {
	case graph.HitCanvas:
		s = &selectStrategy{anchor: p}
	case graph.HitNode:
		s = &moveStrategy{node: hit.NodeID}
	case graph.HitLeftHandle:
		s = &resizeStrategy{node: hit.NodeID, side: graph.SideLeft}
	case graph.HitRightHandle:
		s = &resizeStrategy{node: hit.NodeID, side: graph.SideRight}
	case graph.HitAnchor:
		from := graph.AnchorPoint(e.graph.Node(hit.NodeID))
		s = &connectStrategy{source: hit.NodeID, from: from}
	}

	gesture := Gesture{
		ID:        uuid.NewString(),
		PointerID: ev.PointerID,
		State:     s.state(),
		NodeID:    hit.NodeID,
	}
	if err := e.fsm.transition(s.state()); err != nil {
		return err
	}

	e.gesture = gesture
	e.strat = s
	e.last = start
	e.lastScreen = ev.point()
	e.scrollX, e.scrollY = 0, 0
	s.begin(e.graph, start)

	ctx = e.ctx(ctx)
	e.logger.DebugContext(ctx, "gesture started",
		slog.String("state", string(s.state())),
		slog.String("hit", hit.Kind.String()),
		slog.Int("node_id", hit.NodeID))
	e.notify(ctx, schema.EventGestureStarted)
	return nil
}

// PointerMove feeds a sample of the active pointer to the gesture. Samples
// from other pointers only update pointer tracking.
func (e *Engine) PointerMove(ctx context.Context, ev PointerEvent) {
	if _, down := e.pointers[ev.PointerID]; down {
		e.pointers[ev.PointerID] = ev.point()
	}
	if !e.isActive(ev.PointerID) {
		return
	}
	e.lastScreen = ev.point()
	p := e.view.NormalizePoint(ev.ScreenX, ev.ScreenY)
	e.strat.move(e.graph, p, e.last)
	e.last = p

	if e.strat.autoScroll() {
		e.scrollX, e.scrollY = e.view.EdgeDirection(ev.ScreenX, ev.ScreenY, e.opts.ScrollMargin)
	}
}

// PointerUp ends the active gesture at the release point. Releases of
// other pointers only update pointer tracking.
func (e *Engine) PointerUp(ctx context.Context, ev PointerEvent) error {
	delete(e.pointers, ev.PointerID)
	if !e.isActive(ev.PointerID) {
		return nil
	}
	p := e.view.NormalizePoint(ev.ScreenX, ev.ScreenY)
	if p != e.last {
		e.strat.move(e.graph, p, e.last)
		e.last = p
	}
	e.strat.release(e.graph, p, true)

	eventType := schema.EventGestureEnded
	if c, ok := e.strat.(*connectStrategy); ok {
		e.gesture.EdgeID = c.edgeID
		if c.edgeID == 0 {
			eventType = schema.EventGestureCancelled
		}
	}
	return e.finish(ctx, eventType)
}

// PointerCancel abandons the active gesture without further mutation. It
// ends the gesture whichever pointer reports the cancel.
func (e *Engine) PointerCancel(ctx context.Context, ev PointerEvent) error {
	delete(e.pointers, ev.PointerID)
	if e.fsm.state == Idle {
		return nil
	}
	return e.finish(ctx, schema.EventGestureCancelled)
}

// Flush ends any active gesture before the graph is swapped out. Select,
// move and resize gestures keep what they have applied; a pending connection
// is abandoned.
func (e *Engine) Flush(ctx context.Context) error {
	clear(e.pointers)
	if e.fsm.state == Idle {
		return nil
	}
	e.strat.release(e.graph, e.last, false)
	eventType := schema.EventGestureEnded
	if e.fsm.state == Connecting {
		eventType = schema.EventGestureCancelled
	}
	return e.finish(ctx, eventType)
}

// NeedsTick reports whether auto-scroll is armed.
func (e *Engine) NeedsTick() bool {
	return e.fsm.state != Idle && e.strat != nil && e.strat.autoScroll() &&
		(e.scrollX != 0 || e.scrollY != 0)
}

// Tick pans the viewport one step toward the armed edges and replays the
// last pointer position, so the gesture follows the scrolled content.
func (e *Engine) Tick(ctx context.Context) {
	if !e.NeedsTick() {
		return
	}
	step := e.opts.ScrollStep / e.view.Zoom()
	e.view.PanBy(float64(e.scrollX)*step, float64(e.scrollY)*step)

	p := e.view.NormalizePoint(e.lastScreen.X, e.lastScreen.Y)
	e.strat.move(e.graph, p, e.last)
	e.last = p
	e.logger.DebugContext(e.ctx(ctx), "auto-scroll tick",
		slog.Float64("view_x", e.view.ViewBox.X), slog.Float64("view_y", e.view.ViewBox.Y))
}

func (e *Engine) isActive(pointerID int) bool {
	return e.fsm.state != Idle && e.gesture.PointerID == pointerID
}

// finish returns the engine to Idle and publishes eventType.
func (e *Engine) finish(ctx context.Context, eventType string) error {
	ctx = e.ctx(ctx)
	err := e.fsm.transition(Idle)

	done := e.gesture
	e.strat = nil
	e.scrollX, e.scrollY = 0, 0

	e.logger.DebugContext(ctx, "gesture finished",
		slog.String("state", string(done.State)),
		slog.String("event", eventType),
		slog.Int("edge_id", done.EdgeID))
	e.notify(ctx, eventType)
	e.gesture = Gesture{}
	if err != nil {
		e.logger.WarnContext(ctx, "drag hook failed", slog.String("error", err.Error()))
	}
	return err
}

func (e *Engine) notify(ctx context.Context, eventType string) {
	if e.notifier != nil {
		e.notifier.GestureChanged(ctx, eventType, e.gesture)
	}
}

func (e *Engine) ctx(ctx context.Context) context.Context {
	if e.gesture.ID == "" {
		return ctx
	}
	return logging.WithGestureID(ctx, e.gesture.ID)
}
