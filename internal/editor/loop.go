package editor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rendis/flowedit/internal/drag"
)

// Input is one unit of work applied to the App on the loop goroutine.
type Input interface {
	Apply(ctx context.Context, a *App) error
}

// InputFunc adapts a function to the Input interface.
type InputFunc func(ctx context.Context, a *App) error

func (f InputFunc) Apply(ctx context.Context, a *App) error { return f(ctx, a) }

// PointerPhase selects which drag engine entry point a PointerInput feeds.
type PointerPhase string

const (
	PointerDown   PointerPhase = "down"
	PointerMove   PointerPhase = "move"
	PointerUp     PointerPhase = "up"
	PointerCancel PointerPhase = "cancel"
)

// PointerInput is a pointer sample routed to the drag engine.
type PointerInput struct {
	Phase PointerPhase
	Event drag.PointerEvent
}

func (in PointerInput) Apply(ctx context.Context, a *App) error {
	switch in.Phase {
	case PointerDown:
		return a.Drag.PointerDown(ctx, in.Event)
	case PointerMove:
		a.Drag.PointerMove(ctx, in.Event)
		return nil
	case PointerUp:
		return a.Drag.PointerUp(ctx, in.Event)
	case PointerCancel:
		return a.Drag.PointerCancel(ctx, in.Event)
	}
	return fmt.Errorf("unknown pointer phase %q", in.Phase)
}

// Run applies inputs one at a time until ctx is done or inputs is closed.
// While the drag engine wants auto-scroll, a ticker drives Drag.Tick every
// Options.ScrollTick; the ticker exists only while it is needed. Input
// errors are logged and do not stop the loop.
func (a *App) Run(ctx context.Context, inputs <-chan Input) error {
	defer a.stopTicker()
	a.Logger.DebugContext(a.Context(ctx), "editor loop started")

	for {
		var tick <-chan time.Time
		if a.ticker != nil {
			tick = a.ticker.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case in, ok := <-inputs:
			if !ok {
				a.Logger.DebugContext(a.Context(ctx), "editor loop stopped")
				return nil
			}
			if err := in.Apply(ctx, a); err != nil {
				a.Logger.WarnContext(a.Context(ctx), "input failed", slog.String("error", err.Error()))
			}

		case <-tick:
			a.Drag.Tick(ctx)
		}
		a.syncTicker()
	}
}

// Ticking reports whether the auto-scroll ticker is running. It is only
// meaningful on the loop goroutine, for example inside an InputFunc.
func (a *App) Ticking() bool {
	return a.ticker != nil
}

func (a *App) syncTicker() {
	switch need := a.Drag.NeedsTick(); {
	case need && a.ticker == nil:
		a.ticker = time.NewTicker(a.Options.ScrollTick)
	case !need && a.ticker != nil:
		a.stopTicker()
	}
}

func (a *App) stopTicker() {
	if a.ticker != nil {
		a.ticker.Stop()
		a.ticker = nil
	}
}
