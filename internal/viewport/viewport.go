// Package viewport maps between screen pixels and diagram coordinates.
package viewport

import "github.com/rendis/flowedit/internal/geometry"

// Default zoom bounds.
const (
	DefaultZoomMin = 0.25
	DefaultZoomMax = 4.0
)

// Viewport owns pan and zoom state. Screen is where the diagram surface sits
// in screen space; ViewBox is the diagram point shown at Screen's origin.
// Zoom is only changed through SetZoom and ZoomAt, so it is always within
// bounds and positive; a zero Viewport behaves as one from New(0, 0).
type Viewport struct {
	Screen  geometry.Rect
	ViewBox geometry.Point

	zoom    float64
	zoomMin float64
	zoomMax float64
}

// New creates a Viewport at zoom 1 with the given zoom bounds.
// Non-positive or inverted bounds fall back to the defaults.
func New(zoomMin, zoomMax float64) *Viewport {
	if zoomMin <= 0 || zoomMax <= 0 || zoomMin > zoomMax {
		zoomMin, zoomMax = DefaultZoomMin, DefaultZoomMax
	}
	return &Viewport{zoom: 1, zoomMin: zoomMin, zoomMax: zoomMax}
}

// Zoom returns the current zoom factor.
func (v *Viewport) Zoom() float64 {
	if v.zoom <= 0 {
		return 1
	}
	return v.zoom
}

// NormalizePoint converts a screen position to diagram space:
// viewBox + (screen - screenOrigin) / zoom.
func (v *Viewport) NormalizePoint(screenX, screenY float64) geometry.Point {
	return geometry.Point{
		X: v.ViewBox.X + (screenX-v.Screen.X)/v.Zoom(),
		Y: v.ViewBox.Y + (screenY-v.Screen.Y)/v.Zoom(),
	}
}

// ScreenPoint is the inverse of NormalizePoint.
func (v *Viewport) ScreenPoint(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: v.Screen.X + (p.X-v.ViewBox.X)*v.Zoom(),
		Y: v.Screen.Y + (p.Y-v.ViewBox.Y)*v.Zoom(),
	}
}

// SetScreen records where the diagram surface is on screen.
func (v *Viewport) SetScreen(r geometry.Rect) {
	v.Screen = r
}

// SetZoom sets the zoom factor, clamped to the configured bounds.
// Non-positive values are ignored. Returns the zoom in effect afterwards.
func (v *Viewport) SetZoom(z float64) float64 {
	if z <= 0 {
		return v.Zoom()
	}
	lo, hi := v.zoomMin, v.zoomMax
	if lo <= 0 || hi <= 0 || lo > hi {
		lo, hi = DefaultZoomMin, DefaultZoomMax
	}
	v.zoom = min(max(z, lo), hi)
	return v.zoom
}

// ZoomAt changes the zoom while keeping the diagram point under
// (screenX, screenY) fixed on screen.
func (v *Viewport) ZoomAt(z, screenX, screenY float64) {
	anchor := v.NormalizePoint(screenX, screenY)
	v.SetZoom(z)
	v.ViewBox = geometry.Point{
		X: anchor.X - (screenX-v.Screen.X)/v.Zoom(),
		Y: anchor.Y - (screenY-v.Screen.Y)/v.Zoom(),
	}
}

// SetPan moves the view box origin to (x, y) in diagram space.
func (v *Viewport) SetPan(x, y float64) {
	v.ViewBox = geometry.Point{X: x, Y: y}
}

// PanBy shifts the view box by (dx, dy) diagram units.
func (v *Viewport) PanBy(dx, dy float64) {
	v.ViewBox = v.ViewBox.Add(geometry.Point{X: dx, Y: dy})
}

// EdgeDirection reports which screen edges the pointer is within margin
// pixels of: -1 for left/top, +1 for right/bottom, 0 otherwise.
func (v *Viewport) EdgeDirection(screenX, screenY, margin float64) (dx, dy int) {
	if v.Screen.IsEmpty() || margin <= 0 {
		return 0, 0
	}
	switch {
	case screenX <= v.Screen.X+margin:
		dx = -1
	case screenX >= v.Screen.Right()-margin:
		dx = 1
	}
	switch {
	case screenY <= v.Screen.Y+margin:
		dy = -1
	case screenY >= v.Screen.Bottom()-margin:
		dy = 1
	}
	return dx, dy
}

// VisibleRect returns the diagram-space area currently on screen.
func (v *Viewport) VisibleRect() geometry.Rect {
	return geometry.Rect{
		X:      v.ViewBox.X,
		Y:      v.ViewBox.Y,
		Width:  v.Screen.Width / v.Zoom(),
		Height: v.Screen.Height / v.Zoom(),
	}
}
