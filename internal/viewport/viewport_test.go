package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rendis/flowedit/internal/geometry"
)

func TestNormalizePoint_Identity(t *testing.T) {
	v := New(0, 0)
	assert.Equal(t, geometry.Point{X: 15, Y: 30}, v.NormalizePoint(15, 30))
}

func TestNormalizePoint_PanZoomOffset(t *testing.T) {
	v := New(0.25, 4)
	v.SetScreen(geometry.Rect{X: 100, Y: 50, Width: 800, Height: 600})
	v.SetPan(200, 300)
	v.SetZoom(2)

	// 200 + (300-100)/2, 300 + (150-50)/2
	assert.Equal(t, geometry.Point{X: 300, Y: 350}, v.NormalizePoint(300, 150))
}

func TestScreenPoint_InvertsNormalize(t *testing.T) {
	v := New(0.25, 4)
	v.SetScreen(geometry.Rect{X: 12, Y: 34, Width: 640, Height: 480})
	v.SetPan(-40, 75)
	v.SetZoom(1.5)

	p := v.NormalizePoint(222, 111)
	s := v.ScreenPoint(p)
	assert.InDelta(t, 222, s.X, 1e-9)
	assert.InDelta(t, 111, s.Y, 1e-9)
}

func TestSetZoom_NotRetroactive(t *testing.T) {
	v := New(0.25, 4)
	before := v.NormalizePoint(100, 100)
	v.SetZoom(2)
	after := v.NormalizePoint(100, 100)

	assert.Equal(t, geometry.Point{X: 100, Y: 100}, before, "earlier result is a value, unaffected by later zoom")
	assert.Equal(t, geometry.Point{X: 50, Y: 50}, after)
}

func TestSetZoom_Clamps(t *testing.T) {
	v := New(0.5, 2)

	assert.Equal(t, 2.0, v.SetZoom(10))
	assert.Equal(t, 0.5, v.SetZoom(0.1))
	assert.Equal(t, 0.5, v.SetZoom(0), "non-positive zoom is ignored")
	assert.Equal(t, 0.5, v.SetZoom(-3))
}

func TestNew_InvalidBoundsFallBack(t *testing.T) {
	v := New(3, 1)
	assert.Equal(t, DefaultZoomMax, v.SetZoom(100))
	assert.Equal(t, DefaultZoomMin, v.SetZoom(0.001))
}

func TestZoomAt_KeepsAnchorFixed(t *testing.T) {
	v := New(0.25, 4)
	v.SetScreen(geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600})
	v.SetPan(10, 10)

	anchor := v.NormalizePoint(400, 300)
	v.ZoomAt(2, 400, 300)
	got := v.NormalizePoint(400, 300)

	assert.InDelta(t, anchor.X, got.X, 1e-9)
	assert.InDelta(t, anchor.Y, got.Y, 1e-9)
	assert.Equal(t, 2.0, v.Zoom())
}

func TestPanBy(t *testing.T) {
	v := New(0, 0)
	v.PanBy(5, -5)
	v.PanBy(5, -5)
	assert.Equal(t, geometry.Point{X: 10, Y: -10}, v.ViewBox)
}

func TestEdgeDirection(t *testing.T) {
	v := New(0, 0)
	v.SetScreen(geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600})

	tests := []struct {
		name   string
		x, y   float64
		dx, dy int
	}{
		{"center", 400, 300, 0, 0},
		{"left", 5, 300, -1, 0},
		{"right", 790, 300, 1, 0},
		{"top", 400, 10, 0, -1},
		{"bottom-right corner", 799, 599, 1, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dx, dy := v.EdgeDirection(tc.x, tc.y, 20)
			assert.Equal(t, tc.dx, dx)
			assert.Equal(t, tc.dy, dy)
		})
	}

	dx, dy := New(0, 0).EdgeDirection(0, 0, 20)
	assert.Zero(t, dx, "no screen rect, no auto-scroll")
	assert.Zero(t, dy)
}

func TestVisibleRect(t *testing.T) {
	v := New(0.25, 4)
	v.SetScreen(geometry.Rect{X: 0, Y: 0, Width: 800, Height: 600})
	v.SetPan(100, 100)
	v.SetZoom(2)

	assert.Equal(t, geometry.Rect{X: 100, Y: 100, Width: 400, Height: 300}, v.VisibleRect())
}

func TestZeroViewport(t *testing.T) {
	var v Viewport
	v.SetScreen(geometry.Rect{X: 10, Y: 10, Width: 800, Height: 600})

	assert.Equal(t, 1.0, v.Zoom())
	assert.Equal(t, geometry.Point{X: 90, Y: 40}, v.NormalizePoint(100, 50))
	assert.Equal(t, geometry.Rect{Width: 800, Height: 600}, v.VisibleRect())

	v.SetZoom(0)
	assert.Equal(t, 1.0, v.Zoom(), "non-positive zoom is ignored")
	assert.Equal(t, DefaultZoomMax, v.SetZoom(100), "zero bounds clamp to the defaults")
}
