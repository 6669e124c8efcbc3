// Package canvas implements the infinite-canvas engine: coordinate
// transforms, stroke capture, the frame type registry, and the canvas
// document aggregate.
package canvas

import "github.com/focosx/focos/internal/geom"

// Zoom bounds and gesture tuning.
const (
	ZoomMin              = 0.1
	ZoomMax              = 5.0
	ZoomStep             = 0.1
	WheelZoomSensitivity = 0.001
)

// Mode is the active canvas interaction mode. Panning via wheel is
// suppressed while drawing or erasing so the canvas does not drift
// mid-stroke.
type Mode int

const (
	ModeSelect Mode = iota
	ModeDraw
	ModeErase
)

// Transform maps between screen and world coordinates: a pan offset in
// screen units plus a uniform scale. Scale stays within [ZoomMin, ZoomMax]
// so the transform is always invertible.
type Transform struct {
	Offset geom.Point
	Scale  float64
}

// NewTransform returns the identity transform.
func NewTransform() Transform {
	return Transform{Scale: 1}
}

// ScreenToWorld converts a raw screen coordinate to world space, given the
// canvas container's on-screen origin.
func (t Transform) ScreenToWorld(screen, origin geom.Point) geom.Point {
	return screen.Sub(origin).Sub(t.Offset).Div(t.Scale)
}

// WorldToScreen is the inverse of ScreenToWorld for the same snapshot.
func (t Transform) WorldToScreen(world, origin geom.Point) geom.Point {
	return world.Mul(t.Scale).Add(t.Offset).Add(origin)
}

// WheelEvent carries the raw wheel gesture the controller interprets.
type WheelEvent struct {
	DeltaX       float64
	DeltaY       float64
	Screen       geom.Point // pointer position in screen coordinates
	ZoomModifier bool       // zoom modifier key held
}

// TransformController owns the zoom/pan state for one canvas view. It is
// the single source of truth for rendering and hit-testing: raw device
// coordinates must pass through ScreenToWorld before entering any
// document-space state.
type TransformController struct {
	origin      geom.Point
	t           Transform
	sensitivity float64
}

// NewTransformController creates a controller at identity with the given
// container origin.
func NewTransformController(origin geom.Point) *TransformController {
	return &TransformController{
		origin:      origin,
		t:           NewTransform(),
		sensitivity: WheelZoomSensitivity,
	}
}

// Transform returns the current transform snapshot.
func (c *TransformController) Transform() Transform { return c.t }

// SetOrigin updates the container's on-screen origin (e.g. after the
// window is resized or the canvas pane moves).
func (c *TransformController) SetOrigin(origin geom.Point) { c.origin = origin }

// ScreenToWorld converts a screen coordinate through the current transform.
func (c *TransformController) ScreenToWorld(sx, sy float64) geom.Point {
	return c.t.ScreenToWorld(geom.Pt(sx, sy), c.origin)
}

// WorldToScreen converts a world coordinate through the current transform.
func (c *TransformController) WorldToScreen(p geom.Point) geom.Point {
	return c.t.WorldToScreen(p, c.origin)
}

// HandleWheel applies a wheel gesture. With the zoom modifier held it
// zooms about the pointer, keeping the world point under the cursor fixed
// across the scale change. Without the modifier it pans, unless mode is
// ModeDraw or ModeErase.
func (c *TransformController) HandleWheel(ev WheelEvent, mode Mode) {
	if ev.ZoomModifier {
		// World point under the pointer with the old transform.
		world := c.t.ScreenToWorld(ev.Screen, c.origin)
		next := clampZoom(c.t.Scale + (-ev.DeltaY * c.sensitivity))
		c.t.Scale = next
		// offset' = pointerScreen - origin - world*k', so the pointer's
		// world coordinate is invariant across the zoom.
		c.t.Offset = ev.Screen.Sub(c.origin).Sub(world.Mul(next))
		return
	}
	if mode == ModeDraw || mode == ModeErase {
		return
	}
	c.t.Offset = c.t.Offset.Sub(geom.Pt(ev.DeltaX, ev.DeltaY))
}

// ZoomIn increases the scale by one discrete step, clamped to ZoomMax.
func (c *TransformController) ZoomIn() {
	c.t.Scale = clampZoom(c.t.Scale + ZoomStep)
}

// ZoomOut decreases the scale by one discrete step, clamped to ZoomMin.
func (c *TransformController) ZoomOut() {
	c.t.Scale = clampZoom(c.t.Scale - ZoomStep)
}

func clampZoom(k float64) float64 {
	if k < ZoomMin {
		return ZoomMin
	}
	if k > ZoomMax {
		return ZoomMax
	}
	return k
}
