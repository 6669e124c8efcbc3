package canvas

import (
	"math"
	"testing"

	"github.com/focosx/focos/internal/geom"
)

const tol = 1e-9

func pointsClose(a, b geom.Point) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol
}

func TestScreenToWorldRoundTrip(t *testing.T) {
	c := NewTransformController(geom.Pt(40, 60))
	c.HandleWheel(WheelEvent{DeltaY: -500, Screen: geom.Pt(100, 100), ZoomModifier: true}, ModeSelect)
	c.HandleWheel(WheelEvent{DeltaX: 30, DeltaY: -12}, ModeSelect)

	screen := geom.Pt(217, 341)
	world := c.ScreenToWorld(screen.X, screen.Y)
	back := c.WorldToScreen(world)
	if !pointsClose(screen, back) {
		t.Errorf("round-trip: got %v, want %v", back, screen)
	}
}

func TestZoomClampAcrossSequences(t *testing.T) {
	c := NewTransformController(geom.Pt(0, 0))
	for i := 0; i < 100; i++ {
		c.ZoomIn()
	}
	if got := c.Transform().Scale; got != ZoomMax {
		t.Errorf("after repeated ZoomIn: scale = %v, want %v", got, ZoomMax)
	}
	for i := 0; i < 200; i++ {
		c.ZoomOut()
	}
	if got := c.Transform().Scale; math.Abs(got-ZoomMin) > tol {
		t.Errorf("after repeated ZoomOut: scale = %v, want %v", got, ZoomMin)
	}

	// Wild wheel-zoom sequences stay within bounds too.
	deltas := []float64{-100000, 50000, -3, 99999, -42, 0, 12345}
	for _, dy := range deltas {
		c.HandleWheel(WheelEvent{DeltaY: dy, Screen: geom.Pt(10, 10), ZoomModifier: true}, ModeSelect)
		k := c.Transform().Scale
		if k < ZoomMin || k > ZoomMax {
			t.Fatalf("scale %v escaped [%v, %v]", k, ZoomMin, ZoomMax)
		}
	}
}

func TestZoomToPointerInvariant(t *testing.T) {
	c := NewTransformController(geom.Pt(25, 10))
	// Establish an arbitrary valid pre-zoom transform.
	c.HandleWheel(WheelEvent{DeltaX: -120, DeltaY: 80}, ModeSelect)
	c.HandleWheel(WheelEvent{DeltaY: -700, Screen: geom.Pt(300, 200), ZoomModifier: true}, ModeSelect)

	pointer := geom.Pt(412, 388)
	before := c.ScreenToWorld(pointer.X, pointer.Y)
	c.HandleWheel(WheelEvent{DeltaY: -250, Screen: pointer, ZoomModifier: true}, ModeSelect)
	after := c.ScreenToWorld(pointer.X, pointer.Y)
	if !pointsClose(before, after) {
		t.Errorf("world point under cursor moved across zoom: %v -> %v", before, after)
	}
}

func TestWheelPan(t *testing.T) {
	c := NewTransformController(geom.Pt(0, 0))
	c.HandleWheel(WheelEvent{DeltaX: 10, DeltaY: 20}, ModeSelect)
	if got := c.Transform().Offset; got != geom.Pt(-10, -20) {
		t.Errorf("pan offset = %v, want (-10, -20)", got)
	}
}

func TestPanSuppressedWhileDrawing(t *testing.T) {
	for _, mode := range []Mode{ModeDraw, ModeErase} {
		c := NewTransformController(geom.Pt(0, 0))
		c.HandleWheel(WheelEvent{DeltaX: 10, DeltaY: 20}, mode)
		if got := c.Transform().Offset; got != geom.Pt(0, 0) {
			t.Errorf("mode %v: offset = %v, want unchanged", mode, got)
		}
	}
}

func TestZoomWorksRegardlessOfMode(t *testing.T) {
	c := NewTransformController(geom.Pt(0, 0))
	c.HandleWheel(WheelEvent{DeltaY: -100, Screen: geom.Pt(50, 50), ZoomModifier: true}, ModeDraw)
	if got := c.Transform().Scale; got == 1 {
		t.Error("zoom gesture should apply even in draw mode")
	}
}
