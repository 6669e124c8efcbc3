package canvas

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/focosx/focos/internal/geom"
)

// MarkerWidthThreshold is the brush width above which a committed stroke
// renders at half opacity ("marker" policy).
const MarkerWidthThreshold = 8.0

// DefaultEraseRadius is the erase hit radius in world units.
const DefaultEraseRadius = 10.0

// Stroke is an ordered, non-empty sequence of ink points with style
// attributes. A committed stroke always has at least one point.
type Stroke struct {
	ID     string       `json:"id"`
	Points []geom.Point `json:"points"`
	Color  string       `json:"color"`
	Width  float64      `json:"width"`
}

// RenderOpacity returns the opacity a committed stroke renders at: 0.5 for
// marker-width strokes, 1.0 otherwise. In-progress strokes use the brush
// opacity instead.
func (s Stroke) RenderOpacity() float64 {
	if s.Width > MarkerWidthThreshold {
		return 0.5
	}
	return 1.0
}

// DistanceTo returns the minimum distance from p to the stroke's polyline.
func (s Stroke) DistanceTo(p geom.Point) float64 {
	if len(s.Points) == 0 {
		return 0
	}
	if len(s.Points) == 1 {
		return p.Distance(s.Points[0])
	}
	min := p.DistanceToSegment(s.Points[0], s.Points[1])
	for i := 1; i < len(s.Points)-1; i++ {
		if d := p.DistanceToSegment(s.Points[i], s.Points[i+1]); d < min {
			min = d
		}
	}
	return min
}

// Brush is a named style preset selectable before drawing.
type Brush struct {
	Name    string  `json:"name"`
	Color   string  `json:"color"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

// Layer is one of the two logical annotation surfaces: above ("front") or
// below ("back") frame content.
type Layer int

const (
	LayerFront Layer = iota
	LayerBack
)

// CaptureSession records one drawing session's in-progress stroke. A
// session targets either the open canvas (empty frame id) or a single
// frame, and exactly one layer. At most one stroke is in progress at a
// time; beginning a new stroke commits the open one first.
type CaptureSession struct {
	brush   Brush
	layer   Layer
	frameID string
	current *Stroke
}

// NewCaptureSession creates a session for the given brush and layer.
// frameID is empty when drawing on the open canvas.
func NewCaptureSession(brush Brush, layer Layer, frameID string) *CaptureSession {
	return &CaptureSession{brush: brush, layer: layer, frameID: frameID}
}

// Brush returns the session's active brush.
func (s *CaptureSession) Brush() Brush { return s.brush }

// Layer returns the surface this session draws on.
func (s *CaptureSession) Layer() Layer { return s.layer }

// FrameID returns the frame the session is scoped to, or "" for the open
// canvas.
func (s *CaptureSession) FrameID() string { return s.frameID }

// Begin starts a new stroke at the given world point. If a stroke was
// already in progress it is committed first and returned; otherwise
// committed is nil.
func (s *CaptureSession) Begin(p geom.Point) (committed *Stroke) {
	if s.current != nil {
		done := *s.current
		committed = &done
	}
	s.current = &Stroke{
		ID:     uuid.NewString(),
		Points: []geom.Point{p},
		Color:  s.brush.Color,
		Width:  s.brush.Width,
	}
	return committed
}

// Append adds a movement sample to the in-progress stroke. Every received
// sample is stored; there is no resampling or decimation. Samples arriving
// outside a stroke (pointer moves without a pointer-down) are ignored.
func (s *CaptureSession) Append(p geom.Point) {
	if s.current == nil {
		return
	}
	s.current.Points = append(s.current.Points, p)
}

// Commit finishes the in-progress stroke and returns it.
func (s *CaptureSession) Commit() (Stroke, error) {
	if s.current == nil {
		return Stroke{}, fmt.Errorf("canvas: no stroke in progress")
	}
	done := *s.current
	s.current = nil
	return done, nil
}

// InProgress returns the open stroke, if any. The caller renders it only
// when the session's layer matches the current render pass, at the brush's
// configured opacity.
func (s *CaptureSession) InProgress() (Stroke, bool) {
	if s.current == nil {
		return Stroke{}, false
	}
	return *s.current, true
}

// EraseStrokesNear removes every stroke whose minimum distance to p is
// within radius. It returns the surviving strokes and the removed ids.
// Erasure is immediate and irreversible.
func EraseStrokesNear(strokes []Stroke, p geom.Point, radius float64) (kept []Stroke, removed []string) {
	for _, s := range strokes {
		if s.DistanceTo(p) <= radius {
			removed = append(removed, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	return kept, removed
}
