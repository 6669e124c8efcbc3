package canvas

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/geom"
)

// Fallback dimensions for frames whose type has no registered bundle.
const (
	FallbackFrameWidth  = 400.0
	FallbackFrameHeight = 300.0
)

// MinFrameSize keeps resized frames hit-testable.
const MinFrameSize = 1.0

// Frame is a positioned, plugin-typed element inside a canvas document.
// Content is an opaque payload owned by the plugin registered for Type;
// the core never inspects or validates it, so content from plugins that
// are not currently loaded round-trips byte-identically.
type Frame struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
	Width   float64         `json:"width"`
	Height  float64         `json:"height"`
	Content json.RawMessage `json:"content,omitempty"`
	Strokes []Stroke        `json:"strokes"`
}

// FramePatch is a partial update merged into a frame. Nil fields are left
// untouched. Content is written exclusively by the owning bundle's own
// component or tool logic.
type FramePatch struct {
	X       *float64
	Y       *float64
	Width   *float64
	Height  *float64
	Content json.RawMessage
}

// Document aggregates a canvas's frames and global strokes. Frame slice
// order is z-order: later frames render on top.
type Document struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Frames        []Frame  `json:"frames"`
	GlobalStrokes []Stroke `json:"globalStrokes"`

	dirty bool
}

// NewDocument creates an empty document with a fresh id.
func NewDocument(name string) *Document {
	return &Document{
		ID:            uuid.NewString(),
		Name:          name,
		Frames:        []Frame{},
		GlobalStrokes: []Stroke{},
	}
}

// Dirty reports whether the document has unsaved mutations.
func (d *Document) Dirty() bool { return d.dirty }

// ClearDirty marks the document as saved.
func (d *Document) ClearDirty() { d.dirty = false }

// AddFrame instantiates a frame of the given type at pos and appends it to
// the z-order. Dimensions come from the registry bundle for typeTag; an
// unregistered type gets the neutral fallback dimensions, matching the
// placeholder policy for unknown plugins.
func (d *Document) AddFrame(reg *Registry, typeTag string, pos geom.Point) *Frame {
	w, h := FallbackFrameWidth, FallbackFrameHeight
	if b, err := reg.Resolve(typeTag); err == nil {
		w, h = b.DefaultWidth, b.DefaultHeight
	}
	f := Frame{
		ID:      uuid.NewString(),
		Type:    typeTag,
		X:       pos.X,
		Y:       pos.Y,
		Width:   w,
		Height:  h,
		Strokes: []Stroke{},
	}
	d.Frames = append(d.Frames, f)
	d.dirty = true
	return &d.Frames[len(d.Frames)-1]
}

// FrameByID returns the frame with the given id.
func (d *Document) FrameByID(id string) (*Frame, error) {
	for i := range d.Frames {
		if d.Frames[i].ID == id {
			return &d.Frames[i], nil
		}
	}
	return nil, fmt.Errorf("canvas: frame %q: %w", id, apperr.ErrNotFound)
}

// MoveFrame repositions a frame. The canvas is conceptually infinite, so
// the position is unconstrained and there is no collision resolution.
func (d *Document) MoveFrame(id string, x, y float64) error {
	f, err := d.FrameByID(id)
	if err != nil {
		return err
	}
	f.X, f.Y = x, y
	d.dirty = true
	return nil
}

// ResizeFrame resizes a frame, clamped to MinFrameSize.
func (d *Document) ResizeFrame(id string, width, height float64) error {
	f, err := d.FrameByID(id)
	if err != nil {
		return err
	}
	if width < MinFrameSize {
		width = MinFrameSize
	}
	if height < MinFrameSize {
		height = MinFrameSize
	}
	f.Width, f.Height = width, height
	d.dirty = true
	return nil
}

// RemoveFrame deletes a frame from the z-order, discarding its local
// strokes with it.
func (d *Document) RemoveFrame(id string) error {
	for i := range d.Frames {
		if d.Frames[i].ID == id {
			d.Frames = append(d.Frames[:i], d.Frames[i+1:]...)
			d.dirty = true
			return nil
		}
	}
	return fmt.Errorf("canvas: frame %q: %w", id, apperr.ErrNotFound)
}

// UpdateFrame merges patch into the frame record and marks the document
// dirty. Content is transported opaquely.
func (d *Document) UpdateFrame(id string, patch FramePatch) error {
	f, err := d.FrameByID(id)
	if err != nil {
		return err
	}
	if patch.X != nil {
		f.X = *patch.X
	}
	if patch.Y != nil {
		f.Y = *patch.Y
	}
	if patch.Width != nil {
		f.Width = *patch.Width
	}
	if patch.Height != nil {
		f.Height = *patch.Height
	}
	if patch.Content != nil {
		f.Content = patch.Content
	}
	d.dirty = true
	return nil
}

// AppendGlobalStroke commits a stroke onto the document's global surface.
func (d *Document) AppendGlobalStroke(s Stroke) error {
	if len(s.Points) == 0 {
		return fmt.Errorf("canvas: stroke must have at least one point")
	}
	d.GlobalStrokes = append(d.GlobalStrokes, s)
	d.dirty = true
	return nil
}

// AppendFrameStroke commits a stroke into the frame the drawing session
// was scoped to.
func (d *Document) AppendFrameStroke(frameID string, s Stroke) error {
	if len(s.Points) == 0 {
		return fmt.Errorf("canvas: stroke must have at least one point")
	}
	f, err := d.FrameByID(frameID)
	if err != nil {
		return err
	}
	f.Strokes = append(f.Strokes, s)
	d.dirty = true
	return nil
}

// EraseAt removes global strokes within radius of p and returns the
// removed ids.
func (d *Document) EraseAt(p geom.Point, radius float64) []string {
	kept, removed := EraseStrokesNear(d.GlobalStrokes, p, radius)
	if len(removed) > 0 {
		if kept == nil {
			kept = []Stroke{}
		}
		d.GlobalStrokes = kept
		d.dirty = true
	}
	return removed
}

// EraseInFrame removes a frame's local strokes within radius of p.
func (d *Document) EraseInFrame(frameID string, p geom.Point, radius float64) ([]string, error) {
	f, err := d.FrameByID(frameID)
	if err != nil {
		return nil, err
	}
	kept, removed := EraseStrokesNear(f.Strokes, p, radius)
	if len(removed) > 0 {
		if kept == nil {
			kept = []Stroke{}
		}
		f.Strokes = kept
		d.dirty = true
	}
	return removed, nil
}

// PlaceholderFrames returns the ids of frames whose type has no registered
// bundle. Hosts render these as neutral placeholders while preserving the
// original content for round-trip safety.
func (d *Document) PlaceholderFrames(reg *Registry) []string {
	var ids []string
	for i := range d.Frames {
		if _, err := reg.Resolve(d.Frames[i].Type); err != nil {
			ids = append(ids, d.Frames[i].ID)
		}
	}
	return ids
}

// MarshalDocument serializes the document to its persisted textual form.
func MarshalDocument(d *Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("canvas: marshal document: %w", err)
	}
	return data, nil
}

// UnmarshalDocument parses a persisted document. A malformed payload
// yields an apperr.ParseError.
func UnmarshalDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperr.Parse("canvas document", err)
	}
	if d.Frames == nil {
		d.Frames = []Frame{}
	}
	if d.GlobalStrokes == nil {
		d.GlobalStrokes = []Stroke{}
	}
	return &d, nil
}

// LoadDocument parses persisted bytes, absorbing parse failures by falling
// back to an empty document so a corrupt or foreign payload degrades
// gracefully instead of blocking the workspace. Empty input yields a fresh
// empty document.
func LoadDocument(data []byte, name string, logger *slog.Logger) *Document {
	if len(data) == 0 {
		return NewDocument(name)
	}
	d, err := UnmarshalDocument(data)
	if err != nil {
		if logger != nil {
			logger.Warn("canvas: malformed document, using empty fallback",
				slog.String("name", name),
				slog.String("error", err.Error()))
		}
		return NewDocument(name)
	}
	return d
}
