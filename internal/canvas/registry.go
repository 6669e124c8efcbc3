package canvas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/focosx/focos/internal/apperr"
)

// DragHandle selects how a frame is grabbed for dragging.
type DragHandle string

const (
	DragHandleHeader DragHandle = "header"
	DragHandleFull   DragHandle = "full"
	DragHandleNone   DragHandle = ""
)

// InteractionFlags declares how a frame type participates in canvas input.
type InteractionFlags struct {
	// CaptureWheel routes wheel events to the frame instead of the canvas
	// transform (e.g. scrollable embedded content).
	CaptureWheel bool       `json:"captureWheel"`
	DragHandle   DragHandle `json:"dragHandle"`
}

// Updater applies a patch to the frame a tool was invoked on.
type Updater func(patch FramePatch)

// Tool is a custom toolbar action contributed by a frame type.
type Tool struct {
	ID      string
	Label   string
	Icon    string
	OnClick func(frame *Frame, update Updater) error
}

// RenderFunc is the renderer capability of a frame type. The core never
// calls it; hosts dispatch to it at render time.
type RenderFunc func(frame *Frame) any

// TypeBundle is the capability bundle registered for one frame type tag.
// The shape of a frame's Content is owned exclusively by the bundle
// registered for its tag; the core transports it opaquely.
type TypeBundle struct {
	Tag               string
	DefaultWidth      float64
	DefaultHeight     float64
	HandledExtensions []string
	Interaction       InteractionFlags
	Tools             []Tool
	Render            RenderFunc
}

// Registry maps frame type tags to capability bundles. Registration order
// is preserved so extension resolution is deterministic.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	bundles map[string]TypeBundle
}

// NewRegistry creates an empty frame type registry.
func NewRegistry() *Registry {
	return &Registry{bundles: make(map[string]TypeBundle)}
}

// Register adds a bundle under its tag. Registering an already-registered
// tag fails with apperr.ErrConflict and leaves the first registration in
// effect.
func (r *Registry) Register(b TypeBundle) error {
	if b.Tag == "" {
		return fmt.Errorf("canvas: frame type tag is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bundles[b.Tag]; ok {
		return fmt.Errorf("canvas: frame type %q: %w", b.Tag, apperr.ErrConflict)
	}
	r.bundles[b.Tag] = b
	r.order = append(r.order, b.Tag)
	return nil
}

// Resolve returns the bundle registered for tag.
func (r *Registry) Resolve(tag string) (TypeBundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bundles[tag]
	if !ok {
		return TypeBundle{}, fmt.Errorf("canvas: frame type %q: %w", tag, apperr.ErrNotFound)
	}
	return b, nil
}

// ResolveByExtension returns the first-registered bundle whose handled
// extensions contain ext. Matching is case-insensitive and tolerates a
// leading dot. First match wins on overlap.
func (r *Registry) ResolveByExtension(ext string) (TypeBundle, error) {
	want := normalizeExt(ext)
	if want == "" {
		return TypeBundle{}, fmt.Errorf("canvas: empty extension: %w", apperr.ErrNotFound)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tag := range r.order {
		for _, e := range r.bundles[tag].HandledExtensions {
			if normalizeExt(e) == want {
				return r.bundles[tag], nil
			}
		}
	}
	return TypeBundle{}, fmt.Errorf("canvas: no frame type for extension %q: %w", ext, apperr.ErrNotFound)
}

// Tags returns all registered tags in registration order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
