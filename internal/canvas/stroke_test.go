package canvas

import (
	"testing"

	"github.com/focosx/focos/internal/geom"
)

func TestRenderOpacity(t *testing.T) {
	tests := []struct {
		width float64
		want  float64
	}{
		{1, 1.0},
		{8, 1.0},
		{8.1, 0.5},
		{20, 0.5},
	}
	for _, tt := range tests {
		s := Stroke{Width: tt.width}
		if got := s.RenderOpacity(); got != tt.want {
			t.Errorf("width %v: opacity = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestCaptureSessionRecordsEverySample(t *testing.T) {
	ses := NewCaptureSession(Brush{Name: "pen", Color: "#000", Width: 2, Opacity: 1}, LayerFront, "")
	if committed := ses.Begin(geom.Pt(0, 0)); committed != nil {
		t.Fatal("Begin on a fresh session should not commit anything")
	}
	for i := 1; i <= 50; i++ {
		ses.Append(geom.Pt(float64(i), float64(i)))
	}
	s, err := ses.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(s.Points) != 51 {
		t.Errorf("points = %d, want 51 (no decimation)", len(s.Points))
	}
	if s.ID == "" {
		t.Error("committed stroke has no id")
	}
	if s.Color != "#000" || s.Width != 2 {
		t.Errorf("stroke style = %q/%v, want brush style", s.Color, s.Width)
	}
}

func TestCommitWithoutBegin(t *testing.T) {
	ses := NewCaptureSession(Brush{}, LayerBack, "")
	if _, err := ses.Commit(); err == nil {
		t.Error("expected error committing with no stroke in progress")
	}
}

func TestAppendWithoutBeginIgnored(t *testing.T) {
	ses := NewCaptureSession(Brush{}, LayerFront, "")
	ses.Append(geom.Pt(1, 1))
	if _, open := ses.InProgress(); open {
		t.Error("stray move sample opened a stroke")
	}
}

func TestBeginCommitsOpenStroke(t *testing.T) {
	ses := NewCaptureSession(Brush{Color: "red", Width: 3}, LayerFront, "frame-1")
	ses.Begin(geom.Pt(0, 0))
	ses.Append(geom.Pt(1, 0))
	committed := ses.Begin(geom.Pt(5, 5))
	if committed == nil {
		t.Fatal("expected the open stroke to be committed")
	}
	if len(committed.Points) != 2 {
		t.Errorf("committed points = %d, want 2", len(committed.Points))
	}
	cur, open := ses.InProgress()
	if !open || len(cur.Points) != 1 || cur.Points[0] != geom.Pt(5, 5) {
		t.Errorf("new stroke not started at (5,5): %v open=%v", cur, open)
	}
}

func TestEraseStrokesNearRemovesOnlyClosest(t *testing.T) {
	near := Stroke{ID: "near", Points: []geom.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}}
	far := Stroke{ID: "far", Points: []geom.Point{{X: 0, Y: 100}, {X: 10, Y: 100}}}
	single := Stroke{ID: "single", Points: []geom.Point{{X: 50, Y: 50}}}

	kept, removed := EraseStrokesNear([]Stroke{near, far, single}, geom.Pt(5, 3), 5)
	if len(removed) != 1 || removed[0] != "near" {
		t.Fatalf("removed = %v, want [near]", removed)
	}
	if len(kept) != 2 {
		t.Fatalf("kept = %d strokes, want 2", len(kept))
	}
	for _, s := range kept {
		if s.ID == "near" {
			t.Error("erased stroke still present")
		}
	}
}

func TestEraseUsesSegmentDistance(t *testing.T) {
	// Point is far from both vertices but close to the segment between them.
	s := Stroke{ID: "s", Points: []geom.Point{{X: -100, Y: 0}, {X: 100, Y: 0}}}
	_, removed := EraseStrokesNear([]Stroke{s}, geom.Pt(0, 4), 5)
	if len(removed) != 1 {
		t.Error("expected erase to hit the stroke segment, not just its vertices")
	}
}
