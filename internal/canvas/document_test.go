package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/geom"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, b := range BuiltinBundles() {
		if err := r.Register(b); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestAddFrameUsesRegistryDefaults(t *testing.T) {
	reg := testRegistry(t)
	d := NewDocument("board")
	f := d.AddFrame(reg, "web", geom.Pt(10, 20))
	if f.Width != 640 || f.Height != 480 {
		t.Errorf("dimensions = %vx%v, want registry defaults 640x480", f.Width, f.Height)
	}
	if f.X != 10 || f.Y != 20 {
		t.Errorf("position = (%v,%v)", f.X, f.Y)
	}
	if !d.Dirty() {
		t.Error("AddFrame should mark the document dirty")
	}
}

func TestAddFrameUnknownTypeFallsBack(t *testing.T) {
	reg := testRegistry(t)
	d := NewDocument("board")
	f := d.AddFrame(reg, "mystery", geom.Pt(0, 0))
	if f.Width != FallbackFrameWidth || f.Height != FallbackFrameHeight {
		t.Errorf("fallback dimensions = %vx%v", f.Width, f.Height)
	}
}

func TestZOrderIsAppendOrder(t *testing.T) {
	reg := testRegistry(t)
	d := NewDocument("board")
	a := d.AddFrame(reg, "text", geom.Pt(0, 0)).ID
	b := d.AddFrame(reg, "text", geom.Pt(0, 0)).ID
	if d.Frames[0].ID != a || d.Frames[1].ID != b {
		t.Error("later frames must come later in the z-order")
	}
}

func TestMoveResizeRemoveFrame(t *testing.T) {
	reg := testRegistry(t)
	d := NewDocument("board")
	f := d.AddFrame(reg, "text", geom.Pt(0, 0))

	if err := d.MoveFrame(f.ID, -5000, 7e6); err != nil {
		t.Fatalf("MoveFrame: %v", err)
	}
	got, _ := d.FrameByID(f.ID)
	if got.X != -5000 || got.Y != 7e6 {
		t.Errorf("unconstrained move failed: (%v,%v)", got.X, got.Y)
	}

	if err := d.ResizeFrame(f.ID, 0, -10); err != nil {
		t.Fatalf("ResizeFrame: %v", err)
	}
	got, _ = d.FrameByID(f.ID)
	if got.Width != MinFrameSize || got.Height != MinFrameSize {
		t.Errorf("resize clamp: %vx%v", got.Width, got.Height)
	}

	if err := d.AppendFrameStroke(f.ID, Stroke{ID: "s1", Points: []geom.Point{{X: 1, Y: 1}}}); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveFrame(f.ID); err != nil {
		t.Fatalf("RemoveFrame: %v", err)
	}
	if _, err := d.FrameByID(f.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("removed frame still resolvable: %v", err)
	}

	if err := d.MoveFrame("ghost", 0, 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("MoveFrame on unknown id = %v, want ErrNotFound", err)
	}
}

func TestUpdateFrameMergesPatch(t *testing.T) {
	reg := testRegistry(t)
	d := NewDocument("board")
	f := d.AddFrame(reg, "text", geom.Pt(1, 2))
	d.ClearDirty()

	x := 42.0
	content := json.RawMessage(`{"text":"hello"}`)
	if err := d.UpdateFrame(f.ID, FramePatch{X: &x, Content: content}); err != nil {
		t.Fatal(err)
	}
	got, _ := d.FrameByID(f.ID)
	if got.X != 42 || got.Y != 2 {
		t.Errorf("patch merge: (%v,%v)", got.X, got.Y)
	}
	if !bytes.Equal(got.Content, content) {
		t.Errorf("content = %s", got.Content)
	}
	if !d.Dirty() {
		t.Error("UpdateFrame should mark the document dirty")
	}
}

func TestGlobalStrokeLifecycle(t *testing.T) {
	d := NewDocument("board")
	if err := d.AppendGlobalStroke(Stroke{ID: "empty"}); err == nil {
		t.Error("empty stroke must be rejected")
	}
	near := Stroke{ID: "near", Points: []geom.Point{{X: 0, Y: 0}, {X: 4, Y: 0}}}
	far := Stroke{ID: "far", Points: []geom.Point{{X: 500, Y: 500}}}
	if err := d.AppendGlobalStroke(near); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendGlobalStroke(far); err != nil {
		t.Fatal(err)
	}

	removed := d.EraseAt(geom.Pt(2, 1), DefaultEraseRadius)
	if len(removed) != 1 || removed[0] != "near" {
		t.Fatalf("removed = %v", removed)
	}
	if len(d.GlobalStrokes) != 1 || d.GlobalStrokes[0].ID != "far" {
		t.Errorf("survivors = %v", d.GlobalStrokes)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	reg := testRegistry(t)
	d := NewDocument("board")
	f := d.AddFrame(reg, "text", geom.Pt(3, 4))
	f.Content = json.RawMessage(`{"text":"note"}`)
	_ = d.AppendFrameStroke(f.ID, Stroke{ID: "fs", Points: []geom.Point{{X: 1, Y: 2}}, Color: "#f00", Width: 9})
	_ = d.AppendGlobalStroke(Stroke{ID: "gs", Points: []geom.Point{{X: 0, Y: 0}}, Color: "#00f", Width: 2})

	data, err := MarshalDocument(d)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalDocument(data)
	if err != nil {
		t.Fatal(err)
	}
	data2, err := MarshalDocument(back)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, data2) {
		t.Errorf("serialize/load/serialize not stable:\n%s\n%s", data, data2)
	}
}

func TestUnknownTypeContentRoundTripsByteIdentical(t *testing.T) {
	// Content from a plugin that isn't loaded must survive load+save
	// unmodified.
	raw := []byte(`{"id":"doc1","name":"n","frames":[{"id":"f1","type":"alien-plugin","x":1,"y":2,"width":3,"height":4,"content":{"weird":[1,{"deep":true}],"order":"kept"},"strokes":[]}],"globalStrokes":[]}`)
	d, err := UnmarshalDocument(raw)
	if err != nil {
		t.Fatal(err)
	}
	reg := testRegistry(t)
	if ids := d.PlaceholderFrames(reg); len(ids) != 1 || ids[0] != "f1" {
		t.Errorf("PlaceholderFrames = %v", ids)
	}
	want := []byte(`{"weird":[1,{"deep":true}],"order":"kept"}`)
	if !bytes.Equal(d.Frames[0].Content, want) {
		t.Fatalf("content altered on load:\n%s\n%s", d.Frames[0].Content, want)
	}
	out, err := MarshalDocument(d)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(out, want) {
		t.Errorf("content altered on save:\n%s", out)
	}
}

func TestUnmarshalDocumentMalformed(t *testing.T) {
	_, err := UnmarshalDocument([]byte(`{"frames": [broken`))
	if !apperr.IsParse(err) {
		t.Errorf("error = %v, want ParseError", err)
	}
}

func TestLoadDocumentFallsBackOnGarbage(t *testing.T) {
	d := LoadDocument([]byte("not json at all"), "sketch.canvas", nil)
	if d == nil || d.Name != "sketch.canvas" || len(d.Frames) != 0 {
		t.Errorf("fallback document = %+v", d)
	}
	fresh := LoadDocument(nil, "new.canvas", nil)
	if fresh.ID == "" || len(fresh.Frames) != 0 {
		t.Errorf("empty input should yield a fresh document: %+v", fresh)
	}
}
