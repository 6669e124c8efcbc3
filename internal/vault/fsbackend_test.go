package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/focosx/focos/internal/apperr"
)

func newTestFS(t *testing.T) (*FSBackend, string) {
	t.Helper()
	root := t.TempDir()
	b := NewFSBackend("v1", root)
	if _, err := b.LoadTree(context.Background()); err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	return b, root
}

func seedDir(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		abs := filepath.Join(root, filepath.FromSlash(p))
		if filepath.Ext(p) == "" {
			if err := os.MkdirAll(abs, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFSScanShape(t *testing.T) {
	root := t.TempDir()
	seedDir(t, root,
		"zeta.md",
		"board.canvas",
		"alpha/inner.md",
		"beta",
		".hidden/secret.md",
		".DS_Store.bin",
	)
	// Hidden top-level file too.
	if err := os.WriteFile(filepath.Join(root, ".focosrc"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	b := NewFSBackend("v1", root)
	tree, err := b.LoadTree(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Folders first, then files, both alphabetical; hidden entries skipped.
	var names []string
	for _, n := range tree {
		names = append(names, n.Name)
	}
	want := []string{"alpha", "beta", "board.canvas", "zeta.md"}
	if len(names) != len(want) {
		t.Fatalf("roots = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("roots = %v, want %v", names, want)
		}
	}

	canvas, ok := FindNode(tree, "v1:board.canvas")
	if !ok || canvas.Type != NodeCanvas {
		t.Errorf("board.canvas node = %v, %v; want CANVAS with path-derived id", canvas, ok)
	}
	inner, ok := FindNode(tree, "v1:alpha/inner.md")
	if !ok || inner.Type != NodeFile {
		t.Fatalf("nested file node = %v, %v", inner, ok)
	}
	if inner.ParentID == nil || *inner.ParentID != "v1:alpha" {
		t.Errorf("nested parent = %v, want v1:alpha", inner.ParentID)
	}
}

func TestFSCreateNode(t *testing.T) {
	b, root := newTestFS(t)
	ctx := context.Background()

	folder, err := b.CreateNode(ctx, "docs", NodeFolder, nil)
	if err != nil {
		t.Fatalf("CreateNode folder: %v", err)
	}
	if folder.ID != "v1:docs" {
		t.Errorf("folder id = %q, want backend-assigned v1:docs", folder.ID)
	}

	file, err := b.CreateNode(ctx, "readme", NodeFile, &folder.ID)
	if err != nil {
		t.Fatalf("CreateNode file: %v", err)
	}
	if file.ID != "v1:docs/readme.md" || file.Name != "readme.md" {
		t.Errorf("file = %+v", file)
	}
	if _, err := os.Stat(filepath.Join(root, "docs", "readme.md")); err != nil {
		t.Errorf("file not on disk: %v", err)
	}

	// Creating the same file again conflicts and leaves the mirror intact.
	before := len(Flatten(b.Tree()))
	if _, err := b.CreateNode(ctx, "readme", NodeFile, &folder.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate create: err = %v, want ErrConflict", err)
	}
	if got := len(Flatten(b.Tree())); got != before {
		t.Errorf("mirror changed on failed create: %d -> %d", before, got)
	}
}

func TestFSDeleteNodeCascades(t *testing.T) {
	b, root := newTestFS(t)
	ctx := context.Background()
	seedDir(t, root, "dir/a.md", "dir/sub/b.canvas", "keep.md")
	if _, err := b.LoadTree(ctx); err != nil {
		t.Fatal(err)
	}

	if err := b.DeleteNode(ctx, "v1:dir"); err != nil {
		t.Fatalf("DeleteNode: %v", err)
	}
	for _, id := range []string{"v1:dir", "v1:dir/a.md", "v1:dir/sub", "v1:dir/sub/b.canvas"} {
		if _, ok := FindNode(b.Tree(), id); ok {
			t.Errorf("%q still present after recursive delete", id)
		}
	}
	if _, ok := FindNode(b.Tree(), "v1:keep.md"); !ok {
		t.Error("unrelated file removed")
	}
	if err := b.DeleteNode(ctx, "v1:ghost.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown delete: err = %v", err)
	}
}

func TestFSRenameChangesID(t *testing.T) {
	b, root := newTestFS(t)
	ctx := context.Background()
	seedDir(t, root, "old.canvas")
	if _, err := b.LoadTree(ctx); err != nil {
		t.Fatal(err)
	}

	renamed, err := b.RenameNode(ctx, "v1:old.canvas", "new")
	if err != nil {
		t.Fatalf("RenameNode: %v", err)
	}
	if renamed.ID != "v1:new.canvas" || renamed.Name != "new.canvas" {
		t.Errorf("renamed = %+v", renamed)
	}
	if _, ok := FindNode(b.Tree(), "v1:old.canvas"); ok {
		t.Error("old id still present")
	}
}

func TestFSDocumentRoundTrip(t *testing.T) {
	b, _ := newTestFS(t)
	ctx := context.Background()
	n, err := b.CreateNode(ctx, "board", NodeCanvas, nil)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte(`{"id":"doc","frames":[],"globalStrokes":[]}`)
	if err := b.WriteDocument(ctx, n.ID, payload); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}
	got, err := b.ReadDocument(ctx, n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("read back = %q", got)
	}
}

func TestFSIDFromAnotherVaultRejected(t *testing.T) {
	b, _ := newTestFS(t)
	if err := b.DeleteNode(context.Background(), "other:file.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign id: err = %v, want ErrNotFound", err)
	}
}
