package index

import (
	"errors"
	"os"
	"testing"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/vault"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "focos-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strptr(s string) *string { return &s }

func seedNodes() []vault.Node {
	return []vault.Node{
		{ID: "root", Name: "Projects", Type: vault.NodeFolder},
		{ID: "a", Name: "a.md", Type: vault.NodeFile, ParentID: strptr("root")},
		{ID: "b", Name: "b.canvas", Type: vault.NodeCanvas, ParentID: strptr("root")},
	}
}

func TestReplaceVaultAndLookup(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceVault("v1", seedNodes()); err != nil {
		t.Fatalf("ReplaceVault: %v", err)
	}

	r, err := db.Lookup("b")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if r.VaultID != "v1" || r.Type != vault.NodeCanvas || r.Name != "b.canvas" {
		t.Errorf("row = %+v", r)
	}
	if r.ParentID == nil || *r.ParentID != "root" {
		t.Errorf("parent = %v", r.ParentID)
	}

	if _, err := db.Lookup("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown lookup: err = %v", err)
	}

	// Replace removes rows no longer present.
	if err := db.ReplaceVault("v1", seedNodes()[:1]); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Lookup("a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("stale row survived replace: %v", err)
	}
}

func TestReplaceVaultPreservesUpdatedAt(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceVault("v1", seedNodes()); err != nil {
		t.Fatal(err)
	}

	// Backdate one row well past timestamp resolution so a restamp is
	// unmistakable.
	if _, err := db.conn.Exec(
		`UPDATE nodes SET updated_at = '2020-01-01 00:00:00' WHERE vault_id = 'v1' AND node_id = 'a'`,
	); err != nil {
		t.Fatal(err)
	}
	before, err := db.Lookup("a")
	if err != nil {
		t.Fatal(err)
	}

	// A full re-sync with a rename must keep the survivor's recency.
	nodes := seedNodes()
	nodes[1].Name = "a-renamed.md"
	if err := db.ReplaceVault("v1", nodes); err != nil {
		t.Fatal(err)
	}

	after, err := db.Lookup("a")
	if err != nil {
		t.Fatal(err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("updated_at restamped across replace: before=%v after=%v",
			before.UpdatedAt, after.UpdatedAt)
	}
	if after.Name != "a-renamed.md" {
		t.Errorf("name not updated in place: %q", after.Name)
	}

	// Recent order follows Touch recency, not sync order.
	if err := db.Touch("v1", "b"); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceVault("v1", nodes); err != nil {
		t.Fatal(err)
	}
	rows, err := db.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].NodeID != "b" || rows[1].NodeID != "a" {
		t.Errorf("recent order = %+v, want b before backdated a", rows)
	}
}

func TestDeleteVault(t *testing.T) {
	db := testDB(t)
	_ = db.ReplaceVault("v1", seedNodes())
	_ = db.ReplaceVault("v2", []vault.Node{{ID: "x", Name: "x.md", Type: vault.NodeFile}})

	if err := db.DeleteVault("v1"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Lookup("a"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("v1 rows survived DeleteVault")
	}
	if _, err := db.Lookup("x"); err != nil {
		t.Errorf("other vault affected: %v", err)
	}
}

func TestRecentListsLeavesOnly(t *testing.T) {
	db := testDB(t)
	if err := db.ReplaceVault("v1", seedNodes()); err != nil {
		t.Fatal(err)
	}
	if err := db.Touch("v1", "b"); err != nil {
		t.Fatal(err)
	}

	rows, err := db.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("recent = %d rows, want 2 (folders excluded)", len(rows))
	}
	for _, r := range rows {
		if r.Type == vault.NodeFolder {
			t.Errorf("folder %q in recent list", r.NodeID)
		}
	}
}
