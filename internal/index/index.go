package index

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focosx/focos/internal/apperr"
	"github.com/focosx/focos/internal/vault"
)

// Row is one indexed node.
type Row struct {
	VaultID   string         `json:"vault_id"`
	NodeID    string         `json:"node_id"`
	Name      string         `json:"name"`
	Type      vault.NodeType `json:"type"`
	ParentID  *string        `json:"parent_id,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NodeIndex defines the node indexing operations. Consumers should depend
// on this interface rather than the concrete *DB type to facilitate
// testing with mocks.
type NodeIndex interface {
	ReplaceVault(vaultID string, nodes []vault.Node) error
	DeleteVault(vaultID string) error
	Touch(vaultID, nodeID string) error
	Lookup(nodeID string) (*Row, error)
	Recent(limit int) ([]Row, error)
	Close() error
}

// Verify *DB satisfies both the index interface and the narrow sync
// interface the vault manager depends on.
var (
	_ NodeIndex       = (*DB)(nil)
	_ vault.TreeIndex = (*DB)(nil)
)

// ReplaceVault swaps the vault's indexed nodes for the given flattened
// forest in one transaction, preserving updated_at for rows that survive.
// Surviving rows are upserted in place; restamping them would collapse
// Recent into vault-sync order.
func (db *DB) ReplaceVault(vaultID string, nodes []vault.Node) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin: %w", err)
	}
	defer tx.Rollback()

	// Prune rows whose node is gone from the forest.
	if len(nodes) == 0 {
		if _, err := tx.Exec(`DELETE FROM nodes WHERE vault_id = ?`, vaultID); err != nil {
			return fmt.Errorf("index: clear vault: %w", err)
		}
	} else {
		args := make([]any, 0, len(nodes)+1)
		args = append(args, vaultID)
		placeholders := make([]string, len(nodes))
		for i, n := range nodes {
			placeholders[i] = "?"
			args = append(args, n.ID)
		}
		q := `DELETE FROM nodes WHERE vault_id = ? AND node_id NOT IN (` +
			strings.Join(placeholders, ", ") + `)`
		if _, err := tx.Exec(q, args...); err != nil {
			return fmt.Errorf("index: prune vault: %w", err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO nodes (vault_id, node_id, name, node_type, parent_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (vault_id, node_id) DO UPDATE SET
			name = excluded.name,
			node_type = excluded.node_type,
			parent_id = excluded.parent_id`)
	if err != nil {
		return fmt.Errorf("index: prepare: %w", err)
	}
	defer stmt.Close()
	for _, n := range nodes {
		if _, err := stmt.Exec(vaultID, n.ID, n.Name, string(n.Type), n.ParentID); err != nil {
			return fmt.Errorf("index: upsert %s: %w", n.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w", err)
	}
	return nil
}

// DeleteVault drops every indexed node of a vault.
func (db *DB) DeleteVault(vaultID string) error {
	if _, err := db.conn.Exec(`DELETE FROM nodes WHERE vault_id = ?`, vaultID); err != nil {
		return fmt.Errorf("index: delete vault: %w", err)
	}
	return nil
}

// Touch bumps a node's updated_at, feeding the recent-documents list.
func (db *DB) Touch(vaultID, nodeID string) error {
	_, err := db.conn.Exec(
		`UPDATE nodes SET updated_at = CURRENT_TIMESTAMP WHERE vault_id = ? AND node_id = ?`,
		vaultID, nodeID)
	if err != nil {
		return fmt.Errorf("index: touch: %w", err)
	}
	return nil
}

// Lookup finds a node by id across all vaults.
func (db *DB) Lookup(nodeID string) (*Row, error) {
	row := db.conn.QueryRow(`
		SELECT vault_id, node_id, name, node_type, parent_id, updated_at
		FROM nodes WHERE node_id = ?`, nodeID)
	var r Row
	var typ string
	if err := row.Scan(&r.VaultID, &r.NodeID, &r.Name, &typ, &r.ParentID, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("index: node %q: %w", nodeID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("index: lookup: %w", err)
	}
	r.Type = vault.NodeType(typ)
	return &r, nil
}

// Recent lists the most recently touched leaf nodes (documents), newest
// first.
func (db *DB) Recent(limit int) ([]Row, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT vault_id, node_id, name, node_type, parent_id, updated_at
		FROM nodes
		WHERE node_type IN ('FILE', 'CANVAS')
		ORDER BY updated_at DESC, node_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: recent: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var typ string
		if err := rows.Scan(&r.VaultID, &r.NodeID, &r.Name, &typ, &r.ParentID, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("index: scan: %w", err)
		}
		r.Type = vault.NodeType(typ)
		out = append(out, r)
	}
	return out, rows.Err()
}
