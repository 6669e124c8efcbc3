// Package index provides the SQLite-backed node index: fast id lookup
// across vaults and recently-touched document listing. The index is
// derived data, rebuilt from the vault forests; it is never the source of
// truth for the tree.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes (
	vault_id   TEXT NOT NULL,
	node_id    TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	node_type  TEXT NOT NULL DEFAULT 'FILE',
	parent_id  TEXT,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (vault_id, node_id)
);

CREATE INDEX IF NOT EXISTS idx_nodes_node ON nodes(node_id);
CREATE INDEX IF NOT EXISTS idx_nodes_updated ON nodes(updated_at);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	return db.conn.Close()
}
